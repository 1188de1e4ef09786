// Package flatten projects the technical list tree into a leveled table: one
// row per BOM line, with every ancestor list placed in the column of its
// category.
package flatten

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/vsinha/mrpbom/pkg/domain/entities"
	"github.com/vsinha/mrpbom/pkg/domain/repositories"
)

// Options filters the projection
type Options struct {
	// ListID restricts the table to one root list. Zero means every top-level list.
	ListID entities.ListID
	// IncludeGroups adds a row for each sub-list line in front of its children
	IncludeGroups bool
	// Search keeps rows whose names, codes or comment contain it, ignoring case
	Search string
}

// Row is one line of the leveled BOM table
type Row struct {
	Series      string `json:"series"`
	System      string `json:"system"`
	Assembly    string `json:"assembly"`
	Subassembly string `json:"subassembly"`
	Item        string `json:"item"`

	LineID        entities.LineID `json:"line_id"`
	ListCode      string          `json:"list_code"`
	Group         bool            `json:"group"`
	ComponentCode string          `json:"component_code,omitempty"`
	ComponentName string          `json:"component_name,omitempty"`
	Depth         int             `json:"depth"`

	Quantity         decimal.Decimal `json:"quantity"`
	Weighting        decimal.Decimal `json:"weighting"`
	WeightedQuantity decimal.Decimal `json:"weighted_quantity"`
	Comment          string          `json:"comment"`
}

// Levels returns the five category columns from SERIES to ITEM
func (r Row) Levels() [5]string {
	return [5]string{r.Series, r.System, r.Assembly, r.Subassembly, r.Item}
}

func (r *Row) place(list *entities.TechnicalList) {
	name := list.Name
	if name == "" {
		name = list.Code
	}
	switch list.Category {
	case entities.Series:
		r.Series = name
	case entities.System:
		r.System = name
	case entities.Assembly:
		r.Assembly = name
	case entities.Subassembly:
		r.Subassembly = name
	case entities.ItemCategory:
		r.Item = name
	}
}

func (r Row) matches(term string) bool {
	fields := []string{
		r.Series, r.System, r.Assembly, r.Subassembly, r.Item,
		r.ListCode, r.ComponentCode, r.ComponentName, r.Comment,
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}

// Build walks the catalog depth first from each root and emits the rows in
// line order. A sub-list already on the ancestor path is not entered again.
// Without a root filter, lists that are only reachable through a cycle are
// walked afterwards from the first of them in catalog order.
func Build(catalog repositories.CatalogReader, opts Options) ([]Row, error) {
	roots, err := roots(catalog, opts.ListID)
	if err != nil {
		return nil, err
	}

	b := &builder{
		catalog: catalog,
		opts:    opts,
		term:    strings.ToLower(strings.TrimSpace(opts.Search)),
		reached: make(map[entities.ListID]bool),
	}
	for _, root := range roots {
		if err := b.walk(root); err != nil {
			return nil, err
		}
	}
	if opts.ListID != 0 {
		return b.rows, nil
	}

	lists, err := catalog.GetAllLists()
	if err != nil {
		return nil, fmt.Errorf("failed to load lists: %w", err)
	}
	for _, l := range lists {
		if b.reached[l.ID] {
			continue
		}
		if err := b.walk(l); err != nil {
			return nil, err
		}
	}
	return b.rows, nil
}

func roots(catalog repositories.CatalogReader, id entities.ListID) ([]*entities.TechnicalList, error) {
	if id != 0 {
		list, err := catalog.GetList(id)
		if err != nil {
			return nil, fmt.Errorf("failed to get root list: %w", err)
		}
		return []*entities.TechnicalList{list}, nil
	}

	lists, err := catalog.GetAllLists()
	if err != nil {
		return nil, fmt.Errorf("failed to load lists: %w", err)
	}
	lines, err := catalog.GetAllBOMLines()
	if err != nil {
		return nil, fmt.Errorf("failed to load bom lines: %w", err)
	}

	referenced := make(map[entities.ListID]bool)
	for _, line := range lines {
		if line.IsSubListLine() {
			referenced[line.ChildListID] = true
		}
	}

	out := make([]*entities.TechnicalList, 0)
	for _, l := range lists {
		if !referenced[l.ID] {
			out = append(out, l)
		}
	}
	return out, nil
}

type builder struct {
	catalog repositories.CatalogReader
	opts    Options
	term    string
	rows    []Row
	// reached holds every list entered by any walk
	reached map[entities.ListID]bool
}

type level struct {
	list  *entities.TechnicalList
	lines []*entities.BOMLine
	next  int
}

func (b *builder) walk(root *entities.TechnicalList) error {
	lines, err := b.catalog.GetBOMLines(root.ID)
	if err != nil {
		return fmt.Errorf("failed to get bom lines for list %s: %w", root.Code, err)
	}

	b.reached[root.ID] = true
	onPath := map[entities.ListID]bool{root.ID: true}
	stack := []*level{{list: root, lines: lines}}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		if top.next >= len(top.lines) {
			delete(onPath, top.list.ID)
			stack = stack[:len(stack)-1]
			continue
		}
		line := top.lines[top.next]
		top.next++

		row := Row{
			LineID:           line.ID,
			ListCode:         top.list.Code,
			Depth:            len(stack) - 1,
			Quantity:         line.Quantity,
			Weighting:        line.EffectiveWeighting(),
			WeightedQuantity: line.WeightedQuantity(),
			Comment:          line.Comment,
		}
		for _, l := range stack {
			row.place(l.list)
		}

		if line.IsComponentLine() {
			component, err := b.catalog.GetComponent(line.ChildComponentID)
			if err != nil {
				return fmt.Errorf("failed to resolve component %d on line %d: %w", line.ChildComponentID, line.ID, err)
			}
			row.ComponentCode = component.Code
			row.ComponentName = component.Name
			b.emit(row)
			continue
		}

		if !line.IsSubListLine() {
			continue
		}
		child, err := b.catalog.GetList(line.ChildListID)
		if err != nil {
			return fmt.Errorf("failed to resolve sub-list %d on line %d: %w", line.ChildListID, line.ID, err)
		}
		if b.opts.IncludeGroups {
			row.Group = true
			row.place(child)
			b.emit(row)
		}
		if onPath[child.ID] {
			continue
		}

		childLines, err := b.catalog.GetBOMLines(child.ID)
		if err != nil {
			return fmt.Errorf("failed to get bom lines for list %s: %w", child.Code, err)
		}
		onPath[child.ID] = true
		b.reached[child.ID] = true
		stack = append(stack, &level{list: child, lines: childLines})
	}
	return nil
}

func (b *builder) emit(row Row) {
	if b.term != "" && !row.matches(b.term) {
		return
	}
	b.rows = append(b.rows, row)
}
