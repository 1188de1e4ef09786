package mrp

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/vsinha/mrpbom/pkg/application/dto"
	"github.com/vsinha/mrpbom/pkg/domain/entities"
	"github.com/vsinha/mrpbom/pkg/domain/repositories"
)

// NodeContext provides context information for one BOM line during expansion
type NodeContext struct {
	Order *entities.ProductionOrder
	// Root is the order's target list
	Root *entities.TechnicalList
	// List owns Line
	List *entities.TechnicalList
	// ParentListCode is the code of the list whose sub-list line led into List, empty at the root
	ParentListCode string
	Line           *entities.BOMLine
	// Depth of List below Root
	Depth int
	// Multiplier is the number of List units demanded by the order
	Multiplier decimal.Decimal
	// PerUnit is the line quantity per List unit under the quantity policy
	PerUnit decimal.Decimal
	// Quantity = Multiplier x PerUnit
	Quantity decimal.Decimal
	// Path holds the list codes from Root to List. Only set for pruned branches.
	Path []string
}

// BOMVisitor defines the interface for processing lines during BOM expansion
type BOMVisitor interface {
	// VisitComponent is called for every line that resolves to a leaf component
	VisitComponent(ctx context.Context, node NodeContext, component *entities.Component) error
	// VisitSubList is called before the walker descends into a sub-list
	VisitSubList(ctx context.Context, node NodeContext, child *entities.TechnicalList) error
	// Prune is called for a sub-list the walker refuses to enter
	Prune(ctx context.Context, node NodeContext, child *entities.TechnicalList, kind dto.DiagnosticKind) error
}

// BOMWalker performs depth-first expansion of an order's target list
type BOMWalker struct {
	catalog  repositories.CatalogReader
	policy   QuantityPolicy
	guard    CycleGuard
	maxDepth int
}

// NewBOMWalker creates a new BOM walker
func NewBOMWalker(
	catalog repositories.CatalogReader,
	policy QuantityPolicy,
	guard CycleGuard,
	maxDepth int,
) *BOMWalker {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &BOMWalker{
		catalog:  catalog,
		policy:   policy,
		guard:    guard,
		maxDepth: maxDepth,
	}
}

type frame struct {
	list           *entities.TechnicalList
	multiplier     decimal.Decimal
	depth          int
	parentListCode string
	lines          []*entities.BOMLine
	next           int
}

// Expand walks root with multiplier = order quantity. Lines are visited in
// repository order and sub-lists are entered depth first, using an explicit
// frame stack instead of recursion.
func (w *BOMWalker) Expand(
	ctx context.Context,
	order *entities.ProductionOrder,
	root *entities.TechnicalList,
	visitor BOMVisitor,
) error {
	lines, err := w.catalog.GetBOMLines(root.ID)
	if err != nil {
		return fmt.Errorf("failed to get bom lines for list %s: %w", root.Code, err)
	}

	visited := map[entities.ListID]bool{root.ID: true}
	onPath := map[entities.ListID]bool{root.ID: true}
	stack := []*frame{{list: root, multiplier: order.Quantity, lines: lines}}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		top := stack[len(stack)-1]
		if top.next >= len(top.lines) {
			delete(onPath, top.list.ID)
			stack = stack[:len(stack)-1]
			continue
		}
		line := top.lines[top.next]
		top.next++

		perUnit := w.policy.lineFactor(line)
		node := NodeContext{
			Order:          order,
			Root:           root,
			List:           top.list,
			ParentListCode: top.parentListCode,
			Line:           line,
			Depth:          top.depth,
			Multiplier:     top.multiplier,
			PerUnit:        perUnit,
			Quantity:       top.multiplier.Mul(perUnit),
		}

		switch {
		case line.IsComponentLine():
			component, err := w.catalog.GetComponent(line.ChildComponentID)
			if err != nil {
				return fmt.Errorf("failed to resolve component %d on line %d: %w", line.ChildComponentID, line.ID, err)
			}
			if err := visitor.VisitComponent(ctx, node, component); err != nil {
				return fmt.Errorf("failed to visit line %d: %w", line.ID, err)
			}

		case line.IsSubListLine():
			child, err := w.catalog.GetList(line.ChildListID)
			if err != nil {
				return fmt.Errorf("failed to resolve sub-list %d on line %d: %w", line.ChildListID, line.ID, err)
			}

			if kind, pruned := w.check(child.ID, top.depth+1, visited, onPath); pruned {
				node.Path = pathOf(stack)
				if err := visitor.Prune(ctx, node, child, kind); err != nil {
					return fmt.Errorf("failed to prune line %d: %w", line.ID, err)
				}
				continue
			}

			if err := visitor.VisitSubList(ctx, node, child); err != nil {
				return fmt.Errorf("failed to visit line %d: %w", line.ID, err)
			}
			childLines, err := w.catalog.GetBOMLines(child.ID)
			if err != nil {
				return fmt.Errorf("failed to get bom lines for list %s: %w", child.Code, err)
			}

			visited[child.ID] = true
			onPath[child.ID] = true
			stack = append(stack, &frame{
				list:           child,
				multiplier:     node.Quantity,
				depth:          top.depth + 1,
				parentListCode: top.list.Code,
				lines:          childLines,
			})

		default:
			return &entities.StructuralError{
				LineID: line.ID,
				Field:  "child",
				Reason: "must reference exactly one of a component or a sub-list",
			}
		}
	}

	return nil
}

// check decides whether a sub-list at depth may be entered
func (w *BOMWalker) check(
	id entities.ListID,
	depth int,
	visited, onPath map[entities.ListID]bool,
) (dto.DiagnosticKind, bool) {
	if onPath[id] {
		return dto.CycleDetected, true
	}
	if w.guard != PathGuard && visited[id] {
		return dto.RevisitPruned, true
	}
	if depth > w.maxDepth {
		return dto.DepthExceeded, true
	}
	return "", false
}

func pathOf(stack []*frame) []string {
	path := make([]string, 0, len(stack))
	for _, f := range stack {
		path = append(path, f.list.Code)
	}
	return path
}
