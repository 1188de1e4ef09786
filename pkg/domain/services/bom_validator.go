package services

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/vsinha/mrpbom/pkg/domain/entities"
)

var hundred = decimal.NewFromInt(100)

// BOMValidator checks catalog records and the list graph before an explosion run
type BOMValidator struct {
	validate *validator.Validate
}

// NewBOMValidator creates a new BOM validator
func NewBOMValidator() *BOMValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	v.RegisterCustomTypeFunc(decimalValue, decimal.Decimal{})
	v.RegisterStructValidation(bomLineStructLevel, entities.BOMLine{})
	return &BOMValidator{validate: v}
}

// ValidationResult contains the results of catalog validation
type ValidationResult struct {
	HasCycles        bool
	CyclePaths       [][]entities.ListID
	StructuralErrors []*entities.StructuralError
	RecordErrors     []error
	Errors           []string
}

// Valid reports whether the catalog can be exploded in strict mode.
// Cycles do not make a catalog invalid; the walker prunes them.
func (r *ValidationResult) Valid() bool {
	return len(r.StructuralErrors) == 0 && len(r.RecordErrors) == 0
}

// Err joins every structural and record error, or returns nil
func (r *ValidationResult) Err() error {
	if r.Valid() {
		return nil
	}
	errs := make([]error, 0, len(r.StructuralErrors)+len(r.RecordErrors))
	for _, se := range r.StructuralErrors {
		errs = append(errs, se)
	}
	errs = append(errs, r.RecordErrors...)
	return errors.Join(errs...)
}

// InvalidLines returns the ids of lines carrying at least one structural error
func (r *ValidationResult) InvalidLines() map[entities.LineID]bool {
	ids := make(map[entities.LineID]bool, len(r.StructuralErrors))
	for _, se := range r.StructuralErrors {
		ids[se.LineID] = true
	}
	return ids
}

// ValidateCatalog validates components, lists and BOM lines, resolves every
// child reference and reports the cycles of the list graph
func (v *BOMValidator) ValidateCatalog(
	components []*entities.Component,
	lists []*entities.TechnicalList,
	lines []*entities.BOMLine,
) *ValidationResult {
	result := &ValidationResult{
		CyclePaths:       make([][]entities.ListID, 0),
		StructuralErrors: make([]*entities.StructuralError, 0),
		RecordErrors:     make([]error, 0),
		Errors:           make([]string, 0),
	}

	componentIDs := make(map[entities.ComponentID]bool, len(components))
	for _, c := range components {
		componentIDs[c.ID] = true
		if err := v.validate.Struct(c); err != nil {
			result.RecordErrors = append(result.RecordErrors, fmt.Errorf("component %s: %s", c.Code, describe(err)))
		}
	}

	listIDs := make(map[entities.ListID]bool, len(lists))
	for _, l := range lists {
		listIDs[l.ID] = true
		if err := v.validate.Struct(l); err != nil {
			result.RecordErrors = append(result.RecordErrors, fmt.Errorf("list %s: %s", l.Code, describe(err)))
		}
	}

	for _, line := range lines {
		result.StructuralErrors = append(result.StructuralErrors, v.ValidateLine(line)...)
		result.StructuralErrors = append(result.StructuralErrors, unresolvedReferences(line, componentIDs, listIDs)...)
	}

	result.CyclePaths = v.detectCycles(buildAdjacencyMap(lines))
	result.HasCycles = len(result.CyclePaths) > 0

	for _, se := range result.StructuralErrors {
		result.Errors = append(result.Errors, se.Error())
	}
	for _, err := range result.RecordErrors {
		result.Errors = append(result.Errors, err.Error())
	}
	for _, cycle := range result.CyclePaths {
		result.Errors = append(result.Errors, fmt.Sprintf("BOM cycle detected: %v", cycle))
	}

	return result
}

// ValidateLine checks the shape invariants of one BOM line
func (v *BOMValidator) ValidateLine(line *entities.BOMLine) []*entities.StructuralError {
	err := v.validate.Struct(line)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []*entities.StructuralError{{LineID: line.ID, Reason: err.Error()}}
	}

	out := make([]*entities.StructuralError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, &entities.StructuralError{
			LineID: line.ID,
			Field:  fe.Field(),
			Reason: reason(fe),
		})
	}
	return out
}

// ValidateOrder checks one production order
func (v *BOMValidator) ValidateOrder(order *entities.ProductionOrder) error {
	if err := v.validate.Struct(order); err != nil {
		return &entities.OrderError{
			OrderID: order.ID,
			Reason:  describe(err),
			Err:     entities.ErrInvalidOrder,
		}
	}
	return nil
}

// WouldCreateCycle reports whether adding parent -> childList to lines closes a cycle
func (v *BOMValidator) WouldCreateCycle(lines []*entities.BOMLine, parent, childList entities.ListID) bool {
	if childList == 0 {
		return false
	}
	if parent == childList {
		return true
	}

	adjacencyMap := buildAdjacencyMap(lines)
	visited := make(map[entities.ListID]bool)
	stack := []entities.ListID{childList}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if current == parent {
			return true
		}
		if visited[current] {
			continue
		}
		visited[current] = true
		stack = append(stack, adjacencyMap[current]...)
	}
	return false
}

// buildAdjacencyMap creates a map of parent list -> sub-lists
func buildAdjacencyMap(lines []*entities.BOMLine) map[entities.ListID][]entities.ListID {
	adjacencyMap := make(map[entities.ListID][]entities.ListID)

	for _, line := range lines {
		if line.ChildListID == 0 {
			continue
		}
		children := adjacencyMap[line.ParentListID]

		// Avoid duplicate children in adjacency list
		found := false
		for _, child := range children {
			if child == line.ChildListID {
				found = true
				break
			}
		}
		if !found {
			adjacencyMap[line.ParentListID] = append(children, line.ChildListID)
		}
	}

	return adjacencyMap
}

// detectCycles uses DFS to find cycles in the list graph
func (v *BOMValidator) detectCycles(adjacencyMap map[entities.ListID][]entities.ListID) [][]entities.ListID {
	visited := make(map[entities.ListID]bool)
	recursionStack := make(map[entities.ListID]bool)
	cycles := make([][]entities.ListID, 0)

	parents := make([]entities.ListID, 0, len(adjacencyMap))
	for parent := range adjacencyMap {
		parents = append(parents, parent)
	}
	sort.Slice(parents, func(i, j int) bool { return parents[i] < parents[j] })

	for _, parent := range parents {
		if !visited[parent] {
			v.dfsDetectCycle(parent, adjacencyMap, visited, recursionStack, nil, &cycles)
		}
	}

	return cycles
}

// dfsDetectCycle performs depth-first search to detect cycles
func (v *BOMValidator) dfsDetectCycle(
	current entities.ListID,
	adjacencyMap map[entities.ListID][]entities.ListID,
	visited map[entities.ListID]bool,
	recursionStack map[entities.ListID]bool,
	path []entities.ListID,
	cycles *[][]entities.ListID,
) {
	visited[current] = true
	recursionStack[current] = true
	path = append(path, current)

	for _, child := range adjacencyMap[current] {
		if !visited[child] {
			v.dfsDetectCycle(child, adjacencyMap, visited, recursionStack, path, cycles)
		} else if recursionStack[child] {
			for i, list := range path {
				if list == child {
					cycle := make([]entities.ListID, 0, len(path)-i+1)
					cycle = append(cycle, path[i:]...)
					cycle = append(cycle, child) // Close the cycle
					*cycles = append(*cycles, cycle)
					break
				}
			}
		}
	}

	recursionStack[current] = false
}

func unresolvedReferences(
	line *entities.BOMLine,
	componentIDs map[entities.ComponentID]bool,
	listIDs map[entities.ListID]bool,
) []*entities.StructuralError {
	var out []*entities.StructuralError
	if line.ParentListID != 0 && !listIDs[line.ParentListID] {
		out = append(out, &entities.StructuralError{
			LineID: line.ID,
			Field:  "parent_list_id",
			Reason: fmt.Sprintf("references unknown list %d", line.ParentListID),
		})
	}
	if line.ChildComponentID != 0 && !componentIDs[line.ChildComponentID] {
		out = append(out, &entities.StructuralError{
			LineID: line.ID,
			Field:  "child_component_id",
			Reason: fmt.Sprintf("references unknown component %d", line.ChildComponentID),
		})
	}
	if line.ChildListID != 0 && !listIDs[line.ChildListID] {
		out = append(out, &entities.StructuralError{
			LineID: line.ID,
			Field:  "child_list_id",
			Reason: fmt.Sprintf("references unknown list %d", line.ChildListID),
		})
	}
	return out
}

func bomLineStructLevel(sl validator.StructLevel) {
	line := sl.Current().Interface().(entities.BOMLine)

	hasComponent := line.ChildComponentID != 0
	hasList := line.ChildListID != 0
	if hasComponent == hasList {
		sl.ReportError(line.ChildComponentID, "child", "ChildComponentID", "xor", "")
	}
	if hasList && line.ChildListID == line.ParentListID {
		sl.ReportError(line.ChildListID, "child_list_id", "ChildListID", "nefield", "parent_list_id")
	}
	if line.Weighting.Valid && (line.Weighting.Decimal.IsNegative() || line.Weighting.Decimal.GreaterThan(hundred)) {
		sl.ReportError(line.Weighting, "weighting", "Weighting", "weighting", "")
	}
}

func decimalValue(field reflect.Value) interface{} {
	if d, ok := field.Interface().(decimal.Decimal); ok {
		f, _ := d.Float64()
		return f
	}
	return nil
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "xor":
		return "must reference exactly one of a component or a sub-list"
	case "nefield":
		return "a list cannot contain itself"
	case "weighting":
		return "must be within [0,100]"
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

func describe(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		parts = append(parts, fe.Field()+" "+reason(fe))
	}
	return strings.Join(parts, "; ")
}
