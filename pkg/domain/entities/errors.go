package entities

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by repositories for unknown ids
	ErrNotFound = errors.New("not found")
	// ErrStructural marks catalog data that violates a BOM line invariant
	ErrStructural = errors.New("structural error")
	// ErrMissingOrderTarget marks an order whose target list cannot be resolved
	ErrMissingOrderTarget = errors.New("order target list not found")
	// ErrCycleDetected marks a list reached twice within one traversal root
	ErrCycleDetected = errors.New("bom cycle detected")
	// ErrInvalidOrder marks an order that cannot be expanded
	ErrInvalidOrder = errors.New("invalid production order")
)

// StructuralError identifies the BOM line that broke an invariant
type StructuralError struct {
	LineID LineID
	Field  string
	Reason string
}

func (e *StructuralError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("bom line %d: %s", e.LineID, e.Reason)
	}
	return fmt.Sprintf("bom line %d: %s: %s", e.LineID, e.Field, e.Reason)
}

// Is lets errors.Is(err, ErrStructural) match any StructuralError
func (e *StructuralError) Is(target error) bool {
	return target == ErrStructural
}

// OrderError identifies a production order that could not be expanded
type OrderError struct {
	OrderID OrderID
	Reason  string
	Err     error
}

func (e *OrderError) Error() string {
	return fmt.Sprintf("production order %d: %s", e.OrderID, e.Reason)
}

func (e *OrderError) Unwrap() error {
	return e.Err
}
