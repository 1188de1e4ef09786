package entities

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ProductionOrder demands a quantity of a top-level technical list by a due date
type ProductionOrder struct {
	ID           OrderID         `json:"id" validate:"required"`
	TargetListID ListID          `json:"target_list_id" validate:"required"`
	Quantity     decimal.Decimal `json:"quantity" validate:"gt=0"`
	DueDate      time.Time       `json:"due_date" validate:"required"`
}

// NewProductionOrder creates a validated ProductionOrder
func NewProductionOrder(id OrderID, targetListID ListID, quantity decimal.Decimal, dueDate time.Time) (*ProductionOrder, error) {
	if id <= 0 {
		return nil, fmt.Errorf("order id must be positive, got %d", id)
	}
	if targetListID <= 0 {
		return nil, fmt.Errorf("target list id must be positive, got %d", targetListID)
	}
	if !quantity.IsPositive() {
		return nil, fmt.Errorf("quantity must be positive, got %s", quantity)
	}
	if dueDate.IsZero() {
		return nil, fmt.Errorf("due date cannot be empty")
	}

	return &ProductionOrder{
		ID:           id,
		TargetListID: targetListID,
		Quantity:     quantity,
		DueDate:      TruncateToDay(dueDate),
	}, nil
}

// TruncateToDay drops the clock part of a date, keeping its location
func TruncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
