package entities

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestProductionOrder_Validation(t *testing.T) {
	due := time.Date(2025, 3, 10, 15, 30, 0, 0, time.UTC)

	order, err := NewProductionOrder(1, 10, decimal.NewFromInt(2), due)
	if err != nil {
		t.Fatalf("Expected valid order creation to succeed: %v", err)
	}
	if !order.DueDate.Equal(time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Expected due date truncated to the day, got %v", order.DueDate)
	}

	testCases := []struct {
		name        string
		id          OrderID
		target      ListID
		quantity    decimal.Decimal
		due         time.Time
		expectError string
	}{
		{"zero id", 0, 10, decimal.NewFromInt(1), due, "order id must be positive, got 0"},
		{"missing target", 1, 0, decimal.NewFromInt(1), due, "target list id must be positive, got 0"},
		{"zero quantity", 1, 10, decimal.Zero, due, "quantity must be positive, got 0"},
		{"empty due date", 1, 10, decimal.NewFromInt(1), time.Time{}, "due date cannot be empty"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewProductionOrder(tc.id, tc.target, tc.quantity, tc.due)
			if err == nil {
				t.Fatalf("Expected error for %s, but got none", tc.name)
			}
			if err.Error() != tc.expectError {
				t.Errorf("Expected error '%s', got '%s'", tc.expectError, err.Error())
			}
		})
	}
}

func TestTechnicalList_Validation(t *testing.T) {
	if _, err := NewTechnicalList(1, "L1", "Frame", Assembly, 0); err != nil {
		t.Fatalf("Expected valid list creation to succeed: %v", err)
	}

	testCases := []struct {
		name        string
		id          ListID
		code        string
		category    Category
		parent      ListID
		expectError string
	}{
		{"zero id", 0, "L1", Assembly, 0, "list id must be positive, got 0"},
		{"empty code", 1, "", Assembly, 0, "list code cannot be empty"},
		{"unknown category", 1, "L1", CategoryUnknown, 0, "invalid category for list L1"},
		{"own parent", 1, "L1", Assembly, 1, "list L1 cannot be its own parent"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewTechnicalList(tc.id, tc.code, "", tc.category, tc.parent)
			if err == nil {
				t.Fatalf("Expected error for %s, but got none", tc.name)
			}
			if err.Error() != tc.expectError {
				t.Errorf("Expected error '%s', got '%s'", tc.expectError, err.Error())
			}
		})
	}
}

func TestParseCategory(t *testing.T) {
	cases := map[string]Category{
		"SERIES":      Series,
		"Sistema":     System,
		"conjunto":    Assembly,
		"SUBCONJUNTO": Subassembly,
		"item":        ItemCategory,
		"Série":       Series,
	}
	for input, expected := range cases {
		got, err := ParseCategory(input)
		if err != nil {
			t.Errorf("ParseCategory(%q) failed: %v", input, err)
			continue
		}
		if got != expected {
			t.Errorf("ParseCategory(%q) = %s, expected %s", input, got, expected)
		}
	}

	if _, err := ParseCategory("galaxy"); err == nil {
		t.Error("Expected error for unknown category")
	}
}

func TestComponent_Validation(t *testing.T) {
	testCases := []struct {
		name        string
		code        string
		stock       decimal.Decimal
		leadTime    int
		expectError string
	}{
		{"empty code", "", decimal.Zero, 1, "component code cannot be empty"},
		{"negative stock", "C1", decimal.NewFromInt(-1), 1, "stock quantity cannot be negative, got -1"},
		{"negative lead time", "C1", decimal.Zero, -3, "lead time cannot be negative, got -3"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewComponent(1, tc.code, "", "EA", tc.stock, tc.leadTime, ManufacturedComponent)
			if err == nil {
				t.Fatalf("Expected error for %s, but got none", tc.name)
			}
			if err.Error() != tc.expectError {
				t.Errorf("Expected error '%s', got '%s'", tc.expectError, err.Error())
			}
		})
	}
}

func TestStructuralError_Is(t *testing.T) {
	var err error = &StructuralError{LineID: 7, Field: "Quantity", Reason: "must be positive"}
	if !errors.Is(err, ErrStructural) {
		t.Error("Expected StructuralError to match ErrStructural")
	}
	if err.Error() != "bom line 7: Quantity: must be positive" {
		t.Errorf("Unexpected message: %s", err.Error())
	}

	orderErr := &OrderError{OrderID: 3, Reason: "target list 9 not found", Err: ErrMissingOrderTarget}
	if !errors.Is(orderErr, ErrMissingOrderTarget) {
		t.Error("Expected OrderError to unwrap to ErrMissingOrderTarget")
	}
}
