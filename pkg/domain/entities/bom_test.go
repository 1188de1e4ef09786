package entities

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestBOMLine_Validation(t *testing.T) {
	validLine, err := NewBOMLine(1, 10, 100, 0, decimal.NewFromInt(3), decimal.NullDecimal{}, "")
	if err != nil {
		t.Fatalf("Expected valid BOM line creation to succeed: %v", err)
	}
	if !validLine.Quantity.Equal(decimal.NewFromInt(3)) {
		t.Errorf("Expected quantity 3, got %s", validLine.Quantity)
	}
	if !validLine.IsComponentLine() || validLine.IsSubListLine() {
		t.Errorf("Expected a component line")
	}

	testCases := []struct {
		name        string
		parent      ListID
		component   ComponentID
		subList     ListID
		quantity    decimal.Decimal
		weighting   decimal.NullDecimal
		expectError string
	}{
		{"empty parent", 0, 100, 0, decimal.NewFromInt(1), decimal.NullDecimal{}, "parent list id must be positive, got 0"},
		{"no child", 10, 0, 0, decimal.NewFromInt(1), decimal.NullDecimal{}, "line must reference a component or a sub-list"},
		{"both children", 10, 100, 11, decimal.NewFromInt(1), decimal.NullDecimal{}, "line cannot reference both a component and a sub-list"},
		{"self reference", 10, 0, 10, decimal.NewFromInt(1), decimal.NullDecimal{}, "list 10 cannot contain itself"},
		{"zero quantity", 10, 100, 0, decimal.Zero, decimal.NullDecimal{}, "quantity must be positive, got 0"},
		{"negative quantity", 10, 100, 0, decimal.NewFromInt(-2), decimal.NullDecimal{}, "quantity must be positive, got -2"},
		{"weighting above range", 10, 100, 0, decimal.NewFromInt(1), Weight(decimal.NewFromInt(101)), "weighting must be within [0,100], got 101"},
		{"negative weighting", 10, 100, 0, decimal.NewFromInt(1), Weight(decimal.NewFromInt(-1)), "weighting must be within [0,100], got -1"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewBOMLine(1, tc.parent, tc.component, tc.subList, tc.quantity, tc.weighting, "")
			if err == nil {
				t.Fatalf("Expected error for %s, but got none", tc.name)
			}
			if err.Error() != tc.expectError {
				t.Errorf("Expected error '%s', got '%s'", tc.expectError, err.Error())
			}
		})
	}
}

func TestBOMLine_WeightedQuantity(t *testing.T) {
	testCases := []struct {
		name      string
		quantity  string
		weighting decimal.NullDecimal
		expected  string
	}{
		{"default weighting is identity", "4", decimal.NullDecimal{}, "4"},
		{"explicit 100 is identity", "2.5", Weight(decimal.NewFromInt(100)), "2.5"},
		{"half weighting", "4", Weight(decimal.NewFromInt(50)), "2"},
		{"zero weighting", "4", Weight(decimal.Zero), "0"},
		{"rounds half up to four places", "1", Weight(decimal.RequireFromString("33.33335")), "0.3333"},
		{"rounds up at the fifth place", "0.00005", Weight(decimal.NewFromInt(100)), "0.0001"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			line, err := NewBOMLine(1, 10, 100, 0, decimal.RequireFromString(tc.quantity), tc.weighting, "")
			if err != nil {
				t.Fatalf("Failed to create line: %v", err)
			}
			got := line.WeightedQuantity()
			if !got.Equal(decimal.RequireFromString(tc.expected)) {
				t.Errorf("Expected weighted quantity %s, got %s", tc.expected, got)
			}
		})
	}
}

func TestRequirementRecord_ShortageNeverNegative(t *testing.T) {
	component, err := NewComponent(1, "C1", "Bolt", "EA", decimal.NewFromInt(50), 3, RawMaterial)
	if err != nil {
		t.Fatalf("Failed to create component: %v", err)
	}

	record := NewRequirementRecord(component, 0, "", "L1")
	record.Add(ContributionRecord{OrderID: 1, ContributedQty: decimal.NewFromInt(10)})
	if !record.Shortage.IsZero() {
		t.Errorf("Expected zero shortage while stock covers demand, got %s", record.Shortage)
	}

	record.Add(ContributionRecord{OrderID: 2, ContributedQty: decimal.NewFromInt(45)})
	if !record.Gross.Equal(decimal.NewFromInt(55)) {
		t.Errorf("Expected gross 55, got %s", record.Gross)
	}
	if !record.Shortage.Equal(decimal.NewFromInt(5)) {
		t.Errorf("Expected shortage 5, got %s", record.Shortage)
	}

	orders := record.ContributingOrders()
	if len(orders) != 2 || orders[0] != 1 || orders[1] != 2 {
		t.Errorf("Expected contributing orders [1 2], got %v", orders)
	}
}
