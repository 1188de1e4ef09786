package entities

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// WeightingPrecision is the number of decimal places kept for weighted quantities
const WeightingPrecision int32 = 4

var (
	// DefaultWeighting is applied when a line carries no explicit weighting
	DefaultWeighting = decimal.NewFromInt(100)
	hundred          = decimal.NewFromInt(100)
)

// BOMLine is one line of a technical list. The child is either a component or a
// sub-list, never both and never neither.
type BOMLine struct {
	ID               LineID              `json:"id"`
	ParentListID     ListID              `json:"parent_list_id" validate:"required"`
	ChildComponentID ComponentID         `json:"child_component_id,omitempty"`
	ChildListID      ListID              `json:"child_list_id,omitempty"`
	Quantity         decimal.Decimal     `json:"quantity" validate:"gt=0"`
	Weighting        decimal.NullDecimal `json:"weighting"`
	Comment          string              `json:"comment,omitempty"`
}

// NewBOMLine creates a validated BOMLine. Pass an invalid NullDecimal for the default weighting.
func NewBOMLine(
	id LineID,
	parentListID ListID,
	childComponentID ComponentID,
	childListID ListID,
	quantity decimal.Decimal,
	weighting decimal.NullDecimal,
	comment string,
) (*BOMLine, error) {
	if parentListID <= 0 {
		return nil, fmt.Errorf("parent list id must be positive, got %d", parentListID)
	}
	if childComponentID == 0 && childListID == 0 {
		return nil, fmt.Errorf("line must reference a component or a sub-list")
	}
	if childComponentID != 0 && childListID != 0 {
		return nil, fmt.Errorf("line cannot reference both a component and a sub-list")
	}
	if childListID == parentListID {
		return nil, fmt.Errorf("list %d cannot contain itself", parentListID)
	}
	if !quantity.IsPositive() {
		return nil, fmt.Errorf("quantity must be positive, got %s", quantity)
	}
	if weighting.Valid && (weighting.Decimal.IsNegative() || weighting.Decimal.GreaterThan(hundred)) {
		return nil, fmt.Errorf("weighting must be within [0,100], got %s", weighting.Decimal)
	}

	return &BOMLine{
		ID:               id,
		ParentListID:     parentListID,
		ChildComponentID: childComponentID,
		ChildListID:      childListID,
		Quantity:         quantity,
		Weighting:        weighting,
		Comment:          comment,
	}, nil
}

// IsComponentLine reports whether the line resolves to a leaf component
func (l *BOMLine) IsComponentLine() bool {
	return l.ChildComponentID != 0 && l.ChildListID == 0
}

// IsSubListLine reports whether the line decomposes into a sub-list
func (l *BOMLine) IsSubListLine() bool {
	return l.ChildListID != 0 && l.ChildComponentID == 0
}

// EffectiveWeighting returns the weighting percentage, defaulting to 100
func (l *BOMLine) EffectiveWeighting() decimal.Decimal {
	if !l.Weighting.Valid {
		return DefaultWeighting
	}
	return l.Weighting.Decimal
}

// WeightedQuantity is quantity x weighting/100, rounded half-up to four places
func (l *BOMLine) WeightedQuantity() decimal.Decimal {
	return l.Quantity.Mul(l.EffectiveWeighting()).Div(hundred).Round(WeightingPrecision)
}

// Weight wraps a percentage for BOMLine.Weighting
func Weight(percent decimal.Decimal) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: percent, Valid: true}
}
