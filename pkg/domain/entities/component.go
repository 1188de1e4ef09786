package entities

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ComponentID identifies a leaf component in the catalog
type ComponentID int64

// ListID identifies a technical list (assembly node) in the catalog
type ListID int64

// LineID identifies a BOM line
type LineID int64

// OrderID identifies a production order
type OrderID int64

// ComponentKind distinguishes manufactured components from raw materials
type ComponentKind int

const (
	ManufacturedComponent ComponentKind = iota
	RawMaterial
)

// String method for ComponentKind enum
func (k ComponentKind) String() string {
	switch k {
	case ManufacturedComponent:
		return "manufactured_component"
	case RawMaterial:
		return "raw_material"
	default:
		return "unknown"
	}
}

// ParseComponentKind accepts the canonical names plus a few spreadsheet spellings
func ParseComponentKind(s string) (ComponentKind, error) {
	switch normalizeToken(s) {
	case "manufactured_component", "component", "componente", "":
		return ManufacturedComponent, nil
	case "raw_material", "raw", "materia_prima":
		return RawMaterial, nil
	default:
		return ManufacturedComponent, fmt.Errorf("invalid component kind: %s (expected manufactured_component or raw_material)", s)
	}
}

// MarshalText renders the kind by name in JSON and config files
func (k ComponentKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses a kind written by MarshalText
func (k *ComponentKind) UnmarshalText(text []byte) error {
	parsed, err := ParseComponentKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Component is a leaf of the BOM graph. Owned by the catalog and immutable during a run.
type Component struct {
	ID            ComponentID     `json:"id" validate:"required"`
	Code          string          `json:"code" validate:"required"`
	Name          string          `json:"name"`
	UnitOfMeasure string          `json:"unit_of_measure"`
	StockQuantity decimal.Decimal `json:"stock_quantity" validate:"gte=0"`
	LeadTimeDays  int             `json:"lead_time_days" validate:"gte=0"`
	Kind          ComponentKind   `json:"kind"`
}

// NewComponent creates a validated Component
func NewComponent(
	id ComponentID,
	code, name, unitOfMeasure string,
	stock decimal.Decimal,
	leadTimeDays int,
	kind ComponentKind,
) (*Component, error) {
	if id <= 0 {
		return nil, fmt.Errorf("component id must be positive, got %d", id)
	}
	if code == "" {
		return nil, fmt.Errorf("component code cannot be empty")
	}
	if stock.IsNegative() {
		return nil, fmt.Errorf("stock quantity cannot be negative, got %s", stock)
	}
	if leadTimeDays < 0 {
		return nil, fmt.Errorf("lead time cannot be negative, got %d", leadTimeDays)
	}

	return &Component{
		ID:            id,
		Code:          code,
		Name:          name,
		UnitOfMeasure: unitOfMeasure,
		StockQuantity: stock,
		LeadTimeDays:  leadTimeDays,
		Kind:          kind,
	}, nil
}
