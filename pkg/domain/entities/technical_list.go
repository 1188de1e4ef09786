package entities

import (
	"fmt"
	"strings"
)

// Category is the rank of a technical list in the product structure
type Category int

const (
	CategoryUnknown Category = iota
	Series
	System
	Assembly
	Subassembly
	ItemCategory
)

// Categories lists the ranked categories from the outermost to the innermost
var Categories = []Category{Series, System, Assembly, Subassembly, ItemCategory}

// String method for Category enum
func (c Category) String() string {
	switch c {
	case Series:
		return "SERIES"
	case System:
		return "SYSTEM"
	case Assembly:
		return "ASSEMBLY"
	case Subassembly:
		return "SUBASSEMBLY"
	case ItemCategory:
		return "ITEM"
	default:
		return "UNKNOWN"
	}
}

// Rank returns the nesting rank (1 = SERIES ... 5 = ITEM, 0 = unknown)
func (c Category) Rank() int {
	return int(c)
}

// MarshalText renders the category by name
func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// ParseCategory accepts English names and the legacy Portuguese ones
func ParseCategory(s string) (Category, error) {
	switch normalizeToken(s) {
	case "series", "serie":
		return Series, nil
	case "system", "sistema":
		return System, nil
	case "assembly", "conjunto":
		return Assembly, nil
	case "subassembly", "subconjunto":
		return Subassembly, nil
	case "item":
		return ItemCategory, nil
	default:
		return CategoryUnknown, fmt.Errorf("invalid category: %s (expected SERIES, SYSTEM, ASSEMBLY, SUBASSEMBLY or ITEM)", s)
	}
}

// TechnicalList is an assembly node. BOM lines always hang off a list.
type TechnicalList struct {
	ID       ListID   `json:"id" validate:"required"`
	Code     string   `json:"code" validate:"required"`
	Name     string   `json:"name"`
	Category Category `json:"category" validate:"gte=1,lte=5"`
	// ParentID is only used to rebuild display paths; explosion ignores it
	ParentID ListID `json:"parent_id,omitempty"`
}

// NewTechnicalList creates a validated TechnicalList
func NewTechnicalList(id ListID, code, name string, category Category, parentID ListID) (*TechnicalList, error) {
	if id <= 0 {
		return nil, fmt.Errorf("list id must be positive, got %d", id)
	}
	if code == "" {
		return nil, fmt.Errorf("list code cannot be empty")
	}
	if category.Rank() < Series.Rank() || category.Rank() > ItemCategory.Rank() {
		return nil, fmt.Errorf("invalid category for list %s", code)
	}
	if parentID == id {
		return nil, fmt.Errorf("list %s cannot be its own parent", code)
	}

	return &TechnicalList{
		ID:       id,
		Code:     code,
		Name:     name,
		Category: category,
		ParentID: parentID,
	}, nil
}

func normalizeToken(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "é", "e")
	s = strings.ReplaceAll(s, "á", "a")
	return s
}
