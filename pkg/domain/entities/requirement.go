package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// ContributionRecord describes one path through the BOM that added demand for a component
type ContributionRecord struct {
	OrderID         OrderID         `json:"order_id"`
	OriginListID    ListID          `json:"origin_list_id"`
	OriginListCode  string          `json:"origin_list_code"`
	OriginListName  string          `json:"origin_list_name"`
	OrderQuantity   decimal.Decimal `json:"order_quantity"`
	QuantityPerUnit decimal.Decimal `json:"quantity_per_unit"`
	ContributedQty  decimal.Decimal `json:"contributed_quantity"`
	LineID          LineID          `json:"line_id"`
	Depth           int             `json:"depth"`
	ListCode        string          `json:"list_code"`
}

// RequirementRecord aggregates demand for one component across the whole run
type RequirementRecord struct {
	ComponentID    ComponentID          `json:"component_id"`
	Code           string               `json:"code"`
	Name           string               `json:"name"`
	UnitOfMeasure  string               `json:"unit_of_measure,omitempty"`
	Kind           ComponentKind        `json:"kind"`
	Gross          decimal.Decimal      `json:"gross"`
	Stock          decimal.Decimal      `json:"stock"`
	Shortage       decimal.Decimal      `json:"shortage"`
	LeadTimeDays   int                  `json:"lead_time_days"`
	PurchaseDate   time.Time            `json:"purchase_date"`
	DueDate        time.Time            `json:"due_date"`
	Depth          int                  `json:"depth"`
	ParentListCode string               `json:"parent_list_code,omitempty"`
	ListCode       string               `json:"list_code"`
	Contributions  []ContributionRecord `json:"contributions"`
}

// NewRequirementRecord starts a record from the component snapshot at first encounter
func NewRequirementRecord(component *Component, depth int, parentListCode, listCode string) *RequirementRecord {
	return &RequirementRecord{
		ComponentID:    component.ID,
		Code:           component.Code,
		Name:           component.Name,
		UnitOfMeasure:  component.UnitOfMeasure,
		Kind:           component.Kind,
		Gross:          decimal.Zero,
		Stock:          component.StockQuantity,
		Shortage:       decimal.Zero,
		LeadTimeDays:   component.LeadTimeDays,
		Depth:          depth,
		ParentListCode: parentListCode,
		ListCode:       listCode,
	}
}

// Add accumulates a contribution and recomputes the shortage
func (r *RequirementRecord) Add(c ContributionRecord) {
	r.Gross = r.Gross.Add(c.ContributedQty)
	r.Shortage = NetShortage(r.Gross, r.Stock)
	r.Contributions = append(r.Contributions, c)
}

// ContributingOrders returns the distinct order ids in first-contribution order
func (r *RequirementRecord) ContributingOrders() []OrderID {
	seen := make(map[OrderID]bool, len(r.Contributions))
	var ids []OrderID
	for _, c := range r.Contributions {
		if !seen[c.OrderID] {
			seen[c.OrderID] = true
			ids = append(ids, c.OrderID)
		}
	}
	return ids
}

// NetShortage is max(0, gross - stock)
func NetShortage(gross, stock decimal.Decimal) decimal.Decimal {
	return decimal.Max(decimal.Zero, gross.Sub(stock))
}
