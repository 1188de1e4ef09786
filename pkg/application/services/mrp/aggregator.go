package mrp

import (
	"github.com/shopspring/decimal"

	"github.com/vsinha/mrpbom/pkg/domain/entities"
)

// Aggregator accumulates one RequirementRecord per component for a run.
// It is not safe for concurrent use; callers serialize Record calls.
type Aggregator struct {
	records map[entities.ComponentID]*entities.RequirementRecord
	order   []entities.ComponentID
}

// NewAggregator creates an empty aggregator
func NewAggregator() *Aggregator {
	return &Aggregator{
		records: make(map[entities.ComponentID]*entities.RequirementRecord),
	}
}

// Record adds quantity of component reached through line. The stock snapshot,
// depth and parent codes are captured on first encounter only.
func (a *Aggregator) Record(
	component *entities.Component,
	line *entities.BOMLine,
	quantity decimal.Decimal,
	node NodeContext,
) {
	record, exists := a.records[component.ID]
	if !exists {
		record = entities.NewRequirementRecord(component, node.Depth, node.ParentListCode, listCode(node.List))
		a.records[component.ID] = record
		a.order = append(a.order, component.ID)
	}

	contribution := entities.ContributionRecord{
		QuantityPerUnit: node.PerUnit,
		ContributedQty:  quantity,
		Depth:           node.Depth,
		ListCode:        listCode(node.List),
	}
	if line != nil {
		contribution.LineID = line.ID
	}
	if node.Order != nil {
		contribution.OrderID = node.Order.ID
		contribution.OrderQuantity = node.Order.Quantity
	}
	if node.Root != nil {
		contribution.OriginListID = node.Root.ID
		contribution.OriginListCode = node.Root.Code
		contribution.OriginListName = node.Root.Name
	}

	record.Add(contribution)
}

// Get returns the record for a component, or nil
func (a *Aggregator) Get(id entities.ComponentID) *entities.RequirementRecord {
	return a.records[id]
}

// Len returns the number of distinct components recorded
func (a *Aggregator) Len() int {
	return len(a.order)
}

// Records returns the records in first-encounter order
func (a *Aggregator) Records() []*entities.RequirementRecord {
	out := make([]*entities.RequirementRecord, 0, len(a.order))
	for _, id := range a.order {
		out = append(out, a.records[id])
	}
	return out
}

func listCode(l *entities.TechnicalList) string {
	if l == nil {
		return ""
	}
	return l.Code
}
