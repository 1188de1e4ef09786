package events

import (
	"github.com/shopspring/decimal"

	"github.com/vsinha/mrpbom/pkg/domain/entities"
)

const (
	RunStartedEvent   = "mrp.run.started"
	RunCompletedEvent = "mrp.run.completed"

	OrderSkippedEvent       = "mrp.order.skipped"
	LineSkippedEvent        = "mrp.line.skipped"
	BranchPrunedEvent       = "mrp.branch.pruned"
	ShortageIdentifiedEvent = "mrp.shortage.identified"

	StockAppliedEvent = "catalog.stock.applied"
)

type RunStarted struct {
	RunID  string `json:"run_id"`
	Orders int    `json:"orders"`
}

type RunCompleted struct {
	RunID          string `json:"run_id"`
	Records        int    `json:"records"`
	OrdersExpanded int    `json:"orders_expanded"`
	OrdersSkipped  int    `json:"orders_skipped"`
	BranchesPruned int    `json:"branches_pruned"`
}

type OrderSkipped struct {
	RunID   string           `json:"run_id"`
	OrderID entities.OrderID `json:"order_id"`
	Reason  string           `json:"reason"`
}

type LineSkipped struct {
	RunID  string          `json:"run_id"`
	LineID entities.LineID `json:"line_id"`
	Reason string          `json:"reason"`
}

type BranchPruned struct {
	RunID    string           `json:"run_id"`
	Kind     string           `json:"kind"`
	OrderID  entities.OrderID `json:"order_id"`
	ListID   entities.ListID  `json:"list_id"`
	ListCode string           `json:"list_code"`
	Depth    int              `json:"depth"`
}

type ShortageFound struct {
	RunID       string               `json:"run_id"`
	ComponentID entities.ComponentID `json:"component_id"`
	Code        string               `json:"code"`
	Shortage    decimal.Decimal      `json:"shortage"`
}

type StockApplied struct {
	Update entities.StockUpdate `json:"update"`
}

// CatalogStream holds catalog changes such as stock uploads
const CatalogStream = "catalog"

// RunStream names the stream holding one run's events
func RunStream(runID string) string {
	return "run-" + runID
}

func (RunStarted) EventType() string     { return RunStartedEvent }
func (e RunStarted) StreamID() string    { return RunStream(e.RunID) }
func (RunCompleted) EventType() string   { return RunCompletedEvent }
func (e RunCompleted) StreamID() string  { return RunStream(e.RunID) }
func (OrderSkipped) EventType() string   { return OrderSkippedEvent }
func (e OrderSkipped) StreamID() string  { return RunStream(e.RunID) }
func (LineSkipped) EventType() string    { return LineSkippedEvent }
func (e LineSkipped) StreamID() string   { return RunStream(e.RunID) }
func (BranchPruned) EventType() string   { return BranchPrunedEvent }
func (e BranchPruned) StreamID() string  { return RunStream(e.RunID) }
func (ShortageFound) EventType() string  { return ShortageIdentifiedEvent }
func (e ShortageFound) StreamID() string { return RunStream(e.RunID) }
func (StockApplied) EventType() string   { return StockAppliedEvent }
func (StockApplied) StreamID() string    { return CatalogStream }

// NewShortageFound copies the shortage of record for runID
func NewShortageFound(runID string, record *entities.RequirementRecord) ShortageFound {
	return ShortageFound{
		RunID:       runID,
		ComponentID: record.ComponentID,
		Code:        record.Code,
		Shortage:    record.Shortage,
	}
}
