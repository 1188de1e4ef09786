package dto

import (
	"time"

	"github.com/vsinha/mrpbom/pkg/domain/entities"
)

// DiagnosticKind classifies a non-fatal event recorded during a run
type DiagnosticKind string

const (
	// CycleDetected: a sub-list already on the current ancestor path was pruned
	CycleDetected DiagnosticKind = "cycle_detected"
	// RevisitPruned: a sub-list already expanded for the same order was pruned
	RevisitPruned DiagnosticKind = "revisit_pruned"
	// DepthExceeded: a sub-list beyond the configured maximum depth was pruned
	DepthExceeded DiagnosticKind = "depth_exceeded"
	// OrderSkipped: an order was left out of the run
	OrderSkipped DiagnosticKind = "order_skipped"
	// LineSkipped: an invalid BOM line was dropped in lenient mode
	LineSkipped DiagnosticKind = "line_skipped"
	// DanglingReference: a line points at a component or list that no longer exists
	DanglingReference DiagnosticKind = "dangling_reference"
)

// Diagnostic describes one pruned branch, skipped order or skipped line
type Diagnostic struct {
	Kind     DiagnosticKind   `json:"kind"`
	OrderID  entities.OrderID `json:"order_id,omitempty"`
	ListID   entities.ListID  `json:"list_id,omitempty"`
	ListCode string           `json:"list_code,omitempty"`
	LineID   entities.LineID  `json:"line_id,omitempty"`
	Depth    int              `json:"depth"`
	Path     []string         `json:"path,omitempty"`
	Message  string           `json:"message"`
}

// RunStats counts what happened during a run
type RunStats struct {
	OrdersTotal    int `json:"orders_total"`
	OrdersExpanded int `json:"orders_expanded"`
	OrdersSkipped  int `json:"orders_skipped"`
	LinesVisited   int `json:"lines_visited"`
	LinesSkipped   int `json:"lines_skipped"`
	CyclesPruned   int `json:"cycles_pruned"`
	RevisitsPruned int `json:"revisits_pruned"`
	DepthPruned    int `json:"depth_pruned"`
}

// BranchesPruned is the total of every pruned sub-list
func (s RunStats) BranchesPruned() int {
	return s.CyclesPruned + s.RevisitsPruned + s.DepthPruned
}

// MRPResult contains the complete output of an MRP run
type MRPResult struct {
	RunID        string                        `json:"run_id"`
	ComputedAt   time.Time                     `json:"computed_at"`
	ReferenceDay time.Time                     `json:"reference_date"`
	Records      []*entities.RequirementRecord `json:"records"`
	Diagnostics  []Diagnostic                  `json:"diagnostics"`
	Stats        RunStats                      `json:"stats"`
	CyclePaths   [][]entities.ListID           `json:"cycle_paths,omitempty"`
}

// Get returns the record for a component, or nil
func (r *MRPResult) Get(id entities.ComponentID) *entities.RequirementRecord {
	for _, rec := range r.Records {
		if rec.ComponentID == id {
			return rec
		}
	}
	return nil
}

// Shortages returns the records with a positive shortage, in output order
func (r *MRPResult) Shortages() []*entities.RequirementRecord {
	var out []*entities.RequirementRecord
	for _, rec := range r.Records {
		if rec.Shortage.IsPositive() {
			out = append(out, rec)
		}
	}
	return out
}

// DiagnosticsOf filters diagnostics by kind
func (r *MRPResult) DiagnosticsOf(kind DiagnosticKind) []Diagnostic {
	var out []Diagnostic
	for _, d := range r.Diagnostics {
		if d.Kind == kind {
			out = append(out, d)
		}
	}
	return out
}
