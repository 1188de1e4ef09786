package mrp

import (
	"context"
	"fmt"
	"strings"

	"github.com/vsinha/mrpbom/pkg/application/dto"
	"github.com/vsinha/mrpbom/pkg/domain/entities"
)

// componentHit is one component line reached while expanding an order
type componentHit struct {
	node      NodeContext
	component *entities.Component
}

// OrderTrace implements BOMVisitor by recording one order's expansion. Traces
// are private to an order so several orders can be walked concurrently and
// merged into the aggregator afterwards.
type OrderTrace struct {
	order       *entities.ProductionOrder
	hits        []componentHit
	diagnostics []dto.Diagnostic
	stats       dto.RunStats
}

// NewOrderTrace creates an empty trace for order
func NewOrderTrace(order *entities.ProductionOrder) *OrderTrace {
	return &OrderTrace{order: order}
}

// VisitComponent records the component hit
func (t *OrderTrace) VisitComponent(ctx context.Context, node NodeContext, component *entities.Component) error {
	t.stats.LinesVisited++
	t.hits = append(t.hits, componentHit{node: node, component: component})
	return nil
}

// VisitSubList only counts the line; the walker does the descent
func (t *OrderTrace) VisitSubList(ctx context.Context, node NodeContext, child *entities.TechnicalList) error {
	t.stats.LinesVisited++
	return nil
}

// Prune records a diagnostic for the refused sub-list
func (t *OrderTrace) Prune(
	ctx context.Context,
	node NodeContext,
	child *entities.TechnicalList,
	kind dto.DiagnosticKind,
) error {
	t.stats.LinesVisited++
	switch kind {
	case dto.CycleDetected:
		t.stats.CyclesPruned++
	case dto.RevisitPruned:
		t.stats.RevisitsPruned++
	case dto.DepthExceeded:
		t.stats.DepthPruned++
	}

	path := append(append([]string(nil), node.Path...), child.Code)
	t.diagnostics = append(t.diagnostics, dto.Diagnostic{
		Kind:     kind,
		OrderID:  t.order.ID,
		ListID:   child.ID,
		ListCode: child.Code,
		LineID:   node.Line.ID,
		Depth:    node.Depth + 1,
		Path:     path,
		Message:  pruneMessage(kind, child, path),
	})
	return nil
}

// MergeInto replays the trace into the aggregator in visit order
func (t *OrderTrace) MergeInto(a *Aggregator) {
	for _, hit := range t.hits {
		a.Record(hit.component, hit.node.Line, hit.node.Quantity, hit.node)
	}
}

func pruneMessage(kind dto.DiagnosticKind, child *entities.TechnicalList, path []string) string {
	trail := strings.Join(path, " > ")
	switch kind {
	case dto.CycleDetected:
		return fmt.Sprintf("cycle detected at list %s: %s", child.Code, trail)
	case dto.RevisitPruned:
		return fmt.Sprintf("list %s already expanded for this order: %s", child.Code, trail)
	case dto.DepthExceeded:
		return fmt.Sprintf("list %s exceeds the maximum depth: %s", child.Code, trail)
	default:
		return trail
	}
}
