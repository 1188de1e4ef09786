package mrp

import (
	"context"

	"github.com/google/uuid"

	"github.com/vsinha/mrpbom/pkg/application/dto"
	"github.com/vsinha/mrpbom/pkg/domain/entities"
	"github.com/vsinha/mrpbom/pkg/domain/repositories"
	"github.com/vsinha/mrpbom/pkg/infrastructure/events"
)

// EventDrivenMRPService runs the engine and publishes the run's diagnostics
// and shortages to an event store
type EventDrivenMRPService struct {
	mrpService *MRPService
	eventStore events.EventStore
}

func NewEventDrivenMRPService(eventStore events.EventStore, opts ...Option) *EventDrivenMRPService {
	return &EventDrivenMRPService{
		mrpService: NewMRPService(opts...),
		eventStore: eventStore,
	}
}

func (s *EventDrivenMRPService) Run(
	ctx context.Context,
	catalog repositories.CatalogReader,
	orders []*entities.ProductionOrder,
) (*dto.MRPResult, error) {
	runID := uuid.NewString()
	s.publish(events.RunStarted{RunID: runID, Orders: len(orders)})

	result, err := s.mrpService.RunWithID(ctx, runID, catalog, orders)
	if err != nil {
		return nil, err
	}

	s.publishMRPResultEvents(result)

	return result, nil
}

// RunCached is MRPService.RunCached; events are only published for fresh runs
func (s *EventDrivenMRPService) RunCached(
	ctx context.Context,
	cache ResultCache,
	catalog repositories.CatalogReader,
	orders []*entities.ProductionOrder,
) (*dto.MRPResult, bool, error) {
	result, hit, err := s.mrpService.RunCached(ctx, cache, catalog, orders)
	if err != nil || hit {
		return result, hit, err
	}
	s.publish(events.RunStarted{RunID: result.RunID, Orders: len(orders)})
	s.publishMRPResultEvents(result)
	return result, false, nil
}

// Publish appends an event that did not come from a run, such as a stock upload
func (s *EventDrivenMRPService) Publish(data events.Payload) {
	s.publish(data)
}

func (s *EventDrivenMRPService) publishMRPResultEvents(result *dto.MRPResult) {
	for _, d := range result.Diagnostics {
		switch d.Kind {
		case dto.OrderSkipped:
			s.publish(events.OrderSkipped{RunID: result.RunID, OrderID: d.OrderID, Reason: d.Message})
		case dto.LineSkipped:
			s.publish(events.LineSkipped{RunID: result.RunID, LineID: d.LineID, Reason: d.Message})
		default:
			s.publish(events.BranchPruned{
				RunID:    result.RunID,
				Kind:     string(d.Kind),
				OrderID:  d.OrderID,
				ListID:   d.ListID,
				ListCode: d.ListCode,
				Depth:    d.Depth,
			})
		}
	}

	for _, rec := range result.Shortages() {
		s.publish(events.NewShortageFound(result.RunID, rec))
	}

	s.publish(events.RunCompleted{
		RunID:          result.RunID,
		Records:        len(result.Records),
		OrdersExpanded: result.Stats.OrdersExpanded,
		OrdersSkipped:  result.Stats.OrdersSkipped,
		BranchesPruned: result.Stats.BranchesPruned(),
	})
}

func (s *EventDrivenMRPService) publish(data events.Payload) {
	if _, err := s.eventStore.AppendEvent(data); err != nil {
		s.mrpService.logger.Warn().Err(err).Str("event", data.EventType()).Msg("failed to publish event")
	}
}
