package mrp

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/vsinha/mrpbom/pkg/application/dto"
	"github.com/vsinha/mrpbom/pkg/domain/entities"
	"github.com/vsinha/mrpbom/pkg/domain/repositories"
	"github.com/vsinha/mrpbom/pkg/domain/services"
	"github.com/vsinha/mrpbom/pkg/logger"
)

const instrumentationName = "github.com/vsinha/mrpbom/mrp"

// MRPService explodes production orders through the BOM into net requirements
type MRPService struct {
	config    EngineConfig
	logger    zerolog.Logger
	validator *services.BOMValidator
	tracer    trace.Tracer

	branchesPruned metric.Int64Counter
	ordersSkipped  metric.Int64Counter
}

// Option configures an MRPService
type Option func(*MRPService)

// WithConfig replaces the engine configuration. Zero fields take their defaults.
func WithConfig(config EngineConfig) Option {
	return func(s *MRPService) {
		s.config = config.withDefaults()
	}
}

// WithLogger sets the logger used for run and diagnostic messages
func WithLogger(l zerolog.Logger) Option {
	return func(s *MRPService) {
		s.logger = l
	}
}

// WithTracer sets the tracer used for the run span
func WithTracer(t trace.Tracer) Option {
	return func(s *MRPService) {
		s.tracer = t
	}
}

// WithMeter sets the meter the pruning and skip counters are created on
func WithMeter(m metric.Meter) Option {
	return func(s *MRPService) {
		s.initCounters(m)
	}
}

// NewMRPService creates a new MRP service with default configuration
func NewMRPService(opts ...Option) *MRPService {
	s := &MRPService{
		config:    DefaultEngineConfig(),
		logger:    logger.Component("mrp"),
		validator: services.NewBOMValidator(),
		tracer:    otel.Tracer(instrumentationName),
	}
	s.initCounters(otel.Meter(instrumentationName))
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config returns the effective engine configuration
func (s *MRPService) Config() EngineConfig {
	return s.config
}

func (s *MRPService) initCounters(m metric.Meter) {
	fallback := noop.NewMeterProvider().Meter(instrumentationName)

	pruned, err := m.Int64Counter("mrp.branches.pruned",
		metric.WithDescription("Sub-lists the walker refused to enter"))
	if err != nil {
		pruned, _ = fallback.Int64Counter("mrp.branches.pruned")
	}
	skipped, err := m.Int64Counter("mrp.orders.skipped",
		metric.WithDescription("Production orders left out of a run"))
	if err != nil {
		skipped, _ = fallback.Int64Counter("mrp.orders.skipped")
	}
	s.branchesPruned = pruned
	s.ordersSkipped = skipped
}

// Run explodes orders against a snapshot of the catalog. The catalog is
// validated first; in strict mode any structural error aborts the run.
func (s *MRPService) Run(
	ctx context.Context,
	catalog repositories.CatalogReader,
	orders []*entities.ProductionOrder,
) (*dto.MRPResult, error) {
	return s.RunWithID(ctx, uuid.NewString(), catalog, orders)
}

// RunWithID is Run with a caller supplied run identifier
func (s *MRPService) RunWithID(
	ctx context.Context,
	runID string,
	catalog repositories.CatalogReader,
	orders []*entities.ProductionOrder,
) (*dto.MRPResult, error) {
	if err := s.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}

	ctx, span := s.tracer.Start(ctx, "mrp.Run", trace.WithAttributes(
		attribute.String("mrp.run_id", runID),
		attribute.Int("mrp.orders", len(orders)),
		attribute.String("mrp.quantity_policy", string(s.config.QuantityPolicy)),
		attribute.String("mrp.cycle_guard", string(s.config.CycleGuard)),
	))
	defer span.End()

	log := s.logger.With().Str("run_id", runID).Logger()
	log.Info().
		Int("orders", len(orders)).
		Str("quantity_policy", string(s.config.QuantityPolicy)).
		Str("date_policy", string(s.config.DatePolicy)).
		Str("strictness", string(s.config.Strictness)).
		Msg("mrp run started")

	result := &dto.MRPResult{
		RunID:       runID,
		ComputedAt:  s.config.Clock(),
		Records:     make([]*entities.RequirementRecord, 0),
		Diagnostics: make([]dto.Diagnostic, 0),
	}
	result.Stats.OrdersTotal = len(orders)

	fail := func(err error) (*dto.MRPResult, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error().Err(err).Msg("mrp run failed")
		return nil, err
	}

	view, err := s.prepareCatalog(catalog, result, log)
	if err != nil {
		return fail(err)
	}

	jobs, err := s.resolveOrders(ctx, view, orders, result, log)
	if err != nil {
		return fail(err)
	}

	traces, err := s.expandOrders(ctx, view, jobs)
	if err != nil {
		return fail(err)
	}

	aggregator := NewAggregator()
	for _, tr := range traces {
		tr.MergeInto(aggregator)
		s.absorb(ctx, tr, result, log)
	}

	result.Records = aggregator.Records()
	result.ReferenceDay = ResolveDates(result.Records, orders, s.config.DatePolicy, s.config.Clock)

	span.SetAttributes(
		attribute.Int("mrp.records", len(result.Records)),
		attribute.Int("mrp.orders_skipped", result.Stats.OrdersSkipped),
		attribute.Int("mrp.branches_pruned", result.Stats.BranchesPruned()),
	)
	log.Info().
		Int("records", len(result.Records)).
		Int("orders_expanded", result.Stats.OrdersExpanded).
		Int("orders_skipped", result.Stats.OrdersSkipped).
		Int("branches_pruned", result.Stats.BranchesPruned()).
		Msg("mrp run completed")

	return result, nil
}

// prepareCatalog validates the snapshot and, in lenient mode, hides invalid lines
func (s *MRPService) prepareCatalog(
	catalog repositories.CatalogReader,
	result *dto.MRPResult,
	log zerolog.Logger,
) (repositories.CatalogReader, error) {
	components, err := catalog.GetAllComponents()
	if err != nil {
		return nil, fmt.Errorf("failed to load components: %w", err)
	}
	lists, err := catalog.GetAllLists()
	if err != nil {
		return nil, fmt.Errorf("failed to load lists: %w", err)
	}
	lines, err := catalog.GetAllBOMLines()
	if err != nil {
		return nil, fmt.Errorf("failed to load bom lines: %w", err)
	}

	validation := s.validator.ValidateCatalog(components, lists, lines)
	result.CyclePaths = validation.CyclePaths
	if validation.HasCycles {
		log.Warn().Int("cycles", len(validation.CyclePaths)).Msg("catalog contains bom cycles")
	}
	if validation.Valid() {
		return catalog, nil
	}
	if s.config.Strictness == Strict {
		return nil, fmt.Errorf("catalog validation failed: %w", validation.Err())
	}

	for _, err := range validation.RecordErrors {
		log.Warn().Err(err).Msg("invalid catalog record")
	}

	reported := make(map[entities.LineID]bool)
	for _, se := range validation.StructuralErrors {
		if reported[se.LineID] {
			continue
		}
		reported[se.LineID] = true
		result.Stats.LinesSkipped++
		result.Diagnostics = append(result.Diagnostics, dto.Diagnostic{
			Kind:    dto.LineSkipped,
			LineID:  se.LineID,
			Message: se.Error(),
		})
		log.Warn().Int64("line_id", int64(se.LineID)).Str("reason", se.Error()).Msg("skipping invalid bom line")
	}

	return &filteredCatalog{CatalogReader: catalog, skip: validation.InvalidLines()}, nil
}

type orderJob struct {
	order *entities.ProductionOrder
	root  *entities.TechnicalList
}

// resolveOrders validates orders and resolves their target lists
func (s *MRPService) resolveOrders(
	ctx context.Context,
	catalog repositories.CatalogReader,
	orders []*entities.ProductionOrder,
	result *dto.MRPResult,
	log zerolog.Logger,
) ([]orderJob, error) {
	jobs := make([]orderJob, 0, len(orders))

	for _, order := range orders {
		if order == nil {
			continue
		}
		if err := s.validator.ValidateOrder(order); err != nil {
			if s.config.Strictness == Strict {
				return nil, err
			}
			s.skipOrder(ctx, result, order.ID, err.Error(), log)
			continue
		}

		root, err := catalog.GetList(order.TargetListID)
		if err != nil {
			if !errors.Is(err, entities.ErrNotFound) {
				return nil, fmt.Errorf("failed to resolve target list for order %d: %w", order.ID, err)
			}
			missing := &entities.OrderError{
				OrderID: order.ID,
				Reason:  fmt.Sprintf("target list %d not found", order.TargetListID),
				Err:     entities.ErrMissingOrderTarget,
			}
			s.skipOrder(ctx, result, order.ID, missing.Error(), log)
			continue
		}

		jobs = append(jobs, orderJob{order: order, root: root})
	}

	return jobs, nil
}

func (s *MRPService) skipOrder(
	ctx context.Context,
	result *dto.MRPResult,
	orderID entities.OrderID,
	reason string,
	log zerolog.Logger,
) {
	result.Stats.OrdersSkipped++
	result.Diagnostics = append(result.Diagnostics, dto.Diagnostic{
		Kind:    dto.OrderSkipped,
		OrderID: orderID,
		Message: reason,
	})
	log.Warn().Int64("order_id", int64(orderID)).Str("reason", reason).Msg("skipping production order")
	trace.SpanFromContext(ctx).AddEvent("order skipped", trace.WithAttributes(
		attribute.Int64("mrp.order_id", int64(orderID)),
		attribute.String("mrp.reason", reason),
	))
	s.ordersSkipped.Add(ctx, 1)
}

// expandOrders walks every order into its own trace, concurrently when configured
func (s *MRPService) expandOrders(
	ctx context.Context,
	catalog repositories.CatalogReader,
	jobs []orderJob,
) ([]*OrderTrace, error) {
	traces := make([]*OrderTrace, len(jobs))

	if s.config.Parallelism <= 1 || len(jobs) < 2 {
		for i, job := range jobs {
			tr, err := s.expandOrder(ctx, catalog, job)
			if err != nil {
				return nil, err
			}
			traces[i] = tr
		}
		return traces, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Parallelism)
	for i, job := range jobs {
		g.Go(func() error {
			tr, err := s.expandOrder(gctx, catalog, job)
			if err != nil {
				return err
			}
			traces[i] = tr
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return traces, nil
}

func (s *MRPService) expandOrder(
	ctx context.Context,
	catalog repositories.CatalogReader,
	job orderJob,
) (*OrderTrace, error) {
	walker := NewBOMWalker(catalog, s.config.QuantityPolicy, s.config.CycleGuard, s.config.MaxDepth)
	tr := NewOrderTrace(job.order)
	if err := walker.Expand(ctx, job.order, job.root, tr); err != nil {
		return nil, fmt.Errorf("failed to expand order %d: %w", job.order.ID, err)
	}
	return tr, nil
}

// absorb folds a trace's diagnostics and counters into the result
func (s *MRPService) absorb(ctx context.Context, tr *OrderTrace, result *dto.MRPResult, log zerolog.Logger) {
	result.Stats.OrdersExpanded++
	result.Stats.LinesVisited += tr.stats.LinesVisited
	result.Stats.CyclesPruned += tr.stats.CyclesPruned
	result.Stats.RevisitsPruned += tr.stats.RevisitsPruned
	result.Stats.DepthPruned += tr.stats.DepthPruned

	for _, d := range tr.diagnostics {
		result.Diagnostics = append(result.Diagnostics, d)
		log.Warn().
			Str("kind", string(d.Kind)).
			Int64("order_id", int64(d.OrderID)).
			Str("list", d.ListCode).
			Int("depth", d.Depth).
			Msg("pruned bom branch")
		s.branchesPruned.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", string(d.Kind))))
	}
}

// filteredCatalog hides lines dropped by lenient validation
type filteredCatalog struct {
	repositories.CatalogReader
	skip map[entities.LineID]bool
}

func (c *filteredCatalog) GetBOMLines(parent entities.ListID) ([]*entities.BOMLine, error) {
	lines, err := c.CatalogReader.GetBOMLines(parent)
	if err != nil {
		return nil, err
	}
	kept := make([]*entities.BOMLine, 0, len(lines))
	for _, line := range lines {
		if !c.skip[line.ID] {
			kept = append(kept, line)
		}
	}
	return kept, nil
}

func (c *filteredCatalog) GetAllBOMLines() ([]*entities.BOMLine, error) {
	lines, err := c.CatalogReader.GetAllBOMLines()
	if err != nil {
		return nil, err
	}
	kept := make([]*entities.BOMLine, 0, len(lines))
	for _, line := range lines {
		if !c.skip[line.ID] {
			kept = append(kept, line)
		}
	}
	return kept, nil
}
