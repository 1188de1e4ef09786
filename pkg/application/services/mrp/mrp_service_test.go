package mrp

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/vsinha/mrpbom/pkg/application/dto"
	"github.com/vsinha/mrpbom/pkg/domain/entities"
	"github.com/vsinha/mrpbom/pkg/infrastructure/events"
	testhelpers "github.com/vsinha/mrpbom/pkg/infrastructure/testing"
)

// Helper to create test MRP service
func newTestMRPService(cfg EngineConfig) *MRPService {
	if cfg.Clock == nil {
		cfg.Clock = testhelpers.FixedClock("2025-01-15")
	}
	return NewMRPService(WithConfig(cfg), WithLogger(zerolog.Nop()))
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, expected string, actual decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.True(t, dec(expected).Equal(actual), append([]interface{}{"expected %s, got %s", expected, actual}, msgAndArgs...)...)
}

func TestMRPService_SingleLevel(t *testing.T) {
	catalog := testhelpers.NewCatalogBuilder().
		Component(1, "C", "1", 4).
		List(1, "L1", entities.Assembly).
		WeightedLeaf(1, 1, "3", "100").
		Build()
	orders := []*entities.ProductionOrder{testhelpers.Order(1, 1, "2", "2025-03-10")}

	result, err := newTestMRPService(EngineConfig{}).Run(context.Background(), catalog, orders)
	require.NoError(t, err)

	require.Len(t, result.Records, 1)
	rec := result.Get(1)
	require.NotNil(t, rec)
	assertDecimal(t, "6", rec.Gross)
	assertDecimal(t, "1", rec.Stock)
	assertDecimal(t, "5", rec.Shortage)
	assert.Equal(t, 0, rec.Depth)
	assert.Equal(t, "", rec.ParentListCode)
	assert.Equal(t, "L1", rec.ListCode)
	assert.Equal(t, testhelpers.Date("2025-03-06"), rec.PurchaseDate)
	assert.Equal(t, testhelpers.Date("2025-03-10"), rec.DueDate)
	assert.NotEmpty(t, result.RunID)
}

func TestMRPService_NestedMultiplier(t *testing.T) {
	catalog := testhelpers.NewCatalogBuilder().
		Component(1, "C", "0", 0).
		List(1, "L1", entities.Assembly).
		List(2, "L2", entities.Subassembly).
		Sub(1, 2, "2").
		Leaf(2, 1, "5").
		Build()
	orders := []*entities.ProductionOrder{testhelpers.Order(1, 1, "1", "2025-03-10")}

	result, err := newTestMRPService(EngineConfig{}).Run(context.Background(), catalog, orders)
	require.NoError(t, err)

	rec := result.Get(1)
	require.NotNil(t, rec)
	assertDecimal(t, "10", rec.Gross)
	assert.Equal(t, 1, rec.Depth)
	assert.Equal(t, "L1", rec.ParentListCode)
	assert.Equal(t, "L2", rec.ListCode)

	require.Len(t, rec.Contributions, 1)
	c := rec.Contributions[0]
	assertDecimal(t, "5", c.QuantityPerUnit)
	assertDecimal(t, "10", c.ContributedQty)
	assertDecimal(t, "1", c.OrderQuantity)
	assert.Equal(t, "L1", c.OriginListCode)
}

func TestMRPService_TwoOrdersSameComponent(t *testing.T) {
	catalog := testhelpers.NewCatalogBuilder().
		Component(1, "C", "0", 0).
		List(1, "L1", entities.Series).
		List(3, "L3", entities.Series).
		List(4, "L4", entities.Assembly).
		Leaf(1, 1, "3").
		Sub(3, 4, "1").
		Leaf(4, 1, "2").
		Build()
	orders := []*entities.ProductionOrder{
		testhelpers.Order(1, 1, "1", "2025-03-10"),
		testhelpers.Order(2, 3, "2", "2025-03-12"),
	}

	result, err := newTestMRPService(EngineConfig{}).Run(context.Background(), catalog, orders)
	require.NoError(t, err)

	require.Len(t, result.Records, 1)
	rec := result.Get(1)
	assertDecimal(t, "7", rec.Gross)
	require.Len(t, rec.Contributions, 2)
	assert.Equal(t, entities.OrderID(1), rec.Contributions[0].OrderID)
	assertDecimal(t, "3", rec.Contributions[0].ContributedQty)
	assert.Equal(t, "L1", rec.Contributions[0].OriginListCode)
	assert.Equal(t, entities.OrderID(2), rec.Contributions[1].OrderID)
	assertDecimal(t, "4", rec.Contributions[1].ContributedQty)
	assert.Equal(t, "L3", rec.Contributions[1].OriginListCode)
	assert.Equal(t, []entities.OrderID{1, 2}, rec.ContributingOrders())

	// depth and parent come from the first encounter only
	assert.Equal(t, 0, rec.Depth)
	assert.Equal(t, "L1", rec.ListCode)
}

func TestMRPService_QuantityPolicy(t *testing.T) {
	catalog := testhelpers.NewCatalogBuilder().
		Component(1, "C", "0", 0).
		List(1, "L1", entities.Assembly).
		WeightedLeaf(1, 1, "4", "50").
		Build()
	orders := []*entities.ProductionOrder{testhelpers.Order(1, 1, "1", "2025-03-10")}

	testCases := []struct {
		policy   QuantityPolicy
		expected string
	}{
		{WeightedQuantity, "2"},
		{RawQuantity, "4"},
	}

	for _, tc := range testCases {
		t.Run(string(tc.policy), func(t *testing.T) {
			result, err := newTestMRPService(EngineConfig{QuantityPolicy: tc.policy}).Run(context.Background(), catalog, orders)
			require.NoError(t, err)
			assertDecimal(t, tc.expected, result.Get(1).Gross)
			assertDecimal(t, tc.expected, result.Get(1).Contributions[0].QuantityPerUnit)
		})
	}
}

func TestMRPService_WeightingAppliesToSubLists(t *testing.T) {
	catalog := testhelpers.NewCatalogBuilder().
		Component(1, "C", "0", 0).
		List(1, "L1", entities.Assembly).
		List(2, "L2", entities.Subassembly).
		RawLine(entities.BOMLine{ParentListID: 1, ChildListID: 2, Quantity: dec("2"), Weighting: entities.Weight(dec("25"))}).
		Leaf(2, 1, "10").
		Build()
	orders := []*entities.ProductionOrder{testhelpers.Order(1, 1, "2", "2025-03-10")}

	weighted, err := newTestMRPService(EngineConfig{}).Run(context.Background(), catalog, orders)
	require.NoError(t, err)
	assertDecimal(t, "10", weighted.Get(1).Gross) // 2 x (2 x 25%) x 10

	raw, err := newTestMRPService(EngineConfig{QuantityPolicy: RawQuantity}).Run(context.Background(), catalog, orders)
	require.NoError(t, err)
	assertDecimal(t, "40", raw.Get(1).Gross)
}

func TestMRPService_WeightingIdentityAndZero(t *testing.T) {
	catalog := testhelpers.NewCatalogBuilder().
		Component(1, "FULL", "0", 0).
		Component(2, "DEFAULT", "0", 0).
		Component(3, "NONE", "0", 0).
		List(1, "L1", entities.Assembly).
		WeightedLeaf(1, 1, "3", "100").
		Leaf(1, 2, "3").
		WeightedLeaf(1, 3, "3", "0").
		Build()
	orders := []*entities.ProductionOrder{testhelpers.Order(1, 1, "7", "2025-03-10")}

	result, err := newTestMRPService(EngineConfig{}).Run(context.Background(), catalog, orders)
	require.NoError(t, err)

	assertDecimal(t, "21", result.Get(1).Gross)
	assertDecimal(t, "21", result.Get(2).Gross)
	assertDecimal(t, "0", result.Get(3).Gross)
	assertDecimal(t, "0", result.Get(3).Shortage)
	require.Len(t, result.Get(3).Contributions, 1)
}

func TestMRPService_CyclicBOMTerminates(t *testing.T) {
	catalog := testhelpers.NewCatalogBuilder().
		Component(1, "C", "0", 0).
		List(1, "L1", entities.Assembly).
		List(2, "L2", entities.Assembly).
		Sub(1, 2, "1").
		Sub(2, 1, "1").
		Leaf(2, 1, "2").
		Build()
	orders := []*entities.ProductionOrder{testhelpers.Order(1, 1, "3", "2025-03-10")}

	for _, guard := range []CycleGuard{TraversalGuard, PathGuard} {
		t.Run(string(guard), func(t *testing.T) {
			result, err := newTestMRPService(EngineConfig{CycleGuard: guard}).Run(context.Background(), catalog, orders)
			require.NoError(t, err)

			assertDecimal(t, "6", result.Get(1).Gross)
			cycles := result.DiagnosticsOf(dto.CycleDetected)
			require.Len(t, cycles, 1)
			assert.Equal(t, []string{"L1", "L2", "L1"}, cycles[0].Path)
			assert.Equal(t, entities.ListID(1), cycles[0].ListID)
			assert.Equal(t, 1, result.Stats.CyclesPruned)
			assert.Equal(t, [][]entities.ListID{{1, 2, 1}}, result.CyclePaths)
		})
	}
}

func TestMRPService_SelfCycleThroughDeepChain(t *testing.T) {
	catalog := testhelpers.NewCatalogBuilder().
		Component(1, "C", "0", 0).
		List(1, "A", entities.Series).
		List(2, "B", entities.System).
		List(3, "C", entities.Assembly).
		Sub(1, 2, "1").
		Sub(2, 3, "1").
		Sub(3, 2, "1").
		Leaf(3, 1, "1").
		Build()
	orders := []*entities.ProductionOrder{testhelpers.Order(1, 1, "1", "2025-03-10")}

	result, err := newTestMRPService(EngineConfig{}).Run(context.Background(), catalog, orders)
	require.NoError(t, err)
	assertDecimal(t, "1", result.Get(1).Gross)
	require.Len(t, result.DiagnosticsOf(dto.CycleDetected), 1)
	assert.Equal(t, []string{"A", "B", "C", "B"}, result.Diagnostics[0].Path)
}

func TestMRPService_DiamondUnderBothGuards(t *testing.T) {
	catalog := testhelpers.NewCatalogBuilder().
		Component(1, "X", "0", 0).
		List(1, "A", entities.Series).
		List(2, "B", entities.Assembly).
		List(3, "C", entities.Assembly).
		List(4, "D", entities.Subassembly).
		Sub(1, 2, "1").
		Sub(1, 3, "1").
		Sub(2, 4, "1").
		Sub(3, 4, "1").
		Leaf(4, 1, "1").
		Build()
	orders := []*entities.ProductionOrder{testhelpers.Order(1, 1, "1", "2025-03-10")}

	traversal, err := newTestMRPService(EngineConfig{CycleGuard: TraversalGuard}).Run(context.Background(), catalog, orders)
	require.NoError(t, err)
	assertDecimal(t, "1", traversal.Get(1).Gross)
	require.Len(t, traversal.DiagnosticsOf(dto.RevisitPruned), 1)
	assert.Equal(t, 1, traversal.Stats.RevisitsPruned)
	assert.Empty(t, traversal.CyclePaths)

	path, err := newTestMRPService(EngineConfig{CycleGuard: PathGuard}).Run(context.Background(), catalog, orders)
	require.NoError(t, err)
	assertDecimal(t, "2", path.Get(1).Gross)
	assert.Empty(t, path.Diagnostics)
	assert.Len(t, path.Get(1).Contributions, 2)
}

func TestMRPService_VisitedSetResetsPerOrder(t *testing.T) {
	catalog, orderRepo := testhelpers.BuildSimpleTestData()
	orders, err := orderRepo.GetOrders()
	require.NoError(t, err)

	result, err := newTestMRPService(EngineConfig{}).Run(context.Background(), catalog, orders)
	require.NoError(t, err)

	// WHEEL is expanded under order 1 and again as the root of order 2
	assert.Empty(t, result.Diagnostics)
	assertDecimal(t, "288", result.Get(3).Gross)
}

func TestMRPService_MaxDepth(t *testing.T) {
	catalog := testhelpers.NewCatalogBuilder().
		Component(1, "SHALLOW", "0", 0).
		Component(2, "DEEP", "0", 0).
		List(1, "L1", entities.Series).
		List(2, "L2", entities.System).
		List(3, "L3", entities.Assembly).
		Sub(1, 2, "1").
		Leaf(2, 1, "1").
		Sub(2, 3, "1").
		Leaf(3, 2, "1").
		Build()
	orders := []*entities.ProductionOrder{testhelpers.Order(1, 1, "1", "2025-03-10")}

	result, err := newTestMRPService(EngineConfig{MaxDepth: 1}).Run(context.Background(), catalog, orders)
	require.NoError(t, err)

	assert.NotNil(t, result.Get(1))
	assert.Nil(t, result.Get(2))
	require.Len(t, result.DiagnosticsOf(dto.DepthExceeded), 1)
	assert.Equal(t, 2, result.Diagnostics[0].Depth)
}

func TestMRPService_SimpleScenario(t *testing.T) {
	catalog, orderRepo := testhelpers.BuildSimpleTestData()
	orders, err := orderRepo.GetOrders()
	require.NoError(t, err)

	result, err := newTestMRPService(EngineConfig{}).Run(context.Background(), catalog, orders)
	require.NoError(t, err)

	expected := []struct {
		code, gross, stock, shortage, purchase string
		depth                                  int
		parent, list                           string
	}{
		{"TUBE", "6", "5", "1", "2025-02-19", 1, "BIKE", "FRAME"},
		{"PAINT", "0.5", "1", "0", "2025-02-26", 1, "BIKE", "FRAME"},
		{"SPOKE", "288", "100", "188", "2025-02-24", 1, "BIKE", "WHEEL"},
		{"RIM", "8", "0", "8", "2025-02-09", 1, "BIKE", "WHEEL"},
	}

	require.Len(t, result.Records, len(expected))
	for i, e := range expected {
		rec := result.Records[i]
		assert.Equal(t, e.code, rec.Code)
		assertDecimal(t, e.gross, rec.Gross, e.code)
		assertDecimal(t, e.stock, rec.Stock, e.code)
		assertDecimal(t, e.shortage, rec.Shortage, e.code)
		assert.Equal(t, testhelpers.Date(e.purchase), rec.PurchaseDate, e.code)
		assert.Equal(t, e.depth, rec.Depth, e.code)
		assert.Equal(t, e.parent, rec.ParentListCode, e.code)
		assert.Equal(t, e.list, rec.ListCode, e.code)
	}

	assert.Equal(t, testhelpers.Date("2025-03-01"), result.ReferenceDay)
	assert.Equal(t, 2, result.Stats.OrdersExpanded)
	assert.Equal(t, 8, result.Stats.LinesVisited)
	assert.Len(t, result.Shortages(), 3)

	spoke := result.Get(3)
	require.Len(t, spoke.Contributions, 2)
	assert.Equal(t, 0, spoke.Contributions[1].Depth)
	assert.Equal(t, "WHEEL", spoke.Contributions[1].OriginListCode)
}

func TestMRPService_OrderPermutationDoesNotChangeTotals(t *testing.T) {
	catalog, _ := testhelpers.BuildSimpleTestData()
	base := []*entities.ProductionOrder{
		testhelpers.Order(1, 1, "2", "2025-03-10"),
		testhelpers.Order(2, 3, "4", "2025-03-01"),
		testhelpers.Order(3, 2, "5", "2025-04-01"),
	}
	permutations := [][]int{{0, 1, 2}, {2, 1, 0}, {1, 2, 0}, {1, 0, 2}}

	totals := func(orders []*entities.ProductionOrder) map[string][2]string {
		result, err := newTestMRPService(EngineConfig{}).Run(context.Background(), catalog, orders)
		require.NoError(t, err)
		out := make(map[string][2]string)
		for _, rec := range result.Records {
			out[rec.Code] = [2]string{rec.Gross.String(), rec.Shortage.String()}
		}
		return out
	}

	expected := totals(base)
	for _, perm := range permutations {
		orders := make([]*entities.ProductionOrder, 0, len(perm))
		for _, idx := range perm {
			orders = append(orders, base[idx])
		}
		assert.Equal(t, expected, totals(orders), "permutation %v", perm)
	}
}

func TestMRPService_ShortageNeverNegative(t *testing.T) {
	catalog := testhelpers.NewCatalogBuilder().
		Component(1, "PLENTY", "1000", 0).
		List(1, "L1", entities.Assembly).
		Leaf(1, 1, "2").
		Build()
	orders := []*entities.ProductionOrder{testhelpers.Order(1, 1, "3", "2025-03-10")}

	result, err := newTestMRPService(EngineConfig{}).Run(context.Background(), catalog, orders)
	require.NoError(t, err)

	for _, rec := range result.Records {
		assert.False(t, rec.Shortage.IsNegative())
	}
	assertDecimal(t, "0", result.Get(1).Shortage)
}

func TestMRPService_IdempotentRerun(t *testing.T) {
	catalog, orderRepo := testhelpers.BuildSimpleTestData()
	orders, err := orderRepo.GetOrders()
	require.NoError(t, err)
	service := newTestMRPService(EngineConfig{})

	first, err := service.Run(context.Background(), catalog, orders)
	require.NoError(t, err)
	second, err := service.Run(context.Background(), catalog, orders)
	require.NoError(t, err)

	assert.Equal(t, first.Records, second.Records)
	assert.Equal(t, first.Stats, second.Stats)
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestMRPService_ParallelMatchesSequential(t *testing.T) {
	catalog, _ := testhelpers.BuildSimpleTestData()
	var orders []*entities.ProductionOrder
	for i := 1; i <= 12; i++ {
		target := entities.ListID(i%3 + 1)
		orders = append(orders, testhelpers.Order(entities.OrderID(i), target, "3", "2025-03-10"))
	}

	sequential, err := newTestMRPService(EngineConfig{Parallelism: 1}).Run(context.Background(), catalog, orders)
	require.NoError(t, err)
	parallel, err := newTestMRPService(EngineConfig{Parallelism: 4}).Run(context.Background(), catalog, orders)
	require.NoError(t, err)

	assert.Equal(t, sequential.Records, parallel.Records)
	assert.Equal(t, sequential.Stats, parallel.Stats)
}

func TestMRPService_MissingOrderTargetIsSkipped(t *testing.T) {
	for _, strictness := range []Strictness{Strict, Lenient} {
		t.Run(string(strictness), func(t *testing.T) {
			catalog, _ := testhelpers.BuildSimpleTestData()
			orders := []*entities.ProductionOrder{
				testhelpers.Order(1, 99, "1", "2025-03-10"),
				testhelpers.Order(2, 3, "1", "2025-03-10"),
			}

			result, err := newTestMRPService(EngineConfig{Strictness: strictness}).Run(context.Background(), catalog, orders)
			require.NoError(t, err)

			assert.Equal(t, 1, result.Stats.OrdersSkipped)
			assert.Equal(t, 1, result.Stats.OrdersExpanded)
			skipped := result.DiagnosticsOf(dto.OrderSkipped)
			require.Len(t, skipped, 1)
			assert.Equal(t, entities.OrderID(1), skipped[0].OrderID)
			assert.Equal(t, "production order 1: target list 99 not found", skipped[0].Message)
			assertDecimal(t, "36", result.Get(3).Gross)
		})
	}
}

func TestMRPService_StructuralErrors(t *testing.T) {
	build := func() *testhelpers.CatalogBuilder {
		return testhelpers.NewCatalogBuilder().
			Component(1, "GOOD", "0", 0).
			Component(2, "BAD", "0", 0).
			List(1, "L1", entities.Assembly).
			Leaf(1, 1, "2").
			RawLine(entities.BOMLine{ID: 7, ParentListID: 1, ChildComponentID: 2, Quantity: decimal.Zero})
	}
	orders := []*entities.ProductionOrder{testhelpers.Order(1, 1, "1", "2025-03-10")}

	t.Run("strict aborts", func(t *testing.T) {
		_, err := newTestMRPService(EngineConfig{Strictness: Strict}).Run(context.Background(), build().Build(), orders)
		require.Error(t, err)
		assert.True(t, errors.Is(err, entities.ErrStructural))
		var se *entities.StructuralError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, entities.LineID(7), se.LineID)
		assert.Contains(t, err.Error(), "bom line 7: quantity: must be greater than 0")
	})

	t.Run("lenient skips the line", func(t *testing.T) {
		result, err := newTestMRPService(EngineConfig{Strictness: Lenient}).Run(context.Background(), build().Build(), orders)
		require.NoError(t, err)
		assertDecimal(t, "2", result.Get(1).Gross)
		assert.Nil(t, result.Get(2))
		assert.Equal(t, 1, result.Stats.LinesSkipped)
		skipped := result.DiagnosticsOf(dto.LineSkipped)
		require.Len(t, skipped, 1)
		assert.Equal(t, entities.LineID(7), skipped[0].LineID)
	})
}

func TestMRPService_InvalidOrder(t *testing.T) {
	catalog, _ := testhelpers.BuildSimpleTestData()
	bad := &entities.ProductionOrder{ID: 9, TargetListID: 3, Quantity: dec("-1"), DueDate: testhelpers.Date("2025-03-10")}
	good := testhelpers.Order(1, 3, "1", "2025-03-10")

	_, err := newTestMRPService(EngineConfig{Strictness: Strict}).Run(context.Background(), catalog, []*entities.ProductionOrder{good, bad})
	require.Error(t, err)
	assert.True(t, errors.Is(err, entities.ErrInvalidOrder))

	result, err := newTestMRPService(EngineConfig{Strictness: Lenient}).Run(context.Background(), catalog, []*entities.ProductionOrder{good, bad})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Stats.OrdersSkipped)
	assertDecimal(t, "36", result.Get(3).Gross)
}

func TestMRPService_DatePolicies(t *testing.T) {
	catalog, orderRepo := testhelpers.BuildSimpleTestData()
	orders, err := orderRepo.GetOrders()
	require.NoError(t, err)

	global, err := newTestMRPService(EngineConfig{DatePolicy: GlobalDueDate}).Run(context.Background(), catalog, orders)
	require.NoError(t, err)
	for _, rec := range global.Records {
		assert.Equal(t, testhelpers.Date("2025-03-01"), rec.DueDate, rec.Code)
	}

	perComponent, err := newTestMRPService(EngineConfig{DatePolicy: PerComponentDueDate}).Run(context.Background(), catalog, orders)
	require.NoError(t, err)

	// TUBE is only reached by order 1 (due 2025-03-10), SPOKE by both
	tube := perComponent.Get(1)
	assert.Equal(t, testhelpers.Date("2025-03-10"), tube.DueDate)
	assert.Equal(t, testhelpers.Date("2025-02-28"), tube.PurchaseDate)
	spoke := perComponent.Get(3)
	assert.Equal(t, testhelpers.Date("2025-03-01"), spoke.DueDate)
	assert.Equal(t, testhelpers.Date("2025-02-24"), spoke.PurchaseDate)
}

func TestMRPService_EmptyOrderSet(t *testing.T) {
	catalog, _ := testhelpers.BuildSimpleTestData()

	result, err := newTestMRPService(EngineConfig{Clock: testhelpers.FixedClock("2025-06-30")}).Run(context.Background(), catalog, nil)
	require.NoError(t, err)

	assert.Empty(t, result.Records)
	assert.Empty(t, result.Diagnostics)
	assert.Equal(t, testhelpers.Date("2025-06-30"), result.ReferenceDay)
}

func TestMRPService_InvalidConfig(t *testing.T) {
	catalog, _ := testhelpers.BuildSimpleTestData()

	_, err := newTestMRPService(EngineConfig{QuantityPolicy: "gross"}).Run(context.Background(), catalog, nil)
	require.Error(t, err)
	assert.Equal(t, `invalid engine config: invalid quantity policy: "gross" (expected weighted or raw)`, err.Error())
}

func TestMRPService_CancelledContext(t *testing.T) {
	catalog, orderRepo := testhelpers.BuildSimpleTestData()
	orders, err := orderRepo.GetOrders()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = newTestMRPService(EngineConfig{}).Run(ctx, catalog, orders)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestEventDrivenMRPService_PublishesRunEvents(t *testing.T) {
	catalog, _ := testhelpers.BuildSimpleTestData()
	store := events.NewInMemoryEventStore()
	service := NewEventDrivenMRPService(store,
		WithConfig(EngineConfig{Clock: testhelpers.FixedClock("2025-01-15")}),
		WithLogger(zerolog.Nop()))

	orders := []*entities.ProductionOrder{
		testhelpers.Order(1, 1, "2", "2025-03-10"),
		testhelpers.Order(2, 42, "1", "2025-03-10"),
	}
	result, err := service.Run(context.Background(), catalog, orders)
	require.NoError(t, err)

	stream, err := store.ReadEvents(events.RunStream(result.RunID), 1)
	require.NoError(t, err)

	var types []string
	for _, e := range stream {
		types = append(types, e.Type)
	}
	assert.Equal(t, []string{
		events.RunStartedEvent,
		events.OrderSkippedEvent,
		events.ShortageIdentifiedEvent,
		events.ShortageIdentifiedEvent,
		events.ShortageIdentifiedEvent,
		events.RunCompletedEvent,
	}, types)

	completed := stream[len(stream)-1].Data.(events.RunCompleted)
	assert.Equal(t, 4, completed.Records)
	assert.Equal(t, 1, completed.OrdersSkipped)
	assert.Equal(t, len(stream), stream[len(stream)-1].Version)
}

func TestMRPService_RunSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	service := NewMRPService(
		WithConfig(EngineConfig{Clock: testhelpers.FixedClock("2025-01-15")}),
		WithLogger(zerolog.Nop()),
		WithTracer(provider.Tracer("test")),
		WithMeter(noop.NewMeterProvider().Meter("test")),
	)

	catalog, _ := testhelpers.BuildSimpleTestData()
	orders := []*entities.ProductionOrder{
		testhelpers.Order(1, 99, "1", "2025-03-10"),
		testhelpers.Order(2, 3, "1", "2025-03-10"),
	}
	result, err := service.Run(context.Background(), catalog, orders)
	require.NoError(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, "mrp.Run", span.Name())

	attrs := make(map[attribute.Key]attribute.Value)
	for _, kv := range span.Attributes() {
		attrs[kv.Key] = kv.Value
	}
	assert.Equal(t, result.RunID, attrs["mrp.run_id"].AsString())
	assert.Equal(t, int64(2), attrs["mrp.orders"].AsInt64())
	assert.Equal(t, int64(2), attrs["mrp.records"].AsInt64())
	assert.Equal(t, int64(1), attrs["mrp.orders_skipped"].AsInt64())

	require.Len(t, span.Events(), 1)
	assert.Equal(t, "order skipped", span.Events()[0].Name)
}
