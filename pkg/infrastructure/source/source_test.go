package source

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/mrpbom/pkg/config"
	"github.com/vsinha/mrpbom/pkg/domain/entities"
	csvrepo "github.com/vsinha/mrpbom/pkg/infrastructure/repositories/csv"
	testhelpers "github.com/vsinha/mrpbom/pkg/infrastructure/testing"
)

func writeBikeScenario(t *testing.T) string {
	t.Helper()
	catalog, orders := testhelpers.BuildSimpleTestData()
	scenario := &csvrepo.Scenario{}
	scenario.Components, _ = catalog.GetAllComponents()
	scenario.Lists, _ = catalog.GetAllLists()
	scenario.Lines, _ = catalog.GetAllBOMLines()
	scenario.Orders, _ = orders.GetOrders()

	dir := t.TempDir()
	require.NoError(t, csvrepo.WriteScenario(dir, scenario))
	return dir
}

func TestCSVSource_LoadAndApplyStock(t *testing.T) {
	src := NewCSVSource(writeBikeScenario(t))
	defer src.Close()
	ctx := context.Background()

	snap, err := src.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.Orders, 2)
	rim, err := snap.Catalog.GetComponentByCode("RIM")
	require.NoError(t, err)
	assert.True(t, rim.StockQuantity.IsZero())

	stock := entities.NewStockSnapshot()
	require.NoError(t, stock.Add("RIM", decimal.NewFromInt(8)))
	require.NoError(t, stock.Add("BELL", decimal.NewFromInt(1)))

	update, err := src.ApplyStock(ctx, stock, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"RIM"}, update.Updated)
	assert.Equal(t, []string{"BELL"}, update.Unknown)
	assert.Equal(t, []string{"PAINT", "SPOKE", "TUBE"}, update.Zeroed)

	// later loads see the uploaded stock, earlier snapshots do not
	again, err := src.Load(ctx)
	require.NoError(t, err)
	rim, err = again.Catalog.GetComponentByCode("RIM")
	require.NoError(t, err)
	assert.True(t, rim.StockQuantity.Equal(decimal.NewFromInt(8)))
	tube, err := again.Catalog.GetComponentByCode("TUBE")
	require.NoError(t, err)
	assert.True(t, tube.StockQuantity.IsZero())

	old, err := snap.Catalog.GetComponentByCode("RIM")
	require.NoError(t, err)
	assert.True(t, old.StockQuantity.IsZero())
}

func TestNew(t *testing.T) {
	cfg := config.Default()
	cfg.Data.ScenarioDir = ""
	_, err := New(&cfg)
	assert.True(t, errors.Is(err, config.ErrNoScenario))

	cfg.Data.ScenarioDir = "./scenario"
	src, err := New(&cfg)
	require.NoError(t, err)
	assert.IsType(t, &CSVSource{}, src)

	cfg.Data.Source = "sqlite"
	_, err = New(&cfg)
	assert.EqualError(t, err, "unknown data source: sqlite (expected csv or postgres)")
}

func TestLoadStockFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stock.csv")
	stock := entities.NewStockSnapshot()
	require.NoError(t, stock.Add("SPOKE", decimal.RequireFromString("12.5")))
	require.NoError(t, csvrepo.WriteStock(path, stock))

	loaded, err := LoadStockFile(path)
	require.NoError(t, err)
	qty, ok := loaded.Get("SPOKE")
	require.True(t, ok)
	assert.True(t, qty.Equal(decimal.RequireFromString("12.5")))

	_, err = LoadStockFile(filepath.Join(dir, "stock.txt"))
	assert.Error(t, err)
}
