package commands

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/mrpbom/pkg/application/dto"
	"github.com/vsinha/mrpbom/pkg/domain/entities"
	"github.com/vsinha/mrpbom/pkg/domain/services"
	csvrepo "github.com/vsinha/mrpbom/pkg/infrastructure/repositories/csv"
	testhelpers "github.com/vsinha/mrpbom/pkg/infrastructure/testing"
	"github.com/vsinha/mrpbom/pkg/interfaces/cli/output"
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

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	err := cmd.Execute()
	return out.String(), err
}

func TestRun_CSV(t *testing.T) {
	dir := writeBikeScenario(t)

	out, err := runCLI(t, "run", "--scenario", dir, "--format", "csv")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "TUBE,TUBE,6,5,1,10,2025-02-19", lines[1])
	assert.True(t, strings.HasPrefix(lines[3], "SPOKE,SPOKE,288,100,188,5,"))
}

func TestRun_AppliesStockFile(t *testing.T) {
	dir := writeBikeScenario(t)
	stock := entities.NewStockSnapshot()
	require.NoError(t, stock.Add("RIM", decimal.NewFromInt(8)))
	stockFile := filepath.Join(t.TempDir(), "stock.csv")
	require.NoError(t, csvrepo.WriteStock(stockFile, stock))

	out, err := runCLI(t, "run", "--scenario", dir, "--stock", stockFile, "--format", "csv")
	require.NoError(t, err)
	assert.Contains(t, out, "RIM,RIM,8,8,0,20,")
	assert.Contains(t, out, "TUBE,TUBE,6,5,1,10,2025-02-19")

	out, err = runCLI(t, "run", "--scenario", dir, "--stock", stockFile, "--zero-missing", "--format", "csv")
	require.NoError(t, err)
	assert.Contains(t, out, "TUBE,TUBE,6,0,6,10,2025-02-19")
}

func TestRun_JSON(t *testing.T) {
	dir := writeBikeScenario(t)

	out, err := runCLI(t, "run", "--scenario", dir, "--format", "json", "--quantity-policy", "raw")
	require.NoError(t, err)

	var report struct {
		Records []*entities.RequirementRecord `json:"records"`
		Stats   dto.RunStats                  `json:"stats"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Len(t, report.Records, 4)
	assert.Equal(t, 2, report.Stats.OrdersExpanded)

	// raw policy ignores the 50% weighting on PAINT: 2 bikes x 1 frame x 0.5
	paint := report.Records[1]
	assert.Equal(t, "PAINT", paint.Code)
	assert.True(t, paint.Gross.Equal(decimal.NewFromInt(1)), paint.Gross.String())
}

func TestRun_XLSXFile(t *testing.T) {
	dir := writeBikeScenario(t)
	outDir := t.TempDir()

	_, err := runCLI(t, "run", "--scenario", dir, "--format", "xlsx", "--output", outDir)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(outDir, output.XLSXFile))
}

func TestRun_Errors(t *testing.T) {
	dir := writeBikeScenario(t)

	_, err := runCLI(t, "run", "--scenario", dir, "--strictness", "sloppy")
	assert.ErrorContains(t, err, "invalid strictness")

	_, err = runCLI(t, "run", "--scenario", dir, "--format", "pdf")
	assert.ErrorContains(t, err, "unsupported output format: pdf")

	_, err = runCLI(t, "run", "--scenario", filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestFlatten(t *testing.T) {
	dir := writeBikeScenario(t)

	out, err := runCLI(t, "flatten", "--scenario", dir, "--format", "csv")
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 5)

	out, err = runCLI(t, "flatten", "--scenario", dir, "--format", "csv", "--list", "WHEEL")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "SPOKE")

	out, err = runCLI(t, "flatten", "--scenario", dir, "--format", "csv", "--list", "1", "--groups")
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 7)

	_, err = runCLI(t, "flatten", "--scenario", dir, "--list", "SADDLE")
	assert.True(t, errors.Is(err, entities.ErrNotFound))

	_, err = runCLI(t, "flatten", "--scenario", dir, "--format", "xlsx")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	dir := writeBikeScenario(t)

	out, err := runCLI(t, "validate", "--scenario", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Components: 4  Lists: 3  BOM lines: 6  Orders: 2")
	assert.Contains(t, out, "ok: 0 cycles")

	// a dangling component reference and a WHEEL -> BIKE cycle
	f, err := os.OpenFile(filepath.Join(dir, csvrepo.BOMFile), os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("7,2,99,,1,,\n8,3,,1,1,,\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	out, err = runCLI(t, "validate", "--scenario", dir)
	assert.True(t, errors.Is(err, ErrInvalidCatalog))
	assert.Contains(t, out, "bom line 7")
	assert.Contains(t, out, "CYCLE")
	assert.Contains(t, out, "BIKE")
}

func TestGenerate(t *testing.T) {
	first := filepath.Join(t.TempDir(), "a")
	second := filepath.Join(t.TempDir(), "b")
	args := []string{"generate", "--lists", "40", "--items", "60", "--demands", "6", "--inventory", "0.5", "--seed", "42"}

	_, err := runCLI(t, append(args, "--output", first)...)
	require.NoError(t, err)
	_, err = runCLI(t, append(args, "--output", second)...)
	require.NoError(t, err)

	for _, name := range []string{csvrepo.ComponentsFile, csvrepo.ListsFile, csvrepo.BOMFile, csvrepo.OrdersFile} {
		a, err := os.ReadFile(filepath.Join(first, name))
		require.NoError(t, err)
		b, err := os.ReadFile(filepath.Join(second, name))
		require.NoError(t, err)
		assert.Equal(t, string(a), string(b), name)
	}

	scenario, err := csvrepo.NewLoader().LoadScenario(first)
	require.NoError(t, err)
	assert.Len(t, scenario.Components, 60)
	assert.LessOrEqual(t, len(scenario.Lists), 40)
	assert.Len(t, scenario.Orders, 6)

	result := services.NewBOMValidator().ValidateCatalog(scenario.Components, scenario.Lists, scenario.Lines)
	assert.True(t, result.Valid(), result.Errors)
	assert.False(t, result.HasCycles)

	_, err = runCLI(t, "run", "--scenario", first, "--format", "json")
	require.NoError(t, err)
}

func TestHelp(t *testing.T) {
	out, err := runCLI(t, "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "COMMANDS")
	assert.Contains(t, out, "generate")
	assert.Contains(t, out, "--log-level")
}
