package csv

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/mrpbom/pkg/domain/entities"
	testhelpers "github.com/vsinha/mrpbom/pkg/infrastructure/testing"
)

func writeScenarioFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func TestLoader_LoadScenario(t *testing.T) {
	dir := writeScenarioFiles(t, map[string]string{
		ComponentsFile: "id,code,name,unit_of_measure,stock_quantity,lead_time_days,kind\n" +
			"1,BOLT,Hex bolt,EA,\"12,5\",7,componente\n" +
			"2,STEEL,Steel sheet,KG,,14,materia_prima\n",
		ListsFile: "id,code,name,category,parent_id\n" +
			"1,TRK,Truck,Série,\n" +
			"2,CAB,Cab,conjunto,1\n",
		BOMFile: "id,parent_list_id,child_component_id,child_list_id,quantity,weighting,comment\n" +
			"1,1,,2,1,,\n" +
			"2,2,1,,8,50%,front panel\n" +
			"3,2,2,,\"0,25\",,\n",
		OrdersFile: "id,target_list_id,quantity,due_date\n" +
			"1,1,3,2025-05-02\n",
	})

	scenario, err := NewLoader().LoadScenario(dir)
	require.NoError(t, err)

	require.Len(t, scenario.Components, 2)
	bolt := scenario.Components[0]
	assert.True(t, bolt.StockQuantity.Equal(decimal.RequireFromString("12.5")))
	assert.Equal(t, 7, bolt.LeadTimeDays)
	assert.Equal(t, entities.ManufacturedComponent, bolt.Kind)
	assert.Equal(t, entities.RawMaterial, scenario.Components[1].Kind)
	assert.True(t, scenario.Components[1].StockQuantity.IsZero())

	require.Len(t, scenario.Lists, 2)
	assert.Equal(t, entities.Series, scenario.Lists[0].Category)
	assert.Equal(t, entities.ListID(1), scenario.Lists[1].ParentID)

	require.Len(t, scenario.Lines, 3)
	assert.True(t, scenario.Lines[0].IsSubListLine())
	assert.False(t, scenario.Lines[0].Weighting.Valid)
	assert.True(t, scenario.Lines[1].Weighting.Valid)
	assert.Equal(t, "4", scenario.Lines[1].WeightedQuantity().String())
	assert.Equal(t, "front panel", scenario.Lines[1].Comment)
	assert.Equal(t, "0.25", scenario.Lines[2].Quantity.String())

	require.Len(t, scenario.Orders, 1)
	assert.Equal(t, testhelpers.Date("2025-05-02"), scenario.Orders[0].DueDate)

	catalog, err := scenario.Catalog()
	require.NoError(t, err)
	lines, err := catalog.GetBOMLines(2)
	require.NoError(t, err)
	assert.Len(t, lines, 2)
}

func TestLoader_OrdersAreOptional(t *testing.T) {
	dir := writeScenarioFiles(t, map[string]string{
		ComponentsFile: "id,code,name,unit_of_measure,stock_quantity,lead_time_days,kind\n",
		ListsFile:      "id,code,name,category,parent_id\n",
		BOMFile:        "id,parent_list_id,child_component_id,child_list_id,quantity,weighting,comment\n",
	})

	scenario, err := NewLoader().LoadScenario(dir)
	require.NoError(t, err)
	assert.Empty(t, scenario.Orders)
	assert.Empty(t, scenario.Lines)
}

func TestLoader_Errors(t *testing.T) {
	testCases := []struct {
		name     string
		file     string
		content  string
		expected string
	}{
		{
			name:     "header mismatch",
			file:     ListsFile,
			content:  "id,code,category\n1,A,SERIES\n",
			expected: "lists CSV header mismatch",
		},
		{
			name:     "bad category",
			file:     ListsFile,
			content:  "id,code,name,category,parent_id\n1,A,A,KIT,\n",
			expected: "lists CSV row 2: invalid category: KIT",
		},
		{
			name:     "bad quantity",
			file:     BOMFile,
			content:  "id,parent_list_id,child_component_id,child_list_id,quantity,weighting,comment\n1,1,1,,lots,,\n",
			expected: "BOM CSV row 2: invalid quantity: lots",
		},
		{
			name:     "bad date",
			file:     OrdersFile,
			content:  "id,target_list_id,quantity,due_date\n1,1,1,02/05/2025\n",
			expected: "orders CSV row 2: invalid due_date format: 02/05/2025",
		},
		{
			name:     "short row",
			file:     OrdersFile,
			content:  "id,target_list_id,quantity,due_date\n1,1\n",
			expected: "failed to read orders CSV",
		},
	}

	loader := NewLoader()
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dir := writeScenarioFiles(t, map[string]string{tc.file: tc.content})
			path := filepath.Join(dir, tc.file)

			var err error
			switch tc.file {
			case ListsFile:
				_, err = loader.LoadLists(path)
			case BOMFile:
				_, err = loader.LoadBOM(path)
			case OrdersFile:
				_, err = loader.LoadOrders(path)
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.expected)
		})
	}
}

func TestLoader_InvalidLinesStillLoad(t *testing.T) {
	dir := writeScenarioFiles(t, map[string]string{
		BOMFile: "id,parent_list_id,child_component_id,child_list_id,quantity,weighting,comment\n" +
			"9,1,4,2,0,150,\n",
	})

	lines, err := NewLoader().LoadBOM(filepath.Join(dir, BOMFile))
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, entities.LineID(9), lines[0].ID)
	assert.True(t, lines[0].Quantity.IsZero())
}

func TestLoader_LoadStockSumsCodes(t *testing.T) {
	dir := writeScenarioFiles(t, map[string]string{
		StockFile: "code,quantity\nBOLT,4\nNUT,1\n BOLT ,\"2,5\"\n",
	})

	snapshot, err := NewLoader().LoadStock(filepath.Join(dir, StockFile))
	require.NoError(t, err)
	assert.Equal(t, []string{"BOLT", "NUT"}, snapshot.Codes())
	bolt, ok := snapshot.Get("BOLT")
	require.True(t, ok)
	assert.Equal(t, "6.5", bolt.String())
}

func TestLoader_ReadStockNegativeRows(t *testing.T) {
	snapshot, err := NewLoader().ReadStock(strings.NewReader("code,quantity\nBOLT,4\nBOLT,-1.5\n"))
	require.NoError(t, err)
	bolt, ok := snapshot.Get("BOLT")
	require.True(t, ok)
	assert.Equal(t, "2.5", bolt.String())

	_, err = NewLoader().ReadStock(strings.NewReader("code,quantity\nNUT,-1\nBOLT,2\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stock quantity for NUT cannot be negative, got -1")
}

func TestWriteScenario_LoadsBack(t *testing.T) {
	catalog, orderRepo := testhelpers.BuildSimpleTestData()
	components, _ := catalog.GetAllComponents()
	lists, _ := catalog.GetAllLists()
	lines, _ := catalog.GetAllBOMLines()
	orders, _ := orderRepo.GetOrders()

	dir := t.TempDir()
	require.NoError(t, WriteScenario(dir, &Scenario{Components: components, Lists: lists, Lines: lines, Orders: orders}))

	loaded, err := NewLoader().LoadScenario(dir)
	require.NoError(t, err)
	assert.Len(t, loaded.Components, 4)
	assert.Len(t, loaded.Lists, 3)
	assert.Len(t, loaded.Orders, 2)
	require.Len(t, loaded.Lines, 6)

	paint := loaded.Lines[3]
	assert.Equal(t, entities.ComponentID(2), paint.ChildComponentID)
	assert.Equal(t, "0.25", paint.WeightedQuantity().String())
	assert.Equal(t, entities.RawMaterial, loaded.Components[1].Kind)
}
