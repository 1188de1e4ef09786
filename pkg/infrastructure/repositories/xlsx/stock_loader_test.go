package xlsx

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeWorkbook(t *testing.T, rows [][]interface{}) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, row := range rows {
		cellRef, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cellRef, &row))
	}

	path := filepath.Join(t.TempDir(), "stock.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestLoadStock_SumsPerCode(t *testing.T) {
	path := writeWorkbook(t, [][]interface{}{
		{"ORG", "PIEZA", "Almacen / Warehouse", "BIS QTY"},
		{"01", "SPOKE", "A", 40},
		{"01", "RIM", "A", "3"},
		{"02", " SPOKE ", "B", "12,5"},
		{"02", "", "B", 9},
		{"02", "TUBE", "B", ""},
	})

	snapshot, err := LoadStock(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"SPOKE", "RIM"}, snapshot.Codes())
	spoke, ok := snapshot.Get("SPOKE")
	require.True(t, ok)
	assert.Equal(t, "52.5", spoke.String())
	_, ok = snapshot.Get("TUBE")
	assert.False(t, ok)
}

func TestReadStock_FromStream(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"Code", "Quantity"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{"BOLT", 7}))

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	snapshot, err := ReadStock(&buf)
	require.NoError(t, err)
	bolt, ok := snapshot.Get("BOLT")
	require.True(t, ok)
	assert.Equal(t, "7", bolt.String())
}

func TestLoadStock_Errors(t *testing.T) {
	missing := writeWorkbook(t, [][]interface{}{{"ORG", "Warehouse"}, {"01", "A"}})
	_, err := LoadStock(missing)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing code column")

	negative := writeWorkbook(t, [][]interface{}{{"code", "qty"}, {"BOLT", -2}})
	_, err = LoadStock(negative)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stock quantity for BOLT cannot be negative, got -2")

	garbage := writeWorkbook(t, [][]interface{}{{"code", "qty"}, {"BOLT", "many"}})
	_, err = LoadStock(garbage)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid quantity: many")
}

func TestLoadStock_NegativeRowsAdjustTotal(t *testing.T) {
	path := writeWorkbook(t, [][]interface{}{{"code", "qty"}, {"BOLT", 5}, {"NUT", 1}, {"BOLT", -2}})

	snapshot, err := LoadStock(path)
	require.NoError(t, err)
	bolt, ok := snapshot.Get("BOLT")
	require.True(t, ok)
	assert.Equal(t, "3", bolt.String())

	overdrawn := writeWorkbook(t, [][]interface{}{{"code", "qty"}, {"BOLT", 1}, {"BOLT", -4}})
	_, err = LoadStock(overdrawn)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stock quantity for BOLT cannot be negative, got -3")
}
