// Package xlsx reads stock snapshots from spreadsheet exports
package xlsx

import (
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/vsinha/mrpbom/pkg/domain/entities"
)

var (
	codeColumns     = []string{"code", "component_code", "codigo", "pieza", "part_number", "sku"}
	quantityColumns = []string{"quantity", "qty", "bis_qty", "stock", "stock_quantity", "quantidade", "estoque"}
)

// LoadStock reads the first sheet of an xlsx file into a stock snapshot
func LoadStock(path string) (*entities.StockSnapshot, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx file %s: %w", path, err)
	}
	defer f.Close()

	return readStock(f)
}

// ReadStock reads an xlsx stream, such as an uploaded file, into a stock snapshot
func ReadStock(r io.Reader) (*entities.StockSnapshot, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx stream: %w", err)
	}
	defer f.Close()

	return readStock(f)
}

// readStock sums the quantity column per component code. Rows without a code
// or without a quantity are ignored.
func readStock(f *excelize.File) (*entities.StockSnapshot, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("xlsx file has no sheets")
	}
	sheet := sheets[0]

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows from sheet %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %s is empty", sheet)
	}

	codeIdx := findColumn(rows[0], codeColumns)
	if codeIdx < 0 {
		return nil, fmt.Errorf("sheet %s: missing code column (expected one of %s)", sheet, strings.Join(codeColumns, ", "))
	}
	qtyIdx := findColumn(rows[0], quantityColumns)
	if qtyIdx < 0 {
		return nil, fmt.Errorf("sheet %s: missing quantity column (expected one of %s)", sheet, strings.Join(quantityColumns, ", "))
	}

	snapshot := entities.NewStockSnapshot()
	for i, row := range rows[1:] {
		code := cell(row, codeIdx)
		raw := cell(row, qtyIdx)
		if code == "" || raw == "" {
			continue
		}

		qty, err := parseQuantity(raw)
		if err != nil {
			return nil, fmt.Errorf("sheet %s row %d: %w", sheet, i+2, err)
		}
		if err := snapshot.Add(code, qty); err != nil {
			return nil, fmt.Errorf("sheet %s row %d: %w", sheet, i+2, err)
		}
	}
	if err := snapshot.Validate(); err != nil {
		return nil, fmt.Errorf("sheet %s: %w", sheet, err)
	}

	return snapshot, nil
}

// findColumn returns the index of the first header matching one of names,
// compared case-insensitively with spaces and dashes folded to underscores
func findColumn(header []string, names []string) int {
	normalized := make([]string, len(header))
	for i, h := range header {
		normalized[i] = normalizeHeader(h)
	}
	for _, name := range names {
		for i, h := range normalized {
			if h == name {
				return i
			}
		}
	}
	return -1
}

func normalizeHeader(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer(" ", "_", "-", "_", "ó", "o", "í", "i").Replace(s)
	return s
}

func cell(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func parseQuantity(s string) (decimal.Decimal, error) {
	if strings.Contains(s, ",") && !strings.Contains(s, ".") {
		s = strings.ReplaceAll(s, ",", ".")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid quantity: %s", s)
	}
	return d, nil
}
