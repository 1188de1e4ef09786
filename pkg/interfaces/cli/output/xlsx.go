package output

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/vsinha/mrpbom/pkg/application/dto"
	"github.com/vsinha/mrpbom/pkg/application/services/flatten"
)

const (
	summarySheet = "Summary"
	detailsSheet = "Details"
	flatSheet    = "BOM"
)

// WriteXLSX writes a workbook with a summary sheet and a per-contribution details sheet
func WriteXLSX(w io.Writer, result *dto.MRPResult) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	if _, err := f.NewSheet(detailsSheet); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", detailsSheet, err)
	}

	summary := [][]interface{}{toRow(summaryHeader)}
	for _, rec := range result.Records {
		summary = append(summary, []interface{}{
			rec.Code,
			rec.Name,
			rec.Gross.InexactFloat64(),
			rec.Stock.InexactFloat64(),
			rec.Shortage.InexactFloat64(),
			rec.LeadTimeDays,
			formatDate(rec.PurchaseDate),
		})
	}
	if err := writeSheet(f, summarySheet, summary); err != nil {
		return err
	}

	details := [][]interface{}{toRow(detailsHeader)}
	for _, rec := range result.Records {
		for _, c := range rec.Contributions {
			details = append(details, []interface{}{
				int64(c.OrderID),
				c.OriginListCode,
				c.OriginListName,
				c.OrderQuantity.InexactFloat64(),
				c.ListCode,
				int64(c.LineID),
				c.Depth,
				c.QuantityPerUnit.InexactFloat64(),
				rec.Code,
				rec.Name,
				c.ContributedQty.InexactFloat64(),
				formatDate(rec.DueDate),
				formatDate(rec.PurchaseDate),
			})
		}
	}
	if err := writeSheet(f, detailsSheet, details); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// WriteFlatXLSX writes the leveled BOM table to a single sheet
func WriteFlatXLSX(w io.Writer, rows []flatten.Row) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", flatSheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}

	table := [][]interface{}{toRow(flatHeader)}
	for _, row := range rows {
		levels := row.Levels()
		table = append(table, []interface{}{
			levels[0], levels[1], levels[2], levels[3], levels[4],
			int64(row.LineID),
			row.ListCode,
			row.ComponentCode,
			row.ComponentName,
			row.Quantity.InexactFloat64(),
			row.Weighting.InexactFloat64(),
			row.WeightedQuantity.InexactFloat64(),
			row.Comment,
		})
	}
	if err := writeSheet(f, flatSheet, table); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// writeSheet writes rows from A1 and makes the header bold
func writeSheet(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		values := row
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d of %s: %w", i+1, sheet, err)
		}
	}

	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(rows[0]), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, bold); err != nil {
		return fmt.Errorf("failed to style header of %s: %w", sheet, err)
	}
	return nil
}

func toRow(header []string) []interface{} {
	row := make([]interface{}, len(header))
	for i, h := range header {
		row[i] = h
	}
	return row
}
