package output

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/vsinha/mrpbom/pkg/application/dto"
	"github.com/vsinha/mrpbom/pkg/application/services/flatten"
	"github.com/vsinha/mrpbom/pkg/domain/entities"
)

const dateLayout = "2006-01-02"

// SummaryRow is one line of the purchase summary
type SummaryRow struct {
	Code         string `json:"code"`
	Name         string `json:"name"`
	Gross        string `json:"gross"`
	InStock      string `json:"in_stock"`
	Shortage     string `json:"shortage"`
	LeadTimeDays int    `json:"lead_time_days"`
	PurchaseDate string `json:"purchase_date"`
}

var (
	summaryHeader = []string{"Code", "Name", "Gross", "In stock", "Shortage", "Lead time", "Purchase date"}
	detailsHeader = []string{
		"Order", "Origin list", "Origin name", "Order qty", "List", "Line", "Depth",
		"Qty per unit", "Code", "Name", "Contributed", "Due date", "Purchase date",
	}
	flatHeader = []string{
		"Series", "System", "Assembly", "Subassembly", "Item",
		"Line", "List", "Component", "Name", "Quantity", "Weighting", "Weighted qty", "Comment",
	}
)

// SummaryRows projects the records into the purchase summary, in record order
func SummaryRows(result *dto.MRPResult) []SummaryRow {
	rows := make([]SummaryRow, 0, len(result.Records))
	for _, rec := range result.Records {
		rows = append(rows, SummaryRow{
			Code:         rec.Code,
			Name:         rec.Name,
			Gross:        rec.Gross.String(),
			InStock:      rec.Stock.String(),
			Shortage:     rec.Shortage.String(),
			LeadTimeDays: rec.LeadTimeDays,
			PurchaseDate: formatDate(rec.PurchaseDate),
		})
	}
	return rows
}

// WriteSummaryCSV writes one row per component
func WriteSummaryCSV(w io.Writer, result *dto.MRPResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(summaryHeader); err != nil {
		return err
	}
	for _, row := range SummaryRows(result) {
		if err := cw.Write([]string{
			row.Code,
			row.Name,
			row.Gross,
			row.InStock,
			row.Shortage,
			strconv.Itoa(row.LeadTimeDays),
			row.PurchaseDate,
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteDetailsCSV writes one row per contribution, grouped by component
func WriteDetailsCSV(w io.Writer, result *dto.MRPResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(detailsHeader); err != nil {
		return err
	}
	for _, rec := range result.Records {
		for _, c := range rec.Contributions {
			if err := cw.Write(detailRecord(rec, c)); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

func detailRecord(rec *entities.RequirementRecord, c entities.ContributionRecord) []string {
	return []string{
		strconv.FormatInt(int64(c.OrderID), 10),
		c.OriginListCode,
		c.OriginListName,
		c.OrderQuantity.String(),
		c.ListCode,
		strconv.FormatInt(int64(c.LineID), 10),
		strconv.Itoa(c.Depth),
		c.QuantityPerUnit.String(),
		rec.Code,
		rec.Name,
		c.ContributedQty.String(),
		formatDate(rec.DueDate),
		formatDate(rec.PurchaseDate),
	}
}

// WriteFlatCSV writes the leveled BOM table
func WriteFlatCSV(w io.Writer, rows []flatten.Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(flatHeader); err != nil {
		return err
	}
	for _, row := range rows {
		if err := cw.Write(flatRecord(row)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func flatRecord(row flatten.Row) []string {
	levels := row.Levels()
	return []string{
		levels[0], levels[1], levels[2], levels[3], levels[4],
		strconv.FormatInt(int64(row.LineID), 10),
		row.ListCode,
		row.ComponentCode,
		row.ComponentName,
		row.Quantity.String(),
		row.Weighting.String(),
		row.WeightedQuantity.StringFixed(entities.WeightingPrecision),
		row.Comment,
	}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}
