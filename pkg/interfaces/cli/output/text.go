package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vsinha/mrpbom/pkg/application/dto"
	"github.com/vsinha/mrpbom/pkg/application/services/flatten"
	"github.com/vsinha/mrpbom/pkg/domain/entities"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00FF99"))
	headerStyle = lipgloss.NewStyle().Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#64748B"))
	dangerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0055"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
)

const rule = "────────────────────────────────────────────────────────────────────────────────"

// RenderText renders the summary table followed by the run diagnostics
func RenderText(result *dto.MRPResult, config Config) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("MRP ANALYSIS RESULTS"))
	b.WriteString("\n\n")

	shortages := result.Shortages()
	fmt.Fprintf(&b, "  Run:             %s\n", result.RunID)
	fmt.Fprintf(&b, "  Reference date:  %s\n", formatDate(result.ReferenceDay))
	fmt.Fprintf(&b, "  Orders:          %d expanded, %d skipped\n", result.Stats.OrdersExpanded, result.Stats.OrdersSkipped)
	fmt.Fprintf(&b, "  Components:      %d (%d short)\n", len(result.Records), len(shortages))
	fmt.Fprintf(&b, "  Branches pruned: %d\n", result.Stats.BranchesPruned())
	if config.Elapsed > 0 {
		fmt.Fprintf(&b, "  Elapsed:         %v\n", config.Elapsed)
	}
	b.WriteString("\n")

	if len(result.Records) > 0 {
		b.WriteString(headerStyle.Render(fmt.Sprintf("%-16s %-24s %12s %12s %12s %6s  %-10s",
			"Code", "Name", "Gross", "In stock", "Shortage", "Lead", "Purchase")))
		b.WriteString("\n")
		b.WriteString(dimStyle.Render(rule))
		b.WriteString("\n")

		for _, row := range SummaryRows(result) {
			line := fmt.Sprintf("%-16s %-24s %12s %12s %12s %6d  %-10s",
				truncate(row.Code, 16),
				truncate(row.Name, 24),
				row.Gross,
				row.InStock,
				row.Shortage,
				row.LeadTimeDays,
				row.PurchaseDate)
			if row.Shortage != "0" {
				line = dangerStyle.Render(line)
			}
			b.WriteString(line)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if len(result.Diagnostics) > 0 {
		b.WriteString(headerStyle.Render("Diagnostics"))
		b.WriteString("\n")
		b.WriteString(dimStyle.Render(rule))
		b.WriteString("\n")
		for _, d := range result.Diagnostics {
			line := fmt.Sprintf("[%s] %s", d.Kind, d.Message)
			if len(d.Path) > 0 {
				line += " (" + strings.Join(d.Path, " > ") + ")"
			}
			b.WriteString(warnStyle.Render(line))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if config.Verbose && len(shortages) > 0 {
		b.WriteString(headerStyle.Render("Contributions"))
		b.WriteString("\n")
		b.WriteString(dimStyle.Render(rule))
		b.WriteString("\n")
		for _, rec := range shortages {
			fmt.Fprintf(&b, "%s\n", rec.Code)
			for _, c := range rec.Contributions {
				fmt.Fprintf(&b, "  order %d via %s/%s: %s x %s = %s\n",
					c.OrderID, c.OriginListCode, c.ListCode, c.OrderQuantity, c.QuantityPerUnit, c.ContributedQty)
			}
		}
		b.WriteString("\n")
	}

	return b.String()
}

// WriteFlatText writes the leveled BOM table as aligned text
func WriteFlatText(w io.Writer, rows []flatten.Row) error {
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("%-14s %-14s %-14s %-14s %-14s %-12s %-20s %10s %10s %12s",
		"Series", "System", "Assembly", "Subassembly", "Item", "List", "Component", "Qty", "Weight %", "Weighted")))
	b.WriteString("\n")

	for _, row := range rows {
		levels := row.Levels()
		component := row.ComponentCode
		if row.Group {
			component = "(group)"
		}
		line := fmt.Sprintf("%-14s %-14s %-14s %-14s %-14s %-12s %-20s %10s %10s %12s",
			truncate(levels[0], 14),
			truncate(levels[1], 14),
			truncate(levels[2], 14),
			truncate(levels[3], 14),
			truncate(levels[4], 14),
			truncate(row.ListCode, 12),
			truncate(component, 20),
			row.Quantity.String(),
			row.Weighting.String(),
			row.WeightedQuantity.StringFixed(entities.WeightingPrecision))
		if row.Group {
			line = dimStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width <= 1 {
		return string(r[:width])
	}
	return string(r[:width-1]) + "…"
}
