package output

import (
	"fmt"
	"html"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/vsinha/mrpbom/pkg/application/dto"
	"github.com/vsinha/mrpbom/pkg/domain/entities"
)

const day = 24 * time.Hour

// PurchaseChart draws the purchase schedule: one row per short component,
// with a bar spanning its lead time from purchase date to due date
type PurchaseChart struct {
	Width        int
	Height       int
	MarginLeft   int
	MarginTop    int
	MarginRight  int
	MarginBottom int
	RowHeight    int
	StartTime    time.Time
	EndTime      time.Time
	// Today marks purchases that are already late
	Today time.Time
}

// PurchaseBar is one component's lead-time window
type PurchaseBar struct {
	Code         string
	Kind         entities.ComponentKind
	Shortage     string
	PurchaseDate time.Time
	DueDate      time.Time
	X            int
	Width        int
	Color        string
	Late         bool
}

// NewPurchaseChart sizes the chart for the result's short components
func NewPurchaseChart(result *dto.MRPResult) *PurchaseChart {
	chart := &PurchaseChart{
		Width:        800,
		Height:       200,
		MarginLeft:   150,
		MarginTop:    50,
		MarginRight:  50,
		MarginBottom: 50,
		RowHeight:    25,
		Today:        entities.TruncateToDay(result.ComputedAt),
	}

	shortages := result.Shortages()
	if len(shortages) == 0 {
		return chart
	}

	startTime := shortages[0].PurchaseDate
	endTime := shortages[0].DueDate
	for _, rec := range shortages {
		if rec.PurchaseDate.Before(startTime) {
			startTime = rec.PurchaseDate
		}
		if rec.DueDate.After(endTime) {
			endTime = rec.DueDate
		}
	}

	// 10% padding, at least one day on each side
	padding := time.Duration(float64(endTime.Sub(startTime)) * 0.1)
	if padding < day {
		padding = day
	}

	rowHeight := 30
	chart.Width = 1200
	chart.Height = len(shortages)*rowHeight + 170
	chart.MarginLeft = 200
	chart.MarginTop = 60
	chart.MarginRight = 100
	chart.MarginBottom = 80
	chart.RowHeight = rowHeight
	chart.StartTime = startTime.Add(-padding)
	chart.EndTime = endTime.Add(padding)
	return chart
}

// GenerateSVG renders the chart
func (pc *PurchaseChart) GenerateSVG(result *dto.MRPResult) string {
	shortages := result.Shortages()
	if len(shortages) == 0 {
		return pc.generateEmptyChart()
	}

	var svg strings.Builder

	svg.WriteString(fmt.Sprintf(`<svg width="%d" height="%d" xmlns="http://www.w3.org/2000/svg">`, pc.Width, pc.Height))
	svg.WriteString(`<defs>`)
	svg.WriteString(`<style>`)
	svg.WriteString(`.part-label { font-family: Arial, sans-serif; font-size: 12px; fill: #333; }`)
	svg.WriteString(`.time-label { font-family: Arial, sans-serif; font-size: 10px; fill: #666; }`)
	svg.WriteString(`.title { font-family: Arial, sans-serif; font-size: 16px; font-weight: bold; fill: #333; }`)
	svg.WriteString(`.grid-line { stroke: #e0e0e0; stroke-width: 1; }`)
	svg.WriteString(`.order-bar { stroke: #333; stroke-width: 1; }`)
	svg.WriteString(`.order-text { font-family: Arial, sans-serif; font-size: 9px; fill: white; }`)
	svg.WriteString(`</style>`)
	svg.WriteString(`</defs>`)

	svg.WriteString(fmt.Sprintf(`<rect width="%d" height="%d" fill="white"/>`, pc.Width, pc.Height))
	svg.WriteString(fmt.Sprintf(`<text x="%d" y="30" class="title" text-anchor="middle">Purchase Schedule - %s</text>`,
		pc.Width/2, formatDate(result.ReferenceDay)))

	bars := pc.createBars(shortages)

	pc.drawTimeAxis(&svg)
	pc.drawTimeGrid(&svg, len(bars))
	pc.drawRows(&svg, bars)
	pc.drawLegend(&svg)

	svg.WriteString(`</svg>`)
	return svg.String()
}

// createBars converts short records to bars, earliest purchase first
func (pc *PurchaseChart) createBars(records []*entities.RequirementRecord) []PurchaseBar {
	chartWidth := pc.Width - pc.MarginLeft - pc.MarginRight
	totalDuration := pc.EndTime.Sub(pc.StartTime)

	bars := make([]PurchaseBar, 0, len(records))
	for _, rec := range records {
		startOffset := rec.PurchaseDate.Sub(pc.StartTime)
		duration := rec.DueDate.Sub(rec.PurchaseDate)

		x := pc.MarginLeft + int(float64(startOffset)/float64(totalDuration)*float64(chartWidth))
		width := int(float64(duration) / float64(totalDuration) * float64(chartWidth))
		if width < 2 {
			width = 2
		}

		late := !pc.Today.IsZero() && rec.PurchaseDate.Before(pc.Today)
		bars = append(bars, PurchaseBar{
			Code:         rec.Code,
			Kind:         rec.Kind,
			Shortage:     rec.Shortage.String(),
			PurchaseDate: rec.PurchaseDate,
			DueDate:      rec.DueDate,
			X:            x,
			Width:        width,
			Color:        barColor(rec.Kind, late),
			Late:         late,
		})
	}

	sort.SliceStable(bars, func(i, j int) bool {
		return bars[i].PurchaseDate.Before(bars[j].PurchaseDate)
	})
	return bars
}

func (pc *PurchaseChart) interval() (time.Duration, string) {
	days := int(math.Ceil(pc.EndTime.Sub(pc.StartTime).Hours() / 24))
	switch {
	case days <= 30:
		return day, "Jan 2"
	case days <= 180:
		return 7 * day, "Jan 2"
	default:
		return 30 * day, "Jan 2006"
	}
}

func (pc *PurchaseChart) xFor(t time.Time) int {
	chartWidth := pc.Width - pc.MarginLeft - pc.MarginRight
	offset := t.Sub(pc.StartTime)
	return pc.MarginLeft + int(float64(offset)/float64(pc.EndTime.Sub(pc.StartTime))*float64(chartWidth))
}

func (pc *PurchaseChart) drawTimeAxis(svg *strings.Builder) {
	interval, labelFormat := pc.interval()

	for t := pc.StartTime.Truncate(interval); t.Before(pc.EndTime); t = t.Add(interval) {
		x := pc.xFor(t)
		if x >= pc.MarginLeft && x <= pc.Width-pc.MarginRight {
			svg.WriteString(fmt.Sprintf(`<text x="%d" y="%d" class="time-label" text-anchor="middle">%s</text>`,
				x, pc.Height-pc.MarginBottom+15, t.Format(labelFormat)))
		}
	}

	svg.WriteString(fmt.Sprintf(`<line x1="%d" y1="%d" x2="%d" y2="%d" class="grid-line"/>`,
		pc.MarginLeft, pc.Height-pc.MarginBottom, pc.Width-pc.MarginRight, pc.Height-pc.MarginBottom))

	if !pc.Today.IsZero() && !pc.Today.Before(pc.StartTime) && pc.Today.Before(pc.EndTime) {
		x := pc.xFor(pc.Today)
		svg.WriteString(fmt.Sprintf(`<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="#FF0055" stroke-dasharray="4 2"/>`,
			x, pc.MarginTop, x, pc.Height-pc.MarginBottom))
	}
}

func (pc *PurchaseChart) rowHeight(numRows int) int {
	available := pc.Height - pc.MarginBottom - 30 - pc.MarginTop
	h := available / numRows
	if h > pc.RowHeight {
		h = pc.RowHeight
	}
	return h
}

func (pc *PurchaseChart) drawTimeGrid(svg *strings.Builder, numRows int) {
	interval, _ := pc.interval()
	gridBottom := pc.MarginTop + numRows*pc.rowHeight(numRows)

	for t := pc.StartTime.Truncate(interval); t.Before(pc.EndTime); t = t.Add(interval) {
		x := pc.xFor(t)
		if x >= pc.MarginLeft && x <= pc.Width-pc.MarginRight {
			svg.WriteString(fmt.Sprintf(`<line x1="%d" y1="%d" x2="%d" y2="%d" class="grid-line"/>`,
				x, pc.MarginTop, x, gridBottom))
		}
	}
}

func (pc *PurchaseChart) drawRows(svg *strings.Builder, bars []PurchaseBar) {
	rowHeight := pc.rowHeight(len(bars))

	for i, bar := range bars {
		y := pc.MarginTop + i*rowHeight

		svg.WriteString(fmt.Sprintf(`<text x="%d" y="%d" class="part-label" text-anchor="end">%s</text>`,
			pc.MarginLeft-15, y+rowHeight/2+4, html.EscapeString(bar.Code)))
		svg.WriteString(fmt.Sprintf(`<line x1="%d" y1="%d" x2="%d" y2="%d" class="grid-line"/>`,
			pc.MarginLeft, y+rowHeight, pc.Width-pc.MarginRight, y+rowHeight))

		pc.drawBar(svg, bar, y, rowHeight)
	}
}

func (pc *PurchaseChart) drawBar(svg *strings.Builder, bar PurchaseBar, rowY, rowHeight int) {
	barHeight := rowHeight - 4
	barY := rowY + 2

	svg.WriteString(fmt.Sprintf(`<rect x="%d" y="%d" width="%d" height="%d" fill="%s" class="order-bar">`,
		bar.X, barY, bar.Width, barHeight, bar.Color))
	svg.WriteString(fmt.Sprintf(`<title>%s</title>`, html.EscapeString(fmt.Sprintf(
		"%s: short %s, buy by %s, needed %s",
		bar.Code, bar.Shortage, formatDate(bar.PurchaseDate), formatDate(bar.DueDate)))))
	svg.WriteString(`</rect>`)

	if bar.Width > 40 {
		svg.WriteString(fmt.Sprintf(`<text x="%d" y="%d" class="order-text" text-anchor="middle">%s</text>`,
			bar.X+bar.Width/2, barY+barHeight/2+3, html.EscapeString(bar.Shortage)))
	}
}

func (pc *PurchaseChart) drawLegend(svg *strings.Builder) {
	legendX := pc.Width - pc.MarginRight - 200
	legendY := 50

	svg.WriteString(fmt.Sprintf(`<rect x="%d" y="%d" width="180" height="60" fill="white" stroke="#ccc" stroke-width="1"/>`,
		legendX, legendY))
	svg.WriteString(fmt.Sprintf(`<text x="%d" y="%d" class="part-label" font-weight="bold">Legend</text>`,
		legendX+10, legendY+15))

	items := []struct {
		color string
		label string
	}{
		{barColor(entities.ManufacturedComponent, false), "Components"},
		{barColor(entities.RawMaterial, false), "Raw material"},
		{barColor(entities.ManufacturedComponent, true), "Purchase overdue"},
	}
	for i, item := range items {
		itemY := legendY + 25 + i*12
		svg.WriteString(fmt.Sprintf(`<rect x="%d" y="%d" width="12" height="8" fill="%s"/>`,
			legendX+10, itemY, item.color))
		svg.WriteString(fmt.Sprintf(`<text x="%d" y="%d" class="time-label">%s</text>`,
			legendX+30, itemY+6, item.label))
	}
}

func barColor(kind entities.ComponentKind, late bool) string {
	if late {
		return "#FF0055"
	}
	switch kind {
	case entities.RawMaterial:
		return "#FF9800"
	default:
		return "#2196F3"
	}
}

func (pc *PurchaseChart) generateEmptyChart() string {
	return fmt.Sprintf(`<svg width="%d" height="%d" xmlns="http://www.w3.org/2000/svg">
	<rect width="%d" height="%d" fill="white"/>
	<text x="%d" y="%d" class="title" text-anchor="middle">No Shortages</text>
	<style>
		.title { font-family: Arial, sans-serif; font-size: 16px; fill: #666; }
	</style>
</svg>`, pc.Width, pc.Height, pc.Width, pc.Height, pc.Width/2, pc.Height/2)
}
