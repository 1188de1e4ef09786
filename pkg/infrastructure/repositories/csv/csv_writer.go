package csv

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/vsinha/mrpbom/pkg/domain/entities"
)

// WriteScenario writes the scenario into dir using the loader's file layout
func WriteScenario(dir string, s *Scenario) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create scenario directory: %w", err)
	}

	components := [][]string{componentsHeader}
	for _, c := range s.Components {
		components = append(components, []string{
			formatID(int64(c.ID)),
			c.Code,
			c.Name,
			c.UnitOfMeasure,
			c.StockQuantity.String(),
			strconv.Itoa(c.LeadTimeDays),
			c.Kind.String(),
		})
	}

	lists := [][]string{listsHeader}
	for _, l := range s.Lists {
		lists = append(lists, []string{
			formatID(int64(l.ID)),
			l.Code,
			l.Name,
			l.Category.String(),
			formatID(int64(l.ParentID)),
		})
	}

	lines := [][]string{bomHeader}
	for _, line := range s.Lines {
		weighting := ""
		if line.Weighting.Valid {
			weighting = line.Weighting.Decimal.String()
		}
		lines = append(lines, []string{
			formatID(int64(line.ID)),
			formatID(int64(line.ParentListID)),
			formatID(int64(line.ChildComponentID)),
			formatID(int64(line.ChildListID)),
			line.Quantity.String(),
			weighting,
			line.Comment,
		})
	}

	orders := [][]string{ordersHeader}
	for _, o := range s.Orders {
		orders = append(orders, []string{
			formatID(int64(o.ID)),
			formatID(int64(o.TargetListID)),
			o.Quantity.String(),
			o.DueDate.Format("2006-01-02"),
		})
	}

	files := []struct {
		name string
		rows [][]string
	}{
		{ComponentsFile, components},
		{ListsFile, lists},
		{BOMFile, lines},
		{OrdersFile, orders},
	}
	for _, f := range files {
		if err := writeFile(filepath.Join(dir, f.name), f.rows); err != nil {
			return err
		}
	}
	return nil
}

// WriteStock writes a stock snapshot as code,quantity rows
func WriteStock(filename string, snapshot *entities.StockSnapshot) error {
	rows := [][]string{stockHeader}
	for _, code := range snapshot.Codes() {
		qty, _ := snapshot.Get(code)
		rows = append(rows, []string{code, qty.String()})
	}
	return writeFile(filename, rows)
}

func writeFile(filename string, rows [][]string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filename, err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write %s: %w", filename, err)
	}
	return nil
}

func formatID(id int64) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}
