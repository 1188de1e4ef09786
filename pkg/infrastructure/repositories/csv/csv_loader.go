package csv

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/mrpbom/pkg/domain/entities"
	"github.com/vsinha/mrpbom/pkg/infrastructure/repositories/memory"
)

// Scenario file names inside a scenario directory
const (
	ComponentsFile = "components.csv"
	ListsFile      = "lists.csv"
	BOMFile        = "bom.csv"
	OrdersFile     = "orders.csv"
	StockFile      = "stock.csv"
)

var (
	componentsHeader = []string{"id", "code", "name", "unit_of_measure", "stock_quantity", "lead_time_days", "kind"}
	listsHeader      = []string{"id", "code", "name", "category", "parent_id"}
	bomHeader        = []string{"id", "parent_list_id", "child_component_id", "child_list_id", "quantity", "weighting", "comment"}
	ordersHeader     = []string{"id", "target_list_id", "quantity", "due_date"}
	stockHeader      = []string{"code", "quantity"}
)

// Scenario is a catalog plus the production orders to explode against it
type Scenario struct {
	Components []*entities.Component
	Lists      []*entities.TechnicalList
	Lines      []*entities.BOMLine
	Orders     []*entities.ProductionOrder
}

// Catalog loads the scenario into a new in-memory catalog
func (s *Scenario) Catalog() (*memory.CatalogRepository, error) {
	repo := memory.NewCatalogRepository(len(s.Components), len(s.Lists), len(s.Lines))
	if err := repo.LoadComponents(s.Components); err != nil {
		return nil, fmt.Errorf("failed to load components: %w", err)
	}
	if err := repo.LoadLists(s.Lists); err != nil {
		return nil, fmt.Errorf("failed to load lists: %w", err)
	}
	if err := repo.LoadBOMLines(s.Lines); err != nil {
		return nil, fmt.Errorf("failed to load bom lines: %w", err)
	}
	return repo, nil
}

// OrderRepository loads the scenario's orders into a new in-memory repository
func (s *Scenario) OrderRepository() (*memory.OrderRepository, error) {
	repo := memory.NewOrderRepository()
	if err := repo.LoadOrders(s.Orders); err != nil {
		return nil, err
	}
	return repo, nil
}

// Loader handles loading MRP data from CSV files
type Loader struct{}

// NewLoader creates a new CSV loader
func NewLoader() *Loader {
	return &Loader{}
}

// LoadScenario reads components, lists, bom lines and orders from dir.
// orders.csv is optional.
func (l *Loader) LoadScenario(dir string) (*Scenario, error) {
	components, err := l.LoadComponents(filepath.Join(dir, ComponentsFile))
	if err != nil {
		return nil, err
	}
	lists, err := l.LoadLists(filepath.Join(dir, ListsFile))
	if err != nil {
		return nil, err
	}
	lines, err := l.LoadBOM(filepath.Join(dir, BOMFile))
	if err != nil {
		return nil, err
	}

	scenario := &Scenario{Components: components, Lists: lists, Lines: lines}

	ordersPath := filepath.Join(dir, OrdersFile)
	if _, err := os.Stat(ordersPath); err == nil {
		orders, err := l.LoadOrders(ordersPath)
		if err != nil {
			return nil, err
		}
		scenario.Orders = orders
	}

	return scenario, nil
}

// LoadComponents loads components from a CSV file
func (l *Loader) LoadComponents(filename string) ([]*entities.Component, error) {
	records, err := readTable(filename, "components", componentsHeader)
	if err != nil {
		return nil, err
	}

	components := make([]*entities.Component, 0, len(records))
	for i, record := range records {
		component, err := parseComponent(record)
		if err != nil {
			return nil, fmt.Errorf("components CSV row %d: %w", i+2, err)
		}
		components = append(components, component)
	}
	return components, nil
}

// LoadLists loads technical lists from a CSV file
func (l *Loader) LoadLists(filename string) ([]*entities.TechnicalList, error) {
	records, err := readTable(filename, "lists", listsHeader)
	if err != nil {
		return nil, err
	}

	lists := make([]*entities.TechnicalList, 0, len(records))
	for i, record := range records {
		list, err := parseList(record)
		if err != nil {
			return nil, fmt.Errorf("lists CSV row %d: %w", i+2, err)
		}
		lists = append(lists, list)
	}
	return lists, nil
}

// LoadBOM loads BOM lines from a CSV file. Lines are parsed but not
// validated, so that a broken catalog can still be reported on.
func (l *Loader) LoadBOM(filename string) ([]*entities.BOMLine, error) {
	records, err := readTable(filename, "BOM", bomHeader)
	if err != nil {
		return nil, err
	}

	lines := make([]*entities.BOMLine, 0, len(records))
	for i, record := range records {
		line, err := parseBOMLine(record)
		if err != nil {
			return nil, fmt.Errorf("BOM CSV row %d: %w", i+2, err)
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// LoadOrders loads production orders from a CSV file
func (l *Loader) LoadOrders(filename string) ([]*entities.ProductionOrder, error) {
	records, err := readTable(filename, "orders", ordersHeader)
	if err != nil {
		return nil, err
	}

	orders := make([]*entities.ProductionOrder, 0, len(records))
	for i, record := range records {
		order, err := parseOrder(record)
		if err != nil {
			return nil, fmt.Errorf("orders CSV row %d: %w", i+2, err)
		}
		orders = append(orders, order)
	}
	return orders, nil
}

// LoadStock loads a stock snapshot (code, quantity). Repeated codes are summed.
func (l *Loader) LoadStock(filename string) (*entities.StockSnapshot, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open stock file %s: %w", filename, err)
	}
	defer file.Close()

	return l.ReadStock(file)
}

// ReadStock parses a stock snapshot from r
func (l *Loader) ReadStock(r io.Reader) (*entities.StockSnapshot, error) {
	records, err := readRecords(r, "stock", stockHeader)
	if err != nil {
		return nil, err
	}

	snapshot := entities.NewStockSnapshot()
	for i, record := range records {
		qty, err := parseDecimal("quantity", record[1])
		if err != nil {
			return nil, fmt.Errorf("stock CSV row %d: %w", i+2, err)
		}
		if err := snapshot.Add(record[0], qty); err != nil {
			return nil, fmt.Errorf("stock CSV row %d: %w", i+2, err)
		}
	}
	if err := snapshot.Validate(); err != nil {
		return nil, fmt.Errorf("stock CSV: %w", err)
	}
	return snapshot, nil
}

// readTable reads a CSV file, checks its header and returns the data rows
func readTable(filename, name string, expectedHeader []string) ([][]string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s file %s: %w", name, filename, err)
	}
	defer file.Close()

	return readRecords(file, name, expectedHeader)
}

func readRecords(r io.Reader, name string, expectedHeader []string) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s CSV: %w", name, err)
	}

	if len(records) < 1 {
		return nil, fmt.Errorf("%s CSV must have a header row", name)
	}

	header := records[0]
	if !validateHeader(header, expectedHeader) {
		return nil, fmt.Errorf("%s CSV header mismatch. Expected: %v, Got: %v", name, expectedHeader, header)
	}

	rows := records[1:]
	for i, record := range rows {
		if len(record) != len(expectedHeader) {
			return nil, fmt.Errorf("%s CSV row %d: expected %d columns, got %d", name, i+2, len(expectedHeader), len(record))
		}
	}
	return rows, nil
}

// Helper functions for parsing CSV records

func validateHeader(actual, expected []string) bool {
	if len(actual) != len(expected) {
		return false
	}

	for i, col := range expected {
		// tolerate a UTF-8 BOM written by spreadsheet exports
		if strings.ToLower(strings.TrimSpace(strings.TrimPrefix(actual[i], "\ufeff"))) != col {
			return false
		}
	}

	return true
}

func parseComponent(record []string) (*entities.Component, error) {
	id, err := parseID("id", record[0])
	if err != nil {
		return nil, err
	}

	stock := decimal.Zero
	if strings.TrimSpace(record[4]) != "" {
		if stock, err = parseDecimal("stock_quantity", record[4]); err != nil {
			return nil, err
		}
	}

	leadTimeDays := 0
	if s := strings.TrimSpace(record[5]); s != "" {
		if leadTimeDays, err = strconv.Atoi(s); err != nil {
			return nil, fmt.Errorf("invalid lead_time_days: %s", record[5])
		}
	}

	kind, err := entities.ParseComponentKind(record[6])
	if err != nil {
		return nil, err
	}

	return entities.NewComponent(
		entities.ComponentID(id),
		strings.TrimSpace(record[1]),
		strings.TrimSpace(record[2]),
		strings.TrimSpace(record[3]),
		stock,
		leadTimeDays,
		kind,
	)
}

func parseList(record []string) (*entities.TechnicalList, error) {
	id, err := parseID("id", record[0])
	if err != nil {
		return nil, err
	}

	category, err := entities.ParseCategory(record[3])
	if err != nil {
		return nil, err
	}

	parentID, err := parseOptionalID("parent_id", record[4])
	if err != nil {
		return nil, err
	}

	return entities.NewTechnicalList(
		entities.ListID(id),
		strings.TrimSpace(record[1]),
		strings.TrimSpace(record[2]),
		category,
		entities.ListID(parentID),
	)
}

func parseBOMLine(record []string) (*entities.BOMLine, error) {
	id, err := parseID("id", record[0])
	if err != nil {
		return nil, err
	}
	parent, err := parseOptionalID("parent_list_id", record[1])
	if err != nil {
		return nil, err
	}
	childComponent, err := parseOptionalID("child_component_id", record[2])
	if err != nil {
		return nil, err
	}
	childList, err := parseOptionalID("child_list_id", record[3])
	if err != nil {
		return nil, err
	}
	quantity, err := parseDecimal("quantity", record[4])
	if err != nil {
		return nil, err
	}

	var weighting decimal.NullDecimal
	if s := strings.TrimSuffix(strings.TrimSpace(record[5]), "%"); s != "" {
		w, err := parseDecimal("weighting", s)
		if err != nil {
			return nil, err
		}
		weighting = entities.Weight(w)
	}

	return &entities.BOMLine{
		ID:               entities.LineID(id),
		ParentListID:     entities.ListID(parent),
		ChildComponentID: entities.ComponentID(childComponent),
		ChildListID:      entities.ListID(childList),
		Quantity:         quantity,
		Weighting:        weighting,
		Comment:          record[6],
	}, nil
}

func parseOrder(record []string) (*entities.ProductionOrder, error) {
	id, err := parseID("id", record[0])
	if err != nil {
		return nil, err
	}
	target, err := parseOptionalID("target_list_id", record[1])
	if err != nil {
		return nil, err
	}
	quantity, err := parseDecimal("quantity", record[2])
	if err != nil {
		return nil, err
	}
	dueDate, err := time.Parse("2006-01-02", strings.TrimSpace(record[3]))
	if err != nil {
		return nil, fmt.Errorf("invalid due_date format: %s (expected YYYY-MM-DD)", record[3])
	}

	// quantity is checked by the engine so lenient runs can skip the order
	return &entities.ProductionOrder{
		ID:           entities.OrderID(id),
		TargetListID: entities.ListID(target),
		Quantity:     quantity,
		DueDate:      dueDate,
	}, nil
}

func parseID(field, s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s: %s", field, s)
	}
	return id, nil
}

func parseOptionalID(field, s string) (int64, error) {
	if strings.TrimSpace(s) == "" {
		return 0, nil
	}
	return parseID(field, s)
}

// parseDecimal accepts both "1.5" and the comma decimal separator "1,5"
func parseDecimal(field, s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if strings.Contains(s, ",") && !strings.Contains(s, ".") {
		s = strings.ReplaceAll(s, ",", ".")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s: %s", field, s)
	}
	return d, nil
}
