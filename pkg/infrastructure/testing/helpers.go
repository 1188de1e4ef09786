package testing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/mrpbom/pkg/domain/entities"
	"github.com/vsinha/mrpbom/pkg/infrastructure/repositories/memory"
)

// CatalogBuilder assembles an in-memory catalog for tests. Builder methods
// panic on invalid input. Lines get sequential ids starting at 1 and are
// bulk-loaded, so cyclic structures can be built on purpose.
type CatalogBuilder struct {
	components []*entities.Component
	lists      []*entities.TechnicalList
	lines      []*entities.BOMLine
}

// NewCatalogBuilder creates an empty builder
func NewCatalogBuilder() *CatalogBuilder {
	return &CatalogBuilder{}
}

// Component adds a manufactured component
func (b *CatalogBuilder) Component(id entities.ComponentID, code, stock string, leadTimeDays int) *CatalogBuilder {
	return b.component(id, code, stock, leadTimeDays, entities.ManufacturedComponent)
}

// RawMaterial adds a raw-material component
func (b *CatalogBuilder) RawMaterial(id entities.ComponentID, code, stock string, leadTimeDays int) *CatalogBuilder {
	return b.component(id, code, stock, leadTimeDays, entities.RawMaterial)
}

func (b *CatalogBuilder) component(
	id entities.ComponentID,
	code, stock string,
	leadTimeDays int,
	kind entities.ComponentKind,
) *CatalogBuilder {
	c, err := entities.NewComponent(id, code, code, "EA", decimal.RequireFromString(stock), leadTimeDays, kind)
	if err != nil {
		panic(err)
	}
	b.components = append(b.components, c)
	return b
}

// List adds a technical list
func (b *CatalogBuilder) List(id entities.ListID, code string, category entities.Category) *CatalogBuilder {
	l, err := entities.NewTechnicalList(id, code, code, category, 0)
	if err != nil {
		panic(err)
	}
	b.lists = append(b.lists, l)
	return b
}

// Leaf adds a component line with the default weighting
func (b *CatalogBuilder) Leaf(parent entities.ListID, child entities.ComponentID, qty string) *CatalogBuilder {
	return b.line(parent, child, 0, qty, decimal.NullDecimal{})
}

// WeightedLeaf adds a component line with an explicit weighting percentage
func (b *CatalogBuilder) WeightedLeaf(parent entities.ListID, child entities.ComponentID, qty, weighting string) *CatalogBuilder {
	return b.line(parent, child, 0, qty, entities.Weight(decimal.RequireFromString(weighting)))
}

// Sub adds a sub-list line
func (b *CatalogBuilder) Sub(parent, child entities.ListID, qty string) *CatalogBuilder {
	return b.line(parent, 0, child, qty, decimal.NullDecimal{})
}

// RawLine appends a line without constructor validation
func (b *CatalogBuilder) RawLine(line entities.BOMLine) *CatalogBuilder {
	if line.ID == 0 {
		line.ID = entities.LineID(len(b.lines) + 1)
	}
	b.lines = append(b.lines, &line)
	return b
}

func (b *CatalogBuilder) line(
	parent entities.ListID,
	component entities.ComponentID,
	list entities.ListID,
	qty string,
	weighting decimal.NullDecimal,
) *CatalogBuilder {
	id := entities.LineID(len(b.lines) + 1)
	line, err := entities.NewBOMLine(id, parent, component, list, decimal.RequireFromString(qty), weighting, "")
	if err != nil {
		panic(err)
	}
	b.lines = append(b.lines, line)
	return b
}

// Build loads everything into a new catalog repository
func (b *CatalogBuilder) Build() *memory.CatalogRepository {
	repo := memory.NewCatalogRepository(len(b.components), len(b.lists), len(b.lines))
	if err := repo.LoadComponents(b.components); err != nil {
		panic(err)
	}
	if err := repo.LoadLists(b.lists); err != nil {
		panic(err)
	}
	if err := repo.LoadBOMLines(b.lines); err != nil {
		panic(err)
	}
	return repo
}

// Order creates a production order due on date (YYYY-MM-DD)
func Order(id entities.OrderID, target entities.ListID, qty, date string) *entities.ProductionOrder {
	o, err := entities.NewProductionOrder(id, target, decimal.RequireFromString(qty), Date(date))
	if err != nil {
		panic(err)
	}
	return o
}

// Date parses YYYY-MM-DD in UTC
func Date(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

// FixedClock returns a clock stuck at date
func FixedClock(date string) func() time.Time {
	d := Date(date)
	return func() time.Time { return d }
}

// BuildSimpleTestData builds a small bicycle catalog:
//
//	BIKE (series)
//	├── FRAME x1 (assembly): TUBE x3, PAINT x0.5 @50%
//	└── WHEEL x2 (subassembly): SPOKE x36, RIM x1
//
// with order 1 = 2 BIKE due 2025-03-10 and order 2 = 4 WHEEL due 2025-03-01.
func BuildSimpleTestData() (*memory.CatalogRepository, *memory.OrderRepository) {
	catalog := NewCatalogBuilder().
		Component(1, "TUBE", "5", 10).
		RawMaterial(2, "PAINT", "1", 3).
		Component(3, "SPOKE", "100", 5).
		Component(4, "RIM", "0", 20).
		List(1, "BIKE", entities.Series).
		List(2, "FRAME", entities.Assembly).
		List(3, "WHEEL", entities.Subassembly).
		Sub(1, 2, "1").
		Sub(1, 3, "2").
		Leaf(2, 1, "3").
		WeightedLeaf(2, 2, "0.5", "50").
		Leaf(3, 3, "36").
		Leaf(3, 4, "1").
		Build()

	orders := memory.NewOrderRepository()
	if err := orders.LoadOrders([]*entities.ProductionOrder{
		Order(1, 1, "2", "2025-03-10"),
		Order(2, 3, "4", "2025-03-01"),
	}); err != nil {
		panic(err)
	}
	return catalog, orders
}
