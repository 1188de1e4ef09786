package repositories

import "github.com/vsinha/mrpbom/pkg/domain/entities"

// ComponentRepository provides access to leaf component master data
type ComponentRepository interface {
	GetComponent(id entities.ComponentID) (*entities.Component, error)
	GetComponentByCode(code string) (*entities.Component, error)
	GetAllComponents() ([]*entities.Component, error)
	LoadComponents(components []*entities.Component) error
}

// ListRepository provides access to technical lists
type ListRepository interface {
	GetList(id entities.ListID) (*entities.TechnicalList, error)
	GetAllLists() ([]*entities.TechnicalList, error)
	LoadLists(lists []*entities.TechnicalList) error
}

// BOMRepository provides access to Bill of Materials lines.
// GetBOMLines returns the lines of one parent list in insertion order.
type BOMRepository interface {
	GetBOMLines(parent entities.ListID) ([]*entities.BOMLine, error)
	GetAllBOMLines() ([]*entities.BOMLine, error)
	LoadBOMLines(lines []*entities.BOMLine) error
}

// CatalogReader is the read-only view the explosion engine works against
type CatalogReader interface {
	GetComponent(id entities.ComponentID) (*entities.Component, error)
	GetList(id entities.ListID) (*entities.TechnicalList, error)
	GetBOMLines(parent entities.ListID) ([]*entities.BOMLine, error)
	GetAllComponents() ([]*entities.Component, error)
	GetAllLists() ([]*entities.TechnicalList, error)
	GetAllBOMLines() ([]*entities.BOMLine, error)
}

// CatalogRepository bundles every catalog concern
type CatalogRepository interface {
	ComponentRepository
	ListRepository
	BOMRepository
}

// OrderRepository provides access to production orders
type OrderRepository interface {
	GetOrders() ([]*entities.ProductionOrder, error)
	LoadOrders(orders []*entities.ProductionOrder) error
}

// StockRepository applies an external stock snapshot to the catalog
type StockRepository interface {
	ApplyStock(snapshot *entities.StockSnapshot, zeroMissing bool) (*entities.StockUpdate, error)
}
