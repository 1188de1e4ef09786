// Package source loads the catalog snapshot and production orders a run
// works on, from a CSV scenario directory or from Postgres.
package source

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/vsinha/mrpbom/pkg/config"
	"github.com/vsinha/mrpbom/pkg/domain/entities"
	csvrepo "github.com/vsinha/mrpbom/pkg/infrastructure/repositories/csv"
	"github.com/vsinha/mrpbom/pkg/infrastructure/repositories/memory"
	"github.com/vsinha/mrpbom/pkg/infrastructure/repositories/postgres"
	xlsxrepo "github.com/vsinha/mrpbom/pkg/infrastructure/repositories/xlsx"
)

// Snapshot is an immutable catalog plus the orders to explode against it
type Snapshot struct {
	Catalog *memory.CatalogRepository
	Orders  []*entities.ProductionOrder
}

// Source provides snapshots and accepts stock updates
type Source interface {
	Load(ctx context.Context) (*Snapshot, error)
	ApplyStock(ctx context.Context, stock *entities.StockSnapshot, zeroMissing bool) (*entities.StockUpdate, error)
	Close() error
}

// New opens the source selected by cfg.Data.Source
func New(cfg *config.Config) (Source, error) {
	switch strings.ToLower(cfg.Data.Source) {
	case "", "csv":
		if cfg.Data.ScenarioDir == "" {
			return nil, config.ErrNoScenario
		}
		return NewCSVSource(cfg.Data.ScenarioDir), nil
	case "postgres":
		db, err := postgres.NewDB(cfg.Database)
		if err != nil {
			return nil, err
		}
		return NewPostgresSource(db), nil
	default:
		return nil, fmt.Errorf("unknown data source: %s (expected csv or postgres)", cfg.Data.Source)
	}
}

// CSVSource re-reads a scenario directory on every load. Uploaded stock is
// kept in memory and applied on top of the file quantities.
type CSVSource struct {
	dir    string
	loader *csvrepo.Loader

	mu          sync.RWMutex
	stock       *entities.StockSnapshot
	zeroMissing bool
}

func NewCSVSource(dir string) *CSVSource {
	return &CSVSource{dir: dir, loader: csvrepo.NewLoader()}
}

func (s *CSVSource) Load(ctx context.Context) (*Snapshot, error) {
	scenario, err := s.loader.LoadScenario(s.dir)
	if err != nil {
		return nil, err
	}
	catalog, err := scenario.Catalog()
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	stock, zeroMissing := s.stock, s.zeroMissing
	s.mu.RUnlock()
	if stock != nil {
		if _, err := catalog.ApplyStock(stock, zeroMissing); err != nil {
			return nil, err
		}
	}

	return &Snapshot{Catalog: catalog, Orders: scenario.Orders}, nil
}

func (s *CSVSource) ApplyStock(ctx context.Context, stock *entities.StockSnapshot, zeroMissing bool) (*entities.StockUpdate, error) {
	scenario, err := s.loader.LoadScenario(s.dir)
	if err != nil {
		return nil, err
	}
	catalog, err := scenario.Catalog()
	if err != nil {
		return nil, err
	}
	update, err := catalog.ApplyStock(stock, zeroMissing)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.stock, s.zeroMissing = stock, zeroMissing
	s.mu.Unlock()
	return update, nil
}

func (s *CSVSource) Close() error {
	return nil
}

// PostgresSource snapshots the database on every load
type PostgresSource struct {
	db   *postgres.DB
	repo *postgres.CatalogRepository
}

func NewPostgresSource(db *postgres.DB) *PostgresSource {
	return &PostgresSource{db: db, repo: postgres.NewCatalogRepository(db)}
}

func (s *PostgresSource) Load(ctx context.Context) (*Snapshot, error) {
	catalog, err := s.repo.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	orders, err := s.repo.GetOrders(ctx)
	if err != nil {
		return nil, err
	}
	return &Snapshot{Catalog: catalog, Orders: orders}, nil
}

func (s *PostgresSource) ApplyStock(ctx context.Context, stock *entities.StockSnapshot, zeroMissing bool) (*entities.StockUpdate, error) {
	return s.repo.ApplyStockContext(ctx, stock, zeroMissing)
}

func (s *PostgresSource) Close() error {
	return s.db.Close()
}

// LoadStockFile reads a stock snapshot from an .xlsx or .csv file
func LoadStockFile(path string) (*entities.StockSnapshot, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return xlsxrepo.LoadStock(path)
	case ".csv":
		return csvrepo.NewLoader().LoadStock(path)
	default:
		return nil, fmt.Errorf("unsupported stock file %s (expected .xlsx or .csv)", path)
	}
}
