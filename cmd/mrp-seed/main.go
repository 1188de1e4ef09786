package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/vsinha/mrpbom/pkg/config"
	"github.com/vsinha/mrpbom/pkg/domain/entities"
	"github.com/vsinha/mrpbom/pkg/domain/services"
	"github.com/vsinha/mrpbom/pkg/infrastructure/cache"
	csvrepo "github.com/vsinha/mrpbom/pkg/infrastructure/repositories/csv"
	"github.com/vsinha/mrpbom/pkg/infrastructure/repositories/postgres"
	"github.com/vsinha/mrpbom/pkg/infrastructure/source"
	"github.com/vsinha/mrpbom/pkg/logger"
)

type dbKey struct{}

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "db-url",
		Usage:    "Database connection string",
		Required: true,
		EnvVars:  []string{"MRP_DATABASE_URL", "DATABASE_URL"},
	}
}

func initDB(c *cli.Context) error {
	db, err := postgres.Open("pgx", c.String("db-url"), c.Int64("max-tx"))
	if err != nil {
		return err
	}
	c.Context = context.WithValue(c.Context, dbKey{}, db)
	return nil
}

func closeDB(c *cli.Context) error {
	if db, ok := c.Context.Value(dbKey{}).(*postgres.DB); ok && db != nil {
		return db.Close()
	}
	return nil
}

func dbFrom(c *cli.Context) *postgres.DB {
	return c.Context.Value(dbKey{}).(*postgres.DB)
}

func main() {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Log.Warn().Err(err).Msg("could not load .env file")
	}

	dbFlags := []cli.Flag{
		newDBURLFlag(),
		&cli.Int64Flag{
			Name:  "max-tx",
			Usage: "Maximum concurrent write transactions",
			Value: 10,
		},
	}

	app := &cli.App{
		Name:  "mrp-seed",
		Usage: "Load catalogs, orders and stock snapshots into Postgres",
		Commands: []*cli.Command{
			{
				Name:  "schema",
				Usage: "Create the catalog tables",
				Flags: append(dbFlags, &cli.BoolFlag{
					Name:  "reset",
					Usage: "Drop every table first",
				}),
				Before: initDB,
				After:  closeDB,
				Action: runSchema,
			},
			{
				Name:  "catalog",
				Usage: "Load a CSV scenario directory (components, lists, bom, orders)",
				Flags: append(dbFlags,
					&cli.StringFlag{
						Name:    "scenario",
						Usage:   "Scenario directory",
						Value:   "./data",
						EnvVars: []string{"MRP_DATA_SCENARIO_DIR"},
					},
					&cli.BoolFlag{
						Name:  "skip-cycles",
						Usage: "Skip sub-list lines that would close a cycle instead of failing",
					},
				),
				Before: initDB,
				After:  closeDB,
				Action: runCatalog,
			},
			{
				Name:      "stock",
				Usage:     "Apply an .xlsx or .csv stock snapshot",
				ArgsUsage: "<file>",
				Flags: append(dbFlags, &cli.BoolFlag{
					Name:  "zero-missing",
					Usage: "Reset components absent from the file to 0",
				}),
				Before: initDB,
				After:  closeDB,
				Action: runStock,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("seed failed")
	}
}

func runSchema(c *cli.Context) error {
	db := dbFrom(c)
	if c.Bool("reset") {
		logger.Log.Warn().Msg("dropping catalog tables")
		return db.Reset(c.Context)
	}
	if err := db.Migrate(c.Context); err != nil {
		return err
	}
	logger.Log.Info().Msg("schema ready")
	return nil
}

// runCatalog stores components and lists in one transaction, then inserts
// BOM lines one at a time through the cycle guard
func runCatalog(c *cli.Context) error {
	ctx := c.Context
	dir := c.String("scenario")

	scenario, err := csvrepo.NewLoader().LoadScenario(dir)
	if err != nil {
		return err
	}

	validator := services.NewBOMValidator()
	result := validator.ValidateCatalog(scenario.Components, scenario.Lists, scenario.Lines)
	for _, err := range result.RecordErrors {
		logger.Log.Error().Err(err).Msg("invalid record")
	}
	if len(result.RecordErrors) > 0 {
		return fmt.Errorf("scenario %s has %d invalid records", dir, len(result.RecordErrors))
	}

	repo := postgres.NewCatalogRepository(dbFrom(c))
	if err := repo.SaveCatalog(ctx, scenario.Components, scenario.Lists, nil); err != nil {
		return err
	}

	skipped := 0
	for _, line := range scenario.Lines {
		err := repo.AddBOMLine(ctx, line)
		if err == nil {
			continue
		}
		if c.Bool("skip-cycles") && errors.Is(err, entities.ErrCycleDetected) {
			logger.Log.Warn().Err(err).Msg("skipping bom line")
			skipped++
			continue
		}
		return err
	}

	if err := repo.SaveOrders(ctx, scenario.Orders); err != nil {
		return err
	}

	logger.Log.Info().
		Str("scenario", dir).
		Int("components", len(scenario.Components)).
		Int("lists", len(scenario.Lists)).
		Int("bom_lines", len(scenario.Lines)-skipped).
		Int("skipped_lines", skipped).
		Int("orders", len(scenario.Orders)).
		Msg("catalog loaded")
	invalidateResults(ctx)
	return nil
}

func runStock(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected one stock file, got %d arguments", c.NArg())
	}
	path := c.Args().First()

	stock, err := source.LoadStockFile(path)
	if err != nil {
		return err
	}

	repo := postgres.NewCatalogRepository(dbFrom(c))
	update, err := repo.ApplyStockContext(c.Context, stock, c.Bool("zero-missing"))
	if err != nil {
		return err
	}

	logger.Log.Info().
		Str("file", path).
		Int("codes", stock.Len()).
		Int("updated", len(update.Updated)).
		Int("zeroed", len(update.Zeroed)).
		Strs("unknown", update.Unknown).
		Msg("stock snapshot applied")
	invalidateResults(c.Context)
	return nil
}

// invalidateResults drops cached MRP results once the database changed.
// Failures only warn: stale entries expire with their TTL.
func invalidateResults(ctx context.Context) {
	cfg, err := config.Load("")
	if err != nil {
		logger.Log.Warn().Err(err).Msg("could not load cache config")
		return
	}
	runCache, err := cache.NewRunCache(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("result cache unavailable")
		return
	}
	defer runCache.Close()

	if err := runCache.InvalidateAll(ctx); err != nil {
		logger.Log.Warn().Err(err).Msg("could not invalidate cached results")
		return
	}
	logger.Log.Debug().Msg("cached results invalidated")
}
