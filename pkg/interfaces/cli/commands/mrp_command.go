package commands

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/vsinha/mrpbom/pkg/application/services/mrp"
	"github.com/vsinha/mrpbom/pkg/config"
	"github.com/vsinha/mrpbom/pkg/infrastructure/cache"
	"github.com/vsinha/mrpbom/pkg/infrastructure/repositories/memory"
	"github.com/vsinha/mrpbom/pkg/infrastructure/source"
	"github.com/vsinha/mrpbom/pkg/interfaces/cli/output"
	"github.com/vsinha/mrpbom/pkg/logger"
)

// Config holds configuration for the run command
type Config struct {
	ScenarioDir string
	StockFile   string
	ZeroMissing bool
	OutputDir   string
	Format      string
	Verbose     bool
	NoCache     bool
}

// MRPCommand loads a catalog snapshot, runs the engine and writes the result
type MRPCommand struct {
	config Config
	app    config.Config
	out    io.Writer
}

// NewMRPCommand creates a run command over the loaded application config
func NewMRPCommand(cfg Config, app config.Config, out io.Writer) *MRPCommand {
	if cfg.ScenarioDir != "" {
		app.Data.Source = "csv"
		app.Data.ScenarioDir = cfg.ScenarioDir
	}
	if cfg.StockFile == "" {
		cfg.StockFile = app.Data.StockFile
	}
	return &MRPCommand{config: cfg, app: app, out: out}
}

// Execute runs the MRP command
func (c *MRPCommand) Execute(ctx context.Context) error {
	start := time.Now()
	log := logger.Component("run")

	engineConfig, err := c.app.Engine.ToEngineConfig()
	if err != nil {
		return err
	}

	src, err := source.New(&c.app)
	if err != nil {
		return fmt.Errorf("failed to open data source: %w", err)
	}
	defer src.Close()

	if c.config.StockFile != "" {
		stock, err := source.LoadStockFile(c.config.StockFile)
		if err != nil {
			return fmt.Errorf("error loading stock: %w", err)
		}
		update, err := src.ApplyStock(ctx, stock, c.config.ZeroMissing)
		if err != nil {
			return fmt.Errorf("failed to apply stock: %w", err)
		}
		log.Info().
			Str("file", c.config.StockFile).
			Int("updated", len(update.Updated)).
			Int("zeroed", len(update.Zeroed)).
			Strs("unknown", update.Unknown).
			Msg("stock snapshot applied")
	}

	snapshot, err := src.Load(ctx)
	if err != nil {
		return fmt.Errorf("error loading catalog: %w", err)
	}
	components, lists, lines := snapshot.Catalog.Counts()
	log.Debug().
		Int("components", components).
		Int("lists", lists).
		Int("bom_lines", lines).
		Int("orders", len(snapshot.Orders)).
		Msg("catalog loaded")

	runCache := c.openCache()
	defer runCache.Close()

	service := mrp.NewMRPService(mrp.WithConfig(engineConfig))
	result, cached, err := service.RunCached(ctx, runCache, snapshot.Catalog, snapshot.Orders)
	if err != nil {
		return fmt.Errorf("MRP run failed: %w", err)
	}
	if cached {
		log.Info().Str("run_id", result.RunID).Msg("using cached result")
	}
	mem := memory.GetMemoryStats()
	log.Debug().
		Str("alloc", memory.FormatBytes(mem.AllocBytes)).
		Str("total_alloc", memory.FormatBytes(mem.TotalAllocBytes)).
		Uint64("heap_objects", mem.HeapObjects).
		Dur("elapsed", time.Since(start)).
		Msg("run finished")

	return output.Generate(c.out, result, output.Config{
		Format:     c.config.Format,
		OutputDir:  c.config.OutputDir,
		Verbose:    c.config.Verbose,
		Elapsed:    time.Since(start),
		InputFiles: c.inputFiles(),
	})
}

// openCache falls back to no caching when Redis is unreachable
func (c *MRPCommand) openCache() cache.RunCache {
	if c.config.NoCache {
		return cache.NewNoopRunCache()
	}
	runCache, err := cache.NewRunCache(c.app.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("result cache unavailable, running without it")
		return cache.NewNoopRunCache()
	}
	return runCache
}

func (c *MRPCommand) inputFiles() map[string]string {
	files := map[string]string{"source": c.app.Data.Source}
	if c.app.Data.Source == "" || c.app.Data.Source == "csv" {
		files["scenario"] = c.app.Data.ScenarioDir
	}
	if c.config.StockFile != "" {
		files["stock"] = c.config.StockFile
	}
	return files
}

// engineFlags are per-invocation overrides of the engine section
type engineFlags struct {
	quantityPolicy string
	datePolicy     string
	cycleGuard     string
	strictness     string
	parallelism    int
	maxDepth       int
}

func (f *engineFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.quantityPolicy, "quantity-policy", "", "weighted or raw")
	cmd.Flags().StringVar(&f.datePolicy, "date-policy", "", "global or per_component")
	cmd.Flags().StringVar(&f.cycleGuard, "cycle-guard", "", "path or traversal")
	cmd.Flags().StringVar(&f.strictness, "strictness", "", "strict or lenient")
	cmd.Flags().IntVar(&f.parallelism, "parallelism", 0, "Orders expanded concurrently")
	cmd.Flags().IntVar(&f.maxDepth, "max-depth", 0, "Maximum sub-list depth")
}

func (f *engineFlags) apply(cmd *cobra.Command, e *config.EngineConfig) {
	if cmd.Flags().Changed("quantity-policy") {
		e.QuantityPolicy = f.quantityPolicy
	}
	if cmd.Flags().Changed("date-policy") {
		e.DatePolicy = f.datePolicy
	}
	if cmd.Flags().Changed("cycle-guard") {
		e.CycleGuard = f.cycleGuard
	}
	if cmd.Flags().Changed("strictness") {
		e.Strictness = f.strictness
	}
	if cmd.Flags().Changed("parallelism") {
		e.Parallelism = f.parallelism
	}
	if cmd.Flags().Changed("max-depth") {
		e.MaxDepth = f.maxDepth
	}
}

func newRunCmd(opts *rootOptions) *cobra.Command {
	var (
		cfg    Config
		engine engineFlags
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Explode production orders into net requirements",
		Example: `  mrp run --scenario ./data
  mrp run --scenario ./data --stock stock.xlsx --zero-missing --format xlsx --output ./out
  mrp run --strictness lenient --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := *opts.config
			engine.apply(cmd, &app.Engine)
			return NewMRPCommand(cfg, app, cmd.OutOrStdout()).Execute(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&cfg.ScenarioDir, "scenario", "", "CSV scenario directory (overrides data.source)")
	cmd.Flags().StringVar(&cfg.StockFile, "stock", "", "Stock snapshot (.xlsx or .csv) applied before the run")
	cmd.Flags().BoolVar(&cfg.ZeroMissing, "zero-missing", false, "Reset components absent from the stock file to 0")
	cmd.Flags().StringVar(&cfg.OutputDir, "output", "", "Write results into this directory")
	cmd.Flags().StringVar(&cfg.Format, "format", "text", "text, json, csv, xlsx or svg")
	cmd.Flags().BoolVarP(&cfg.Verbose, "verbose", "v", false, "Show per-order contributions")
	cmd.Flags().BoolVar(&cfg.NoCache, "no-cache", false, "Skip the result cache")
	engine.register(cmd)
	return cmd
}
