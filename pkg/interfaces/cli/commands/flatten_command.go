package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/vsinha/mrpbom/pkg/application/services/flatten"
	"github.com/vsinha/mrpbom/pkg/config"
	"github.com/vsinha/mrpbom/pkg/domain/entities"
	"github.com/vsinha/mrpbom/pkg/infrastructure/source"
	"github.com/vsinha/mrpbom/pkg/interfaces/cli/output"
)

// FlattenConfig selects and formats the leveled BOM table
type FlattenConfig struct {
	ScenarioDir   string
	List          string
	IncludeGroups bool
	Search        string
	Format        string
	OutputFile    string
}

// FlattenCommand prints the technical list tree as a leveled table
type FlattenCommand struct {
	config FlattenConfig
	app    config.Config
	out    io.Writer
}

func NewFlattenCommand(cfg FlattenConfig, app config.Config, out io.Writer) *FlattenCommand {
	if cfg.ScenarioDir != "" {
		app.Data.Source = "csv"
		app.Data.ScenarioDir = cfg.ScenarioDir
	}
	return &FlattenCommand{config: cfg, app: app, out: out}
}

func (c *FlattenCommand) Execute(ctx context.Context) error {
	src, err := source.New(&c.app)
	if err != nil {
		return fmt.Errorf("failed to open data source: %w", err)
	}
	defer src.Close()

	snapshot, err := src.Load(ctx)
	if err != nil {
		return fmt.Errorf("error loading catalog: %w", err)
	}

	opts := flatten.Options{IncludeGroups: c.config.IncludeGroups, Search: c.config.Search}
	if c.config.List != "" {
		opts.ListID, err = resolveList(snapshot.Catalog, c.config.List)
		if err != nil {
			return err
		}
	}

	rows, err := flatten.Build(snapshot.Catalog, opts)
	if err != nil {
		return err
	}

	w := c.out
	if c.config.OutputFile != "" {
		f, err := os.Create(c.config.OutputFile)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", c.config.OutputFile, err)
		}
		defer f.Close()
		w = f
	}

	switch c.config.Format {
	case "text", "":
		return output.WriteFlatText(w, rows)
	case "csv":
		return output.WriteFlatCSV(w, rows)
	case "json":
		return output.WriteJSON(w, rows)
	case "xlsx":
		if c.config.OutputFile == "" {
			return fmt.Errorf("--out file required for xlsx format")
		}
		return output.WriteFlatXLSX(w, rows)
	default:
		return fmt.Errorf("unsupported output format: %s", c.config.Format)
	}
}

// resolveList accepts a list id or code
func resolveList(catalog interface {
	GetList(entities.ListID) (*entities.TechnicalList, error)
	GetListByCode(string) (*entities.TechnicalList, error)
}, ref string) (entities.ListID, error) {
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		list, err := catalog.GetList(entities.ListID(id))
		if err == nil {
			return list.ID, nil
		}
	}
	list, err := catalog.GetListByCode(ref)
	if err != nil {
		return 0, err
	}
	return list.ID, nil
}

func newFlattenCmd(opts *rootOptions) *cobra.Command {
	var cfg FlattenConfig

	cmd := &cobra.Command{
		Use:   "flatten",
		Short: "Print the leveled BOM table",
		Example: `  mrp flatten --scenario ./data
  mrp flatten --scenario ./data --list BIKE --groups --format csv --out bike.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return NewFlattenCommand(cfg, *opts.config, cmd.OutOrStdout()).Execute(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&cfg.ScenarioDir, "scenario", "", "CSV scenario directory (overrides data.source)")
	cmd.Flags().StringVar(&cfg.List, "list", "", "Root list id or code; default is every top-level list")
	cmd.Flags().BoolVar(&cfg.IncludeGroups, "groups", false, "Include a row for each sub-list line")
	cmd.Flags().StringVar(&cfg.Search, "search", "", "Keep rows containing this text")
	cmd.Flags().StringVar(&cfg.Format, "format", "text", "text, csv, json or xlsx")
	cmd.Flags().StringVar(&cfg.OutputFile, "out", "", "Write to this file instead of stdout")
	return cmd
}
