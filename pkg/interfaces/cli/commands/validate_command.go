package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vsinha/mrpbom/pkg/config"
	"github.com/vsinha/mrpbom/pkg/domain/entities"
	"github.com/vsinha/mrpbom/pkg/domain/services"
	"github.com/vsinha/mrpbom/pkg/infrastructure/source"
)

// ErrInvalidCatalog is returned when validation finds structural or record errors
var ErrInvalidCatalog = errors.New("catalog has structural errors")

// ValidateCommand reports structural errors and cycles in a catalog
type ValidateCommand struct {
	app config.Config
	out io.Writer
}

func NewValidateCommand(scenarioDir string, app config.Config, out io.Writer) *ValidateCommand {
	if scenarioDir != "" {
		app.Data.Source = "csv"
		app.Data.ScenarioDir = scenarioDir
	}
	return &ValidateCommand{app: app, out: out}
}

func (c *ValidateCommand) Execute(ctx context.Context) error {
	src, err := source.New(&c.app)
	if err != nil {
		return fmt.Errorf("failed to open data source: %w", err)
	}
	defer src.Close()

	snapshot, err := src.Load(ctx)
	if err != nil {
		return fmt.Errorf("error loading catalog: %w", err)
	}
	catalog := snapshot.Catalog

	components, _ := catalog.GetAllComponents()
	lists, _ := catalog.GetAllLists()
	lines, _ := catalog.GetAllBOMLines()

	validator := services.NewBOMValidator()
	result := validator.ValidateCatalog(components, lists, lines)

	var orderErrs []error
	for _, o := range snapshot.Orders {
		if err := validator.ValidateOrder(o); err != nil {
			orderErrs = append(orderErrs, err)
			continue
		}
		if _, err := catalog.GetList(o.TargetListID); err != nil {
			orderErrs = append(orderErrs, &entities.OrderError{OrderID: o.ID, Reason: "target list not found", Err: entities.ErrMissingOrderTarget})
		}
	}

	fmt.Fprintf(c.out, "Components: %d  Lists: %d  BOM lines: %d  Orders: %d\n",
		len(components), len(lists), len(lines), len(snapshot.Orders))

	for _, se := range result.StructuralErrors {
		fmt.Fprintf(c.out, "ERROR   %s\n", se)
	}
	for _, err := range result.RecordErrors {
		fmt.Fprintf(c.out, "ERROR   %s\n", err)
	}
	for _, err := range orderErrs {
		fmt.Fprintf(c.out, "WARN    %s\n", err)
	}
	for _, cycle := range result.CyclePaths {
		fmt.Fprintf(c.out, "CYCLE   %s\n", cyclePath(catalog, cycle))
	}

	if !result.Valid() {
		fmt.Fprintf(c.out, "invalid: %d structural, %d record errors\n", len(result.StructuralErrors), len(result.RecordErrors))
		return ErrInvalidCatalog
	}
	fmt.Fprintf(c.out, "ok: %d cycles, %d order warnings\n", len(result.CyclePaths), len(orderErrs))
	return nil
}

func cyclePath(catalog interface {
	GetList(entities.ListID) (*entities.TechnicalList, error)
}, ids []entities.ListID) string {
	codes := make([]string, 0, len(ids))
	for _, id := range ids {
		if l, err := catalog.GetList(id); err == nil {
			codes = append(codes, l.Code)
		} else {
			codes = append(codes, fmt.Sprintf("#%d", id))
		}
	}
	return strings.Join(codes, " -> ")
}

func newValidateCmd(opts *rootOptions) *cobra.Command {
	var scenarioDir string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a catalog for structural errors and cycles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return NewValidateCommand(scenarioDir, *opts.config, cmd.OutOrStdout()).Execute(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&scenarioDir, "scenario", "", "CSV scenario directory (overrides data.source)")
	return cmd
}
