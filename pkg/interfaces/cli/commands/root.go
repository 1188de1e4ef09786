package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/vsinha/mrpbom/pkg/config"
	"github.com/vsinha/mrpbom/pkg/logger"
	"github.com/vsinha/mrpbom/pkg/telemetry"
)

// Version is stamped at build time with -ldflags
var Version = "dev"

// rootOptions are the persistent flags plus what setup derives from them
type rootOptions struct {
	cfgFile  string
	logLevel string
	logJSON  bool

	config   *config.Config
	shutdown telemetry.Shutdown
}

// NewRootCmd builds the mrp command tree
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "mrp",
		Short: "Material requirements planning over technical lists",
		Long: `mrp explodes production orders through technical lists (BOMs) into
net component requirements and purchase dates.`,
		Version:      Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if opts.shutdown == nil {
				return nil
			}
			return opts.shutdown(context.Background())
		},
	}

	cmd.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "Path to a YAML config file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().BoolVar(&opts.logJSON, "log-json", false, "Log JSON lines instead of console output")

	cmd.SetHelpFunc(func(c *cobra.Command, args []string) {
		renderHelp(c.OutOrStdout(), c)
	})

	cmd.AddCommand(
		newRunCmd(opts),
		newFlattenCmd(opts),
		newValidateCmd(opts),
		newGenerateCmd(),
		newServeCmd(opts),
	)
	return cmd
}

// Execute runs the root command and exits non-zero on error
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads configuration and installs the logger and tracer provider
func (o *rootOptions) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(o.cfgFile)
	if err != nil {
		return err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if cmd.Flags().Changed("log-json") {
		cfg.Log.JSON = o.logJSON
	}
	logger.SetJSON(cfg.Log.JSON)
	logger.SetLevel(cfg.Log.Level)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	o.shutdown, err = telemetry.Init(ctx, cfg.Telemetry, Version)
	if err != nil {
		return err
	}
	o.config = cfg
	return nil
}

func renderHelp(w io.Writer, cmd *cobra.Command) {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#00AFFF")).
		MarginTop(1)

	flagStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#AAAAAA"))

	desc := cmd.Long
	if desc == "" {
		desc = cmd.Short
	}
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("MRP %s", Version)))
	fmt.Fprintln(w, desc)

	fmt.Fprintln(w, titleStyle.Render("USAGE"))
	fmt.Fprintf(w, "  %s\n", cmd.UseLine())

	if cmd.HasAvailableSubCommands() {
		fmt.Fprintln(w, titleStyle.Render("COMMANDS"))
		for _, c := range cmd.Commands() {
			if c.IsAvailableCommand() {
				fmt.Fprintf(w, "  %-12s %s\n", c.Name(), c.Short)
			}
		}
	}

	if cmd.Example != "" {
		fmt.Fprintln(w, titleStyle.Render("EXAMPLES"))
		fmt.Fprintln(w, cmd.Example)
	}

	fmt.Fprintln(w, titleStyle.Render("FLAGS"))
	printFlag := func(f *pflag.Flag) {
		if f.Hidden {
			return
		}
		line := fmt.Sprintf("  --%-18s %s", f.Name, f.Usage)
		if f.DefValue != "" && f.DefValue != "false" && f.DefValue != "0" && f.DefValue != "[]" {
			line += fmt.Sprintf(" (default %s)", f.DefValue)
		}
		fmt.Fprintln(w, flagStyle.Render(line))
	}
	cmd.LocalFlags().VisitAll(printFlag)
	cmd.InheritedFlags().VisitAll(printFlag)
	fmt.Fprintln(w)
}
