package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/vsinha/mrpbom/pkg/application/dto"
	"github.com/vsinha/mrpbom/pkg/logger"
)

// Output file names written into Config.OutputDir
const (
	TextFile    = "mrp_results.txt"
	JSONFile    = "mrp_results.json"
	SummaryFile = "mrp_summary.csv"
	DetailsFile = "mrp_details.csv"
	XLSXFile    = "mrp_results.xlsx"
	ChartFile   = "purchase_schedule.svg"
)

// Config holds configuration for output generation
type Config struct {
	Format    string
	OutputDir string
	Verbose   bool
	// Elapsed is the wall time of the run, shown in the text summary
	Elapsed    time.Duration
	InputFiles map[string]string
}

// Generate writes the result in the configured format. Without an output
// directory, text, json, csv and svg go to w; xlsx always needs a directory.
func Generate(w io.Writer, result *dto.MRPResult, config Config) error {
	switch config.Format {
	case "text", "":
		return generateTextOutput(w, result, config)
	case "json":
		return generateJSONOutput(w, result, config)
	case "csv":
		return generateCSVOutput(w, result, config)
	case "xlsx":
		return generateXLSXOutput(result, config)
	case "svg":
		return generateChartOutput(w, result, config)
	default:
		return fmt.Errorf("unsupported output format: %s", config.Format)
	}
}

func generateTextOutput(w io.Writer, result *dto.MRPResult, config Config) error {
	text := RenderText(result, config)
	if config.OutputDir == "" {
		_, err := io.WriteString(w, text)
		return err
	}
	return writeFile(config, TextFile, func(f io.Writer) error {
		_, err := io.WriteString(f, text)
		return err
	})
}

// jsonReport wraps the result with run metadata
type jsonReport struct {
	Metadata struct {
		Elapsed     string            `json:"elapsed"`
		GeneratedAt string            `json:"generated_at"`
		InputFiles  map[string]string `json:"input_files,omitempty"`
	} `json:"metadata"`
	Summary []SummaryRow `json:"summary"`
	*dto.MRPResult
}

func generateJSONOutput(w io.Writer, result *dto.MRPResult, config Config) error {
	report := jsonReport{Summary: SummaryRows(result), MRPResult: result}
	report.Metadata.Elapsed = config.Elapsed.String()
	report.Metadata.GeneratedAt = result.ComputedAt.Format(time.RFC3339)
	report.Metadata.InputFiles = config.InputFiles

	if config.OutputDir == "" {
		return WriteJSON(w, report)
	}
	return writeFile(config, JSONFile, func(f io.Writer) error {
		return WriteJSON(f, report)
	})
}

// WriteJSON writes v as indented JSON
func WriteJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return nil
}

func generateCSVOutput(w io.Writer, result *dto.MRPResult, config Config) error {
	if config.OutputDir == "" {
		return WriteSummaryCSV(w, result)
	}
	if err := writeFile(config, SummaryFile, func(f io.Writer) error {
		return WriteSummaryCSV(f, result)
	}); err != nil {
		return err
	}
	return writeFile(config, DetailsFile, func(f io.Writer) error {
		return WriteDetailsCSV(f, result)
	})
}

func generateXLSXOutput(result *dto.MRPResult, config Config) error {
	if config.OutputDir == "" {
		return fmt.Errorf("output directory required for xlsx format")
	}
	return writeFile(config, XLSXFile, func(f io.Writer) error {
		return WriteXLSX(f, result)
	})
}

func generateChartOutput(w io.Writer, result *dto.MRPResult, config Config) error {
	svg := NewPurchaseChart(result).GenerateSVG(result)
	if config.OutputDir == "" {
		_, err := io.WriteString(w, svg)
		return err
	}
	return writeFile(config, ChartFile, func(f io.Writer) error {
		_, err := io.WriteString(f, svg)
		return err
	})
}

// writeFile creates name inside the output directory and hands it to write
func writeFile(config Config, name string, write func(io.Writer) error) error {
	if err := os.MkdirAll(config.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	filename := filepath.Join(config.OutputDir, name)
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filename, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", filename, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", filename, err)
	}

	if config.Verbose {
		logger.Log.Info().Str("file", filename).Msg("results saved")
	}
	return nil
}
