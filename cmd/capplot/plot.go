package main

import (
	"errors"
	"fmt"

	"github.com/jgoulah/capplot/internal/chart"
	"github.com/jgoulah/capplot/internal/config"
	"github.com/jgoulah/capplot/internal/display"
	"github.com/jgoulah/capplot/internal/loader"
	"github.com/jgoulah/capplot/pkg/models"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	pixelsPerInch = 96
	windowPadding = 40
	summaryHeight = 140
)

var (
	plotInput      string
	plotWhitespace bool
	plotOutput     string
	plotRun        string
)

var plotCmd = &cobra.Command{
	Use:   "plot",
	Short: "Show the capacity chart",
	Long: `Loads the capacity log and shows queue capacity over time in a chart window.
The command blocks until the window is closed.

With --output the chart is written to a file instead; the format follows the
extension (.png, .svg, .pdf, .eps, .jpg, .tif or .html).`,
	Args: cobra.NoArgs,
	RunE: runPlot,
}

func init() {
	addPlotFlags(plotCmd.Flags())
	rootCmd.AddCommand(plotCmd)
}

func addPlotFlags(fs *pflag.FlagSet) {
	fs.StringVar(&plotInput, "input", "", "capacity log to read (default from config, then ./capacity.log)")
	fs.BoolVar(&plotWhitespace, "whitespace", false, "accept any whitespace between fields instead of a single space")
	fs.StringVar(&plotOutput, "output", "", "write the chart to this file instead of opening a window")
	fs.StringVar(&plotRun, "run", "", "plot an imported run (id or id prefix) instead of a file")
}

func runPlot(cmd *cobra.Command, args []string) error {
	// Load config
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if plotInput != "" {
		cfg.InputPath = plotInput
	}
	if plotWhitespace {
		cfg.Separator = config.SeparatorWhitespace
	}

	records, source, err := plotRecords(cfg)
	if err != nil {
		return err
	}
	fmt.Printf("Loaded %d records from %s\n", len(records), source)

	opts, err := chart.OptionsFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("chart options: %w", err)
	}
	renderer := chart.NewRenderer(opts)

	if plotOutput != "" {
		if err := renderer.Save(plotOutput, records); err != nil {
			return err
		}
		fmt.Printf("✓ Chart saved to %s\n", plotOutput)
		return nil
	}

	page, err := renderer.Page(records)
	if err != nil {
		return fmt.Errorf("rendering chart: %w", err)
	}

	fmt.Println("Opening chart window (close it to exit)...")
	err = display.Show(cmd.Context(), page, display.Options{
		Width:    int(cfg.GetWidth()*pixelsPerInch) + windowPadding,
		Height:   int(cfg.GetHeight()*pixelsPerInch) + summaryHeight,
		Timeout:  cfg.GetDisplayTimeout(),
		ExecPath: cfg.Display.ExecPath,
	})
	if errors.Is(err, display.ErrNoDisplay) {
		return fmt.Errorf("%w (use --output to write the chart to a file)", err)
	}
	if err != nil {
		return fmt.Errorf("showing chart: %w", err)
	}

	return nil
}

// plotRecords loads the records to plot, either from an imported run or
// from the capacity log file
func plotRecords(cfg *config.Config) ([]models.Record, string, error) {
	if plotRun == "" {
		path := cfg.GetInputPath()
		records, err := loader.Load(path, loader.Options{Whitespace: cfg.Whitespace()})
		if err != nil {
			return nil, "", fmt.Errorf("loading records: %w", err)
		}
		return records, path, nil
	}

	db, err := openDB()
	if err != nil {
		return nil, "", fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	run, err := db.GetRun(plotRun)
	if err != nil {
		return nil, "", err
	}

	records, err := db.ListRecords(run.ID)
	if err != nil {
		return nil, "", fmt.Errorf("listing records for run %s: %w", run.ID, err)
	}

	return records, fmt.Sprintf("run %s (%s)", shortID(run.ID), run.Source), nil
}
