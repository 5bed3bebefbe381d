package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/jgoulah/capplot/internal/config"
	"github.com/jgoulah/capplot/internal/loader"
	"github.com/spf13/cobra"
)

var importWhitespace bool

var importCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Import a capacity log into the database",
	Long: `Loads a capacity log (default from config, then ./capacity.log) and stores it
as a run in the local SQLite database. Importing the same content twice is a no-op.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().BoolVar(&importWhitespace, "whitespace", false, "accept any whitespace between fields instead of a single space")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	// Load config
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if len(args) == 1 {
		cfg.InputPath = args[0]
	}
	if importWhitespace {
		cfg.Separator = config.SeparatorWhitespace
	}

	return importLog(cfg, cfg.GetInputPath())
}

// importLog loads the capacity log at path and stores it as a run
func importLog(cfg *config.Config, path string) error {
	records, err := loader.Load(path, loader.Options{Whitespace: cfg.Whitespace()})
	if err != nil {
		return fmt.Errorf("loading records: %w", err)
	}

	// Open database
	db, err := openDB()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	run, created, err := db.InsertRun(path, records)
	if err != nil {
		return fmt.Errorf("storing run: %w", err)
	}

	if !created {
		fmt.Printf("⚠ %s was already imported as run %s (%s)\n", path, shortID(run.ID), humanize.Time(run.ImportedAt))
		return nil
	}

	fmt.Printf("✓ Imported %s records from %s as run %s\n", humanize.Comma(int64(run.Count)), path, shortID(run.ID))
	return nil
}
