package main

import (
	"fmt"
	"time"

	"github.com/jgoulah/capplot/internal/database"
	"github.com/jgoulah/capplot/internal/publisher"
	"github.com/jgoulah/capplot/pkg/models"
	"github.com/spf13/cobra"
)

var (
	publishRun string
	publishAll bool
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish imported runs to MQTT",
	Long: `Reads imported runs from the database and publishes each record, followed by a
retained run summary, to the MQTT broker configured in config.yaml.`,
	Args: cobra.NoArgs,
	RunE: runPublish,
}

func init() {
	publishCmd.Flags().StringVar(&publishRun, "run", "", "Publish only this run (id or id prefix)")
	publishCmd.Flags().BoolVar(&publishAll, "all", false, "Force republish all runs (ignore published flag)")
	rootCmd.AddCommand(publishCmd)
}

func runPublish(cmd *cobra.Command, args []string) error {
	fmt.Printf("=== Publish started at %s ===\n", time.Now().Format("2006-01-02 15:04:05 MST"))

	// Load config
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Open database
	db, err := openDB()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	// Determine which runs to publish
	var runs []models.Run
	switch {
	case publishRun != "":
		run, err := db.GetRun(publishRun)
		if err != nil {
			return err
		}
		runs = append(runs, *run)
	case publishAll:
		runs, err = db.ListRuns()
	default:
		runs, err = db.ListUnpublishedRuns()
	}
	if err != nil {
		return fmt.Errorf("listing runs: %w", err)
	}

	if len(runs) == 0 {
		fmt.Println("No unpublished runs found")
		return nil
	}

	// Create publisher
	pub, err := publisher.New(cfg)
	if err != nil {
		return fmt.Errorf("creating publisher: %w", err)
	}
	defer pub.Close()

	return publishRuns(db, pub, runs)
}

// runPublisher is the part of publisher.Publisher the publish loop needs
type runPublisher interface {
	PublishRun(run models.Run, records []models.Record) error
}

// publishRuns publishes each run, marking the ones that succeed. It fails
// when any run could not be published.
func publishRuns(db *database.DB, pub runPublisher, runs []models.Run) error {
	published := 0
	for i, run := range runs {
		records, err := db.ListRecords(run.ID)
		if err != nil {
			return fmt.Errorf("listing records for run %s: %w", run.ID, err)
		}

		fmt.Printf("[%d/%d] Publishing run %s (%d records)... ", i+1, len(runs), shortID(run.ID), len(records))
		if err := pub.PublishRun(run, records); err != nil {
			fmt.Printf("FAILED: %v\n", err)
			continue
		}

		// Mark run as published in database
		if err := db.MarkPublished(run.ID); err != nil {
			fmt.Printf("✓ (warning: failed to mark as published: %v)\n", err)
		} else {
			fmt.Printf("✓\n")
		}
		published++
	}

	fmt.Printf("\nTotal runs published: %d/%d\n", published, len(runs))
	if published < len(runs) {
		return fmt.Errorf("%d of %d runs failed to publish", len(runs)-published, len(runs))
	}
	return nil
}
