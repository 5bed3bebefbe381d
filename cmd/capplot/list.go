package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/jgoulah/capplot/pkg/models"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

var listRun string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List imported runs or the records of one run",
	Long: `Displays all imported runs from the database. With --run the records of that
run are printed; when stdout is not a terminal they are written in the capacity
log format so the output can be piped back into capplot.`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVar(&listRun, "run", "", "Show the records of this run (id or id prefix)")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	// Open database
	db, err := openDB()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	if listRun != "" {
		run, err := db.GetRun(listRun)
		if err != nil {
			return err
		}
		records, err := db.ListRecords(run.ID)
		if err != nil {
			return fmt.Errorf("listing records for run %s: %w", run.ID, err)
		}

		if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
			return writeLogFormat(records)
		}
		printRecords(run, records)
		return nil
	}

	runs, err := db.ListRuns()
	if err != nil {
		return fmt.Errorf("listing runs: %w", err)
	}

	if len(runs) == 0 {
		fmt.Println("No runs found")
		return nil
	}

	fmt.Printf("%-8s  %-16s  %9s  %7s  %8s  %-9s  %s\n", "Run", "Imported", "Records", "Resizes", "Max cap", "Published", "Source")
	fmt.Println("--------------------------------------------------------------------------------")

	var total int
	for _, run := range runs {
		records, err := db.ListRecords(run.ID)
		if err != nil {
			return fmt.Errorf("listing records for run %s: %w", run.ID, err)
		}
		summary := models.Summarize(records)

		published := "no"
		if run.Published {
			published = "yes"
		}

		fmt.Printf("%-8s  %-16s  %9s  %7d  %8s  %-9s  %s\n",
			shortID(run.ID),
			humanize.Time(run.ImportedAt),
			humanize.Comma(int64(run.Count)),
			summary.Resizes(),
			formatNumber(summary.MaxCapacity),
			published,
			run.Source,
		)
		total += run.Count
	}

	fmt.Println("--------------------------------------------------------------------------------")
	fmt.Printf("Total: %s records (%d runs)\n", humanize.Comma(int64(total)), len(runs))

	return nil
}

func printRecords(run *models.Run, records []models.Record) {
	fmt.Printf("\nRun %s (%s, imported %s)\n", run.ID, run.Source, humanize.Time(run.ImportedAt))
	fmt.Println("----------------------------------------")
	fmt.Printf("%12s  %12s\n", "Time (ms)", "Capacity")
	fmt.Println("----------------------------------------")

	for _, r := range records {
		fmt.Printf("%12s  %12s\n", formatNumber(r.Time), formatNumber(r.Capacity))
	}

	summary := models.Summarize(records)
	fmt.Println("----------------------------------------")
	fmt.Printf("Records: %d, span: %s ms, resizes: %d\n", summary.Count, formatNumber(summary.Duration()), summary.Resizes())
}

// writeLogFormat prints records as "<time> <capacity>" lines
func writeLogFormat(records []models.Record) error {
	for _, r := range records {
		if _, err := fmt.Fprintf(os.Stdout, "%s %s\n", formatNumber(r.Time), formatNumber(r.Capacity)); err != nil {
			return err
		}
	}
	return nil
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
