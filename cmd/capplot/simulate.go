package main

import (
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jgoulah/capplot/internal/simulator"
	"github.com/spf13/cobra"
)

var (
	simProducers int
	simConsumers int
	simSize      int
	simTimeout   int
	simItems     int
	simOutput    string
	simEvents    string
	simImport    bool
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run the producer/consumer queue simulation and write a capacity log",
	Long: `Starts producers and consumers on a circular queue that doubles its capacity
when full and halves it when less than a quarter full. Every enqueue, dequeue
and resize appends "<elapsed-ms> <capacity>" to the capacity log, which the
plot command reads.

  capplot simulate -p 4 -c 2 -s 10 -t 5 && capplot`,
	Args: cobra.NoArgs,
	RunE: runSimulate,
}

func init() {
	def := simulator.DefaultOptions()
	simulateCmd.Flags().IntVarP(&simProducers, "producers", "p", def.Producers, "number of producers")
	simulateCmd.Flags().IntVarP(&simConsumers, "consumers", "c", def.Consumers, "number of consumers")
	simulateCmd.Flags().IntVarP(&simSize, "size", "s", def.Size, "initial queue capacity")
	simulateCmd.Flags().IntVarP(&simTimeout, "timeout", "t", int(def.Timeout/time.Second), "stop after this many seconds")
	simulateCmd.Flags().IntVar(&simItems, "items", def.Items, "items enqueued by each producer")
	simulateCmd.Flags().StringVarP(&simOutput, "output", "o", "", "capacity log to write (default from config, then ./capacity.log)")
	simulateCmd.Flags().StringVar(&simEvents, "events", "", "also write every enqueue and dequeue to this file")
	simulateCmd.Flags().BoolVar(&simImport, "import", false, "import the capacity log into the database afterwards")
	rootCmd.AddCommand(simulateCmd)
}

func runSimulate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	path := simOutput
	if path == "" {
		path = cfg.GetInputPath()
	}

	opts := simulator.Options{
		Producers: simProducers,
		Consumers: simConsumers,
		Size:      simSize,
		Items:     simItems,
		Timeout:   time.Duration(simTimeout) * time.Second,
	}
	if err := opts.Validate(); err != nil {
		return err
	}

	if simEvents != "" {
		events, err := os.Create(simEvents)
		if err != nil {
			return fmt.Errorf("creating event log: %w", err)
		}
		defer events.Close()
		opts.Events = events
	}

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating capacity log: %w", err)
	}
	defer out.Close()

	fmt.Printf("Simulating %d producers and %d consumers, initial capacity %d...\n", opts.Producers, opts.Consumers, opts.Size)
	result, err := simulator.Run(cmd.Context(), out, opts)
	if err != nil {
		return fmt.Errorf("running simulation: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("closing capacity log: %w", err)
	}

	if result.TimedOut {
		fmt.Printf("⚠ Stopped after %ds with %d of %d items consumed\n", simTimeout, result.Consumed, opts.Producers*opts.Items)
	}
	fmt.Printf("✓ Wrote %s records to %s (%d resizes, final capacity %d, %s)\n",
		humanize.Comma(int64(result.Records)), path, result.Resizes, result.FinalCapacity, result.Elapsed.Round(time.Millisecond))

	if !simImport {
		return nil
	}
	return importLog(cfg, path)
}
