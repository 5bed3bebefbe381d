package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jgoulah/capplot/internal/config"
	"github.com/jgoulah/capplot/internal/database"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	dbPath  string
)

var rootCmd = &cobra.Command{
	Use:   "capplot",
	Short: "Plot queue capacity over time from a capacity log",
	Long: `capplot reads a capacity log ("<time-ms> <capacity>" per line, no header)
and shows a line chart of queue capacity over time.

Run without a subcommand it reads ./capacity.log and opens the chart window.
Logs can also be imported into a local SQLite database, listed, plotted
later and published to MQTT.`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         runPlot,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database file (default is ./capplot.db)")
	addPlotFlags(rootCmd.Flags())
}

// getConfigPath returns the config file path
func getConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.DefaultConfigPath()
}

// getDBPath returns the database file path (local directory)
func getDBPath() string {
	if dbPath != "" {
		return dbPath
	}
	return "capplot.db"
}

// loadConfig loads the configuration file
func loadConfig() (*config.Config, error) {
	return config.Load(getConfigPath())
}

// openDB opens the database connection
func openDB() (*database.DB, error) {
	path := getDBPath()

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	return database.New(path)
}
