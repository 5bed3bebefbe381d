package main

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jgoulah/capplot/internal/database"
	"github.com/jgoulah/capplot/internal/loader"
	"github.com/jgoulah/capplot/pkg/models"
)

// execute runs the command tree with fresh flag values
func execute(t *testing.T, dir string, args ...string) error {
	t.Helper()
	cfgFile, dbPath = "", ""
	plotInput, plotWhitespace, plotOutput, plotRun = "", false, "", ""
	importWhitespace = false
	listRun = ""
	publishRun, publishAll = "", false
	simProducers, simConsumers, simSize, simTimeout, simItems = 2, 2, 10, 5, 200
	simOutput, simEvents, simImport = "", "", false

	base := []string{
		"--config", filepath.Join(dir, "config.yaml"),
		"--db", filepath.Join(dir, "capplot.db"),
	}
	rootCmd.SetArgs(append(args, base...))
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})
	return rootCmd.Execute()
}

func writeLog(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "capacity.log")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestPlotToFile(t *testing.T) {
	dir := t.TempDir()
	input := writeLog(t, dir, "0 10\n5 20\n9 10\n")
	output := filepath.Join(dir, "chart.svg")

	require.NoError(t, execute(t, dir, "plot", "--input", input, "--output", output))
	assert.FileExists(t, output)
}

func TestRootPlotsWithoutSubcommand(t *testing.T) {
	dir := t.TempDir()
	input := writeLog(t, dir, "0 10\n")
	output := filepath.Join(dir, "chart.png")

	require.NoError(t, execute(t, dir, "--input", input, "--output", output))
	assert.FileExists(t, output)
}

func TestPlotMissingFileNeverRenders(t *testing.T) {
	dir := t.TempDir()
	output := filepath.Join(dir, "chart.png")

	err := execute(t, dir, "plot", "--input", filepath.Join(dir, "missing.log"), "--output", output)
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	assert.NoFileExists(t, output)
}

func TestPlotMalformedFileFails(t *testing.T) {
	dir := t.TempDir()
	input := writeLog(t, dir, "0 10\n5 abc\n")
	output := filepath.Join(dir, "chart.png")

	require.Error(t, execute(t, dir, "plot", "--input", input, "--output", output))
	assert.NoFileExists(t, output)
}

func TestImportThenPlotRun(t *testing.T) {
	dir := t.TempDir()
	input := writeLog(t, dir, "0 10\n5 20\n")

	require.NoError(t, execute(t, dir, "import", input))
	require.NoError(t, execute(t, dir, "import", input))

	db, err := database.New(filepath.Join(dir, "capplot.db"))
	require.NoError(t, err)
	runs, err := db.ListRuns()
	require.NoError(t, err)
	require.NoError(t, db.Close())
	require.Len(t, runs, 1)

	output := filepath.Join(dir, "run.html")
	require.NoError(t, execute(t, dir, "plot", "--run", runs[0].ID[:8], "--output", output))

	page, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Contains(t, string(page), "<svg")

	require.NoError(t, execute(t, dir, "list"))
	require.NoError(t, execute(t, dir, "list", "--run", runs[0].ID))
}

func TestPublishRequiresMQTT(t *testing.T) {
	dir := t.TempDir()
	input := writeLog(t, dir, "0 10\n")
	require.NoError(t, execute(t, dir, "import", input))

	assert.Error(t, execute(t, dir, "publish"))
}

// flakyPublisher fails for the run ids in fail
type flakyPublisher struct {
	fail map[string]bool
	sent []string
}

func (p *flakyPublisher) PublishRun(run models.Run, records []models.Record) error {
	if p.fail[run.ID] {
		return errors.New("broker unavailable")
	}
	p.sent = append(p.sent, run.ID)
	return nil
}

func TestPublishRunsReportsFailures(t *testing.T) {
	db, err := database.New(filepath.Join(t.TempDir(), "capplot.db"))
	require.NoError(t, err)
	defer db.Close()

	a, _, err := db.InsertRun("a.log", []models.Record{{Time: 0, Capacity: 1}})
	require.NoError(t, err)
	b, _, err := db.InsertRun("b.log", []models.Record{{Time: 0, Capacity: 2}})
	require.NoError(t, err)
	runs := []models.Run{*a, *b}

	pub := &flakyPublisher{fail: map[string]bool{b.ID: true}}
	require.Error(t, publishRuns(db, pub, runs))
	assert.Equal(t, []string{a.ID}, pub.sent)

	pending, err := db.ListUnpublishedRuns()
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, b.ID, pending[0].ID)

	pub.fail = nil
	assert.NoError(t, publishRuns(db, pub, pending))
}

func TestSimulateThenPlot(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "capacity.log")
	events := filepath.Join(dir, "events.log")

	require.NoError(t, execute(t, dir, "simulate", "-p", "3", "-c", "2", "-s", "4", "-t", "30",
		"--items", "20", "--output", logPath, "--events", events, "--import"))

	records, err := loader.Load(logPath, loader.Options{})
	require.NoError(t, err)
	assert.NotEmpty(t, records)
	assert.FileExists(t, events)

	output := filepath.Join(dir, "chart.svg")
	require.NoError(t, execute(t, dir, "--input", logPath, "--output", output))
	assert.FileExists(t, output)

	db, err := database.New(filepath.Join(dir, "capplot.db"))
	require.NoError(t, err)
	defer db.Close()
	runs, err := db.ListRuns()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, len(records), runs[0].Count)
}

func TestSimulateRejectsZeroSize(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "capacity.log")

	require.Error(t, execute(t, dir, "simulate", "-s", "0", "--output", logPath))
	assert.NoFileExists(t, logPath)
}
