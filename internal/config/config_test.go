package config

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "capacity.log", cfg.GetInputPath())
	assert.Equal(t, "Time (ms)", cfg.GetXLabel())
	assert.Equal(t, "Capacity", cfg.GetYLabel())
	assert.Equal(t, DefaultTitle, cfg.GetTitle())
	assert.Equal(t, DefaultLegend, cfg.GetLegend())
	assert.Equal(t, 10.0, cfg.GetWidth())
	assert.Equal(t, 5.0, cfg.GetHeight())
	assert.False(t, cfg.Whitespace())
	assert.Equal(t, "capacity", cfg.GetTopicPrefix())
	assert.Equal(t, "capplot", cfg.GetClientID())
	assert.Zero(t, cfg.GetDisplayTimeout())
}

func TestLoadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
input_path: runs/queue.log
separator: whitespace
chart:
  title: Ring buffer
  x_label: Elapsed
  y_label: Slots
  width: 12
display:
  timeout: 30s
mqtt:
  enabled: true
  broker: localhost:1883
  topic_prefix: sim/
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "runs/queue.log", cfg.GetInputPath())
	assert.True(t, cfg.Whitespace())
	assert.Equal(t, "Ring buffer", cfg.GetTitle())
	assert.Equal(t, "Elapsed", cfg.GetXLabel())
	assert.Equal(t, "Slots", cfg.GetYLabel())
	assert.Equal(t, 12.0, cfg.GetWidth())
	assert.Equal(t, 5.0, cfg.GetHeight())
	assert.Equal(t, 30*time.Second, cfg.GetDisplayTimeout())
	assert.Equal(t, "sim", cfg.GetTopicPrefix())
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"separator", "separator: tab\n"},
		{"colour", "chart:\n  color: blue\n"},
		{"size", "chart:\n  width: -1\n"},
		{"broker", "mqtt:\n  enabled: true\n"},
		{"yaml", "chart: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.data), 0600))

			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := &Config{InputPath: "other.log", Chart: ChartConfig{Title: "T"}}

	require.NoError(t, Save(path, cfg))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestParseHexColor(t *testing.T) {
	c, err := ParseHexColor("#0000FF")
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{B: 0xFF, A: 0xFF}, c)

	c, err = ParseHexColor("f80")
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 0xFF, G: 0x88, A: 0xFF}, c)

	_, err = ParseHexColor("#12345")
	assert.Error(t, err)
	_, err = ParseHexColor("#GGGGGG")
	assert.Error(t, err)
}
