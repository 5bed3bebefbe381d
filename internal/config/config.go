package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultInputPath = "capacity.log"
	DefaultTitle     = "Queue Capacity Over Time"
	DefaultXLabel    = "Time (ms)"
	DefaultYLabel    = "Capacity"
	DefaultLegend    = "Queue Capacity"
	DefaultColor     = "#0000FF"
	DefaultWidth     = 10.0 // inches
	DefaultHeight    = 5.0  // inches
)

// Separator modes for the input file
const (
	SeparatorSpace      = "space"
	SeparatorWhitespace = "whitespace"
)

// Config holds the application configuration
type Config struct {
	InputPath string        `yaml:"input_path,omitempty"`
	Separator string        `yaml:"separator,omitempty"` // "space" (default) or "whitespace"
	Chart     ChartConfig   `yaml:"chart,omitempty"`
	Display   DisplayConfig `yaml:"display,omitempty"`
	MQTT      MQTTConfig    `yaml:"mqtt,omitempty"`
}

// ChartConfig holds the display strings and geometry of the rendered chart
type ChartConfig struct {
	Title  string  `yaml:"title,omitempty"`
	XLabel string  `yaml:"x_label,omitempty"`
	YLabel string  `yaml:"y_label,omitempty"`
	Legend string  `yaml:"legend,omitempty"`
	Color  string  `yaml:"color,omitempty"`  // e.g. "#0000FF"
	Width  float64 `yaml:"width,omitempty"`  // inches
	Height float64 `yaml:"height,omitempty"` // inches
}

// DisplayConfig holds settings for the chart window
type DisplayConfig struct {
	Timeout  time.Duration `yaml:"timeout,omitempty"`   // 0 waits until the window is closed
	ExecPath string        `yaml:"exec_path,omitempty"` // browser binary, empty for auto-detect
}

// MQTTConfig holds broker settings for publishing runs
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"` // host:port
	Username    string `yaml:"username,omitempty"`
	Password    string `yaml:"password,omitempty"`
	TopicPrefix string `yaml:"topic_prefix,omitempty"`
	ClientID    string `yaml:"client_id,omitempty"`
}

// Load reads the config file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// Return empty config if file doesn't exist
			return &Config{}, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config file: %w", err)
	}

	return &cfg, nil
}

// Save writes the config to file
func Save(configPath string, cfg *Config) error {
	// Ensure directory exists
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// DefaultConfigPath returns the default config file path (local directory)
func DefaultConfigPath() string {
	return "config.yaml"
}

// Validate checks the values that have a fixed set of accepted forms
func (c *Config) Validate() error {
	switch strings.ToLower(c.Separator) {
	case "", SeparatorSpace, SeparatorWhitespace:
	default:
		return fmt.Errorf("unknown separator %q (use %q or %q)", c.Separator, SeparatorSpace, SeparatorWhitespace)
	}

	if c.Chart.Color != "" {
		if _, err := ParseHexColor(c.Chart.Color); err != nil {
			return err
		}
	}

	if c.Chart.Width < 0 || c.Chart.Height < 0 {
		return fmt.Errorf("chart size must not be negative")
	}

	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		return fmt.Errorf("MQTT broker address is required when enabled")
	}

	return nil
}

// GetInputPath returns the log file to read, defaulting to capacity.log
func (c *Config) GetInputPath() string {
	if c.InputPath == "" {
		return DefaultInputPath
	}
	return c.InputPath
}

// Whitespace reports whether fields may be separated by any run of whitespace
// instead of exactly one space
func (c *Config) Whitespace() bool {
	return strings.EqualFold(c.Separator, SeparatorWhitespace)
}

func (c *Config) GetTitle() string {
	if c.Chart.Title == "" {
		return DefaultTitle
	}
	return c.Chart.Title
}

func (c *Config) GetXLabel() string {
	if c.Chart.XLabel == "" {
		return DefaultXLabel
	}
	return c.Chart.XLabel
}

func (c *Config) GetYLabel() string {
	if c.Chart.YLabel == "" {
		return DefaultYLabel
	}
	return c.Chart.YLabel
}

func (c *Config) GetLegend() string {
	if c.Chart.Legend == "" {
		return DefaultLegend
	}
	return c.Chart.Legend
}

func (c *Config) GetColor() string {
	if c.Chart.Color == "" {
		return DefaultColor
	}
	return c.Chart.Color
}

// GetWidth returns the chart width in inches
func (c *Config) GetWidth() float64 {
	if c.Chart.Width <= 0 {
		return DefaultWidth
	}
	return c.Chart.Width
}

// GetHeight returns the chart height in inches
func (c *Config) GetHeight() float64 {
	if c.Chart.Height <= 0 {
		return DefaultHeight
	}
	return c.Chart.Height
}

// GetDisplayTimeout returns how long the chart window may stay open, 0 for no limit
func (c *Config) GetDisplayTimeout() time.Duration {
	if c.Display.Timeout < 0 {
		return 0
	}
	return c.Display.Timeout
}

// GetTopicPrefix returns the MQTT topic prefix with a default of "capacity"
func (c *Config) GetTopicPrefix() string {
	if c.MQTT.TopicPrefix == "" {
		return "capacity"
	}
	return strings.TrimSuffix(c.MQTT.TopicPrefix, "/")
}

// GetClientID returns the MQTT client id with a default of "capplot"
func (c *Config) GetClientID() string {
	if c.MQTT.ClientID == "" {
		return "capplot"
	}
	return c.MQTT.ClientID
}
