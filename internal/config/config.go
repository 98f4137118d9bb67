package config

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

type SPI struct {
	Dev     string `yaml:"dev"`      // "" picks the first port, e.g. /dev/spidev0.0
	FreqKHz int    `yaml:"freq_khz"` // LED data rate, 800 for WS2812
}

type Log struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file,omitempty"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type Config struct {
	Listen     string `yaml:"listen"`
	HTTPAddr   string `yaml:"http_addr"`
	Channels   int    `yaml:"channels"`
	Driver     string `yaml:"driver"` // "spi" | "console" | "sim"
	Brightness int    `yaml:"brightness"`

	SPI SPI `yaml:"spi"`
	Log Log `yaml:"log"`
}

var drivers = []string{"spi", "console", "sim"}

// Default mirrors the stock edge device: six lights at 800kHz.
func Default() *Config {
	return &Config{
		Listen:     ":8300",
		HTTPAddr:   "",
		Channels:   6,
		Driver:     "spi",
		Brightness: 255,
		SPI: SPI{
			FreqKHz: 800,
		},
		Log: Log{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Load reads path over the defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return c, nil
}

func Save(path string, c *Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}

// ApplyEnv applies environment overrides. DEBUG=yes forces the simulated
// driver.
func (c *Config) ApplyEnv() {
	if os.Getenv("DEBUG") == "yes" {
		c.Driver = "sim"
	}
	if v := os.Getenv("EDGED_LISTEN"); v != "" {
		c.Listen = v
	}
}

func (c *Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("listen address must not be empty")
	}
	if c.Channels < 1 || c.Channels > 64 {
		return fmt.Errorf("channels %d outside [1, 64]", c.Channels)
	}
	if !contains(drivers, c.Driver) {
		return fmt.Errorf("invalid driver %q, must be one of: %v", c.Driver, drivers)
	}
	if c.Brightness < 0 || c.Brightness > 255 {
		return fmt.Errorf("brightness %d outside [0, 255]", c.Brightness)
	}
	if c.Driver == "spi" && c.SPI.FreqKHz <= 0 {
		return fmt.Errorf("spi frequency must be positive, got %d kHz", c.SPI.FreqKHz)
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.Log.Level, err)
	}
	return nil
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
