// Package config handles YAML config file loading for the research CLI.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config represents a research config file. All values are optional and act
// as defaults; CLI flags always override config values.
type Config struct {
	// ServerURL is the backend base URL, e.g. http://localhost:8000.
	ServerURL string `yaml:"server_url"`
	// Token is the bearer token sent with every request. Supports
	// ${VAR} expansion so it never has to live in the file verbatim.
	Token string `yaml:"token"`
	// LogLevel selects the zap level: debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
	// Timeout bounds non-streaming requests.
	Timeout Duration `yaml:"timeout"`

	Stream       StreamConfig       `yaml:"stream"`
	Verification VerificationConfig `yaml:"verification"`
}

// StreamConfig holds rendering defaults for streamed answers.
type StreamConfig struct {
	// MinStable is the minimum accumulated text length before any prefix
	// is frozen for final rendering. Zero uses the built-in default.
	MinStable int `yaml:"min_stable"`
}

// VerificationConfig holds the verification polling schedule.
type VerificationConfig struct {
	Initial   Duration `yaml:"initial"`
	Max       Duration `yaml:"max"`
	DoubleFor int      `yaml:"double_for"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		ServerURL: "http://localhost:8000",
		LogLevel:  "info",
		Timeout:   Duration{30 * time.Second},
	}
}

// DefaultPath returns the conventional config file location,
// ~/.config/research/config.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".config", "research", "config.yaml")
}
