// Package config handles loading and saving smolder configuration.
//
// Configuration follows the XDG Base Directory specification:
//   - Config: ~/.config/smolder/config.yaml
//
// The config file mainly exists so the ranking can be retuned without a
// rebuild: the additive weight table and the heat event weights are data
// here, not code. CLI flags override anything loaded from disk.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/smolder/pkg/heat"
	"github.com/vanderheijden86/smolder/pkg/layout"
)

// Defaults mirrored by the CLI flags.
const (
	DefaultHistoryLimit = 4
	DefaultIntervalMS   = 100
	DefaultGhostSteps   = 3
	DefaultBreatheMS    = 2000
)

// DefaultIgnore is the out-of-the-box ignore set.
func DefaultIgnore() []string {
	return []string{"node_modules", ".git", "dist"}
}

// Config is the top-level configuration for smolder.
type Config struct {
	HistoryLimit int      `yaml:"history_limit,omitempty"`
	IntervalMS   int      `yaml:"interval_ms,omitempty"`
	GhostSteps   int      `yaml:"ghost_steps,omitempty"`
	BreatheMS    int      `yaml:"breathe_ms,omitempty"`
	Ignore       []string `yaml:"ignore,omitempty"`
	NoGit        bool     `yaml:"no_git,omitempty"`

	// Weights ranks candidate lines; EventWeights seeds heat scores.
	Weights      layout.WeightTable `yaml:"weights"`
	EventWeights heat.Weights       `yaml:"event_weights"`
}

// DefaultConfig returns a Config with the contract defaults.
func DefaultConfig() Config {
	return Config{
		HistoryLimit: DefaultHistoryLimit,
		IntervalMS:   DefaultIntervalMS,
		GhostSteps:   DefaultGhostSteps,
		BreatheMS:    DefaultBreatheMS,
		Ignore:       DefaultIgnore(),
		Weights:      layout.DefaultWeightTable(),
		EventWeights: heat.DefaultWeights(),
	}
}

// Interval returns the debounce window as a duration.
func (c Config) Interval() time.Duration {
	return time.Duration(c.IntervalMS) * time.Millisecond
}

// Breathe returns the breath-tick period as a duration.
func (c Config) Breathe() time.Duration {
	return time.Duration(c.BreatheMS) * time.Millisecond
}

// ConfigDir returns the XDG config directory for smolder.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "smolder")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "smolder")
}

// ConfigPath returns the full path to config.yaml.
func ConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// Load reads the config file from the XDG config directory.
// Returns DefaultConfig if the file doesn't exist.
func Load() (Config, error) {
	path := ConfigPath()
	if path == "" {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads config from a specific path.
// Returns DefaultConfig if the file doesn't exist.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	// Decoding starts from DefaultConfig, so a partial weight table keeps
	// the default for every component it leaves out. A table whose
	// components are all zero reverts to the defaults.
	if cfg.Weights == (layout.WeightTable{}) {
		cfg.Weights = layout.DefaultWeightTable()
	}
	if cfg.EventWeights == (heat.Weights{}) {
		cfg.EventWeights = heat.DefaultWeights()
	}
	return cfg, nil
}

// Save writes the config to the XDG config directory.
func Save(cfg Config) error {
	path := ConfigPath()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the config to a specific path.
func SaveTo(cfg Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}
