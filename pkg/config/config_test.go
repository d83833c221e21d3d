package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFrom_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if cfg.HistoryLimit != DefaultHistoryLimit {
		t.Errorf("history = %d, want %d", cfg.HistoryLimit, DefaultHistoryLimit)
	}
	if cfg.Weights.FilterMatch != 9000 {
		t.Errorf("weights not defaulted: %+v", cfg.Weights)
	}
	if cfg.EventWeights.Change != 60 {
		t.Errorf("event weights not defaulted: %+v", cfg.EventWeights)
	}
}

func TestLoadFrom_OverridesAndDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("history_limit: 9\n" +
		"breathe_ms: 500\n" +
		"ignore: [vendor, target]\n" +
		"weights:\n" +
		"  root: 10000\n" +
		"  filter_match: 9000\n" +
		"  conflict: 1200\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.HistoryLimit != 9 {
		t.Errorf("history = %d, want 9", cfg.HistoryLimit)
	}
	if cfg.BreatheMS != 500 {
		t.Errorf("breathe = %d, want 500", cfg.BreatheMS)
	}
	if len(cfg.Ignore) != 2 || cfg.Ignore[0] != "vendor" {
		t.Errorf("ignore = %v", cfg.Ignore)
	}
	// Untouched sections keep their defaults.
	if cfg.IntervalMS != DefaultIntervalMS {
		t.Errorf("interval = %d, want default", cfg.IntervalMS)
	}
	// The weight table came from the file (partial, but non-zero).
	if cfg.Weights.Conflict != 1200 {
		t.Errorf("conflict weight = %v, want 1200", cfg.Weights.Conflict)
	}
}

func TestLoadFrom_MalformedYAMLErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("history_limit: [not an int"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFrom(path); err == nil {
		t.Error("malformed yaml should error")
	}
}

func TestSaveTo_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deep", "config.yaml")

	want := DefaultConfig()
	want.GhostSteps = 7
	want.Weights.Hot = 999

	if err := SaveTo(want, path); err != nil {
		t.Fatal(err)
	}
	got, err := LoadFrom(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.GhostSteps != 7 {
		t.Errorf("ghost steps = %d, want 7", got.GhostSteps)
	}
	if got.Weights.Hot != 999 {
		t.Errorf("hot weight = %v, want 999", got.Weights.Hot)
	}
}

func TestConfigDir_RespectsXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg-test")
	if got := ConfigDir(); got != "/tmp/xdg-test/smolder" {
		t.Errorf("ConfigDir = %s", got)
	}
	if got := ConfigPath(); got != "/tmp/xdg-test/smolder/config.yaml" {
		t.Errorf("ConfigPath = %s", got)
	}
}
