// Package config holds the settings for a scheduler run.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/me/slicer/internal/jobtable"
	"github.com/me/slicer/internal/logging"
)

// OutputDiscard sends job stdout and stderr to /dev/null.
const OutputDiscard = "none"

// Config holds configuration for `slicer run`. Every field may come from a
// YAML file; command-line flags override the file.
type Config struct {
	Concurrency   int           `yaml:"ncpu"`     // Execution slots (default 1)
	SliceDuration time.Duration `yaml:"tslice"`   // Slice length, e.g. "100ms"
	Capacity      int           `yaml:"capacity"` // Job table size (default 64)

	// Output receives job stdout and stderr: "" inherits slicer's stdout,
	// "none" discards, anything else is a file opened for append.
	Output string `yaml:"output"`

	Addr      string `yaml:"addr"`       // Admission API listen address; empty disables it
	DBPath    string `yaml:"db"`         // History database (default ~/.slicer/history.db)
	NoHistory bool   `yaml:"no_history"` // Skip recording the run
	Shell     bool   `yaml:"shell"`      // Read submissions from stdin
	Wait      bool   `yaml:"wait"`       // After the shell closes, let jobs finish before shutting down

	LogLevel  string `yaml:"log_level"`  // debug, info, warn, error
	LogFormat string `yaml:"log_format"` // text, json

	ConfirmRetries  int           `yaml:"confirm_retries"`  // Pause confirmation polls
	ConfirmInterval time.Duration `yaml:"confirm_interval"` // Delay between polls
}

// Default returns sensible defaults.
func Default() Config {
	return Config{
		Concurrency:     1,
		SliceDuration:   100 * time.Millisecond,
		Capacity:        jobtable.DefaultCapacity,
		Shell:           true,
		LogLevel:        "info",
		LogFormat:       "text",
		ConfirmRetries:  20,
		ConfirmInterval: 500 * time.Microsecond,
	}
}

// Load reads a YAML file over the defaults. Keys missing from the file keep
// their default values.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects settings the scheduler cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("ncpu must be >= 1, got %d", c.Concurrency))
	}
	if c.SliceDuration <= 0 {
		errs = append(errs, fmt.Errorf("tslice must be positive, got %s", c.SliceDuration))
	}
	if c.Capacity < 1 {
		errs = append(errs, fmt.Errorf("capacity must be >= 1, got %d", c.Capacity))
	}
	if c.ConfirmRetries < 0 {
		errs = append(errs, fmt.Errorf("confirm_retries must be >= 0, got %d", c.ConfirmRetries))
	}
	if _, err := logging.ParseFormat(c.LogFormat); err != nil {
		errs = append(errs, err)
	}
	if c.ConfirmInterval < 0 {
		errs = append(errs, fmt.Errorf("confirm_interval must not be negative, got %s", c.ConfirmInterval))
	}
	return errors.Join(errs...)
}

// ResolveDBPath returns the history database path, creating the default
// directory under the user's home when no path is set.
func (c Config) ResolveDBPath() (string, error) {
	if c.DBPath != "" {
		return c.DBPath, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".slicer")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("cannot create %s: %w", dir, err)
	}
	return filepath.Join(dir, "history.db"), nil
}

// OpenOutput returns the file job output goes to, or nil to discard it.
// The returned close function is safe to call for every case.
func (c Config) OpenOutput() (*os.File, func() error, error) {
	noop := func() error { return nil }
	switch c.Output {
	case "":
		return os.Stdout, noop, nil
	case OutputDiscard:
		return nil, noop, nil
	}
	f, err := os.OpenFile(c.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, noop, fmt.Errorf("open output %s: %w", c.Output, err)
	}
	return f, f.Close, nil
}
