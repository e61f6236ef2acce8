package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/natefinch/atomic"
	"github.com/tailscale/hujson"
	"gopkg.in/yaml.v3"
)

// Storage backends.
const (
	BackendPebble = "pebble"
	BackendBolt   = "bolt"
)

// Config is the top-level configuration loaded from file/env.
type Config struct {
	DataDir         string          `json:"dataDir" yaml:"dataDir" toml:"dataDir"`
	Backend         string          `json:"backend" yaml:"backend" toml:"backend"`
	Fsync           string          `json:"fsync" yaml:"fsync" toml:"fsync"`
	FsyncIntervalMs int             `json:"fsyncIntervalMs" yaml:"fsyncIntervalMs" toml:"fsyncIntervalMs"`
	Codec           string          `json:"codec" yaml:"codec" toml:"codec"`
	Changelog       ChangelogConfig `json:"changelog" yaml:"changelog" toml:"changelog"`
	Log             LogConfig       `json:"log" yaml:"log" toml:"log"`
	Metrics         MetricsConfig   `json:"metrics" yaml:"metrics" toml:"metrics"`
}

// ChangelogConfig controls changelog mirroring and recovery.
type ChangelogConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled" toml:"enabled"`
	// Namespace groups the changelog topics inside the changelog database.
	Namespace string `json:"namespace" yaml:"namespace" toml:"namespace"`
	// RecoverBatchSize is the number of records applied per write during recovery.
	RecoverBatchSize int `json:"recoverBatchSize" yaml:"recoverBatchSize" toml:"recoverBatchSize"`
}

// LogConfig selects log level and format.
type LogConfig struct {
	Level  string `json:"level" yaml:"level" toml:"level"`
	Format string `json:"format" yaml:"format" toml:"format"`
	// Outputs lists log sinks: console, null, zap or file:<path>. Empty means console.
	Outputs []string `json:"outputs,omitempty" yaml:"outputs,omitempty" toml:"outputs,omitempty"`
}

// MetricsConfig controls Prometheus collectors.
type MetricsConfig struct {
	Enabled   bool   `json:"enabled" yaml:"enabled" toml:"enabled"`
	Namespace string `json:"namespace" yaml:"namespace" toml:"namespace"`
}

// Default returns built-in defaults.
func Default() Config {
	return Config{
		DataDir:         DefaultDataDir(),
		Backend:         BackendPebble,
		Fsync:           "interval",
		FsyncIntervalMs: 5,
		Codec:           "json",
		Changelog: ChangelogConfig{
			Enabled:          true,
			Namespace:        "changelog",
			RecoverBatchSize: 1000,
		},
		Log:     LogConfig{Level: "info", Format: "text"},
		Metrics: MetricsConfig{Enabled: false, Namespace: "stateflo"},
	}
}

// Load reads configuration from a file, choosing the format by extension:
// .json, .jsonc and .hujson (comments and trailing commas allowed), .yaml/.yml
// and .toml. Unknown extensions are parsed as JSON. Fields missing from the
// file keep their defaults. If path is empty, returns defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &cfg)
	case ".toml":
		_, err = toml.Decode(string(b), &cfg)
	default:
		var std []byte
		if std, err = hujson.Standardize(b); err == nil {
			err = json.Unmarshal(std, &cfg)
		}
	}
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks enumerated fields and numeric ranges.
func (c Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("config: dataDir is required")
	}
	switch c.Backend {
	case BackendPebble, BackendBolt:
	default:
		return fmt.Errorf("config: unknown backend %q (want %s or %s)", c.Backend, BackendPebble, BackendBolt)
	}
	switch c.Fsync {
	case "", "always", "interval", "never":
	default:
		return fmt.Errorf("config: unknown fsync mode %q", c.Fsync)
	}
	if c.FsyncIntervalMs < 0 {
		return fmt.Errorf("config: fsyncIntervalMs must not be negative")
	}
	if c.Codec != "" && c.Codec != "json" {
		return fmt.Errorf("config: unsupported codec %q", c.Codec)
	}
	if c.Changelog.Enabled && c.Changelog.Namespace == "" {
		return fmt.Errorf("config: changelog.namespace is required when the changelog is enabled")
	}
	if c.Changelog.RecoverBatchSize < 0 {
		return fmt.Errorf("config: changelog.recoverBatchSize must not be negative")
	}
	return nil
}

// WriteFile atomically writes cfg to path in the format its extension selects.
func WriteFile(path string, cfg Config) error {
	var buf bytes.Buffer
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return err
		}
		if err := enc.Close(); err != nil {
			return err
		}
	case ".toml":
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return err
		}
	default:
		b, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return err
		}
		buf.Write(b)
		buf.WriteByte('\n')
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return atomic.WriteFile(path, &buf)
}
