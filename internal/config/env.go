package config

import (
	"os"
	"strconv"
	"strings"
)

// FromEnv overlays STATEFLO_* environment variables onto cfg. Malformed
// numbers and booleans are ignored.
func FromEnv(cfg *Config) {
	if v := os.Getenv("STATEFLO_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("STATEFLO_BACKEND"); v != "" {
		cfg.Backend = v
	}
	if v := os.Getenv("STATEFLO_FSYNC"); v != "" {
		cfg.Fsync = v
	}
	if v := os.Getenv("STATEFLO_FSYNC_INTERVAL_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.FsyncIntervalMs = n
		}
	}
	if v := os.Getenv("STATEFLO_CODEC"); v != "" {
		cfg.Codec = v
	}
	if v := os.Getenv("STATEFLO_CHANGELOG_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Changelog.Enabled = b
		}
	}
	if v := os.Getenv("STATEFLO_CHANGELOG_NAMESPACE"); v != "" {
		cfg.Changelog.Namespace = v
	}
	if v := os.Getenv("STATEFLO_CHANGELOG_RECOVER_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Changelog.RecoverBatchSize = n
		}
	}
	if v := os.Getenv("STATEFLO_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("STATEFLO_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("STATEFLO_LOG_OUTPUTS"); v != "" {
		cfg.Log.Outputs = strings.Split(v, ",")
	}
	if v := os.Getenv("STATEFLO_METRICS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Metrics.Enabled = b
		}
	}
	if v := os.Getenv("STATEFLO_METRICS_NAMESPACE"); v != "" {
		cfg.Metrics.Namespace = v
	}
}
