package config

import (
	"os"
	"path/filepath"
)

// DefaultDataDir returns the default data directory based on the host OS.
// It prefers standard locations when available and falls back to a dotdir
// in the user's home directory.
func DefaultDataDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil || homeDir == "" {
		return "./data"
	}

	// XDG (Linux) override
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "stateflo")
	}

	// Common Linux/Unix system dir
	if isDir("/var/lib") {
		return "/var/lib/stateflo"
	}

	// macOS: ~/Library/Application Support/Stateflo
	if isDir(filepath.Join(homeDir, "Library")) {
		return filepath.Join(homeDir, "Library", "Application Support", "Stateflo")
	}

	// Windows: %USERPROFILE%/AppData/Local/Stateflo
	if isDir(filepath.Join(homeDir, "AppData")) {
		return filepath.Join(homeDir, "AppData", "Local", "Stateflo")
	}

	// Fallback: ~/.stateflo
	return filepath.Join(homeDir, ".stateflo")
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// DefaultConfigPath returns config.yaml under the user config directory, or
// under DefaultDataDir when that is unknown.
func DefaultConfigPath() string {
	if dir, err := os.UserConfigDir(); err == nil && dir != "" {
		return filepath.Join(dir, "stateflo", "config.yaml")
	}
	return filepath.Join(DefaultDataDir(), "config.yaml")
}
