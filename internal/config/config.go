package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads configuration from standard locations with environment overrides.
// Search order: ~/.murexrc, $XDG_CONFIG_HOME/murex/config.toml,
// ~/.config/murex/config.toml. A .env file in the working directory is
// loaded first so MUREX_* overrides can live there.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	// Try loading from file
	path := findConfigFile()
	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, err
		}
	}

	// Apply defaults, then environment variable overrides
	cfg.ApplyDefaults()
	applyEnvOverrides(cfg)

	return cfg, nil
}

// LoadFrom reads configuration from a specific file path.
func LoadFrom(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	applyEnvOverrides(cfg)
	return cfg, nil
}

// findConfigFile returns the first existing config file path.
func findConfigFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	paths := []string{
		filepath.Join(home, ".murexrc"),
	}

	// XDG_CONFIG_HOME or default
	xdgConfig := os.Getenv("XDG_CONFIG_HOME")
	if xdgConfig == "" {
		xdgConfig = filepath.Join(home, ".config")
	}
	paths = append(paths, filepath.Join(xdgConfig, "murex", "config.toml"))

	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(cfg *Config) {
	// Library
	if v := os.Getenv("MUREX_LIBRARY_DIR"); v != "" {
		cfg.Library.Dir = v
	}
	if v := os.Getenv("MUREX_DB_URL"); v != "" {
		cfg.Library.DBURL = v
	}

	// Playback
	if v := os.Getenv("MUREX_PLAYBACK_ENGINE"); v != "" {
		cfg.Playback.Engine = v
	}

	// Remote
	if v := os.Getenv("MUREX_REMOTE_LISTEN"); v != "" {
		cfg.Remote.Listen = v
	}
	if v := os.Getenv("MUREX_JWT_SECRET"); v != "" {
		cfg.Remote.JWTSecret = v
	}

	// TUI
	if v := os.Getenv("MUREX_TUI_THEME"); v != "" {
		cfg.TUI.Theme = v
	}
	if v := os.Getenv("MUREX_TUI_REFRESH_INTERVAL"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.TUI.RefreshInterval = i
		}
	}

	// Log
	if v := os.Getenv("MUREX_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("MUREX_LOG_FILE"); v != "" {
		cfg.Log.File = v
	}
}
