package config

import (
	"os"
	"path/filepath"
	"strings"
)

// Default returns a Config populated with sensible defaults.
func Default() *Config {
	return &Config{
		Playback: PlaybackConfig{
			Engine:     "auto",
			Volume:     50,
			Shuffle:    false,
			Repeat:     "none",
			TickMillis: 200,
		},
		Remote: RemoteConfig{
			Listen: "127.0.0.1:7707",
		},
		Market: MarketConfig{
			PayoutPerPlayCents: 1,
			MinInvestCents:     100,
		},
		Tail: TailConfig{
			Enabled:  false,
			Interval: 1000,
		},
		TUI: TUIConfig{
			Theme:           "auto",
			RefreshInterval: 1000,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// ApplyDefaults fills in zero values with sensible defaults.
func (c *Config) ApplyDefaults() {
	d := Default()

	// Playback
	if c.Playback.Engine == "" {
		c.Playback.Engine = d.Playback.Engine
	}
	if c.Playback.Volume == 0 {
		c.Playback.Volume = d.Playback.Volume
	}
	if c.Playback.Repeat == "" {
		c.Playback.Repeat = d.Playback.Repeat
	}
	if c.Playback.TickMillis == 0 {
		c.Playback.TickMillis = d.Playback.TickMillis
	}

	// Remote
	if c.Remote.Listen == "" {
		c.Remote.Listen = d.Remote.Listen
	}

	// Market
	if c.Market.PayoutPerPlayCents == 0 {
		c.Market.PayoutPerPlayCents = d.Market.PayoutPerPlayCents
	}
	if c.Market.MinInvestCents == 0 {
		c.Market.MinInvestCents = d.Market.MinInvestCents
	}

	// Tail
	if c.Tail.Interval == 0 {
		c.Tail.Interval = d.Tail.Interval
	}

	// TUI
	if c.TUI.Theme == "" {
		c.TUI.Theme = d.TUI.Theme
	}
	if c.TUI.RefreshInterval == 0 {
		c.TUI.RefreshInterval = d.TUI.RefreshInterval
	}

	// Log
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
}

// ResolveDir returns the library directory, falling back to
// ~/.local/share/murex when unset.
func (c *LibraryConfig) ResolveDir() (string, error) {
	if c.Dir != "" {
		return expandHome(c.Dir)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", "murex"), nil
}

// ResolveDBURL returns the database URL, falling back to a sqlite file
// inside the library directory.
func (c *LibraryConfig) ResolveDBURL() (string, error) {
	if c.DBURL != "" {
		return c.DBURL, nil
	}
	dir, err := c.ResolveDir()
	if err != nil {
		return "", err
	}
	return "sqlite://" + filepath.Join(dir, "murex.db"), nil
}

func expandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
