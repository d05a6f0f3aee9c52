package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if err := c.Library.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("library: %w", err))
	}
	if err := c.Playback.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("playback: %w", err))
	}
	if err := c.Remote.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("remote: %w", err))
	}
	if err := c.Market.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("market: %w", err))
	}
	if err := c.Tail.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("tail: %w", err))
	}
	if err := c.TUI.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("tui: %w", err))
	}
	if err := c.Log.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("log: %w", err))
	}

	return errors.Join(errs...)
}

// Validate checks LibraryConfig for errors.
func (c *LibraryConfig) Validate() error {
	if c.DBURL == "" {
		return nil
	}
	switch {
	case strings.HasPrefix(c.DBURL, "sqlite://"), strings.HasPrefix(c.DBURL, "postgres://"):
		return nil
	}
	return fmt.Errorf("invalid db_url scheme: %s (must be sqlite:// or postgres://)", c.DBURL)
}

// Validate checks PlaybackConfig for errors.
func (c *PlaybackConfig) Validate() error {
	switch c.Engine {
	case "", "auto", "beep", "clock":
		// valid
	default:
		return fmt.Errorf("invalid engine: %s (must be auto, beep, or clock)", c.Engine)
	}
	if c.Volume < 0 || c.Volume > 100 {
		return errors.New("volume must be between 0 and 100")
	}
	switch c.Repeat {
	case "", "none", "one", "all":
		// valid
	default:
		return fmt.Errorf("invalid repeat mode: %s (must be none, one, or all)", c.Repeat)
	}
	if c.TickMillis < 0 {
		return errors.New("tick_ms must be non-negative")
	}
	return nil
}

// Validate checks RemoteConfig for errors.
func (c *RemoteConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Listen == "" {
		return errors.New("listen address is required when remote is enabled")
	}
	if c.JWTSecret == "" {
		return errors.New("jwt_secret is required when remote is enabled")
	}
	return nil
}

// Validate checks MarketConfig for errors.
func (c *MarketConfig) Validate() error {
	if c.PayoutPerPlayCents < 0 {
		return errors.New("payout_per_play_cents must be non-negative")
	}
	if c.MinInvestCents < 0 {
		return errors.New("min_invest_cents must be non-negative")
	}
	return nil
}

// Validate checks TailConfig for errors.
func (c *TailConfig) Validate() error {
	if c.Interval < 0 {
		return errors.New("interval must be non-negative")
	}
	return nil
}

// Validate checks TUIConfig for errors.
func (c *TUIConfig) Validate() error {
	switch c.Theme {
	case "", "auto", "latte", "frappe", "macchiato", "mocha":
		// valid
	default:
		return fmt.Errorf("invalid theme: %s (must be auto, latte, frappe, macchiato, or mocha)", c.Theme)
	}
	if c.RefreshInterval < 0 {
		return errors.New("refresh_interval must be non-negative")
	}
	return nil
}

// Validate checks LogConfig for errors.
func (c *LogConfig) Validate() error {
	switch c.Level {
	case "", "debug", "info", "warn", "error":
		// valid
	default:
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Level)
	}
	return nil
}
