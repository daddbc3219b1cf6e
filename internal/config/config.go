// Package config holds the tunable settings for the progress display and
// their environment variable overrides. Programs normally never touch this
// package; the defaults are chosen so that bars look right out of the box.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// EnvPrefix is prepended to every environment variable read by this package.
const EnvPrefix = "HEADWAY_"

const (
	// DefaultRefreshInterval is the scheduler tick period. The displayed
	// frame is never staler than this, even if no bar is being incremented.
	DefaultRefreshInterval = 100 * time.Millisecond
	// DefaultGracePeriod is how long a finished bar remains visible before
	// it is retired from the live display.
	DefaultGracePeriod = 250 * time.Millisecond
	// MinRefreshInterval and MaxRefreshInterval bound user-supplied
	// refresh intervals to keep redraws both fresh and cheap.
	MinRefreshInterval = 20 * time.Millisecond
	MaxRefreshInterval = time.Second
)

// Settings groups every tunable of the progress display.
type Settings struct {
	// RefreshInterval is the background redraw cadence.
	RefreshInterval time.Duration
	// GracePeriod is the time a completed bar stays in the live frame.
	GracePeriod time.Duration
	// BarWidth caps the rendered line width in columns. Zero means use the
	// detected terminal width.
	BarWidth int
	// ForceTTY treats the output as interactive even when it is not a
	// terminal. Useful in CI systems that emulate one.
	ForceTTY bool
	// Disabled suppresses all rendering while keeping progress state
	// available programmatically.
	Disabled bool
}

// Default returns the built-in settings with environment overrides applied.
func Default() Settings {
	s := Settings{
		RefreshInterval: DefaultRefreshInterval,
		GracePeriod:     DefaultGracePeriod,
	}
	s.RefreshInterval = getEnvDuration("REFRESH_INTERVAL", s.RefreshInterval)
	s.GracePeriod = getEnvDuration("GRACE_PERIOD", s.GracePeriod)
	s.BarWidth = getEnvInt("BAR_WIDTH", s.BarWidth)
	s.ForceTTY = getEnvBool("FORCE_TTY", s.ForceTTY)
	s.Disabled = getEnvBool("DISABLE", s.Disabled)
	return s.Normalized()
}

// Normalized clamps out-of-range values to their nearest legal setting.
func (s Settings) Normalized() Settings {
	if s.RefreshInterval < MinRefreshInterval {
		s.RefreshInterval = MinRefreshInterval
	}
	if s.RefreshInterval > MaxRefreshInterval {
		s.RefreshInterval = MaxRefreshInterval
	}
	if s.GracePeriod < 0 {
		s.GracePeriod = 0
	}
	if s.BarWidth < 0 {
		s.BarWidth = 0
	}
	return s
}

// getEnvInt returns the value of the environment variable with the given key
// (prefixed with EnvPrefix) parsed as int, or the default value if not set
// or invalid.
func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return defaultVal
}

// getEnvBool returns the value of the environment variable with the given key
// (prefixed with EnvPrefix) parsed as bool, or the default value if not set.
// Accepts "true", "1", "yes" as true; "false", "0", "no" as false
// (case-insensitive).
func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		switch strings.ToLower(val) {
		case "true", "1", "yes":
			return true
		case "false", "0", "no":
			return false
		}
	}
	return defaultVal
}

// getEnvDuration returns the value of the environment variable with the given
// key (prefixed with EnvPrefix) parsed as time.Duration, or the default value
// if not set or invalid. Accepts formats like "150ms", "1s".
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	return defaultVal
}
