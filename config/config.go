// Package config defines limiter configuration and the time-unit constants
// used to express rate limit windows.
package config

import (
	"fmt"
	"time"

	"learn.callratelimit/types"
)

// Convenience window sizes. Month and Year are fixed 30-day and 365-day
// approximations, not calendar-aware durations.
const (
	Second = time.Second
	Minute = time.Minute
	Hour   = time.Hour
	Day    = 24 * Hour
	Week   = 7 * Day
	Month  = 30 * Day
	Year   = 365 * Day
)

// LimiterConfig holds the configuration for a single rate limiter instance.
type LimiterConfig struct {
	Key           string  `yaml:"key"`
	MaxCalls      int64   `yaml:"max_calls"`
	WindowSeconds float64 `yaml:"window_seconds"`
}

// Validate checks the configuration invariants. It returns a
// *types.ConfigError describing the first violation found.
func (c LimiterConfig) Validate() error {
	if c.Key == "" {
		return &types.ConfigError{Reason: "limiter configuration missing 'key' field"}
	}
	if c.MaxCalls <= 0 {
		return &types.ConfigError{Reason: fmt.Sprintf("limiter '%s': max_calls must be positive, got %d", c.Key, c.MaxCalls)}
	}
	if c.WindowSeconds <= 0 {
		return &types.ConfigError{Reason: fmt.Sprintf("limiter '%s': window_seconds must be positive, got %v", c.Key, c.WindowSeconds)}
	}
	return nil
}

// Window returns the configured window as a time.Duration.
func (c LimiterConfig) Window() time.Duration {
	return time.Duration(c.WindowSeconds * float64(time.Second))
}
