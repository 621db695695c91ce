package types

import (
	"errors"
	"fmt"
	"time"
)

// ErrRateLimited matches any *RateLimitError via errors.Is.
var ErrRateLimited = errors.New("rate limit exceeded")

// ConfigError reports invalid limiter configuration. It is returned at
// construction or wrap time only, never from Allow.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "rate limiter configuration: " + e.Reason
}

// RateLimitError reports a call rejected because the session's window was
// already full. It identifies the guarded callable and the configured rate.
type RateLimitError struct {
	Name     string
	MaxCalls int64
	Window   time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("calls to %s issued too frequently: maximum allowed rate is %d/%s", e.Name, e.MaxCalls, e.Window)
}

func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}
