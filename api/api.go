// Package api is the public surface of the call rate limiter: explicit
// limiter construction, config-file driven construction, and generic
// wrappers that guard callables.
package api

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	apiinternal "learn.callratelimit/api/internal"
	"learn.callratelimit/internal/callwindow"
	"learn.callratelimit/types"
)

// NewLimiter creates a sliding window call limiter allowing maxCalls calls
// per window. The name identifies the guarded callable in errors and logs.
// Invalid configuration fails with a *types.ConfigError.
func NewLimiter(name string, maxCalls int64, window time.Duration, opts ...callwindow.Option) (types.Limiter, error) {
	return callwindow.New(name, maxCalls, window, opts...)
}

// NewLimitersFromConfigPath loads the YAML config at configPath and returns
// a map of rate limiters keyed by their configured key.
func NewLimitersFromConfigPath(configPath string) (map[string]types.Limiter, error) {
	log.Info().Str("config_path", configPath).Msg("API: Initializing rate limiters from config")
	cfgFile, err := apiinternal.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("error loading configuration: %w", err)
	}

	if len(cfgFile.Limiters) == 0 {
		return nil, fmt.Errorf("no limiter configurations found in %s", configPath)
	}

	limiters := make(map[string]types.Limiter, len(cfgFile.Limiters))
	for _, cfg := range cfgFile.Limiters {
		if err := cfg.Validate(); err != nil {
			log.Error().Err(err).Str("limiter_key", cfg.Key).Msg("API: Invalid limiter configuration")
			return nil, err
		}
		if _, exists := limiters[cfg.Key]; exists {
			return nil, &types.ConfigError{Reason: fmt.Sprintf("duplicate limiter key '%s'", cfg.Key)}
		}

		limiter, err := callwindow.New(cfg.Key, cfg.MaxCalls, cfg.Window())
		if err != nil {
			return nil, fmt.Errorf("limiter '%s': failed to create instance: %w", cfg.Key, err)
		}
		limiters[cfg.Key] = limiter
		log.Info().Str("limiter_key", cfg.Key).Int64("max_calls", cfg.MaxCalls).Float64("window_seconds", cfg.WindowSeconds).Msg("API: Limiter created")
	}

	log.Info().Int("count", len(limiters)).Msg("API: All rate limiters initialized")
	return limiters, nil
}
