// Package middleware applies call rate limiters to HTTP handlers.
package middleware

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"learn.callratelimit/metrics"
	"learn.callratelimit/types"
)

// RateLimitMiddleware provides rate limiting functionality for HTTP routes.
type RateLimitMiddleware struct {
	limiter    types.Limiter
	metrics    *metrics.RateLimitMetrics
	limiterKey string
}

// NewRateLimitMiddleware creates a new RateLimitMiddleware. limiterKey is
// the metrics label identifying the limiter.
func NewRateLimitMiddleware(limiter types.Limiter, m *metrics.RateLimitMetrics, limiterKey string) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		limiter:    limiter,
		metrics:    m,
		limiterKey: limiterKey,
	}
}

// Handle wraps an http.HandlerFunc with rate limiting logic. identifierFunc
// extracts the session identifier (e.g. the client IP) from the request; an
// empty identifier falls back to the shared default bucket. Rejected
// requests get a 429 with a Retry-After header set to the window length.
func (m *RateLimitMiddleware) Handle(next http.HandlerFunc, identifierFunc func(*http.Request) string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := types.DefaultSession
		if id := identifierFunc(r); id != "" {
			session = id
		} else {
			log.Debug().Str("limiter_key", m.limiterKey).Str("remote_addr", r.RemoteAddr).Msg("Middleware: No identifier extracted, using default session")
		}

		err := m.limiter.Allow(r.Context(), session)
		if err == nil {
			m.metrics.RecordRequest(m.limiterKey, true)
			next.ServeHTTP(w, r)
			return
		}

		m.metrics.RecordRequest(m.limiterKey, false)

		var limitErr *types.RateLimitError
		if errors.As(err, &limitErr) {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(limitErr.Window.Seconds()))))
			w.WriteHeader(http.StatusTooManyRequests)
			log.Debug().Str("limiter_key", m.limiterKey).Any("session", session).Msg("Middleware: Request rate limited")
			return
		}

		log.Error().Err(err).Str("limiter_key", m.limiterKey).Msg("Middleware: Error checking rate limit")
		w.WriteHeader(http.StatusInternalServerError)
	}
}
