// Package callwindow provides the sliding window log engine that backs every
// call rate limiter in this module. It keeps, per session key, an ordered log
// of recent call timestamps and makes the prune -> check -> append admission
// decision atomically under one mutex.
package callwindow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gammazero/deque"
	"github.com/rs/zerolog/log"

	"learn.callratelimit/types"
)

// Limiter counts calls per session key over a trailing window and rejects
// calls once a session's count reaches the configured maximum.
type Limiter struct {
	name     string
	maxCalls int64
	window   time.Duration

	mu        sync.Mutex
	sessions  map[any]*deque.Deque[time.Time]
	lastSweep time.Time

	nowFunc func() time.Time
}

var _ types.Limiter = (*Limiter)(nil)

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock sets a custom clock (nowFunc) for the Limiter.
func WithClock(nowFunc func() time.Time) Option {
	return func(l *Limiter) {
		l.nowFunc = nowFunc
	}
}

// New creates a sliding window log limiter. It takes a name identifying the
// guarded callable (used in errors and logs), the maximum number of calls
// allowed per window, and the window size. Invalid configuration fails with
// a *types.ConfigError.
func New(name string, maxCalls int64, window time.Duration, opts ...Option) (*Limiter, error) {
	if name == "" {
		return nil, &types.ConfigError{Reason: "limiter name must not be empty"}
	}
	if maxCalls <= 0 {
		return nil, &types.ConfigError{Reason: fmt.Sprintf("limiter '%s': max calls must be positive, got %d", name, maxCalls)}
	}
	if window <= 0 {
		return nil, &types.ConfigError{Reason: fmt.Sprintf("limiter '%s': window must be positive, got %s", name, window)}
	}

	l := &Limiter{
		name:     name,
		maxCalls: maxCalls,
		window:   window,
		sessions: make(map[any]*deque.Deque[time.Time]),
		nowFunc:  time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.lastSweep = l.nowFunc()

	log.Info().Str("limiter_type", "SlidingWindowLog").Str("limiter_key", name).Dur("window", window).Int64("limit", maxCalls).Msg("Limiter: Initialized")
	return l, nil
}

// Allow decides whether one more call may proceed for the given session.
// A nil session is counted against types.DefaultSession. The decision is
// atomic per limiter: expired timestamps are pruned, then the call is either
// admitted (recording the current time) or rejected with a
// *types.RateLimitError without recording anything.
func (l *Limiter) Allow(ctx context.Context, session any) error {
	if session == nil {
		session = types.DefaultSession
	}

	select {
	case <-ctx.Done():
		log.Warn().Err(ctx.Err()).Str("limiter_key", l.name).Msg("Limiter: Context done before check")
		return ctx.Err()
	default:
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFunc()
	l.maybeSweep(now)

	calls, exists := l.sessions[session]
	if !exists {
		log.Debug().Str("limiter_key", l.name).Any("session", session).Msg("Limiter: Creating new session bucket")
		calls = &deque.Deque[time.Time]{}
		l.sessions[session] = calls
	}

	prune(calls, now, l.window)

	if int64(calls.Len()) >= l.maxCalls {
		log.Debug().Str("limiter_key", l.name).Any("session", session).Int("count", calls.Len()).Msg("Limiter: Rejected")
		return &types.RateLimitError{Name: l.name, MaxCalls: l.maxCalls, Window: l.window}
	}

	calls.PushBack(now)
	return nil
}

// Prune removes expired timestamps from every session's log and evicts
// session buckets left empty. Allow does this lazily; Prune is for callers
// that want stale state dropped immediately.
func (l *Limiter) Prune() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sweep(l.nowFunc())
}

// Sessions returns the number of session buckets currently tracked.
func (l *Limiter) Sessions() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.sessions)
}

// maybeSweep runs the eviction sweep at most once per window length so a
// burst of distinct session keys cannot grow the table forever.
// Callers must hold l.mu.
func (l *Limiter) maybeSweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.window {
		return
	}
	l.sweep(now)
}

// sweep prunes every session's log and deletes buckets whose log is empty.
// Callers must hold l.mu.
func (l *Limiter) sweep(now time.Time) {
	l.lastSweep = now
	evicted := 0
	for session, calls := range l.sessions {
		prune(calls, now, l.window)
		if calls.Len() == 0 {
			delete(l.sessions, session)
			evicted++
		}
	}
	if evicted > 0 {
		log.Debug().Str("limiter_key", l.name).Int("evicted", evicted).Int("remaining", len(l.sessions)).Msg("Limiter: Evicted stale session buckets")
	}
}

// prune drops timestamps aged one window or more. A timestamp exactly one
// window old is expired.
func prune(calls *deque.Deque[time.Time], now time.Time, window time.Duration) {
	for calls.Len() > 0 && now.Sub(calls.Front()) >= window {
		calls.PopFront()
	}
}
