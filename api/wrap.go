package api

import (
	"context"

	"learn.callratelimit/types"
)

// SessionFunc derives the session key from a call's argument. The returned
// value must be comparable. Returning nil assigns the call to the shared
// default bucket.
type SessionFunc[T any] func(arg T) any

// WrapFunc guards fn with l. Every call shares one bucket regardless of
// arguments. A nil limiter or callable fails with a *types.ConfigError.
//
// Admission happens before fn runs and the limiter is not locked while fn
// runs, so long calls do not serialize unrelated work. An error returned by
// fn propagates unmodified; the call stays counted either way.
func WrapFunc[T, R any](l types.Limiter, fn func(context.Context, T) (R, error)) (func(context.Context, T) (R, error), error) {
	if l == nil {
		return nil, &types.ConfigError{Reason: "limiter must not be nil"}
	}
	if fn == nil {
		return nil, &types.ConfigError{Reason: "wrapped callable must not be nil"}
	}
	return func(ctx context.Context, arg T) (R, error) {
		if err := l.Allow(ctx, types.DefaultSession); err != nil {
			var zero R
			return zero, err
		}
		return fn(ctx, arg)
	}, nil
}

// WrapSessionFunc guards fn with l, partitioning the rate budget by the key
// session derives from each call's argument. A nil limiter, callable, or
// session accessor fails with a *types.ConfigError before any call is made.
func WrapSessionFunc[T, R any](l types.Limiter, fn func(context.Context, T) (R, error), session SessionFunc[T]) (func(context.Context, T) (R, error), error) {
	if l == nil {
		return nil, &types.ConfigError{Reason: "limiter must not be nil"}
	}
	if fn == nil {
		return nil, &types.ConfigError{Reason: "wrapped callable must not be nil"}
	}
	if session == nil {
		return nil, &types.ConfigError{Reason: "session accessor must not be nil"}
	}
	return func(ctx context.Context, arg T) (R, error) {
		if err := l.Allow(ctx, session(arg)); err != nil {
			var zero R
			return zero, err
		}
		return fn(ctx, arg)
	}, nil
}

// Do admits one call for the given session through l and, if admitted,
// invokes fn. It is the escape hatch for callables that do not fit the
// single-argument wrapper shape.
func Do[R any](ctx context.Context, l types.Limiter, session any, fn func(context.Context) (R, error)) (R, error) {
	if err := l.Allow(ctx, session); err != nil {
		var zero R
		return zero, err
	}
	return fn(ctx)
}
