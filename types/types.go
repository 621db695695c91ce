// Package types defines common types and interfaces used throughout the rate limiter.
package types

import "context"

// Limiter is the interface implemented by every call rate limiter.
type Limiter interface {
	// Allow checks whether one more call may proceed for the given session.
	// It returns nil when the call is admitted, a *RateLimitError when the
	// session's window is already full, and the context's error when ctx is
	// done. A nil session is counted against DefaultSession.
	Allow(ctx context.Context, session any) error
}

// noSession is the type of the DefaultSession sentinel.
type noSession struct{}

func (noSession) String() string { return "default" }

// DefaultSession is the bucket shared by all calls that carry no session key.
var DefaultSession any = noSession{}
