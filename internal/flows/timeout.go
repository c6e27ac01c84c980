package flows

import (
	"context"
	"time"
)

// TimeoutResult is the resume decision.
type TimeoutResult struct {
	Authenticated bool
	Expired       bool
	Elapsed       time.Duration
	Err           error
}

// TimeoutDeps captures session timeout dependencies. A Threshold <= 0 requires
// re-authentication on every resume that follows a background marker.
type TimeoutDeps struct {
	State     SessionState
	Now       func() time.Time
	Threshold time.Duration
}

// RunMarkBackgrounded records the moment the app left the foreground. It is a
// no-op without a session.
func RunMarkBackgrounded(ctx context.Context, deps TimeoutDeps) error {
	return deps.State.MarkBackgrounded(ctx, deps.Now())
}

// RunEnforceTimeout decides on resume whether the session survives. It never
// refreshes; a surviving session keeps its tokens unchanged.
func RunEnforceTimeout(ctx context.Context, deps TimeoutDeps) TimeoutResult {
	sess, err := deps.State.Read(ctx)
	if err != nil {
		return TimeoutResult{Err: err}
	}
	if !sess.Valid() {
		return TimeoutResult{Err: deps.State.Write(ctx, nil)}
	}

	at, ok, err := deps.State.BackgroundedAt(ctx)
	if err != nil {
		return TimeoutResult{Err: err}
	}
	if !ok {
		return TimeoutResult{Authenticated: true}
	}

	elapsed := deps.Now().Sub(at)
	if deps.Threshold <= 0 || elapsed >= deps.Threshold {
		return TimeoutResult{Expired: true, Elapsed: elapsed, Err: deps.State.Write(ctx, nil)}
	}

	if err := deps.State.ClearBackgrounded(ctx); err != nil {
		return TimeoutResult{Authenticated: true, Elapsed: elapsed, Err: err}
	}
	return TimeoutResult{Authenticated: true, Elapsed: elapsed}
}
