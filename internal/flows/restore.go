package flows

import "context"

// RestoreOutcome is the result of a silent session restore.
type RestoreOutcome int

const (
	RestoreNoSession RestoreOutcome = iota
	RestoreRefreshed
	RestoreSignedOut
)

// RestoreResult carries the outcome. Err is set only for store failures.
type RestoreResult struct {
	Outcome RestoreOutcome
	Err     error
}

// RestoreDeps captures restore dependencies.
type RestoreDeps struct {
	State     SessionState
	Refresher Refresher
}

// RunRestore refreshes the stored session. A refresh failure signs the user
// out, unless the session was replaced or cleared while the refresh ran. A
// rotation that lands between the read and the flight is reused rather than
// exchanged again with the spent refresh token.
func RunRestore(ctx context.Context, deps RestoreDeps) RestoreResult {
	sess, err := deps.State.Read(ctx)
	if err != nil {
		return RestoreResult{Outcome: RestoreNoSession, Err: err}
	}
	if !sess.Valid() {
		if err := deps.State.Write(ctx, nil); err != nil {
			return RestoreResult{Outcome: RestoreNoSession, Err: err}
		}
		return RestoreResult{Outcome: RestoreNoSession}
	}

	if _, ok := deps.Refresher.RefreshStale(ctx, sess.AccessToken, sess.RefreshToken); ok {
		return RestoreResult{Outcome: RestoreRefreshed}
	}

	wiped, err := deps.State.WipeIfCurrent(ctx, sess.RefreshToken)
	if err != nil {
		return RestoreResult{Outcome: RestoreSignedOut, Err: err}
	}
	if !wiped {
		return RestoreResult{Outcome: RestoreNoSession}
	}
	return RestoreResult{Outcome: RestoreSignedOut}
}
