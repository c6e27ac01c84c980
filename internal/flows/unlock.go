package flows

import (
	"context"

	"github.com/MrEthical07/goSession/biometric"
)

// UnlockOutcome is the result of a biometric-gated resume.
type UnlockOutcome int

const (
	UnlockNoSession UnlockOutcome = iota
	UnlockRestored
	UnlockCancelled
	UnlockSignedOut
)

// UnlockResult carries the outcome. PromptErr is set when the prompt itself
// failed; Err only for store failures.
type UnlockResult struct {
	Outcome   UnlockOutcome
	Prompted  bool
	PromptErr error
	Err       error
}

// UnlockDeps captures biometric unlock dependencies.
type UnlockDeps struct {
	Restore RestoreDeps
	Gate    biometric.Gate
	Reason  string
}

// RunUnlock prompts for biometric confirmation before restoring the session.
// Without capability it falls through to a plain restore. A declined or
// failed prompt detaches the token and keeps the stored session.
func RunUnlock(ctx context.Context, deps UnlockDeps) UnlockResult {
	state := deps.Restore.State

	sess, err := state.Read(ctx)
	if err != nil {
		return UnlockResult{Outcome: UnlockNoSession, Err: err}
	}
	if !sess.Valid() {
		return UnlockResult{Outcome: UnlockNoSession}
	}

	gate := deps.Gate
	if gate == nil {
		gate = biometric.Unsupported{}
	}
	if !gate.Available(ctx) {
		return fromRestore(RunRestore(ctx, deps.Restore), false)
	}

	confirmed, promptErr := gate.Prompt(ctx, deps.Reason)
	if promptErr != nil || !confirmed {
		state.DetachToken()
		return UnlockResult{Outcome: UnlockCancelled, Prompted: true, PromptErr: promptErr}
	}

	if _, ok := deps.Restore.Refresher.RefreshStale(ctx, sess.AccessToken, sess.RefreshToken); ok {
		return UnlockResult{Outcome: UnlockRestored, Prompted: true}
	}
	wiped, err := state.WipeIfCurrent(ctx, sess.RefreshToken)
	if err != nil {
		return UnlockResult{Outcome: UnlockSignedOut, Prompted: true, Err: err}
	}
	if !wiped {
		return UnlockResult{Outcome: UnlockNoSession, Prompted: true}
	}
	return UnlockResult{Outcome: UnlockSignedOut, Prompted: true}
}

func fromRestore(r RestoreResult, prompted bool) UnlockResult {
	out := UnlockResult{Prompted: prompted, Err: r.Err}
	switch r.Outcome {
	case RestoreRefreshed:
		out.Outcome = UnlockRestored
	case RestoreSignedOut:
		out.Outcome = UnlockSignedOut
	default:
		out.Outcome = UnlockNoSession
	}
	return out
}
