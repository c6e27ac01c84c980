package flows

import (
	"context"

	"github.com/MrEthical07/goSession/identity"
	"github.com/MrEthical07/goSession/session"
)

// SignInFailureKind classifies sign-in and sign-up failures for root-level
// mapping.
type SignInFailureKind int

const (
	SignInFailureNone SignInFailureKind = iota
	SignInFailureValidation
	SignInFailureRegister
	SignInFailureObtain
	SignInFailureStore
)

// SignInResult carries either the stored session or failure metadata.
type SignInResult struct {
	Failure SignInFailureKind
	Err     error
	Session *session.StoredSession
}

// SignInDeps captures sign-in and sign-up dependencies.
type SignInDeps struct {
	Identity IdentityService
	State    SessionState
}

// RunSignIn validates creds, obtains a token pair and persists the session.
// A failed sign-in leaves any existing session untouched.
func RunSignIn(ctx context.Context, creds identity.Credentials, deps SignInDeps) SignInResult {
	if err := creds.Validate(); err != nil {
		return SignInResult{Failure: SignInFailureValidation, Err: err}
	}

	pair, err := deps.Identity.Obtain(ctx, creds)
	if err != nil {
		return SignInResult{Failure: SignInFailureObtain, Err: err}
	}

	sess := &session.StoredSession{
		AccessToken:  pair.Access,
		RefreshToken: pair.Refresh,
		Username:     creds.Username,
	}
	if err := deps.State.Write(ctx, sess); err != nil {
		return SignInResult{Failure: SignInFailureStore, Err: err}
	}
	return SignInResult{Session: sess}
}

// RunSignUp registers the user, then signs in with the same credentials.
func RunSignUp(ctx context.Context, reg identity.Registration, deps SignInDeps) SignInResult {
	if err := reg.Validate(); err != nil {
		return SignInResult{Failure: SignInFailureValidation, Err: err}
	}
	if err := deps.Identity.Register(ctx, reg); err != nil {
		return SignInResult{Failure: SignInFailureRegister, Err: err}
	}
	return RunSignIn(ctx, reg.Credentials(), deps)
}

// RunSignOut clears the session, the background marker and the attached token.
func RunSignOut(ctx context.Context, state SessionState) error {
	return state.Write(ctx, nil)
}
