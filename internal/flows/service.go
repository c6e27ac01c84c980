package flows

import (
	"context"

	"github.com/MrEthical07/goSession/identity"
)

// Service is the centralized flow runner built once by the Client.
type Service struct {
	deps Deps
}

// New returns a flow service with immutable dependency wiring.
func New(deps Deps) Service {
	return Service{deps: deps}
}

// Initialized reports whether the service has been wired with flow deps.
func (s Service) Initialized() bool {
	return s.deps.SignIn.State != nil && s.deps.Restore.Refresher != nil
}

func (s Service) SignIn(ctx context.Context, creds identity.Credentials) SignInResult {
	return RunSignIn(ctx, creds, s.deps.SignIn)
}

func (s Service) SignUp(ctx context.Context, reg identity.Registration) SignInResult {
	return RunSignUp(ctx, reg, s.deps.SignIn)
}

func (s Service) SignOut(ctx context.Context) error {
	return RunSignOut(ctx, s.deps.SignIn.State)
}

func (s Service) Restore(ctx context.Context) RestoreResult {
	return RunRestore(ctx, s.deps.Restore)
}

func (s Service) Unlock(ctx context.Context) UnlockResult {
	return RunUnlock(ctx, s.deps.Unlock)
}

func (s Service) MarkBackgrounded(ctx context.Context) error {
	return RunMarkBackgrounded(ctx, s.deps.Timeout)
}

func (s Service) EnforceTimeout(ctx context.Context) TimeoutResult {
	return RunEnforceTimeout(ctx, s.deps.Timeout)
}
