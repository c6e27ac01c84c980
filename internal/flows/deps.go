package flows

import (
	"context"
	"time"

	"github.com/MrEthical07/goSession/identity"
	"github.com/MrEthical07/goSession/session"
)

// SessionState is the single writer of the persisted session and the attached
// token. Write(nil) clears both, including the background marker.
type SessionState interface {
	Read(ctx context.Context) (*session.StoredSession, error)
	Write(ctx context.Context, sess *session.StoredSession) error
	DetachToken()
	// WipeIfCurrent clears the session only while its refresh token is still
	// refreshToken. wiped is false when it was replaced or already gone.
	WipeIfCurrent(ctx context.Context, refreshToken string) (wiped bool, err error)
	MarkBackgrounded(ctx context.Context, now time.Time) error
	BackgroundedAt(ctx context.Context) (time.Time, bool, error)
	ClearBackgrounded(ctx context.Context) error
}

// IdentityService is the subset of the identity client the flows call.
type IdentityService interface {
	Obtain(ctx context.Context, creds identity.Credentials) (*identity.TokenPair, error)
	Register(ctx context.Context, reg identity.Registration) error
}

// Refresher obtains a new access token through the shared flight. A
// successful refresh has already been persisted when it returns. When the
// attached token has already moved past staleAccess, that token is returned
// without an exchange.
type Refresher interface {
	RefreshStale(ctx context.Context, staleAccess, refreshToken string) (string, bool)
}

// Deps groups flow dependency sets. The Client builds this once and delegates
// operations to the matching flow implementation.
type Deps struct {
	SignIn  SignInDeps
	Restore RestoreDeps
	Unlock  UnlockDeps
	Timeout TimeoutDeps
}
