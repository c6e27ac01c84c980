package goSession

import (
	"fmt"
	"strings"

	"github.com/MrEthical07/goSession/identity"
)

// Credentials are the sign-in fields.
type Credentials = identity.Credentials

// Registration is the sign-up request.
type Registration = identity.Registration

// APIError is a non-2xx identity service response. Detail is the server's
// message, suitable for display.
type APIError = identity.APIError

// TimeoutResult is the outcome of a resume check. Expired is set when the
// session was wiped because the app stayed in the background too long.
type TimeoutResult struct {
	Authenticated bool
	Expired       bool
}

// UnlockOutcome is the result of [Client.UnlockWithBiometrics].
type UnlockOutcome int

const (
	// UnlockNoSession means there was nothing to unlock.
	UnlockNoSession UnlockOutcome = iota
	// UnlockRestored means the session was refreshed and is attached.
	UnlockRestored
	// UnlockCancelled means the user declined. The stored session is kept and
	// calls go out unauthenticated until a later unlock succeeds.
	UnlockCancelled
	// UnlockSignedOut means the refresh failed and the session was wiped.
	UnlockSignedOut
)

func (o UnlockOutcome) String() string {
	switch o {
	case UnlockRestored:
		return "restored"
	case UnlockCancelled:
		return "cancelled"
	case UnlockSignedOut:
		return "signed_out"
	default:
		return "no_session"
	}
}

// RefreshFailurePolicy decides what a failed refresh inside the HTTP retry
// path does to the stored session.
type RefreshFailurePolicy int

const (
	// PolicyKeepSession propagates the original 401 and leaves the session as is.
	PolicyKeepSession RefreshFailurePolicy = iota
	// PolicyWipeSession propagates the original 401 and signs the user out.
	PolicyWipeSession
)

func (p RefreshFailurePolicy) String() string {
	if p == PolicyWipeSession {
		return "wipe"
	}
	return "keep"
}

// ParseRefreshFailurePolicy parses "keep" or "wipe".
func ParseRefreshFailurePolicy(s string) (RefreshFailurePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "keep":
		return PolicyKeepSession, nil
	case "wipe":
		return PolicyWipeSession, nil
	default:
		return PolicyKeepSession, fmt.Errorf("%w: unknown refresh failure policy %q", ErrInvalidConfig, s)
	}
}
