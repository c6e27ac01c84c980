package goSession

import (
	"errors"

	"github.com/MrEthical07/goSession/identity"
	"github.com/MrEthical07/goSession/session"
)

var (
	// ErrMissingCredentials is returned when a required credential field is
	// empty. No request is made.
	ErrMissingCredentials = errors.New("missing credentials")
	// ErrLoginFailed wraps an identity service rejection of a sign-in. The
	// wrapped *APIError carries the server's detail verbatim.
	ErrLoginFailed = errors.New("login failed")
	// ErrSignupFailed wraps an identity service rejection of a registration.
	ErrSignupFailed = errors.New("signup failed")
	// ErrRequestFailed is returned when the identity service could not be reached.
	ErrRequestFailed = identity.ErrRequest
	// ErrStoreUnavailable is returned when the session store cannot be reached.
	ErrStoreUnavailable = session.ErrStoreUnavailable
	// ErrInvalidConfig is returned by Config.Validate and Builder.Build.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrClientNotReady is returned by a Client that was not built through Builder.
	ErrClientNotReady = errors.New("client not initialized")
)
