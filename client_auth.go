package goSession

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/goSession/identity"
	"github.com/MrEthical07/goSession/internal/flows"
	"github.com/MrEthical07/goSession/internal/telemetry"
)

// SignIn obtains a token pair and persists the session. Empty fields fail with
// [ErrMissingCredentials] before any request. A rejection wraps
// [ErrLoginFailed] and an [*APIError] whose Detail is the server's message.
// Any existing session is untouched on failure.
func (c *Client) SignIn(ctx context.Context, username, password string) error {
	if err := c.ready(); err != nil {
		return err
	}
	ctx = withFlowCorrelation(ctx)
	res := c.flows.SignIn(ctx, Credentials{Username: username, Password: password})
	return c.signInOutcome(ctx, res, false)
}

// SignUp registers reg and then signs in with the same credentials. A
// rejected registration wraps [ErrSignupFailed]; a rejected sign-in after a
// successful registration wraps [ErrLoginFailed].
func (c *Client) SignUp(ctx context.Context, reg Registration) error {
	if err := c.ready(); err != nil {
		return err
	}
	ctx = withFlowCorrelation(ctx)
	res := c.flows.SignUp(ctx, reg)
	return c.signInOutcome(ctx, res, true)
}

func (c *Client) signInOutcome(ctx context.Context, res flows.SignInResult, signup bool) error {
	switch res.Failure {
	case flows.SignInFailureNone:
		if signup {
			c.metrics.Inc(MetricSignUpSuccess)
		}
		c.metrics.Inc(MetricSignInSuccess)
		c.log.Info("signed in", "username", res.Session.Username)
		return nil
	case flows.SignInFailureValidation:
		c.metrics.Inc(MetricValidationFailure)
		return fmt.Errorf("%w: %v", ErrMissingCredentials, res.Err)
	case flows.SignInFailureStore:
		c.metrics.Inc(MetricSignInFailure)
		return res.Err
	case flows.SignInFailureRegister:
		c.metrics.Inc(MetricSignUpFailure)
		c.reportAuthFailure(ctx, telemetry.KindSignupFailed, res.Err)
		return identityFailure(ErrSignupFailed, res.Err)
	default:
		c.metrics.Inc(MetricSignInFailure)
		c.reportAuthFailure(ctx, telemetry.KindLoginFailed, res.Err)
		return identityFailure(ErrLoginFailed, res.Err)
	}
}

// identityFailure keeps transport errors distinguishable from rejections.
func identityFailure(sentinel, err error) error {
	if errors.Is(err, identity.ErrRequest) {
		return err
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}

func (c *Client) reportAuthFailure(ctx context.Context, kind string, err error) {
	c.emit(ctx, kind, func(e *TelemetryEvent) {
		e.Message = err.Error()
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			e.Status = apiErr.Status
		}
	})
}

// SignOut clears the session, the background marker and the attached token.
// The attached token is detached even when the store cannot be reached.
func (c *Client) SignOut(ctx context.Context) error {
	if err := c.ready(); err != nil {
		return err
	}
	if err := c.flows.SignOut(ctx); err != nil {
		return err
	}
	c.metrics.Inc(MetricSignOut)
	return nil
}

// RestoreSession silently refreshes a persisted session, typically at launch.
// It reports whether the session is usable; a failed refresh signs the user
// out.
func (c *Client) RestoreSession(ctx context.Context) (bool, error) {
	if err := c.ready(); err != nil {
		return false, err
	}
	ctx = withFlowCorrelation(ctx)
	res := c.flows.Restore(ctx)
	switch res.Outcome {
	case flows.RestoreRefreshed:
		c.metrics.Inc(MetricSessionRestored)
		return true, nil
	case flows.RestoreSignedOut:
		c.sessionWiped(ctx, "restore_failed")
		return false, res.Err
	default:
		return false, res.Err
	}
}
