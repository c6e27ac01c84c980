package goSession

import (
	"context"

	"github.com/MrEthical07/goSession/internal/flows"
	"github.com/MrEthical07/goSession/internal/telemetry"
)

// AppBackgrounded records the moment the app left the foreground. It does
// nothing when signed out.
func (c *Client) AppBackgrounded(ctx context.Context) error {
	if err := c.ready(); err != nil {
		return err
	}
	return c.flows.MarkBackgrounded(ctx)
}

// AppResumed is [Client.EnforceSessionTimeout].
func (c *Client) AppResumed(ctx context.Context) (TimeoutResult, error) {
	return c.EnforceSessionTimeout(ctx)
}

// EnforceSessionTimeout decides on resume whether the session survived the
// background period. A session backgrounded for Session.Timeout or longer is
// wiped. A surviving session keeps its tokens; no refresh is made.
func (c *Client) EnforceSessionTimeout(ctx context.Context) (TimeoutResult, error) {
	if err := c.ready(); err != nil {
		return TimeoutResult{}, err
	}
	res := c.flows.EnforceTimeout(ctx)
	if res.Expired {
		c.metrics.Inc(MetricSessionExpired)
		c.emit(ctx, telemetry.KindSessionExpired, func(e *TelemetryEvent) {
			e.Message = res.Elapsed.String()
		})
	} else if res.Authenticated {
		c.metrics.Inc(MetricSessionResumed)
	}
	return TimeoutResult{Authenticated: res.Authenticated, Expired: res.Expired}, res.Err
}

// UnlockWithBiometrics prompts the configured gate, then refreshes the
// session. Without biometric capability it behaves like
// [Client.RestoreSession]. A declined prompt keeps the stored session but
// detaches the access token.
func (c *Client) UnlockWithBiometrics(ctx context.Context) (UnlockOutcome, error) {
	if err := c.ready(); err != nil {
		return UnlockNoSession, err
	}
	ctx = withFlowCorrelation(ctx)
	res := c.flows.Unlock(ctx)
	if res.PromptErr != nil {
		c.log.Warn("biometric prompt failed", "error", res.PromptErr)
	}

	switch res.Outcome {
	case flows.UnlockRestored:
		if res.Prompted {
			c.metrics.Inc(MetricBiometricUnlocked)
		}
		c.metrics.Inc(MetricSessionRestored)
		return UnlockRestored, res.Err
	case flows.UnlockCancelled:
		c.metrics.Inc(MetricBiometricCancelled)
		return UnlockCancelled, res.Err
	case flows.UnlockSignedOut:
		c.sessionWiped(ctx, "unlock_refresh_failed")
		return UnlockSignedOut, res.Err
	default:
		return UnlockNoSession, res.Err
	}
}
