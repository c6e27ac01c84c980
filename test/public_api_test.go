package test

import (
	"context"
	"net/http"
	"testing"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/biometric"
	"github.com/MrEthical07/goSession/metrics/export/prometheus"
	"github.com/MrEthical07/goSession/refresh"
	"github.com/MrEthical07/goSession/transport"
)

// Guards public API compile-compat for consumers.
func TestPublicAPISurfaceCompile(t *testing.T) {
	_ = goSession.New
	_ = goSession.DefaultConfig
	_ = goSession.HighSecurityConfig

	var _ *goSession.Client
	var _ *goSession.Builder
	var _ goSession.Config
	var _ goSession.Credentials
	var _ goSession.Registration
	var _ *goSession.APIError
	var _ goSession.TimeoutResult
	var _ goSession.UnlockOutcome
	var _ goSession.TelemetrySink = goSession.NoOpTelemetrySink{}
	var _ biometric.Gate = biometric.Unsupported{}
	var _ http.RoundTripper = (*transport.Recovery)(nil)

	var _ error = goSession.ErrMissingCredentials
	var _ error = goSession.ErrLoginFailed
	var _ error = goSession.ErrSignupFailed
	var _ error = goSession.ErrRequestFailed
	var _ error = goSession.ErrStoreUnavailable
	var _ error = goSession.ErrInvalidConfig

	var _ func(*goSession.Client, context.Context, string, string) error = (*goSession.Client).SignIn
	var _ func(*goSession.Client, context.Context, goSession.Registration) error = (*goSession.Client).SignUp
	var _ func(*goSession.Client, context.Context) error = (*goSession.Client).SignOut
	var _ func(*goSession.Client, context.Context) (bool, error) = (*goSession.Client).RestoreSession
	var _ func(*goSession.Client, context.Context) error = (*goSession.Client).AppBackgrounded
	var _ func(*goSession.Client, context.Context) (goSession.TimeoutResult, error) = (*goSession.Client).AppResumed
	var _ func(*goSession.Client, context.Context) (goSession.TimeoutResult, error) = (*goSession.Client).EnforceSessionTimeout
	var _ func(*goSession.Client, context.Context) (goSession.UnlockOutcome, error) = (*goSession.Client).UnlockWithBiometrics
	var _ func(*goSession.Client, *http.Request) (*http.Response, error) = (*goSession.Client).Do
	var _ func(*goSession.Client) (time.Time, bool) = (*goSession.Client).AccessTokenExpiry
	var _ func(*goSession.Client) refresh.Stats = (*goSession.Client).RefreshStats
	var _ func(*goSession.Client) *prometheus.PrometheusExporter = prometheus.NewPrometheusExporter
}
