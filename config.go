package goSession

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/MrEthical07/goSession/identity"
	"github.com/MrEthical07/goSession/transport"
)

// Config is the complete Client configuration. Start from [DefaultConfig] and
// override fields; the zero value is not valid.
type Config struct {
	Endpoints EndpointsConfig
	Session   SessionConfig
	HTTP      HTTPConfig
	Biometric BiometricConfig
	Telemetry TelemetryConfig
	Metrics   MetricsConfig
}

/*
====================================
ENDPOINTS CONFIG
====================================
*/

// EndpointsConfig locates the identity service.
type EndpointsConfig struct {
	BaseURL      string
	TokenPath    string
	RefreshPath  string
	RegisterPath string
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls persistence and the resume timeout.
type SessionConfig struct {
	// Timeout is the longest background period a session survives. Zero or
	// negative requires re-authentication on every resume.
	Timeout     time.Duration
	RedisPrefix string
}

/*
====================================
HTTP CONFIG
====================================
*/

// HTTPConfig controls the authenticated transport.
type HTTPConfig struct {
	Timeout               time.Duration
	CorrelationHeader     string
	AuthScheme            string
	RefreshFailurePolicy  RefreshFailurePolicy
	PreemptiveRefreshSkew time.Duration
}

// BiometricConfig controls the unlock prompt.
type BiometricConfig struct {
	PromptReason string
}

// TelemetryConfig controls failure reporting. Reporting never fails a call;
// with DropIfFull off a full buffer delays it by at most EnqueueTimeout.
type TelemetryConfig struct {
	Enabled        bool
	BufferSize     int
	DropIfFull     bool
	EnqueueTimeout time.Duration
}

// MetricsConfig controls in-process metrics.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// maxTelemetryEnqueueTimeout caps how long a failed call may wait on a full
// telemetry buffer.
const maxTelemetryEnqueueTimeout = time.Second

// DefaultSessionTimeout is the resume threshold when none is configured.
const DefaultSessionTimeout = 15 * time.Minute

func defaultConfig() Config {
	return Config{
		Endpoints: EndpointsConfig{
			TokenPath:    identity.DefaultTokenPath,
			RefreshPath:  identity.DefaultRefreshPath,
			RegisterPath: identity.DefaultRegisterPath,
		},
		Session: SessionConfig{
			Timeout: DefaultSessionTimeout,
		},
		HTTP: HTTPConfig{
			Timeout:              15 * time.Second,
			CorrelationHeader:    transport.DefaultCorrelationHeader,
			AuthScheme:           "Bearer",
			RefreshFailurePolicy: PolicyKeepSession,
		},
		Biometric: BiometricConfig{
			PromptReason: "Unlock your session",
		},
		Telemetry: TelemetryConfig{
			Enabled:    true,
			BufferSize:     256,
			DropIfFull:     true,
			EnqueueTimeout: 50 * time.Millisecond,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// DefaultConfig returns the documented defaults: 15 minute session timeout,
// 15 second call timeout, keep-session refresh failure policy, no preemptive
// refresh. Endpoints.BaseURL must still be set.
func DefaultConfig() Config {
	return defaultConfig()
}

// HighSecurityConfig shortens the session timeout, signs the user out on any
// refresh failure, and refreshes shortly before access tokens expire.
func HighSecurityConfig() Config {
	cfg := defaultConfig()
	cfg.Session.Timeout = 5 * time.Minute
	cfg.HTTP.RefreshFailurePolicy = PolicyWipeSession
	cfg.HTTP.PreemptiveRefreshSkew = 30 * time.Second
	cfg.Telemetry.DropIfFull = true
	return cfg
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid field, wrapped in [ErrInvalidConfig].
func (c *Config) Validate() error {
	// Endpoints
	if strings.TrimSpace(c.Endpoints.BaseURL) == "" {
		return invalid("Endpoints BaseURL is required")
	}
	u, err := url.Parse(c.Endpoints.BaseURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return invalid("Endpoints BaseURL must be an absolute http(s) URL")
	}
	for _, p := range []struct{ name, value string }{
		{"TokenPath", c.Endpoints.TokenPath},
		{"RefreshPath", c.Endpoints.RefreshPath},
		{"RegisterPath", c.Endpoints.RegisterPath},
	} {
		if !strings.HasPrefix(p.value, "/") {
			return invalid("Endpoints " + p.name + " must start with /")
		}
	}

	// HTTP
	if c.HTTP.Timeout <= 0 {
		return invalid("HTTP Timeout must be > 0")
	}
	if strings.TrimSpace(c.HTTP.CorrelationHeader) == "" {
		return invalid("HTTP CorrelationHeader is required")
	}
	if c.HTTP.PreemptiveRefreshSkew < 0 {
		return invalid("HTTP PreemptiveRefreshSkew must be >= 0")
	}
	switch c.HTTP.RefreshFailurePolicy {
	case PolicyKeepSession, PolicyWipeSession:
	default:
		return invalid("HTTP RefreshFailurePolicy is invalid")
	}

	// Telemetry
	if c.Telemetry.Enabled && c.Telemetry.BufferSize <= 0 {
		return invalid("Telemetry BufferSize must be > 0 when enabled")
	}
	if c.Telemetry.Enabled && !c.Telemetry.DropIfFull {
		if c.Telemetry.EnqueueTimeout <= 0 {
			return invalid("Telemetry EnqueueTimeout must be > 0 when DropIfFull is off")
		}
		if c.Telemetry.EnqueueTimeout > maxTelemetryEnqueueTimeout {
			return invalid("Telemetry EnqueueTimeout must be <= 1s")
		}
	}

	return nil
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, msg)
}
