package goSession

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/MrEthical07/goSession/biometric"
	"github.com/MrEthical07/goSession/identity"
	"github.com/MrEthical07/goSession/internal/flows"
	"github.com/MrEthical07/goSession/internal/telemetry"
	"github.com/MrEthical07/goSession/refresh"
	"github.com/MrEthical07/goSession/session"
	"github.com/MrEthical07/goSession/transport"
	"github.com/redis/go-redis/v9"
)

// Builder assembles a [Client]. It is single-use: Build may succeed once.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	gate      biometric.Gate
	sink      TelemetrySink
	logger    *slog.Logger
	now       func() time.Time
	transport http.RoundTripper

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithRedis sets the session store backend. Required.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithBiometricGate sets the unlock gate. Defaults to [biometric.Unsupported].
func (b *Builder) WithBiometricGate(gate biometric.Gate) *Builder {
	b.gate = gate
	return b
}

// WithTelemetrySink sets where request and session failures are reported.
func (b *Builder) WithTelemetrySink(sink TelemetrySink) *Builder {
	b.sink = sink
	return b
}

// WithLogger sets the structured logger. Defaults to discarding.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock overrides the wall clock used for the background marker and the
// resume timeout.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithHTTPTransport sets the base RoundTripper under the session decorators.
func (b *Builder) WithHTTPTransport(rt http.RoundTripper) *Builder {
	b.transport = rt
	return b
}

// WithSessionTimeout sets Session.Timeout. Zero requires sign-in on every
// resume.
func (b *Builder) WithSessionTimeout(d time.Duration) *Builder {
	b.config.Session.Timeout = d
	return b
}

// WithMetricsEnabled sets Metrics.Enabled.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms sets Metrics.EnableLatencyHistograms.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the Client.
func (b *Builder) Build() (*Client, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if b.redis == nil {
		return nil, errors.New("redis client required")
	}

	cfg := b.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	now := b.now
	if now == nil {
		now = time.Now
	}
	gate := b.gate
	if gate == nil {
		gate = biometric.Unsupported{}
	}
	sink := b.sink
	if sink == nil {
		sink = telemetry.LogSink{Logger: logger}
	}
	base := b.transport
	if base == nil {
		base = http.DefaultTransport
	}

	c := &Client{
		config:  cfg,
		state:   newSessionState(session.NewStore(b.redis, cfg.Session.RedisPrefix)),
		metrics: NewMetrics(cfg.Metrics),
		now:     now,
		log:     logger,
	}

	c.telemetry = telemetry.NewDispatcher(telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		BufferSize:     cfg.Telemetry.BufferSize,
		DropIfFull:     cfg.Telemetry.DropIfFull,
		EnqueueTimeout: cfg.Telemetry.EnqueueTimeout,
		CorrelationID:  transport.CorrelationIDFromContext,
	}, sink)

	// -------- IDENTITY --------
	identityHTTP := &http.Client{
		Transport: transport.Correlation(base, cfg.HTTP.CorrelationHeader),
		Timeout:   cfg.HTTP.Timeout,
	}
	c.identity = identity.NewClient(identity.Options{
		BaseURL:      cfg.Endpoints.BaseURL,
		TokenPath:    cfg.Endpoints.TokenPath,
		RefreshPath:  cfg.Endpoints.RefreshPath,
		RegisterPath: cfg.Endpoints.RegisterPath,
		HTTPClient:   identityHTTP,
		Logger:       logger,
	})

	// -------- REFRESH COORDINATOR --------
	c.refresher = refresh.New(refresh.Config{
		Exchanger: refresh.ExchangerFunc(c.exchange),
		Commit:    c.state.commit,
		Current:   c.state.AccessToken,
		Logger:    logger.With("component", "refresh"),
		OnExchange: func(ok bool) {
			if ok {
				c.metrics.Inc(MetricRefreshSuccess)
				return
			}
			c.metrics.Inc(MetricRefreshFailure)
		},
		OnJoin:  func() { c.metrics.Inc(MetricRefreshJoined) },
		OnReuse: func() { c.metrics.Inc(MetricRefreshReused) },
	})

	// -------- AUTHENTICATED TRANSPORT --------
	recovery := transport.NewRecovery(base, transport.RecoveryOptions{
		Scheme:            cfg.HTTP.AuthScheme,
		CorrelationHeader: cfg.HTTP.CorrelationHeader,
		PreemptiveSkew:    cfg.HTTP.PreemptiveRefreshSkew,
	}, transport.RecoveryDeps{
		AccessToken:         c.state.AccessToken,
		RefreshToken:        c.state.RefreshToken,
		Refresh:             c.refresher.RefreshStale,
		OnRefreshFailure:    c.onTransportRefreshFailure,
		Report:              c.reportRequestFailure,
		Now:                 now,
		OnRecovered:         func() { c.metrics.Inc(MetricRequestRecovered) },
		OnRecoveryFailed:    func() { c.metrics.Inc(MetricRecoveryFailed) },
		OnPreemptiveRefresh: func() { c.metrics.Inc(MetricPreemptiveRefresh) },
		ObserveLatency:      func(d time.Duration) { c.metrics.Observe(MetricRequestLatency, d) },
	})
	c.httpClient = &http.Client{
		Transport: recovery,
		Timeout:   cfg.HTTP.Timeout,
	}

	// -------- FLOWS --------
	restore := flows.RestoreDeps{State: c.state, Refresher: c.refresher}
	c.flows = flows.New(flows.Deps{
		SignIn:  flows.SignInDeps{Identity: c.identity, State: c.state},
		Restore: restore,
		Unlock: flows.UnlockDeps{
			Restore: restore,
			Gate:    gate,
			Reason:  cfg.Biometric.PromptReason,
		},
		Timeout: flows.TimeoutDeps{
			State:     c.state,
			Now:       now,
			Threshold: cfg.Session.Timeout,
		},
	})

	b.built = true

	return c, nil
}

func (c *Client) exchange(ctx context.Context, refreshToken string) (refresh.Result, error) {
	pair, err := c.identity.Refresh(ctx, refreshToken)
	if err != nil {
		return refresh.Result{}, err
	}
	return refresh.Result{AccessToken: pair.Access, RefreshToken: pair.Refresh}, nil
}
