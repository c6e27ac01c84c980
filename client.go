package goSession

import (
	"context"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/goSession/identity"
	"github.com/MrEthical07/goSession/internal/flows"
	"github.com/MrEthical07/goSession/internal/telemetry"
	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/refresh"
	"github.com/MrEthical07/goSession/session"
)

// StoredSession is the persisted session.
type StoredSession = session.StoredSession

// Client owns one user session: its persisted tokens, the token attached to
// outgoing calls, and the refresh flight shared by every caller.
//
// Client is safe for concurrent use. Create it with [Builder].
type Client struct {
	config Config
	log    *slog.Logger
	now    func() time.Time

	state      *sessionState
	identity   *identity.Client
	refresher  *refresh.Coordinator
	httpClient *http.Client
	flows      flows.Service

	telemetry *telemetry.Dispatcher
	metrics   *Metrics

	closed atomic.Bool
}

func (c *Client) ready() error {
	if c == nil || !c.flows.Initialized() || c.closed.Load() {
		return ErrClientNotReady
	}
	return nil
}

// HTTPClient returns the client application calls go through. It attaches the
// current access token, stamps a correlation id on every call, and recovers
// once from an invalid-token 401.
func (c *Client) HTTPClient() *http.Client {
	if c == nil {
		return nil
	}
	return c.httpClient
}

// Do sends req through [Client.HTTPClient].
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	return c.httpClient.Do(req)
}

// AccessToken returns the attached access token, or "" when calls go out
// unauthenticated.
func (c *Client) AccessToken() string {
	if c == nil || c.state == nil {
		return ""
	}
	return c.state.AccessToken()
}

// IsAuthenticated reports whether an access token is attached.
func (c *Client) IsAuthenticated() bool {
	return c.AccessToken() != ""
}

// AccessTokenExpiry reads exp from the attached token without verifying it.
func (c *Client) AccessTokenExpiry() (time.Time, bool) {
	return jwt.Expiry(c.AccessToken())
}

// Session returns the persisted session, or nil when signed out.
func (c *Client) Session(ctx context.Context) (*StoredSession, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	return c.state.Read(ctx)
}

// Ping checks the session store.
func (c *Client) Ping(ctx context.Context) (time.Duration, error) {
	if err := c.ready(); err != nil {
		return 0, err
	}
	return c.state.store.Ping(ctx)
}

// TelemetryDropped returns how many failure reports were not delivered.
func (c *Client) TelemetryDropped() uint64 {
	if c == nil {
		return 0
	}
	return c.telemetry.Dropped()
}

// RefreshStats returns the refresh coordinator counters.
func (c *Client) RefreshStats() refresh.Stats {
	if c == nil || c.refresher == nil {
		return refresh.Stats{}
	}
	return c.refresher.Stats()
}

// MetricsSnapshot returns a copy of the in-process metrics.
func (c *Client) MetricsSnapshot() MetricsSnapshot {
	if c == nil {
		return MetricsSnapshot{}
	}
	return c.metrics.Snapshot()
}

// Metrics returns the live metrics for exporters.
func (c *Client) Metrics() *Metrics {
	if c == nil {
		return nil
	}
	return c.metrics
}

// Close flushes pending telemetry. It does not close the Redis client or sign
// the user out.
func (c *Client) Close() {
	if c == nil || !c.closed.CompareAndSwap(false, true) {
		return
	}
	c.telemetry.Close()
}
