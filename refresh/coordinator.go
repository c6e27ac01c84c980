package refresh

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// flightKey is shared by every refresh, whatever triggered it.
const flightKey = "refresh"

var (
	errEmptyRefreshToken = errors.New("empty refresh token")
	errMissingAccess     = errors.New("refresh response carries no access token")
)

// Result is a successful exchange. RefreshToken is empty unless the identity
// service rotated the refresh token.
type Result struct {
	AccessToken  string
	RefreshToken string
}

// Exchanger trades a refresh token for a new access token.
type Exchanger interface {
	Exchange(ctx context.Context, refreshToken string) (Result, error)
}

// ExchangerFunc adapts a function to [Exchanger].
type ExchangerFunc func(ctx context.Context, refreshToken string) (Result, error)

// Exchange calls f.
func (f ExchangerFunc) Exchange(ctx context.Context, refreshToken string) (Result, error) {
	return f(ctx, refreshToken)
}

// Config wires a [Coordinator].
type Config struct {
	Exchanger Exchanger

	// Commit persists a successful exchange. It runs inside the flight, so the
	// new token is durable and attached before any later flight can start.
	// A commit error turns the exchange into a failure.
	Commit func(ctx context.Context, usedRefreshToken string, res Result) error

	// Current returns the attached access token. RefreshStale uses it to skip
	// the exchange when another flight already replaced a stale token.
	Current func() string

	Logger *slog.Logger

	OnExchange func(ok bool)
	OnJoin     func()
	OnReuse    func()
}

// Stats counts coordinator activity since construction.
type Stats struct {
	Exchanges uint64
	Failures  uint64
	Joined    uint64
	Reused    uint64
}

// Coordinator deduplicates concurrent refreshes into a single exchange.
type Coordinator struct {
	cfg   Config
	group singleflight.Group

	exchanges atomic.Uint64
	failures  atomic.Uint64
	joined    atomic.Uint64
	reused    atomic.Uint64
}

type outcome struct {
	token  string
	reused bool
}

// New returns a [Coordinator]. A nil Logger discards.
func New(cfg Config) *Coordinator {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	return &Coordinator{cfg: cfg}
}

// Refresh exchanges refreshToken for a new access token, joining any flight
// already in progress. ok is false on any failure.
func (c *Coordinator) Refresh(ctx context.Context, refreshToken string) (accessToken string, ok bool) {
	return c.do(ctx, refreshToken, "", false)
}

// RefreshStale is Refresh for a caller whose request was rejected while
// carrying staleAccess. When no flight is running and the attached token has
// already moved past staleAccess, the attached token is returned without an
// exchange.
func (c *Coordinator) RefreshStale(ctx context.Context, staleAccess, refreshToken string) (accessToken string, ok bool) {
	return c.do(ctx, refreshToken, staleAccess, true)
}

// Stats returns activity counters.
func (c *Coordinator) Stats() Stats {
	return Stats{
		Exchanges: c.exchanges.Load(),
		Failures:  c.failures.Load(),
		Joined:    c.joined.Load(),
		Reused:    c.reused.Load(),
	}
}

func (c *Coordinator) do(ctx context.Context, refreshToken, staleAccess string, checkStale bool) (string, bool) {
	if ctx == nil {
		ctx = context.Background()
	}
	// Waiters may give up on their own context; the flight itself runs to
	// completion for everyone else.
	flightCtx := context.WithoutCancel(ctx)

	leader := false
	v, err, shared := c.group.Do(flightKey, func() (interface{}, error) {
		leader = true
		return c.run(flightCtx, refreshToken, staleAccess, checkStale)
	})
	if shared && !leader {
		c.joined.Add(1)
		if c.cfg.OnJoin != nil {
			c.cfg.OnJoin()
		}
	}
	if err != nil {
		return "", false
	}

	out, _ := v.(outcome)
	if out.token == "" {
		return "", false
	}
	return out.token, true
}

func (c *Coordinator) run(ctx context.Context, refreshToken, staleAccess string, checkStale bool) (outcome, error) {
	if checkStale && c.cfg.Current != nil {
		if current := c.cfg.Current(); current != "" && current != staleAccess {
			c.reused.Add(1)
			if c.cfg.OnReuse != nil {
				c.cfg.OnReuse()
			}
			c.cfg.Logger.Debug("refresh skipped, token already replaced")
			return outcome{token: current, reused: true}, nil
		}
	}

	c.exchanges.Add(1)
	res, err := c.exchange(ctx, refreshToken)
	if err == nil && c.cfg.Commit != nil {
		if commitErr := c.cfg.Commit(ctx, refreshToken, res); commitErr != nil {
			err = commitErr
			c.cfg.Logger.Warn("refresh commit failed", "error", commitErr)
		}
	}
	if err != nil {
		c.failures.Add(1)
		if c.cfg.OnExchange != nil {
			c.cfg.OnExchange(false)
		}
		return outcome{}, err
	}

	if c.cfg.OnExchange != nil {
		c.cfg.OnExchange(true)
	}
	return outcome{token: res.AccessToken}, nil
}

func (c *Coordinator) exchange(ctx context.Context, refreshToken string) (Result, error) {
	if refreshToken == "" {
		return Result{}, errEmptyRefreshToken
	}
	if c.cfg.Exchanger == nil {
		return Result{}, errors.New("nil exchanger")
	}

	res, err := c.cfg.Exchanger.Exchange(ctx, refreshToken)
	if err != nil {
		c.cfg.Logger.Warn("refresh exchange failed", "error", err)
		return Result{}, err
	}
	if res.AccessToken == "" {
		c.cfg.Logger.Warn("refresh exchange failed", "error", errMissingAccess)
		return Result{}, errMissingAccess
	}
	return res, nil
}
