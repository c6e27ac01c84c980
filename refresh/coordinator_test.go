package refresh

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type countingExchanger struct {
	calls   atomic.Int64
	release chan struct{}
	result  Result
	err     error
}

func (e *countingExchanger) Exchange(ctx context.Context, refreshToken string) (Result, error) {
	e.calls.Add(1)
	if e.release != nil {
		<-e.release
	}
	return e.result, e.err
}

func TestRefreshConcurrentCallersShareOneExchange(t *testing.T) {
	ex := &countingExchanger{
		release: make(chan struct{}),
		result:  Result{AccessToken: "access-2"},
	}
	var commits atomic.Int64
	c := New(Config{
		Exchanger: ex,
		Commit: func(ctx context.Context, used string, res Result) error {
			commits.Add(1)
			return nil
		},
	})

	const n = 32
	var wg sync.WaitGroup
	var started sync.WaitGroup
	tokens := make([]string, n)
	oks := make([]bool, n)
	started.Add(n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			started.Done()
			tokens[i], oks[i] = c.Refresh(context.Background(), "refresh-1")
		}(i)
	}
	started.Wait()

	// Let the stragglers reach the flight before it settles.
	deadline := time.Now().Add(2 * time.Second)
	for ex.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(50 * time.Millisecond)
	close(ex.release)
	wg.Wait()

	if got := ex.calls.Load(); got != 1 {
		t.Fatalf("expected exactly one exchange, got %d", got)
	}
	if got := commits.Load(); got != 1 {
		t.Fatalf("expected exactly one commit, got %d", got)
	}
	for i := 0; i < n; i++ {
		if !oks[i] || tokens[i] != "access-2" {
			t.Fatalf("caller %d got (%q, %v)", i, tokens[i], oks[i])
		}
	}
}

func TestRefreshFlightReleasedAfterSettle(t *testing.T) {
	ex := &countingExchanger{result: Result{AccessToken: "a"}}
	c := New(Config{Exchanger: ex})

	for i := 0; i < 3; i++ {
		if _, ok := c.Refresh(context.Background(), "r"); !ok {
			t.Fatalf("refresh %d failed", i)
		}
	}
	if got := ex.calls.Load(); got != 3 {
		t.Fatalf("expected sequential refreshes to each exchange, got %d", got)
	}
}

func TestRefreshFailureIsSwallowed(t *testing.T) {
	ex := &countingExchanger{err: errors.New("connection refused")}
	var failed atomic.Int64
	c := New(Config{
		Exchanger:  ex,
		OnExchange: func(ok bool) {
			if !ok {
				failed.Add(1)
			}
		},
	})

	token, ok := c.Refresh(context.Background(), "r")
	if ok || token != "" {
		t.Fatalf("expected failure, got (%q, %v)", token, ok)
	}
	if failed.Load() != 1 {
		t.Fatalf("expected failure hook once")
	}

	// A failed flight does not block the next one.
	ex.err = nil
	ex.result = Result{AccessToken: "fresh"}
	if token, ok := c.Refresh(context.Background(), "r"); !ok || token != "fresh" {
		t.Fatalf("expected recovery after failure, got (%q, %v)", token, ok)
	}
}

func TestRefreshMissingAccessIsFailure(t *testing.T) {
	c := New(Config{Exchanger: &countingExchanger{result: Result{RefreshToken: "only-refresh"}}})
	if _, ok := c.Refresh(context.Background(), "r"); ok {
		t.Fatalf("expected failure for response without access token")
	}
}

func TestRefreshEmptyTokenSkipsExchange(t *testing.T) {
	ex := &countingExchanger{result: Result{AccessToken: "a"}}
	c := New(Config{Exchanger: ex})
	if _, ok := c.Refresh(context.Background(), ""); ok {
		t.Fatalf("expected failure for empty refresh token")
	}
	if ex.calls.Load() != 0 {
		t.Fatalf("expected no exchange")
	}
}

func TestRefreshCommitFailureFailsFlight(t *testing.T) {
	c := New(Config{
		Exchanger: &countingExchanger{result: Result{AccessToken: "a"}},
		Commit: func(ctx context.Context, used string, res Result) error {
			return errors.New("store down")
		},
	})
	if _, ok := c.Refresh(context.Background(), "r"); ok {
		t.Fatalf("expected commit failure to fail refresh")
	}
	if s := c.Stats(); s.Failures != 1 || s.Exchanges != 1 {
		t.Fatalf("unexpected stats %+v", s)
	}
}

func TestRefreshCommitReceivesRotatedToken(t *testing.T) {
	var got Result
	var used string
	c := New(Config{
		Exchanger: &countingExchanger{result: Result{AccessToken: "a2", RefreshToken: "r2"}},
		Commit: func(ctx context.Context, u string, res Result) error {
			used, got = u, res
			return nil
		},
	})
	if _, ok := c.Refresh(context.Background(), "r1"); !ok {
		t.Fatalf("refresh failed")
	}
	if used != "r1" || got.AccessToken != "a2" || got.RefreshToken != "r2" {
		t.Fatalf("unexpected commit args used=%q res=%+v", used, got)
	}
}

func TestRefreshStaleReusesReplacedToken(t *testing.T) {
	ex := &countingExchanger{result: Result{AccessToken: "never"}}
	c := New(Config{
		Exchanger: ex,
		Current:   func() string { return "access-2" },
	})

	token, ok := c.RefreshStale(context.Background(), "access-1", "r")
	if !ok || token != "access-2" {
		t.Fatalf("expected reuse of current token, got (%q, %v)", token, ok)
	}
	if ex.calls.Load() != 0 {
		t.Fatalf("expected no exchange")
	}
	if c.Stats().Reused != 1 {
		t.Fatalf("expected reuse counter")
	}
}

func TestRefreshStaleExchangesWhenTokenUnchanged(t *testing.T) {
	ex := &countingExchanger{result: Result{AccessToken: "access-2"}}
	c := New(Config{
		Exchanger: ex,
		Current:   func() string { return "access-1" },
	})

	token, ok := c.RefreshStale(context.Background(), "access-1", "r")
	if !ok || token != "access-2" {
		t.Fatalf("unexpected result (%q, %v)", token, ok)
	}
	if ex.calls.Load() != 1 {
		t.Fatalf("expected one exchange, got %d", ex.calls.Load())
	}
}

func TestRefreshIgnoresCallerCancellation(t *testing.T) {
	var sawCancel atomic.Bool
	c := New(Config{Exchanger: ExchangerFunc(func(ctx context.Context, rt string) (Result, error) {
		if ctx.Err() != nil {
			sawCancel.Store(true)
		}
		return Result{AccessToken: "a"}, nil
	})})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, ok := c.Refresh(ctx, "r"); !ok {
		t.Fatalf("expected refresh to complete despite cancelled caller")
	}
	if sawCancel.Load() {
		t.Fatalf("exchange observed caller cancellation")
	}
}
