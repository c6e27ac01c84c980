package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/internal/idptest"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func main() {
	var (
		rounds      = flag.Int("rounds", 200, "number of token revocation rounds")
		concurrency = flag.Int("concurrency", 64, "concurrent calls per round")
		accessTTL   = flag.Duration("access-ttl", 5*time.Minute, "access token lifetime minted by the fake identity service")
		rotate      = flag.Bool("rotate", true, "rotate refresh tokens on every refresh")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "loadtest", "session key prefix")
	)
	flag.Parse()

	if *rounds <= 0 || *concurrency <= 0 {
		fmt.Fprintln(os.Stderr, "rounds and concurrency must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		rdb     redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		rdb = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() {
			_ = rdb.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		rdb = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() { _ = rdb.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	idp, err := idptest.New(idptest.Options{AccessTTL: *accessTTL, RotateRefresh: *rotate})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start identity service: %v\n", err)
		os.Exit(1)
	}
	defer idp.Close()
	idp.AddUser("load", "load-password")

	cfg := goSession.DefaultConfig()
	cfg.Endpoints.BaseURL = idp.URL
	cfg.Session.RedisPrefix = *prefix
	cfg.Telemetry.Enabled = false
	cfg.Metrics.EnableLatencyHistograms = true

	client, err := goSession.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithHTTPTransport(&http.Transport{MaxIdleConnsPerHost: *concurrency}).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build failed: %v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	if err := client.SignIn(ctx, "load", "load-password"); err != nil {
		fmt.Fprintf(os.Stderr, "sign in failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("running %d rounds x %d concurrent calls...\n", *rounds, *concurrency)
	stats := runRounds(ctx, client, idp, *rounds, *concurrency)

	fmt.Println("---- results ----")
	printStats("calls", stats)
	refreshes := idp.RefreshCalls()
	fmt.Printf("refresh calls: %d for %d rounds\n", refreshes, *rounds)
	rs := client.RefreshStats()
	fmt.Printf("coordinator: exchanges=%d failures=%d joined=%d reused=%d\n", rs.Exchanges, rs.Failures, rs.Joined, rs.Reused)

	if refreshes != int64(*rounds) {
		fmt.Fprintf(os.Stderr, "expected exactly one refresh per round, got %d\n", refreshes)
		os.Exit(1)
	}
}

// runRounds revokes the attached access token and fires concurrency calls
// that all see the same invalid-token response.
func runRounds(ctx context.Context, client *goSession.Client, idp *idptest.Server, rounds, concurrency int) phaseStats {
	var (
		failures  int64
		latencies = make([]time.Duration, 0, rounds*concurrency)
		mu        sync.Mutex
	)
	url := idp.URL + idptest.EchoPath

	start := time.Now()
	for r := 0; r < rounds; r++ {
		idp.RevokeAccess(client.AccessToken())

		var wg sync.WaitGroup
		for w := 0; w < concurrency; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				t0 := time.Now()
				ok := call(ctx, client, url)
				d := time.Since(t0)
				if !ok {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}()
		}
		wg.Wait()
	}
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

func call(ctx context.Context, client *goSession.Client, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
