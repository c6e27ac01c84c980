package goSession

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/MrEthical07/goSession/internal/idptest"
)

func BenchmarkDoAuthenticated(b *testing.B) {
	env := newTestEnv(b, idptest.Options{})
	env.signIn(b)
	url := env.idp.URL + idptest.EchoPath

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		req, _ := http.NewRequest(http.MethodGet, url, nil)
		resp, err := env.client.Do(req)
		if err != nil {
			b.Fatalf("Do failed: %v", err)
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}
}

func BenchmarkDoRecovered(b *testing.B) {
	env := newTestEnv(b, idptest.Options{})
	env.signIn(b)
	url := env.idp.URL + idptest.EchoPath

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		b.StopTimer()
		env.idp.RevokeAccess(env.client.AccessToken())
		b.StartTimer()

		req, _ := http.NewRequest(http.MethodGet, url, nil)
		resp, err := env.client.Do(req)
		if err != nil {
			b.Fatalf("Do failed: %v", err)
		}
		if resp.StatusCode != http.StatusOK {
			b.Fatalf("expected recovery, got %d", resp.StatusCode)
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}
}

func BenchmarkAccessTokenParallel(b *testing.B) {
	env := newTestEnv(b, idptest.Options{})
	env.signIn(b)

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if env.client.AccessToken() == "" {
				b.Fatal("token detached")
			}
		}
	})
}

func BenchmarkEnforceSessionTimeout(b *testing.B) {
	env := newTestEnv(b, idptest.Options{})
	env.signIn(b)
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := env.client.AppBackgrounded(ctx); err != nil {
			b.Fatalf("AppBackgrounded failed: %v", err)
		}
		if res, err := env.client.AppResumed(ctx); err != nil || !res.Authenticated {
			b.Fatalf("AppResumed failed: %+v, %v", res, err)
		}
	}
}
