package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

func TestCorrelationUniquePerCall(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]int{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen[r.Header.Get("X-Trace")]++
		mu.Unlock()
	}))
	defer srv.Close()

	client := &http.Client{Transport: Correlation(nil, "X-Trace")}
	for i := 0; i < 10; i++ {
		resp, err := client.Get(srv.URL)
		if err != nil {
			t.Fatalf("GET: %v", err)
		}
		resp.Body.Close()
	}

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 10 {
		t.Fatalf("expected 10 distinct ids, got %v", seen)
	}
	if _, ok := seen[""]; ok {
		t.Fatalf("request sent without correlation id")
	}
}

func TestCorrelationKeepsCallerID(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get(DefaultCorrelationHeader)
	}))
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	req.Header.Set(DefaultCorrelationHeader, "caller-id")
	resp, err := (&http.Client{Transport: Correlation(nil, "")}).Do(req)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if got != "caller-id" {
		t.Fatalf("expected caller id preserved, got %q", got)
	}
}

func TestCorrelationUsesContextID(t *testing.T) {
	var got []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = append(got, r.Header.Get(DefaultCorrelationHeader))
	}))
	defer srv.Close()

	ctx := ContextWithCorrelationID(context.Background(), "flow-id")
	if id := CorrelationIDFromContext(ctx); id != "flow-id" {
		t.Fatalf("expected id round trip, got %q", id)
	}
	if id := CorrelationIDFromContext(context.Background()); id != "" {
		t.Fatalf("expected empty id without one set, got %q", id)
	}

	client := &http.Client{Transport: Correlation(nil, "")}
	for i := 0; i < 2; i++ {
		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
		resp, err := client.Do(req)
		if err != nil {
			t.Fatalf("GET: %v", err)
		}
		resp.Body.Close()
	}
	if len(got) != 2 || got[0] != "flow-id" || got[1] != "flow-id" {
		t.Fatalf("expected context id on every call, got %v", got)
	}
}
