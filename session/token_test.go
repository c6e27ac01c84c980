package session

import (
	"sync"
	"testing"
)

func TestAttachedTokenZeroValue(t *testing.T) {
	var tok AttachedToken
	if got := tok.AccessToken(); got != "" {
		t.Fatalf("zero value holds %q", got)
	}

	var nilTok *AttachedToken
	if got := nilTok.AccessToken(); got != "" {
		t.Fatalf("nil holder returned %q", got)
	}
}

func TestAttachedTokenConcurrentReaders(t *testing.T) {
	var tok AttachedToken
	tok.Set("a")

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if got := tok.AccessToken(); got != "a" && got != "b" {
				t.Errorf("unexpected token %q", got)
			}
		}()
	}
	tok.Set("b")
	wg.Wait()

	tok.Clear()
	if got := tok.AccessToken(); got != "" {
		t.Fatalf("expected cleared token, got %q", got)
	}
}
