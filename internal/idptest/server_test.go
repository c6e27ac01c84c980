package idptest

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"
	"time"
)

func newServer(t *testing.T, opts Options) *Server {
	t.Helper()
	s, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func post(t *testing.T, url string, body any) (*http.Response, map[string]any) {
	t.Helper()
	data, _ := json.Marshal(body)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestObtainAndRefreshRotation(t *testing.T) {
	s := newServer(t, Options{RotateRefresh: true})
	s.AddUser("alice", "pw")

	resp, pair := post(t, s.URL+"/auth/token/", map[string]string{"username": "alice", "password": "pw"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("obtain status %d", resp.StatusCode)
	}
	refresh, _ := pair["refresh"].(string)

	resp, out := post(t, s.URL+"/auth/token/refresh/", map[string]string{"refresh": refresh})
	if resp.StatusCode != http.StatusOK || out["access"] == "" || out["refresh"] == "" {
		t.Fatalf("refresh failed: %d %v", resp.StatusCode, out)
	}

	// Rotated tokens are single use.
	resp, out = post(t, s.URL+"/auth/token/refresh/", map[string]string{"refresh": refresh})
	if resp.StatusCode != http.StatusUnauthorized || out["code"] != "token_not_valid" {
		t.Fatalf("expected reuse rejection, got %d %v", resp.StatusCode, out)
	}
	if s.RefreshCalls() != 2 || s.TokenCalls() != 1 {
		t.Fatalf("unexpected counters refresh=%d token=%d", s.RefreshCalls(), s.TokenCalls())
	}
}

func TestEchoRequiresValidToken(t *testing.T) {
	s := newServer(t, Options{})
	token, err := s.Mint("bob", 0)
	if err == nil {
		t.Fatalf("expected zero TTL mint to fail, got %q", token)
	}
	token, err = s.Mint("bob", time.Minute)
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}

	req, _ := http.NewRequest(http.MethodGet, s.URL+EchoPath, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	s.RevokeAccess(token)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 after revoke, got %d", resp.StatusCode)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	s := newServer(t, Options{})
	body := map[string]string{"username": "carol", "password": "pw"}
	if resp, _ := post(t, s.URL+"/users/", body); resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if resp, _ := post(t, s.URL+"/users/", body); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 on duplicate, got %d", resp.StatusCode)
	}
}
