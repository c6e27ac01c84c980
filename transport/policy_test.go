package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
)

func TestIsInvalidTokenResponse(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   bool
	}{
		{"simplejwt code", 401, `{"detail":"Given token not valid for any token type","code":"token_not_valid"}`, true},
		{"oauth error", 401, `{"error":"invalid_token","error_description":"expired"}`, true},
		{"expired code", 401, `{"code":"TOKEN_EXPIRED"}`, true},
		{"message pattern", 401, `{"message":"Access token has expired"}`, true},
		{"nested messages", 401, `{"messages":[{"message":"Token is invalid or expired"}]}`, true},
		{"plain text", 401, `token not valid`, true},
		{"permission", 401, `{"detail":"You do not have permission to perform this action."}`, false},
		{"no credentials", 401, `{"detail":"Authentication credentials were not provided."}`, false},
		{"empty", 401, ``, false},
		{"forbidden status", 403, `{"code":"token_not_valid"}`, false},
		{"server error", 500, `{"detail":"token invalid"}`, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsInvalidTokenResponse(tc.status, []byte(tc.body)); got != tc.want {
				t.Fatalf("IsInvalidTokenResponse(%d, %q) = %v, want %v", tc.status, tc.body, got, tc.want)
			}
		})
	}
}

func TestDecideRetriedPropagates(t *testing.T) {
	body := []byte(`{"code":"token_not_valid"}`)
	req, _ := http.NewRequest(http.MethodGet, "http://example.test/", nil)
	if Decide(req, 401, body) != RecoverToken {
		t.Fatalf("expected first attempt to recover")
	}
	retried := req.WithContext(WithRetried(req.Context()))
	if Decide(retried, 401, body) != Propagate {
		t.Fatalf("expected retried request to propagate")
	}
}

func TestReplayRequestLeavesOriginalUntouched(t *testing.T) {
	req, _ := http.NewRequest(http.MethodPut, "http://example.test/items/1", strings.NewReader("payload"))
	req.Header.Set("Authorization", "Bearer old")
	_, _ = io.ReadAll(req.Body)

	replay, err := ReplayRequest(req, AuthorizationValue("Bearer", "new"))
	if err != nil {
		t.Fatalf("ReplayRequest: %v", err)
	}
	if req.Header.Get("Authorization") != "Bearer old" || IsRetried(req.Context()) {
		t.Fatalf("original request mutated")
	}
	if replay.Header.Get("Authorization") != "Bearer new" || !IsRetried(replay.Context()) {
		t.Fatalf("replay not prepared: auth=%q", replay.Header.Get("Authorization"))
	}
	body, _ := io.ReadAll(replay.Body)
	if string(body) != "payload" {
		t.Fatalf("expected fresh body, got %q", body)
	}
}

func TestReplayRequestUnreplayableBody(t *testing.T) {
	req, _ := http.NewRequestWithContext(context.Background(), http.MethodPost, "http://example.test/", io.NopCloser(strings.NewReader("x")))
	req.GetBody = nil
	if _, err := ReplayRequest(req, "Bearer t"); !errors.Is(err, ErrBodyNotReplayable) {
		t.Fatalf("expected ErrBodyNotReplayable, got %v", err)
	}
}

func TestAuthorizationValue(t *testing.T) {
	if AuthorizationValue("Bearer", "") != "" {
		t.Fatalf("expected empty value without token")
	}
	if AuthorizationValue("", "tok") != "tok" {
		t.Fatalf("expected bare token without scheme")
	}
	if AuthorizationValue("JWT", "tok") != "JWT tok" {
		t.Fatalf("expected scheme prefix")
	}
}
