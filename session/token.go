package session

import "sync"

// AttachedToken holds the access token currently attached to outgoing calls.
//
// The zero value is ready to use and holds no token. It is safe for concurrent
// use; only the Client's session writer path calls Set and Clear.
type AttachedToken struct {
	mu    sync.RWMutex
	value string
}

// AccessToken returns the attached token or "" when calls go out unauthenticated.
func (t *AttachedToken) AccessToken() string {
	if t == nil {
		return ""
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.value
}

// Set replaces the attached token.
func (t *AttachedToken) Set(token string) {
	t.mu.Lock()
	t.value = token
	t.mu.Unlock()
}

// Clear detaches any token.
func (t *AttachedToken) Clear() {
	t.Set("")
}
