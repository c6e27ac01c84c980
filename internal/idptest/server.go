// Package idptest runs an in-process identity service for tests and the load
// tester. It speaks the token obtain, token refresh and registration
// contracts and guards a small protected API with the access tokens it mints.
package idptest

import (
	"crypto/rand"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Protected API paths.
const (
	EchoPath      = "/api/echo/"
	ForbiddenPath = "/api/forbidden/"
)

// Options configures a [Server].
type Options struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	RotateRefresh bool
	Now           func() time.Time
}

// Server is a fake identity service.
type Server struct {
	*httptest.Server

	signer *signer
	opts   Options

	mu            sync.Mutex
	users         map[string]string
	usedRefresh   map[string]bool
	revokedAccess map[string]bool
	rejectAll     bool
	refreshStatus int
	refreshHold   chan struct{}
	authHeaders   []string
	correlation   []string
	tokenIDs      []string

	tokenCalls    atomic.Int64
	refreshCalls  atomic.Int64
	registerCalls atomic.Int64
	apiCalls      atomic.Int64
}

// New starts a [Server].
func New(opts Options) (*Server, error) {
	if opts.AccessTTL <= 0 {
		opts.AccessTTL = 5 * time.Minute
	}
	if opts.RefreshTTL <= 0 {
		opts.RefreshTTL = 24 * time.Hour
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, err
	}
	signer, err := newSigner(secret, "idptest", opts.Now)
	if err != nil {
		return nil, err
	}

	s := &Server{
		signer:        signer,
		opts:          opts,
		users:         make(map[string]string),
		usedRefresh:   make(map[string]bool),
		revokedAccess: make(map[string]bool),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/token/", s.handleObtain)
	mux.HandleFunc("POST /auth/token/refresh/", s.handleRefresh)
	mux.HandleFunc("POST /users/", s.handleRegister)
	mux.HandleFunc(EchoPath, s.handleEcho)
	mux.HandleFunc(ForbiddenPath, s.handleForbidden)
	s.Server = httptest.NewServer(mux)
	return s, nil
}

// AddUser registers a user directly.
func (s *Server) AddUser(username, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[username] = password
}

// Mint issues an access token outside the obtain flow.
func (s *Server) Mint(username string, ttl time.Duration) (string, error) {
	return s.signer.mint(username, tokenTypeAccess, ttl)
}

// MintRefresh issues a refresh token outside the obtain flow.
func (s *Server) MintRefresh(username string) (string, error) {
	return s.signer.mint(username, tokenTypeRefresh, s.opts.RefreshTTL)
}

// RevokeAccess makes the protected API reject token as not valid.
func (s *Server) RevokeAccess(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revokedAccess[token] = true
}

// RejectAllAccess makes the protected API reject every token as not valid.
func (s *Server) RejectAllAccess(reject bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejectAll = reject
}

// FailRefresh makes the refresh endpoint answer status. Zero restores normal
// behavior.
func (s *Server) FailRefresh(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshStatus = status
}

// HoldRefresh blocks refresh handlers until the returned release is called.
func (s *Server) HoldRefresh() (release func()) {
	hold := make(chan struct{})
	s.mu.Lock()
	s.refreshHold = hold
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			if s.refreshHold == hold {
				s.refreshHold = nil
			}
			s.mu.Unlock()
			close(hold)
		})
	}
}

func (s *Server) TokenCalls() int64    { return s.tokenCalls.Load() }
func (s *Server) RefreshCalls() int64  { return s.refreshCalls.Load() }
func (s *Server) RegisterCalls() int64 { return s.registerCalls.Load() }
func (s *Server) APICalls() int64      { return s.apiCalls.Load() }

// AuthorizationHeaders returns the Authorization values seen by the
// protected API, in arrival order.
func (s *Server) AuthorizationHeaders() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.authHeaders...)
}

// CorrelationIDs returns the X-Request-ID values seen by the protected API.
func (s *Server) CorrelationIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.correlation...)
}

// TokenCorrelationIDs returns the X-Request-ID values seen by the token
// obtain endpoint.
func (s *Server) TokenCorrelationIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.tokenIDs...)
}

func (s *Server) handleObtain(w http.ResponseWriter, r *http.Request) {
	s.tokenCalls.Add(1)
	s.mu.Lock()
	s.tokenIDs = append(s.tokenIDs, r.Header.Get("X-Request-ID"))
	s.mu.Unlock()

	var in struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "JSON parse error"})
		return
	}
	if in.Username == "" || in.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"username": {"This field is required."}})
		return
	}

	s.mu.Lock()
	password, ok := s.users[in.Username]
	s.mu.Unlock()
	if !ok || password != in.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			"detail": "No active account found with the given credentials",
		})
		return
	}

	access, err := s.signer.mint(in.Username, tokenTypeAccess, s.opts.AccessTTL)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": err.Error()})
		return
	}
	refresh, err := s.MintRefresh(in.Username)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"access": access, "refresh": refresh})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.refreshCalls.Add(1)

	s.mu.Lock()
	hold := s.refreshHold
	status := s.refreshStatus
	s.mu.Unlock()
	if hold != nil {
		<-hold
	}
	if status != 0 {
		writeJSON(w, status, map[string]string{"detail": http.StatusText(status)})
		return
	}

	var in struct {
		Refresh string `json:"refresh"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Refresh == "" {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"refresh": {"This field is required."}})
		return
	}

	claims, err := s.signer.verify(in.Refresh, tokenTypeRefresh)
	s.mu.Lock()
	used := s.usedRefresh[in.Refresh]
	if err == nil && !used && s.opts.RotateRefresh {
		s.usedRefresh[in.Refresh] = true
	}
	s.mu.Unlock()
	if err != nil || used {
		writeJSON(w, http.StatusUnauthorized, tokenNotValid())
		return
	}

	access, err := s.signer.mint(claims.Username, tokenTypeAccess, s.opts.AccessTTL)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": err.Error()})
		return
	}
	out := map[string]string{"access": access}
	if s.opts.RotateRefresh {
		next, err := s.MintRefresh(claims.Username)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": err.Error()})
			return
		}
		out["refresh"] = next
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	s.registerCalls.Add(1)

	var in struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Email    string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "JSON parse error"})
		return
	}

	s.mu.Lock()
	_, exists := s.users[in.Username]
	if !exists {
		s.users[in.Username] = in.Password
	}
	s.mu.Unlock()
	if exists {
		writeJSON(w, http.StatusBadRequest, map[string][]string{
			"username": {"A user with that username already exists."},
		})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"username": in.Username, "email": in.Email})
}

func (s *Server) handleEcho(w http.ResponseWriter, r *http.Request) {
	s.apiCalls.Add(1)

	username, ok := s.authorize(r)
	if !ok && r.Header.Get("Authorization") == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			"detail": "Authentication credentials were not provided.",
		})
		return
	}
	if !ok {
		writeJSON(w, http.StatusUnauthorized, tokenNotValid())
		return
	}

	body, _ := io.ReadAll(r.Body)
	writeJSON(w, http.StatusOK, map[string]string{
		"user":           username,
		"method":         r.Method,
		"body":           string(body),
		"correlation_id": r.Header.Get("X-Request-ID"),
	})
}

func (s *Server) handleForbidden(w http.ResponseWriter, r *http.Request) {
	s.apiCalls.Add(1)
	s.authorize(r)
	writeJSON(w, http.StatusUnauthorized, map[string]string{
		"detail": "You do not have permission to perform this action.",
	})
}

func (s *Server) authorize(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")

	s.mu.Lock()
	s.authHeaders = append(s.authHeaders, header)
	s.correlation = append(s.correlation, r.Header.Get("X-Request-ID"))
	rejectAll := s.rejectAll
	s.mu.Unlock()

	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || rejectAll {
		return "", false
	}
	s.mu.Lock()
	revoked := s.revokedAccess[token]
	s.mu.Unlock()
	if revoked {
		return "", false
	}

	claims, err := s.signer.verify(token, tokenTypeAccess)
	if err != nil {
		return "", false
	}
	return claims.Username, true
}

func tokenNotValid() map[string]any {
	return map[string]any{
		"detail": "Given token not valid for any token type",
		"code":   "token_not_valid",
		"messages": []map[string]string{{
			"token_class": "AccessToken",
			"token_type":  "access",
			"message":     "Token is invalid or expired",
		}},
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
