package goSession

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/MrEthical07/goSession/refresh"
	"github.com/MrEthical07/goSession/session"
)

var errSessionReplaced = errors.New("session replaced during refresh")

// sessionState is the single writer of the persisted session and the attached
// token. Every write updates both; the token changes only after the store
// write succeeded, except on clear, where it is detached regardless.
type sessionState struct {
	store *session.Store
	token *session.AttachedToken

	// mu orders writers. Readers of the token never take it.
	mu sync.Mutex
}

func newSessionState(store *session.Store) *sessionState {
	return &sessionState{
		store: store,
		token: &session.AttachedToken{},
	}
}

func (s *sessionState) Read(ctx context.Context) (*session.StoredSession, error) {
	return s.store.Read(ctx)
}

func (s *sessionState) Write(ctx context.Context, sess *session.StoredSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked(ctx, sess)
}

func (s *sessionState) writeLocked(ctx context.Context, sess *session.StoredSession) error {
	if !sess.Valid() {
		s.token.Clear()
		return s.store.Write(ctx, nil)
	}
	if err := s.store.Write(ctx, sess); err != nil {
		return err
	}
	s.token.Set(sess.AccessToken)
	return nil
}

func (s *sessionState) WipeIfCurrent(ctx context.Context, refreshToken string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.store.Read(ctx)
	if err != nil {
		return false, err
	}
	if !current.Valid() || current.RefreshToken != refreshToken {
		return false, nil
	}
	return true, s.writeLocked(ctx, nil)
}

func (s *sessionState) DetachToken() {
	s.token.Clear()
}

func (s *sessionState) AccessToken() string {
	return s.token.AccessToken()
}

// RefreshToken returns the persisted refresh token, or "" without a session.
func (s *sessionState) RefreshToken(ctx context.Context) (string, error) {
	sess, err := s.store.Read(ctx)
	if err != nil || sess == nil {
		return "", err
	}
	return sess.RefreshToken, nil
}

func (s *sessionState) MarkBackgrounded(ctx context.Context, now time.Time) error {
	return s.store.MarkBackgrounded(ctx, now)
}

func (s *sessionState) BackgroundedAt(ctx context.Context) (time.Time, bool, error) {
	return s.store.BackgroundedAt(ctx)
}

func (s *sessionState) ClearBackgrounded(ctx context.Context) error {
	return s.store.ClearBackgrounded(ctx)
}

// commit persists a refresh result. A session that was signed out or replaced
// while the exchange ran is not resurrected.
func (s *sessionState) commit(ctx context.Context, usedRefreshToken string, res refresh.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.store.Read(ctx)
	if err != nil {
		return err
	}
	if !current.Valid() || current.RefreshToken != usedRefreshToken {
		return errSessionReplaced
	}

	next := current.WithAccessToken(res.AccessToken)
	if res.RefreshToken != "" {
		next.RefreshToken = res.RefreshToken
	}
	return s.writeLocked(ctx, next)
}
