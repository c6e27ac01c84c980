package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrStoreUnavailable is returned when the backing Redis cannot be reached.
var ErrStoreUnavailable = errors.New("session store unavailable")

const (
	// SessionKey is the persisted key of the session blob.
	SessionKey = "session"
	// BackgroundedAtKey is the persisted key of the background marker.
	BackgroundedAtKey = "session.backgroundedAt"
)

// Store is a Redis-backed session store. Keys never expire on their own:
// session lifetime is decided by the timeout guard and the identity service.
//
// Store does not lock. Writes are serialized by Redis and only one logical
// writer path (login, refresh, logout) mutates the session at a time.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// NewStore creates a session [Store] backed by the given Redis client.
// A non-empty prefix namespaces both keys as "<prefix>:session".
func NewStore(redis redis.UniversalClient, prefix string) *Store {
	return &Store{
		redis:  redis,
		prefix: prefix,
	}
}

func (s *Store) key(name string) string {
	if s.prefix == "" {
		return name
	}
	return s.prefix + ":" + name
}

func (s *Store) sessionKey() string {
	return s.key(SessionKey)
}

func (s *Store) markerKey() string {
	return s.key(BackgroundedAtKey)
}

// Read returns the persisted session, or nil when none exists.
// Malformed blobs read as nil rather than failing.
//
//	Performance: 1 Redis GET.
func (s *Store) Read(ctx context.Context) (*StoredSession, error) {
	data, err := s.redis.Get(ctx, s.sessionKey()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return Decode(data), nil
}

// Write persists sess. A nil or refresh-token-less session clears the store,
// including the background marker.
//
//	Performance: 1 Redis SET, or 1 MULTI/EXEC with 2 DEL on clear.
func (s *Store) Write(ctx context.Context, sess *StoredSession) error {
	if !sess.Valid() {
		return s.clear(ctx)
	}

	data, err := Encode(sess)
	if err != nil {
		return err
	}

	if err := s.redis.Set(ctx, s.sessionKey(), data, 0).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *Store) clear(ctx context.Context) error {
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.sessionKey())
		pipe.Del(ctx, s.markerKey())
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// MarkBackgrounded records now as the moment the app left the foreground.
// It is a no-op when no session exists.
func (s *Store) MarkBackgrounded(ctx context.Context, now time.Time) error {
	sess, err := s.Read(ctx)
	if err != nil {
		return err
	}
	if sess == nil {
		return nil
	}

	if err := s.redis.Set(ctx, s.markerKey(), EncodeMarker(now), 0).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// BackgroundedAt returns the background marker. ok is false when the marker is
// absent or malformed.
func (s *Store) BackgroundedAt(ctx context.Context) (at time.Time, ok bool, err error) {
	raw, err := s.redis.Get(ctx, s.markerKey()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	at, decErr := DecodeMarker(raw)
	if decErr != nil {
		return time.Time{}, false, nil
	}
	return at, true, nil
}

// ClearBackgrounded removes the background marker.
func (s *Store) ClearBackgrounded(ctx context.Context) error {
	if err := s.redis.Del(ctx, s.markerKey()).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return time.Since(start), nil
}
