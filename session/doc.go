// Package session provides Redis-backed persistence of the client's
// authentication session and the in-memory attached access token.
//
// # Storage layout
//
// The session blob lives under the key "session" as JSON
// {"accessToken","refreshToken","username"}. The "went to background" marker
// lives under "session.backgroundedAt" as a JSON epoch-millisecond number.
// Both keys may be namespaced with a prefix.
//
// # Architecture boundaries
//
// This package owns the [Store] (Redis operations), the [StoredSession] model and
// the [AttachedToken] holder. It does NOT talk to the identity service, decide
// when a session times out, or refresh tokens. Those belong to the Client and
// the refresh coordinator.
//
// # What this package must NOT do
//
//   - Import goSession, refresh, or transport (no upward imports).
//   - Crash on malformed persisted data: undecodable blobs read as "no session".
//   - Keep the attached token in sync by itself: the Client's single writer path
//     updates [AttachedToken] after every successful [Store.Write].
package session
