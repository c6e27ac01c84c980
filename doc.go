// Package goSession manages one user's authentication session on the client
// side: sign-in and sign-up against a token-issuing identity service, the
// persisted token pair, the access token attached to outgoing calls,
// single-flight refresh, recovery from expired tokens, the background
// timeout, and biometric-gated resume.
//
// A [Client] is built once through [Builder] and is safe for concurrent use.
//
// # Architecture boundaries
//
// goSession is the public surface. It exposes [Client], [Builder], [Config]
// and value types. Refresh coordination lives in refresh/, the HTTP
// decorators in transport/, persistence in session/ and the sign-in, restore,
// unlock and timeout flows under internal/flows.
//
// # Session writers
//
// Only three paths change the attached access token: sign-in or sign-up, a
// successful refresh, and sign-out or wipe. A cancelled biometric prompt
// detaches it without touching the stored session.
//
// # What this package must NOT do
//
//   - Refresh more than once at a time for the same session.
//   - Replay a request more than once.
//   - Run a background timer for the session timeout. The timeout is computed
//     from wall-clock deltas on resume.
//   - Block or fail a call because telemetry could not be delivered.
package goSession
