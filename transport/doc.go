// Package transport provides the http.RoundTripper decorators that carry a
// session onto outgoing calls.
//
// # Decorators
//
//   - [Correlation] stamps a fresh correlation id on every wire call.
//   - [Recovery] attaches the current access token and recovers once from a
//     401 that signals an invalid or expired token.
//
// # Recovery policy
//
// The decision whether to recover is a pure function of the request and the
// response ([Decide], [IsInvalidTokenResponse]); building the replay is
// [ReplayRequest]. Both are usable without a transport.
//
// # What this package must NOT do
//
//   - Retry anything other than a token-invalid 401, or retry more than once.
//   - Write the session. Persisting a refreshed token is the refresher's job.
//   - Block on telemetry.
package transport
