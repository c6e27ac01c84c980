// Package refresh coordinates access-token refresh on the client.
//
// # Single flight
//
// A refresh token may be single-use and rotated by the identity service, so two
// concurrent exchanges of the same token can invalidate each other. [Coordinator]
// runs at most one exchange at a time: every caller that asks for a refresh while
// one is outstanding joins it and observes the same outcome. The flight is
// released as soon as it settles, whatever the outcome.
//
// # Failure contract
//
// Refresh never returns an error. Network, status and decoding failures are
// logged and surface as ok == false.
//
// # Architecture boundaries
//
// This package owns flight deduplication and the commit ordering (persist before
// release). The HTTP exchange is an injected [Exchanger]; persistence is an
// injected commit function.
//
// # What this package must NOT do
//
//   - Wipe the session on failure. That decision belongs to the caller.
//   - Import goSession, session, or transport.
//   - Cancel an exchange because one waiting caller went away.
package refresh
