// Package jwt reads access-token claims on the client.
//
// # Architecture boundaries
//
// The client never holds the identity service's verification key, so [Inspect]
// decodes claims without verifying the signature. The result is advisory only:
// it drives preemptive refresh and diagnostics, never authorization.
//
// # What this package must NOT do
//
//   - Perform I/O.
//   - Treat an inspected token as trusted.
//   - Import goSession, session, or transport.
package jwt
