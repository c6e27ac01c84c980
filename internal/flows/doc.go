// Package flows contains the session lifecycle orchestrators behind every
// Client operation.
//
// Each flow function (RunSignIn, RunRestore, RunUnlock, RunEnforceTimeout,
// etc.) accepts a typed dependency struct and returns a result carrying either
// the outcome or failure metadata. The root package maps results to public
// errors, metrics and telemetry.
//
// # Architecture boundaries
//
// Flows coordinate the session state, the identity client, the refresh
// coordinator and the biometric gate. They do NOT own any of these; ownership
// stays with the Client.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import goSession (to avoid import cycles).
//   - Perform I/O directly. All I/O is mediated through dependency interfaces.
//   - Wipe a session on a biometric cancel.
package flows
