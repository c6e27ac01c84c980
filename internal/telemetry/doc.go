// Package telemetry implements fire-and-forget failure reporting for the
// session lifecycle.
//
// # Components
//
//   - [Sink] is the event consumer interface (channel, JSON writer, slog, no-op).
//   - [Dispatcher] is a buffered async relay that drops when full or blocks.
//   - [Event] is a failure record with status, correlation id, method, path and message.
//
// # Architecture boundaries
//
// This package owns buffering and sink delivery. It does NOT decide which
// failures to report; the transport and the session flows do.
//
// # What this package must NOT do
//
//   - Return errors or panic into the reporting caller.
//   - Import goSession or any sibling internal package.
//   - Perform network I/O beyond what a caller-supplied Sink does.
package telemetry
