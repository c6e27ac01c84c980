// Package internal holds code that is private to goSession.
//
// # Sub-packages
//
//   - flows: pure-function orchestrators for every Client operation
//   - telemetry: async event dispatch (Dispatcher + Sink implementations)
//   - idptest: in-process identity service for tests and the load tester
//
// # What this package must NOT do
//
//   - Export types that appear in the public goSession API.
//   - Be imported by any package outside the goSession module.
package internal
