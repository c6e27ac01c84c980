// Package prometheus exposes goSession metrics as a Prometheus collector.
//
// [PrometheusExporter] implements prometheus.Collector. Register it with any
// registry, or mount [PrometheusExporter.Handler], which serves it from a
// private registry. Counter names are gosession_*_total; the single histogram
// is gosession_request_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in the global Prometheus registry.
//   - Mutate client state.
package prometheus
