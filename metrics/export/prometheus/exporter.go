package prometheus

import (
	"net/http"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/metrics/export/internaldefs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metricsSource interface {
	MetricsSnapshot() goSession.MetricsSnapshot
	TelemetryDropped() uint64
	IsAuthenticated() bool
}

// PrometheusExporter is a [prometheus.Collector] over goSession metrics. Values
// are read from the source on every scrape.
type PrometheusExporter struct {
	source   metricsSource
	counters []*prometheus.Desc
	hists    []*prometheus.Desc
	dropped  *prometheus.Desc
	authed   *prometheus.Desc
}

var _ prometheus.Collector = (*PrometheusExporter)(nil)

// NewPrometheusExporter creates an exporter that reads from client.
func NewPrometheusExporter(client *goSession.Client) *PrometheusExporter {
	return NewPrometheusExporterFromSource(client)
}

// NewPrometheusExporterFromSource creates an exporter from any source exposing
// a snapshot, a telemetry drop count and the authentication state.
func NewPrometheusExporterFromSource(source metricsSource) *PrometheusExporter {
	p := &PrometheusExporter{
		source:   source,
		counters: make([]*prometheus.Desc, len(internaldefs.CounterDefs)),
		hists:    make([]*prometheus.Desc, len(internaldefs.HistogramDefs)),
		dropped:  prometheus.NewDesc(internaldefs.TelemetryDroppedName, internaldefs.TelemetryDroppedHelp, nil, nil),
		authed:   prometheus.NewDesc(internaldefs.AuthenticatedName, internaldefs.AuthenticatedHelp, nil, nil),
	}
	for i, def := range internaldefs.CounterDefs {
		p.counters[i] = prometheus.NewDesc(def.Name, def.Help, nil, nil)
	}
	for i, def := range internaldefs.HistogramDefs {
		p.hists[i] = prometheus.NewDesc(def.Name, def.Help, nil, nil)
	}
	return p
}

// Describe implements [prometheus.Collector].
func (p *PrometheusExporter) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range p.counters {
		ch <- d
	}
	for _, d := range p.hists {
		ch <- d
	}
	ch <- p.dropped
	ch <- p.authed
}

// Collect implements [prometheus.Collector]. Histograms are emitted only when
// latency histograms are enabled on the source.
func (p *PrometheusExporter) Collect(ch chan<- prometheus.Metric) {
	if p == nil || p.source == nil {
		return
	}
	snapshot := p.source.MetricsSnapshot()

	for i, def := range internaldefs.CounterDefs {
		ch <- prometheus.MustNewConstMetric(p.counters[i], prometheus.CounterValue, float64(snapshot.Counters[def.ID]))
	}

	for i, def := range internaldefs.HistogramDefs {
		raw, ok := snapshot.Histograms[def.ID]
		if !ok {
			continue
		}
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(raw))
		buckets := make(map[float64]uint64, len(internaldefs.HistogramUpperBounds))
		for b, upper := range internaldefs.HistogramUpperBounds {
			buckets[upper] = cumulative[b]
		}
		// The snapshot carries no sum.
		ch <- prometheus.MustNewConstHistogram(p.hists[i], cumulative[len(cumulative)-1], 0, buckets)
	}

	ch <- prometheus.MustNewConstMetric(p.dropped, prometheus.CounterValue, float64(p.source.TelemetryDropped()))

	authed := 0.0
	if p.source.IsAuthenticated() {
		authed = 1
	}
	ch <- prometheus.MustNewConstMetric(p.authed, prometheus.GaugeValue, authed)
}

// Handler serves the exporter from a private registry, leaving the global
// default registry untouched.
func (p *PrometheusExporter) Handler() http.Handler {
	reg := prometheus.NewRegistry()
	reg.MustRegister(p)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
