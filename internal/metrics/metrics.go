// Package metrics exposes chaincode call and result set metrics through
// go-kit's metric interfaces, backed by Prometheus when serving.
package metrics

import (
	"net/http"
	"sync"
	"time"

	metricsPkg "github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	"github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ccmonitor"

// Metrics contains the metrics recorded by the monitor engine and the
// schema fetcher.
type Metrics struct {
	// Requests sent to the bridge, by kind
	Requests metricsPkg.Counter
	// Completed requests, by kind and result (ok, transport, application, ...)
	Responses metricsPkg.Counter
	// Round trip latency in seconds, by kind
	Latency metricsPkg.Histogram
	// Number of tracked results
	Results metricsPkg.Gauge
	// Schema lookups, by source (cache or bridge)
	SchemaLookups metricsPkg.Counter
}

var (
	promOnce sync.Once
	prom     *Metrics
)

// PrometheusMetrics returns Metrics registered with the default Prometheus
// registry. Registration happens once per process.
func PrometheusMetrics() *Metrics {
	promOnce.Do(func() {
		prom = &Metrics{
			Requests: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "chaincode",
				Name:      "requests_total",
				Help:      "Chaincode requests sent to the bridge",
			}, []string{"kind"}),
			Responses: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "chaincode",
				Name:      "responses_total",
				Help:      "Chaincode requests completed, by result",
			}, []string{"kind", "result"}),
			Latency: prometheus.NewHistogramFrom(stdprometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "chaincode",
				Name:      "latency_seconds",
				Help:      "Bridge round trip time",
				Buckets:   stdprometheus.DefBuckets,
			}, []string{"kind"}),
			Results: prometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "monitor",
				Name:      "results",
				Help:      "Number of tracked query results",
			}, []string{}),
			SchemaLookups: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "schema",
				Name:      "lookups_total",
				Help:      "Schema lookups by source",
			}, []string{"source"}),
		}
	})
	return prom
}

// NopMetrics returns Metrics that record nothing.
func NopMetrics() *Metrics {
	return &Metrics{
		Requests:      discard.NewCounter(),
		Responses:     discard.NewCounter(),
		Latency:       discard.NewHistogram(),
		Results:       discard.NewGauge(),
		SchemaLookups: discard.NewCounter(),
	}
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler { return promhttp.Handler() }

// Submitted counts one outgoing request.
func (m *Metrics) Submitted(kind string) {
	m.Requests.With("kind", kind).Add(1)
}

// Completed records the result and latency of one request.
func (m *Metrics) Completed(kind, result string, elapsed time.Duration) {
	m.Responses.With("kind", kind, "result", result).Add(1)
	m.Latency.With("kind", kind).Observe(elapsed.Seconds())
}

// Entries sets the tracked result gauge.
func (m *Metrics) Entries(n int) {
	m.Results.Set(float64(n))
}

// SchemaLookup counts a schema lookup served from source.
func (m *Metrics) SchemaLookup(source string) {
	m.SchemaLookups.With("source", source).Add(1)
}
