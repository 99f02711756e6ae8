// Package metrics defines the Prometheus metric collectors used by the
// indexing service and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the service.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	TokensAddedTotal     prometheus.Counter
	TokensRemovedTotal   prometheus.Counter
	DocsIndexedTotal     prometheus.Counter
	DocsRemovedTotal     prometheus.Counter
	ConsumerEventsTotal  *prometheus.CounterVec
	IndexExportsTotal    *prometheus.CounterVec
	IndexExportBytes     prometheus.Gauge
	TrieNodes            *prometheus.GaugeVec
	ShardDocCount        *prometheus.GaugeVec
	ActiveShards         prometheus.Gauge
}

// New creates all collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		TokensAddedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "tokens_added_total",
				Help: "Total (document, token) postings written.",
			},
		),
		TokensRemovedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "tokens_removed_total",
				Help: "Total (document, token) postings removed.",
			},
		),
		DocsIndexedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "docs_indexed_total",
				Help: "Total documents tokenized and indexed.",
			},
		),
		DocsRemovedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "docs_removed_total",
				Help: "Total documents removed from the index.",
			},
		),
		ConsumerEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "consumer_events_total",
				Help: "Token events consumed from Kafka by op and result.",
			},
			[]string{"op", "result"},
		),
		IndexExportsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "index_exports_total",
				Help: "Total index export operations by sink and status.",
			},
			[]string{"sink", "status"},
		),
		IndexExportBytes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "index_export_bytes",
				Help: "Size of the last serialized whole-index snapshot.",
			},
		),
		TrieNodes: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "trie_nodes",
				Help: "Number of trie nodes per shard.",
			},
			[]string{"shard_id"},
		),
		ShardDocCount: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "shard_document_count",
				Help: "Number of documents per shard.",
			},
			[]string{"shard_id"},
		),
		ActiveShards: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "active_shards",
				Help: "Number of active index shards.",
			},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.TokensAddedTotal,
		m.TokensRemovedTotal,
		m.DocsIndexedTotal,
		m.DocsRemovedTotal,
		m.ConsumerEventsTotal,
		m.IndexExportsTotal,
		m.IndexExportBytes,
		m.TrieNodes,
		m.ShardDocCount,
		m.ActiveShards,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
