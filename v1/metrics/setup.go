package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a Prometheus registry, the collectors fed by client
// operations, and the HTTP server exposing them.
//
// *Metrics implements observability.Observer; pass it to tcvdb.WithObserver
// or minio.DocumentUploader.WithObserver.
type Metrics struct {
	// Server exposes the registry at /metrics.
	Server *http.Server

	// Registry is private to this instance to avoid collisions with other
	// libraries registering on the default registry.
	Registry *prometheus.Registry

	registerer prometheus.Registerer
	namespace  string

	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	payloadBytes      *prometheus.HistogramVec
	attemptsTotal     *prometheus.CounterVec
	redirectsTotal    *prometheus.CounterVec
	retriesTotal      *prometheus.CounterVec
}

// NewMetrics creates the registry, registers the operation collectors with a
// constant "service" label, and prepares (without starting) the server.
//
// Example:
//
//	m := metrics.NewMetrics(metrics.Config{Address: ":9090", ServiceName: "indexer"})
//	client, err := tcvdb.NewClient(cfg, tcvdb.WithObserver(m))
//	go m.Server.ListenAndServe()
func NewMetrics(cfg Config) *Metrics {
	registry := prometheus.NewRegistry()
	wrapped := prometheus.WrapRegistererWith(prometheus.Labels{"service": cfg.ServiceName}, registry)

	ns := cfg.Namespace
	m := &Metrics{
		Registry:   registry,
		registerer: wrapped,
		namespace:  ns,
	}

	m.operationsTotal = createCounterVec(ns, "operations_total",
		"Finished client operations by component, operation and outcome.",
		[]string{"component", "operation", "outcome"})
	m.operationDuration = createHistogramVec(ns, "operation_duration_seconds",
		"Duration of client operations including retries and redirects.",
		[]string{"component", "operation", "outcome"}, prometheus.DefBuckets)
	m.payloadBytes = createHistogramVec(ns, "payload_bytes",
		"Encoded request or uploaded object size.",
		[]string{"component", "operation"}, prometheus.ExponentialBuckets(256, 4, 10))
	m.attemptsTotal = createCounterVec(ns, "attempts_total",
		"Requests sent to a node, including failed and redirected ones.",
		[]string{"operation"})
	m.redirectsTotal = createCounterVec(ns, "redirects_total",
		"Redirect responses followed.",
		[]string{"operation"})
	m.retriesTotal = createCounterVec(ns, "retries_total",
		"Transport failures retried on the same node.",
		[]string{"operation"})

	wrapped.MustRegister(
		m.operationsTotal,
		m.operationDuration,
		m.payloadBytes,
		m.attemptsTotal,
		m.redirectsTotal,
		m.retriesTotal,
	)

	if cfg.EnableDefaultCollectors {
		wrapped.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			collectors.NewBuildInfoCollector(),
		)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
	m.Server = &http.Server{
		Addr:    cfg.Address,
		Handler: mux,
	}
	return m
}
