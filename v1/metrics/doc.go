// Package metrics exposes client operation metrics to Prometheus.
//
// *Metrics implements observability.Observer. Every tcvdb call and every
// document-set upload reports one observation, which is recorded as:
//
//	<ns>_operations_total{component,operation,outcome}
//	<ns>_operation_duration_seconds{component,operation,outcome}
//	<ns>_payload_bytes{component,operation}
//	<ns>_attempts_total{operation}
//	<ns>_redirects_total{operation}
//	<ns>_retries_total{operation}
//
// outcome is "ok" or the error kind reported by the component, e.g.
// "transport", "redirect_loop", "service" or "cancelled".
//
// Direct usage:
//
//	m := metrics.NewMetrics(metrics.Config{Address: ":9090", ServiceName: "indexer", Namespace: "vdbclient"})
//	client, err := tcvdb.NewClient(cfg, tcvdb.WithObserver(m))
//	go m.Server.ListenAndServe()
//	defer m.Server.Shutdown(ctx)
//
// Additional application metrics can share the registry through
// CreateCounter, CreateHistogram and CreateGauge.
package metrics
