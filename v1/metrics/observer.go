package metrics

import (
	"github.com/Aleph-Alpha/vdbclient/v1/observability"
)

const (
	outcomeOK    = "ok"
	outcomeError = "error"
)

// ObserveOperation records one finished operation.
//
// The outcome label is "ok", the "error_kind" metadata value when the
// reporter set one, or "error". The "attempts", "redirects" and "retries"
// metadata counters are added to their own series.
func (m *Metrics) ObserveOperation(op observability.OperationContext) {
	outcome := outcomeOK
	if op.Error != nil {
		outcome = outcomeError
		if kind, ok := op.Metadata["error_kind"].(string); ok && kind != "" {
			outcome = kind
		}
	}

	m.operationsTotal.WithLabelValues(op.Component, op.Operation, outcome).Inc()
	m.operationDuration.WithLabelValues(op.Component, op.Operation, outcome).Observe(op.Duration.Seconds())
	if op.Size > 0 {
		m.payloadBytes.WithLabelValues(op.Component, op.Operation).Observe(float64(op.Size))
	}

	if n, ok := metadataInt(op.Metadata, "attempts"); ok && n > 0 {
		m.attemptsTotal.WithLabelValues(op.Operation).Add(float64(n))
	}
	if n, ok := metadataInt(op.Metadata, "redirects"); ok && n > 0 {
		m.redirectsTotal.WithLabelValues(op.Operation).Add(float64(n))
	}
	if n, ok := metadataInt(op.Metadata, "retries"); ok && n > 0 {
		m.retriesTotal.WithLabelValues(op.Operation).Add(float64(n))
	}
}

func metadataInt(md map[string]interface{}, key string) (int64, bool) {
	switch v := md[key].(type) {
	case int:
		return int64(v), true
	case int64:
		return v, true
	case uint64:
		return int64(v), true
	default:
		return 0, false
	}
}

var _ observability.Observer = (*Metrics)(nil)
