package logger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObserved(tracing bool) (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return New(zap.New(core), tracing), logs
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel(Debug))
	assert.Equal(t, zapcore.InfoLevel, parseLevel(Info))
	assert.Equal(t, zapcore.WarnLevel, parseLevel(Warning))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel(Error))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("verbose"))
}

func TestLogger_FieldsAndError(t *testing.T) {
	log, logs := newObserved(false)

	log.Warn("retrying", errors.New("boom"), map[string]interface{}{"attempt": 1}, map[string]interface{}{"attempt": 2, "target": "a"})

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zapcore.WarnLevel, entry.Level)
	assert.Equal(t, "retrying", entry.Message)

	fields := entry.ContextMap()
	assert.Equal(t, "boom", fields["error"])
	assert.EqualValues(t, 2, fields["attempt"])
	assert.Equal(t, "a", fields["target"])
}

func TestLogger_WithContextAddsTraceIDs(t *testing.T) {
	traceID, _ := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	spanID, _ := trace.SpanIDFromHex("0102030405060708")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	t.Run("enabled", func(t *testing.T) {
		log, logs := newObserved(true)
		log.InfoWithContext(ctx, "call", nil)

		fields := logs.All()[0].ContextMap()
		assert.Equal(t, traceID.String(), fields["trace_id"])
		assert.Equal(t, spanID.String(), fields["span_id"])
	})

	t.Run("disabled", func(t *testing.T) {
		log, logs := newObserved(false)
		log.DebugWithContext(ctx, "call", nil)

		fields := logs.All()[0].ContextMap()
		assert.NotContains(t, fields, "trace_id")
	})

	t.Run("no span", func(t *testing.T) {
		log, logs := newObserved(true)
		log.ErrorWithContext(context.Background(), "call", errors.New("x"))

		fields := logs.All()[0].ContextMap()
		assert.NotContains(t, fields, "trace_id")
		assert.Equal(t, "x", fields["error"])
	})
}

func TestNewNop(t *testing.T) {
	log := NewNop()
	assert.NotPanics(t, func() {
		log.Info("ignored", nil)
		log.WarnWithContext(context.Background(), "ignored", errors.New("x"))
	})
}
