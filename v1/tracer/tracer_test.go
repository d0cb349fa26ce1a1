package tracer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func newRecorded(t *testing.T) (*Tracer, *tracetest.SpanRecorder) {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return NewWithProvider(tp), rec
}

func TestStartSpan_RecordsAttributesAndError(t *testing.T) {
	tr, rec := newRecorded(t)

	_, span := tr.StartSpan(context.Background(), "tcvdb.upsert")
	tr.SetAttributes(span, map[string]interface{}{
		"database": "db",
		"attempts": 2,
		"batched":  true,
		"other":    struct{ A int }{1},
	})
	tr.RecordErrorOnSpan(span, errors.New("boom"))
	span.End()

	ended := rec.Ended()
	require.Len(t, ended, 1)
	s := ended[0]
	assert.Equal(t, "tcvdb.upsert", s.Name())
	assert.Equal(t, codes.Error, s.Status().Code)
	assert.Contains(t, s.Attributes(), attribute.String("database", "db"))
	assert.Contains(t, s.Attributes(), attribute.Int("attempts", 2))
	assert.Contains(t, s.Attributes(), attribute.Bool("batched", true))
	assert.Contains(t, s.Attributes(), attribute.String("other", "{1}"))
}

func TestRecordErrorOnSpan_NilError(t *testing.T) {
	tr, rec := newRecorded(t)

	_, span := tr.StartSpan(context.Background(), "ok")
	tr.RecordErrorOnSpan(span, nil)
	span.End()

	assert.Equal(t, codes.Unset, rec.Ended()[0].Status().Code)
}

func TestCarrierRoundTrip(t *testing.T) {
	tr, _ := newRecorded(t)

	ctx, span := tr.StartSpan(context.Background(), "parent")
	defer span.End()

	carrier := tr.GetCarrier(ctx)
	require.Contains(t, carrier, "traceparent")

	restored := tr.SetCarrierOnContext(context.Background(), carrier)
	sc := trace.SpanContextFromContext(restored)
	assert.True(t, sc.IsRemote())
	assert.Equal(t, span.SpanContext().TraceID(), sc.TraceID())
}

func TestShutdown_NilSafe(t *testing.T) {
	var tr *Tracer
	assert.NoError(t, tr.Shutdown(context.Background()))
}
