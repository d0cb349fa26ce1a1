package tcvdb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Aleph-Alpha/vdbclient/v1/observability"
	"github.com/Aleph-Alpha/vdbclient/v1/tcvdb/wire"
)

// State is the position of a logical call in its dispatch state machine.
//
//	Pending -> InFlight -> Succeeded
//	                    -> Redirected -> InFlight
//	                    -> Retrying   -> InFlight
//	                    -> Failed
type State int

const (
	StatePending State = iota
	StateInFlight
	StateSucceeded
	StateRedirected
	StateRetrying
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateInFlight:
		return "in_flight"
	case StateSucceeded:
		return "succeeded"
	case StateRedirected:
		return "redirected"
	case StateRetrying:
		return "retrying"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Logger defines the logging methods used by this package.
// *logger.Logger satisfies it.
type Logger interface {
	DebugWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
	InfoWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
	WarnWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
	ErrorWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
}

// Tracer starts spans. *tracer.Tracer satisfies it; without one the global
// OpenTelemetry provider is used.
type Tracer interface {
	StartSpan(ctx context.Context, name string) (context.Context, trace.Span)
}

type otelTracer struct {
	tracer trace.Tracer
}

func (t otelTracer) StartSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name)
}

// Call is one logical request. Payload is encoded once by the caller and is
// sent unchanged to every node the call visits.
type Call struct {
	Method  Method
	Backend Backend
	Payload []byte

	// Target overrides the configured endpoint as the first node.
	Target string

	// Database and Collection label the call in logs and metrics.
	Database   string
	Collection string
}

// Result is the raw response of a call that succeeded.
type Result struct {
	Body   []byte
	Status wire.Status

	// Target is the node that answered.
	Target string

	// Visited lists every node that answered with an envelope, in order.
	Visited []string

	// Attempts counts every request sent, including failed ones.
	Attempts int
}

// attemptState is the bookkeeping of one logical call. It is discarded when
// the call resolves.
type attemptState struct {
	state     State
	target    string
	attempts  int
	failures  int
	retries   int
	redirects int
	visited   []string
	started   time.Time
}

// Dispatcher sends encoded calls, follows redirects and retries transport
// failures. It holds no state between calls and is safe for concurrent use.
type Dispatcher struct {
	transport   Transport
	endpoint    string
	timeout     time.Duration
	maxAttempts int
	retry       RetryConfig

	logger   Logger
	tracer   Tracer
	observer observability.Observer
}

// NewDispatcher creates a dispatcher over transport using the endpoint,
// timeout, redirect and retry settings of cfg.
func NewDispatcher(transport Transport, cfg *Config, opts ...Option) *Dispatcher {
	o := applyOptions(opts)

	maxAttempts := cfg.MaxRedirectAttempts
	if maxAttempts < 1 {
		maxAttempts = defaultMaxRedirectAttempts
	}
	retry := cfg.Retry
	if retry.MaxAttempts < 1 {
		retry.MaxAttempts = 1
	}

	d := &Dispatcher{
		transport:   transport,
		endpoint:    cfg.Endpoint,
		timeout:     cfg.Timeout,
		maxAttempts: maxAttempts,
		retry:       retry,
		logger:      o.logger,
		tracer:      o.tracer,
		observer:    o.observer,
	}
	if d.tracer == nil {
		d.tracer = otelTracer{tracer: otel.Tracer(instrumentationName)}
	}
	return d
}

// Dispatch runs call to completion.
//
// A response with a redirect is re-sent to the named node, whatever its
// status code. After MaxRedirectAttempts answered attempts the call fails
// with a RedirectLoopError. A non-zero code without redirect is a
// ServiceError. Transport failures are retried on the same node with
// exponential backoff until Retry.MaxAttempts failures, then surface as a
// TransportError. The context is checked before every attempt and during
// backoff; once it is done the call fails with a CancelledError.
func (d *Dispatcher) Dispatch(ctx context.Context, call Call) (*Result, error) {
	st := &attemptState{state: StatePending, target: call.Target, started: time.Now()}
	if st.target == "" {
		st.target = d.endpoint
	}

	ctx, span := d.tracer.StartSpan(ctx, "tcvdb."+string(call.Method))
	defer span.End()
	span.SetAttributes(
		attribute.String("tcvdb.method", string(call.Method)),
		attribute.String("tcvdb.backend", string(call.Backend)),
		attribute.String("tcvdb.database", call.Database),
		attribute.String("tcvdb.collection", call.Collection),
		attribute.Int("tcvdb.payload_bytes", len(call.Payload)),
	)

	res, err := d.run(ctx, span, call, st)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.SetAttributes(
		attribute.Int("tcvdb.attempts", st.attempts),
		attribute.Int("tcvdb.redirects", st.redirects),
	)
	d.observe(call, st, err)
	return res, err
}

func (d *Dispatcher) run(ctx context.Context, span trace.Span, call Call, st *attemptState) (*Result, error) {
	bo := d.newBackOff()
	req := Request{Method: call.Method, Backend: call.Backend, Payload: call.Payload}

	for {
		if err := ctx.Err(); err != nil {
			return nil, d.fail(ctx, span, call, st, d.cancelled(call, st, err))
		}

		d.transition(ctx, span, call, st, StateInFlight, nil)
		st.attempts++
		body, err := d.attempt(ctx, st.target, req)

		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, d.fail(ctx, span, call, st, d.cancelled(call, st, ctxErr))
			}
			st.failures++

			var perm *backoff.PermanentError
			if errors.As(err, &perm) {
				return nil, d.fail(ctx, span, call, st, &TransportError{
					Method: call.Method, Target: st.target, Attempts: st.failures, Err: perm.Unwrap(),
				})
			}
			if st.failures >= d.retry.MaxAttempts {
				return nil, d.fail(ctx, span, call, st, &TransportError{
					Method: call.Method, Target: st.target, Attempts: st.failures, Retryable: true, Err: err,
				})
			}

			delay := bo.NextBackOff()
			st.retries++
			d.transition(ctx, span, call, st, StateRetrying, err, map[string]interface{}{"delay": delay.String()})
			if err := sleep(ctx, delay); err != nil {
				return nil, d.fail(ctx, span, call, st, d.cancelled(call, st, err))
			}
			continue
		}

		status, err := wire.DecodeStatus(body)
		if err != nil {
			st.failures++
			return nil, d.fail(ctx, span, call, st, &TransportError{
				Method: call.Method, Target: st.target, Attempts: st.failures, Err: err,
			})
		}
		st.visited = append(st.visited, st.target)

		if status.Redirected() {
			if len(st.visited) >= d.maxAttempts {
				return nil, d.fail(ctx, span, call, st, &RedirectLoopError{
					Method:      call.Method,
					Visited:     append([]string(nil), st.visited...),
					MaxAttempts: d.maxAttempts,
				})
			}
			from := st.target
			st.target = status.Redirect
			st.redirects++
			d.transition(ctx, span, call, st, StateRedirected, nil, map[string]interface{}{"from": from})
			continue
		}

		if status.Code != 0 {
			return nil, d.fail(ctx, span, call, st, &ServiceError{
				Method:    call.Method,
				Target:    st.target,
				Code:      status.Code,
				Message:   status.Msg,
				RequestID: status.RequestID,
			})
		}

		d.transition(ctx, span, call, st, StateSucceeded, nil)
		return &Result{
			Body:     body,
			Status:   status,
			Target:   st.target,
			Visited:  st.visited,
			Attempts: st.attempts,
		}, nil
	}
}

// attempt sends one request, bounded by the per-attempt timeout.
func (d *Dispatcher) attempt(ctx context.Context, target string, req Request) ([]byte, error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}
	return d.transport.Call(ctx, target, req)
}

func (d *Dispatcher) newBackOff() *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = d.retry.InitialBackoff
	bo.MaxInterval = d.retry.MaxBackoff
	bo.Multiplier = d.retry.Multiplier
	bo.RandomizationFactor = d.retry.Jitter
	if bo.Multiplier < 1 {
		bo.Multiplier = 1
	}
	if bo.MaxInterval < bo.InitialInterval {
		bo.MaxInterval = bo.InitialInterval
	}
	bo.Reset()
	return bo
}

func (d *Dispatcher) cancelled(call Call, st *attemptState, err error) error {
	return &CancelledError{Method: call.Method, Target: st.target, Attempts: st.attempts, Err: err}
}

func (d *Dispatcher) fail(ctx context.Context, span trace.Span, call Call, st *attemptState, err error) error {
	d.transition(ctx, span, call, st, StateFailed, err)
	return err
}

// transition records a state change on the span and in the debug log.
func (d *Dispatcher) transition(ctx context.Context, span trace.Span, call Call, st *attemptState, next State, err error, extra ...map[string]interface{}) {
	st.state = next
	span.AddEvent(next.String(), trace.WithAttributes(
		attribute.String("target", st.target),
		attribute.Int("attempt", st.attempts),
	))

	if d.logger == nil {
		return
	}
	fields := map[string]interface{}{
		"method":   string(call.Method),
		"target":   st.target,
		"attempt":  st.attempts,
		"state":    next.String(),
		"database": call.Database,
	}
	for _, e := range extra {
		for k, v := range e {
			fields[k] = v
		}
	}
	switch next {
	case StateRetrying:
		d.logger.WarnWithContext(ctx, "[TCVDB] transport failure, retrying", err, fields)
	case StateFailed:
		fields["elapsed"] = time.Since(st.started).String()
		d.logger.ErrorWithContext(ctx, "[TCVDB] call failed", err, fields)
	default:
		d.logger.DebugWithContext(ctx, "[TCVDB] call state changed", err, fields)
	}
}

func (d *Dispatcher) observe(call Call, st *attemptState, err error) {
	if d.observer == nil {
		return
	}
	d.observer.ObserveOperation(observability.OperationContext{
		Component:   "tcvdb",
		Operation:   string(call.Method),
		Resource:    call.Database,
		SubResource: call.Collection,
		Duration:    time.Since(st.started),
		Error:       err,
		Size:        int64(len(call.Payload)),
		Metadata: map[string]interface{}{
			"attempts":   st.attempts,
			"redirects":  st.redirects,
			"retries":    st.retries,
			"target":     st.target,
			"state":      st.state.String(),
			"error_kind": errorKind(err),
		},
	})
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Invoke encodes req once, dispatches it and decodes the response envelope.
func Invoke[Resp any](ctx context.Context, d *Dispatcher, call Call, req any) (*wire.Envelope[Resp], error) {
	payload, err := wire.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("[TCVDB] encode %s request: %w", call.Method, err)
	}
	call.Payload = payload

	res, err := d.Dispatch(ctx, call)
	if err != nil {
		return nil, err
	}
	env, err := wire.Decode[Resp](res.Body)
	if err != nil {
		return nil, fmt.Errorf("[TCVDB] decode %s response from %s: %w", call.Method, res.Target, err)
	}
	return env, nil
}
