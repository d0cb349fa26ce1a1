package tcvdb

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/mem"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const grpcService = "/olama.SearchEngine/"

// frame carries an already encoded message through gRPC untouched.
type frame struct {
	payload []byte
}

// rawCodec moves frames as bytes. Its name makes gRPC announce
// "application/grpc+json", matching the JSON payloads it carries.
type rawCodec struct{}

func (rawCodec) Marshal(v any) (mem.BufferSlice, error) {
	f, ok := v.(*frame)
	if !ok {
		return nil, fmt.Errorf("[TCVDB] raw codec cannot marshal %T", v)
	}
	return mem.BufferSlice{mem.SliceBuffer(f.payload)}, nil
}

func (rawCodec) Unmarshal(data mem.BufferSlice, v any) error {
	f, ok := v.(*frame)
	if !ok {
		return fmt.Errorf("[TCVDB] raw codec cannot unmarshal into %T", v)
	}
	f.payload = data.Materialize()
	return nil
}

func (rawCodec) Name() string { return "json" }

// pooledConn is a shared connection to one node. A stale connection is no
// longer handed out and is closed once its last user releases it.
type pooledConn struct {
	target string
	conn   *grpc.ClientConn
	refs   int
	stale  bool
}

// GRPCTransport sends calls over gRPC, keeping one multiplexed connection per
// node. Redirect targets get their own connection on first use.
type GRPCTransport struct {
	auth     string
	maxMsg   int
	dialOpts []grpc.DialOption

	mu     sync.Mutex
	conns  map[string]*pooledConn
	closed bool
}

// NewGRPCTransport creates a gRPC transport. Connections use insecure
// credentials unless opts override them; opts are applied to every node.
func NewGRPCTransport(cfg *Config, opts ...grpc.DialOption) *GRPCTransport {
	maxMsg := cfg.MaxMessageSize
	if maxMsg <= 0 {
		maxMsg = defaultMaxMessageSize
	}
	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}, opts...)

	return &GRPCTransport{
		auth:     authorization(cfg.Username, cfg.APIKey),
		maxMsg:   maxMsg,
		dialOpts: dialOpts,
		conns:    make(map[string]*pooledConn),
	}
}

// Call implements Transport.
func (t *GRPCTransport) Call(ctx context.Context, target string, req Request) ([]byte, error) {
	pc, err := t.acquire(grpcTarget(target))
	if err != nil {
		return nil, err
	}

	md := metadata.Pairs(
		headerAuthorization, t.auth,
		headerBackend, string(req.Backend),
	)
	otel.GetTextMapPropagator().Inject(ctx, metadataCarrier(md))
	ctx = metadata.NewOutgoingContext(ctx, md)

	out := &frame{}
	err = pc.conn.Invoke(ctx, grpcService+string(req.Method), &frame{payload: req.Payload}, out,
		grpc.ForceCodecV2(rawCodec{}),
		grpc.MaxCallRecvMsgSize(t.maxMsg),
		grpc.MaxCallSendMsgSize(t.maxMsg),
	)
	t.release(pc, status.Code(err) == codes.Unavailable)
	if err != nil {
		return nil, classifyGRPCError(err)
	}
	return out.payload, nil
}

// acquire returns the pooled connection to target, dialing it if needed.
// Every successful acquire must be paired with release.
func (t *GRPCTransport) acquire(target string) (*pooledConn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, backoff.Permanent(ErrClosed)
	}
	if pc, ok := t.conns[target]; ok {
		pc.refs++
		return pc, nil
	}

	conn, err := grpc.NewClient(target, t.dialOpts...)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("dial %s: %w", target, err))
	}
	pc := &pooledConn{target: target, conn: conn, refs: 1}
	t.conns[target] = pc
	return pc, nil
}

// release returns a connection to the pool. A broken connection is retired
// so the next acquire dials afresh.
func (t *GRPCTransport) release(pc *pooledConn, broken bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	pc.refs--
	if broken && !pc.stale {
		pc.stale = true
		if t.conns[pc.target] == pc {
			delete(t.conns, pc.target)
		}
	}
	if pc.stale && pc.refs == 0 {
		_ = pc.conn.Close()
	}
}

// Close closes idle connections now and busy ones on their last release.
func (t *GRPCTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true

	var errs []error
	for target, pc := range t.conns {
		pc.stale = true
		if pc.refs == 0 {
			if err := pc.conn.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close %s: %w", target, err))
			}
		}
		delete(t.conns, target)
	}
	return errors.Join(errs...)
}

// classifyGRPCError marks failures that a retry cannot fix as permanent.
func classifyGRPCError(err error) error {
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted, codes.Canceled:
		return err
	default:
		return backoff.Permanent(err)
	}
}

// grpcTarget turns "http://host[:port]" endpoints into dialable "host:port"
// targets. Other forms, including resolver URIs, are returned unchanged.
func grpcTarget(target string) string {
	u, err := url.Parse(target)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return target
	}
	if u.Port() != "" {
		return u.Host
	}
	if u.Scheme == "https" {
		return u.Host + ":443"
	}
	return u.Host + ":80"
}

// metadataCarrier adapts outgoing gRPC metadata to the OpenTelemetry propagator.
type metadataCarrier metadata.MD

func (c metadataCarrier) Get(key string) string {
	if v := metadata.MD(c).Get(key); len(v) > 0 {
		return v[0]
	}
	return ""
}

func (c metadataCarrier) Set(key, value string) {
	metadata.MD(c).Set(key, value)
}

func (c metadataCarrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	return keys
}
