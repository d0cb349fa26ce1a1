package tcvdb

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/cenkalti/backoff/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

type fakeHandler func(method string, md metadata.MD, payload []byte) ([]byte, error)

// startFakeNode serves every method of the search engine service over an
// in-memory listener and returns a transport dialing it.
func startFakeNode(t *testing.T, cfg *Config, handle fakeHandler) *GRPCTransport {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(
		grpc.ForceServerCodecV2(rawCodec{}),
		grpc.UnknownServiceHandler(func(_ any, stream grpc.ServerStream) error {
			method, _ := grpc.MethodFromServerStream(stream)
			md, _ := metadata.FromIncomingContext(stream.Context())
			in := &frame{}
			if err := stream.RecvMsg(in); err != nil {
				return err
			}
			out, err := handle(method, md, in.payload)
			if err != nil {
				return err
			}
			return stream.SendMsg(&frame{payload: out})
		}),
	)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	tr := NewGRPCTransport(cfg, grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	}))
	t.Cleanup(func() { _ = tr.Close() })
	return tr
}

func TestGRPCTransport_SendsPayloadAndHeaders(t *testing.T) {
	cfg := testConfig().WithCredentials("root", "secret")

	var (
		gotMethod  string
		gotMD      metadata.MD
		gotPayload []byte
	)
	tr := startFakeNode(t, cfg, func(method string, md metadata.MD, payload []byte) ([]byte, error) {
		gotMethod, gotMD, gotPayload = method, md, payload
		return []byte(`{"code":0,"count":7}`), nil
	})

	body, err := tr.Call(context.Background(), "passthrough:///node-a", Request{
		Method:  MethodCount,
		Backend: BackendAI,
		Payload: []byte(`{"database":"db","collection":"docs","query":{}}`),
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"code":0,"count":7}`, string(body))

	assert.Equal(t, "/olama.SearchEngine/count", gotMethod)
	assert.Equal(t, `{"database":"db","collection":"docs","query":{}}`, string(gotPayload))
	assert.Equal(t, []string{"Bearer account=root&api_key=secret"}, gotMD.Get(headerAuthorization))
	assert.Equal(t, []string{"ai"}, gotMD.Get(headerBackend))
}

func TestGRPCTransport_ReusesConnectionPerTarget(t *testing.T) {
	tr := startFakeNode(t, testConfig(), func(string, metadata.MD, []byte) ([]byte, error) {
		return []byte(`{"code":0}`), nil
	})

	for range 3 {
		_, err := tr.Call(context.Background(), "passthrough:///node-a", testRequest)
		require.NoError(t, err)
	}
	_, err := tr.Call(context.Background(), "passthrough:///node-b", testRequest)
	require.NoError(t, err)

	tr.mu.Lock()
	defer tr.mu.Unlock()
	assert.Len(t, tr.conns, 2)
}

func TestGRPCTransport_ClassifiesErrors(t *testing.T) {
	tests := []struct {
		name      string
		code      codes.Code
		permanent bool
	}{
		{name: "unavailable", code: codes.Unavailable, permanent: false},
		{name: "resource exhausted", code: codes.ResourceExhausted, permanent: false},
		{name: "invalid argument", code: codes.InvalidArgument, permanent: true},
		{name: "unauthenticated", code: codes.Unauthenticated, permanent: true},
		{name: "unimplemented", code: codes.Unimplemented, permanent: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := startFakeNode(t, testConfig(), func(string, metadata.MD, []byte) ([]byte, error) {
				return nil, status.Error(tt.code, tt.name)
			})

			_, err := tr.Call(context.Background(), "passthrough:///node-a", testRequest)
			require.Error(t, err)
			assert.Equal(t, tt.code, status.Code(err))

			var perm *backoff.PermanentError
			assert.Equal(t, tt.permanent, errors.As(err, &perm))
		})
	}
}

func TestGRPCTransport_UnavailableRetiresConnection(t *testing.T) {
	tr := startFakeNode(t, testConfig(), func(string, metadata.MD, []byte) ([]byte, error) {
		return nil, status.Error(codes.Unavailable, "shutting down")
	})

	_, err := tr.Call(context.Background(), "passthrough:///node-a", testRequest)
	require.Error(t, err)

	tr.mu.Lock()
	defer tr.mu.Unlock()
	assert.Empty(t, tr.conns)
}

func TestGRPCTransport_DispatcherFollowsRedirectAcrossNodes(t *testing.T) {
	calls := 0
	tr := startFakeNode(t, testConfig(), func(string, metadata.MD, []byte) ([]byte, error) {
		calls++
		if calls == 1 {
			return []byte(`{"code":0,"redirect":"passthrough:///node-b"}`), nil
		}
		return []byte(`{"code":0,"documents":[]}`), nil
	})

	d := NewDispatcher(tr, testConfig().WithCredentials("root", "k"))
	res, err := d.Dispatch(context.Background(), Call{
		Method:  MethodQuery,
		Backend: BackendVDB,
		Payload: testPayload,
		Target:  "passthrough:///node-a",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"passthrough:///node-a", "passthrough:///node-b"}, res.Visited)
	assert.Equal(t, 2, calls)
}

func TestGRPCTransport_ClosedRejectsCalls(t *testing.T) {
	tr := NewGRPCTransport(testConfig())
	require.NoError(t, tr.Close())
	require.NoError(t, tr.Close())

	_, err := tr.Call(context.Background(), "passthrough:///node-a", testRequest)
	assert.ErrorIs(t, err, ErrClosed)

	var perm *backoff.PermanentError
	assert.True(t, errors.As(err, &perm))
}

func TestGRPCTarget(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"10.0.0.1:80", "10.0.0.1:80"},
		{"http://10.0.0.1", "10.0.0.1:80"},
		{"http://10.0.0.1:8100", "10.0.0.1:8100"},
		{"https://vdb.example.com", "vdb.example.com:443"},
		{"dns:///vdb.example.com:80", "dns:///vdb.example.com:80"},
		{"passthrough:///node-a", "passthrough:///node-a"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, grpcTarget(tt.in), tt.in)
	}
}

func TestRawCodec_RejectsForeignTypes(t *testing.T) {
	_, err := rawCodec{}.Marshal("not a frame")
	assert.Error(t, err)
	assert.Equal(t, "json", rawCodec{}.Name())
}
