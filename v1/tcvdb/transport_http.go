package tcvdb

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/Aleph-Alpha/vdbclient/v1/tcvdb/wire"
)

var httpPaths = map[Method]string{
	MethodUpsert:             "/document/upsert",
	MethodQuery:              "/document/query",
	MethodSearch:             "/document/search",
	MethodHybridSearch:       "/document/hybridSearch",
	MethodDelete:             "/document/delete",
	MethodUpdate:             "/document/update",
	MethodCount:              "/document/count",
	MethodCreateDatabase:     "/database/create",
	MethodDropDatabase:       "/database/drop",
	MethodListDatabases:      "/database/list",
	MethodCreateCollection:   "/collection/create",
	MethodDropCollection:     "/collection/drop",
	MethodTruncateCollection: "/collection/truncate",
	MethodDescribeCollection: "/collection/describe",
	MethodListCollections:    "/collection/list",
	MethodSetAlias:           "/alias/set",
	MethodDeleteAlias:        "/alias/delete",
	MethodAddIndex:           "/index/add",
	MethodRebuildIndex:       "/index/rebuild",
	MethodUploadURL:          "/ai/documentSet/uploadUrl",
}

// HTTPTransport sends calls as JSON POST requests.
type HTTPTransport struct {
	auth   string
	client *http.Client
}

// NewHTTPTransport creates an HTTP transport. A nil client selects a default
// one; per-attempt deadlines come from the request context.
func NewHTTPTransport(cfg *Config, client *http.Client) *HTTPTransport {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPTransport{
		auth:   authorization(cfg.Username, cfg.APIKey),
		client: client,
	}
}

// Call implements Transport.
func (t *HTTPTransport) Call(ctx context.Context, target string, req Request) ([]byte, error) {
	path, ok := httpPaths[req.Method]
	if !ok {
		return nil, backoff.Permanent(fmt.Errorf("no HTTP route for method %s", req.Method))
	}

	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, httpBase(target)+path, bytes.NewReader(req.Payload))
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	hreq.Header.Set("Content-Type", "application/json")
	hreq.Header.Set(headerAuthorization, t.auth)
	hreq.Header.Set(headerBackend, string(req.Backend))
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(hreq.Header))

	resp, err := t.client.Do(hreq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return wire.WithWarning(body, resp.Header.Get("Warning")), nil
	}

	// Rejections usually arrive as envelopes on a non-2xx status.
	if s, err := wire.DecodeStatus(body); err == nil && (s.Code != 0 || s.Redirected()) {
		return wire.WithWarning(body, resp.Header.Get("Warning")), nil
	}

	httpErr := fmt.Errorf("HTTP %d: %s", resp.StatusCode, truncate(body, 256))
	switch resp.StatusCode {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return nil, httpErr
	default:
		return nil, backoff.Permanent(httpErr)
	}
}

// Close releases idle connections.
func (t *HTTPTransport) Close() error {
	t.client.CloseIdleConnections()
	return nil
}

// httpBase accepts "host:port" redirect targets as well as full URLs.
func httpBase(target string) string {
	if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		target = "http://" + target
	}
	return strings.TrimRight(target, "/")
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
