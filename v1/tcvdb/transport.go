package tcvdb

import (
	"context"
	"fmt"
)

// Method names one remote operation. The gRPC transport sends it as
// "/olama.SearchEngine/<Method>"; the HTTP transport maps it to a path.
type Method string

const (
	MethodUpsert             Method = "upsert"
	MethodQuery              Method = "query"
	MethodSearch             Method = "search"
	MethodHybridSearch       Method = "hybrid_search"
	MethodDelete             Method = "dele"
	MethodUpdate             Method = "update"
	MethodCount              Method = "count"
	MethodCreateDatabase     Method = "createDatabase"
	MethodDropDatabase       Method = "dropDatabase"
	MethodListDatabases      Method = "listDatabases"
	MethodCreateCollection   Method = "createCollection"
	MethodDropCollection     Method = "dropCollection"
	MethodTruncateCollection Method = "truncateCollection"
	MethodDescribeCollection Method = "describeCollection"
	MethodListCollections    Method = "listCollections"
	MethodSetAlias           Method = "setAlias"
	MethodDeleteAlias        Method = "deleteAlias"
	MethodAddIndex           Method = "addIndex"
	MethodRebuildIndex       Method = "rebuildIndex"
	MethodUploadURL          Method = "uploadUrl"
)

// Backend selects the gateway route: plain storage, or storage behind the
// embedding service for requests carrying text.
type Backend string

const (
	BackendVDB Backend = "vdb"
	BackendAI  Backend = "ai"
)

const (
	headerAuthorization = "authorization"
	headerBackend       = "backend-service"
)

// Request is one encoded call as handed to a Transport.
type Request struct {
	Method  Method
	Backend Backend

	// Payload is the encoded request. It is sent unchanged to every target.
	Payload []byte
}

// Transport sends encoded requests to a named node and returns the encoded
// response. Any envelope the node produced, including non-zero status codes
// and redirects, is a response rather than an error.
//
// Transports report failures that retrying cannot fix by wrapping them with
// backoff.Permanent. All other errors are retried by the Dispatcher.
//
//go:generate mockgen -source=transport.go -destination=mock_transport.go -package=tcvdb
type Transport interface {
	Call(ctx context.Context, target string, req Request) ([]byte, error)
	Close() error
}

// authorization renders the authorization header value for a credential pair.
func authorization(username, apiKey string) string {
	return fmt.Sprintf("Bearer account=%s&api_key=%s", username, apiKey)
}

// NewTransport builds the transport selected by cfg.Protocol.
func NewTransport(cfg *Config) (Transport, error) {
	switch cfg.Protocol {
	case ProtocolGRPC, "":
		return NewGRPCTransport(cfg), nil
	case ProtocolHTTP:
		return NewHTTPTransport(cfg, nil), nil
	default:
		return nil, fmt.Errorf("[TCVDB] unknown protocol %q", cfg.Protocol)
	}
}
