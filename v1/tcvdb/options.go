package tcvdb

import (
	"github.com/Aleph-Alpha/vdbclient/v1/minio"
	"github.com/Aleph-Alpha/vdbclient/v1/observability"
)

const instrumentationName = "github.com/Aleph-Alpha/vdbclient/v1/tcvdb"

type options struct {
	transport Transport
	logger    Logger
	tracer    Tracer
	observer  observability.Observer
	uploader  minio.Uploader
}

// Option customizes a Client or a Dispatcher.
type Option func(*options)

// WithTransport replaces the transport selected by Config.Protocol.
// The client closes it on Close.
func WithTransport(t Transport) Option {
	return func(o *options) { o.transport = t }
}

// WithLogger sets the logger used for call state transitions and warnings.
func WithLogger(l Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithTracer sets the tracer used for call spans. Without one the global
// OpenTelemetry provider is used.
func WithTracer(t Tracer) Option {
	return func(o *options) { o.tracer = t }
}

// WithObserver sets the observer notified after every call.
func WithObserver(obs observability.Observer) Option {
	return func(o *options) { o.observer = obs }
}

// WithUploader sets the uploader used by UploadDocumentSet.
func WithUploader(u minio.Uploader) Option {
	return func(o *options) { o.uploader = u }
}

func applyOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}
