package tcvdb

import (
	"context"

	"go.uber.org/fx"

	"github.com/Aleph-Alpha/vdbclient/v1/logger"
	"github.com/Aleph-Alpha/vdbclient/v1/minio"
	"github.com/Aleph-Alpha/vdbclient/v1/observability"
	"github.com/Aleph-Alpha/vdbclient/v1/tracer"
	"github.com/Aleph-Alpha/vdbclient/v1/vectordb"
)

// FXModule provides *Client and exposes it as vectordb.Service. The
// transport is closed when the application stops.
//
// Usage:
//
//	app := fx.New(
//	    logger.FXModule,  // optional
//	    tracer.FXModule,  // optional
//	    metrics.FXModule, // optional
//	    minio.FXModule,   // optional
//	    tcvdb.FXModule,
//	    fx.Provide(func() (*tcvdb.Config, error) {
//	        return tcvdb.LoadConfig("config/tcvdb.yaml")
//	    }),
//	)
var FXModule = fx.Module("tcvdb",
	fx.Provide(
		NewClientWithDI,
		func(c *Client) vectordb.Service { return c },
	),
	fx.Invoke(RegisterTCVDBLifecycle),
)

// TCVDBParams groups the dependencies of the client.
type TCVDBParams struct {
	fx.In

	Config    *Config
	Logger    *logger.Logger         `optional:"true"`
	Tracer    *tracer.Tracer         `optional:"true"`
	Observer  observability.Observer `optional:"true"`
	Uploader  minio.Uploader         `optional:"true"`
	Transport Transport              `optional:"true"`
}

// NewClientWithDI creates a client from injected dependencies.
func NewClientWithDI(p TCVDBParams) (*Client, error) {
	var opts []Option
	if p.Logger != nil {
		opts = append(opts, WithLogger(p.Logger))
	}
	if p.Tracer != nil {
		opts = append(opts, WithTracer(p.Tracer))
	}
	if p.Observer != nil {
		opts = append(opts, WithObserver(p.Observer))
	}
	if p.Uploader != nil {
		opts = append(opts, WithUploader(p.Uploader))
	}
	if p.Transport != nil {
		opts = append(opts, WithTransport(p.Transport))
	}
	return NewClient(p.Config, opts...)
}

// RegisterTCVDBLifecycle closes the client when the application stops.
func RegisterTCVDBLifecycle(lc fx.Lifecycle, c *Client) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return c.Close()
		},
	})
}
