package tracer

import (
	"context"

	"go.uber.org/fx"

	"github.com/Aleph-Alpha/vdbclient/v1/logger"
)

// FXModule provides *Tracer from a Config in the container and shuts the
// provider down when the application stops, flushing pending spans.
//
//	app := fx.New(
//	    logger.FXModule,
//	    tracer.FXModule,
//	    tcvdb.FXModule, // picks up *tracer.Tracer for call spans
//	)
var FXModule = fx.Module("tracer",
	fx.Provide(
		NewClientWithDI,
	),
	fx.Invoke(RegisterTracerLifecycle),
)

// TracerParams groups the dependencies of the tracer.
type TracerParams struct {
	fx.In

	Config Config
	Logger *logger.Logger `optional:"true"`
}

// NewClientWithDI creates a tracer from injected dependencies.
func NewClientWithDI(p TracerParams) (*Tracer, error) {
	if p.Logger != nil {
		return NewClient(p.Config, p.Logger)
	}
	return NewClient(p.Config, nil)
}

// RegisterTracerLifecycle shuts the tracer down on application stop.
func RegisterTracerLifecycle(lc fx.Lifecycle, t *Tracer) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			if t.logger != nil {
				t.logger.Info("shutting down tracer", nil)
			}
			return t.Shutdown(ctx)
		},
	})
}
