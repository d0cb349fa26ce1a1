package minio

import (
	"go.uber.org/fx"

	"github.com/Aleph-Alpha/vdbclient/v1/logger"
	"github.com/Aleph-Alpha/vdbclient/v1/observability"
)

// FXModule provides a *DocumentUploader and exposes it as Uploader.
//
// Usage:
//
//	app := fx.New(
//	    logger.FXModule, // optional
//	    minio.FXModule,
//	    tcvdb.FXModule,
//	)
//
// A minio.Config in the container overrides DefaultConfig.
var FXModule = fx.Module("minio",
	fx.Provide(
		NewUploaderWithDI,
		func(u *DocumentUploader) Uploader { return u },
	),
)

// UploaderParams groups the dependencies of the uploader.
type UploaderParams struct {
	fx.In

	Config   Config                 `optional:"true"`
	Logger   *logger.Logger         `optional:"true"`
	Observer observability.Observer `optional:"true"`
}

// NewUploaderWithDI creates an uploader from injected dependencies.
// A zero Config selects DefaultConfig.
func NewUploaderWithDI(p UploaderParams) (*DocumentUploader, error) {
	cfg := p.Config
	if cfg == (Config{}) {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	u := NewUploader(cfg)
	if p.Logger != nil {
		u.WithLogger(p.Logger)
	}
	if p.Observer != nil {
		u.WithObserver(p.Observer)
	}
	return u, nil
}
