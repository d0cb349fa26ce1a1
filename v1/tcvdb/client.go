package tcvdb

import (
	"context"
	"fmt"
	"sync"

	"github.com/Aleph-Alpha/vdbclient/v1/minio"
	"github.com/Aleph-Alpha/vdbclient/v1/vectordb"
)

//
// ──────────────────────────────────────────────────────────────
//   VECTOR DATABASE CLIENT
// ──────────────────────────────────────────────────────────────
//
// Client is the entry point for applications. Every operation builds a
// validated descriptor, encodes it once, and hands it to the Dispatcher,
// which follows redirects and retries transport failures. Writes are split
// into sub-batches by the batching coordinator.
//

// Client talks to one vector database deployment. It is safe for
// concurrent use; no redirect target or other routing state is kept between
// calls.
type Client struct {
	cfg        Config
	transport  Transport
	dispatcher *Dispatcher
	logger     Logger
	uploader   minio.Uploader

	closeOnce sync.Once
	closeErr  error
}

var _ vectordb.Service = (*Client)(nil)

// NewClient validates cfg and builds a client over the transport selected by
// cfg.Protocol, unless WithTransport supplies one. No connection is made
// until the first call; use Ping to fail fast.
//
// Example:
//
//	cfg := tcvdb.FromEndpoint("10.0.0.1:80").WithCredentials("root", key)
//	client, err := tcvdb.NewClient(cfg, tcvdb.WithLogger(log))
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
func NewClient(cfg *Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("[TCVDB] config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := applyOptions(opts)
	transport := o.transport
	if transport == nil {
		t, err := NewTransport(cfg)
		if err != nil {
			return nil, err
		}
		transport = t
	}

	uploader := o.uploader
	if uploader == nil {
		u := minio.NewUploader(minio.DefaultConfig())
		if o.logger != nil {
			u.WithLogger(o.logger)
		}
		if o.observer != nil {
			u.WithObserver(o.observer)
		}
		uploader = u
	}

	c := &Client{
		cfg:        *cfg,
		transport:  transport,
		dispatcher: NewDispatcher(transport, cfg, opts...),
		logger:     o.logger,
		uploader:   uploader,
	}
	c.logInfo(context.Background(), "[TCVDB] client created", map[string]interface{}{
		"endpoint": cfg.Endpoint,
		"protocol": string(cfg.Protocol),
	})
	return c, nil
}

// Dispatcher returns the dispatcher used by the client, for sending calls
// not covered by the typed operations.
func (c *Client) Dispatcher() *Dispatcher {
	return c.dispatcher
}

// Config returns a copy of the client configuration.
func (c *Client) Config() Config {
	return c.cfg
}

// Ping checks that the configured endpoint answers an authenticated call.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.ListDatabases(ctx); err != nil {
		return fmt.Errorf("[TCVDB] ping %s: %w", c.cfg.Endpoint, err)
	}
	return nil
}

// Close releases the transport. It is safe to call more than once.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.logInfo(context.Background(), "[TCVDB] closing client", nil)
		c.closeErr = c.transport.Close()
	})
	return c.closeErr
}

func (c *Client) logDebug(ctx context.Context, msg string, fields map[string]interface{}) {
	if c.logger != nil {
		c.logger.DebugWithContext(ctx, msg, nil, fields)
	}
}

func (c *Client) logInfo(ctx context.Context, msg string, fields map[string]interface{}) {
	if c.logger != nil {
		c.logger.InfoWithContext(ctx, msg, nil, fields)
	}
}

func (c *Client) logWarn(ctx context.Context, msg string, fields map[string]interface{}) {
	if c.logger != nil {
		c.logger.WarnWithContext(ctx, msg, nil, fields)
	}
}
