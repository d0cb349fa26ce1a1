// Package tracer configures OpenTelemetry tracing and exposes a small span API.
//
// NewClient installs a TracerProvider and the W3C propagators as globals, so
// the tcvdb transports inject the active trace context into outgoing gRPC
// metadata and HTTP headers even when no *Tracer is passed explicitly.
//
//	tr, err := tracer.NewClient(tracer.Config{
//	    ServiceName:  "indexer",
//	    AppEnv:       "production",
//	    EnableExport: true,
//	}, log)
//
//	client, err := tcvdb.NewClient(cfg, tcvdb.WithTracer(tr))
//
// Spans can also be created directly:
//
//	ctx, span := tr.StartSpan(ctx, "reindex")
//	defer span.End()
//	tr.SetAttributes(span, map[string]interface{}{"collection": "docs"})
package tracer
