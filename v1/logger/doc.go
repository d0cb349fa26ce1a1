// Package logger provides structured logging on top of Uber's zap.
//
// Every method takes a message, an optional error, and any number of field
// maps. The *WithContext variants also attach the trace_id and span_id of the
// active OpenTelemetry span when tracing is enabled in Config.
//
//	log := logger.NewLoggerClient(logger.Config{
//	    Level:         logger.Info,
//	    ServiceName:   "indexer",
//	    EnableTracing: true,
//	})
//
//	log.InfoWithContext(ctx, "Upsert finished", nil, map[string]interface{}{
//	    "affected": 1000,
//	})
//
// *Logger satisfies the small Logger interfaces declared by the tcvdb and
// minio packages, so it can be passed to them directly or injected by fx:
//
//	app := fx.New(
//	    logger.FXModule,
//	    fx.Provide(func() logger.Config { return logger.Config{Level: logger.Debug} }),
//	    tcvdb.FXModule,
//	)
//
// Use NewNop in tests that do not inspect log output.
package logger
