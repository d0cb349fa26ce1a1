// Package tcvdb is a client for a sharded, replicated vector database
// reached over gRPC or HTTP.
//
// # Overview
//
// Every operation follows the same path:
//
//	vectordb params ──Build*──▶ descriptor ──converter──▶ wire request
//	      ──wire.Marshal (once)──▶ Dispatcher ──▶ Transport ──▶ node
//
// The Dispatcher owns a small state machine per logical call:
//
//	Pending → InFlight → Succeeded
//	                   → Redirected → InFlight   (same bytes, new node)
//	                   → Retrying   → InFlight   (same node, after backoff)
//	                   → Failed
//
// A response naming another node is re-sent there unchanged, up to
// Config.MaxRedirectAttempts answered attempts; exhausting them yields a
// *RedirectLoopError listing every node visited. Transport failures are
// retried with exponential backoff up to Config.Retry.MaxAttempts and then
// yield a *TransportError. A non-zero status without redirect is a
// *ServiceError. Cancelling the context stops the call before the next
// attempt or during backoff with a *CancelledError. No routing state is
// kept between calls.
//
// Writes larger than Config.Batch are split into ordered sub-batches. When
// one fails, a *PartialBatchFailureError reports what was written before it.
//
// # Usage
//
//	cfg := tcvdb.FromEndpoint("10.0.0.1:80").
//	    WithCredentials("root", os.Getenv("TCVDB_API_KEY"))
//
//	client, err := tcvdb.NewClient(cfg, tcvdb.WithLogger(log), tcvdb.WithObserver(m))
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	res, err := client.Upsert(ctx, "db", "docs", docs)
//	if tcvdb.IsPartialBatchFailure(err) {
//	    var pe *tcvdb.PartialBatchFailureError
//	    errors.As(err, &pe)
//	    // pe.SucceededDocuments were written
//	}
//
//	hits, err := client.Search(ctx, "db", "docs", vectordb.SearchParams{
//	    Ann:    []vectordb.AnnBranch{{Vectors: [][]float32{vec}, Limit: 10}},
//	    Filter: vectordb.NewFilter(vectordb.Equal("author", "ada")),
//	})
//
// # Configuration
//
// LoadConfig reads YAML, optional dotenv files, and TCVDB_* environment
// variables, in that order of precedence from lowest to highest.
//
// # FX
//
// FXModule provides *Client and vectordb.Service, picking up an optional
// *logger.Logger, *tracer.Tracer, observability.Observer and minio.Uploader.
package tcvdb
