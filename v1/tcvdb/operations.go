package tcvdb

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/Aleph-Alpha/vdbclient/v1/tcvdb/wire"
	"github.com/Aleph-Alpha/vdbclient/v1/vectordb"
)

// ──────────────────────────────────────────────────────────────
// Documents
// ──────────────────────────────────────────────────────────────

// Upsert inserts or replaces docs. Documents are encoded once, split into
// sub-batches under the configured ceiling and sent in order. Documents
// carrying Text are routed through the embedding backend.
//
// When more than one sub-batch is needed and one fails, the error is a
// *PartialBatchFailureError reporting how much was written.
func (c *Client) Upsert(ctx context.Context, database, collection string, docs []vectordb.Document, opts ...vectordb.UpsertOption) (*vectordb.WriteResult, error) {
	o := vectordb.DefaultUpsertOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if len(docs) == 0 {
		return &vectordb.WriteResult{}, nil
	}

	wdocs, err := toWireDocuments(docs)
	if err != nil {
		return nil, fmt.Errorf("[TCVDB] upsert: %w", err)
	}
	sizes, err := documentSizes(wdocs)
	if err != nil {
		return nil, fmt.Errorf("[TCVDB] upsert: %w", err)
	}

	call := Call{
		Method:     MethodUpsert,
		Backend:    documentsBackend(docs),
		Database:   database,
		Collection: collection,
	}
	res, err := c.runBatches(ctx, MethodUpsert, partition(sizes, c.cfg.Ceiling()), func(ctx context.Context, r batchRange) (*wire.WriteResponse, error) {
		env, err := Invoke[wire.WriteResponse](ctx, c.dispatcher, call, wire.UpsertRequest{
			Database:   database,
			Collection: collection,
			BuildIndex: o.BuildIndex,
			Documents:  wdocs[r.start:r.end],
		})
		if err != nil {
			return nil, err
		}
		return &env.Payload, nil
	})
	if err != nil {
		return nil, err
	}
	c.warn(ctx, MethodUpsert, database, collection, res.Warnings...)
	return res, nil
}

// Query looks up documents by id or filter.
func (c *Client) Query(ctx context.Context, database, collection string, params vectordb.QueryParams) ([]vectordb.Document, error) {
	d, err := vectordb.BuildQuery(params)
	if err != nil {
		return nil, err
	}

	env, err := Invoke[wire.QueryResponse](ctx, c.dispatcher, Call{
		Method:     MethodQuery,
		Backend:    BackendVDB,
		Database:   database,
		Collection: collection,
	}, wire.QueryRequest{
		Database:        database,
		Collection:      collection,
		ReadConsistency: c.cfg.ReadConsistency,
		Query:           toQueryCond(d),
	})
	if err != nil {
		return nil, err
	}

	docs, err := fromWireDocuments(env.Payload.Documents)
	if err != nil {
		return nil, fmt.Errorf("[TCVDB] query: %w", err)
	}
	return docs, nil
}

// Search runs a dense, sparse or hybrid search. A single dense branch uses
// the plain search method; anything else uses hybrid search. Branches that
// query by text are routed through the embedding backend.
func (c *Client) Search(ctx context.Context, database, collection string, params vectordb.SearchParams) (*vectordb.SearchResult, error) {
	d, err := vectordb.BuildSearch(params, vectordb.WithDefaultRRFK(c.cfg.DefaultRRFK))
	if err != nil {
		return nil, err
	}

	backend := BackendVDB
	if d.UsesEmbedding() {
		backend = BackendAI
	}
	method := searchMethod(d)

	env, err := Invoke[wire.SearchResponse](ctx, c.dispatcher, Call{
		Method:     method,
		Backend:    backend,
		Database:   database,
		Collection: collection,
	}, wire.SearchRequest{
		Database:        database,
		Collection:      collection,
		ReadConsistency: c.cfg.ReadConsistency,
		Search:          toSearchCond(d),
	})
	if err != nil {
		return nil, err
	}

	res, err := fromSearchResponse(env.Payload)
	if err != nil {
		return nil, fmt.Errorf("[TCVDB] %s: %w", method, err)
	}
	c.warn(ctx, method, database, collection, res.Warning)
	return res, nil
}

// MultiSearch runs independent searches concurrently, at most
// Config.MaxConcurrentSearches at a time. Results are in request order. The
// first failure cancels the searches still running and is returned.
func (c *Client) MultiSearch(ctx context.Context, database, collection string, params []vectordb.SearchParams) ([]*vectordb.SearchResult, error) {
	results := make([]*vectordb.SearchResult, len(params))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.MaxConcurrentSearches)
	for i, p := range params {
		g.Go(func() error {
			res, err := c.Search(gctx, database, collection, p)
			if err != nil {
				return fmt.Errorf("[TCVDB] search %d: %w", i, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Delete removes the selected documents. A selection by id alone is split
// into sub-batches like Upsert; a filtered delete is a single call.
func (c *Client) Delete(ctx context.Context, database, collection string, params vectordb.DeleteParams) (*vectordb.WriteResult, error) {
	d, err := vectordb.BuildDelete(params)
	if err != nil {
		return nil, err
	}

	call := Call{
		Method:     MethodDelete,
		Backend:    BackendVDB,
		Database:   database,
		Collection: collection,
	}
	send := func(ctx context.Context, cond wire.QueryCond) (*wire.WriteResponse, error) {
		env, err := Invoke[wire.WriteResponse](ctx, c.dispatcher, call, wire.DeleteRequest{
			Database:   database,
			Collection: collection,
			Query:      cond,
		})
		if err != nil {
			return nil, err
		}
		return &env.Payload, nil
	}

	ranges := []batchRange{{start: 0, end: len(d.DocumentIDs)}}
	if d.Filter == "" && d.Limit == 0 {
		ranges = partition(idSizes(d.DocumentIDs), c.cfg.Ceiling())
	}

	res, err := c.runBatches(ctx, MethodDelete, ranges, func(ctx context.Context, r batchRange) (*wire.WriteResponse, error) {
		sub := d
		if len(ranges) > 1 {
			sub.DocumentIDs = d.DocumentIDs[r.start:r.end]
		}
		return send(ctx, deleteCond(sub))
	})
	if err != nil {
		return nil, err
	}
	c.warn(ctx, MethodDelete, database, collection, res.Warnings...)
	return res, nil
}

// Update writes params.Update into the selected documents.
func (c *Client) Update(ctx context.Context, database, collection string, params vectordb.UpdateParams) (*vectordb.WriteResult, error) {
	d, err := vectordb.BuildUpdate(params)
	if err != nil {
		return nil, err
	}
	update, err := toWireDocument(d.Update)
	if err != nil {
		return nil, fmt.Errorf("[TCVDB] update: %w", err)
	}
	update.ID = ""

	backend := BackendVDB
	if d.Update.Text != "" {
		backend = BackendAI
	}

	env, err := Invoke[wire.WriteResponse](ctx, c.dispatcher, Call{
		Method:     MethodUpdate,
		Backend:    backend,
		Database:   database,
		Collection: collection,
	}, wire.UpdateRequest{
		Database:   database,
		Collection: collection,
		Query:      wire.QueryCond{DocumentIDs: d.DocumentIDs, Filter: d.Filter},
		Update:     update,
	})
	if err != nil {
		return nil, err
	}

	res := writeResult(env.Payload)
	c.warn(ctx, MethodUpdate, database, collection, res.Warnings...)
	return res, nil
}

// Count returns the number of documents matching filter, or of the whole
// collection when filter is nil.
func (c *Client) Count(ctx context.Context, database, collection string, filter *vectordb.Filter) (uint64, error) {
	var cond wire.QueryCond
	if filter != nil {
		rendered, err := filter.Render()
		if err != nil {
			return 0, err
		}
		cond.Filter = rendered
	}

	env, err := Invoke[wire.CountResponse](ctx, c.dispatcher, Call{
		Method:     MethodCount,
		Backend:    BackendVDB,
		Database:   database,
		Collection: collection,
	}, wire.CountRequest{
		Database:        database,
		Collection:      collection,
		ReadConsistency: c.cfg.ReadConsistency,
		Query:           cond,
	})
	if err != nil {
		return 0, err
	}
	return env.Payload.Count, nil
}

// ──────────────────────────────────────────────────────────────
// Databases
// ──────────────────────────────────────────────────────────────

// CreateDatabase creates database.
func (c *Client) CreateDatabase(ctx context.Context, database string) error {
	return c.admin(ctx, MethodCreateDatabase, database, "", wire.DatabaseRequest{Database: database})
}

// DropDatabase drops database and every collection in it.
func (c *Client) DropDatabase(ctx context.Context, database string) error {
	return c.admin(ctx, MethodDropDatabase, database, "", wire.DatabaseRequest{Database: database})
}

// ListDatabases returns the names of all databases visible to the account.
func (c *Client) ListDatabases(ctx context.Context) ([]string, error) {
	env, err := Invoke[wire.ListDatabasesResponse](ctx, c.dispatcher, Call{
		Method:  MethodListDatabases,
		Backend: BackendVDB,
	}, struct{}{})
	if err != nil {
		return nil, err
	}
	return env.Payload.Databases, nil
}

// ──────────────────────────────────────────────────────────────
// Collections
// ──────────────────────────────────────────────────────────────

// CreateCollection creates a collection from its description. Database and
// Name select where it is created.
func (c *Client) CreateCollection(ctx context.Context, coll vectordb.Collection) error {
	if coll.Database == "" || coll.Name == "" {
		return fmt.Errorf("[TCVDB] create collection: database and name are required")
	}
	return c.admin(ctx, MethodCreateCollection, coll.Database, coll.Name, toCreateCollectionRequest(coll))
}

// DropCollection drops a collection.
func (c *Client) DropCollection(ctx context.Context, database, collection string) error {
	return c.admin(ctx, MethodDropCollection, database, collection, wire.CollectionRequest{Database: database, Collection: collection})
}

// TruncateCollection removes every document and keeps the schema.
func (c *Client) TruncateCollection(ctx context.Context, database, collection string) (*vectordb.WriteResult, error) {
	return c.adminWrite(ctx, MethodTruncateCollection, database, collection, wire.CollectionRequest{Database: database, Collection: collection})
}

// DescribeCollection returns the schema and size of a collection.
func (c *Client) DescribeCollection(ctx context.Context, database, collection string) (*vectordb.Collection, error) {
	env, err := Invoke[wire.DescribeCollectionResponse](ctx, c.dispatcher, Call{
		Method:     MethodDescribeCollection,
		Backend:    BackendVDB,
		Database:   database,
		Collection: collection,
	}, wire.CollectionRequest{Database: database, Collection: collection})
	if err != nil {
		return nil, err
	}
	if env.Payload.Collection == nil {
		return nil, fmt.Errorf("[TCVDB] describe collection %s.%s: empty response", database, collection)
	}
	coll := fromCollectionInfo(*env.Payload.Collection)
	return &coll, nil
}

// ListCollections returns every collection of database.
func (c *Client) ListCollections(ctx context.Context, database string) ([]vectordb.Collection, error) {
	env, err := Invoke[wire.ListCollectionsResponse](ctx, c.dispatcher, Call{
		Method:   MethodListCollections,
		Backend:  BackendVDB,
		Database: database,
	}, wire.DatabaseRequest{Database: database})
	if err != nil {
		return nil, err
	}
	out := make([]vectordb.Collection, len(env.Payload.Collections))
	for i, info := range env.Payload.Collections {
		out[i] = fromCollectionInfo(info)
	}
	return out, nil
}

// ──────────────────────────────────────────────────────────────
// Aliases and Indexes
// ──────────────────────────────────────────────────────────────

// SetAlias points alias at collection, moving it when it already names
// another collection of the database.
func (c *Client) SetAlias(ctx context.Context, database, collection, alias string) (*vectordb.WriteResult, error) {
	if database == "" || collection == "" || alias == "" {
		return nil, fmt.Errorf("[TCVDB] set alias: database, collection and alias are required")
	}
	return c.adminWrite(ctx, MethodSetAlias, database, collection, wire.AliasRequest{
		Database:   database,
		Collection: collection,
		Alias:      alias,
	})
}

// DeleteAlias removes alias from the database.
func (c *Client) DeleteAlias(ctx context.Context, database, alias string) (*vectordb.WriteResult, error) {
	if database == "" || alias == "" {
		return nil, fmt.Errorf("[TCVDB] delete alias: database and alias are required")
	}
	return c.adminWrite(ctx, MethodDeleteAlias, database, "", wire.AliasRequest{Database: database, Alias: alias})
}

// AddIndexOptions tunes AddIndex.
type AddIndexOptions struct {
	// BuildExistingData indexes documents already stored. Nil leaves the
	// choice to the server.
	BuildExistingData *bool
}

// AddIndex adds filter indexes to an existing collection.
func (c *Client) AddIndex(ctx context.Context, database, collection string, indexes []vectordb.Index, opts AddIndexOptions) error {
	if len(indexes) == 0 {
		return fmt.Errorf("[TCVDB] add index: at least one index is required")
	}
	req := wire.AddIndexRequest{
		Database:         database,
		Collection:       collection,
		Indexes:          make(map[string]wire.IndexColumn, len(indexes)),
		BuildExistedData: opts.BuildExistingData,
	}
	for _, idx := range indexes {
		if idx.FieldName == "" {
			return fmt.Errorf("[TCVDB] add index: field name is required")
		}
		req.Indexes[idx.FieldName] = toIndexColumn(idx)
	}
	return c.admin(ctx, MethodAddIndex, database, collection, req)
}

// RebuildIndexOptions tunes RebuildIndex.
type RebuildIndexOptions struct {
	// DropBeforeRebuild discards the current index first. The collection
	// cannot be searched until the rebuild finishes.
	DropBeforeRebuild bool

	// Throttle limits the CPU cores per node used for the rebuild; 0 leaves
	// the server default.
	Throttle int32
}

// RebuildIndex starts an asynchronous rebuild of the collection's vector
// index.
func (c *Client) RebuildIndex(ctx context.Context, database, collection string, opts RebuildIndexOptions) error {
	if opts.Throttle < 0 {
		return fmt.Errorf("[TCVDB] rebuild index: throttle must be >= 0")
	}
	return c.admin(ctx, MethodRebuildIndex, database, collection, wire.RebuildIndexRequest{
		Database:          database,
		Collection:        collection,
		DropBeforeRebuild: opts.DropBeforeRebuild,
		Throttle:          opts.Throttle,
	})
}

// ──────────────────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────────────────

// adminWrite sends a call answered with an affected count.
func (c *Client) adminWrite(ctx context.Context, method Method, database, collection string, req any) (*vectordb.WriteResult, error) {
	env, err := Invoke[wire.WriteResponse](ctx, c.dispatcher, Call{
		Method:     method,
		Backend:    BackendVDB,
		Database:   database,
		Collection: collection,
	}, req)
	if err != nil {
		return nil, err
	}
	return writeResult(env.Payload), nil
}

// admin sends a call whose response carries nothing beyond the status.
func (c *Client) admin(ctx context.Context, method Method, database, collection string, req any) error {
	_, err := Invoke[struct{}](ctx, c.dispatcher, Call{
		Method:     method,
		Backend:    BackendVDB,
		Database:   database,
		Collection: collection,
	}, req)
	if err != nil {
		return err
	}
	c.logInfo(ctx, "[TCVDB] "+string(method)+" succeeded", map[string]interface{}{
		"database":   database,
		"collection": collection,
	})
	return nil
}

func (c *Client) warn(ctx context.Context, method Method, database, collection string, warnings ...string) {
	for _, w := range warnings {
		if w == "" {
			continue
		}
		c.logWarn(ctx, "[TCVDB] server warning", map[string]interface{}{
			"method":     string(method),
			"database":   database,
			"collection": collection,
			"warning":    w,
		})
	}
}

// documentsBackend routes writes carrying text through the embedding backend.
func documentsBackend(docs []vectordb.Document) Backend {
	for _, d := range docs {
		if d.Text != "" {
			return BackendAI
		}
	}
	return BackendVDB
}

func writeResult(resp wire.WriteResponse) *vectordb.WriteResult {
	res := &vectordb.WriteResult{AffectedCount: resp.AffectedCount, Batches: 1}
	if resp.Warning != "" {
		res.Warnings = []string{resp.Warning}
	}
	if resp.EmbeddingExtraInfo != nil {
		res.TokensUsed = resp.EmbeddingExtraInfo.TokenUsed
	}
	return res
}
