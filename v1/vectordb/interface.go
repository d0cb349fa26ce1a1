package vectordb

import "context"

// Service is the document-level API of a vector database client.
// Implementations build descriptors with BuildQuery, BuildSearch, BuildDelete
// and BuildUpdate, so validation errors surface before any network call.
//
// Example usage:
//
//	func NewSearchService(db vectordb.Service) *SearchService {
//	    return &SearchService{db: db}
//	}
//
//	// Works with any implementation, e.g. *tcvdb.Client.
type Service interface {
	// Upsert inserts or replaces documents. Large inputs are split into
	// sequential sub-requests; the result aggregates them.
	//
	// Example:
	//   res, err := db.Upsert(ctx, "db", "docs", []vectordb.Document{
	//       {ID: "0001", Vector: []float32{0.1, 0.2}},
	//   })
	Upsert(ctx context.Context, database, collection string, docs []Document, opts ...UpsertOption) (*WriteResult, error)

	// Query looks up documents by id or filter without similarity ranking.
	Query(ctx context.Context, database, collection string, params QueryParams) ([]Document, error)

	// Search runs a dense, sparse, or hybrid similarity search.
	// Returns one ranked list per query vector or text.
	//
	// Example:
	//   res, err := db.Search(ctx, "db", "docs", vectordb.SearchParams{
	//       Ann: []vectordb.AnnBranch{{Vectors: [][]float32{vec}, Limit: 10}},
	//       Filter: vectordb.NewFilter(vectordb.Equal("status", "published")),
	//   })
	//   if err != nil {
	//       return err
	//   }
	//   for _, doc := range res.Documents[0] {
	//       // use doc...
	//   }
	Search(ctx context.Context, database, collection string, params SearchParams) (*SearchResult, error)

	// Delete removes documents selected by id and/or filter.
	Delete(ctx context.Context, database, collection string, params DeleteParams) (*WriteResult, error)

	// Update writes new values into the selected documents.
	Update(ctx context.Context, database, collection string, params UpdateParams) (*WriteResult, error)

	// Count returns the number of documents matching filter (all when nil).
	Count(ctx context.Context, database, collection string, filter *Filter) (uint64, error)
}
