// Package vectordb provides the transport-free half of the vector database
// client: the document model, the filter expression compiler, and the
// builders that validate query and search parameters into descriptors.
//
// # Overview
//
// Everything in this package is pure. Building a descriptor never touches the
// network, so every validation error ([InvalidFilterError],
// [InvalidQueryError], [InvalidSearchError]) is raised before a request is
// sent. The tcvdb package marshals descriptors to the wire and dispatches them.
//
// # Architecture
//
//	┌─────────────────────────────────────────────────────────────┐
//	│                    Application Layer                        │
//	│        (uses vectordb.Service and vectordb types)           │
//	└──────────────────────────┬──────────────────────────────────┘
//	                           │
//	                           ▼
//	┌─────────────────────────────────────────────────────────────┐
//	│   vectordb: Expr → Compile → filter text                    │
//	│             QueryParams  → BuildQuery  → QueryDescriptor    │
//	│             SearchParams → BuildSearch → SearchDescriptor   │
//	└──────────────────────────┬──────────────────────────────────┘
//	                           │
//	                           ▼
//	┌─────────────────────────────────────────────────────────────┐
//	│   tcvdb: converter → wire bytes → Dispatcher → Transport    │
//	└─────────────────────────────────────────────────────────────┘
//
// # Filters
//
// Filters are trees of immutable nodes:
//
//	expr := vectordb.And(
//	    vectordb.Equal("a", 1),
//	    vectordb.Or(vectordb.Equal("b", 2), vectordb.Equal("c", 3)),
//	)
//	text, err := vectordb.Compile(expr)
//	// (a = 1) AND ((b = 2) OR (c = 3))
//
// Every operand of a combinator is parenthesized, so the rendered text has the
// tree's shape whatever precedence the server gives AND and OR.
//
//	| Constructor     | Renders                          |
//	|-----------------|----------------------------------|
//	| Equal           | field = value                    |
//	| NotEqual        | field != value                   |
//	| GreaterThan ... | field > value, >=, <, <=         |
//	| In / NotIn      | field IN (v1,v2)                 |
//	| Include ...     | field INCLUDE (v1), EXCLUDE, ALL |
//	| Range           | field BETWEEN lo AND hi          |
//	| And / Or        | (x) AND (y), (x) OR (y)          |
//	| AndNot / OrNot  | (x) AND NOT (y)                  |
//	| Not             | NOT (x)                          |
//
// # Searches
//
// A search has dense ("ANN") and sparse branches. A branch queries with raw
// vectors or with text the server embeds, never both. Several branches are
// fused; without an explicit [Fusion], reciprocal-rank fusion with
// [DefaultRRFK] applies.
//
//	desc, err := vectordb.BuildSearch(vectordb.SearchParams{
//	    Ann:    []vectordb.AnnBranch{{Vectors: [][]float32{vec}}},
//	    Sparse: []vectordb.SparseBranch{{Vectors: [][]vectordb.SparseTerm{terms}}},
//	    Limit:  10,
//	})
//	// desc.Fusion == &Fusion{Method: FusionRRF, K: 60}
//
// # Field Values
//
// [FieldValue] is a closed tagged union over string, uint64, double, string
// array and JSON. [Fields] keeps field order.
//
// # Package Layout
//
//	vectordb/
//	├── interface.go      # Service interface
//	├── types.go          # Document, FieldValue, Fields, results, write params
//	├── filters.go        # Expr nodes and constructors
//	├── expression.go     # Compile and Filter
//	├── query.go          # BuildQuery, BuildDelete, BuildUpdate
//	├── search.go         # BuildSearch and fusion defaults
//	├── errors.go         # validation errors
//	└── utils.go          # small helpers
package vectordb
