package wire

import "reflect"

// ── Documents ────────────────────────────────────────────────────────────────

// Document is a stored item as it travels on the wire.
type Document struct {
	ID           string          `json:"id"`
	Vector       []float32       `json:"vector,omitempty"`
	DataExpr     string          `json:"data_expr,omitempty"`
	SparseVector []SparseVecItem `json:"sparse_vector,omitempty"`
	Score        float64         `json:"score,omitempty"`
	Fields       FieldMap        `json:"fields,omitempty"`

	Unknown Unknown `json:"-"`
}

func (d Document) MarshalJSON() ([]byte, error) {
	type plain Document
	encoded, err := Marshal(plain(d))
	if err != nil {
		return nil, err
	}
	return mergeUnknown(encoded, d.Unknown)
}

func (d *Document) UnmarshalJSON(data []byte) error {
	type plain Document
	var p plain
	if err := Unmarshal(data, &p); err != nil {
		return err
	}
	unknown, err := collectUnknown(data, reflect.TypeOf(p))
	if err != nil {
		return err
	}
	*d = Document(p)
	d.Unknown = unknown
	return nil
}

// SparseVecItem is one term/score pair.
type SparseVecItem struct {
	TermID int64   `json:"term_id"`
	Score  float32 `json:"score"`
}

// ── Queries ──────────────────────────────────────────────────────────────────

// SortRule orders query results.
type SortRule struct {
	FieldName string `json:"fieldName"`
	Direction string `json:"direction"`
}

// QueryCond selects documents for query, delete, update and count.
type QueryCond struct {
	DocumentIDs          []string   `json:"documentIds,omitempty"`
	IndexIDs             []uint64   `json:"indexIds,omitempty"`
	Filter               string     `json:"filter,omitempty"`
	RetrieveVector       bool       `json:"retrieveVector,omitempty"`
	RetrieveSparseVector bool       `json:"retrieveSparseVector,omitempty"`
	Limit                int64      `json:"limit,omitempty"`
	Offset               int64      `json:"offset,omitempty"`
	OutputFields         []string   `json:"outputFields,omitempty"`
	Sort                 []SortRule `json:"sort,omitempty"`
}

type QueryRequest struct {
	Database        string    `json:"database"`
	Collection      string    `json:"collection"`
	ReadConsistency string    `json:"readConsistency,omitempty"`
	Query           QueryCond `json:"query"`
}

type QueryResponse struct {
	Documents []Document `json:"documents,omitempty"`
	Count     uint64     `json:"count,omitempty"`
}

type CountRequest struct {
	Database        string    `json:"database"`
	Collection      string    `json:"collection"`
	ReadConsistency string    `json:"readConsistency,omitempty"`
	Query           QueryCond `json:"query"`
}

type CountResponse struct {
	Count uint64 `json:"count"`
}

// ── Searches ─────────────────────────────────────────────────────────────────

// SearchParams tunes a dense branch.
type SearchParams struct {
	EF     uint32  `json:"ef,omitempty"`
	NProbe uint32  `json:"nprobe,omitempty"`
	Radius float64 `json:"radius,omitempty"`
}

// VectorArray is one dense query vector.
type VectorArray struct {
	Vector []float32 `json:"vector"`
}

// AnnData is a dense branch. Data and DataExpr are mutually exclusive.
type AnnData struct {
	FieldName   string        `json:"fieldName"`
	DocumentIDs []string      `json:"documentIds,omitempty"`
	Data        []VectorArray `json:"data,omitempty"`
	DataExpr    []string      `json:"data_expr,omitempty"`
	Params      *SearchParams `json:"params,omitempty"`
	Limit       int64         `json:"limit,omitempty"`
	Filter      string        `json:"filter,omitempty"`
}

// SparseVectorArray is one sparse query vector.
type SparseVectorArray struct {
	SpVector []SparseVecItem `json:"sp_vector"`
}

// SparseData is a sparse branch.
type SparseData struct {
	FieldName       string              `json:"fieldName"`
	Data            []SparseVectorArray `json:"data"`
	Limit           int64               `json:"limit,omitempty"`
	TerminateAfter  uint32              `json:"terminateAfter,omitempty"`
	CutoffFrequency float64             `json:"cutoffFrequency,omitempty"`
}

// RerankParams configures fusion of several branches.
type RerankParams struct {
	Method  string             `json:"method"`
	Weights map[string]float64 `json:"weights,omitempty"`
	RRFK    int32              `json:"rrf_k,omitempty"`
}

type SearchCond struct {
	Ann                  []AnnData     `json:"ann,omitempty"`
	Sparse               []SparseData  `json:"sparse,omitempty"`
	RerankParams         *RerankParams `json:"rerank_params,omitempty"`
	Filter               string        `json:"filter,omitempty"`
	OutputFields         []string      `json:"outputfields,omitempty"`
	RetrieveVector       bool          `json:"retrieveVector,omitempty"`
	RetrieveSparseVector bool          `json:"retrieveSparseVector,omitempty"`
	Limit                int64         `json:"limit,omitempty"`
	Range                bool          `json:"range,omitempty"`
}

type SearchRequest struct {
	Database        string     `json:"database"`
	Collection      string     `json:"collection"`
	ReadConsistency string     `json:"readConsistency,omitempty"`
	Search          SearchCond `json:"search"`
}

// SearchResult holds the ranked documents of one query vector.
type SearchResult struct {
	Documents []Document `json:"documents"`
}

type SearchResponse struct {
	Warning string         `json:"warning,omitempty"`
	Results []SearchResult `json:"results,omitempty"`
}

// ── Writes ───────────────────────────────────────────────────────────────────

type UpsertRequest struct {
	Database   string     `json:"database"`
	Collection string     `json:"collection"`
	BuildIndex bool       `json:"buildIndex"`
	Documents  []Document `json:"documents"`
}

type DeleteRequest struct {
	Database   string    `json:"database"`
	Collection string    `json:"collection"`
	Query      QueryCond `json:"query"`
}

type UpdateRequest struct {
	Database   string    `json:"database"`
	Collection string    `json:"collection"`
	Query      QueryCond `json:"query"`
	Update     Document  `json:"update"`
}

// EmbeddingExtraInfo reports server-side embedding usage.
type EmbeddingExtraInfo struct {
	TokenUsed uint64 `json:"token_used"`
}

// WriteResponse is returned by upsert, update, delete and truncate.
type WriteResponse struct {
	AffectedCount      uint64              `json:"affectedCount"`
	Warning            string              `json:"warning,omitempty"`
	EmbeddingExtraInfo *EmbeddingExtraInfo `json:"embedding_extra_info,omitempty"`
}

// ── Databases and Collections ────────────────────────────────────────────────

type DatabaseRequest struct {
	Database string `json:"database"`
}

type ListDatabasesResponse struct {
	Databases []string `json:"databases"`
}

type CollectionRequest struct {
	Database   string `json:"database"`
	Collection string `json:"collection"`
}

// IndexParams tunes an HNSW index.
type IndexParams struct {
	M              uint32 `json:"M,omitempty"`
	EfConstruction uint32 `json:"efConstruction,omitempty"`
}

// IndexColumn describes one indexed field.
type IndexColumn struct {
	FieldName  string       `json:"fieldName"`
	FieldType  string       `json:"fieldType"`
	IndexType  string       `json:"indexType"`
	Dimension  uint32       `json:"dimension,omitempty"`
	MetricType string       `json:"metricType,omitempty"`
	Params     *IndexParams `json:"params,omitempty"`
}

type CreateCollectionRequest struct {
	Database    string                 `json:"database"`
	Collection  string                 `json:"collection"`
	Description string                 `json:"description,omitempty"`
	ShardNum    uint32                 `json:"shardNum"`
	ReplicaNum  uint32                 `json:"replicaNum"`
	Indexes     map[string]IndexColumn `json:"indexes"`
}

// AliasRequest sets an alias on a collection, or removes it when Collection
// is empty.
type AliasRequest struct {
	Database   string `json:"database"`
	Collection string `json:"collection,omitempty"`
	Alias      string `json:"alias"`
}

type AddIndexRequest struct {
	Database         string                 `json:"database"`
	Collection       string                 `json:"collection"`
	Indexes          map[string]IndexColumn `json:"indexes"`
	BuildExistedData *bool                  `json:"buildExistedData,omitempty"`
}

type RebuildIndexRequest struct {
	Database          string `json:"database"`
	Collection        string `json:"collection"`
	DropBeforeRebuild bool   `json:"dropBeforeRebuild"`
	Throttle          int32  `json:"throttle,omitempty"`
}

// CollectionInfo is the server's description of a collection.
type CollectionInfo struct {
	Database    string                 `json:"database"`
	Collection  string                 `json:"collection"`
	Description string                 `json:"description,omitempty"`
	ShardNum    uint32                 `json:"shardNum"`
	ReplicaNum  uint32                 `json:"replicaNum"`
	Size        uint64                 `json:"size"`
	CreateTime  string                 `json:"createTime,omitempty"`
	Indexes     map[string]IndexColumn `json:"indexes,omitempty"`
}

type DescribeCollectionResponse struct {
	Collection *CollectionInfo `json:"collection"`
}

type ListCollectionsResponse struct {
	Collections []CollectionInfo `json:"collections"`
}

// ── Document Sets ────────────────────────────────────────────────────────────

type UploadURLRequest struct {
	Database        string `json:"database"`
	CollectionView  string `json:"collectionView"`
	DocumentSetName string `json:"documentSetName"`
}

// UploadCredentials are temporary object-store credentials.
type UploadCredentials struct {
	TmpSecretID  string `json:"TmpSecretId"`
	TmpSecretKey string `json:"TmpSecretKey"`
	Token        string `json:"Token"`
	ExpiredTime  int64  `json:"ExpiredTime,omitempty"`
}

// UploadCondition limits what may be uploaded.
type UploadCondition struct {
	MaxSupportContentLength int64 `json:"maxSupportContentLength"`
}

type UploadURLResponse struct {
	CosEndpoint     string             `json:"cosEndpoint"`
	UploadPath      string             `json:"uploadPath"`
	DocumentSetID   string             `json:"documentSetId"`
	Credentials     *UploadCredentials `json:"credentials"`
	UploadCondition *UploadCondition   `json:"uploadCondition"`
}
