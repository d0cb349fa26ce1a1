package vectordb

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// DefaultRRFK is the reciprocal-rank-fusion constant used when a search
// fuses several branches and names no constant of its own.
const DefaultRRFK = 60

// Default field names of the dense and sparse vector indexes.
const (
	DefaultVectorField       = "vector"
	DefaultSparseVectorField = "sparse_vector"
)

// FusionMethod selects how results of several branches are merged.
type FusionMethod string

const (
	FusionWeighted FusionMethod = "weighted"
	FusionRRF      FusionMethod = "rrf"
)

// Fusion configures result merging for multi-branch searches.
type Fusion struct {
	Method FusionMethod

	// Weights maps a branch's field name to its score weight.
	// Required for weighted fusion.
	Weights map[string]float64

	// K is the rank-fusion constant. Zero selects the default.
	K int
}

// AnnParams tunes a dense-vector branch.
type AnnParams struct {
	// EF is the HNSW candidate list size.
	EF int
	// NProbe is the number of IVF cells probed.
	NProbe int
	// Radius turns the branch into a range search returning every match
	// within this distance instead of only the top results.
	Radius float64
}

// AnnBranch is one dense-vector query within a search.
// Exactly one of Vectors, Texts or DocumentIDs supplies the query.
type AnnBranch struct {
	// FieldName is the vector index searched. Defaults to "vector".
	FieldName string

	// Vectors holds one or more raw query vectors.
	Vectors [][]float32

	// Texts holds query text the server embeds before searching.
	Texts []string

	// DocumentIDs searches with the stored vectors of these documents.
	DocumentIDs []string

	Params *AnnParams
	Limit  int
	Filter *Filter

	// OutputFields must agree with every other branch that sets it.
	OutputFields []string
}

// SparseParams tunes a sparse branch.
type SparseParams struct {
	TerminateAfter  int
	CutoffFrequency float64
}

// SparseBranch is one term-weighted query within a search.
type SparseBranch struct {
	// FieldName is the sparse vector index searched. Defaults to "sparse_vector".
	FieldName string

	// Vectors holds one or more sparse query vectors.
	Vectors [][]SparseTerm

	Params *SparseParams
	Limit  int

	// OutputFields must agree with every other branch that sets it.
	OutputFields []string
}

// SearchParams describes a dense, sparse, or hybrid search.
type SearchParams struct {
	Ann    []AnnBranch
	Sparse []SparseBranch

	// Fusion merges branches. When nil and more than one branch is present,
	// reciprocal-rank fusion with the default constant is used.
	Fusion *Fusion

	// Filter applies to the whole request.
	Filter *Filter

	OutputFields         []string
	RetrieveVector       bool
	RetrieveSparseVector bool

	// Limit caps the fused result list. Zero leaves the server default.
	Limit int
}

// AnnDescriptor is a validated dense branch.
type AnnDescriptor struct {
	FieldName   string
	Vectors     [][]float32
	Texts       []string
	DocumentIDs []string
	Params      *AnnParams
	Limit       int
	Filter      string
}

// Embedded reports whether the server must embed this branch's query text.
func (d AnnDescriptor) Embedded() bool {
	return len(d.Texts) > 0
}

// SparseDescriptor is a validated sparse branch.
type SparseDescriptor struct {
	FieldName string
	Vectors   [][]SparseTerm
	Params    *SparseParams
	Limit     int
}

// SearchDescriptor is a validated search ready for marshalling.
type SearchDescriptor struct {
	Ann                  []AnnDescriptor
	Sparse               []SparseDescriptor
	Fusion               *Fusion
	Filter               string
	OutputFields         []string
	RetrieveVector       bool
	RetrieveSparseVector bool
	Limit                int

	// Range is set when any branch carries a radius.
	Range bool
}

// Hybrid reports whether the search needs the hybrid endpoint: more than
// one branch, or any sparse branch.
func (d SearchDescriptor) Hybrid() bool {
	return len(d.Ann)+len(d.Sparse) > 1 || len(d.Sparse) > 0
}

// UsesEmbedding reports whether any branch carries text for server-side embedding.
func (d SearchDescriptor) UsesEmbedding() bool {
	for _, b := range d.Ann {
		if b.Embedded() {
			return true
		}
	}
	return false
}

// BuildOption adjusts BuildSearch defaults.
type BuildOption func(*buildOptions)

type buildOptions struct {
	rrfK int
}

// WithDefaultRRFK replaces DefaultRRFK for searches that leave K unset.
func WithDefaultRRFK(k int) BuildOption {
	return func(o *buildOptions) {
		if k > 0 {
			o.rrfK = k
		}
	}
}

// BuildSearch validates p and returns its descriptor.
//
// It fails with *InvalidSearchError when there is no branch, when a dense
// branch carries both vectors and text (or no query at all), or when branch
// output-field lists disagree. Several branches without Fusion resolve to
// reciprocal-rank fusion with DefaultRRFK.
func BuildSearch(p SearchParams, opts ...BuildOption) (SearchDescriptor, error) {
	o := buildOptions{rrfK: DefaultRRFK}
	for _, opt := range opts {
		opt(&o)
	}

	if len(p.Ann)+len(p.Sparse) == 0 {
		return SearchDescriptor{}, searchError("", "at least one dense or sparse branch is required")
	}
	if p.Limit < 0 {
		return SearchDescriptor{}, searchError("", "limit must be >= 0, got %d", p.Limit)
	}

	d := SearchDescriptor{
		RetrieveVector:       p.RetrieveVector,
		RetrieveSparseVector: p.RetrieveSparseVector,
		Limit:                p.Limit,
	}

	outputFields, err := mergeOutputFields(p)
	if err != nil {
		return SearchDescriptor{}, err
	}
	d.OutputFields = outputFields

	for i, b := range p.Ann {
		ann, err := buildAnnBranch(fmt.Sprintf("ann[%d]", i), b)
		if err != nil {
			return SearchDescriptor{}, err
		}
		if ann.Params != nil && ann.Params.Radius != 0 {
			d.Range = true
		}
		d.Ann = append(d.Ann, ann)
	}

	for i, b := range p.Sparse {
		sparse, err := buildSparseBranch(fmt.Sprintf("sparse[%d]", i), b)
		if err != nil {
			return SearchDescriptor{}, err
		}
		d.Sparse = append(d.Sparse, sparse)
	}

	if d.Filter, err = renderOptional(p.Filter); err != nil {
		return SearchDescriptor{}, err
	}

	if d.Fusion, err = resolveFusion(p.Fusion, d, o.rrfK); err != nil {
		return SearchDescriptor{}, err
	}

	return d, nil
}

func buildAnnBranch(name string, b AnnBranch) (AnnDescriptor, error) {
	hasVectors := len(b.Vectors) > 0
	hasTexts := len(b.Texts) > 0
	hasIDs := len(b.DocumentIDs) > 0

	switch {
	case hasVectors && hasTexts:
		return AnnDescriptor{}, searchError(name, "raw vectors and embedding text are mutually exclusive")
	case (hasVectors || hasTexts) && hasIDs:
		return AnnDescriptor{}, searchError(name, "document ids cannot be combined with vectors or text")
	case !hasVectors && !hasTexts && !hasIDs:
		return AnnDescriptor{}, searchError(name, "one of vectors, text or document ids is required")
	}
	if b.Limit < 0 {
		return AnnDescriptor{}, searchError(name, "limit must be >= 0, got %d", b.Limit)
	}

	dim := -1
	vectors := make([][]float32, 0, len(b.Vectors))
	for i, v := range b.Vectors {
		if len(v) == 0 {
			return AnnDescriptor{}, searchError(name, "vector %d is empty", i)
		}
		if dim >= 0 && len(v) != dim {
			return AnnDescriptor{}, searchError(name, "vector %d has dimension %d, want %d", i, len(v), dim)
		}
		dim = len(v)
		vectors = append(vectors, slices.Clone(v))
	}
	for i, t := range b.Texts {
		if strings.TrimSpace(t) == "" {
			return AnnDescriptor{}, searchError(name, "text %d is empty", i)
		}
	}

	var params *AnnParams
	if b.Params != nil {
		if b.Params.EF < 0 || b.Params.NProbe < 0 || b.Params.Radius < 0 {
			return AnnDescriptor{}, searchError(name, "search params must be non-negative")
		}
		p := *b.Params
		params = &p
	}

	filter, err := renderOptional(b.Filter)
	if err != nil {
		return AnnDescriptor{}, err
	}

	d := AnnDescriptor{
		FieldName:   orDefault(b.FieldName, DefaultVectorField),
		Texts:       slices.Clone(b.Texts),
		DocumentIDs: slices.Clone(b.DocumentIDs),
		Params:      params,
		Limit:       b.Limit,
		Filter:      filter,
	}
	if hasVectors {
		d.Vectors = vectors
	}
	return d, nil
}

func buildSparseBranch(name string, b SparseBranch) (SparseDescriptor, error) {
	if len(b.Vectors) == 0 {
		return SparseDescriptor{}, searchError(name, "at least one sparse vector is required")
	}
	if b.Limit < 0 {
		return SparseDescriptor{}, searchError(name, "limit must be >= 0, got %d", b.Limit)
	}
	vectors := make([][]SparseTerm, len(b.Vectors))
	for i, v := range b.Vectors {
		if len(v) == 0 {
			return SparseDescriptor{}, searchError(name, "sparse vector %d is empty", i)
		}
		vectors[i] = slices.Clone(v)
	}
	var params *SparseParams
	if b.Params != nil {
		p := *b.Params
		params = &p
	}
	return SparseDescriptor{
		FieldName: orDefault(b.FieldName, DefaultSparseVectorField),
		Vectors:   vectors,
		Params:    params,
		Limit:     b.Limit,
	}, nil
}

// mergeOutputFields folds the request list and every branch list into the
// single list the wire format carries. Two non-empty branch lists must hold
// the same set of names.
func mergeOutputFields(p SearchParams) ([]string, error) {
	var (
		shared []string
		owner  string
	)
	check := func(name string, fields []string) error {
		if len(fields) == 0 {
			return nil
		}
		deduped := dedupFields(fields)
		if shared == nil {
			shared, owner = deduped, name
			return nil
		}
		if !sameFieldSet(shared, deduped) {
			return searchError(name, "output fields %v disagree with %v of %s; a request carries one output-field list", deduped, shared, owner)
		}
		return nil
	}
	for i, b := range p.Ann {
		if err := check(fmt.Sprintf("ann[%d]", i), b.OutputFields); err != nil {
			return nil, err
		}
	}
	for i, b := range p.Sparse {
		if err := check(fmt.Sprintf("sparse[%d]", i), b.OutputFields); err != nil {
			return nil, err
		}
	}
	return dedupFields(append(slices.Clone(p.OutputFields), shared...)), nil
}

func resolveFusion(f *Fusion, d SearchDescriptor, defaultK int) (*Fusion, error) {
	branches := len(d.Ann) + len(d.Sparse)
	if f == nil {
		if branches < 2 {
			return nil, nil
		}
		return &Fusion{Method: FusionRRF, K: defaultK}, nil
	}

	out := &Fusion{Method: f.Method, K: f.K, Weights: maps.Clone(f.Weights)}
	switch out.Method {
	case "", FusionRRF:
		out.Method = FusionRRF
		if out.K <= 0 {
			out.K = defaultK
		}
		out.Weights = nil
	case FusionWeighted:
		if len(out.Weights) == 0 {
			return nil, searchError("", "weighted fusion requires at least one weight")
		}
		known := make(map[string]bool, branches)
		for _, b := range d.Ann {
			known[b.FieldName] = true
		}
		for _, b := range d.Sparse {
			known[b.FieldName] = true
		}
		for _, field := range slices.Sorted(maps.Keys(out.Weights)) {
			if !known[field] {
				return nil, searchError("", "weight given for field %q which no branch searches", field)
			}
		}
		out.K = 0
	default:
		return nil, searchError("", "unknown fusion method %q", out.Method)
	}
	return out, nil
}
