package vectordb

import (
	"fmt"
	"math"
	"slices"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// ── Field Values ─────────────────────────────────────────────────────────────

// FieldKind tags the variant held by a FieldValue.
type FieldKind int

const (
	FieldKindUnset FieldKind = iota
	FieldKindString
	FieldKindUint64
	FieldKindDouble
	FieldKindStringArray
	FieldKindJSON
)

func (k FieldKind) String() string {
	switch k {
	case FieldKindString:
		return "string"
	case FieldKindUint64:
		return "uint64"
	case FieldKindDouble:
		return "double"
	case FieldKindStringArray:
		return "string_array"
	case FieldKindJSON:
		return "json"
	default:
		return "unset"
	}
}

// FieldValue is a scalar, array, or JSON value stored on a document field.
// Exactly one variant is set. Constructors copy their input, so a FieldValue
// never aliases caller-owned slices or messages.
type FieldValue struct {
	kind FieldKind
	str  string
	u64  uint64
	dbl  float64
	arr  []string
	js   *structpb.Value
}

// StringValue returns a string field value.
func StringValue(s string) FieldValue {
	return FieldValue{kind: FieldKindString, str: s}
}

// Uint64Value returns an unsigned integer field value.
func Uint64Value(u uint64) FieldValue {
	return FieldValue{kind: FieldKindUint64, u64: u}
}

// DoubleValue returns a floating point field value.
func DoubleValue(f float64) FieldValue {
	return FieldValue{kind: FieldKindDouble, dbl: f}
}

// StringArrayValue returns a string-array field value.
func StringArrayValue(values []string) FieldValue {
	return FieldValue{kind: FieldKindStringArray, arr: slices.Clone(values)}
}

// JSONValue returns a JSON field value holding a copy of v.
// A nil v is stored as JSON null.
func JSONValue(v *structpb.Value) FieldValue {
	if v == nil {
		return FieldValue{kind: FieldKindJSON, js: structpb.NewNullValue()}
	}
	return FieldValue{kind: FieldKindJSON, js: proto.Clone(v).(*structpb.Value)}
}

// ValueOf converts a native Go value into a FieldValue.
//
//   - string                       → string
//   - unsigned and non-negative signed integers → uint64
//   - float32, float64             → double
//   - []string                     → string array
//   - bool, nil, maps, []any       → JSON
//
// Negative integers and non-finite floats are rejected since the server
// stores integers unsigned and JSON cannot carry NaN or Inf.
func ValueOf(v any) (FieldValue, error) {
	switch x := v.(type) {
	case FieldValue:
		return x, nil
	case string:
		return StringValue(x), nil
	case []string:
		return StringArrayValue(x), nil
	case uint:
		return Uint64Value(uint64(x)), nil
	case uint8:
		return Uint64Value(uint64(x)), nil
	case uint16:
		return Uint64Value(uint64(x)), nil
	case uint32:
		return Uint64Value(uint64(x)), nil
	case uint64:
		return Uint64Value(x), nil
	case int:
		return signedValue(int64(x))
	case int8:
		return signedValue(int64(x))
	case int16:
		return signedValue(int64(x))
	case int32:
		return signedValue(int64(x))
	case int64:
		return signedValue(x)
	case float32:
		return doubleValue(float64(x))
	case float64:
		return doubleValue(x)
	case *structpb.Value:
		return JSONValue(x), nil
	default:
		js, err := structpb.NewValue(v)
		if err != nil {
			return FieldValue{}, fmt.Errorf("vectordb: unsupported field value type %T: %w", v, err)
		}
		return FieldValue{kind: FieldKindJSON, js: js}, nil
	}
}

func signedValue(i int64) (FieldValue, error) {
	if i < 0 {
		return FieldValue{}, fmt.Errorf("vectordb: negative integer %d cannot be stored as uint64", i)
	}
	return Uint64Value(uint64(i)), nil
}

func doubleValue(f float64) (FieldValue, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return FieldValue{}, fmt.Errorf("vectordb: non-finite double %v", f)
	}
	return DoubleValue(f), nil
}

// Kind reports which variant is set.
func (v FieldValue) Kind() FieldKind { return v.kind }

// IsSet reports whether v holds a variant.
func (v FieldValue) IsSet() bool { return v.kind != FieldKindUnset }

func (v FieldValue) AsString() (string, bool) {
	return v.str, v.kind == FieldKindString
}

func (v FieldValue) AsUint64() (uint64, bool) {
	return v.u64, v.kind == FieldKindUint64
}

func (v FieldValue) AsDouble() (float64, bool) {
	return v.dbl, v.kind == FieldKindDouble
}

// AsStringArray returns a copy of the array variant.
func (v FieldValue) AsStringArray() ([]string, bool) {
	if v.kind != FieldKindStringArray {
		return nil, false
	}
	return slices.Clone(v.arr), true
}

// AsJSON returns a copy of the JSON variant.
func (v FieldValue) AsJSON() (*structpb.Value, bool) {
	if v.kind != FieldKindJSON {
		return nil, false
	}
	return proto.Clone(v.js).(*structpb.Value), true
}

// Native returns the value as a plain Go value: string, uint64, float64,
// []string, or the JSON decoding of the JSON variant.
func (v FieldValue) Native() any {
	switch v.kind {
	case FieldKindString:
		return v.str
	case FieldKindUint64:
		return v.u64
	case FieldKindDouble:
		return v.dbl
	case FieldKindStringArray:
		return slices.Clone(v.arr)
	case FieldKindJSON:
		return v.js.AsInterface()
	default:
		return nil
	}
}

// Equal reports whether v and o hold the same variant with the same value.
func (v FieldValue) Equal(o FieldValue) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case FieldKindString:
		return v.str == o.str
	case FieldKindUint64:
		return v.u64 == o.u64
	case FieldKindDouble:
		return v.dbl == o.dbl
	case FieldKindStringArray:
		return slices.Equal(v.arr, o.arr)
	case FieldKindJSON:
		return proto.Equal(v.js, o.js)
	default:
		return true
	}
}

func (v FieldValue) String() string {
	if v.kind == FieldKindUnset {
		return "<unset>"
	}
	return fmt.Sprintf("%s(%v)", v.kind, v.Native())
}

// ── Fields ───────────────────────────────────────────────────────────────────

// Field is one named value on a document.
type Field struct {
	Name  string
	Value FieldValue
}

// Fields is an ordered set of document fields.
// Order is the insertion order, or the key order of the received wire object.
type Fields []Field

// Get returns the value stored under name.
func (f Fields) Get(name string) (FieldValue, bool) {
	for _, field := range f {
		if field.Name == name {
			return field.Value, true
		}
	}
	return FieldValue{}, false
}

// Set replaces the value stored under name, or appends it.
func (f *Fields) Set(name string, value FieldValue) {
	for i := range *f {
		if (*f)[i].Name == name {
			(*f)[i].Value = value
			return
		}
	}
	*f = append(*f, Field{Name: name, Value: value})
}

// Names returns field names in order.
func (f Fields) Names() []string {
	names := make([]string, len(f))
	for i, field := range f {
		names[i] = field.Name
	}
	return names
}

// Map returns the fields as native Go values keyed by name.
func (f Fields) Map() map[string]any {
	m := make(map[string]any, len(f))
	for _, field := range f {
		m[field.Name] = field.Value.Native()
	}
	return m
}

// FieldsFromMap converts native values with ValueOf. Keys are taken in
// sorted order, since Go maps carry none.
func FieldsFromMap(m map[string]any) (Fields, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	fields := make(Fields, 0, len(m))
	for _, k := range keys {
		v, err := ValueOf(m[k])
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		fields = append(fields, Field{Name: k, Value: v})
	}
	return fields, nil
}

// ── Documents ────────────────────────────────────────────────────────────────

// SparseTerm is one term/score pair of a sparse vector.
type SparseTerm struct {
	TermID int64
	Score  float32
}

// Document is a stored item: an id, its vectors, and scalar fields.
type Document struct {
	// ID is the primary key.
	ID string

	// Vector is the dense embedding. Leave empty when Text is set.
	Vector []float32

	// Text is embedded server-side into Vector. Only valid on collections
	// with an embedding configuration.
	Text string

	// SparseVector is the term-weighted representation.
	SparseVector []SparseTerm

	// Score is populated on search results.
	Score float64

	// Fields holds the scalar, array and JSON fields.
	Fields Fields
}

// ── Results ──────────────────────────────────────────────────────────────────

// WriteResult aggregates the outcome of an upsert, update or delete.
type WriteResult struct {
	// AffectedCount is the number of documents the server reports as changed.
	AffectedCount uint64

	// Warnings holds server warnings in the order they were returned.
	Warnings []string

	// Batches is the number of sub-requests the write was split into.
	Batches int

	// TokensUsed is the embedding usage reported for documents carrying text.
	TokensUsed uint64
}

// SearchResult holds one ranked document list per query vector or text.
type SearchResult struct {
	Documents [][]Document
	Warning   string
}

// ── Write Parameters ─────────────────────────────────────────────────────────

// DeleteParams selects documents to delete by id, by filter, or both.
type DeleteParams struct {
	DocumentIDs []string
	Filter      *Filter
	Limit       int
}

// UpdateParams selects documents and the values to write into them.
type UpdateParams struct {
	DocumentIDs []string
	Filter      *Filter

	// Update carries the new values. Its ID is ignored.
	Update Document
}

// UpsertOptions tunes a single upsert call.
type UpsertOptions struct {
	// BuildIndex asks the server to index the documents immediately.
	BuildIndex bool
}

// UpsertOption mutates UpsertOptions.
type UpsertOption func(*UpsertOptions)

// DefaultUpsertOptions builds the index on every write.
func DefaultUpsertOptions() UpsertOptions {
	return UpsertOptions{BuildIndex: true}
}

// WithoutIndexBuild defers index building to the server's own schedule.
func WithoutIndexBuild() UpsertOption {
	return func(o *UpsertOptions) { o.BuildIndex = false }
}

// ── Collections ──────────────────────────────────────────────────────────────

// Index describes one indexed field of a collection.
type Index struct {
	FieldName string
	// FieldType is "string", "uint64", "array", "vector" or "sparseVector".
	FieldType string
	// IndexType is "primaryKey", "filter", "HNSW", "FLAT", "IVF_FLAT", ...
	IndexType string
	// Dimension and MetricType apply to vector indexes.
	Dimension  uint32
	MetricType string
	// M and EfConstruction tune HNSW indexes.
	M              uint32
	EfConstruction uint32
}

// Collection contains metadata about a collection.
type Collection struct {
	Database      string
	Name          string
	Description   string
	ShardNum      uint32
	ReplicaNum    uint32
	DocumentCount uint64
	Indexes       []Index
	CreateTime    string
}
