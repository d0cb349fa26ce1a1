package tcvdb

import (
	"encoding/json"
	"fmt"
	"slices"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/Aleph-Alpha/vdbclient/v1/tcvdb/wire"
	"github.com/Aleph-Alpha/vdbclient/v1/vectordb"
)

// ──────────────────────────────────────────────────────────────
// Field values
// ──────────────────────────────────────────────────────────────

// toWireValue converts a field value into its wire oneof.
// Each variant has exactly one conversion.
func toWireValue(v vectordb.FieldValue) (wire.FieldValue, error) {
	switch v.Kind() {
	case vectordb.FieldKindString:
		s, _ := v.AsString()
		return wire.FieldValue{Str: &s}, nil
	case vectordb.FieldKindUint64:
		u, _ := v.AsUint64()
		return wire.FieldValue{U64: &u}, nil
	case vectordb.FieldKindDouble:
		f, _ := v.AsDouble()
		return wire.FieldValue{Double: &f}, nil
	case vectordb.FieldKindStringArray:
		arr, _ := v.AsStringArray()
		if arr == nil {
			arr = []string{}
		}
		return wire.FieldValue{StrArr: &wire.StringArray{StrArr: arr}}, nil
	case vectordb.FieldKindJSON:
		js, _ := v.AsJSON()
		raw, err := protojson.Marshal(js)
		if err != nil {
			return wire.FieldValue{}, fmt.Errorf("encode JSON value: %w", err)
		}
		return wire.FieldValue{JSON: json.RawMessage(raw)}, nil
	default:
		return wire.FieldValue{}, fmt.Errorf("field value has no variant set")
	}
}

// fromWireValue converts a wire oneof back into a native field value.
func fromWireValue(w wire.FieldValue) (vectordb.FieldValue, error) {
	switch {
	case w.Str != nil:
		return vectordb.StringValue(*w.Str), nil
	case w.U64 != nil:
		return vectordb.Uint64Value(*w.U64), nil
	case w.Double != nil:
		return vectordb.DoubleValue(*w.Double), nil
	case w.StrArr != nil:
		return vectordb.StringArrayValue(w.StrArr.StrArr), nil
	case len(w.JSON) > 0:
		js := &structpb.Value{}
		if err := protojson.Unmarshal(w.JSON, js); err != nil {
			return vectordb.FieldValue{}, fmt.Errorf("decode JSON value: %w", err)
		}
		return vectordb.JSONValue(js), nil
	default:
		return vectordb.FieldValue{}, fmt.Errorf("wire field value has no variant set")
	}
}

// ──────────────────────────────────────────────────────────────
// Documents
// ──────────────────────────────────────────────────────────────

func toWireDocument(d vectordb.Document) (wire.Document, error) {
	w := wire.Document{
		ID:       d.ID,
		Vector:   slices.Clone(d.Vector),
		DataExpr: d.Text,
	}
	if len(d.SparseVector) > 0 {
		w.SparseVector = make([]wire.SparseVecItem, len(d.SparseVector))
		for i, t := range d.SparseVector {
			w.SparseVector[i] = wire.SparseVecItem{TermID: t.TermID, Score: t.Score}
		}
	}
	if len(d.Fields) > 0 {
		w.Fields = make(wire.FieldMap, 0, len(d.Fields))
		for _, f := range d.Fields {
			v, err := toWireValue(f.Value)
			if err != nil {
				return wire.Document{}, fmt.Errorf("document %q field %q: %w", d.ID, f.Name, err)
			}
			w.Fields = append(w.Fields, wire.NamedField{Name: f.Name, Value: v})
		}
	}
	return w, nil
}

func toWireDocuments(docs []vectordb.Document) ([]wire.Document, error) {
	out := make([]wire.Document, len(docs))
	for i, d := range docs {
		w, err := toWireDocument(d)
		if err != nil {
			return nil, err
		}
		out[i] = w
	}
	return out, nil
}

// fromWireDocument decodes a returned document. Field order follows the
// order of the received object.
func fromWireDocument(w wire.Document) (vectordb.Document, error) {
	d := vectordb.Document{
		ID:     w.ID,
		Vector: slices.Clone(w.Vector),
		Text:   w.DataExpr,
		Score:  w.Score,
	}
	if len(w.SparseVector) > 0 {
		d.SparseVector = make([]vectordb.SparseTerm, len(w.SparseVector))
		for i, t := range w.SparseVector {
			d.SparseVector[i] = vectordb.SparseTerm{TermID: t.TermID, Score: t.Score}
		}
	}
	if len(w.Fields) > 0 {
		d.Fields = make(vectordb.Fields, 0, len(w.Fields))
		for _, f := range w.Fields {
			v, err := fromWireValue(f.Value)
			if err != nil {
				return vectordb.Document{}, fmt.Errorf("document %q field %q: %w", w.ID, f.Name, err)
			}
			d.Fields = append(d.Fields, vectordb.Field{Name: f.Name, Value: v})
		}
	}
	return d, nil
}

func fromWireDocuments(ws []wire.Document) ([]vectordb.Document, error) {
	out := make([]vectordb.Document, len(ws))
	for i, w := range ws {
		d, err := fromWireDocument(w)
		if err != nil {
			return nil, err
		}
		out[i] = d
	}
	return out, nil
}

// ──────────────────────────────────────────────────────────────
// Queries
// ──────────────────────────────────────────────────────────────

func toQueryCond(d vectordb.QueryDescriptor) wire.QueryCond {
	q := wire.QueryCond{
		DocumentIDs:          slices.Clone(d.DocumentIDs),
		IndexIDs:             slices.Clone(d.IndexIDs),
		Filter:               d.Filter,
		RetrieveVector:       d.RetrieveVector,
		RetrieveSparseVector: d.RetrieveSparseVector,
		Limit:                int64(d.Limit),
		Offset:               int64(d.Offset),
		OutputFields:         slices.Clone(d.OutputFields),
	}
	for _, s := range d.Sort {
		q.Sort = append(q.Sort, wire.SortRule{FieldName: s.FieldName, Direction: string(s.Direction)})
	}
	return q
}

func deleteCond(d vectordb.DeleteDescriptor) wire.QueryCond {
	return wire.QueryCond{
		DocumentIDs: slices.Clone(d.DocumentIDs),
		Filter:      d.Filter,
		Limit:       int64(d.Limit),
	}
}

// ──────────────────────────────────────────────────────────────
// Searches
// ──────────────────────────────────────────────────────────────

func toSearchCond(d vectordb.SearchDescriptor) wire.SearchCond {
	s := wire.SearchCond{
		Filter:               d.Filter,
		OutputFields:         slices.Clone(d.OutputFields),
		RetrieveVector:       d.RetrieveVector,
		RetrieveSparseVector: d.RetrieveSparseVector,
		Limit:                int64(d.Limit),
		Range:                d.Range,
	}

	for _, b := range d.Ann {
		ann := wire.AnnData{
			FieldName:   b.FieldName,
			DocumentIDs: slices.Clone(b.DocumentIDs),
			DataExpr:    slices.Clone(b.Texts),
			Limit:       int64(b.Limit),
			Filter:      b.Filter,
		}
		for _, v := range b.Vectors {
			ann.Data = append(ann.Data, wire.VectorArray{Vector: slices.Clone(v)})
		}
		if b.Params != nil {
			ann.Params = &wire.SearchParams{
				EF:     uint32(b.Params.EF),
				NProbe: uint32(b.Params.NProbe),
				Radius: b.Params.Radius,
			}
		}
		s.Ann = append(s.Ann, ann)
	}

	for _, b := range d.Sparse {
		sp := wire.SparseData{
			FieldName: b.FieldName,
			Limit:     int64(b.Limit),
		}
		for _, vec := range b.Vectors {
			arr := wire.SparseVectorArray{SpVector: make([]wire.SparseVecItem, len(vec))}
			for i, t := range vec {
				arr.SpVector[i] = wire.SparseVecItem{TermID: t.TermID, Score: t.Score}
			}
			sp.Data = append(sp.Data, arr)
		}
		if b.Params != nil {
			sp.TerminateAfter = uint32(b.Params.TerminateAfter)
			sp.CutoffFrequency = b.Params.CutoffFrequency
		}
		s.Sparse = append(s.Sparse, sp)
	}

	if f := d.Fusion; f != nil {
		rp := &wire.RerankParams{Method: string(f.Method)}
		switch f.Method {
		case vectordb.FusionWeighted:
			rp.Weights = make(map[string]float64, len(f.Weights))
			for k, w := range f.Weights {
				rp.Weights[k] = w
			}
		case vectordb.FusionRRF:
			rp.RRFK = int32(f.K)
		}
		s.RerankParams = rp
	}
	return s
}

// searchMethod picks the plain search endpoint for a single dense branch
// and the hybrid endpoint otherwise.
func searchMethod(d vectordb.SearchDescriptor) Method {
	if d.Hybrid() {
		return MethodHybridSearch
	}
	return MethodSearch
}

// fromSearchResponse keeps one result list per query vector, in request
// order, including empty ones.
func fromSearchResponse(resp wire.SearchResponse) (*vectordb.SearchResult, error) {
	out := &vectordb.SearchResult{
		Documents: make([][]vectordb.Document, len(resp.Results)),
		Warning:   resp.Warning,
	}
	for i, r := range resp.Results {
		docs, err := fromWireDocuments(r.Documents)
		if err != nil {
			return nil, fmt.Errorf("result %d: %w", i, err)
		}
		out.Documents[i] = docs
	}
	return out, nil
}

// ──────────────────────────────────────────────────────────────
// Collections
// ──────────────────────────────────────────────────────────────

func toCreateCollectionRequest(c vectordb.Collection) wire.CreateCollectionRequest {
	req := wire.CreateCollectionRequest{
		Database:    c.Database,
		Collection:  c.Name,
		Description: c.Description,
		ShardNum:    c.ShardNum,
		ReplicaNum:  c.ReplicaNum,
		Indexes:     make(map[string]wire.IndexColumn, len(c.Indexes)),
	}
	for _, idx := range c.Indexes {
		req.Indexes[idx.FieldName] = toIndexColumn(idx)
	}
	return req
}

func toIndexColumn(idx vectordb.Index) wire.IndexColumn {
	col := wire.IndexColumn{
		FieldName:  idx.FieldName,
		FieldType:  idx.FieldType,
		IndexType:  idx.IndexType,
		Dimension:  idx.Dimension,
		MetricType: idx.MetricType,
	}
	if idx.M > 0 || idx.EfConstruction > 0 {
		col.Params = &wire.IndexParams{M: idx.M, EfConstruction: idx.EfConstruction}
	}
	return col
}

// fromCollectionInfo returns indexes sorted by field name, since the wire
// carries them as an object.
func fromCollectionInfo(info wire.CollectionInfo) vectordb.Collection {
	c := vectordb.Collection{
		Database:      info.Database,
		Name:          info.Collection,
		Description:   info.Description,
		ShardNum:      info.ShardNum,
		ReplicaNum:    info.ReplicaNum,
		DocumentCount: info.Size,
		CreateTime:    info.CreateTime,
	}
	names := make([]string, 0, len(info.Indexes))
	for name := range info.Indexes {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		col := info.Indexes[name]
		idx := vectordb.Index{
			FieldName:  col.FieldName,
			FieldType:  col.FieldType,
			IndexType:  col.IndexType,
			Dimension:  col.Dimension,
			MetricType: col.MetricType,
		}
		if idx.FieldName == "" {
			idx.FieldName = name
		}
		if col.Params != nil {
			idx.M = col.Params.M
			idx.EfConstruction = col.Params.EfConstruction
		}
		c.Indexes = append(c.Indexes, idx)
	}
	return c
}
