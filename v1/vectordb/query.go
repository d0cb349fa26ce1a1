package vectordb

import (
	"fmt"
	"slices"
	"strings"
)

// SortDirection orders query results on one field.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// SortRule orders results by FieldName. The first rule in a list is primary.
type SortRule struct {
	FieldName string
	Direction SortDirection
}

// QueryParams describes a point lookup or a filtered scan.
type QueryParams struct {
	// DocumentIDs selects documents by primary key.
	DocumentIDs []string

	// IndexIDs selects documents by numeric primary-key index values, for
	// collections whose primary key is not a string.
	IndexIDs []uint64

	// Filter restricts results. Nil matches every document.
	Filter *Filter

	// Limit caps the number of results. Zero leaves the server default.
	Limit int

	// Offset skips the first Offset results.
	Offset int

	// OutputFields selects returned fields. Empty returns all fields.
	OutputFields []string

	RetrieveVector       bool
	RetrieveSparseVector bool

	// Sort orders results; the first rule is primary.
	Sort []SortRule
}

// QueryDescriptor is a validated query ready for marshalling.
// All slices are owned by the descriptor.
type QueryDescriptor struct {
	DocumentIDs          []string
	IndexIDs             []uint64
	Filter               string
	Limit                int
	Offset               int
	OutputFields         []string
	RetrieveVector       bool
	RetrieveSparseVector bool
	Sort                 []SortRule
}

// BuildQuery validates p and returns its descriptor.
//
// Limit and Offset must be non-negative. Output fields are deduplicated in
// first-seen order, sort rules keep caller order, and a nil filter means
// "match all". The caller's slices are copied, never modified.
func BuildQuery(p QueryParams) (QueryDescriptor, error) {
	if p.Limit < 0 {
		return QueryDescriptor{}, queryError("limit", "must be >= 0, got %d", p.Limit)
	}
	if p.Offset < 0 {
		return QueryDescriptor{}, queryError("offset", "must be >= 0, got %d", p.Offset)
	}

	sort, err := buildSort(p.Sort)
	if err != nil {
		return QueryDescriptor{}, err
	}

	filter, err := renderOptional(p.Filter)
	if err != nil {
		return QueryDescriptor{}, err
	}

	return QueryDescriptor{
		DocumentIDs:          slices.Clone(p.DocumentIDs),
		IndexIDs:             slices.Clone(p.IndexIDs),
		Filter:               filter,
		Limit:                p.Limit,
		Offset:               p.Offset,
		OutputFields:         dedupFields(p.OutputFields),
		RetrieveVector:       p.RetrieveVector,
		RetrieveSparseVector: p.RetrieveSparseVector,
		Sort:                 sort,
	}, nil
}

func buildSort(rules []SortRule) ([]SortRule, error) {
	if len(rules) == 0 {
		return nil, nil
	}
	out := make([]SortRule, len(rules))
	for i, r := range rules {
		if strings.TrimSpace(r.FieldName) == "" {
			return nil, queryError(fmt.Sprintf("sort[%d]", i), "field name is empty")
		}
		switch r.Direction {
		case "":
			r.Direction = SortAsc
		case SortAsc, SortDesc:
		default:
			return nil, queryError(fmt.Sprintf("sort[%d]", i), "unknown direction %q", r.Direction)
		}
		out[i] = r
	}
	return out, nil
}

// DeleteDescriptor is a validated delete request.
type DeleteDescriptor struct {
	DocumentIDs []string
	Filter      string
	Limit       int
}

// BuildDelete validates p. A delete must name documents by id or filter,
// so a zero DeleteParams never wipes a collection.
func BuildDelete(p DeleteParams) (DeleteDescriptor, error) {
	if len(p.DocumentIDs) == 0 && p.Filter == nil {
		return DeleteDescriptor{}, queryError("documentIds", "delete requires document ids or a filter")
	}
	if p.Limit < 0 {
		return DeleteDescriptor{}, queryError("limit", "must be >= 0, got %d", p.Limit)
	}
	filter, err := renderOptional(p.Filter)
	if err != nil {
		return DeleteDescriptor{}, err
	}
	return DeleteDescriptor{
		DocumentIDs: slices.Clone(p.DocumentIDs),
		Filter:      filter,
		Limit:       p.Limit,
	}, nil
}

// UpdateDescriptor is a validated update request.
type UpdateDescriptor struct {
	DocumentIDs []string
	Filter      string
	Update      Document
}

// BuildUpdate validates p. The selection rules match BuildDelete, and the
// update must carry at least one vector, text or field.
func BuildUpdate(p UpdateParams) (UpdateDescriptor, error) {
	if len(p.DocumentIDs) == 0 && p.Filter == nil {
		return UpdateDescriptor{}, queryError("documentIds", "update requires document ids or a filter")
	}
	u := p.Update
	if len(u.Vector) == 0 && u.Text == "" && len(u.SparseVector) == 0 && len(u.Fields) == 0 {
		return UpdateDescriptor{}, queryError("update", "nothing to update")
	}
	if len(u.Vector) > 0 && u.Text != "" {
		return UpdateDescriptor{}, queryError("update", "vector and text are mutually exclusive")
	}
	filter, err := renderOptional(p.Filter)
	if err != nil {
		return UpdateDescriptor{}, err
	}
	return UpdateDescriptor{
		DocumentIDs: slices.Clone(p.DocumentIDs),
		Filter:      filter,
		Update:      cloneDocument(u),
	}, nil
}
