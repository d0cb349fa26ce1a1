package vectordb

import (
	"slices"
	"strings"
)

// dedupFields drops empty and repeated names, keeping first-seen order.
// It returns nil for an empty result so "all fields" stays distinguishable
// from an explicit list.
func dedupFields(fields []string) []string {
	if len(fields) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// sameFieldSet compares two deduplicated lists ignoring order.
func sameFieldSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	sa, sb := slices.Clone(a), slices.Clone(b)
	slices.Sort(sa)
	slices.Sort(sb)
	return slices.Equal(sa, sb)
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

// cloneDocument deep-copies d so descriptors never alias caller memory.
// FieldValue is immutable, so copying the Fields slice is enough.
func cloneDocument(d Document) Document {
	d.Vector = slices.Clone(d.Vector)
	d.SparseVector = slices.Clone(d.SparseVector)
	d.Fields = slices.Clone(d.Fields)
	return d
}

// CloneDocuments deep-copies a document list.
func CloneDocuments(docs []Document) []Document {
	out := make([]Document, len(docs))
	for i, d := range docs {
		out[i] = cloneDocument(d)
	}
	return out
}
