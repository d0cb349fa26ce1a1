package vectordb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSearch_SingleBranchHasNoFusion(t *testing.T) {
	d, err := BuildSearch(SearchParams{
		Ann: []AnnBranch{{Vectors: [][]float32{{0.1, 0.2}}, Limit: 3}},
	})
	require.NoError(t, err)
	require.Len(t, d.Ann, 1)
	assert.Equal(t, DefaultVectorField, d.Ann[0].FieldName)
	assert.Nil(t, d.Fusion)
	assert.False(t, d.Hybrid())
	assert.False(t, d.UsesEmbedding())
	assert.False(t, d.Range)
}

func TestBuildSearch_DefaultsToRRF(t *testing.T) {
	tests := []struct {
		name   string
		params SearchParams
	}{
		{
			name: "dense and sparse",
			params: SearchParams{
				Ann:    []AnnBranch{{Vectors: [][]float32{{1, 0}}}},
				Sparse: []SparseBranch{{Vectors: [][]SparseTerm{{{TermID: 7, Score: 0.4}}}}},
			},
		},
		{
			name: "two dense",
			params: SearchParams{
				Ann: []AnnBranch{
					{FieldName: "title_vec", Vectors: [][]float32{{1, 0}}},
					{FieldName: "body_vec", Texts: []string{"hello"}},
				},
			},
		},
		{
			name: "rrf without constant",
			params: SearchParams{
				Ann:    []AnnBranch{{Vectors: [][]float32{{1}}}},
				Sparse: []SparseBranch{{Vectors: [][]SparseTerm{{{TermID: 1, Score: 1}}}}},
				Fusion: &Fusion{Method: FusionRRF},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := BuildSearch(tt.params)
			require.NoError(t, err)
			require.NotNil(t, d.Fusion)
			assert.Equal(t, FusionRRF, d.Fusion.Method)
			assert.Equal(t, DefaultRRFK, d.Fusion.K)
			assert.True(t, d.Hybrid())
		})
	}
}

func TestBuildSearch_ConfiguredDefaultRRFK(t *testing.T) {
	d, err := BuildSearch(SearchParams{
		Ann:    []AnnBranch{{Vectors: [][]float32{{1}}}},
		Sparse: []SparseBranch{{Vectors: [][]SparseTerm{{{TermID: 1, Score: 1}}}}},
	}, WithDefaultRRFK(20))
	require.NoError(t, err)
	assert.Equal(t, 20, d.Fusion.K)

	d, err = BuildSearch(SearchParams{
		Ann:    []AnnBranch{{Vectors: [][]float32{{1}}}},
		Sparse: []SparseBranch{{Vectors: [][]SparseTerm{{{TermID: 1, Score: 1}}}}},
		Fusion: &Fusion{Method: FusionRRF, K: 5},
	}, WithDefaultRRFK(20))
	require.NoError(t, err)
	assert.Equal(t, 5, d.Fusion.K, "explicit constant wins")
}

func TestBuildSearch_WeightedFusion(t *testing.T) {
	weights := map[string]float64{"vector": 0.7, "sparse_vector": 0.3}
	d, err := BuildSearch(SearchParams{
		Ann:    []AnnBranch{{Vectors: [][]float32{{1}}}},
		Sparse: []SparseBranch{{Vectors: [][]SparseTerm{{{TermID: 1, Score: 1}}}}},
		Fusion: &Fusion{Method: FusionWeighted, Weights: weights},
	})
	require.NoError(t, err)
	assert.Equal(t, FusionWeighted, d.Fusion.Method)
	assert.Equal(t, weights, d.Fusion.Weights)
	assert.Zero(t, d.Fusion.K)

	weights["vector"] = 1
	assert.Equal(t, 0.7, d.Fusion.Weights["vector"], "weights are copied")

	_, err = BuildSearch(SearchParams{
		Ann:    []AnnBranch{{Vectors: [][]float32{{1}}}},
		Fusion: &Fusion{Method: FusionWeighted, Weights: map[string]float64{"other": 1}},
	})
	assert.ErrorIs(t, err, ErrInvalidSearch)
}

func TestBuildSearch_EmbeddingTextBranch(t *testing.T) {
	d, err := BuildSearch(SearchParams{
		Ann: []AnnBranch{{Texts: []string{"what is rrf"}}},
	})
	require.NoError(t, err)
	assert.True(t, d.UsesEmbedding())
	assert.Nil(t, d.Ann[0].Vectors)
	assert.Equal(t, []string{"what is rrf"}, d.Ann[0].Texts)
}

func TestBuildSearch_RangeSearchIsTagged(t *testing.T) {
	d, err := BuildSearch(SearchParams{
		Ann: []AnnBranch{{
			Vectors: [][]float32{{1, 2}},
			Params:  &AnnParams{EF: 200, Radius: 0.8},
		}},
	})
	require.NoError(t, err)
	assert.True(t, d.Range)
	assert.Equal(t, 200, d.Ann[0].Params.EF)
	assert.Equal(t, 0.8, d.Ann[0].Params.Radius)
}

func TestBuildSearch_OutputFields(t *testing.T) {
	d, err := BuildSearch(SearchParams{
		Ann: []AnnBranch{
			{Vectors: [][]float32{{1}}, OutputFields: []string{"title", "page"}},
			{FieldName: "v2", Vectors: [][]float32{{1}}, OutputFields: []string{"page", "title", "page"}},
		},
		Sparse:       []SparseBranch{{Vectors: [][]SparseTerm{{{TermID: 1, Score: 1}}}}},
		OutputFields: []string{"author"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"author", "title", "page"}, d.OutputFields)

	_, err = BuildSearch(SearchParams{
		Ann: []AnnBranch{
			{Vectors: [][]float32{{1}}, OutputFields: []string{"title"}},
			{FieldName: "v2", Vectors: [][]float32{{1}}, OutputFields: []string{"page"}},
		},
	})
	var sErr *InvalidSearchError
	require.ErrorAs(t, err, &sErr)
	assert.Equal(t, "ann[1]", sErr.Branch)
}

func TestBuildSearch_Filters(t *testing.T) {
	d, err := BuildSearch(SearchParams{
		Ann: []AnnBranch{{
			Vectors: [][]float32{{1}},
			Filter:  NewFilter(Equal("lang", "de")),
		}},
		Filter: NewFilter(And(Equal("a", 1), Or(Equal("b", 2), Equal("c", 3)))),
	})
	require.NoError(t, err)
	assert.Equal(t, `lang = "de"`, d.Ann[0].Filter)
	assert.Equal(t, "(a = 1) AND ((b = 2) OR (c = 3))", d.Filter)

	_, err = BuildSearch(SearchParams{
		Ann: []AnnBranch{{Vectors: [][]float32{{1}}, Filter: NewFilter(In("x"))}},
	})
	assert.ErrorIs(t, err, ErrInvalidFilter)
}

func TestBuildSearch_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		params SearchParams
		branch string
	}{
		{"no branches", SearchParams{}, ""},
		{"vectors and text", SearchParams{Ann: []AnnBranch{{Vectors: [][]float32{{1}}, Texts: []string{"x"}}}}, "ann[0]"},
		{"empty branch", SearchParams{Ann: []AnnBranch{{FieldName: "v"}}}, "ann[0]"},
		{"ids and vectors", SearchParams{Ann: []AnnBranch{{Vectors: [][]float32{{1}}, DocumentIDs: []string{"a"}}}}, "ann[0]"},
		{"empty vector", SearchParams{Ann: []AnnBranch{{Vectors: [][]float32{{}}}}}, "ann[0]"},
		{"dimension mismatch", SearchParams{Ann: []AnnBranch{{Vectors: [][]float32{{1, 2}, {1}}}}}, "ann[0]"},
		{"blank text", SearchParams{Ann: []AnnBranch{{Texts: []string{" "}}}}, "ann[0]"},
		{"negative radius", SearchParams{Ann: []AnnBranch{{Vectors: [][]float32{{1}}, Params: &AnnParams{Radius: -1}}}}, "ann[0]"},
		{"negative branch limit", SearchParams{Ann: []AnnBranch{{Vectors: [][]float32{{1}}, Limit: -2}}}, "ann[0]"},
		{"empty sparse", SearchParams{Sparse: []SparseBranch{{}}}, "sparse[0]"},
		{"empty sparse vector", SearchParams{Sparse: []SparseBranch{{Vectors: [][]SparseTerm{{}}}}}, "sparse[0]"},
		{"negative limit", SearchParams{Ann: []AnnBranch{{Vectors: [][]float32{{1}}}}, Limit: -1}, ""},
		{"unknown fusion", SearchParams{Ann: []AnnBranch{{Vectors: [][]float32{{1}}}}, Fusion: &Fusion{Method: "max"}}, ""},
		{"weighted without weights", SearchParams{Ann: []AnnBranch{{Vectors: [][]float32{{1}}}}, Fusion: &Fusion{Method: FusionWeighted}}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildSearch(tt.params)
			var sErr *InvalidSearchError
			require.ErrorAs(t, err, &sErr)
			assert.Equal(t, tt.branch, sErr.Branch)
			assert.ErrorIs(t, err, ErrInvalidSearch)
		})
	}
}

func TestBuildSearch_CopiesVectors(t *testing.T) {
	vec := []float32{1, 2}
	terms := []SparseTerm{{TermID: 1, Score: 0.5}}
	d, err := BuildSearch(SearchParams{
		Ann:    []AnnBranch{{Vectors: [][]float32{vec}}},
		Sparse: []SparseBranch{{Vectors: [][]SparseTerm{terms}}},
	})
	require.NoError(t, err)

	vec[0] = 9
	terms[0].Score = 9
	assert.Equal(t, float32(1), d.Ann[0].Vectors[0][0])
	assert.Equal(t, float32(0.5), d.Sparse[0].Vectors[0][0].Score)
}
