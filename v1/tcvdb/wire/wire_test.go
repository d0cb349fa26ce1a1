package wire

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestFieldValue_Variants(t *testing.T) {
	tests := []struct {
		name string
		in   FieldValue
		want string
	}{
		{"string", FieldValue{Str: ptr("Jane")}, `{"val_str":"Jane"}`},
		{"uint64", FieldValue{U64: ptr(uint64(18446744073709551615))}, `{"val_u64":18446744073709551615}`},
		{"double", FieldValue{Double: ptr(0.25)}, `{"val_double":0.25}`},
		{"string array", FieldValue{StrArr: &StringArray{StrArr: []string{"a", "b"}}}, `{"val_str_arr":{"str_arr":["a","b"]}}`},
		{"json", FieldValue{JSON: json.RawMessage(`{"k":[1,"x"]}`)}, `{"val_json":{"k":[1,"x"]}}`},
		{"json null", FieldValue{JSON: json.RawMessage(`null`)}, `{"val_json":null}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Marshal(tt.in)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(got))

			var back FieldValue
			require.NoError(t, Unmarshal(got, &back))
			assert.Equal(t, 1, back.variants())
			again, err := Marshal(back)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(again))
		})
	}
}

func TestFieldValue_RejectsWrongVariantCount(t *testing.T) {
	_, err := Marshal(FieldValue{})
	assert.ErrorIs(t, err, errVariantCount)

	_, err = Marshal(FieldValue{Str: ptr("a"), U64: ptr(uint64(1))})
	assert.ErrorIs(t, err, errVariantCount)

	var v FieldValue
	assert.Error(t, json.Unmarshal([]byte(`{}`), &v))
	assert.Error(t, json.Unmarshal([]byte(`{"val_str":"a","val_double":1}`), &v))
	assert.Error(t, json.Unmarshal([]byte(`{"val_u64":-1}`), &v))
}

func TestFieldValue_Uint64AsString(t *testing.T) {
	var v FieldValue
	require.NoError(t, json.Unmarshal([]byte(`{"val_u64":"9007199254740993"}`), &v))
	require.NotNil(t, v.U64)
	assert.Equal(t, uint64(9007199254740993), *v.U64)
}

func TestFieldMap_PreservesOrder(t *testing.T) {
	raw := `{"zeta":{"val_str":"z"},"alpha":{"val_u64":1},"mid":{"val_double":2.5}}`
	var m FieldMap
	require.NoError(t, json.Unmarshal([]byte(raw), &m))

	names := make([]string, len(m))
	for i, f := range m {
		names[i] = f.Name
	}
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, names)

	out, err := Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, raw, string(out))
}

func TestFieldMap_NullAndErrors(t *testing.T) {
	var m FieldMap
	require.NoError(t, json.Unmarshal([]byte(`null`), &m))
	assert.Nil(t, m)

	assert.Error(t, json.Unmarshal([]byte(`[1]`), &m))
	assert.Error(t, json.Unmarshal([]byte(`{"a":{}}`), &m))
}

func TestDocument_UnknownMembersRoundTrip(t *testing.T) {
	raw := `{"id":"0001","vector":[0.5],"fields":{"page":{"val_u64":3}},"new_member":{"x":1},"another":true}`
	var doc Document
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))

	assert.Equal(t, "0001", doc.ID)
	assert.Equal(t, []float32{0.5}, doc.Vector)
	require.Len(t, doc.Unknown, 2)
	assert.JSONEq(t, `{"x":1}`, string(doc.Unknown["new_member"]))

	out, err := Marshal(doc)
	require.NoError(t, err)
	assert.JSONEq(t, raw, string(out))
}

func TestDocument_NoUnknownMembers(t *testing.T) {
	var doc Document
	require.NoError(t, json.Unmarshal([]byte(`{"id":"a","score":0.9}`), &doc))
	assert.Nil(t, doc.Unknown)
	assert.Equal(t, 0.9, doc.Score)
}

func TestDecodeStatus(t *testing.T) {
	s, err := DecodeStatus([]byte(`{"code":0,"msg":"ok","documents":[]}`))
	require.NoError(t, err)
	assert.True(t, s.OK())

	s, err = DecodeStatus([]byte(`{"code":0,"redirect":"10.0.0.2:80"}`))
	require.NoError(t, err)
	assert.False(t, s.OK())
	assert.True(t, s.Redirected())

	s, err = DecodeStatus([]byte(`{"code":15302,"msg":"collection not exist"}`))
	require.NoError(t, err)
	assert.False(t, s.OK())
	assert.False(t, s.Redirected())

	s, err = DecodeStatus([]byte(`{"code":1,"msg":"auth failed","requestId":"req-42"}`))
	require.NoError(t, err)
	assert.Equal(t, "req-42", s.RequestID)

	_, err = DecodeStatus([]byte(`not json`))
	assert.Error(t, err)
}

func TestEnvelope_RequestIDIsStatus(t *testing.T) {
	env, err := Decode[CountResponse]([]byte(`{"code":0,"count":2,"requestId":"req-1"}`))
	require.NoError(t, err)
	assert.Equal(t, "req-1", env.Status.RequestID)
	assert.Nil(t, env.Extra)
}

func TestWithWarning(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		warning string
		want    string
	}{
		{"adds member", `{"code":0,"affectedCount":1}`, "field ignored", `{"code":0,"affectedCount":1,"warning":"field ignored"}`},
		{"fills empty member", `{"code":0,"warning":""}`, "slow", `{"code":0,"warning":"slow"}`},
		{"body wins", `{"code":0,"warning":"from body"}`, "from header", `{"code":0,"warning":"from body"}`},
		{"no header", `{"code":0}`, "", `{"code":0}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.JSONEq(t, tt.want, string(WithWarning([]byte(tt.body), tt.warning)))
		})
	}

	assert.Equal(t, "not json", string(WithWarning([]byte("not json"), "w")))
	assert.Equal(t, "[1]", string(WithWarning([]byte("[1]"), "w")))
}

func TestEnvelope_DecodeAndEncode(t *testing.T) {
	raw := `{"code":0,"msg":"","warning":"w","results":[{"documents":[{"id":"1","score":0.5}]}],"timing":{"ms":3}}`

	env, err := Decode[SearchResponse]([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, int32(0), env.Status.Code)
	assert.Equal(t, "w", env.Payload.Warning)
	require.Len(t, env.Payload.Results, 1)
	assert.Equal(t, "1", env.Payload.Results[0].Documents[0].ID)
	require.Contains(t, env.Extra, "timing")
	assert.NotContains(t, env.Extra, "code")

	out, err := Marshal(env)
	require.NoError(t, err)
	assert.JSONEq(t, `{"code":0,"warning":"w","results":[{"documents":[{"id":"1","score":0.5}]}],"timing":{"ms":3}}`, string(out))
}

func TestEnvelope_TolerantOfAbsentPayload(t *testing.T) {
	env, err := Decode[SearchResponse]([]byte(`{"code":0}`))
	require.NoError(t, err)
	assert.Empty(t, env.Payload.Results)
	assert.Nil(t, env.Extra)
}

func TestMarshal_DoesNotEscapeFilterOperators(t *testing.T) {
	out, err := Marshal(QueryRequest{Database: "db", Collection: "c", Query: QueryCond{Filter: "page < 3 AND page > 1"}})
	require.NoError(t, err)
	assert.Contains(t, string(out), `"filter":"page < 3 AND page > 1"`)
}

func TestMarshal_Deterministic(t *testing.T) {
	req := SearchRequest{
		Database:   "db",
		Collection: "c",
		Search: SearchCond{
			RerankParams: &RerankParams{Method: "weighted", Weights: map[string]float64{"b": 0.3, "a": 0.7}},
			Ann:          []AnnData{{FieldName: "vector", Data: []VectorArray{{Vector: []float32{1, 2}}}}},
		},
	}
	first, err := Marshal(req)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := Marshal(req)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}
