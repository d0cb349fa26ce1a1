package vectordb

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"
)

func TestValueOf(t *testing.T) {
	tests := []struct {
		name string
		in   any
		kind FieldKind
		want any
	}{
		{"string", "Jane", FieldKindString, "Jane"},
		{"int", 42, FieldKindUint64, uint64(42)},
		{"uint32", uint32(7), FieldKindUint64, uint64(7)},
		{"float", 1.5, FieldKindDouble, 1.5},
		{"float32", float32(0.5), FieldKindDouble, 0.5},
		{"strings", []string{"a", "b"}, FieldKindStringArray, []string{"a", "b"}},
		{"bool as json", true, FieldKindJSON, true},
		{"map as json", map[string]any{"k": "v"}, FieldKindJSON, map[string]any{"k": "v"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := ValueOf(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, v.Kind())
			assert.Equal(t, tt.want, v.Native())
		})
	}
}

func TestValueOf_Rejects(t *testing.T) {
	for _, in := range []any{-1, int64(-5), math.NaN(), math.Inf(-1), make(chan int)} {
		_, err := ValueOf(in)
		assert.Error(t, err, "%T", in)
	}
}

func TestFieldValue_CopiesInput(t *testing.T) {
	arr := []string{"a", "b"}
	v := StringArrayValue(arr)
	arr[0] = "z"

	got, ok := v.AsStringArray()
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, got)

	got[1] = "y"
	again, _ := v.AsStringArray()
	assert.Equal(t, []string{"a", "b"}, again)

	js, err := structpb.NewValue(map[string]any{"n": 1})
	require.NoError(t, err)
	jv := JSONValue(js)
	js.GetStructValue().Fields["n"] = structpb.NewNumberValue(2)

	out, ok := jv.AsJSON()
	require.True(t, ok)
	assert.Equal(t, float64(1), out.GetStructValue().Fields["n"].GetNumberValue())
}

func TestFieldValue_Equal(t *testing.T) {
	a, _ := ValueOf(map[string]any{"x": []any{1.0, "y"}})
	b, _ := ValueOf(map[string]any{"x": []any{1.0, "y"}})
	c, _ := ValueOf(map[string]any{"x": []any{2.0}})

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, StringValue("1").Equal(Uint64Value(1)))
	assert.True(t, FieldValue{}.Equal(FieldValue{}))
	assert.False(t, FieldValue{}.IsSet())
	assert.True(t, JSONValue(nil).Equal(JSONValue(structpb.NewNullValue())))
}

func TestFields_OrderAndSet(t *testing.T) {
	var f Fields
	f.Set("b", Uint64Value(1))
	f.Set("a", StringValue("x"))
	f.Set("b", Uint64Value(2))

	assert.Equal(t, []string{"b", "a"}, f.Names())
	v, ok := f.Get("b")
	require.True(t, ok)
	assert.True(t, v.Equal(Uint64Value(2)))

	_, ok = f.Get("missing")
	assert.False(t, ok)
	assert.Equal(t, map[string]any{"b": uint64(2), "a": "x"}, f.Map())
}

func TestFieldsFromMap_SortsKeys(t *testing.T) {
	f, err := FieldsFromMap(map[string]any{"z": 1, "a": "x", "m": []string{"q"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "m", "z"}, f.Names())

	_, err = FieldsFromMap(map[string]any{"bad": -1})
	assert.Error(t, err)
}
