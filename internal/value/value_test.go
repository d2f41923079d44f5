package value

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"nulls", Null{}, Null{}, true},
		{"strings", String("x"), String("x"), true},
		{"string mismatch", String("x"), String("y"), false},
		{"int float cross kind", Int(1), Float(1), false},
		{"lists", List{Int(1), String("a")}, List{Int(1), String("a")}, true},
		{"list length", List{Int(1)}, List{Int(1), Int(2)}, false},
		{"maps", Map{"a": Int(1)}, Map{"a": Int(1)}, true},
		{"map extra key", Map{"a": Int(1)}, Map{"a": Int(1), "b": Int(2)}, false},
		{"nested", Map{"a": List{Map{"b": Bool(true)}}}, Map{"a": List{Map{"b": Bool(true)}}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Equal(tt.a, tt.b))
		})
	}
}

func TestCopyIsDeep(t *testing.T) {
	original := Map{"list": List{Int(1)}, "map": Map{"k": String("v")}}
	clone := original.CopyMap()

	clone["list"].(List)[0] = Int(99)
	clone["map"].(Map)["k"] = String("changed")

	assert.True(t, Equal(original["list"], List{Int(1)}))
	assert.True(t, Equal(original["map"], Map{"k": String("v")}))
}

func TestFromAnyRoundTrip(t *testing.T) {
	in := map[string]any{
		"s": "text",
		"i": 42,
		"f": 1.5,
		"b": true,
		"n": nil,
		"l": []any{1, "two"},
		"m": map[string]any{"k": "v"},
	}
	v, err := FromAny(in)
	require.NoError(t, err)
	m, ok := AsMap(v)
	require.True(t, ok)

	assert.Equal(t, KindString, m["s"].Kind())
	assert.Equal(t, KindInt, m["i"].Kind())
	assert.Equal(t, KindFloat, m["f"].Kind())
	assert.Equal(t, KindBool, m["b"].Kind())
	assert.Equal(t, KindNull, m["n"].Kind())
	assert.Equal(t, KindList, m["l"].Kind())
	assert.Equal(t, KindMap, m["m"].Kind())

	back := ToAny(v).(map[string]any)
	assert.Equal(t, int64(42), back["i"])
	assert.Equal(t, 1.5, back["f"])
}

func TestFromAnyRejectsUnknownType(t *testing.T) {
	_, err := FromAny(struct{}{})
	assert.Error(t, err)
}

func TestFromJSONNumberSplit(t *testing.T) {
	v, err := FromJSON([]byte(`{"i": 7, "f": 7.0}`))
	require.NoError(t, err)
	m := v.(Map)
	assert.Equal(t, KindInt, m["i"].Kind())
	assert.Equal(t, KindFloat, m["f"].Kind())
}

func TestMapMarshalSortedKeys(t *testing.T) {
	m := Map{"zebra": Int(1), "alpha": Int(2), "mid": Int(3)}
	raw, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":2,"mid":3,"zebra":1}`, string(raw))
}

func TestMapJSONRoundTrip(t *testing.T) {
	original := Map{"a": Int(1), "b": List{String("x"), Null{}}, "c": Map{"d": Float(2.5)}}
	raw, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded Map
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.True(t, Equal(original, decoded))
}

func TestRender(t *testing.T) {
	assert.Equal(t, "hello", Render(String("hello")))
	assert.Equal(t, "42", Render(Int(42)))
	assert.Equal(t, "1.5", Render(Float(1.5)))
	assert.Equal(t, "true", Render(Bool(true)))
	assert.Equal(t, "null", Render(Null{}))
	assert.Equal(t, `[1,"a"]`, Render(List{Int(1), String("a")}))
}
