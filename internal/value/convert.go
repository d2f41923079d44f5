package value

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// FromAny converts a plain Go value (as produced by yaml.v3 or
// encoding/json decoding into any) to a Value. Integral float64s from JSON
// stay floats only if they carry a fractional part; json.Number is split
// into Int or Float by parseability.
func FromAny(v any) (Value, error) {
	switch x := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return x, nil
	case string:
		return String(x), nil
	case bool:
		return Bool(x), nil
	case int:
		return Int(x), nil
	case int32:
		return Int(x), nil
	case int64:
		return Int(x), nil
	case uint64:
		if x > math.MaxInt64 {
			return nil, fmt.Errorf("integer %d overflows int64", x)
		}
		return Int(x), nil
	case float32:
		return Float(x), nil
	case float64:
		return Float(x), nil
	case json.Number:
		if i, err := strconv.ParseInt(string(x), 10, 64); err == nil {
			return Int(i), nil
		}
		f, err := x.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", x, err)
		}
		return Float(f), nil
	case []any:
		out := make(List, len(x))
		for i, elem := range x {
			conv, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("list[%d]: %w", i, err)
			}
			out[i] = conv
		}
		return out, nil
	case map[string]any:
		out := make(Map, len(x))
		for k, elem := range x {
			conv, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("map[%q]: %w", k, err)
			}
			out[k] = conv
		}
		return out, nil
	case map[any]any:
		out := make(Map, len(x))
		for k, elem := range x {
			key, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("map key %v is not a string", k)
			}
			conv, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("map[%q]: %w", key, err)
			}
			out[key] = conv
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}

// MapFromAny converts a plain Go map to a Map.
func MapFromAny(m map[string]any) (Map, error) {
	v, err := FromAny(m)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	return v.(Map), nil
}

// ToAny converts a Value back to plain Go values (string, int64, float64,
// bool, []any, map[string]any, nil). Used at the yaml/cue/expr boundaries.
func ToAny(v Value) any {
	switch x := v.(type) {
	case nil, Null:
		return nil
	case String:
		return string(x)
	case Int:
		return int64(x)
	case Float:
		return float64(x)
	case Bool:
		return bool(x)
	case List:
		out := make([]any, len(x))
		for i, elem := range x {
			out[i] = ToAny(elem)
		}
		return out
	case Map:
		out := make(map[string]any, len(x))
		for k, elem := range x {
			out[k] = ToAny(elem)
		}
		return out
	default:
		return nil
	}
}

// MapToAny converts a Map to a plain map[string]any.
func MapToAny(m Map) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return ToAny(m).(map[string]any)
}

// Render formats a value for console display. Strings render bare, nested
// structures render as compact JSON.
func Render(v Value) string {
	switch x := v.(type) {
	case nil, Null:
		return "null"
	case String:
		return string(x)
	case Int:
		return strconv.FormatInt(int64(x), 10)
	case Float:
		return strconv.FormatFloat(float64(x), 'g', -1, 64)
	case Bool:
		return strconv.FormatBool(bool(x))
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(raw)
	}
}

// FromJSON parses a JSON document into a Value. Numbers without a
// fractional part or exponent become Int, everything else Float.
func FromJSON(raw []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return FromAny(v)
}

// MarshalJSON implementations. Each variant serializes to its natural
// JSON form so trace files stay plain JSON documents.

func (Null) MarshalJSON() ([]byte, error) { return []byte("null"), nil }

func (s String) MarshalJSON() ([]byte, error) { return json.Marshal(string(s)) }

func (i Int) MarshalJSON() ([]byte, error) { return json.Marshal(int64(i)) }

func (f Float) MarshalJSON() ([]byte, error) {
	if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
		return nil, fmt.Errorf("cannot encode non-finite float %v", float64(f))
	}
	return json.Marshal(float64(f))
}

func (b Bool) MarshalJSON() ([]byte, error) { return json.Marshal(bool(b)) }

func (l List) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Value(l))
}

func (m Map) MarshalJSON() ([]byte, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	// Deterministic key order keeps trace files diffable.
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.SortedKeys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(m[k])
		if err != nil {
			return nil, fmt.Errorf("map[%q]: %w", k, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON parses a JSON object into a Map.
func (m *Map) UnmarshalJSON(raw []byte) error {
	v, err := FromJSON(raw)
	if err != nil {
		return err
	}
	if IsNull(v) {
		*m = nil
		return nil
	}
	mv, ok := v.(Map)
	if !ok {
		return fmt.Errorf("expected JSON object, got %s", v.Kind())
	}
	*m = mv
	return nil
}
