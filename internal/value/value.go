package value

import (
	"slices"
)

// Value is a sealed interface over the kinds of data an experiment can
// hold: null, string, int, float, bool, list, and map. Only the types in
// this package implement it.
//
// Values flow through the data store, part config tables, and trace
// entries. A Value is treated as immutable by convention - use Copy before
// mutating a List or Map that someone else may still hold.
type Value interface {
	value() // sealed

	// Kind reports which variant this value is.
	Kind() Kind

	// Copy returns a deep copy. Scalars return themselves.
	Copy() Value
}

// Kind identifies a Value variant.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindInt
	KindFloat
	KindBool
	KindList
	KindMap
)

// String returns the kind name used in error messages and config files.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return "unknown"
	}
}

// Null is the absent value.
type Null struct{}

func (Null) value() {}
func (Null) Kind() Kind { return KindNull }
func (n Null) Copy() Value { return n }

// String is a string value.
type String string

func (String) value() {}
func (String) Kind() Kind { return KindString }
func (s String) Copy() Value { return s }

// Int is an integer value. Always int64 on the wire.
type Int int64

func (Int) value() {}
func (Int) Kind() Kind { return KindInt }
func (i Int) Copy() Value { return i }

// Float is a floating point value.
type Float float64

func (Float) value() {}
func (Float) Kind() Kind { return KindFloat }
func (f Float) Copy() Value { return f }

// Bool is a boolean value.
type Bool bool

func (Bool) value() {}
func (Bool) Kind() Kind { return KindBool }
func (b Bool) Copy() Value { return b }

// List is an ordered sequence of values.
type List []Value

func (List) value() {}
func (List) Kind() Kind { return KindList }

// Copy deep-copies the list.
func (l List) Copy() Value {
	if l == nil {
		return List(nil)
	}
	out := make(List, len(l))
	for i, v := range l {
		out[i] = v.Copy()
	}
	return out
}

// Map is a named-value mapping. This is the shape of the experiment data
// store and of part config tables.
type Map map[string]Value

func (Map) value() {}
func (Map) Kind() Kind { return KindMap }

// Copy deep-copies the map.
func (m Map) Copy() Value {
	return m.CopyMap()
}

// CopyMap deep-copies the map with a concrete return type.
func (m Map) CopyMap() Map {
	if m == nil {
		return nil
	}
	out := make(Map, len(m))
	for k, v := range m {
		out[k] = v.Copy()
	}
	return out
}

// SortedKeys returns the map's keys in lexicographic order for
// deterministic iteration.
func (m Map) SortedKeys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Equal reports deep structural equality between two values. Int and Float
// are distinct kinds and never compare equal to each other.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch av := a.(type) {
	case Null:
		return true
	case String:
		return av == b.(String)
	case Int:
		return av == b.(Int)
	case Float:
		return av == b.(Float)
	case Bool:
		return av == b.(Bool)
	case List:
		bv := b.(List)
		if len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case Map:
		bv := b.(Map)
		if len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			other, ok := bv[k]
			if !ok || !Equal(v, other) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// AsString unwraps a String value.
func AsString(v Value) (string, bool) {
	s, ok := v.(String)
	return string(s), ok
}

// AsInt unwraps an Int value.
func AsInt(v Value) (int64, bool) {
	i, ok := v.(Int)
	return int64(i), ok
}

// AsFloat unwraps a numeric value, widening Int to float64.
func AsFloat(v Value) (float64, bool) {
	switch n := v.(type) {
	case Float:
		return float64(n), true
	case Int:
		return float64(n), true
	default:
		return 0, false
	}
}

// AsBool unwraps a Bool value.
func AsBool(v Value) (bool, bool) {
	b, ok := v.(Bool)
	return bool(b), ok
}

// AsList unwraps a List value.
func AsList(v Value) (List, bool) {
	l, ok := v.(List)
	return l, ok
}

// AsMap unwraps a Map value.
func AsMap(v Value) (Map, bool) {
	m, ok := v.(Map)
	return m, ok
}

// IsNull reports whether v is nil or the Null value.
func IsNull(v Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.(Null)
	return ok
}
