package typespec

import (
	"fmt"
	"strconv"
)

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	KindAbsent Kind = iota
	KindString
	KindNumber
	KindBool
	KindTable
)

func (k Kind) String() string {
	switch k {
	case KindAbsent:
		return "absent"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "boolean"
	case KindTable:
		return "table"
	}
	return "unknown"
}

// Value is the tagged union carried through the dispatch pipeline. Call
// arguments arrive from a dynamically typed host, so every argument is one of
// a small set of variants rather than an interface{} that needs reflection.
// The zero Value is the absent variant.
type Value struct {
	kind    Kind
	str     string
	num     float64
	boolean bool
	table   map[string]Value
}

// None is the absent Value, used for missing optional arguments.
var None = Value{}

// String returns a string Value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Number returns a numeric Value.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// Bool returns a boolean Value.
func Bool(b bool) Value { return Value{kind: KindBool, boolean: b} }

// Table returns a structured Value. The map is used as-is, not copied.
func Table(m map[string]Value) Value {
	if m == nil {
		m = map[string]Value{}
	}
	return Value{kind: KindTable, table: m}
}

// FromAny converts a plain Go value (for example one produced by JSON
// decoding) into a Value. Slices become tables keyed by 1-based index, which
// matches how the host scripting environment represents arrays. Unsupported
// types map to the absent variant.
func FromAny(v any) Value {
	switch t := v.(type) {
	case nil:
		return None
	case Value:
		return t
	case string:
		return String(t)
	case bool:
		return Bool(t)
	case int:
		return Number(float64(t))
	case int32:
		return Number(float64(t))
	case int64:
		return Number(float64(t))
	case float32:
		return Number(float64(t))
	case float64:
		return Number(t)
	case map[string]any:
		m := make(map[string]Value, len(t))
		for k, elem := range t {
			m[k] = FromAny(elem)
		}
		return Table(m)
	case []any:
		m := make(map[string]Value, len(t))
		for i, elem := range t {
			m[strconv.Itoa(i+1)] = FromAny(elem)
		}
		return Table(m)
	}
	return None
}

// Values converts a list of plain Go values via FromAny. Convenience for
// hosts and tests.
func Values(args ...any) []Value {
	out := make([]Value, len(args))
	for i, a := range args {
		out[i] = FromAny(a)
	}
	return out
}

// Kind reports which variant the Value holds.
func (v Value) Kind() Kind { return v.kind }

// IsAbsent reports whether the Value is the absent variant.
func (v Value) IsAbsent() bool { return v.kind == KindAbsent }

// AsString returns the string payload when the Value is a string.
func (v Value) AsString() (string, bool) { return v.str, v.kind == KindString }

// AsNumber returns the numeric payload when the Value is a number.
func (v Value) AsNumber() (float64, bool) { return v.num, v.kind == KindNumber }

// AsBool returns the boolean payload when the Value is a boolean.
func (v Value) AsBool() (bool, bool) { return v.boolean, v.kind == KindBool }

// AsTable returns the table payload when the Value is a table.
func (v Value) AsTable() (map[string]Value, bool) { return v.table, v.kind == KindTable }

// Interface converts the Value back into a plain Go value, the inverse of
// FromAny. Absent becomes nil.
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num
	case KindBool:
		return v.boolean
	case KindTable:
		m := make(map[string]any, len(v.table))
		for k, elem := range v.table {
			m[k] = elem.Interface()
		}
		return m
	}
	return nil
}

// Equal reports deep equality of two Values. Tables compare by key set and
// recursive element equality.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == other.str
	case KindNumber:
		return v.num == other.num
	case KindBool:
		return v.boolean == other.boolean
	case KindTable:
		if len(v.table) != len(other.table) {
			return false
		}
		for k, elem := range v.table {
			o, ok := other.table[k]
			if !ok || !elem.Equal(o) {
				return false
			}
		}
		return true
	}
	return true
}

func (v Value) describe() string {
	switch v.kind {
	case KindString:
		return fmt.Sprintf("string %q", v.str)
	case KindNumber:
		return "number " + strconv.FormatFloat(v.num, 'g', -1, 64)
	case KindBool:
		return "boolean " + strconv.FormatBool(v.boolean)
	case KindTable:
		return "table"
	}
	return "absent"
}
