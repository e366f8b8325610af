package formula

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Kind is the dynamic type of a Value
type Kind int

const (
	KindNumber Kind = iota
	KindBool
	KindString
	KindObject
	KindFunction
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindBool:
		return "boolean"
	case KindString:
		return "string"
	case KindObject:
		return "object"
	case KindFunction:
		return "function"
	default:
		return "unknown"
	}
}

// Value is the result of evaluating an expression. The zero Value is the
// number 0.
type Value struct {
	kind Kind
	num  float64
	b    bool
	str  string
	obj  map[string]Value
	fn   *Function
}

// Number returns a number value
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// Bool returns a boolean value
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// String returns a string value
func String(s string) Value { return Value{kind: KindString, str: s} }

// Object returns an object value. The map is copied.
func Object(fields map[string]Value) Value {
	obj := make(map[string]Value, len(fields))
	for k, v := range fields {
		obj[k] = v
	}
	return Value{kind: KindObject, obj: obj}
}

// FunctionValue wraps a callable as a value
func FunctionValue(fn *Function) Value { return Value{kind: KindFunction, fn: fn} }

// FromGo converts a Go value into a Value
func FromGo(v any) (Value, error) {
	switch val := v.(type) {
	case Value:
		return val, nil
	case float64:
		return Number(val), nil
	case float32:
		return Number(float64(val)), nil
	case int:
		return Number(float64(val)), nil
	case int64:
		return Number(float64(val)), nil
	case bool:
		return Bool(val), nil
	case string:
		return String(val), nil
	case *Function:
		return FunctionValue(val), nil
	case map[string]any:
		obj := make(map[string]Value, len(val))
		for k, field := range val {
			converted, err := FromGo(field)
			if err != nil {
				return Value{}, fmt.Errorf("%s: %w", k, err)
			}
			obj[k] = converted
		}
		return Value{kind: KindObject, obj: obj}, nil
	default:
		return Value{}, fmt.Errorf("unsupported value type %T", v)
	}
}

// Kind returns the dynamic type of the value
func (v Value) Kind() Kind { return v.kind }

// Float returns the number held by v
func (v Value) Float() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	return v.num, true
}

// Boolean returns the boolean held by v
func (v Value) Boolean() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

// Text returns the string held by v
func (v Value) Text() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.str, true
}

// Field returns a member of an object value
func (v Value) Field(name string) (Value, bool) {
	if v.kind != KindObject {
		return Value{}, false
	}
	f, ok := v.obj[name]
	return f, ok
}

// Func returns the function held by v
func (v Value) Func() (*Function, bool) {
	if v.kind != KindFunction {
		return nil, false
	}
	return v.fn, true
}

// Truthy reports the truth value used by logical operators and ifElse
func (v Value) Truthy() bool {
	switch v.kind {
	case KindNumber:
		return v.num != 0 && !math.IsNaN(v.num)
	case KindBool:
		return v.b
	case KindString:
		return v.str != ""
	default:
		return true
	}
}

// Equal reports whether two values are equal. Values of different kinds
// are never equal. Functions compare by identity.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNumber:
		return v.num == o.num
	case KindBool:
		return v.b == o.b
	case KindString:
		return v.str == o.str
	case KindFunction:
		return v.fn == o.fn
	case KindObject:
		if len(v.obj) != len(o.obj) {
			return false
		}
		for k, a := range v.obj {
			b, ok := o.obj[k]
			if !ok || !a.Equal(b) {
				return false
			}
		}
		return true
	}
	return false
}

func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindString:
		return strconv.Quote(v.str)
	case KindFunction:
		return "function " + v.fn.Name
	case KindObject:
		keys := make([]string, 0, len(v.obj))
		for k := range v.obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + ": " + v.obj[k].String()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	return "?"
}
