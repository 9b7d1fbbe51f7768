package dataset

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"time"
)

// Kind tags the type held by a Value.
type Kind int

const (
	Null Kind = iota
	Text
	Number
	Bool
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Text:
		return "text"
	case Number:
		return "number"
	case Bool:
		return "bool"
	default:
		return "unknown"
	}
}

// Value is a single cell. The zero Value is Null.
type Value struct {
	kind Kind
	text string
	num  float64
	// lit is the source spelling of a Number, kept so integers wider than
	// a float64 mantissa render and compare exactly.
	lit string
	b   bool
}

// NullValue returns the missing value.
func NullValue() Value { return Value{} }

// TextValue wraps a string.
func TextValue(s string) Value { return Value{kind: Text, text: s} }

// NumberValue wraps a float64.
func NumberValue(f float64) Value { return Value{kind: Number, num: f} }

// BoolValue wraps a bool.
func BoolValue(b bool) Value { return Value{kind: Bool, b: b} }

// ValueOf converts a decoded Go value into a Value.
// Maps and slices are kept as their JSON encoding.
func ValueOf(v interface{}) Value {
	switch x := v.(type) {
	case nil:
		return NullValue()
	case Value:
		return x
	case string:
		return TextValue(x)
	case []byte:
		return TextValue(string(x))
	case bool:
		return BoolValue(x)
	case float64:
		return NumberValue(x)
	case float32:
		return NumberValue(float64(x))
	case json.Number:
		if f, err := x.Float64(); err == nil {
			return Value{kind: Number, num: f, lit: x.String()}
		}
		return TextValue(x.String())
	case time.Time:
		return TextValue(x.UTC().Format(time.RFC3339Nano))
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i := rv.Int()
		return Value{kind: Number, num: float64(i), lit: strconv.FormatInt(i, 10)}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		return Value{kind: Number, num: float64(u), lit: strconv.FormatUint(u, 10)}
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
		if rv.Kind() != reflect.Struct && rv.IsNil() {
			return NullValue()
		}
		b, err := json.Marshal(v)
		if err != nil {
			return TextValue(fmt.Sprintf("%v", v))
		}
		return TextValue(string(b))
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return NullValue()
		}
		return ValueOf(rv.Elem().Interface())
	default:
		return TextValue(fmt.Sprintf("%v", v))
	}
}

// Kind reports the tag.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the value is missing.
func (v Value) IsNull() bool { return v.kind == Null }

// Float returns the numeric content and whether the value is a Number.
func (v Value) Float() (float64, bool) { return v.num, v.kind == Number }

// String renders the value as text. Null renders as "". Numbers decoded
// from text keep their source spelling.
func (v Value) String() string {
	switch v.kind {
	case Text:
		return v.text
	case Number:
		if v.lit != "" {
			return v.lit
		}
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case Bool:
		return strconv.FormatBool(v.b)
	default:
		return ""
	}
}

// Interface returns the plain Go value (nil, string, float64 or bool).
// Integers a float64 cannot hold exactly come back as int64.
func (v Value) Interface() interface{} {
	switch v.kind {
	case Text:
		return v.text
	case Number:
		if i, ok := v.wideInt(); ok {
			return i
		}
		return v.num
	case Bool:
		return v.b
	default:
		return nil
	}
}

// SQLArg returns the statement parameter for a text column: nil for Null,
// the text rendering otherwise.
func (v Value) SQLArg() interface{} {
	if v.IsNull() {
		return nil
	}
	return v.String()
}

// Equal compares kind and content.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case Text:
		return v.text == o.text
	case Number:
		return v.numberKey() == o.numberKey()
	case Bool:
		return v.b == o.b
	default:
		return true
	}
}

// key is a canonical form used for duplicate detection.
func (v Value) key() string {
	switch v.kind {
	case Null:
		return "\x00"
	case Number:
		return "n" + v.numberKey()
	case Bool:
		return "b" + strconv.FormatBool(v.b)
	default:
		return "t" + v.text
	}
}

// maxExactInt is the largest magnitude below which every integer is a float64.
const maxExactInt = 1 << 53

// wideInt returns the literal as an int64 when it is an integer outside the
// exact float64 range.
func (v Value) wideInt() (int64, bool) {
	if v.lit == "" {
		return 0, false
	}
	i, err := strconv.ParseInt(v.lit, 10, 64)
	if err != nil || (i <= maxExactInt && i >= -maxExactInt) {
		return 0, false
	}
	return i, true
}

// numberKey is the canonical spelling of a Number: exact digits for integer
// literals, the shortest float form otherwise. 1, 1.0 and 1e0 share a key.
func (v Value) numberKey() string {
	if v.lit != "" {
		if i, err := strconv.ParseInt(v.lit, 10, 64); err == nil {
			return strconv.FormatInt(i, 10)
		}
		if u, err := strconv.ParseUint(v.lit, 10, 64); err == nil {
			return strconv.FormatUint(u, 10)
		}
	}
	if v.num == math.Trunc(v.num) && math.Abs(v.num) < 1e21 {
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	}
	return strconv.FormatFloat(v.num, 'g', -1, 64)
}

// MarshalJSON encodes the plain value. Numbers keep their source spelling.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.kind == Number && v.lit != "" {
		return json.Marshal(json.Number(v.lit))
	}
	return json.Marshal(v.Interface())
}

// MarshalYAML encodes the plain value.
func (v Value) MarshalYAML() (interface{}, error) {
	return v.Interface(), nil
}
