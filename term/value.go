// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

package term

import (
	"encoding"
	"fmt"
	"math"
	"math/big"
	"reflect"
	"slices"
	"strconv"
	"strings"
)

// A Value is a host value that can be encoded in term format.  The concrete
// type of a Value is exactly one of Nil, Bool, Int, Float, Str, List, Tuple,
// or Map. Values must be finite and acyclic.
type Value interface {
	// String renders the canonical text form of the value.
	String() string

	isValue()
}

// Nil is the absent value, encoded as the atom nil.
type Nil struct{}

// Bool is a Boolean value, encoded as the atom true or false.
type Bool bool

// Float is a double-precision floating-point value.
type Float float64

// Str is a UTF-8 text value.
type Str string

// List is an ordered sequence of values.
type List []Value

// Tuple is a fixed-arity ordered sequence of values.
type Tuple []Value

// Map is a sequence of key-value pairs. The order of the pairs is preserved
// when encoding. Maps are never produced by Decode. The encoding records the
// number of pairs in a single byte, so a Map should have at most 255 pairs.
type Map []Pair

// A Pair is a single entry of a Map.
type Pair struct {
	Key, Value Value
}

// Int is an integer value of arbitrary precision.  The zero Int is 0.
type Int struct{ z *big.Int }

// Int64 returns an Int with value n.
func Int64(n int64) Int { return Int{z: big.NewInt(n)} }

// BigInt returns an Int with the value of z. The caller must not modify z
// after passing it to BigInt.
func BigInt(z *big.Int) Int {
	if z == nil {
		return Int{}
	}
	return Int{z: z}
}

// Big returns the value of n as a new *big.Int.
func (n Int) Big() *big.Int {
	if n.z == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(n.z)
}

// Int64 reports the value of n as an int64, and whether it fits.
func (n Int) Int64() (int64, bool) {
	if n.z == nil {
		return 0, true
	}
	return n.z.Int64(), n.z.IsInt64()
}

// Equal reports whether n and o have the same value.
func (n Int) Equal(o Int) bool { return n.Big().Cmp(o.Big()) == 0 }

// int32 reports the value of n as an int32, and whether it fits.
func (n Int) int32() (int32, bool) {
	v, ok := n.Int64()
	if !ok || v < math.MinInt32 || v > math.MaxInt32 {
		return 0, false
	}
	return int32(v), true
}

func (Nil) isValue()   {}
func (Bool) isValue()  {}
func (Int) isValue()   {}
func (Float) isValue() {}
func (Str) isValue()   {}
func (List) isValue()  {}
func (Tuple) isValue() {}
func (Map) isValue()   {}

func (Nil) String() string { return "nil" }

func (b Bool) String() string { return strconv.FormatBool(bool(b)) }

func (n Int) String() string { return n.Big().String() }

func (f Float) String() string { return formatFloat(float64(f)) }

// String returns s unchanged. Strings nested inside other values are quoted.
func (s Str) String() string { return string(s) }

func (v List) String() string { return joinValues("[", v, "]") }

func (v Tuple) String() string { return joinValues("{", v, "}") }

func (m Map) String() string {
	var sb strings.Builder
	sb.WriteString("#{")
	for i, p := range m {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(nested(p.Key))
		sb.WriteString(" => ")
		sb.WriteString(nested(p.Value))
	}
	sb.WriteString("}")
	return sb.String()
}

func joinValues(lhs string, vs []Value, rhs string) string {
	var sb strings.Builder
	sb.WriteString(lhs)
	for i, v := range vs {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(nested(v))
	}
	sb.WriteString(rhs)
	return sb.String()
}

// nested renders v as an element of a container.
func nested(v Value) string {
	switch t := v.(type) {
	case nil:
		return Nil{}.String()
	case Str:
		return strconv.Quote(string(t))
	default:
		return t.String()
	}
}

// formatFloat renders f as decimal text: the shortest representation that
// round-trips, in positional form for exponents in [-4, 16) and exponential
// form otherwise. Integral values carry a trailing ".0".
func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	if a := math.Abs(f); a != 0 && (a < 1e-4 || a >= 1e16) {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsRune(s, '.') {
		s += ".0"
	}
	return s
}

// From converts a Go value into a Value.
//
// Values that already implement Value are returned as-is. Other supported
// types are nil, bool, all integer types, *big.Int, float32 and float64,
// string, []byte (as a string), slices and arrays (as lists), and maps (as a
// Map with entries in order of their rendered keys).  Types implementing
// encoding.TextMarshaler are converted to the text they marshal.  Anything
// else is converted to the text representation produced by fmt.Sprint.
func From(v any) Value {
	switch t := v.(type) {
	case nil:
		return Nil{}
	case Value:
		return t
	case bool:
		return Bool(t)
	case int:
		return Int64(int64(t))
	case int8:
		return Int64(int64(t))
	case int16:
		return Int64(int64(t))
	case int32:
		return Int64(int64(t))
	case int64:
		return Int64(t)
	case uint:
		return BigInt(new(big.Int).SetUint64(uint64(t)))
	case uint8:
		return Int64(int64(t))
	case uint16:
		return Int64(int64(t))
	case uint32:
		return Int64(int64(t))
	case uint64:
		return BigInt(new(big.Int).SetUint64(t))
	case *big.Int:
		if t == nil {
			return Nil{}
		}
		return BigInt(new(big.Int).Set(t))
	case float32:
		return Float(t)
	case float64:
		return Float(t)
	case string:
		return Str(t)
	case []byte:
		return Str(t)
	case encoding.TextMarshaler:
		text, err := t.MarshalText()
		if err != nil {
			return Str(fmt.Sprint(v))
		}
		return Str(text)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer:
		if rv.IsNil() {
			return Nil{}
		}
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return List{}
		}
		out := make(List, rv.Len())
		for i := range out {
			out[i] = From(rv.Index(i).Interface())
		}
		return out
	case reflect.Map:
		out := make(Map, 0, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out = append(out, Pair{
				Key:   From(iter.Key().Interface()),
				Value: From(iter.Value().Interface()),
			})
		}
		slices.SortFunc(out, func(a, b Pair) int {
			return strings.Compare(nested(a.Key), nested(b.Key))
		})
		return out
	}
	return Str(fmt.Sprint(v))
}
