// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

package term

import (
	"fmt"

	"github.com/creachadair/mds/value"
)

// Tag bytes of the term format.
const (
	TagSmallAtom  = 's' // 1-byte length + text
	TagAtom       = 'v' // 2-byte length + text
	TagInt        = 'b' // 4-byte big-endian signed integer
	TagFloat      = 'c' // decimal text padded with NUL to 31 bytes
	TagString     = 'k' // 2-byte length + UTF-8 bytes
	TagNil        = 'j' // empty list, also the list terminator
	TagList       = 'l' // 4-byte count + elements + terminator
	TagSmallTuple = 'h' // 1-byte arity + elements
	TagLargeTuple = 't' // 4-byte arity + elements
)

const (
	floatLen     = 31    // width of an encoded float body
	maxStringLen = 65535 // longest string encoded with TagString
)

// Encode encodes v in term format. Encode never fails for a well-formed
// value. A nil Value is encoded as Nil.
func Encode(v Value) []byte {
	var b Builder
	Append(&b, v)
	return b.Bytes()
}

// Marshal converts v with From and encodes the result.
func Marshal(v any) []byte { return Encode(From(v)) }

// Append appends the term encoding of v to b.
func Append(b *Builder, v Value) {
	switch t := v.(type) {
	case nil:
		appendAtom(b, "nil")
	case Nil:
		appendAtom(b, "nil")
	case Bool:
		appendAtom(b, value.Cond(bool(t), "true", "false"))
	case Int:
		if n, ok := t.int32(); ok {
			b.Put(TagInt)
			b.Int32(n)
		} else {
			// There is no bignum tag: out-of-range values are sent as the
			// decimal text of the value.
			appendAtom(b, t.String())
		}
	case Float:
		s := formatFloat(float64(t))
		b.Grow(1 + max(floatLen, len(s)))
		b.Put(TagFloat)
		b.PutString(s)
		for i := len(s); i < floatLen; i++ {
			b.Put(0)
		}
	case Str:
		if len(t) > maxStringLen {
			lst := make(List, len(t))
			for i := range len(t) {
				lst[i] = Int64(int64(t[i]))
			}
			Append(b, lst)
			return
		}
		b.Grow(3 + len(t))
		b.Put(TagString)
		b.Uint16(uint16(len(t)))
		b.PutString(string(t))
	case List:
		if len(t) == 0 {
			b.Put(TagNil)
			return
		}
		b.Put(TagList)
		b.Uint32(uint32(len(t)))
		for _, elt := range t {
			Append(b, elt)
		}
		b.Put(TagNil)
	case Map:
		// Each pair is sent as a 2-tuple, inside a tuple with a 1-byte count.
		b.Put(TagLargeTuple, byte(len(t)))
		for _, p := range t {
			b.Put(TagLargeTuple, 2)
			Append(b, p.Key)
			Append(b, p.Value)
		}
	case Tuple:
		if len(t) < 256 {
			b.Put(TagSmallTuple, byte(len(t)))
		} else {
			b.Put(TagLargeTuple)
			b.Uint32(uint32(len(t)))
		}
		for _, elt := range t {
			Append(b, elt)
		}
	default:
		panic(fmt.Sprintf("term: unexpected value type %T", v))
	}
}

// appendAtom appends the atom encoding of text to b.
func appendAtom(b *Builder, text string) {
	if len(text) < 256 {
		b.Put(TagSmallAtom, byte(len(text)))
	} else {
		b.Put(TagAtom)
		b.Uint16(uint16(len(text)))
	}
	b.PutString(text)
}
