// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

package term

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// ErrMalformedData is reported by Decode for input that is not a valid term
// encoding.
var ErrMalformedData = errors.New("malformed term data")

// maxDepth bounds the nesting of decoded containers.
const maxDepth = 512

// Decode decodes a single value from buf starting at offset index, and
// returns the value and the offset of the first byte after its encoding.
//
// Tuples are decoded as Tuple regardless of which tuple tag was used, and a
// Map is never produced: the encoding of a Map is not distinguishable from
// that of a tuple. Strings too long for a string tag are encoded as lists of
// bytes and decode as a List of Int.
//
// Errors reported by Decode wrap ErrMalformedData.
func Decode(buf []byte, index int) (Value, int, error) {
	if index < 0 || index > len(buf) {
		return nil, index, fmt.Errorf("%w: offset %d out of range", ErrMalformedData, index)
	}
	d := decoder{s: NewScanner(buf[index:])}
	v, err := d.value(0)
	if err != nil {
		return nil, index + d.s.Offset(), fmt.Errorf("%w at offset %d: %w", ErrMalformedData, index+d.s.Offset(), err)
	}
	return v, index + d.s.Offset(), nil
}

// Parse decodes data as a single value, and reports an error if any input
// remains after the value.
func Parse(data []byte) (Value, error) {
	v, next, err := Decode(data, 0)
	if err != nil {
		return nil, err
	} else if next != len(data) {
		return nil, fmt.Errorf("%w: %d bytes of extra data after value", ErrMalformedData, len(data)-next)
	}
	return v, nil
}

type decoder struct {
	s *Scanner
}

func (d decoder) value(depth int) (Value, error) {
	if depth > maxDepth {
		return nil, errors.New("nesting too deep")
	}
	tag, err := d.s.Byte()
	if err != nil {
		return nil, err
	}
	switch tag {
	case TagSmallAtom:
		n, err := d.s.Byte()
		if err != nil {
			return nil, err
		}
		return d.atom(int(n))

	case TagAtom:
		n, err := d.s.Uint16()
		if err != nil {
			return nil, err
		}
		return d.atom(int(n))

	case TagInt:
		n, err := d.s.Int32()
		if err != nil {
			return nil, err
		}
		return Int64(int64(n)), nil

	case TagFloat:
		text, err := Get[string](d.s, floatLen)
		if err != nil {
			return nil, err
		}
		f, err := strconv.ParseFloat(strings.TrimRight(text, "\x00"), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid float: %w", err)
		}
		return Float(f), nil

	case TagString:
		n, err := d.s.Uint16()
		if err != nil {
			return nil, err
		}
		text, err := Get[string](d.s, int(n))
		if err != nil {
			return nil, err
		}
		return Str(text), nil

	case TagNil:
		return List{}, nil

	case TagList:
		elts, err := d.elements(d.s.Uint32, depth)
		if err != nil {
			return nil, err
		}
		if tail, err := d.s.Byte(); err != nil {
			return nil, err
		} else if tail != TagNil {
			return nil, fmt.Errorf("improper list tail %q", tail)
		}
		return List(elts), nil

	case TagSmallTuple:
		elts, err := d.elements(func() (uint32, error) {
			n, err := d.s.Byte()
			return uint32(n), err
		}, depth)
		if err != nil {
			return nil, err
		}
		return Tuple(elts), nil

	case TagLargeTuple:
		elts, err := d.elements(d.s.Uint32, depth)
		if err != nil {
			return nil, err
		}
		return Tuple(elts), nil

	default:
		return nil, fmt.Errorf("unknown tag %q", tag)
	}
}

// elements decodes a count using readCount, followed by that many values.
func (d decoder) elements(readCount func() (uint32, error), depth int) ([]Value, error) {
	n, err := readCount()
	if err != nil {
		return nil, err
	}

	// Every element occupies at least one byte, so a count larger than the
	// remaining input cannot be satisfied.
	if int64(n) > int64(d.s.Len()) {
		return nil, fmt.Errorf("count %d exceeds remaining input (%d bytes)", n, d.s.Len())
	}
	out := make([]Value, n)
	for i := range out {
		v, err := d.value(depth + 1)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// atom decodes n bytes of atom text. The atoms nil, true, and false decode to
// Nil and Bool; decimal integer text decodes to Int; any other atom decodes
// to Str.
func (d decoder) atom(n int) (Value, error) {
	text, err := Get[string](d.s, n)
	if err != nil {
		return nil, err
	}
	switch text {
	case "nil":
		return Nil{}, nil
	case "true":
		return Bool(true), nil
	case "false":
		return Bool(false), nil
	}
	if z, ok := new(big.Int).SetString(text, 10); ok && isDecimal(text) {
		return BigInt(z), nil
	}
	return Str(text), nil
}

// isDecimal reports whether s has the form -?[0-9]+.
func isDecimal(s string) bool {
	s = strings.TrimPrefix(s, "-")
	if s == "" {
		return false
	}
	for i := range len(s) {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
