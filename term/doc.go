// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

// Package term implements a compact tagged binary encoding for host values
// exchanged with a BEAM-style node.
//
// Each encoded value begins with a one-byte tag selected by the type of the
// value, followed by a body:
//
//	Nil, Bool          's' len:1 text          (atoms nil, true, false)
//	Int (32-bit)       'b' int32
//	Int (otherwise)    's' len:1 decimal-text
//	Float              'c' text padded with NUL to 31 bytes
//	Str (< 64KiB)      'k' len:2 utf8          (longer strings as a List of bytes)
//	List (empty)       'j'
//	List               'l' count:4 elements... 'j'
//	Tuple (< 256)      'h' arity:1 elements...
//	Tuple              't' arity:4 elements...
//	Map                't' count:1 ('t' 2 key value)...
//
// All multi-byte lengths and integers are big-endian. Atoms of 256 bytes or
// more use tag 'v' with a 2-byte length.
//
// A Map is write-only: [Decode] always produces a [Tuple] for tuple tags.
package term
