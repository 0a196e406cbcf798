// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

package main

import (
	"fmt"
	"math/big"
	"strconv"

	"github.com/creachadair/beamnode/term"
)

// formatTerms parses the terms described by pat from args, and returns the
// terms along with any unconsumed arguments.
func formatTerms(pat string, args []string) ([]term.Value, []string, error) {
	var out []term.Value
	for i := 0; i < len(pat); i++ {
		c := pat[i]
		switch c {
		case 'b', 'i', 'f', 's', 'q':
			// OK, these need an argument (see below)
		case 'n':
			out = append(out, term.Nil{})
			continue
		case ' ', '\t', '\n':
			// Skip whitespace.
			continue
		case '(', '[':
			// Sub-pattern (sub) becomes a tuple or list of the contents.
			r := byte(')')
			if c == '[' {
				r = ']'
			}
			sub, ok := cutParen(pat[i+1:], rune(c), rune(r))
			if !ok {
				return nil, nil, fmt.Errorf("missing %c", r)
			}
			vs, rest, err := formatTerms(sub, args)
			if err != nil {
				return nil, nil, fmt.Errorf("invalid subpattern: %w", err)
			}
			if c == '(' {
				out = append(out, term.Tuple(vs))
			} else {
				out = append(out, term.List(vs))
			}
			args = rest
			i += len(sub) + 1
			continue
		case ')', ']':
			return nil, nil, fmt.Errorf("unexpected %c", c)
		default:
			return nil, nil, fmt.Errorf("invalid pattern word %c", c)
		}

		if len(args) == 0 {
			return nil, nil, fmt.Errorf("missing argument for %c", c)
		}
		switch c {
		case 'b':
			v, err := strconv.ParseBool(args[0])
			if err != nil {
				return nil, nil, fmt.Errorf("invalid bool: %w", err)
			}
			out = append(out, term.Bool(v))
		case 'i':
			z, ok := new(big.Int).SetString(args[0], 10)
			if !ok {
				return nil, nil, fmt.Errorf("invalid integer %q", args[0])
			}
			out = append(out, term.BigInt(z))
		case 'f':
			v, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return nil, nil, fmt.Errorf("invalid float: %w", err)
			}
			out = append(out, term.Float(v))
		case 's':
			out = append(out, term.Str(args[0]))
		case 'q':
			dec, err := strconv.Unquote(`"` + args[0] + `"`)
			if err != nil {
				return nil, nil, fmt.Errorf("invalid string: %w", err)
			}
			out = append(out, term.Str(dec))
		default:
			panic("invalid code: " + string(c))
		}
		args = args[1:]
	}
	return out, args, nil
}

// cutParen returns the prefix of s up to the r that closes an l already
// consumed, and reports whether one was found.
func cutParen(s string, l, r rune) (string, bool) {
	d := 1
	for i, c := range s {
		if c == l {
			d++
		} else if c == r {
			d--
			if d == 0 {
				return s[:i], true
			}
		}
	}
	return s, false
}
