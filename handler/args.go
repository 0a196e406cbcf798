// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

package handler

import (
	"fmt"
	"strings"
)

// Args is a handler parameter type that receives the argument text of a call
// split into separate arguments by SplitArgs.
type Args []string

// UnmarshalText implements the encoding.TextUnmarshaler interface.
func (a *Args) UnmarshalText(text []byte) error {
	args, err := SplitArgs(string(text))
	if err != nil {
		return err
	}
	*a = args
	return nil
}

// String renders the arguments as comma-separated text.
func (a Args) String() string { return strings.Join(a, ", ") }

var closerFor = map[rune]rune{'(': ')', '[': ']', '{': '}'}

// SplitArgs splits s into arguments separated by commas, and trims
// surrounding whitespace from each. Commas inside single- or double-quoted
// text, or nested inside matching (), [], or {} brackets, do not split. Within
// quotes, a backslash escapes the following character. Quotes, brackets, and
// escapes are retained in the arguments.
//
// If s is empty or contains only whitespace, SplitArgs returns no arguments.
// It reports an error if s contains unbalanced brackets or an unterminated
// quotation.
func SplitArgs(s string) ([]string, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var args []string
	var stk []rune // pending closing brackets
	var quote rune // active quote character, or 0
	escaped := false
	start := 0

	for i, c := range s {
		switch {
		case escaped:
			escaped = false
		case quote != 0:
			if c == '\\' {
				escaped = true
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case closerFor[c] != 0:
			stk = append(stk, closerFor[c])
		case c == ')' || c == ']' || c == '}':
			if len(stk) == 0 || stk[len(stk)-1] != c {
				return nil, fmt.Errorf("offset %d: unexpected %q", i, c)
			}
			stk = stk[:len(stk)-1]
		case c == ',' && len(stk) == 0:
			args = append(args, strings.TrimSpace(s[start:i]))
			start = i + 1
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated %c quotation", quote)
	} else if len(stk) != 0 {
		return nil, fmt.Errorf("missing %q", stk[len(stk)-1])
	}
	return append(args, strings.TrimSpace(s[start:])), nil
}
