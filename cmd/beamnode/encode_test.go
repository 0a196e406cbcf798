// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

package main

import (
	"encoding/hex"
	"errors"
	"testing"

	"github.com/creachadair/beamnode/term"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestFormatTerms(t *testing.T) {
	tests := []struct {
		pat  string
		args []string
		want []string // canonical text of each term
		rest []string
	}{
		{"", nil, nil, nil},
		{"n", nil, []string{"nil"}, nil},
		{"b i f s", []string{"true", "-12", "2.5", "hi"}, []string{"true", "-12", "2.5", "hi"}, nil},
		{"i", []string{"123456789012345678901234567890"}, []string{"123456789012345678901234567890"}, nil},
		{"q", []string{`a\tb`}, []string{"a\tb"}, nil},
		{"(s i)", []string{"ok", "1"}, []string{`{"ok", 1}`}, nil},
		{"[i i (n b)]", []string{"1", "2", "false"}, []string{"[1, 2, {nil, false}]"}, nil},
		{"()[]", nil, []string{"{}", "[]"}, nil},
		{"s", []string{"a", "b"}, []string{"a"}, []string{"b"}},
	}
	for _, tc := range tests {
		vs, rest, err := formatTerms(tc.pat, tc.args)
		if err != nil {
			t.Errorf("formatTerms(%q, %q): unexpected error: %v", tc.pat, tc.args, err)
			continue
		}
		var got []string
		for _, v := range vs {
			got = append(got, v.String())
		}
		if diff := cmp.Diff(tc.want, got); diff != "" {
			t.Errorf("formatTerms(%q, %q) terms (-want, +got):\n%s", tc.pat, tc.args, diff)
		}
		if diff := cmp.Diff(tc.rest, rest, cmpopts.EquateEmpty()); diff != "" {
			t.Errorf("formatTerms(%q, %q) rest (-want, +got):\n%s", tc.pat, tc.args, diff)
		}
	}
}

func TestFormatTermsErrors(t *testing.T) {
	tests := []struct {
		pat  string
		args []string
	}{
		{"x", nil},
		{"s", nil},
		{"b", []string{"maybe"}},
		{"i", []string{"1.5"}},
		{"f", []string{"pi"}},
		{"q", []string{`"`}},
		{"(s", []string{"a"}},
		{"[s)", []string{"a"}},
		{")", nil},
		{"(x)", nil},
	}
	for _, tc := range tests {
		vs, _, err := formatTerms(tc.pat, tc.args)
		if err == nil {
			t.Errorf("formatTerms(%q, %q): got %v, want error", tc.pat, tc.args, vs)
		} else {
			t.Logf("formatTerms(%q, %q): error OK: %v", tc.pat, tc.args, err)
		}
	}
}

func TestEncodeDecode(t *testing.T) {
	vs, _, err := formatTerms("b (s i) n", []string{"true", "ok", "7"})
	if err != nil {
		t.Fatalf("formatTerms: %v", err)
	}
	var b term.Builder
	for _, v := range vs {
		term.Append(&b, v)
	}
	const want = "730474727565" + // true
		"6802" + "6b00026f6b" + "6200000007" + // {"ok", 7}
		"73036e696c" // nil
	if got := hex.EncodeToString(b.Bytes()); got != want {
		t.Errorf("Encoding: got %s, want %s", got, want)
	}

	dec, err := decodeAll(b.Bytes())
	if err != nil {
		t.Fatalf("decodeAll: %v", err)
	}
	var got []string
	for _, v := range dec {
		got = append(got, quoteTop(v))
	}
	if diff := cmp.Diff([]string{"true", `{"ok", 7}`, "nil"}, got); diff != "" {
		t.Errorf("Decoded (-want, +got):\n%s", diff)
	}

	if _, err := decodeAll(nil); err == nil {
		t.Error("decodeAll(nil): got nil error")
	}
	if vs, err := decodeAll(b.Bytes()[:8]); err == nil {
		t.Errorf("decodeAll(truncated): got %v, want error", vs)
	} else if !errors.Is(err, term.ErrMalformedData) {
		t.Errorf("decodeAll(truncated): got %v, want %v", err, term.ErrMalformedData)
	}
}

func TestCutParen(t *testing.T) {
	tests := []struct {
		input string
		want  string
		ok    bool
	}{
		{")", "", true},
		{"a b)", "a b", true},
		{"a (b) c) d", "a (b) c", true},
		{"(a", "(a", false},
		{"", "", false},
	}
	for _, tc := range tests {
		got, ok := cutParen(tc.input, '(', ')')
		if got != tc.want || ok != tc.ok {
			t.Errorf("cutParen(%q): got (%q, %v), want (%q, %v)", tc.input, got, ok, tc.want, tc.ok)
		}
	}
}
