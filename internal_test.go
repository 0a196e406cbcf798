// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

package beamnode

import (
	"errors"
	"fmt"
	"testing"

	"github.com/creachadair/beamnode/term"
)

func TestParseRequest(t *testing.T) {
	tests := []struct {
		input      string
		name, args string
		ok         bool
	}{
		{"echo(hello)", "echo", "hello", true},
		{"echo()", "echo", "", true},
		{"  echo\t(x)", "echo", "x", true},         // name is trimmed
		{"echo(  x  )", "echo", "  x  ", true},     // args are not
		{"f(g(x), h(y))", "f", "g(x), h(y)", true}, // first open, last close
		{"f(x) trailing", "f", "x", true},
		{"(x)", "", "x", true},
		{"spaced name(x)", "spaced name", "x", true},

		{"", "", "", false},
		{"echo", "", "", false},
		{"echo(", "", "", false},
		{"echo)", "", "", false},
		{")(", "", "", false},
		{"a)b(c", "", "", false},
	}
	for _, tc := range tests {
		name, args, err := parseRequest(tc.input)
		if !tc.ok {
			if !errors.Is(err, ErrInvalidFormat) {
				t.Errorf("parseRequest(%q): got (%q, %q, %v), want %v", tc.input, name, args, err, ErrInvalidFormat)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseRequest(%q): unexpected error: %v", tc.input, err)
		} else if name != tc.name || args != tc.args {
			t.Errorf("parseRequest(%q): got (%q, %q), want (%q, %q)", tc.input, name, args, tc.name, tc.args)
		}
	}
}

func TestErrorBody(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{unknownFunctionError("nonesuch"), "{error, 'Unknown function: nonesuch'}"},
		{fmt.Errorf("wrapped: %w", unknownFunctionError("f")), "{error, 'Unknown function: f'}"},
		{ErrInvalidFormat, "{error, 'Invalid message format'}"},
		{errors.New("something bad"), "{error, 'something bad'}"},
		{errors.New("it's unescaped"), "{error, 'it's unescaped'}"},
	}
	for _, tc := range tests {
		body := errorBody(tc.err)
		if got := string(body); got != tc.want {
			t.Errorf("errorBody(%v): got %q, want %q", tc.err, got, tc.want)
		}
		if _, ok := parseErrorBody(body); !ok {
			t.Errorf("parseErrorBody(%q): not recognized", body)
		}
	}
}

func TestParseErrorBody(t *testing.T) {
	tests := []struct {
		input string
		want  string
		ok    bool
	}{
		{"{error, 'x'}", "x", true},
		{"{error, ''}", "", true},
		{"{error, 'a, b'}", "a, b", true},
		{"hello", "", false},
		{"{error, 'x", "", false},
		{`{"error", 'x'}`, "", false},
		{"{error, '}", "", false},
		{"", "", false},
	}
	for _, tc := range tests {
		got, ok := parseErrorBody([]byte(tc.input))
		if got != tc.want || ok != tc.ok {
			t.Errorf("parseErrorBody(%q): got (%q, %v), want (%q, %v)", tc.input, got, ok, tc.want, tc.ok)
		}
	}
}

func TestUnknownFunctionError(t *testing.T) {
	err := error(unknownFunctionError("frob"))
	if !errors.Is(err, ErrUnknownFunction) {
		t.Errorf("Is(%v, ErrUnknownFunction): got false", err)
	}
	if errors.Is(err, ErrInvalidFormat) {
		t.Errorf("Is(%v, ErrInvalidFormat): got true", err)
	}
	if got, want := err.Error(), "unknown function: frob"; got != want {
		t.Errorf("Error: got %q, want %q", got, want)
	}
}

func TestResultText(t *testing.T) {
	tests := []struct {
		input term.Value
		want  string
	}{
		{nil, "nil"},
		{term.Nil{}, "nil"},
		{term.Str("plain text"), "plain text"},
		{term.Int64(-25), "-25"},
		{term.List{term.Str("a"), term.Bool(false)}, `["a", false]`},
	}
	for _, tc := range tests {
		if got := resultText(tc.input); got != tc.want {
			t.Errorf("resultText(%#v): got %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{Host: "0.0.0.0", Port: 9000}.withDefaults()
	if cfg.Node != DefaultNode || cfg.Cookie != DefaultCookie || cfg.StopGrace != DefaultStopGrace {
		t.Errorf("Defaults not applied: %+v", cfg)
	}
	if cfg.Host != "0.0.0.0" || cfg.Port != 9000 {
		t.Errorf("Settings not preserved: %+v", cfg)
	}
}
