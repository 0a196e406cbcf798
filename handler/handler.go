// Copyright (C) 2023 Michael J. Fromberger. All Rights Reserved.

// Package handler provides adapters to the beamnode.Handler type for
// functions with other signatures.
//
// Parameters may be string, []byte, or Args, or a type whose pointer supports
// the encoding.TextUnmarshaler interface. The argument text of the request is
// passed to the parameter unmodified, except for Args, which splits it with
// SplitArgs.
//
// Results may be any value accepted by term.From. A result that supports the
// encoding.TextMarshaler interface is rendered as its text, and an error from
// its MarshalText method is reported as the error of the call.
package handler

import (
	"context"
	"encoding"
	"fmt"
	"math/big"

	"github.com/creachadair/beamnode"
	"github.com/creachadair/beamnode/term"
)

// argsContextKey is a context key for the argument text of a handler.
type argsContextKey struct{}

// ContextArgs returns the original argument text passed to the handler, and
// reports whether ctx has one. The context passed to a handler returned by
// this package has this value.
func ContextArgs(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(argsContextKey{}).(string)
	return s, ok
}

// ParamResultError adapts a function f that accepts parameters of type P and
// returns a result of type R and an error, to a beamnode.Handler.
func ParamResultError[P, R any](f func(context.Context, P) (R, error)) beamnode.Handler {
	return func(ctx context.Context, args string) (term.Value, error) {
		var p P
		if err := unmarshal(args, &p); err != nil {
			return nil, err
		}
		r, err := f(withArgs(ctx, args), p)
		if err != nil {
			return nil, err
		}
		return marshal(r)
	}
}

// ParamResult adapts a function f that accepts parameters of type P and
// returns a result of type R without error, to a beamnode.Handler.
func ParamResult[P, R any](f func(context.Context, P) R) beamnode.Handler {
	return func(ctx context.Context, args string) (term.Value, error) {
		var p P
		if err := unmarshal(args, &p); err != nil {
			return nil, err
		}
		return marshal(f(withArgs(ctx, args), p))
	}
}

// ParamError adapts a function f that accepts parameters of type P and returns
// an error with no result, to a beamnode.Handler. On success the result of
// the call is nil.
func ParamError[P any](f func(context.Context, P) error) beamnode.Handler {
	return func(ctx context.Context, args string) (term.Value, error) {
		var p P
		if err := unmarshal(args, &p); err != nil {
			return nil, err
		}
		return nil, f(withArgs(ctx, args), p)
	}
}

// ResultError adapts a function f that accepts no parameters and returns a
// result of type R and an error, to a beamnode.Handler. The argument text of
// the request is ignored.
func ResultError[R any](f func(context.Context) (R, error)) beamnode.Handler {
	return func(ctx context.Context, args string) (term.Value, error) {
		r, err := f(withArgs(ctx, args))
		if err != nil {
			return nil, err
		}
		return marshal(r)
	}
}

// ResultOnly adapts a function f that accepts no parameters and returns a
// result of type R, to a beamnode.Handler.
func ResultOnly[R any](f func(context.Context) R) beamnode.Handler {
	return func(ctx context.Context, args string) (term.Value, error) {
		return marshal(f(withArgs(ctx, args)))
	}
}

func withArgs(ctx context.Context, args string) context.Context {
	return context.WithValue(ctx, argsContextKey{}, args)
}

// unmarshal decodes args into v. The concrete type of v must be a pointer to
// a string or []byte, or must implement encoding.TextUnmarshaler.
func unmarshal(args string, v any) error {
	switch t := v.(type) {
	case *string:
		*t = args
	case *[]byte:
		*t = []byte(args)
	case encoding.TextUnmarshaler:
		return t.UnmarshalText([]byte(args))
	default:
		return fmt.Errorf("cannot unmarshal into %T", v)
	}
	return nil
}

// marshal converts v to a term. Values that implement encoding.TextMarshaler
// (other than terms themselves) are rendered as a string of their text.
func marshal(v any) (term.Value, error) {
	switch t := v.(type) {
	case term.Value:
		return t, nil
	case *big.Int:
		return term.From(t), nil
	case encoding.TextMarshaler:
		text, err := t.MarshalText()
		if err != nil {
			return nil, err
		}
		return term.Str(text), nil
	}
	return term.From(v), nil
}
