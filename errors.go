// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

package beamnode

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrBindFailed is reported by Init and Start when the listening socket
	// cannot be created.
	ErrBindFailed = errors.New("bind failed")

	// ErrRunning is reported by Start when the server is already running.
	ErrRunning = errors.New("server is already running")

	// ErrUnknownFunction is reported when a request names a function that has
	// no registered handler.
	ErrUnknownFunction = errors.New("unknown function")

	// ErrInvalidFormat is reported when a request does not have the form
	// name(args).
	ErrInvalidFormat = errors.New("invalid message format")
)

// unknownFunctionError is the concrete error reported for an unregistered
// function name. It matches ErrUnknownFunction.
type unknownFunctionError string

func (e unknownFunctionError) Error() string { return fmt.Sprintf("unknown function: %s", string(e)) }

func (unknownFunctionError) Is(err error) bool { return err == ErrUnknownFunction }

// errorBody renders err as the body of an error response. This is the only
// place dispatch errors are converted to their wire representation.
func errorBody(err error) []byte {
	var msg string
	var ufe unknownFunctionError
	switch {
	case errors.As(err, &ufe):
		msg = "Unknown function: " + string(ufe)
	case errors.Is(err, ErrInvalidFormat):
		msg = "Invalid message format"
	default:
		msg = err.Error()
	}
	return fmt.Appendf(nil, "{error, '%s'}", msg)
}

const (
	errorPrefix = "{error, '"
	errorSuffix = "'}"
)

// parseErrorBody reports whether body has the form of an error response, and
// if so returns its message.
func parseErrorBody(body []byte) (string, bool) {
	s := string(body)
	if len(s) < len(errorPrefix)+len(errorSuffix) ||
		!strings.HasPrefix(s, errorPrefix) || !strings.HasSuffix(s, errorSuffix) {
		return "", false
	}
	return s[len(errorPrefix) : len(s)-len(errorSuffix)], true
}

// CallError is the concrete type of errors reported by Client.Call when the
// remote node answers with an error response.
type CallError struct {
	Message string // the message text of the error response
}

// Error satisfies the error interface.
func (c *CallError) Error() string { return "call failed: " + c.Message }
