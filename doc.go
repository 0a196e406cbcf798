// Copyright (C) 2022 Michael J. Fromberger. All Rights Reserved.

// Package beamnode implements a server that lets a BEAM-style node call
// functions registered by a host program over TCP.
//
// The remote node and the server exchange length-prefixed frames (see the
// channel package). Each request body is UTF-8 text of the form
//
//	name(args)
//
// where name selects a registered handler and args is passed to the handler
// verbatim.  The server responds with the text form of the handler's result,
// or with an error response of the form
//
//	{error, 'message'}
//
// # Servers
//
// The core type defined by this package is the [Server]. To create a server
// and register handlers:
//
//	s := beamnode.NewServer(beamnode.Config{Node: "host", Port: 9100})
//	s.Handle("echo", func(ctx context.Context, args string) (term.Value, error) {
//	   return term.Str(args), nil
//	})
//
// To begin serving in the background, call Start. The server accepts one
// client at a time, and processes the requests of that client in order:
//
//	if err := s.Start(); err != nil {
//	   log.Fatalf("Start: %v", err)
//	}
//	defer s.Stop()
//
// Handlers run on the service goroutine, so a slow handler delays both the
// requests that follow it and the acceptance of new clients. The handler
// adapters in the handler package help to write handlers with typed
// arguments and results.
//
// Stop halts the server and closes its sockets. A stopped server may be
// started again, and listens on the same port as before.
//
// # Clients
//
// To call functions on a server, use [Dial] to obtain a [Client]:
//
//	c, err := beamnode.Dial(ctx, "localhost:9100")
//	if err != nil {
//	   log.Fatalf("Dial: %v", err)
//	}
//	defer c.Close()
//	text, err := c.Call(ctx, "echo", "hello")
//
// Error responses are reported by Call as errors of concrete type
// [*CallError].
//
// # Values
//
// The term package implements a tagged binary encoding for structured
// values, for handlers and producers that want to send values in that form.
// It is not applied to the text responses of the request path.
//
// # Metrics
//
// Servers maintain a collection of metrics while running. Use the
// [Server.Metrics] method to obtain an [expvar.Map] containing them:
//
//   - frames_received: counter of frames received
//   - frames_sent: counter of frames sent
//   - frames_rejected: counter of frames discarded (oversized or not UTF-8)
//   - sessions_accepted: counter of client sessions accepted
//   - sessions_active: gauge of client sessions currently active
//   - calls_in: counter of well-formed requests received
//   - calls_in_failed: counter of requests whose handler failed
//   - calls_unknown: counter of requests for unregistered functions
package beamnode
