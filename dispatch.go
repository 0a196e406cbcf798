// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

package beamnode

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/creachadair/beamnode/channel"
	"github.com/creachadair/beamnode/term"
	"github.com/rs/zerolog"
)

// acceptRetryDelay is how long the service loop pauses after an unexpected
// accept failure.
const acceptRetryDelay = 100 * time.Millisecond

// serve is the service loop. It accepts one connection at a time from lst and
// serves it until it closes, until ctx ends or lst is closed.
func (s *Server) serve(ctx context.Context, lst net.Listener) {
	s.log.Debug().Msg("service loop started")
	defer s.log.Debug().Msg("service loop ended")

	for ctx.Err() == nil {
		conn, err := lst.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			s.log.Error().Err(err).Msg("error accepting connection")
			select {
			case <-ctx.Done():
				return
			case <-time.After(acceptRetryDelay):
			}
			continue
		}
		s.serveSession(ctx, lst, conn)
	}
}

// serveSession reads and dispatches requests from conn until the session
// ends. Any failure to read, decode, or answer a frame ends the session.
func (s *Server) serveSession(ctx context.Context, lst net.Listener, conn net.Conn) {
	if !s.setSession(lst, conn) {
		conn.Close() // the server is shutting down
		return
	}
	defer s.dropSession(conn)

	s.metrics.sessionAccept.Add(1)
	s.metrics.sessionActive.Add(1)
	defer s.metrics.sessionActive.Add(-1)

	log := s.log.With().Stringer("peer", conn.RemoteAddr()).Logger()
	log.Info().Msg("accepted connection")

	ch := channel.IO(conn, conn)
	for {
		body, err := ch.Recv()
		if err != nil {
			switch {
			case ctx.Err() != nil:
				log.Debug().Msg("session closed by shutdown")
			case errors.Is(err, channel.ErrMessageTooLarge):
				// The body was not consumed, so the stream is no longer at a
				// frame boundary and the session cannot continue.
				s.metrics.frameRejected.Add(1)
				log.Error().Err(err).Msg("rejected oversized frame, closing session")
			case channel.IsClosed(err):
				log.Info().Msg("client disconnected")
			default:
				log.Warn().Err(err).Msg("error reading frame, closing session")
			}
			return
		}
		s.metrics.frameRecv.Add(1)
		s.logFrame(FrameInfo{Body: body})

		if !utf8.Valid(body) {
			s.metrics.frameRejected.Add(1)
			log.Error().Msg("frame is not valid UTF-8, closing session")
			return
		}

		rsp := s.dispatch(ctx, log, string(body))
		s.logFrame(FrameInfo{Body: rsp, Sent: true})
		if err := ch.Send(rsp); err != nil {
			log.Error().Err(err).Msg("error sending response, closing session")
			return
		}
		s.metrics.frameSent.Add(1)
	}
}

// setSession records conn as the active session, and reports whether the
// server is still listening on lst. If not, the caller must not serve conn.
func (s *Server) setSession(lst net.Listener, conn net.Conn) bool {
	s.μ.Lock()
	defer s.μ.Unlock()
	if s.lst != lst {
		return false
	}
	s.conn = conn
	return true
}

// dropSession closes conn and clears the active session if it is conn.
func (s *Server) dropSession(conn net.Conn) {
	s.μ.Lock()
	defer s.μ.Unlock()
	conn.Close()
	if s.conn == conn {
		s.conn = nil
	}
}

func (s *Server) logFrame(fi FrameInfo) {
	s.μ.Lock()
	flog := s.flog
	s.μ.Unlock()
	if flog != nil {
		flog(fi)
	}
}

// dispatch handles a single request and returns the body of its response.
func (s *Server) dispatch(ctx context.Context, log zerolog.Logger, text string) []byte {
	log.Debug().Str("message", text).Msg("received message")

	name, args, err := parseRequest(text)
	if err != nil {
		log.Error().Str("message", text).Msg("invalid message format")
		return errorBody(err)
	}

	s.metrics.callIn.Add(1)
	v, err := s.Exec(ctx, name, args)
	if err != nil {
		if errors.Is(err, ErrUnknownFunction) {
			s.metrics.callUnknown.Add(1)
		} else {
			s.metrics.callInErr.Add(1)
		}
		log.Error().Err(err).Str("function", name).Msg("call failed")
		return errorBody(err)
	}
	return []byte(resultText(v))
}

// Exec invokes the local handler registered for name with the given argument
// text, and returns its result. If no handler is registered for name, Exec
// reports an error matching ErrUnknownFunction. A panic in the handler is
// recovered and reported as an error.
func (s *Server) Exec(ctx context.Context, name, args string) (_ term.Value, err error) {
	handler, ok := s.handlers.lookup(name)
	if !ok {
		return nil, unknownFunctionError(name)
	}
	if ContextServer(ctx) != s {
		ctx = context.WithValue(ctx, serverContextKey{}, s)
	}
	defer func() {
		if x := recover(); x != nil {
			err = fmt.Errorf("handler panicked (recovered): %v", x)
		}
	}()
	return handler(ctx, args)
}

// parseRequest splits a request of the form name(args) into its function name
// and argument text. The name is the text before the first "(" with
// surrounding whitespace removed; the arguments are the text between the
// first "(" and the last ")", unmodified.
func parseRequest(text string) (name, args string, _ error) {
	lp := strings.IndexByte(text, '(')
	rp := strings.LastIndexByte(text, ')')
	if lp < 0 || rp < lp {
		return "", "", ErrInvalidFormat
	}
	return strings.TrimSpace(text[:lp]), text[lp+1 : rp], nil
}

// resultText renders the result of a handler as the body of a response.
func resultText(v term.Value) string {
	if v == nil {
		return term.Nil{}.String()
	}
	return v.String()
}
