// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

package beamnode

import (
	"context"
	"expvar"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/creachadair/beamnode/term"
	"github.com/creachadair/taskgroup"
	"github.com/rs/zerolog"
)

// Default configuration values.
const (
	DefaultNode      = "beam_bpy"
	DefaultCookie    = "beam_bpy_cookie"
	DefaultHost      = "localhost"
	DefaultStopGrace = 5 * time.Second
)

// Config carries the settings of a Server. A Config is fixed when the server
// is constructed. Zero-valued fields take default values.
type Config struct {
	// Node is the name the server advertises (default DefaultNode).
	Node string

	// Cookie is the shared secret of the node (default DefaultCookie).
	// It is carried for the remote node's benefit and is not checked.
	Cookie string

	// Host is the address to listen on (default DefaultHost).
	Host string

	// Port is the TCP port to listen on. If 0, the system assigns a port
	// when the server is first initialized, and the same port is reused if
	// the server is stopped and initialized again.
	Port int

	// StopGrace bounds how long Stop waits for the service loop to exit
	// (default DefaultStopGrace).
	StopGrace time.Duration

	// Logger, if non-nil, receives log records from the server.
	// If nil, the server does not log.
	Logger *zerolog.Logger
}

func (c Config) withDefaults() Config {
	if c.Node == "" {
		c.Node = DefaultNode
	}
	if c.Cookie == "" {
		c.Cookie = DefaultCookie
	}
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.StopGrace <= 0 {
		c.StopGrace = DefaultStopGrace
	}
	return c
}

// A Handler processes a call from the remote node. The args string is the
// text between the parentheses of the request, passed through verbatim.
// The canonical text of the value it returns is sent back to the caller; a
// nil Value is reported as nil. If the handler reports an error, the text of
// the error is sent to the caller as an error response.
//
// A handler can obtain the server from its context argument using the
// ContextServer helper. The context ends when the server stops.
type Handler func(ctx context.Context, args string) (term.Value, error)

// A FrameLogger logs a frame exchanged with the remote node.
type FrameLogger func(FrameInfo)

// A FrameInfo combines a frame body and a flag indicating whether the frame
// was sent or received.
type FrameInfo struct {
	Body []byte // the frame body
	Sent bool   // whether the frame was sent (true) or received (false)
}

func (f FrameInfo) String() string {
	dir := "recv"
	if f.Sent {
		dir = "send"
	}
	return fmt.Sprintf("%s %q", dir, f.Body)
}

// State describes the lifecycle state of a Server.
type State int

const (
	Uninitialized State = iota // no listening socket
	Listening                  // listening, but not serving
	Idle                       // serving, waiting for a client
	Connected                  // serving a client session
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "UNINITIALIZED"
	case Listening:
		return "LISTENING"
	case Idle:
		return "IDLE"
	case Connected:
		return "CONNECTED"
	default:
		return fmt.Sprintf("state %d", int(s))
	}
}

// A Server accepts connections from a remote node and dispatches its calls
// to registered handlers. At most one client session is served at a time,
// and the requests of that session are handled one at a time in order of
// arrival.
//
// Call Handle to register handlers; this is safe at any time, including while
// the server is running. Call Start to begin serving in the background and
// Stop to halt and release the server's sockets. A stopped server can be
// started again.
type Server struct {
	cfg      Config
	log      zerolog.Logger
	metrics  *serverMetrics
	handlers registry

	μ       sync.Mutex
	lst     net.Listener  // listening socket, or nil
	port    int           // bound port, once known
	conn    net.Conn      // active session, or nil
	running bool          // the service loop is active
	stop    func()        // cancels the service loop context
	done    chan struct{} // closed when the service loop exits
	flog    FrameLogger   // what it says on the tin
}

// NewServer constructs a new uninitialized server with the given settings.
func NewServer(cfg Config) *Server {
	cfg = cfg.withDefaults()
	s := &Server{cfg: cfg, metrics: newServerMetrics()}
	if cfg.Logger != nil {
		s.log = cfg.Logger.With().Str("node", cfg.Node).Logger()
	} else {
		s.log = zerolog.Nop()
	}
	return s
}

var defaultServer = sync.OnceValue(func() *Server { return NewServer(Config{}) })

// Default returns a shared server with the default configuration, creating it
// on first use. Programs that need a different configuration should construct
// their own with NewServer and pass it where it is needed.
func Default() *Server { return defaultServer() }

// Config returns the configuration of s, with defaults applied.
func (s *Server) Config() Config { return s.cfg }

// Metrics returns a metrics map for the server. It is safe for the caller to
// add additional metrics to the map while the server is active.
func (s *Server) Metrics() *expvar.Map { return s.metrics.emap }

// Handle registers a handler for the specified function name, replacing any
// previous handler for that name. It is safe to call this while the server is
// running. Handle returns s to permit chaining. It panics if handler == nil.
func (s *Server) Handle(name string, handler Handler) *Server {
	if handler == nil {
		panic("beamnode: nil handler for " + strconv.Quote(name))
	}
	s.handlers.set(name, handler)
	s.log.Debug().Str("function", name).Msg("registered handler")
	return s
}

// LogFrames registers a callback that will be invoked for each frame
// exchanged with the remote node. Passing nil disables frame logging.  The
// callback is invoked synchronously by the service loop.
func (s *Server) LogFrames(log FrameLogger) *Server {
	s.μ.Lock()
	defer s.μ.Unlock()
	s.flog = log
	return s
}

// Init creates the listening socket for s, if it does not already have one.
// If the socket cannot be created, Init reports an error wrapping
// ErrBindFailed and s remains uninitialized.
func (s *Server) Init() error {
	s.μ.Lock()
	defer s.μ.Unlock()
	return s.initLocked()
}

func (s *Server) initLocked() error {
	if s.lst != nil {
		return nil
	}
	s.log.Info().Msg("initializing node")

	port := s.cfg.Port
	if s.port != 0 {
		port = s.port
	}
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(port))
	lst, err := net.Listen("tcp", addr)
	if err != nil {
		s.log.Error().Err(err).Str("addr", addr).Msg("failed to initialize node")
		return fmt.Errorf("%w: %w", ErrBindFailed, err)
	}
	s.lst = lst
	if ta, ok := lst.Addr().(*net.TCPAddr); ok {
		s.port = ta.Port
	}
	s.log.Info().Str("address", s.addressLocked()).Msg("node initialized")
	return nil
}

// Start starts the service loop of s in the background, initializing s first
// if necessary. If s is already running, Start reports ErrRunning.
func (s *Server) Start() error {
	s.μ.Lock()
	defer s.μ.Unlock()
	if s.running {
		s.log.Warn().Msg("server is already running")
		return ErrRunning
	}
	if err := s.initLocked(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.WithValue(context.Background(), serverContextKey{}, s))
	done := make(chan struct{})
	s.running, s.stop, s.done = true, cancel, done
	lst := s.lst

	taskgroup.Go(func() error {
		defer func() {
			s.μ.Lock()
			if s.done == done {
				s.running = false
			}
			s.μ.Unlock()
			close(done)
		}()
		s.serve(ctx, lst)
		return nil
	})
	s.log.Info().Msg("server started")
	return nil
}

// Stop halts the service loop of s and releases its sockets. Closing the
// sockets interrupts any pending accept or read; Stop then waits up to the
// configured grace period for the loop to exit. A handler that does not
// return may keep the loop from exiting, but does not prevent Stop from
// returning. It is safe to call Stop on a server that is not running.
func (s *Server) Stop() {
	s.μ.Lock()
	stop, done := s.stop, s.done
	s.running, s.stop, s.done = false, nil, nil
	s.μ.Unlock()

	if stop != nil {
		stop()
	}
	s.Finish()
	if done != nil {
		t := time.NewTimer(s.cfg.StopGrace)
		defer t.Stop()
		select {
		case <-done:
		case <-t.C:
			s.log.Warn().Dur("grace", s.cfg.StopGrace).Msg("service loop did not exit")
		}
		s.log.Info().Msg("server stopped")
	}
}

// Finish closes the client and listening sockets of s, if they are open.
// Errors from closing the sockets are ignored. It is safe to call Finish
// more than once.
func (s *Server) Finish() {
	s.μ.Lock()
	defer s.μ.Unlock()
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	if s.lst != nil {
		s.lst.Close()
		s.lst = nil
	}
}

// IsInitialized reports whether s has a listening socket.
func (s *Server) IsInitialized() bool {
	s.μ.Lock()
	defer s.μ.Unlock()
	return s.lst != nil
}

// IsConnected reports whether s has an active client session.
func (s *Server) IsConnected() bool {
	s.μ.Lock()
	defer s.μ.Unlock()
	return s.conn != nil
}

// State reports the current lifecycle state of s.
func (s *Server) State() State {
	s.μ.Lock()
	defer s.μ.Unlock()
	switch {
	case s.lst == nil:
		return Uninitialized
	case !s.running:
		return Listening
	case s.conn == nil:
		return Idle
	default:
		return Connected
	}
}

// Port reports the port s listens on. Before s is first initialized, this is
// the configured port.
func (s *Server) Port() int {
	s.μ.Lock()
	defer s.μ.Unlock()
	return s.portLocked()
}

func (s *Server) portLocked() int {
	if s.port != 0 {
		return s.port
	}
	return s.cfg.Port
}

// PeerAddr reports the remote address of the active client session, or nil
// if there is none.
func (s *Server) PeerAddr() net.Addr {
	s.μ.Lock()
	defer s.μ.Unlock()
	if s.conn == nil {
		return nil
	}
	return s.conn.RemoteAddr()
}

// Address returns the node address of s, in the form node@host:port.
func (s *Server) Address() string {
	s.μ.Lock()
	defer s.μ.Unlock()
	return s.addressLocked()
}

func (s *Server) addressLocked() string {
	return fmt.Sprintf("%s@%s:%d", s.cfg.Node, s.cfg.Host, s.portLocked())
}

// registry maps function names to handlers.
type registry struct {
	μ sync.RWMutex
	m map[string]Handler
}

func (r *registry) set(name string, h Handler) {
	r.μ.Lock()
	defer r.μ.Unlock()
	if r.m == nil {
		r.m = make(map[string]Handler)
	}
	r.m[name] = h
}

func (r *registry) lookup(name string) (Handler, bool) {
	r.μ.RLock()
	defer r.μ.RUnlock()
	h, ok := r.m[name]
	return h, ok
}

type serverContextKey struct{}

// ContextServer returns the Server associated with the given context, or nil
// if none is defined. The context passed to a Handler has this value.
func ContextServer(ctx context.Context) *Server {
	if v := ctx.Value(serverContextKey{}); v != nil {
		return v.(*Server)
	}
	return nil
}
