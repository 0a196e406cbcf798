// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

// Program beamnode is a command-line utility for running and calling
// beamnode servers, and for working with the tagged term encoding.
package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/creachadair/beamnode"
	"github.com/creachadair/beamnode/handler"
	"github.com/creachadair/beamnode/term"
	"github.com/creachadair/command"
	"github.com/creachadair/flax"
)

var flags struct {
	Config   string `flag:"config,Configuration file (TOML)"`
	LogLevel string `flag:"log-level,Log level (trace, debug, info, warn, error)"`
}

var serveFlags serveOptions

// serveOptions are flags that override the server configuration. Zero values
// leave the configured setting alone.
type serveOptions struct {
	Node      string        `flag:"node,Node name"`
	Host      string        `flag:"host,Host address to listen on"`
	Port      int           `flag:"port,Port to listen on"`
	StopGrace time.Duration `flag:"stop-grace,How long to wait for the service loop on shutdown"`
	Frames    bool          `flag:"frames,Log every frame exchanged"`
}

func (o serveOptions) apply(cfg *beamnode.Config) {
	if o.Node != "" {
		cfg.Node = o.Node
	}
	if o.Host != "" {
		cfg.Host = o.Host
	}
	if o.Port != 0 {
		cfg.Port = o.Port
	}
	if o.StopGrace != 0 {
		cfg.StopGrace = o.StopGrace
	}
}

var callFlags struct {
	Timeout time.Duration `flag:"timeout,default=10s,Timeout for the call"`
	Raw     bool          `flag:"raw,Print error responses verbatim instead of failing"`
}

var encodeFlags struct {
	Hex bool `flag:"hex,Print the encoding as hexadecimal"`
}

var decodeFlags struct {
	Raw bool `flag:"raw,Read raw bytes from stdin instead of hexadecimal"`
}

func main() {
	root := &command.C{
		Name:     filepath.Base(os.Args[0]),
		Help:     "Utilities for running and calling beamnode servers.",
		SetFlags: command.Flags(flax.MustBind, &flags),
		Commands: []*command.C{
			{
				Name:     "serve",
				Usage:    "[flags]",
				Help:     serveHelp,
				SetFlags: command.Flags(flax.MustBind, &serveFlags),
				Run:      runServe,
			},
			{
				Name:     "call",
				Usage:    "<host:port> <function> [<args>]",
				Help:     "Call a function on a running server and print its response.",
				SetFlags: command.Flags(flax.MustBind, &callFlags),
				Run:      runCall,
			},
			{
				Name:     "encode",
				Usage:    "<pattern> <argument>...",
				Help:     encodeHelp,
				SetFlags: command.Flags(flax.MustBind, &encodeFlags),
				Run:      runEncode,
			},
			{
				Name:  "decode",
				Usage: "[<hex>...]",
				Help: `Decode encoded terms and print their text.

Each argument is decoded as a hex string. If there are no arguments, hex text
is read from stdin, or raw bytes if --raw is set. Each term in the input is
printed on its own line.`,
				SetFlags: command.Flags(flax.MustBind, &decodeFlags),
				Run:      runDecode,
			},
			command.VersionCommand(),
			command.HelpCommand(nil),
		},
	}
	command.RunOrFail(root.NewEnv(nil).MergeFlags(true), os.Args[1:])
}

const serveHelp = `Run a server until interrupted.

The server registers the following functions:

  echo(text)   : respond with the argument text
  ping()       : respond with pong
  info()       : respond with a description of the server
  args(a, ...) : respond with a list of the split arguments

Settings are read from the configuration file given by --config, if any, and
may be overridden by flags.`

func runServe(env *command.Env) error {
	cfg, err := resolveSettings()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	cfg.Server.Logger = &logger

	s := beamnode.NewServer(cfg.Server)
	s.Handle("echo", handler.ParamResult(func(_ context.Context, text string) string {
		return text
	})).Handle("ping", handler.ResultOnly(func(context.Context) string {
		return "pong"
	})).Handle("info", handler.ResultOnly(serverInfo)).
		Handle("args", handler.ParamResult(func(_ context.Context, args handler.Args) []string {
			return args
		}))
	if serveFlags.Frames {
		s.LogFrames(func(fi beamnode.FrameInfo) {
			logger.Debug().Stringer("frame", fi).Msg("frame")
		})
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := s.Start(); err != nil {
		return err
	}
	logger.Info().Str("address", s.Address()).Msg("serving; interrupt to stop")
	<-ctx.Done()
	s.Stop()
	return nil
}

// serverInfo describes the server running the handler.
func serverInfo(ctx context.Context) term.Value {
	s := beamnode.ContextServer(ctx)
	if s == nil {
		return term.Nil{}
	}
	cfg := s.Config()
	return term.Map{
		{Key: term.Str("node"), Value: term.Str(cfg.Node)},
		{Key: term.Str("address"), Value: term.Str(s.Address())},
		{Key: term.Str("state"), Value: term.Str(s.State().String())},
		{Key: term.Str("peer"), Value: term.From(s.PeerAddr())},
	}
}

func runCall(env *command.Env) error {
	if len(env.Args) < 2 || len(env.Args) > 3 {
		return env.Usagef("Wrong number of arguments")
	}
	addr, name, args := env.Args[0], env.Args[1], ""
	if len(env.Args) == 3 {
		args = env.Args[2]
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return env.Usagef("Invalid address %q: %v", addr, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), callFlags.Timeout)
	defer cancel()
	c, err := beamnode.Dial(ctx, addr)
	if err != nil {
		return err
	}
	defer c.Close()

	if callFlags.Raw {
		rsp, err := c.Exchange(ctx, []byte(name+"("+args+")"))
		if err != nil {
			return err
		}
		fmt.Println(string(rsp))
		return nil
	}
	rsp, err := c.Call(ctx, name, args)
	if err != nil {
		return err
	}
	fmt.Println(rsp)
	return nil
}

const encodeHelp = `Encode arguments as a sequence of terms.

The pattern specifies the sequence of terms to encode. Whitespace in the
pattern is ignored; otherwise the pattern specifies how the corresponding
argument is processed:

  n  : nil (consumes no argument)
  b  : a Boolean (true or false)
  i  : an integer of any size
  f  : a floating-point value
  s  : a string
  q  : a quoted string (Go style)

In addition, a "(" begins a tuple and a "[" begins a list, which go until the
matching ")" or "]". The contents of the tuple or list are given by the
pattern inside. Tuples and lists may be nested.

The encoded terms are written to stdout back to back.`

func runEncode(env *command.Env) error {
	if len(env.Args) == 0 {
		return env.Usagef("Missing pattern argument")
	}
	vs, rest, err := formatTerms(env.Args[0], env.Args[1:])
	if err != nil {
		return err
	} else if len(rest) != 0 {
		return fmt.Errorf("extra arguments: %q", rest)
	}
	var b term.Builder
	for _, v := range vs {
		term.Append(&b, v)
	}
	if encodeFlags.Hex {
		fmt.Println(hex.EncodeToString(b.Bytes()))
	} else {
		os.Stdout.Write(b.Bytes())
	}
	return nil
}

func runDecode(env *command.Env) error {
	var inputs [][]byte
	if len(env.Args) == 0 {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return err
		}
		if !decodeFlags.Raw {
			data, err = hex.DecodeString(strings.Join(strings.Fields(string(data)), ""))
			if err != nil {
				return fmt.Errorf("invalid hex input: %w", err)
			}
		}
		inputs = append(inputs, data)
	}
	for i, arg := range env.Args {
		data, err := hex.DecodeString(arg)
		if err != nil {
			return fmt.Errorf("argument %d: invalid hex: %w", i+1, err)
		}
		inputs = append(inputs, data)
	}

	for _, data := range inputs {
		vs, err := decodeAll(data)
		for _, v := range vs {
			fmt.Println(quoteTop(v))
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// decodeAll decodes consecutive terms from data until it is exhausted.
func decodeAll(data []byte) ([]term.Value, error) {
	var vs []term.Value
	for pos := 0; pos < len(data); {
		v, next, err := term.Decode(data, pos)
		if err != nil {
			return vs, err
		}
		vs = append(vs, v)
		pos = next
	}
	if len(vs) == 0 {
		return nil, errors.New("no terms in input")
	}
	return vs, nil
}

// quoteTop renders v as text, quoting it if it is a string, so that strings
// are distinguishable from other terms.
func quoteTop(v term.Value) string {
	if s, ok := v.(term.Str); ok {
		return strconv.Quote(string(s))
	}
	return v.String()
}
