// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

package beamnode

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/creachadair/beamnode/channel"
)

// A Client issues calls to a node over a single connection. Calls on a
// client are serialized, so each response is matched with its request. A
// Client is safe for concurrent use by multiple goroutines.
type Client struct {
	μ    sync.Mutex
	conn net.Conn
	ch   channel.IOChannel
}

// Dial connects to the node at the given TCP address and returns a client
// for it.
func Dial(ctx context.Context, addr string) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %q: %w", addr, err)
	}
	return NewClient(conn), nil
}

// NewClient constructs a client that communicates on conn.  The client takes
// ownership of conn, which is closed when the client is closed.
func NewClient(conn net.Conn) *Client {
	return &Client{conn: conn, ch: channel.IO(conn, conn)}
}

// Call calls the named function on the remote node with the given argument
// text, and returns the text of its response. If the node answers with an
// error response, Call reports an error of concrete type *CallError.
func (c *Client) Call(ctx context.Context, name, args string) (string, error) {
	rsp, err := c.Exchange(ctx, []byte(name+"("+args+")"))
	if err != nil {
		return "", err
	}
	if msg, ok := parseErrorBody(rsp); ok {
		return "", &CallError{Message: msg}
	}
	return string(rsp), nil
}

// Exchange sends body as a single frame and returns the body of the next
// frame received. If ctx ends before the exchange completes, the pending
// operation is interrupted and the connection should be discarded.
func (c *Client) Exchange(ctx context.Context, body []byte) ([]byte, error) {
	c.μ.Lock()
	defer c.μ.Unlock()

	deadline, _ := ctx.Deadline() // zero if none
	if err := c.conn.SetDeadline(deadline); err != nil {
		return nil, err
	}
	release := context.AfterFunc(ctx, func() {
		c.conn.SetDeadline(time.Unix(1, 0)) // wake pending I/O
	})
	defer release()

	if err := c.ch.Send(body); err != nil {
		return nil, c.ctxErr(ctx, err)
	}
	rsp, err := c.ch.Recv()
	if err != nil {
		return nil, c.ctxErr(ctx, err)
	}
	return rsp, nil
}

// ctxErr prefers the error from ctx, if it has ended, to err.
func (*Client) ctxErr(ctx context.Context, err error) error {
	if cerr := ctx.Err(); cerr != nil {
		return cerr
	}
	return err
}

// Close closes the connection of c.
func (c *Client) Close() error { return c.conn.Close() }
