// Copyright (C) 2022 Michael J. Fromberger. All Rights Reserved.

// Package channel implements length-prefixed message framing over a
// reliable byte stream.
//
// Each frame on the wire is a 4-byte big-endian length followed by exactly
// that many bytes of body:
//
//	+------------------+------------------+
//	| length (4 bytes) | body (length     |
//	| big-endian u32)  | bytes)           |
//	+------------------+------------------+
package channel

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
)

// MaxFrameSize is the largest frame body accepted by ReadFrame.
const MaxFrameSize = 1_000_000

var (
	// ErrConnectionClosed is reported when the stream ends or fails before a
	// complete frame is read or written.
	ErrConnectionClosed = errors.New("connection closed")

	// ErrMessageTooLarge is reported by ReadFrame when the declared length of
	// a frame exceeds MaxFrameSize. The body of the frame is not consumed,
	// so the stream is no longer positioned at a frame boundary.
	ErrMessageTooLarge = errors.New("message too large")
)

// ReadFrame reads a single frame from r and returns its body.
//
// If r ends or fails before the frame is complete, ReadFrame reports an error
// wrapping ErrConnectionClosed. If the declared length exceeds MaxFrameSize,
// it reports an error wrapping ErrMessageTooLarge without reading the body.
func ReadFrame(r io.Reader) ([]byte, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, closedError("short frame header", err)
	}
	size := binary.BigEndian.Uint32(hdr[:])
	if size > MaxFrameSize {
		return nil, fmt.Errorf("frame length %d > %d: %w", size, MaxFrameSize, ErrMessageTooLarge)
	}
	body := make([]byte, int(size))
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, closedError("short frame body", err)
	}
	return body, nil
}

// WriteFrame writes body to w as a single frame. The header and body are
// delivered to w in a single Write call.
func WriteFrame(w io.Writer, body []byte) error {
	if uint64(len(body)) > math.MaxUint32 {
		return fmt.Errorf("frame length %d exceeds 32 bits", len(body))
	}
	buf := make([]byte, 4+len(body))
	binary.BigEndian.PutUint32(buf, uint32(len(body)))
	copy(buf[4:], body)

	// An io.Writer must report an error for a short write, but check anyway
	// so a misbehaving writer cannot silently truncate a frame.
	if nw, err := w.Write(buf); err != nil {
		return closedError("write frame", err)
	} else if nw != len(buf) {
		return closedError("write frame", io.ErrShortWrite)
	}
	return nil
}

func closedError(msg string, err error) error {
	return fmt.Errorf("%s: %w (%w)", msg, ErrConnectionClosed, err)
}

// IsClosed reports whether err indicates an orderly end of the stream,
// rather than a failure of the connection.
func IsClosed(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed)
}

// IO constructs a channel that receives frames from r and sends them to wc.
func IO(r io.Reader, wc io.WriteCloser) IOChannel {
	// N.B. The bufio package will reuse existing buffers if possible.
	return IOChannel{r: bufio.NewReader(r), w: wc, c: wc}
}

// An IOChannel sends and receives frames on a reader and a writer.  It is
// safe for concurrent use by one sender and one receiver.
type IOChannel struct {
	r *bufio.Reader
	w io.Writer
	c io.Closer
}

// Send sends body as a single frame.
func (c IOChannel) Send(body []byte) error { return WriteFrame(c.w, body) }

// Recv receives the body of the next frame.
func (c IOChannel) Recv() ([]byte, error) { return ReadFrame(c.r) }

// Close closes the underlying writer.
func (c IOChannel) Close() error { return c.c.Close() }
