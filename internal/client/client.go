// Package client implements the per-connection state machine: a socket
// wrapped in a read buffer and a buffered writer, decoding inbound bytes
// into events and encoding outbound frames back onto the wire.
package client

import (
	"bufio"
	"net"

	"github.com/corvid-labs/lurkd/internal/protocol"
	"github.com/corvid-labs/lurkd/internal/readbuf"
)

// ID is the monotonically assigned, never-reused client identifier.
type ID uint64

// EventKind tags the three shapes a Event can carry.
type EventKind int

const (
	EventJoin EventKind = iota
	EventLeft
	EventRead
)

// Event is emitted by a Client and routed into the event queue. Active
// is the only state in which EventRead is ever produced.
type Event struct {
	ClientID ID
	Kind     EventKind
	Frame    protocol.Frame // set only when Kind == EventRead
}

// Client wraps one accepted connection. id is never reused; a poisoned
// client produces no further events; the read buffer's bytes are
// strictly those received from the socket, in order.
type Client struct {
	id       ID
	conn     net.Conn
	rb       *readbuf.ReadBuffer
	w        *bufio.Writer
	poisoned bool
}

// New wraps conn, which the caller must already have accepted, under id.
func New(id ID, conn net.Conn) *Client {
	return &Client{
		id:   id,
		conn: conn,
		rb:   readbuf.New(conn),
		w:    bufio.NewWriter(conn),
	}
}

// ID returns the client's identifier.
func (c *Client) ID() ID { return c.id }

// IsPoisoned reports whether the client has hit a protocol or I/O fault
// and is pending removal.
func (c *Client) IsPoisoned() bool { return c.poisoned }

// Poison marks the client as faulted. Once set, PollEvent always
// returns (Event{}, false).
func (c *Client) Poison() { c.poisoned = true }

// JoinEvent synthesizes the lifecycle event fired when the client is
// accepted.
func (c *Client) JoinEvent() Event { return Event{ClientID: c.id, Kind: EventJoin} }

// LeftEvent synthesizes the lifecycle event fired on removal, whether by
// poison or EOF.
func (c *Client) LeftEvent() Event { return Event{ClientID: c.id, Kind: EventLeft} }

// PollEvent ensures the read buffer is non-empty by pulling from the
// socket, then tries to decode one frame. It never blocks.
//
//   - a decoded frame yields (EventRead, true)
//   - no full frame yet yields (Event{}, false) without poisoning
//   - an unknown type byte, an I/O error, or exceeding the 1 MiB buffer
//     bound poisons the client and yields (Event{}, false)
//
// EOF (orderly close) also poisons rather than leaving the client
// lingering; the server loop treats any poisoned client identically on
// the reap step, emitting LeftEvent once.
func (c *Client) PollEvent() (Event, bool) {
	if c.poisoned {
		return Event{}, false
	}

	if _, err := c.rb.AppendFromSource(); err != nil {
		c.poisoned = true
		return Event{}, false
	}

	if c.rb.Len() > readbuf.MaxSize {
		c.poisoned = true
		return Event{}, false
	}

	frame, n, status := protocol.PollNext(c.rb.View())
	switch status {
	case protocol.StatusComplete:
		c.rb.Consume(n)
		return Event{ClientID: c.id, Kind: EventRead, Frame: frame}, true
	case protocol.StatusBad:
		c.poisoned = true
		return Event{}, false
	default: // StatusPending
		return Event{}, false
	}
}

// Send encodes f and writes it to the client's buffered sink. The caller
// is responsible for calling Flush (directly, or via the server loop's
// flush step) before the bytes are guaranteed to reach the socket.
func (c *Client) Send(f protocol.Frame) error {
	_, err := protocol.Encode(c.w, f)
	if err != nil {
		c.poisoned = true
	}
	return err
}

// Flush pushes any buffered outbound bytes to the socket.
func (c *Client) Flush() error {
	if err := c.w.Flush(); err != nil {
		c.poisoned = true
		return err
	}
	return nil
}

// Close releases the underlying connection. Safe to call after the
// client has been poisoned or has reached EOF.
func (c *Client) Close() error {
	return c.conn.Close()
}
