// Package readbuf accumulates bytes pulled from one non-blocking socket
// into a single growable, head-consuming buffer.
package readbuf

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
)

// MaxSize is the hard cap on unparsed bytes held per connection. The
// owning client is responsible for poisoning itself once Len() exceeds
// this, before it polls the decoder again; this limits a single
// malformed peer to at most this much memory.
const MaxSize = 1 << 20

// chunkSize is how much is attempted per underlying socket read.
const chunkSize = 64 * 1024

// ReadBuffer holds unparsed inbound bytes for one connection. Bytes are
// appended only at the tail and removed only from the head; there is
// never a gap between what's unread and what's buffered.
type ReadBuffer struct {
	conn net.Conn
	buf  bytes.Buffer
}

// New wraps conn, explicitly putting its underlying fd into non-blocking
// mode where the platform exposes one (see setNonblock). On platforms or
// connection types without raw fd access this is a no-op and
// appendViaDeadline's per-read deadline stands in for true non-blocking
// reads instead.
func New(conn net.Conn) *ReadBuffer {
	_ = setNonblock(conn)
	return &ReadBuffer{conn: conn}
}

// View borrows the currently unparsed bytes. The slice is invalidated by
// the next call to AppendFromSource or Consume.
func (r *ReadBuffer) View() []byte { return r.buf.Bytes() }

// Len reports the number of unparsed bytes currently held.
func (r *ReadBuffer) Len() int { return r.buf.Len() }

// Consume discards the first n bytes of the buffer.
func (r *ReadBuffer) Consume(n int) {
	r.buf.Next(n)
	compact(&r.buf)
}

// AppendFromSource makes one non-blocking read of up to chunkSize bytes
// from the socket into the tail and returns the count appended. Bytes
// beyond chunkSize stay in the socket until the next call; it does not
// loop until the socket is empty.
// A would-block result is reported as (0, nil); an orderly close is
// reported as (0, err) with IsEOF(err) true. Any other error is an I/O
// failure the caller should poison the connection over.
func (r *ReadBuffer) AppendFromSource() (int, error) {
	n, err := appendOnce(r.conn, &r.buf)
	if err != nil {
		return n, fmt.Errorf("readbuf: append from source: %w", err)
	}
	return n, nil
}

// compact reclaims consumed prefix capacity once the buffer has grown
// large relative to what's still unread.
func compact(b *bytes.Buffer) bool {
	data := b.Bytes()
	if len(data) < 1024 {
		return false
	}
	if cap(data) > 0 && len(data)*4 < cap(data) {
		clone := make([]byte, len(data))
		copy(clone, data)
		*b = *bytes.NewBuffer(clone)
		return true
	}
	return false
}

// IsEOF reports whether err, as returned from AppendFromSource, signals
// an orderly close rather than a true I/O failure.
func IsEOF(err error) bool {
	return err != nil && errors.Is(err, io.EOF)
}
