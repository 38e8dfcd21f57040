package readbuf

import (
	"bytes"
	"errors"
	"io"
	"net"
	"time"
)

// deadlineEpsilon is far enough in the future that a read already ready
// to complete finishes, but small enough that an idle socket times out
// almost immediately.
const deadlineEpsilon = time.Millisecond

// appendViaDeadline is the portable fallback for connections that don't
// expose a raw fd: set a near-zero read deadline and treat its timeout
// as would-block.
func appendViaDeadline(conn net.Conn, buf *bytes.Buffer) (int, error) {
	if err := conn.SetReadDeadline(time.Now().Add(deadlineEpsilon)); err != nil {
		return 0, err
	}
	defer conn.SetReadDeadline(time.Time{})

	var chunk [chunkSize]byte
	n, err := conn.Read(chunk[:])
	if n > 0 {
		wn, werr := buf.Write(chunk[:n])
		if werr != nil {
			return wn, werr
		}
	}
	if err != nil {
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return n, nil
		}
		if errors.Is(err, io.EOF) {
			return n, io.EOF
		}
		return n, err
	}
	return n, nil
}
