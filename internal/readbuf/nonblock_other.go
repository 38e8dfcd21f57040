//go:build !unix

package readbuf

import (
	"bytes"
	"net"
)

// appendOnce falls back to the deadline-based would-block detection on
// platforms without raw fd access.
func appendOnce(conn net.Conn, buf *bytes.Buffer) (int, error) {
	return appendViaDeadline(conn, buf)
}

// setNonblock is a no-op on platforms without a unix.SetNonblock
// equivalent; appendViaDeadline's per-read deadline stands in for true
// non-blocking mode there.
func setNonblock(conn net.Conn) error { return nil }
