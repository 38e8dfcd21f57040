//go:build unix

package readbuf

import (
	"bytes"
	"errors"
	"io"
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

// syscallConner is satisfied by *net.TCPConn and similar; it exposes the
// raw fd so a single non-blocking read attempt can be issued directly,
// mirroring the socketcan device's raw unix.Read use.
type syscallConner interface {
	SyscallConn() (syscall.RawConn, error)
}

// setNonblock puts conn's underlying fd into true non-blocking mode via
// an explicit unix.SetNonblock syscall, reached through
// SyscallConn().Control. The runtime netpoller already treats accepted
// connections as non-blocking internally, but appendOnce bypasses the
// poller to issue its own unix.Read, so the fd's O_NONBLOCK flag is set
// here explicitly rather than relied on as a side effect.
func setNonblock(conn net.Conn) error {
	sc, ok := conn.(syscallConner)
	if !ok {
		return nil
	}
	rawConn, err := sc.SyscallConn()
	if err != nil {
		return err
	}
	var setErr error
	if ctrlErr := rawConn.Control(func(fd uintptr) {
		setErr = unix.SetNonblock(int(fd), true)
	}); ctrlErr != nil {
		return ctrlErr
	}
	return setErr
}

// appendOnce performs a single non-blocking read attempt. A would-block
// result (EAGAIN/EWOULDBLOCK) is reported as (0, nil): the caller tries
// again next tick rather than treating it as an error.
func appendOnce(conn net.Conn, buf *bytes.Buffer) (int, error) {
	sc, ok := conn.(syscallConner)
	if !ok {
		return appendViaDeadline(conn, buf)
	}
	rawConn, err := sc.SyscallConn()
	if err != nil {
		return 0, err
	}

	var chunk [chunkSize]byte
	var n int
	var readErr error
	ctrlErr := rawConn.Read(func(fd uintptr) bool {
		n, readErr = unix.Read(int(fd), chunk[:])
		return true
	})
	if ctrlErr != nil {
		return 0, ctrlErr
	}
	if readErr != nil {
		if errors.Is(readErr, unix.EAGAIN) || errors.Is(readErr, unix.EWOULDBLOCK) {
			return 0, nil
		}
		return 0, readErr
	}
	if n == 0 {
		return 0, io.EOF
	}
	return buf.Write(chunk[:n])
}
