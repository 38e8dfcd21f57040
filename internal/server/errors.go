package server

import (
	"errors"

	"github.com/corvid-labs/lurkd/internal/metrics"
)

// Sentinel errors used for wrapping so callers can classify via errors.Is.
var (
	ErrListen      = errors.New("listen")
	ErrAccept      = errors.New("accept")
	ErrClientRead  = errors.New("client_read")
	ErrClientWrite = errors.New("client_write")
	ErrProtocol    = errors.New("protocol")
	ErrBufferCap   = errors.New("buffer_limit")
	ErrScript      = errors.New("script")
	ErrContext     = errors.New("context_cancelled")
)

// mapErrToMetric maps wrapped sentinel errors to metrics labels.
func mapErrToMetric(err error) string {
	switch {
	case errors.Is(err, ErrClientRead):
		return metrics.ErrRead
	case errors.Is(err, ErrClientWrite):
		return metrics.ErrWrite
	case errors.Is(err, ErrProtocol):
		return metrics.ErrProtocol
	case errors.Is(err, ErrBufferCap):
		return metrics.ErrBufferLimit
	case errors.Is(err, ErrScript):
		return metrics.ErrScript
	case errors.Is(err, ErrAccept), errors.Is(err, ErrListen):
		return metrics.ErrAccept
	case errors.Is(err, ErrContext):
		return "context"
	default:
		return "other"
	}
}
