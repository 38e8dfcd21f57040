// Package server implements the single-threaded cooperative loop: accept
// pending connections, drain client reads into the event queue, run one
// script host tick, flush the write queue, then reap poisoned/EOF'd
// clients. No worker goroutines are spawned per connection; every
// socket is driven non-blocking from this one loop.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/corvid-labs/lurkd/internal/client"
	"github.com/corvid-labs/lurkd/internal/logging"
	"github.com/corvid-labs/lurkd/internal/metrics"
	"github.com/corvid-labs/lurkd/internal/queue"
	"github.com/corvid-labs/lurkd/internal/scripthost"
)

const (
	defaultIdleBackoff = 2 * time.Millisecond
	acceptPollDeadline = 200 * time.Microsecond
)

// Server owns the TCP listener, the client table, the two queues, and
// the script host driven once per tick.
type Server struct {
	mu   sync.RWMutex
	addr string

	maxClients  int
	idleBackoff time.Duration
	logger      *slog.Logger

	listener net.Listener
	nextID   uint64

	clients map[client.ID]*client.Client
	order   []client.ID

	events *queue.Queue[client.Event]
	writes *queue.Queue[scripthost.WriteMessage]
	host   scripthost.Host

	readyOnce sync.Once
	readyCh   chan struct{}
	errCh     chan error
	lastErrMu sync.Mutex
	lastErr   error

	totalAccepted uint64
	totalRemoved  uint64
}

type ServerOption func(*Server)

// NewServer builds a Server. A Host must be supplied via WithHost or
// SetHost before Serve is called, or Serve returns an error without
// listening; scripthost.Null is a valid choice when no real script
// engine is wired in.
func NewServer(opts ...ServerOption) *Server {
	s := &Server{
		idleBackoff: defaultIdleBackoff,
		readyCh:     make(chan struct{}),
		errCh:       make(chan error, 1),
		clients:     make(map[client.ID]*client.Client),
		events:      queue.New[client.Event](),
		writes:      queue.New[scripthost.WriteMessage](),
		logger:      logging.L(),
	}
	for _, o := range opts {
		o(s)
	}
	if s.addr == "" {
		s.addr = ":0"
	}
	return s
}

func WithListenAddr(a string) ServerOption { return func(s *Server) { s.addr = a } }
func WithMaxClients(n int) ServerOption {
	return func(s *Server) {
		if n > 0 {
			s.maxClients = n
		}
	}
}
func WithIdleBackoff(d time.Duration) ServerOption {
	return func(s *Server) {
		if d > 0 {
			s.idleBackoff = d
		}
	}
}
func WithHost(h scripthost.Host) ServerOption { return func(s *Server) { s.host = h } }

// SetHost assigns the script host after construction, once an Adapter
// has been built from Events()/Writes(). Must be called before Serve.
func (s *Server) SetHost(h scripthost.Host) { s.host = h }
func WithLogger(l *slog.Logger) ServerOption {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// Events returns the shared event queue, for publishing into a script
// host's global environment.
func (s *Server) Events() *queue.Queue[client.Event] { return s.events }

// Writes returns the shared write queue, for publishing into a script
// host's global environment.
func (s *Server) Writes() *queue.Queue[scripthost.WriteMessage] { return s.writes }

func (s *Server) Addr() string           { s.mu.RLock(); defer s.mu.RUnlock(); return s.addr }
func (s *Server) setAddr(a string)       { s.mu.Lock(); s.addr = a; s.mu.Unlock() }
func (s *Server) Ready() <-chan struct{} { return s.readyCh }
func (s *Server) Errors() <-chan error   { return s.errCh }

func (s *Server) setError(err error) {
	if err == nil {
		return
	}
	s.lastErrMu.Lock()
	s.lastErr = err
	s.lastErrMu.Unlock()
	select {
	case s.errCh <- err:
	default:
	}
}

func (s *Server) LastError() error {
	s.lastErrMu.Lock()
	defer s.lastErrMu.Unlock()
	return s.lastErr
}

// Serve opens the listener and runs the tick loop until ctx is
// cancelled or a fatal error occurs.
func (s *Server) Serve(ctx context.Context) error {
	if s.host == nil {
		return fmt.Errorf("server: no script host configured")
	}

	s.mu.Lock()
	addr := s.addr
	s.mu.Unlock()

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		wrap := fmt.Errorf("%w: %v", ErrListen, err)
		metrics.IncError(mapErrToMetric(wrap))
		s.setError(wrap)
		return wrap
	}
	s.setAddr(ln.Addr().String())
	s.listener = ln
	s.readyOnce.Do(func() { close(s.readyCh) })
	s.logger.Info("tcp_listen", "addr", s.Addr())

	defer ln.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		accepted := s.acceptPending(ctx, ln)
		drained := s.drainReads()

		tickStart := time.Now()
		if err := s.host.Tick(ctx); err != nil {
			wrap := fmt.Errorf("%w: %v", ErrScript, err)
			metrics.IncError(mapErrToMetric(wrap))
			metrics.IncScriptError()
			s.logger.Error("script_tick_error", "error", err)
		}
		metrics.ObserveScriptTick(time.Since(tickStart).Seconds())

		flushed := s.flushWrites()
		removed := s.reap()

		metrics.SetActiveClients(len(s.clients))
		metrics.SetEventQueueDepth(s.events.Len())
		metrics.SetWriteQueueDepth(s.writes.Len())

		if !accepted && !drained && !flushed && removed == 0 {
			time.Sleep(s.idleBackoff)
		}
	}
}

// acceptPending drains every connection currently waiting to be
// accepted, without ever blocking past acceptPollDeadline.
func (s *Server) acceptPending(ctx context.Context, ln net.Listener) (acceptedAny bool) {
	tcpLn, canDeadline := ln.(*net.TCPListener)
	for {
		if canDeadline {
			_ = tcpLn.SetDeadline(time.Now().Add(acceptPollDeadline))
		}
		conn, err := ln.Accept()
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				return acceptedAny
			}
			select {
			case <-ctx.Done():
				return acceptedAny
			default:
			}
			wrap := fmt.Errorf("%w: %v", ErrAccept, err)
			metrics.IncError(mapErrToMetric(wrap))
			s.setError(wrap)
			return acceptedAny
		}

		acceptedAny = true
		s.totalAccepted++
		metrics.IncAccepted()

		if s.maxClients > 0 && len(s.clients) >= s.maxClients {
			metrics.IncRejected()
			s.logger.Warn("client_reject_max", "max_clients", s.maxClients)
			_ = conn.Close()
			continue
		}
		if tcp, ok := conn.(*net.TCPConn); ok {
			_ = tcp.SetNoDelay(true)
		}

		id := client.ID(atomic.AddUint64(&s.nextID, 1))
		c := client.New(id, conn)
		s.clients[id] = c
		s.order = append(s.order, id)
		sort.Slice(s.order, func(i, j int) bool { return s.order[i] < s.order[j] })
		s.events.Enqueue(c.JoinEvent())
		s.logger.Info("client_joined", "id", id)
	}
}

// drainReads polls every tracked client, in id order, until each stops
// producing events, enqueuing whatever it decodes.
func (s *Server) drainReads() (drainedAny bool) {
	for _, id := range s.order {
		c, ok := s.clients[id]
		if !ok || c.IsPoisoned() {
			continue
		}
		for {
			ev, ok := c.PollEvent()
			if !ok {
				break
			}
			drainedAny = true
			metrics.IncDecoded()
			s.events.Enqueue(ev)
		}
	}
	return drainedAny
}

// flushWrites routes every queued write to its target client's encoder
// and flushes the buffered sink.
func (s *Server) flushWrites() (flushedAny bool) {
	for {
		msg, ok := s.writes.TryDequeue()
		if !ok {
			return flushedAny
		}
		flushedAny = true
		c, ok := s.clients[msg.TargetID]
		if !ok {
			continue
		}
		if err := c.Send(msg.Frame); err != nil {
			wrap := fmt.Errorf("%w: %v", ErrClientWrite, err)
			metrics.IncError(mapErrToMetric(wrap))
			continue
		}
		if err := c.Flush(); err != nil {
			wrap := fmt.Errorf("%w: %v", ErrClientWrite, err)
			metrics.IncError(mapErrToMetric(wrap))
			continue
		}
		metrics.IncEncoded()
	}
}

// reap removes every poisoned client, emitting Left and closing its
// socket, and returns how many were removed.
func (s *Server) reap() int {
	removed := 0
	kept := s.order[:0]
	for _, id := range s.order {
		c, ok := s.clients[id]
		if !ok {
			continue
		}
		if !c.IsPoisoned() {
			kept = append(kept, id)
			continue
		}
		s.events.Enqueue(c.LeftEvent())
		_ = c.Close()
		delete(s.clients, id)
		removed++
		s.totalRemoved++
		metrics.IncPoisoned()
		metrics.IncRemoved()
		s.logger.Info("client_removed", "id", id)
	}
	s.order = kept
	return removed
}

// Shutdown closes the listener and every tracked client.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	ln := s.listener
	s.listener = nil
	s.mu.Unlock()
	if ln != nil {
		_ = ln.Close()
	}
	for id, c := range s.clients {
		_ = c.Close()
		delete(s.clients, id)
	}
	s.order = nil
	s.logger.Info("shutdown_summary", "accepted", s.totalAccepted, "removed", s.totalRemoved)
	return nil
}
