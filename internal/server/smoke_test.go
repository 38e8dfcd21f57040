package server

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/corvid-labs/lurkd/internal/client"
	"github.com/corvid-labs/lurkd/internal/protocol"
	"github.com/corvid-labs/lurkd/internal/scripthost"
)

// echoHost is a Host that answers every Fight event with an Accept
// frame, so tests can exercise the full accept -> drain -> tick ->
// flush -> reap cycle without a real script engine.
type echoHost struct {
	adapter *scripthost.Adapter
}

func (h *echoHost) Tick(ctx context.Context) error {
	for {
		rec, ok := h.adapter.Poll()
		if !ok {
			return nil
		}
		if rec.Type == "fight" {
			h.adapter.SendAccept(client.ID(rec.ID), 6)
		}
	}
}

func dialAndWait(t *testing.T, addr string) net.Conn {
	t.Helper()
	d := net.Dialer{Timeout: 2 * time.Second}
	conn, err := d.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func isTimeout(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}

func TestSmokeServerAcceptsAndEchoesAccept(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	srv := NewServer(WithListenAddr(":0"), WithIdleBackoff(time.Millisecond))
	adapter := scripthost.New(srv.Events(), srv.Writes())
	srv.host = &echoHost{adapter: adapter}

	go func() {
		if err := srv.Serve(ctx); err != nil {
			t.Logf("Serve returned: %v", err)
		}
	}()
	select {
	case <-srv.Ready():
	case <-time.After(1 * time.Second):
		t.Fatal("server did not signal readiness")
	}

	conn := dialAndWait(t, srv.Addr())
	defer conn.Close()

	if _, err := conn.Write([]byte{0x03}); err != nil { // Fight
		t.Fatalf("write: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 2)
	n, err := io.ReadFull(conn, buf)
	if err != nil {
		t.Fatalf("read accept: %v", err)
	}
	if n != 2 || buf[0] != byte(protocol.KindAccept) || buf[1] != 6 {
		t.Fatalf("got %v, want Accept{code=6}", buf[:n])
	}
}

func TestSmokeServerPoisonsOnUnknownByte(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	srv := NewServer(WithListenAddr(":0"), WithIdleBackoff(time.Millisecond))
	adapter := scripthost.New(srv.Events(), srv.Writes())
	srv.host = &scripthost.Null{Adapter: adapter}

	go func() {
		if err := srv.Serve(ctx); err != nil {
			t.Logf("Serve returned: %v", err)
		}
	}()
	select {
	case <-srv.Ready():
	case <-time.After(1 * time.Second):
		t.Fatal("server did not signal readiness")
	}

	conn := dialAndWait(t, srv.Addr())
	defer conn.Close()

	if _, err := conn.Write([]byte{0xFF}); err != nil {
		t.Fatalf("write: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 1)
	_, err := conn.Read(buf)
	if err == nil {
		t.Fatal("expected the server to close the connection after an unknown type byte")
	}
	if isTimeout(err) {
		t.Fatal("server never removed the poisoned client within the deadline")
	}
}

func TestSmokeServerMaxClientsRejects(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	srv := NewServer(WithListenAddr(":0"), WithMaxClients(1), WithIdleBackoff(time.Millisecond))
	adapter := scripthost.New(srv.Events(), srv.Writes())
	srv.host = &scripthost.Null{Adapter: adapter}

	go func() {
		if err := srv.Serve(ctx); err != nil {
			t.Logf("Serve returned: %v", err)
		}
	}()
	select {
	case <-srv.Ready():
	case <-time.After(1 * time.Second):
		t.Fatal("server did not signal readiness")
	}

	first := dialAndWait(t, srv.Addr())
	defer first.Close()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(srv.clients) >= 1 {
			break
		}
		time.Sleep(time.Millisecond)
	}

	second := dialAndWait(t, srv.Addr())
	defer second.Close()
	second.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 1)
	_, err := second.Read(buf)
	if err == nil {
		t.Fatal("expected the second connection to be closed (max-clients reject)")
	}
	if isTimeout(err) {
		t.Fatal("second connection was never rejected within the deadline")
	}
}
