package client

import (
	"net"
	"testing"
	"time"

	"github.com/corvid-labs/lurkd/internal/protocol"
)

func tcpPair(t *testing.T) (clientSide, serverSide net.Conn) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		c, err := ln.Accept()
		if err != nil {
			accepted <- nil
			return
		}
		accepted <- c
	}()

	cl, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	sv := <-accepted
	if sv == nil {
		t.Fatal("accept failed")
	}
	return cl, sv
}

func pollUntil(t *testing.T, c *Client, timeout time.Duration) (Event, bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if ev, ok := c.PollEvent(); ok {
			return ev, true
		}
		if c.IsPoisoned() {
			return Event{}, false
		}
		time.Sleep(time.Millisecond)
	}
	return Event{}, false
}

func TestPollEventDecodesFight(t *testing.T) {
	peer, conn := tcpPair(t)
	defer peer.Close()
	defer conn.Close()

	c := New(1, conn)
	if _, err := peer.Write([]byte{0x03}); err != nil {
		t.Fatal(err)
	}
	ev, ok := pollUntil(t, c, 2*time.Second)
	if !ok {
		t.Fatal("expected a decoded event")
	}
	if ev.Kind != EventRead {
		t.Fatalf("Kind = %v, want EventRead", ev.Kind)
	}
	if _, isFight := ev.Frame.(protocol.Fight); !isFight {
		t.Fatalf("Frame = %T, want Fight", ev.Frame)
	}
	if c.IsPoisoned() {
		t.Fatal("client should not be poisoned after a valid frame")
	}
}

func TestPollEventUnknownByteIsPoisoning(t *testing.T) {
	peer, conn := tcpPair(t)
	defer peer.Close()
	defer conn.Close()

	c := New(2, conn)
	if _, err := peer.Write([]byte{0xFF}); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && !c.IsPoisoned() {
		c.PollEvent()
		time.Sleep(time.Millisecond)
	}
	if !c.IsPoisoned() {
		t.Fatal("expected client to be poisoned after an unknown type byte")
	}
	if ev, ok := c.PollEvent(); ok {
		t.Fatalf("poisoned client produced an event: %+v", ev)
	}
}

func TestPollEventEOFPoisons(t *testing.T) {
	peer, conn := tcpPair(t)
	defer conn.Close()

	c := New(3, conn)
	peer.Close()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && !c.IsPoisoned() {
		c.PollEvent()
		time.Sleep(time.Millisecond)
	}
	if !c.IsPoisoned() {
		t.Fatal("expected client to be poisoned after peer EOF")
	}
}

func TestSendAndFlush(t *testing.T) {
	peer, conn := tcpPair(t)
	defer peer.Close()
	defer conn.Close()

	c := New(4, conn)
	if err := c.Send(protocol.Accept{Code: 6}); err != nil {
		t.Fatal(err)
	}
	if err := c.Flush(); err != nil {
		t.Fatal(err)
	}

	buf := make([]byte, 2)
	peer.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := peer.Read(buf); err != nil {
		t.Fatal(err)
	}
	if buf[0] != byte(protocol.KindAccept) || buf[1] != 6 {
		t.Fatalf("got bytes %v, want [8 6]", buf)
	}
}

func TestJoinAndLeftEventsCarryID(t *testing.T) {
	peer, conn := tcpPair(t)
	defer peer.Close()
	defer conn.Close()

	c := New(42, conn)
	if ev := c.JoinEvent(); ev.ClientID != 42 || ev.Kind != EventJoin {
		t.Fatalf("JoinEvent = %+v", ev)
	}
	if ev := c.LeftEvent(); ev.ClientID != 42 || ev.Kind != EventLeft {
		t.Fatalf("LeftEvent = %+v", ev)
	}
}
