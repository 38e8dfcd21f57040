package readbuf

import (
	"bytes"
	"testing"
	"time"
)

// FuzzReadBufferNeverOverruns feeds arbitrary byte payloads through
// AppendFromSource and then drives View/Consume with a fuzzed split
// point, asserting the buffer never reports more bytes than were
// written, View() always reflects exactly the unconsumed tail, and
// Consume never panics even when asked to discard past what's
// buffered. This is the decoder's "never reads past view().len()"
// property (§8), exercised directly against the buffer it reads from.
func FuzzReadBufferNeverOverruns(f *testing.F) {
	f.Add([]byte("hello"), uint8(2))
	f.Add([]byte{}, uint8(0))
	f.Add([]byte{0x01, 0x02, 0x03}, uint8(255))
	f.Add(bytes.Repeat([]byte{0xAA}, 5000), uint8(128))

	f.Fuzz(func(t *testing.T, data []byte, consumeFrac uint8) {
		const maxFuzzInput = 1 << 16 // bound work, as the teacher's fuzz targets do
		if len(data) > maxFuzzInput {
			data = data[:maxFuzzInput]
		}

		cl, sv := tcpPair(t)
		defer cl.Close()
		defer sv.Close()

		rb := New(sv)
		go func() { _, _ = cl.Write(data) }()

		deadline := time.Now().Add(2 * time.Second)
		for rb.Len() < len(data) && time.Now().Before(deadline) {
			if _, err := rb.AppendFromSource(); err != nil && !IsEOF(err) {
				t.Fatalf("AppendFromSource: %v", err)
			}
			time.Sleep(time.Millisecond)
		}
		if rb.Len() != len(data) {
			t.Fatalf("buffered %d bytes, want %d", rb.Len(), len(data))
		}
		if !bytes.Equal(rb.View(), data) {
			t.Fatalf("View() does not match the bytes written")
		}

		n := 0
		if len(data) > 0 {
			n = int(consumeFrac) * len(data) / 255
		}
		rb.Consume(n)
		if rb.Len() != len(data)-n {
			t.Fatalf("Len() after Consume(%d) = %d, want %d", n, rb.Len(), len(data)-n)
		}
		if !bytes.Equal(rb.View(), data[n:]) {
			t.Fatalf("View() after Consume(%d) does not match the remaining tail", n)
		}

		// Over-consuming must never panic or leave a negative length.
		rb.Consume(rb.Len() + 1000)
		if rb.Len() != 0 {
			t.Fatalf("Len() after over-consume = %d, want 0", rb.Len())
		}
		if len(rb.View()) != 0 {
			t.Fatalf("View() after over-consume = %d bytes, want 0", len(rb.View()))
		}
	})
}
