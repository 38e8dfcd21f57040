// Package mdns advertises the running lurkd instance over mDNS/Bonjour
// so LAN clients can discover it without a configured address.
package mdns

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/grandcat/zeroconf"
)

// ServiceType is the Bonjour service type advertised for a Lurk server.
const ServiceType = "_lurk._tcp"

// Start registers instance (or a hostname-derived default) under
// ServiceType on port, with meta as TXT records, and returns a cleanup
// function that unregisters it. It is safe to call Start unconditionally
// and simply never invoke the returned cleanup if advertisement was
// never wanted.
func Start(ctx context.Context, instance string, port int, meta []string) (func(), error) {
	if instance == "" {
		host, _ := os.Hostname()
		instance = fmt.Sprintf("lurkd-%s", host)
	}
	svc, err := zeroconf.Register(instance, ServiceType, "local.", port, meta, nil)
	if err != nil {
		return nil, fmt.Errorf("mdns register: %w", err)
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		svc.Shutdown()
	}()
	return func() { close(done); svc.Shutdown(); time.Sleep(50 * time.Millisecond) }, nil
}
