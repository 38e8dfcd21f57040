package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/corvid-labs/lurkd/internal/mdns"
	"github.com/corvid-labs/lurkd/internal/metrics"
	"github.com/corvid-labs/lurkd/internal/scripthost"
	"github.com/corvid-labs/lurkd/internal/server"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cfg, showVersion := parseFlags()
	if showVersion {
		fmt.Printf("lurkd %s (commit %s, built %s)\n", version, commit, date)
		return
	}
	if cfg == nil {
		os.Exit(1)
	}
	l := setupLogger(cfg.logFormat, cfg.logLevel)

	entry, err := scripthost.ResolveEntryPoint(cfg.module)
	if err != nil {
		l.Error("script_load_error", "error", err)
		os.Exit(1)
	}
	l.Info("script_resolved", "entry", entry)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := server.NewServer(
		server.WithListenAddr(fmt.Sprintf("0.0.0.0:%d", cfg.port)),
		server.WithLogger(l),
		server.WithMaxClients(cfg.maxClients),
		server.WithIdleBackoff(cfg.idleBackoff),
	)
	adapter := scripthost.New(srv.Events(), srv.Writes())
	// No script interpreter is embedded here; Null drains the event queue so
	// the loop's accept/drain/tick/flush/reap cycle runs exactly as it
	// would under a real engine built against the same Adapter.
	srv.SetHost(&scripthost.Null{Adapter: adapter})

	go func() {
		if err := srv.Serve(ctx); err != nil {
			l.Error("tcp_server_error", "error", err)
			cancel()
		}
	}()

	select {
	case <-srv.Ready():
	case <-ctx.Done():
		l.Error("startup_failed")
		os.Exit(1)
	}

	var mdnsCleanup func()
	if cfg.mdnsEnable {
		portNum := cfg.port
		if _, p, err := net.SplitHostPort(srv.Addr()); err == nil {
			if pn, perr := strconv.Atoi(p); perr == nil {
				portNum = pn
			}
		}
		meta := []string{"version=" + version, "commit=" + commit}
		cleanup, err := mdns.Start(ctx, cfg.mdnsName, portNum, meta)
		if err != nil {
			l.Warn("mdns_start_failed", "error", err)
		} else {
			l.Info("mdns_started", "service", mdns.ServiceType, "port", portNum)
			mdnsCleanup = cleanup
		}
	}
	metrics.SetReadinessFunc(func() bool {
		select {
		case <-srv.Ready():
		default:
			return false
		}
		return ctx.Err() == nil
	})
	var metricsSrv interface{ Shutdown(context.Context) error }
	if cfg.metricsAddr != "" {
		metrics.InitBuildInfo(version, commit, date)
		metricsSrv = metrics.StartHTTP(cfg.metricsAddr)
	}

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	s := <-sigCh
	l.Info("shutdown_signal", "signal", s.String())
	cancel()
	if mdnsCleanup != nil {
		mdnsCleanup()
	}
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(context.Background())
	}
	_ = srv.Shutdown(context.Background())
}
