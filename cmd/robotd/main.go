// Command robotd is the host side of the robot fabric: it multiplexes the
// USB-serial link to the motor controller with any number of websocket
// peers through an in-process pub/sub router, and runs the host motion
// nodes (clock responder, position estimator, motion controller).
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/sdfgeoff/slambot/internal/adapter"
	"github.com/sdfgeoff/slambot/internal/metrics"
	"github.com/sdfgeoff/slambot/internal/nodes"
	"github.com/sdfgeoff/slambot/internal/router"
)

func main() {
	cfg, showVersion := parseFlags()
	if showVersion {
		fmt.Printf("robotd %s (commit %s, built %s)\n", version, commit, date)
		return
	}
	if cfg == nil {
		os.Exit(1)
	}
	l := setupLogger(cfg.logFormat, cfg.logLevel)
	l.Info("build_info", "version", version, "commit", commit, "date", date)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var wg sync.WaitGroup
	startMetricsLogger(ctx, cfg.logMetricsEvery, l, &wg)

	rt := router.New()

	clock := nodes.NewClockNode()
	rt.Register(clock.Mailbox())
	tap := nodes.NewLogTap(cfg.logAll)
	rt.Register(tap.Mailbox())
	estimator := nodes.NewPositionEstimator()
	rt.Register(estimator.Mailbox())
	motion := nodes.NewMotionController()
	rt.Register(motion.Mailbox())

	serialAdapter := adapter.NewSerialAdapter(rt, cfg.scanInterval)
	defer serialAdapter.Close()

	wsAdapter, err := adapter.NewWebsocketAdapter(rt, cfg.listenAddr)
	if err != nil {
		l.Error("ws_bind_error", "addr", cfg.listenAddr, "error", err)
		os.Exit(1)
	}
	defer wsAdapter.Close()

	if cfg.mdnsEnable {
		port := 0
		if _, p, err := net.SplitHostPort(wsAdapter.Addr()); err == nil {
			port, _ = strconv.Atoi(p)
		}
		cleanupMDNS, err := startMDNS(ctx, cfg, port)
		if err != nil {
			l.Warn("mdns_start_failed", "error", err)
		} else {
			l.Info("mdns_started", "service", mdnsServiceType, "port", port)
			defer cleanupMDNS()
		}
	}

	metrics.SetReadinessFunc(func() bool { return ctx.Err() == nil })
	if cfg.metricsAddr != "" {
		metrics.InitBuildInfo(version, commit, date)
		srvHTTP := metrics.StartHTTP(cfg.metricsAddr)
		defer func() { _ = srvHTTP.Shutdown(context.Background()) }()
	}

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.tickInterval)
	defer ticker.Stop()
	l.Info("robotd_running", "listen", wsAdapter.Addr(), "tick", cfg.tickInterval.String())
	for {
		select {
		case s := <-sigCh:
			l.Info("shutdown_signal", "signal", s.String())
			cancel()
			wg.Wait()
			return
		case <-ticker.C:
			clock.Tick()
			estimator.Tick()
			motion.Tick()
			tap.Tick()
			serialAdapter.Tick()
			wsAdapter.Tick()
			rt.Poll()
		}
	}
}
