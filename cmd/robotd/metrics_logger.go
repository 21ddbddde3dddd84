package main

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sdfgeoff/slambot/internal/metrics"
)

func startMetricsLogger(ctx context.Context, interval time.Duration, l *slog.Logger, wg *sync.WaitGroup) {
	if interval <= 0 {
		return
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				snap := metrics.Snap()
				l.Info("metrics_snapshot",
					"rx_packets", snap.RxPackets,
					"tx_packets", snap.TxPackets,
					"errors", snap.Errors,
					"routed", snap.RoutedFrames,
					"dropped", snap.DroppedFrames,
					"clients", snap.RouterClients,
				)
			case <-ctx.Done():
				return
			}
		}
	}()
}
