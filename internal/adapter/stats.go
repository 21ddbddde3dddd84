// Package adapter bridges the router to external transports: USB-serial
// devices and websocket peers. Each transport endpoint is one router
// client with its own mailbox, packet accounting and once-per-second
// diagnostics.
package adapter

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/sdfgeoff/slambot/internal/frame"
	"github.com/sdfgeoff/slambot/internal/message"
	"github.com/sdfgeoff/slambot/internal/metrics"
	"github.com/sdfgeoff/slambot/internal/nodes"
	"github.com/sdfgeoff/slambot/internal/router"
)

const statsInterval = time.Second

// linkStats mirrors a link's health counters. They feed both the
// per-second DiagnosticMsg and the Prometheus counters.
type linkStats struct {
	decodeErrors uint32
	txPackets    uint32
	txBytes      uint32
	rxPackets    uint32
	rxBytes      uint32
	encodeErrors uint32
	writeErrors  uint32
}

// diagnostic renders the counters under the adapter's stats name.
func (s *linkStats) diagnostic(name string) *message.DiagnosticMsg {
	u := func(v uint32) string { return strconv.FormatUint(uint64(v), 10) }
	return &message.DiagnosticMsg{
		Level: message.DiagOK,
		Name:  name,
		Values: []message.KeyValue{
			{Key: "decode_errors", Value: u(s.decodeErrors)},
			{Key: "tx_packets", Value: u(s.txPackets)},
			{Key: "tx_bytes", Value: u(s.txBytes)},
			{Key: "rx_packets", Value: u(s.rxPackets)},
			{Key: "rx_bytes", Value: u(s.rxBytes)},
			{Key: "encode_errors", Value: u(s.encodeErrors)},
			{Key: "write_errors", Value: u(s.writeErrors)},
		},
	}
}

// deliverFrame decodes one COBS payload and hands it to the mailbox. A
// SubscriptionRequest is consumed here: it replaces the client's
// subscription set and is never forwarded.
func deliverFrame(mb *router.Mailbox, stats *linkStats, link string, payload []byte, log *slog.Logger) {
	stats.rxPackets++
	stats.rxBytes += uint32(len(payload))
	metrics.IncRx(link, len(payload))

	env, err := frame.Decode(payload, nil)
	if err != nil {
		stats.decodeErrors++
		metrics.IncError(link, metrics.ErrDecode)
		log.Debug("frame_decode_error", "link", link, "error", err)
		return
	}
	if sub, ok := env.Data.(*message.SubscriptionRequest); ok {
		if mb.SetSubscriptions(sub.Topics) {
			log.Info("subscriptions_updated", "link", link, "topics", sub.Topics)
		}
		return
	}
	mb.Send(env)
}

// sendStats queues the per-second diagnostics frame when due.
func sendStats(mb *router.Mailbox, stats *linkStats, name string, last *time.Time) {
	if time.Since(*last) < statsInterval {
		return
	}
	*last = time.Now()
	mb.Send(&message.Envelope{
		Data: stats.diagnostic(name),
		Time: nodes.HostMicros(),
	})
}
