// Package nodes contains the host-side router clients: the clock
// responder, the log tap, the position estimator and the motion
// controller. Each owns a mailbox and exposes a Tick driven by the host
// main loop.
package nodes

import (
	"time"

	"github.com/sdfgeoff/slambot/internal/message"
	"github.com/sdfgeoff/slambot/internal/router"
)

// HostMicros is the host wall clock in microseconds.
func HostMicros() uint64 { return uint64(time.Now().UnixMicro()) }

// ClockNode answers ClockRequest frames with the host's receive time so
// the motor controller can discipline its clock.
type ClockNode struct {
	mb  *router.Mailbox
	now func() uint64
}

func NewClockNode() *ClockNode {
	mb := router.NewMailbox()
	mb.Subscribe(message.TopicClockRequest)
	return &ClockNode{mb: mb, now: HostMicros}
}

func (c *ClockNode) Mailbox() *router.Mailbox { return c.mb }

func (c *ClockNode) Tick() {
	for _, env := range c.mb.FetchAll() {
		req, ok := env.Data.(*message.ClockRequest)
		if !ok {
			continue
		}
		now := c.now()
		c.mb.Send(&message.Envelope{
			To:   env.From,
			Data: &message.ClockResponse{RequestTime: req.RequestTime, ReceivedTime: now},
			Time: now,
			ID:   env.ID,
		})
	}
}
