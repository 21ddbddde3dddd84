package nodes

import (
	"math"
	"time"

	"github.com/sdfgeoff/slambot/internal/message"
	"github.com/sdfgeoff/slambot/internal/router"
)

const estimateInterval = 100 * time.Millisecond

// PositionEstimator dead-reckons the robot's planar pose from odometry
// deltas and publishes a PositionEstimate every 100 ms.
//
// Each delta's orientation change is applied before its translation is
// rotated into the world frame; for the small deltas the controller
// reports the bias is negligible.
type PositionEstimator struct {
	mb          *router.Mailbox
	position    [2]float32
	orientation float32

	lastSend time.Time
	now      func() time.Time
	micros   func() uint64
}

func NewPositionEstimator() *PositionEstimator {
	mb := router.NewMailbox()
	mb.Subscribe(message.TopicOdometryDelta)
	return &PositionEstimator{mb: mb, now: time.Now, micros: HostMicros}
}

func (e *PositionEstimator) Mailbox() *router.Mailbox { return e.mb }

// Pose returns the current estimate.
func (e *PositionEstimator) Pose() ([2]float32, float32) {
	return e.position, e.orientation
}

func (e *PositionEstimator) Tick() {
	for _, env := range e.mb.FetchAll() {
		od, ok := env.Data.(*message.OdometryDelta)
		if !ok {
			continue
		}
		e.orientation += od.DeltaOrientation
		sin, cos := math.Sincos(float64(e.orientation))
		dx, dy := float64(od.DeltaPosition[0]), float64(od.DeltaPosition[1])
		e.position[0] += float32(dx*cos - dy*sin)
		e.position[1] += float32(dx*sin + dy*cos)
	}

	if now := e.now(); now.Sub(e.lastSend) >= estimateInterval {
		e.lastSend = now
		e.mb.Send(&message.Envelope{
			Data: &message.PositionEstimate{
				Timestamp:   e.micros(),
				Position:    e.position,
				Orientation: e.orientation,
			},
			Time: e.micros(),
		})
	}
}
