package nodes

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sdfgeoff/slambot/internal/message"
	"github.com/sdfgeoff/slambot/internal/router"
)

func feedDelta(t *testing.T, rt *router.Router, src *router.Mailbox, dx, dy, dtheta float32) {
	t.Helper()
	src.Send(&message.Envelope{
		Data: &message.OdometryDelta{DeltaPosition: [2]float32{dx, dy}, DeltaOrientation: dtheta},
		Time: 1,
	})
	rt.Poll()
}

func TestPositionEstimator_DeadReckoning(t *testing.T) {
	rt := router.New()
	est := NewPositionEstimator()
	rt.Register(est.Mailbox())
	src := router.NewMailbox()
	rt.Register(src)

	// Drive a unit square corner: forward, quarter turn, forward.
	feedDelta(t, rt, src, 1, 0, 0)
	est.Tick()
	feedDelta(t, rt, src, 0, 0, math.Pi/2)
	est.Tick()
	feedDelta(t, rt, src, 1, 0, 0)
	est.Tick()

	pos, orientation := est.Pose()
	require.InDelta(t, 1.0, pos[0], 1e-5)
	require.InDelta(t, 1.0, pos[1], 1e-5)
	require.InDelta(t, math.Pi/2, orientation, 1e-5)
}

func TestPositionEstimator_PublishesEvery100ms(t *testing.T) {
	rt := router.New()
	est := NewPositionEstimator()
	now := time.Unix(0, 0)
	est.now = func() time.Time { return now }
	est.micros = func() uint64 { return uint64(now.UnixMicro()) }
	rt.Register(est.Mailbox())

	sub := router.NewMailbox()
	sub.Subscribe(message.TopicPositionEstimate)
	rt.Register(sub)

	est.Tick() // first tick publishes immediately
	rt.Poll()
	require.Len(t, sub.FetchAll(), 1)

	now = now.Add(50 * time.Millisecond)
	est.Tick()
	rt.Poll()
	require.Empty(t, sub.FetchAll(), "published before the interval elapsed")

	now = now.Add(60 * time.Millisecond)
	est.Tick()
	rt.Poll()
	got := sub.FetchAll()
	require.Len(t, got, 1)
	_, ok := got[0].Data.(*message.PositionEstimate)
	require.True(t, ok)
}
