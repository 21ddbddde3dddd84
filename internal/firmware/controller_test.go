package firmware

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sdfgeoff/slambot/internal/frame"
	"github.com/sdfgeoff/slambot/internal/message"
)

// fakeLink is an in-memory host connection: queued inbound bytes, captured
// outbound frames. Read returns (0, nil) when drained, like a serial port
// with a zero timeout.
type fakeLink struct {
	inbound []byte
	written []byte
}

func (l *fakeLink) Read(p []byte) (int, error) {
	n := copy(p, l.inbound)
	l.inbound = l.inbound[n:]
	return n, nil
}

func (l *fakeLink) Write(p []byte) (int, error) {
	l.written = append(l.written, p...)
	return len(p), nil
}

// queue frames an envelope onto the inbound stream.
func (l *fakeLink) queue(t *testing.T, env *message.Envelope) {
	t.Helper()
	framed, err := frame.AppendFrame(nil, env)
	require.NoError(t, err)
	l.inbound = append(l.inbound, framed...)
}

// sent parses every complete frame written so far and clears the capture.
func (l *fakeLink) sent(t *testing.T) []*message.Envelope {
	t.Helper()
	var f frame.Finder
	var envs []*message.Envelope
	for _, b := range l.written {
		pkt, ok := f.Push(b)
		if !ok || len(pkt) == 0 {
			continue
		}
		env, err := frame.Decode(pkt, nil)
		require.NoError(t, err)
		envs = append(envs, env)
	}
	l.written = nil
	return envs
}

type fakeEncoders struct{ left, right int64 }

func (e *fakeEncoders) TakeTicks() (int64, int64) {
	l, r := e.left, e.right
	e.left, e.right = 0, 0
	return l, r
}

type fakeMotors struct {
	left, right float32
	calls       int
}

func (m *fakeMotors) SetSpeeds(l, r float32) {
	m.left, m.right = l, r
	m.calls++
}

type controllerHarness struct {
	link     *fakeLink
	encoders *fakeEncoders
	motors   *fakeMotors
	ctrl     *Controller
	now      uint64
}

func newControllerHarness() *controllerHarness {
	h := &controllerHarness{link: &fakeLink{}, encoders: &fakeEncoders{}, motors: &fakeMotors{}}
	h.ctrl = NewController(h.link, h.encoders, h.motors, driveGeometry, func() uint64 { return h.now })
	return h
}

func (h *controllerHarness) advance(us uint64) {
	h.now += us
	h.ctrl.Tick()
}

func byTopic(envs []*message.Envelope, topic string) []*message.Envelope {
	var out []*message.Envelope
	for _, e := range envs {
		if e.Data.Topic() == topic {
			out = append(out, e)
		}
	}
	return out
}

func TestController_BootDiagnostic(t *testing.T) {
	h := newControllerHarness()
	h.ctrl.Start()
	envs := h.link.sent(t)
	require.Len(t, envs, 1)
	diag, ok := envs[0].Data.(*message.DiagnosticMsg)
	require.True(t, ok)
	require.Equal(t, "mc_boot", diag.Name)
}

func TestController_SendsClockRequestsEverySecond(t *testing.T) {
	h := newControllerHarness()
	for i := 0; i < 25; i++ {
		h.advance(100_000) // 2.5 s in 100 ms ticks
	}
	reqs := byTopic(h.link.sent(t), message.TopicClockRequest)
	require.Len(t, reqs, 2)
}

func TestController_VelocityCommandDrivesMotors(t *testing.T) {
	h := newControllerHarness()
	h.link.queue(t, &message.Envelope{
		Data: &message.MotionVelocityRequest{LinearVelocity: 0.5, AngularVelocity: 0},
		Time: 1,
	})
	h.advance(1000)
	require.Equal(t, 1, h.motors.calls)
	require.InDelta(t, 0.5, float64(h.motors.left), 1e-6)
	require.InDelta(t, 0.5, float64(h.motors.right), 1e-6)
}

func TestController_WatchdogStopsMotorsAfterSilence(t *testing.T) {
	h := newControllerHarness()
	h.link.queue(t, &message.Envelope{
		Data: &message.MotionVelocityRequest{LinearVelocity: 1, AngularVelocity: 0},
		Time: 1,
	})
	h.advance(1000)
	require.InDelta(t, 1.0, float64(h.motors.left), 1e-6)

	// Just under the timeout: still driving.
	h.advance(900_000)
	require.InDelta(t, 1.0, float64(h.motors.left), 1e-6)

	// Over the timeout: both sides stopped, exactly once.
	h.advance(200_000)
	require.Zero(t, h.motors.left)
	require.Zero(t, h.motors.right)
	calls := h.motors.calls
	h.advance(100_000)
	require.Equal(t, calls, h.motors.calls, "watchdog must not re-fire")
}

func TestController_OdometryReportsAccumulateAndReset(t *testing.T) {
	h := newControllerHarness()
	// Left encoder counts backwards for forward travel.
	h.encoders.left, h.encoders.right = -500, 500
	h.advance(50_000)
	require.Empty(t, byTopic(h.link.sent(t), message.TopicOdometryDelta),
		"report emitted before the interval")

	h.encoders.left, h.encoders.right = -500, 500
	h.advance(60_000)
	reports := byTopic(h.link.sent(t), message.TopicOdometryDelta)
	require.Len(t, reports, 1)
	od := reports[0].Data.(*message.OdometryDelta)
	// Two updates of half a revolution per side on a 1 m wheel.
	require.InDelta(t, 1.0, float64(od.DeltaPosition[0]), 1e-5)
	require.InDelta(t, 0.0, float64(od.DeltaOrientation), 1e-5)

	// The next interval starts from a zeroed accumulator.
	h.advance(110_000)
	reports = byTopic(h.link.sent(t), message.TopicOdometryDelta)
	require.Len(t, reports, 1)
	od = reports[0].Data.(*message.OdometryDelta)
	require.Zero(t, od.DeltaPosition[0])
}

func TestController_ClockResponseEmitsTimeSync(t *testing.T) {
	h := newControllerHarness()
	// Trigger a request so its timestamp is realistic.
	h.advance(1_000_001)
	reqs := byTopic(h.link.sent(t), message.TopicClockRequest)
	require.Len(t, reqs, 1)
	req := reqs[0].Data.(*message.ClockRequest)

	h.link.queue(t, &message.Envelope{
		Data: &message.ClockResponse{RequestTime: req.RequestTime, ReceivedTime: 42_000_000},
		Time: 2,
	})
	h.advance(2000)
	diags := byTopic(h.link.sent(t), message.TopicDiagnosticMsg)
	require.Len(t, diags, 1)
	diag := diags[0].Data.(*message.DiagnosticMsg)
	require.Equal(t, "time_sync", diag.Name)
	keys := map[string]bool{}
	for _, kv := range diag.Values {
		keys[kv.Key] = true
	}
	require.True(t, keys["offset"] && keys["rtt"], "values = %v", diag.Values)
}

func TestController_GarbageOnLinkIsCounted(t *testing.T) {
	h := newControllerHarness()
	h.link.inbound = append(h.link.inbound, 0x00, 0xDE, 0xAD, 0xBE, 0xEF, 0x00)
	h.advance(1000)
	require.Equal(t, uint32(1), h.ctrl.decodeErrors)
	require.Zero(t, h.motors.calls)
}

func TestController_FrameIDsIncrement(t *testing.T) {
	h := newControllerHarness()
	h.ctrl.Start()
	h.advance(1_000_001) // clock request
	h.advance(1_000_001) // another
	envs := h.link.sent(t)
	require.GreaterOrEqual(t, len(envs), 3)
	for i := 1; i < len(envs); i++ {
		require.Equal(t, envs[i-1].ID+1, envs[i].ID, "IDs must be sequential")
	}
}
