package sim

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sdfgeoff/slambot/internal/frame"
	"github.com/sdfgeoff/slambot/internal/message"
)

// loopLink is an in-memory host connection for integration tests.
type loopLink struct {
	inbound []byte
	written []byte
}

func newLoopLink() *loopLink { return &loopLink{} }

func (l *loopLink) Read(p []byte) (int, error) {
	n := copy(p, l.inbound)
	l.inbound = l.inbound[n:]
	return n, nil
}

func (l *loopLink) Write(p []byte) (int, error) {
	l.written = append(l.written, p...)
	return len(p), nil
}

func (l *loopLink) queueVelocity(t *testing.T, linear, angular float64) {
	t.Helper()
	framed, err := frame.AppendFrame(nil, &message.Envelope{
		Data: &message.MotionVelocityRequest{LinearVelocity: linear, AngularVelocity: angular},
		Time: 1,
	})
	require.NoError(t, err)
	l.inbound = append(l.inbound, framed...)
}

func (l *loopLink) odometryDeltas(t *testing.T) []*message.OdometryDelta {
	t.Helper()
	var f frame.Finder
	var deltas []*message.OdometryDelta
	for _, b := range l.written {
		pkt, ok := f.Push(b)
		if !ok || len(pkt) == 0 {
			continue
		}
		env, err := frame.Decode(pkt, nil)
		require.NoError(t, err)
		if d, ok := env.Data.(*message.OdometryDelta); ok {
			deltas = append(deltas, d)
		}
	}
	return deltas
}
