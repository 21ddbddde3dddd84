package firmware

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

// squareGeometry keeps the numbers round: one tick is one millimetre.
var squareGeometry = Geometry{
	WheelCircumference: 1.0,
	WheelBase:          0.5,
	TicksPerRevolution: 1000,
	NominalMaxRPM:      60,
}

func TestOdometer_StraightLine(t *testing.T) {
	o := NewOdometer(squareGeometry)
	o.Update(500, 500) // half a revolution each side
	d := o.TakeDelta(10, 20)
	require.Equal(t, uint64(10), d.StartTime)
	require.Equal(t, uint64(20), d.EndTime)
	require.InDelta(t, 0.5, d.DeltaPosition[0], 1e-6)
	require.InDelta(t, 0.0, d.DeltaPosition[1], 1e-6)
	require.InDelta(t, 0.0, d.DeltaOrientation, 1e-6)
}

func TestOdometer_PureRotation(t *testing.T) {
	o := NewOdometer(squareGeometry)
	o.Update(-250, 250)
	d := o.TakeDelta(0, 1)
	require.InDelta(t, 0.0, d.DeltaPosition[0], 1e-6)
	require.InDelta(t, 0.0, d.DeltaPosition[1], 1e-6)
	// d_theta = (0.25 - (-0.25)) / 0.5 = 1 radian
	require.InDelta(t, 1.0, d.DeltaOrientation, 1e-6)
}

func TestOdometer_ArcBendsTheTrack(t *testing.T) {
	o := NewOdometer(squareGeometry)
	// Many small steps turning left: the track curves, so y grows and x
	// falls short of the straight-line distance.
	for i := 0; i < 100; i++ {
		o.Update(4, 6)
	}
	d := o.TakeDelta(0, 1)
	require.Greater(t, float64(d.DeltaPosition[1]), 0.0)
	require.Less(t, float64(d.DeltaPosition[0]), 0.5)
	require.InDelta(t, 0.4, d.DeltaOrientation, 1e-4) // 100 * (0.002/0.5)
}

func TestOdometer_TakeDeltaResetsAccumulator(t *testing.T) {
	o := NewOdometer(squareGeometry)
	o.Update(100, 300)
	o.TakeDelta(0, 1)
	d := o.TakeDelta(1, 2)
	require.Zero(t, d.DeltaPosition[0])
	require.Zero(t, d.DeltaPosition[1])
	require.Zero(t, d.DeltaOrientation)
}

func TestOdometer_HeadingResetsBetweenReports(t *testing.T) {
	o := NewOdometer(squareGeometry)
	o.Update(-250, 250) // quarter-ish turn inside the interval
	o.TakeDelta(0, 1)
	// After the reset the next interval integrates in its own frame:
	// straight travel is pure +x again.
	o.Update(500, 500)
	d := o.TakeDelta(1, 2)
	require.InDelta(t, 0.5, d.DeltaPosition[0], 1e-6)
	require.InDelta(t, 0.0, d.DeltaPosition[1], 1e-6)
}

func TestGeometry_TickDistance(t *testing.T) {
	g := DefaultGeometry
	require.InDelta(t, float64(g.WheelCircumference), float64(g.TickDistance(int64(g.TicksPerRevolution))), 1e-6)
	require.InDelta(t, float64(-g.WheelCircumference/2), float64(g.TickDistance(int64(g.TicksPerRevolution/2))*-1), 1e-6)
	require.True(t, math.Signbit(float64(g.TickDistance(-5))))
}
