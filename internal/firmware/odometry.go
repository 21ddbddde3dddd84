package firmware

import (
	"math"

	"github.com/sdfgeoff/slambot/internal/message"
)

// Odometer integrates wheel travel into a planar pose delta between host
// reports. Orientation is tracked within the interval only; it resets to
// zero on every TakeDelta, leaving global pose integration to the host.
type Odometer struct {
	geo     Geometry
	x, y    float32
	heading float32
}

// NewOdometer creates an integrator for the given drive train.
func NewOdometer(geo Geometry) *Odometer {
	return &Odometer{geo: geo}
}

// Update folds one control period's tick counts (already sign-corrected)
// into the accumulator.
func (o *Odometer) Update(leftTicks, rightTicks int64) {
	dLeft := o.geo.TickDistance(leftTicks)
	dRight := o.geo.TickDistance(rightTicks)
	ds := (dLeft + dRight) / 2
	dTheta := (dRight - dLeft) / o.geo.WheelBase
	sin, cos := math.Sincos(float64(o.heading))
	o.x += ds * float32(cos)
	o.y += ds * float32(sin)
	o.heading += dTheta
}

// TakeDelta returns the accumulated delta over [start, end] and zeroes
// the accumulator.
func (o *Odometer) TakeDelta(start, end uint64) *message.OdometryDelta {
	d := &message.OdometryDelta{
		StartTime:        start,
		EndTime:          end,
		DeltaPosition:    [2]float32{o.x, o.y},
		DeltaOrientation: o.heading,
	}
	o.x, o.y, o.heading = 0, 0, 0
	return d
}
