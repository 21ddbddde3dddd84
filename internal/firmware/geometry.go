package firmware

import "math"

// Geometry is the drive train's physical description.
type Geometry struct {
	WheelCircumference float32 // metres
	WheelBase          float32 // metres between wheel contact points
	TicksPerRevolution float32 // quadrature ticks per wheel revolution
	NominalMaxRPM      float32 // wheel speed at full duty
}

// DefaultGeometry describes the robot as built: 20 mm wheel radius,
// 200 mm track, 11-slot encoders in quadrature behind a 35:1 gearbox.
var DefaultGeometry = Geometry{
	WheelCircumference: math.Pi * 2.0 * 0.02,
	WheelBase:          0.2,
	TicksPerRevolution: 11.0 * 4.0 * 35.0,
	NominalMaxRPM:      120.0,
}

// TickDistance converts encoder ticks to linear wheel travel in metres.
func (g Geometry) TickDistance(ticks int64) float32 {
	return float32(ticks) * g.WheelCircumference / g.TicksPerRevolution
}
