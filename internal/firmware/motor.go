package firmware

// PWM is one H-bridge input channel.
type PWM interface {
	SetDuty(duty uint32)
	MaxDuty() uint32
}

// MotorDriver drives an H-bridge through two complementary PWM channels.
// Holding the active side at max duty and modulating the other gives
// slow-decay drive on both directions.
type MotorDriver struct {
	A, B PWM
	// Invert compensates for mirrored wiring.
	Invert bool
}

// deadband below which both channels are released.
const speedDeadband = 0.01

// SetSpeed applies a normalised signed speed, clamped to [-1, 1].
func (m *MotorDriver) SetSpeed(speed float32) {
	if m.Invert {
		speed = -speed
	}
	if speed > 1 {
		speed = 1
	} else if speed < -1 {
		speed = -1
	}
	if speed < speedDeadband && speed > -speedDeadband {
		m.A.SetDuty(0)
		m.B.SetDuty(0)
		return
	}
	amax, bmax := m.A.MaxDuty(), m.B.MaxDuty()
	if speed >= 0 {
		m.A.SetDuty(uint32((1 - speed) * float32(amax)))
		m.B.SetDuty(bmax)
	} else {
		m.A.SetDuty(amax)
		m.B.SetDuty(uint32((1 + speed) * float32(bmax)))
	}
}

// MotorPair drives the two base motors.
type MotorPair struct {
	Left, Right MotorDriver
}

// SetSpeeds applies both wheel speeds.
func (p *MotorPair) SetSpeeds(left, right float32) {
	p.Left.SetSpeed(left)
	p.Right.SetSpeed(right)
}
