// Package sim is an in-memory hardware backend for the motor controller:
// PWM channels whose duty drives a simple wheel model, and quadrature
// lines that replay the resulting encoder edges through the real
// interrupt path. It lets cmd/robotmc run the full control loop without
// silicon.
package sim

import (
	"sync"
	"time"

	"github.com/sdfgeoff/slambot/internal/firmware"
)

// maxDuty matches a 12-bit PWM peripheral.
const maxDuty = 4095

// Channel is an in-memory PWM endpoint.
type Channel struct {
	mu   sync.Mutex
	duty uint32
}

func (c *Channel) SetDuty(d uint32) {
	c.mu.Lock()
	c.duty = d
	c.mu.Unlock()
}

func (c *Channel) MaxDuty() uint32 { return maxDuty }

// Duty returns the last commanded duty.
func (c *Channel) Duty() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.duty
}

// Line is a latched quadrature input.
type Line struct {
	level   bool
	pending bool
}

func (l *Line) Level() bool            { return l.level }
func (l *Line) InterruptPending() bool { return l.pending }
func (l *Line) ClearInterrupt()        { l.pending = false }

// wheel models one motor: complementary PWM in, quadrature edges out.
type wheel struct {
	chanA, chanB *Channel
	lineA, lineB *Line
	// mirrored flips both the drive direction and the tick direction,
	// modelling the left side's reversed wiring and mounting.
	mirrored bool
	phase    int
	residual float64
}

// speed recovers the signed normalised motor speed from the two duties.
func (w *wheel) speed() float64 {
	a, b := w.chanA.Duty(), w.chanB.Duty()
	if a == 0 && b == 0 {
		return 0
	}
	if b == maxDuty {
		return 1 - float64(a)/maxDuty
	}
	if a == maxDuty {
		return -(1 - float64(b)/maxDuty)
	}
	return 0
}

// quadrature phase table; forward motion walks it upward with A leading.
var phases = [4][2]bool{{false, false}, {true, false}, {true, true}, {false, true}}

// step advances one quadrature edge in the given direction and latches
// the line that changed.
func (w *wheel) step(dir int) {
	next := (w.phase + dir + 4) % 4
	na, nb := phases[next][0], phases[next][1]
	if na != w.lineA.level {
		w.lineA.level = na
		w.lineA.pending = true
	}
	if nb != w.lineB.level {
		w.lineB.level = nb
		w.lineB.pending = true
	}
	w.phase = next
}

// Robot is the assembled simulated base.
type Robot struct {
	geo      firmware.Geometry
	left     wheel
	right    wheel
	encoders *firmware.Encoders
	motors   *firmware.MotorPair
}

// NewRobot builds the simulated hardware for a drive train.
func NewRobot(geo firmware.Geometry) *Robot {
	r := &Robot{geo: geo}
	r.left = wheel{chanA: &Channel{}, chanB: &Channel{}, lineA: &Line{}, lineB: &Line{}, mirrored: true}
	r.right = wheel{chanA: &Channel{}, chanB: &Channel{}, lineA: &Line{}, lineB: &Line{}}
	r.encoders = firmware.NewEncoders(r.left.lineA, r.left.lineB, r.right.lineA, r.right.lineB)
	r.motors = &firmware.MotorPair{
		Left:  firmware.MotorDriver{A: r.left.chanA, B: r.left.chanB, Invert: true},
		Right: firmware.MotorDriver{A: r.right.chanA, B: r.right.chanB},
	}
	return r
}

// Encoders exposes the encoder block for the controller.
func (r *Robot) Encoders() *firmware.Encoders { return r.encoders }

// Motors exposes the motor pair for the controller.
func (r *Robot) Motors() *firmware.MotorPair { return r.motors }

// Step advances the physics by dt: each wheel turns at its commanded
// speed and the produced encoder edges are serviced through the real
// interrupt handler, one edge per interrupt.
func (r *Robot) Step(dt time.Duration) {
	r.stepWheel(&r.left, dt)
	r.stepWheel(&r.right, dt)
}

func (r *Robot) stepWheel(w *wheel, dt time.Duration) {
	speed := w.speed()
	if w.mirrored {
		speed = -speed
	}
	revPerSec := speed * float64(r.geo.NominalMaxRPM) / 60
	ticks := revPerSec*float64(r.geo.TicksPerRevolution)*dt.Seconds() + w.residual
	whole := int(ticks)
	w.residual = ticks - float64(whole)

	dir := 1
	if w.mirrored {
		dir = -1 // mirror mounting: forward travel counts down
	}
	if whole < 0 {
		whole = -whole
		dir = -dir
	}
	for i := 0; i < whole; i++ {
		w.step(dir)
		r.encoders.ServiceInterrupt()
	}
}
