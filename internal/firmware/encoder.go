// Package firmware is the motor controller's control loop: quadrature
// encoder accounting, the H-bridge motor driver, odometry integration,
// clock synchronisation with the host and the velocity mixer, tied
// together by Controller. Hardware sits behind the Line and PWM
// interfaces so the same loop runs on silicon or against the sim backend.
package firmware

import "sync"

// Line is one quadrature input: a level plus a latched edge interrupt.
type Line interface {
	Level() bool
	InterruptPending() bool
	ClearInterrupt()
}

// Encoder tracks one quadrature encoder.
//
// The count is a signed 64-bit tick counter: even at a pulse per
// microsecond it takes centuries to overflow, so wraparound is ignored.
type Encoder struct {
	A, B  Line
	count int64
}

// direction decodes an A-edge step from the two line levels.
func direction(a, b bool) int64 {
	if a != b {
		return 1
	}
	return -1
}

// service consumes any latched edges and steps the counter.
func (e *Encoder) service() {
	if e.A.InterruptPending() {
		e.A.ClearInterrupt()
		e.count += direction(e.A.Level(), e.B.Level())
	}
	if e.B.InterruptPending() {
		e.B.ClearInterrupt()
		e.count -= direction(e.A.Level(), e.B.Level())
	}
}

// Encoders is the pair of wheel encoders. The counters are the only state
// shared between the interrupt path and the main loop; both sides take
// the same lock.
type Encoders struct {
	mu          sync.Mutex
	Left, Right Encoder
}

// NewEncoders wires the four quadrature lines.
func NewEncoders(leftA, leftB, rightA, rightB Line) *Encoders {
	e := &Encoders{}
	e.Left.A, e.Left.B = leftA, leftB
	e.Right.A, e.Right.B = rightA, rightB
	return e
}

// ServiceInterrupt is the edge interrupt handler: it consumes every
// latched edge on either encoder under the critical section.
func (e *Encoders) ServiceInterrupt() {
	e.mu.Lock()
	e.Left.service()
	e.Right.service()
	e.mu.Unlock()
}

// TakeTicks reads and zeroes both counters under the critical section.
func (e *Encoders) TakeTicks() (left, right int64) {
	e.mu.Lock()
	left, right = e.Left.count, e.Right.count
	e.Left.count, e.Right.count = 0, 0
	e.mu.Unlock()
	return left, right
}
