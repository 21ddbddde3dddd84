package nodes

import (
	"math"
	"time"

	"github.com/sdfgeoff/slambot/internal/message"
	"github.com/sdfgeoff/slambot/internal/router"
)

// Proportional controller tuning.
const (
	commandInterval = 100 * time.Millisecond

	arrivalDistance = 0.05 // metres; inside this we consider the goal reached
	linearGain      = 0.5
	maxLinearSpeed  = 0.5 // m/s
	angularGain     = 2.0
	maxAngularSpeed = 2.0 // rad/s

	// When the heading error is large, slow the linear component so the
	// robot mostly turns in place.
	turnInPlaceThreshold = math.Pi / 4
	turnInPlaceScale     = 0.3
)

// MotionController turns latched motion targets and position estimates
// into velocity commands, emitted every 100 ms.
type MotionController struct {
	mb *router.Mailbox

	target *message.MotionTargetRequest

	position    [2]float64
	orientation float64
	havePose    bool

	lastSend time.Time
	now      func() time.Time
	micros   func() uint64
}

func NewMotionController() *MotionController {
	mb := router.NewMailbox()
	mb.Subscribe(message.TopicMotionTargetRequest, message.TopicPositionEstimate)
	return &MotionController{mb: mb, now: time.Now, micros: HostMicros}
}

func (m *MotionController) Mailbox() *router.Mailbox { return m.mb }

func (m *MotionController) Tick() {
	for _, env := range m.mb.FetchAll() {
		switch data := env.Data.(type) {
		case *message.MotionTargetRequest:
			target := *data
			m.target = &target
		case *message.PositionEstimate:
			m.position[0] = float64(data.Position[0])
			m.position[1] = float64(data.Position[1])
			m.orientation = float64(data.Orientation)
			m.havePose = true
		}
	}

	now := m.now()
	if m.target == nil || now.Sub(m.lastSend) < commandInterval {
		return
	}
	cmd, ok := m.command()
	if !ok {
		return
	}
	m.lastSend = now
	m.mb.Send(&message.Envelope{Data: cmd, Time: m.micros()})
}

// command computes the next velocity request for the latched target.
func (m *MotionController) command() (*message.MotionVelocityRequest, bool) {
	switch m.target.Mode {
	case message.ModeVelocity:
		return &message.MotionVelocityRequest{
			LinearVelocity:  m.target.Linear[0],
			AngularVelocity: m.target.Angular,
		}, true
	case message.ModeStop:
		return &message.MotionVelocityRequest{}, true
	case message.ModePosition:
		if !m.havePose {
			return nil, false
		}
		dx := m.target.Linear[0] - m.position[0]
		dy := m.target.Linear[1] - m.position[1]
		distance := math.Hypot(dx, dy)
		if distance < arrivalDistance {
			return &message.MotionVelocityRequest{}, true
		}
		headingError := wrapToPi(math.Atan2(dy, dx) - m.orientation)
		v := clamp(linearGain*distance, -maxLinearSpeed, maxLinearSpeed)
		w := clamp(angularGain*headingError, -maxAngularSpeed, maxAngularSpeed)
		if math.Abs(headingError) > turnInPlaceThreshold {
			v *= turnInPlaceScale
		}
		return &message.MotionVelocityRequest{LinearVelocity: v, AngularVelocity: w}, true
	}
	return nil, false
}

// wrapToPi normalises an angle into [-pi, pi].
func wrapToPi(a float64) float64 {
	return math.Atan2(math.Sin(a), math.Cos(a))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
