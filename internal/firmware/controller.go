package firmware

import (
	"io"
	"strconv"

	"github.com/sdfgeoff/slambot/internal/frame"
	"github.com/sdfgeoff/slambot/internal/message"
)

// Loop timing and safety, in microseconds of the raw clock.
const (
	clockRequestInterval = 1_000_000 // one sync request per second
	odometryInterval     = 100_000   // host-facing odometry report period
	watchdogTimeout      = 1_000_000 // stop the motors after silence
)

// EncoderSource supplies read-and-zero tick counts per control period.
type EncoderSource interface {
	TakeTicks() (left, right int64)
}

// MotorOutput accepts normalised wheel speeds.
type MotorOutput interface {
	SetSpeeds(left, right float32)
}

// Controller is the motor controller's cooperative loop body. The link is
// the host serial connection; reads must be non-blocking (a zero or
// near-zero timeout) so a tick never stalls.
type Controller struct {
	link     io.ReadWriter
	encoders EncoderSource
	motors   MotorOutput
	geo      Geometry
	clock    *Clock

	finder frame.Finder
	odo    *Odometer

	msgID        uint32
	lastClockReq uint64
	lastOdom     uint64
	odomStart    uint64
	lastCommand  uint64
	haveCommand  bool

	decodeErrors uint32
	encodeErrors uint32
	writeErrors  uint32

	rbuf [64]byte
	wbuf []byte
}

// NewController assembles the loop. raw is the local monotonic clock in
// microseconds.
func NewController(link io.ReadWriter, enc EncoderSource, motors MotorOutput, geo Geometry, raw func() uint64) *Controller {
	c := &Controller{
		link:     link,
		encoders: enc,
		motors:   motors,
		geo:      geo,
		clock:    NewClock(raw),
		odo:      NewOdometer(geo),
	}
	c.odomStart = c.clock.Now()
	return c
}

// Start announces the controller on the link.
func (c *Controller) Start() {
	c.send(&message.DiagnosticMsg{
		Level: message.DiagOK,
		Name:  "mc_boot",
	}, nil)
}

// Tick runs one control period: drain the link, fold encoder ticks into
// the odometer, emit due reports and enforce the watchdog.
func (c *Controller) Tick() {
	now := c.clock.Raw()

	c.drainLink(now)

	left, right := c.encoders.TakeTicks()
	// The left encoder is mirror mounted; its count runs backwards.
	c.odo.Update(-left, right)

	if now-c.lastOdom >= odometryInterval {
		c.lastOdom = now
		end := c.clock.Now()
		c.send(c.odo.TakeDelta(c.odomStart, end), nil)
		c.odomStart = end
	}

	if now-c.lastClockReq >= clockRequestInterval {
		c.lastClockReq = now
		c.send(c.clock.Request(), nil)
	}

	if c.haveCommand && now-c.lastCommand >= watchdogTimeout {
		c.haveCommand = false
		c.motors.SetSpeeds(0, 0)
	}
}

// drainLink consumes every available byte and handles complete frames.
func (c *Controller) drainLink(now uint64) {
	for {
		n, err := c.link.Read(c.rbuf[:])
		for _, b := range c.rbuf[:n] {
			if pkt, ok := c.finder.Push(b); ok && len(pkt) > 0 {
				c.handleFrame(pkt, now)
			}
		}
		if err != nil || n == 0 {
			return
		}
	}
}

func (c *Controller) handleFrame(pkt []byte, now uint64) {
	env, err := frame.Decode(pkt, &message.DefaultLimits)
	if err != nil {
		c.decodeErrors++
		return
	}
	switch data := env.Data.(type) {
	case *message.ClockResponse:
		rtt := c.clock.HandleResponse(data)
		c.send(&message.DiagnosticMsg{
			Level: message.DiagOK,
			Name:  "time_sync",
			Values: []message.KeyValue{
				{Key: "offset", Value: strconv.FormatUint(c.clock.Offset(), 10)},
				{Key: "rtt", Value: strconv.FormatUint(rtt, 10)},
			},
		}, nil)
	case *message.MotionVelocityRequest:
		left, right := WheelSpeeds(data.LinearVelocity, data.AngularVelocity, c.geo)
		c.motors.SetSpeeds(left, right)
		c.lastCommand = now
		c.haveCommand = true
	}
}

// send frames a payload and writes it to the link. Transport failures are
// counted and otherwise swallowed; the loop stays live.
func (c *Controller) send(data message.Payload, to *uint16) {
	env := &message.Envelope{
		To:   to,
		Data: data,
		Time: c.clock.Now(),
		ID:   c.msgID,
	}
	c.msgID++
	out, err := frame.AppendFrame(c.wbuf[:0], env)
	c.wbuf = out[:0]
	if err != nil {
		c.encodeErrors++
		return
	}
	if _, err := c.link.Write(out); err != nil {
		c.writeErrors++
	}
}
