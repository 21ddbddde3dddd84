// Package message defines the payload catalog and the routed envelope
// shared by the host daemon and the motor controller. The catalog is a
// closed tagged union: every payload type maps to a stable topic string
// which doubles as the wire tag and the pub/sub routing key. New payloads
// are added by appending to the registry below; the wire is keyed by the
// topic string, so existing payloads are never renumbered.
package message

// Topic strings, one per payload variant.
const (
	TopicClockRequest          = "ClockRequest"
	TopicClockResponse         = "ClockResponse"
	TopicDiagnosticMsg         = "DiagnosticMsg"
	TopicOdometryDelta         = "OdometryDelta"
	TopicSubscriptionRequest   = "SubscriptionRequest"
	TopicPositionEstimate      = "PositionEstimate"
	TopicMotionVelocityRequest = "MotionVelocityRequest"
	TopicMotionTargetRequest   = "MotionTargetRequest"
)

// Payload is one variant of the catalog.
type Payload interface {
	Topic() string
}

// registry maps a topic tag to a factory for its payload type. Decoding an
// unknown tag fails; see Unmarshal.
var registry = map[string]func() Payload{
	TopicClockRequest:          func() Payload { return new(ClockRequest) },
	TopicClockResponse:         func() Payload { return new(ClockResponse) },
	TopicDiagnosticMsg:         func() Payload { return new(DiagnosticMsg) },
	TopicOdometryDelta:         func() Payload { return new(OdometryDelta) },
	TopicSubscriptionRequest:   func() Payload { return new(SubscriptionRequest) },
	TopicPositionEstimate:      func() Payload { return new(PositionEstimate) },
	TopicMotionVelocityRequest: func() Payload { return new(MotionVelocityRequest) },
	TopicMotionTargetRequest:   func() Payload { return new(MotionTargetRequest) },
}

// ClockRequest asks the peer for its current time. RequestTime is the
// sender's raw local clock in microseconds.
type ClockRequest struct {
	RequestTime uint64 `cbor:"request_time"`
}

func (*ClockRequest) Topic() string { return TopicClockRequest }

// ClockResponse echoes the request timestamp alongside the responder's
// clock at the moment of receipt, both in microseconds.
type ClockResponse struct {
	RequestTime  uint64 `cbor:"request_time"`
	ReceivedTime uint64 `cbor:"received_time"`
}

func (*ClockResponse) Topic() string { return TopicClockResponse }

// DiagnosticLevel mirrors the ROS diagnostic severity levels.
type DiagnosticLevel string

const (
	DiagOK    DiagnosticLevel = "Ok"
	DiagWarn  DiagnosticLevel = "Warn"
	DiagError DiagnosticLevel = "Error"
	DiagStale DiagnosticLevel = "Stale"
)

// KeyValue is one labelled reading inside a DiagnosticMsg.
type KeyValue struct {
	Key   string `cbor:"key"`
	Value string `cbor:"value"`
}

// DiagnosticMsg is a named status report with a bounded list of readings.
type DiagnosticMsg struct {
	Level   DiagnosticLevel `cbor:"level"`
	Name    string          `cbor:"name"`
	Message string          `cbor:"message"`
	Values  []KeyValue      `cbor:"values"`
}

func (*DiagnosticMsg) Topic() string { return TopicDiagnosticMsg }

// OdometryDelta is the pose change accumulated by the motor controller
// over [StartTime, EndTime]. DeltaPosition is (x, y) in metres within the
// interval's starting frame; DeltaOrientation is radians.
type OdometryDelta struct {
	StartTime        uint64     `cbor:"start_time"`
	EndTime          uint64     `cbor:"end_time"`
	DeltaPosition    [2]float32 `cbor:"delta_position"`
	DeltaOrientation float32    `cbor:"delta_orientation"`
}

func (*OdometryDelta) Topic() string { return TopicOdometryDelta }

// SubscriptionRequest replaces the sender's subscription set wholesale.
// Adapters consume it locally; it is never forwarded through the router.
type SubscriptionRequest struct {
	Topics []string `cbor:"topics"`
}

func (*SubscriptionRequest) Topic() string { return TopicSubscriptionRequest }

// PositionEstimate is the host's dead-reckoned pose.
type PositionEstimate struct {
	Timestamp   uint64     `cbor:"timestamp"`
	Position    [2]float32 `cbor:"position"`
	Orientation float32    `cbor:"orientation"`
}

func (*PositionEstimate) Topic() string { return TopicPositionEstimate }

// MotionVelocityRequest commands the robot base directly: linear metres
// per second, angular radians per second.
type MotionVelocityRequest struct {
	LinearVelocity  float64 `cbor:"linear_velocity"`
	AngularVelocity float64 `cbor:"angular_velocity"`
}

func (*MotionVelocityRequest) Topic() string { return TopicMotionVelocityRequest }

// MotionMode selects how a MotionTargetRequest is interpreted.
type MotionMode string

const (
	ModeVelocity MotionMode = "Velocity"
	ModePosition MotionMode = "Position"
	ModeStop     MotionMode = "Stop"
)

// MotionTargetRequest is a latched goal for the host motion controller.
// In Velocity mode Linear[0] is the forward speed; in Position mode Linear
// is the target (x, y).
type MotionTargetRequest struct {
	Linear  [2]float64 `cbor:"linear"`
	Angular float64    `cbor:"angular"`
	Mode    MotionMode `cbor:"mode"`
}

func (*MotionTargetRequest) Topic() string { return TopicMotionTargetRequest }
