package firmware

import "github.com/sdfgeoff/slambot/internal/message"

// Clock disciplines the controller's raw monotonic clock against the
// host. Round-trip time and offset are exponentially smoothed; the first
// sample initialises both filters. All arithmetic is wrapping unsigned
// microseconds — wrap is beyond the silicon's lifetime.
type Clock struct {
	raw func() uint64

	offset    uint64
	hasOffset bool
	avgRTT    uint64
	hasRTT    bool
}

// NewClock wraps a raw microsecond source.
func NewClock(raw func() uint64) *Clock {
	return &Clock{raw: raw}
}

// Raw returns the undisciplined local clock.
func (c *Clock) Raw() uint64 { return c.raw() }

// Now returns the host-approximating time: raw plus the smoothed offset,
// or raw alone until the first response arrives.
func (c *Clock) Now() uint64 {
	now := c.raw()
	if c.hasOffset {
		return now + c.offset
	}
	return now
}

// Synced reports whether at least one response has been folded in.
func (c *Clock) Synced() bool { return c.hasOffset }

// Request builds the next sync request, stamped with the raw clock.
func (c *Clock) Request() *message.ClockRequest {
	return &message.ClockRequest{RequestTime: c.raw()}
}

// HandleResponse folds one host response into the filters and returns the
// smoothed round-trip time.
func (c *Clock) HandleResponse(resp *message.ClockResponse) uint64 {
	sample := c.raw() - resp.RequestTime
	if c.hasRTT {
		c.avgRTT = (c.avgRTT*19 + sample) / 20
	} else {
		c.avgRTT = sample
		c.hasRTT = true
	}

	// The host's clock at the midpoint of the round trip.
	estimate := resp.ReceivedTime + c.avgRTT/2
	if c.hasOffset {
		c.offset = (c.offset*7 + estimate) / 8
	} else {
		c.offset = estimate
		c.hasOffset = true
	}
	return c.avgRTT
}

// Offset returns the current offset estimate (0 until synced).
func (c *Clock) Offset() uint64 { return c.offset }
