package firmware

import (
	"math/rand"
	"testing"

	"github.com/sdfgeoff/slambot/internal/message"
)

func TestClock_UnsyncedReturnsRaw(t *testing.T) {
	now := uint64(1000)
	c := NewClock(func() uint64 { return now })
	if c.Synced() {
		t.Fatal("fresh clock reports synced")
	}
	if got := c.Now(); got != 1000 {
		t.Fatalf("Now() = %d, want raw 1000", got)
	}
}

func TestClock_FirstSampleInitialisesFilters(t *testing.T) {
	now := uint64(0)
	c := NewClock(func() uint64 { return now })
	req := c.Request()
	now += 2000 // round trip
	rtt := c.HandleResponse(&message.ClockResponse{RequestTime: req.RequestTime, ReceivedTime: 500_000})
	if rtt != 2000 {
		t.Fatalf("first rtt = %d, want the raw sample 2000", rtt)
	}
	if !c.Synced() {
		t.Fatal("clock not synced after first response")
	}
	if want := uint64(500_000 + 1000); c.Offset() != want {
		t.Fatalf("offset = %d, want %d", c.Offset(), want)
	}
}

func TestClock_ConvergesOnTrueOffset(t *testing.T) {
	// A host whose clock leads ours by a fixed delta, reached over a link
	// with jittered latency. After plenty of exchanges the offset estimate
	// settles at delta plus the mean one-way latency.
	const (
		trueOffset  = uint64(5_000_000_000) // 5000 s ahead
		meanLatency = 1000                  // microseconds each way
	)
	rng := rand.New(rand.NewSource(1))
	now := uint64(0)
	c := NewClock(func() uint64 { return now })

	for i := 0; i < 1000; i++ {
		req := c.Request()
		latency := uint64(meanLatency/2 + rng.Intn(meanLatency)) // jitter around the mean
		hostAtReceive := now + latency + trueOffset
		now += 2 * latency
		c.HandleResponse(&message.ClockResponse{
			RequestTime:  req.RequestTime,
			ReceivedTime: hostAtReceive,
		})
	}

	want := trueOffset + meanLatency
	got := c.Offset()
	tolerance := want / 20 // within 5%
	if got < want-tolerance || got > want+tolerance {
		t.Fatalf("offset = %d, want %d ±%d", got, want, tolerance)
	}
	// Now() approximates host time.
	host := now + trueOffset
	if diff := int64(c.Now()) - int64(host); diff < -int64(tolerance) || diff > int64(tolerance) {
		t.Fatalf("Now() off by %d µs from host time", diff)
	}
}

func TestClock_RTTSmoothing(t *testing.T) {
	now := uint64(0)
	c := NewClock(func() uint64 { return now })
	req := c.Request()
	now += 1000
	c.HandleResponse(&message.ClockResponse{RequestTime: req.RequestTime, ReceivedTime: 1})
	// A wild outlier barely moves the smoothed estimate.
	req = c.Request()
	now += 100_000
	rtt := c.HandleResponse(&message.ClockResponse{RequestTime: req.RequestTime, ReceivedTime: 1})
	if want := uint64((1000*19 + 100_000) / 20); rtt != want {
		t.Fatalf("smoothed rtt = %d, want %d", rtt, want)
	}
}
