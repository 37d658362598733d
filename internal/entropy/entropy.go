// Package entropy provides the determinism scaffolding for workflow code:
// a seeded PRNG and a logical clock. Workflow code must never read the OS
// random pool or the wall clock directly; it draws randomness and time from
// these types, which reproduce identical sequences on replay as long as the
// seed and epoch come from the engine (recorded side effect + logical time).
package entropy

import (
	"fmt"
	"time"
)

// fallbackSeed replaces a zero seed, which would lock xorshift at zero forever.
const fallbackSeed = 0xDEADBEEFCAFEBABE

// Source is a deterministic xorshift64 random source. Identical seeds produce
// identical sequences of Uint64, Float64, and UUID values.
//
// Source is not safe for concurrent use. That is fine in its intended home:
// the workflow body is single-threaded from the engine's point of view.
type Source struct {
	state uint64
}

// NewSource creates a Source. A zero seed is replaced with a fixed non-zero
// constant.
func NewSource(seed uint64) *Source {
	if seed == 0 {
		seed = fallbackSeed
	}
	return &Source{state: seed}
}

// Uint64 returns the next value of the xorshift64 sequence.
func (s *Source) Uint64() uint64 {
	x := s.state
	x ^= x << 13
	x ^= x >> 7
	x ^= x << 17
	s.state = x
	return x
}

// Float64 returns a value in [0, 1) with 53 bits of precision.
func (s *Source) Float64() float64 {
	return float64(s.Uint64()>>11) / float64(uint64(1)<<53)
}

// Float64Range returns a value in [lo, hi).
func (s *Source) Float64Range(lo, hi float64) float64 {
	return lo + s.Float64()*(hi-lo)
}

// UUID returns a deterministic UUID string with the v4 version and RFC 4122
// variant bits set. Only the bits are v4-shaped; the body comes from the
// seeded sequence.
func (s *Source) UUID() string {
	a := s.Uint64()
	b := s.Uint64()

	var buf [16]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(a >> (8 * i))
		buf[8+i] = byte(b >> (8 * i))
	}
	buf[6] = (buf[6] & 0x0F) | 0x40
	buf[8] = (buf[8] & 0x3F) | 0x80

	return fmt.Sprintf("%x-%x-%x-%x-%x", buf[0:4], buf[4:6], buf[6:8], buf[8:10], buf[10:16])
}

// Clock is a logical clock for workflow code. WallTime advances a
// millisecond tick per call on top of a fixed epoch, so successive reads
// within one activation are strictly increasing without touching the OS
// clock. Now may read the real monotonic clock: it is only used for
// duration measurements that are never observed across history.
type Clock struct {
	epoch time.Time
	tick  uint64
}

// NewClock creates a Clock anchored at the engine-provided logical time.
func NewClock(epoch time.Time) *Clock {
	return &Clock{epoch: epoch}
}

// WallTime returns the logical wall-clock time, strictly increasing across
// calls.
func (c *Clock) WallTime() time.Time {
	t := c.epoch.Add(time.Duration(c.tick) * time.Millisecond)
	c.tick++
	return t
}

// UnixMillis returns WallTime as milliseconds since the Unix epoch.
func (c *Clock) UnixMillis() int64 {
	return c.WallTime().UnixMilli()
}

// Now returns a real monotonic reading for within-activation duration
// measurement.
func (c *Clock) Now() time.Time {
	return time.Now()
}
