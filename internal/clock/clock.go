// internal/clock/clock.go
package clock

import (
	"math"
	"time"

	"github.com/jonboulle/clockwork"
)

// Clock supplies the current UTC wall time as float epoch seconds.
// Reads never block.
type Clock struct {
	src clockwork.Clock
}

// New wraps a clockwork source. A nil source means the real clock.
func New(src clockwork.Clock) Clock {
	if src == nil {
		src = clockwork.NewRealClock()
	}
	return Clock{src: src}
}

// Now returns seconds since the Unix epoch with sub-second precision.
func (c Clock) Now() float64 {
	src := c.src
	if src == nil {
		src = clockwork.NewRealClock()
	}
	return Epoch(src.Now())
}

// Epoch converts a time into float epoch seconds (UTC).
func Epoch(t time.Time) float64 {
	return float64(t.UTC().UnixNano()) / 1e9
}

// Time converts float epoch seconds back into a UTC time.
func Time(epoch float64) time.Time {
	sec, frac := math.Modf(epoch)
	return time.Unix(int64(sec), int64(math.Round(frac*1e9))).UTC()
}

// RoundMicro rounds seconds to microsecond precision.
func RoundMicro(seconds float64) float64 {
	return math.Round(seconds*1e6) / 1e6
}
