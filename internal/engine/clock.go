package engine

import (
	"time"

	"github.com/roach88/upgradeviz/internal/ir"
)

// Clock supplies the "current" instant used to draw open (in-progress)
// intervals up to the right edge of the timeline.
type Clock interface {
	Now(s ir.Snapshot) time.Time
}

// StreamClock treats the last timestamp observed in the input as "now".
// Rendering the same log twice therefore produces the same document.
type StreamClock struct{}

// Now returns s.LastSeen.
func (StreamClock) Now(s ir.Snapshot) time.Time {
	return s.LastSeen
}

// ClockFunc adapts a plain time source, such as time.Now or a test clock.
type ClockFunc func() time.Time

// Now calls f.
func (f ClockFunc) Now(ir.Snapshot) time.Time {
	return f()
}

// WallClock returns the process wall clock. Used when following a live log.
func WallClock() Clock {
	return ClockFunc(time.Now)
}

// ClockFor maps a config clock name ("stream" or "wall") to a Clock.
// Unknown names fall back to StreamClock.
func ClockFor(name string) Clock {
	if name == "wall" {
		return WallClock()
	}
	return StreamClock{}
}
