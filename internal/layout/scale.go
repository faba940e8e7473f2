package layout

import (
	"math"
	"time"
)

// Scale is the linear mapping between instants in [Lo, Lo+Span] and plot
// x-coordinates in [0, Width].
type Scale struct {
	Lo    time.Time
	Span  time.Duration
	Width float64
}

// Hi returns the upper bound of the time range.
func (s Scale) Hi() time.Time {
	return s.Lo.Add(s.Span)
}

// X maps t to a plot x-coordinate. Instants outside the range extrapolate.
func (s Scale) X(t time.Time) float64 {
	if s.Span <= 0 {
		return 0
	}
	return float64(t.Sub(s.Lo)) / float64(s.Span) * s.Width
}

// Time is the inverse of X, rounded to the nearest nanosecond.
func (s Scale) Time(x float64) time.Time {
	if s.Width <= 0 {
		return s.Lo
	}
	return s.Lo.Add(time.Duration(math.Round(x / s.Width * float64(s.Span))))
}
