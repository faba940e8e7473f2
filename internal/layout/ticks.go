package layout

import (
	"time"
)

// MaxTicks is the most tick intervals NiceStep will allow across a span.
// Combined with the candidate ladder below, every span of 15µs or more gets
// between 5 and 15 ticks. Timestamps carry microseconds, so shorter spans
// between distinct events cannot be subdivided further.
const MaxTicks = 14

const day = 24 * time.Hour

// stepLadder lists "nice" tick intervals in increasing order. Adjacent steps
// differ by at most 2.5x.
var stepLadder = []time.Duration{
	time.Microsecond, 2 * time.Microsecond, 5 * time.Microsecond,
	10 * time.Microsecond, 20 * time.Microsecond, 50 * time.Microsecond,
	100 * time.Microsecond, 200 * time.Microsecond, 500 * time.Microsecond,
	time.Millisecond, 2 * time.Millisecond, 5 * time.Millisecond,
	10 * time.Millisecond, 20 * time.Millisecond, 50 * time.Millisecond,
	100 * time.Millisecond, 200 * time.Millisecond, 500 * time.Millisecond,
	time.Second, 2 * time.Second, 5 * time.Second, 10 * time.Second, 15 * time.Second, 30 * time.Second,
	time.Minute, 2 * time.Minute, 5 * time.Minute, 10 * time.Minute, 15 * time.Minute, 30 * time.Minute,
	time.Hour, 2 * time.Hour, 3 * time.Hour, 6 * time.Hour, 12 * time.Hour,
	day, 2 * day, 4 * day, 7 * day, 14 * day, 28 * day,
}

// Tick is one labelled axis position.
type Tick struct {
	At    time.Time
	X     float64
	Label string
}

// NiceStep returns the smallest ladder interval that divides span into at
// most MaxTicks intervals. Spans beyond the ladder use multiples of 28 days.
func NiceStep(span time.Duration) time.Duration {
	for _, step := range stepLadder {
		if span/step <= MaxTicks {
			return step
		}
	}
	top := stepLadder[len(stepLadder)-1]
	n := (span + MaxTicks*top - 1) / (MaxTicks * top)
	return top * n
}

// NiceTicks returns step-aligned instants within [lo, hi], aligned to UTC.
func NiceTicks(lo, hi time.Time) ([]time.Time, time.Duration) {
	if !hi.After(lo) {
		return []time.Time{lo}, 0
	}
	step := NiceStep(hi.Sub(lo))

	t := lo.UTC().Truncate(step)
	if t.Before(lo) {
		t = t.Add(step)
	}

	var ticks []time.Time
	for ; !t.After(hi); t = t.Add(step) {
		ticks = append(ticks, t)
	}
	return ticks, step
}

// TickLayout picks the label format for a tick step: finer steps show more
// clock precision, day-scale steps show the date.
func TickLayout(step time.Duration) string {
	switch {
	case step < time.Millisecond:
		return "15:04:05.000000"
	case step < time.Second:
		return "15:04:05.000"
	case step < time.Minute:
		return "15:04:05"
	case step < day:
		return "15:04"
	default:
		return "Jan 2 15:04"
	}
}

// Ticks computes labelled ticks for a scale.
func (s Scale) Ticks() []Tick {
	instants, step := NiceTicks(s.Lo, s.Hi())
	format := TickLayout(step)

	out := make([]Tick, 0, len(instants))
	for _, at := range instants {
		out = append(out, Tick{At: at, X: s.X(at), Label: at.UTC().Format(format)})
	}
	return out
}
