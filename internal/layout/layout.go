// Package layout maps reconstructed interval records onto timeline geometry.
//
// Rows keep the tracker's first-observed order so the same log always
// produces the same chart. The time range runs from the earliest observed
// instant (overall start or any record start) to the latest end, extended to
// "now" while any record is still in progress.
package layout

import (
	"time"

	"github.com/roach88/upgradeviz/internal/config"
	"github.com/roach88/upgradeviz/internal/ir"
)

// Options parameterize Compute.
type Options struct {
	// Width is the plot width in pixels (chart width minus margins).
	Width float64

	// MinSpan pads a degenerate range where lo == hi.
	MinSpan time.Duration

	// Now is the instant open records extend to. Zero means the snapshot's
	// last observed timestamp.
	Now time.Time
}

// OptionsFor derives Options from chart settings.
func OptionsFor(c config.Chart, now time.Time) Options {
	return Options{Width: c.PlotWidth(), MinSpan: c.MinSpan(), Now: now}
}

// Row is one record placed on the time axis.
type Row struct {
	Record ir.IntervalRecord

	// End is where the bar stops: the record's end, or the range's upper
	// bound for open records.
	End time.Time

	// X0 and X1 are plot x-coordinates of Start and End.
	X0, X1 float64
}

// Open reports whether the row's record is still in progress.
func (r Row) Open() bool {
	return !r.Record.Ended()
}

// Layout is the computed geometry of a timeline.
type Layout struct {
	Rows    []Row
	Scale   Scale
	Ticks   []Tick
	Overall ir.OverallWindow
	Now     time.Time // instant open records were extended to
}

// Empty reports whether there is nothing to draw.
func (l Layout) Empty() bool {
	return len(l.Rows) == 0
}

// Compute lays out a snapshot.
func Compute(s ir.Snapshot, opts Options) Layout {
	now := opts.Now
	if now.IsZero() {
		now = s.LastSeen
	}

	out := Layout{Overall: s.Overall, Now: now}
	if s.Empty() {
		lo := s.Overall.Start
		if lo.IsZero() {
			lo = s.LastSeen
		}
		out.Scale = Scale{Lo: lo, Span: opts.MinSpan, Width: opts.Width}
		return out
	}

	lo, hi := Bounds(s, now)
	span := hi.Sub(lo)
	if span <= 0 {
		span = opts.MinSpan
	}
	out.Scale = Scale{Lo: lo, Span: span, Width: opts.Width}
	hi = out.Scale.Hi()

	out.Rows = make([]Row, len(s.Records))
	for i, rec := range s.Records {
		end := rec.End
		if !rec.Ended() {
			end = hi
		}
		out.Rows[i] = Row{
			Record: rec,
			End:    end,
			X0:     out.Scale.X(rec.Start),
			X1:     out.Scale.X(end),
		}
	}
	out.Ticks = out.Scale.Ticks()
	return out
}

// Bounds returns the time range [lo, hi] of a non-empty snapshot before
// padding. now bounds hi from below while any record is open.
func Bounds(s ir.Snapshot, now time.Time) (lo, hi time.Time) {
	lo = s.Records[0].Start
	hi = lo
	open := false

	for _, rec := range s.Records {
		if rec.Start.Before(lo) {
			lo = rec.Start
		}
		if rec.Start.After(hi) {
			hi = rec.Start
		}
		if rec.Ended() {
			if rec.End.After(hi) {
				hi = rec.End
			}
		} else {
			open = true
		}
	}
	if s.Overall.Set() && s.Overall.Start.Before(lo) {
		lo = s.Overall.Start
	}
	if open && now.After(hi) {
		hi = now
	}
	return lo, hi
}
