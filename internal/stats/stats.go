// Package stats summarizes upgrade durations across a snapshot.
//
// Only records with an observed start and end contribute durations.
// Retroactive records are counted but excluded: their zero width marks a
// missing start, not a measured upgrade.
package stats

import (
	"log/slog"
	"math"
	"time"

	"github.com/roach88/upgradeviz/internal/ir"
)

// Bucket is one histogram bin over durations in minutes. A duration d falls
// in the first bucket with d <= UpperMinutes.
type Bucket struct {
	Label        string  `json:"label"`
	UpperMinutes float64 `json:"-"`
	Count        int     `json:"count"`
	Percent      float64 `json:"percent"`
}

// defaultBuckets are the histogram bins, in order.
var defaultBuckets = []Bucket{
	{Label: "<2m", UpperMinutes: 2},
	{Label: "2-5m", UpperMinutes: 5},
	{Label: "5-10m", UpperMinutes: 10},
	{Label: "10-15m", UpperMinutes: 15},
	{Label: "15-30m", UpperMinutes: 30},
	{Label: "30-60m", UpperMinutes: 60},
	{Label: ">60m", UpperMinutes: math.Inf(1)},
}

// Extreme names the entity holding a minimum or maximum.
type Extreme struct {
	Entity  string  `json:"entity"`
	Minutes float64 `json:"minutes"`
}

// Report is the statistics summary of one snapshot.
type Report struct {
	Total       int `json:"total"`
	Completed   int `json:"completed"`
	InProgress  int `json:"in_progress"`
	Retroactive int `json:"retroactive"`

	// Measured is the number of durations the figures below are over.
	Measured int `json:"measured"`

	Min        Extreme  `json:"min"`
	Max        Extreme  `json:"max"`
	AvgMinutes float64  `json:"avg_minutes"`
	StdMinutes float64  `json:"stddev_minutes"`
	Histogram  []Bucket `json:"histogram"`
}

// HasDurations reports whether any duration was measured.
func (r Report) HasDurations() bool {
	return r.Measured > 0
}

// Compute builds a Report. Ties for min and max go to the earlier row.
func Compute(s ir.Snapshot) Report {
	r := Report{Total: len(s.Records)}
	r.Histogram = make([]Bucket, len(defaultBuckets))
	copy(r.Histogram, defaultBuckets)

	var durations []float64
	for _, rec := range s.Records {
		if !rec.Complete() {
			r.InProgress++
			continue
		}
		r.Completed++
		if rec.StartKind == ir.StartRetroactive {
			r.Retroactive++
			continue
		}

		m := minutes(rec.Duration())
		if len(durations) == 0 || m < r.Min.Minutes {
			r.Min = Extreme{Entity: rec.Entity, Minutes: m}
		}
		if len(durations) == 0 || m > r.Max.Minutes {
			r.Max = Extreme{Entity: rec.Entity, Minutes: m}
		}
		durations = append(durations, m)
		r.Histogram[bucketFor(m)].Count++
	}

	r.Measured = len(durations)
	if r.Measured == 0 {
		return r
	}

	var sum float64
	for _, d := range durations {
		sum += d
	}
	r.AvgMinutes = sum / float64(r.Measured)

	var variance float64
	for _, d := range durations {
		variance += (d - r.AvgMinutes) * (d - r.AvgMinutes)
	}
	r.StdMinutes = math.Sqrt(variance / float64(r.Measured))

	for i := range r.Histogram {
		r.Histogram[i].Percent = float64(r.Histogram[i].Count) / float64(r.Measured) * 100
	}
	return r
}

func bucketFor(m float64) int {
	for i, b := range defaultBuckets {
		if m <= b.UpperMinutes {
			return i
		}
	}
	return len(defaultBuckets) - 1
}

func minutes(d time.Duration) float64 {
	return d.Minutes()
}

// LogValue implements slog.LogValuer so a Report can be logged as a group.
func (r Report) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int("total", r.Total),
		slog.Int("completed", r.Completed),
		slog.Int("in_progress", r.InProgress),
		slog.Int("retroactive", r.Retroactive),
	}
	if r.HasDurations() {
		attrs = append(attrs,
			slog.String("min", formatMinutes(r.Min.Minutes)+" ("+r.Min.Entity+")"),
			slog.String("max", formatMinutes(r.Max.Minutes)+" ("+r.Max.Entity+")"),
			slog.String("avg", formatMinutes(r.AvgMinutes)),
			slog.String("stddev", formatMinutes(r.StdMinutes)),
		)
	}
	return slog.GroupValue(attrs...)
}
