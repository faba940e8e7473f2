package engine

import (
	"time"

	"github.com/roach88/upgradeviz/internal/ir"
)

// Transition reports what an event did to tracker state.
type Transition int

const (
	// TransitionIgnored: the event carried nothing to track.
	TransitionIgnored Transition = iota
	// TransitionOverall: an overall-start marker was seen.
	TransitionOverall
	// TransitionStarted: a new record was created by a start event.
	TransitionStarted
	// TransitionDuplicateStart: a start for a Started record; first start wins.
	TransitionDuplicateStart
	// TransitionCompleted: a Started record reached Completed.
	TransitionCompleted
	// TransitionClamped: as TransitionCompleted, but the end preceded the
	// start and was clamped to it.
	TransitionClamped
	// TransitionRetroactive: a completion with no prior start created a
	// zero-width Completed record.
	TransitionRetroactive
	// TransitionAfterComplete: any event for a Completed record.
	TransitionAfterComplete
)

var transitionNames = [...]string{
	TransitionIgnored:        "ignored",
	TransitionOverall:        "overall",
	TransitionStarted:        "started",
	TransitionDuplicateStart: "duplicate_start",
	TransitionCompleted:      "completed",
	TransitionClamped:        "clamped",
	TransitionRetroactive:    "retroactive",
	TransitionAfterComplete:  "after_complete",
}

func (t Transition) String() string {
	if int(t) < len(transitionNames) {
		return transitionNames[t]
	}
	return "unknown"
}

// Tracker folds events into interval records.
//
// A Tracker is not safe for concurrent use; it has exactly one writer.
type Tracker struct {
	index   map[string]int // entity -> position in records
	records []ir.IntervalRecord
	overall ir.OverallWindow
	seen    time.Time // latest timestamp of any recognized event
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{index: make(map[string]int)}
}

// Apply folds one event and reports the transition taken.
func (t *Tracker) Apply(ev ir.LogEvent) Transition {
	if ev.Kind == ir.Unrecognized {
		return TransitionIgnored
	}
	if ev.Timestamp.After(t.seen) {
		t.seen = ev.Timestamp
	}

	if ev.Kind == ir.OverallStart {
		if !t.overall.Set() || ev.Timestamp.Before(t.overall.Start) {
			t.overall.Start = ev.Timestamp
		}
		return TransitionOverall
	}

	if !ev.Kind.IsEntityEvent() || ev.Entity == "" {
		return TransitionIgnored
	}

	i, ok := t.index[ev.Entity]
	if !ok {
		return t.create(ev)
	}

	rec := &t.records[i]
	if rec.Complete() {
		return TransitionAfterComplete
	}

	switch ev.Kind {
	case ir.EntityStartExplicit, ir.EntityStartImplicit:
		return TransitionDuplicateStart
	case ir.EntityComplete:
		tr := TransitionCompleted
		end := ev.Timestamp
		if end.Before(rec.Start) {
			end = rec.Start
			tr = TransitionClamped
		}
		rec.End = end
		rec.Status = ir.StatusComplete
		rec.PrevVersion = ev.Payload.PrevVersion
		rec.CurrVersion = ev.Payload.CurrVersion
		return tr
	}
	return TransitionIgnored
}

func (t *Tracker) create(ev ir.LogEvent) Transition {
	rec := ir.IntervalRecord{
		Entity: ev.Entity,
		Start:  ev.Timestamp,
		Status: ir.StatusInProgress,
	}

	var tr Transition
	switch ev.Kind {
	case ir.EntityStartExplicit:
		rec.StartKind = ir.StartExplicit
		rec.TargetVersion = ev.Payload.TargetVersion
		tr = TransitionStarted
	case ir.EntityStartImplicit:
		rec.StartKind = ir.StartInstalling
		tr = TransitionStarted
	case ir.EntityComplete:
		rec.StartKind = ir.StartRetroactive
		rec.End = ev.Timestamp
		rec.Status = ir.StatusComplete
		rec.PrevVersion = ev.Payload.PrevVersion
		rec.CurrVersion = ev.Payload.CurrVersion
		tr = TransitionRetroactive
	default:
		return TransitionIgnored
	}

	t.index[ev.Entity] = len(t.records)
	t.records = append(t.records, rec)
	return tr
}

// Record returns the current record for entity.
func (t *Tracker) Record(entity string) (ir.IntervalRecord, bool) {
	i, ok := t.index[entity]
	if !ok {
		return ir.IntervalRecord{}, false
	}
	return t.records[i], true
}

// Snapshot returns an immutable copy of the current state, records in
// first-observed order.
func (t *Tracker) Snapshot() ir.Snapshot {
	return ir.Snapshot{
		Records:  t.records,
		Overall:  t.overall,
		LastSeen: t.seen,
	}.Clone()
}

// Fold applies events in order to a fresh tracker and returns its snapshot.
func Fold(events []ir.LogEvent) ir.Snapshot {
	t := NewTracker()
	for _, ev := range events {
		t.Apply(ev)
	}
	return t.Snapshot()
}
