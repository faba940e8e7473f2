package ir

import "time"

// EventKind tags a classified log line.
type EventKind int

const (
	// Unrecognized lines match none of the known shapes and are dropped.
	Unrecognized EventKind = iota
	// OverallStart is the batch-level "upgrading gateways" marker.
	OverallStart
	// EntityStartExplicit is an "Upgrading <name> to version <ver>" line.
	EntityStartExplicit
	// EntityStartImplicit is a status update carrying status 'installing'.
	EntityStartImplicit
	// EntityComplete is a status update carrying status 'complete'.
	EntityComplete
)

// String returns the snake_case name of the kind.
func (k EventKind) String() string {
	switch k {
	case OverallStart:
		return "overall_start"
	case EntityStartExplicit:
		return "entity_start_explicit"
	case EntityStartImplicit:
		return "entity_start_implicit"
	case EntityComplete:
		return "entity_complete"
	default:
		return "unrecognized"
	}
}

// IsEntityEvent reports whether events of this kind name an entity.
func (k EventKind) IsEntityEvent() bool {
	return k == EntityStartExplicit || k == EntityStartImplicit || k == EntityComplete
}

// Payload holds the loosely-typed fields extracted from a line.
// Every field is optional; an empty string means the field was absent or unparseable.
type Payload struct {
	PrevVersion   string // 'prev_ver' of a completion
	CurrVersion   string // 'curr_ver' of a completion
	StatusRaw     string // raw 'status' value of a status update
	TargetVersion string // version named by an explicit start
}

// LogEvent is one classified input line. It is built per line and discarded
// once folded into tracker state.
type LogEvent struct {
	Kind      EventKind
	Timestamp time.Time
	Entity    string // empty for OverallStart and Unrecognized
	Payload   Payload
	Line      int // 1-based input line number, 0 when unknown
}

// StartKind records how a record's start time was established.
type StartKind string

const (
	StartExplicit    StartKind = "explicit"
	StartInstalling  StartKind = "installing"
	StartRetroactive StartKind = "retroactive"
)

// Status is the lifecycle state of a record.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusComplete   Status = "complete"
)

// IntervalRecord is the reconstructed upgrade interval of one entity.
//
// Invariants maintained by the tracker:
//   - Start is set when the record is created and never changes
//   - once Status is StatusComplete, End is set and never changes
//   - Start <= End whenever End is set
type IntervalRecord struct {
	Entity        string
	Start         time.Time
	End           time.Time // zero while in progress
	StartKind     StartKind
	Status        Status
	PrevVersion   string
	CurrVersion   string
	TargetVersion string
}

// Ended reports whether an end time has been observed.
func (r IntervalRecord) Ended() bool {
	return !r.End.IsZero()
}

// Complete reports whether the record reached its terminal state.
func (r IntervalRecord) Complete() bool {
	return r.Status == StatusComplete
}

// Duration returns End-Start, or zero while the record is in progress.
func (r IntervalRecord) Duration() time.Duration {
	if !r.Ended() {
		return 0
	}
	return r.End.Sub(r.Start)
}

// OverallWindow carries the batch-level start marker, if one was seen.
type OverallWindow struct {
	Start time.Time
}

// Set reports whether an overall start marker was observed.
func (w OverallWindow) Set() bool {
	return !w.Start.IsZero()
}
