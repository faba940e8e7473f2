package ir

import "time"

// Snapshot is the immutable result of a fold over the input.
// Records appear in first-observed order.
type Snapshot struct {
	Records  []IntervalRecord
	Overall  OverallWindow
	LastSeen time.Time // latest timestamp of any recognized event
}

// Empty reports whether no records were reconstructed.
func (s Snapshot) Empty() bool {
	return len(s.Records) == 0
}

// Lookup returns the record for entity, if present.
func (s Snapshot) Lookup(entity string) (IntervalRecord, bool) {
	for _, r := range s.Records {
		if r.Entity == entity {
			return r, true
		}
	}
	return IntervalRecord{}, false
}

// Entities returns entity names in row order.
func (s Snapshot) Entities() []string {
	names := make([]string, len(s.Records))
	for i, r := range s.Records {
		names[i] = r.Entity
	}
	return names
}

// InProgress reports whether any record is still open.
func (s Snapshot) InProgress() bool {
	for _, r := range s.Records {
		if !r.Complete() {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so callers cannot alias tracker-owned storage.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.Records = append([]IntervalRecord(nil), s.Records...)
	return out
}
