package ir

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIntervalRecord_Duration(t *testing.T) {
	start := time.Date(2025, 7, 23, 0, 0, 0, 0, time.UTC)

	open := IntervalRecord{Entity: "a", Start: start, Status: StatusInProgress}
	assert.False(t, open.Ended())
	assert.False(t, open.Complete())
	assert.Zero(t, open.Duration())

	done := IntervalRecord{Entity: "a", Start: start, End: start.Add(90 * time.Second), Status: StatusComplete}
	assert.True(t, done.Ended())
	assert.True(t, done.Complete())
	assert.Equal(t, 90*time.Second, done.Duration())
}

func TestEventKind_String(t *testing.T) {
	tests := map[EventKind]string{
		Unrecognized:        "unrecognized",
		OverallStart:        "overall_start",
		EntityStartExplicit: "entity_start_explicit",
		EntityStartImplicit: "entity_start_implicit",
		EntityComplete:      "entity_complete",
	}
	for kind, want := range tests {
		assert.Equal(t, want, kind.String())
	}
	assert.True(t, EntityComplete.IsEntityEvent())
	assert.False(t, OverallStart.IsEntityEvent())
}

func TestSnapshot_CloneDoesNotAlias(t *testing.T) {
	s := Snapshot{Records: []IntervalRecord{{Entity: "a"}, {Entity: "b"}}}
	c := s.Clone()
	c.Records[0].Entity = "changed"

	assert.Equal(t, "a", s.Records[0].Entity)
	assert.Equal(t, []string{"a", "b"}, s.Entities())
}

func TestSnapshot_LookupAndInProgress(t *testing.T) {
	s := Snapshot{Records: []IntervalRecord{
		{Entity: "a", Status: StatusComplete},
		{Entity: "b", Status: StatusInProgress},
	}}
	r, ok := s.Lookup("b")
	assert.True(t, ok)
	assert.Equal(t, StatusInProgress, r.Status)
	_, ok = s.Lookup("missing")
	assert.False(t, ok)
	assert.True(t, s.InProgress())
	assert.False(t, Snapshot{}.InProgress())
	assert.True(t, Snapshot{}.Empty())
}
