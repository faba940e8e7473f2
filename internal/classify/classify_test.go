package classify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/upgradeviz/internal/config"
	"github.com/roach88/upgradeviz/internal/ir"
	"github.com/roach88/upgradeviz/internal/testutil"
)

func newClassifier(t *testing.T) *Classifier {
	t.Helper()
	c, err := New(config.Default().Patterns)
	require.NoError(t, err)
	return c
}

func TestClassify(t *testing.T) {
	c := newClassifier(t)
	ts := testutil.At(5 * time.Second)

	tests := []struct {
		name   string
		line   string
		kind   ir.EventKind
		entity string
		want   ir.Payload
	}{
		{
			name: "overall start",
			line: testutil.OverallStartLine(ts),
			kind: ir.OverallStart,
		},
		{
			name:   "explicit start",
			line:   testutil.ExplicitStartLine(ts, "gw-us-east-1-007", "8.1.0-1000.1550"),
			kind:   ir.EntityStartExplicit,
			entity: "gw-us-east-1-007",
			want:   ir.Payload{TargetVersion: "8.1.0-1000.1550"},
		},
		{
			name:   "explicit start without version",
			line:   testutil.Stamp(ts) + " Upgrading gw-1 to version",
			kind:   ir.EntityStartExplicit,
			entity: "gw-1",
		},
		{
			name:   "installing status",
			line:   testutil.InstallingLine(ts, "gw-eu-west-1-001"),
			kind:   ir.EntityStartImplicit,
			entity: "gw-eu-west-1-001",
			want:   ir.Payload{StatusRaw: "installing"},
		},
		{
			name:   "complete status with versions",
			line:   testutil.CompleteLine(ts, "gw-2", "8.1.0-1000.1500", "8.1.0-1000.1600"),
			kind:   ir.EntityComplete,
			entity: "gw-2",
			want:   ir.Payload{StatusRaw: "complete", PrevVersion: "8.1.0-1000.1500", CurrVersion: "8.1.0-1000.1600"},
		},
		{
			name:   "truncated complete payload keeps status",
			line:   testutil.Stamp(ts) + " Updating upgrade_info to gw gw-3: {'status': 'complete', 'curr_ver': '8.1",
			kind:   ir.EntityComplete,
			entity: "gw-3",
			want:   ir.Payload{StatusRaw: "complete"},
		},
		{
			name: "other status is dropped",
			line: testutil.StatusLine(ts, "gw-4", "downloading"),
			kind: ir.Unrecognized,
			want: ir.Payload{StatusRaw: "downloading"},
		},
		{
			name: "status update without status",
			line: testutil.Stamp(ts) + " Updating upgrade_info to gw gw-5: {'curr_ver': '1'}",
			kind: ir.Unrecognized,
		},
		{
			name: "unrelated line",
			line: testutil.Stamp(ts) + " Connected to controller",
			kind: ir.Unrecognized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := c.Classify(tt.line)
			require.NoError(t, err)

			assert.Equal(t, tt.kind, ev.Kind)
			assert.Equal(t, tt.entity, ev.Entity)
			assert.Equal(t, tt.want, ev.Payload)
			assert.True(t, ev.Timestamp.Equal(ts), "timestamp %v != %v", ev.Timestamp, ts)
		})
	}
}

func TestClassify_OverallBeatsExplicit(t *testing.T) {
	// The sentinel also starts with "Upgrading"; it must never become an entity.
	c := newClassifier(t)
	line := testutil.Stamp(testutil.Base) + " Upgrading gateways without controller upgrade to version 9"

	ev, err := c.Classify(line)
	require.NoError(t, err)
	assert.Equal(t, ir.OverallStart, ev.Kind)
	assert.Empty(t, ev.Entity)
}

func TestClassify_MalformedTimestamp(t *testing.T) {
	c := newClassifier(t)

	for _, line := range []string{
		"yesterday Upgrading gw-1 to version 1",
		"2025-07-23T00:00:02.976005 Upgrading gw-1 to version 1", // no offset
		"2025-13-23T00:00:02+00:00 Upgrading gw-1 to version 1",
		"Traceback (most recent call last):",
	} {
		ev, err := c.Classify(line)
		require.Error(t, err, line)
		assert.True(t, IsMalformedTimestamp(err))
		assert.Equal(t, ir.Unrecognized, ev.Kind)
	}
}

func TestClassify_TimestampFollowedByAnyWhitespace(t *testing.T) {
	c := newClassifier(t)
	stamp := testutil.Stamp(testutil.Base)

	for name, sep := range map[string]string{"tab": "\t", "spaces": "   ", "tab and space": "\t "} {
		t.Run(name, func(t *testing.T) {
			ev, err := c.Classify(stamp + sep + "Upgrading gw-1 to version 9.1")
			require.NoError(t, err)
			assert.Equal(t, ir.EntityStartExplicit, ev.Kind)
			assert.Equal(t, "gw-1", ev.Entity)
			assert.Equal(t, testutil.Base, ev.Timestamp)
		})
	}

	t.Run("timestamp only", func(t *testing.T) {
		ev, err := c.Classify(stamp)
		require.NoError(t, err)
		assert.Equal(t, ir.Unrecognized, ev.Kind)
	})
}

func TestClassify_BlankLine(t *testing.T) {
	c := newClassifier(t)

	for _, line := range []string{"", "   ", "\r\n"} {
		ev, err := c.Classify(line)
		require.NoError(t, err)
		assert.Equal(t, ir.Unrecognized, ev.Kind)
	}
}

func TestClassify_AcceptsZuluAndOffsets(t *testing.T) {
	c := newClassifier(t)

	ev, err := c.Classify("2025-07-23T00:00:02Z Upgrading gw-1 to version 2")
	require.NoError(t, err)
	assert.Equal(t, ir.EntityStartExplicit, ev.Kind)

	ev, err = c.Classify("2025-07-23T02:00:02.5+02:00 Upgrading gw-1 to version 2")
	require.NoError(t, err)
	assert.True(t, ev.Timestamp.Equal(time.Date(2025, 7, 23, 0, 0, 2, 500_000_000, time.UTC)))
}

func TestClassify_NormalizesEntityNames(t *testing.T) {
	c := newClassifier(t)
	ts := testutil.Base

	composed, err := c.Classify(testutil.ExplicitStartLine(ts, "gw-caf\u00e9", "1"))
	require.NoError(t, err)
	decomposed, err := c.Classify(testutil.InstallingLine(ts, "gw-cafe\u0301"))
	require.NoError(t, err)

	assert.Equal(t, composed.Entity, decomposed.Entity)
}

func TestClassify_CustomPatterns(t *testing.T) {
	p := config.Default().Patterns
	p.CompleteStatus = "done"
	c, err := New(p)
	require.NoError(t, err)

	ev, err := c.Classify(testutil.StatusLine(testutil.Base, "gw-1", "done"))
	require.NoError(t, err)
	assert.Equal(t, ir.EntityComplete, ev.Kind)

	ev, err = c.Classify(testutil.StatusLine(testutil.Base, "gw-1", "complete"))
	require.NoError(t, err)
	assert.Equal(t, ir.Unrecognized, ev.Kind)
}

func TestNew_RejectsBadPatterns(t *testing.T) {
	p := config.Default().Patterns
	p.ExplicitStart = `Upgrading (\S+)`
	_, err := New(p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "named group")

	p = config.Default().Patterns
	p.StatusUpdate = `(`
	_, err = New(p)
	require.Error(t, err)

	p = config.Default().Patterns
	p.OverallStart = ""
	_, err = New(p)
	require.Error(t, err)
}
