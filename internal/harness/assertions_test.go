package harness

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/upgradeviz/internal/engine"
	"github.com/roach88/upgradeviz/internal/ir"
	"github.com/roach88/upgradeviz/internal/layout"
	"github.com/roach88/upgradeviz/internal/render"
	"github.com/roach88/upgradeviz/internal/testutil"
)

func testResult() *Result {
	snap := ir.Snapshot{
		Records: []ir.IntervalRecord{
			{
				Entity:      "gw-1",
				Start:       testutil.At(0),
				End:         testutil.At(90 * time.Second),
				StartKind:   ir.StartExplicit,
				Status:      ir.StatusComplete,
				PrevVersion: "8",
				CurrVersion: "9",
			},
			{
				Entity:    "gw-2",
				Start:     testutil.At(30 * time.Second),
				StartKind: ir.StartInstalling,
				Status:    ir.StatusInProgress,
			},
		},
		LastSeen: testutil.At(2 * time.Minute),
	}
	r := NewResult()
	r.Snapshot = snap
	r.Summary = engine.Summary{Unrecognized: 3, Diagnostics: []engine.Diagnostic{{Code: engine.CodeMalformedTimestamp}}}
	r.Layout = layout.Compute(snap, layout.Options{Width: 600, MinSpan: time.Minute, Now: snap.LastSeen})
	r.Document = []byte("<svg/>")
	return r
}

func TestEvaluateAssertions(t *testing.T) {
	tests := []struct {
		name      string
		assertion Assertion
		wantErr   string
	}{
		{"record count", Assertion{Type: AssertRecordCount, Count: 2}, ""},
		{"record count wrong", Assertion{Type: AssertRecordCount, Count: 3}, "Expected: 3 records"},
		{"diagnostics", Assertion{Type: AssertDiagnosticCount, Count: 1}, ""},
		{"diagnostics wrong", Assertion{Type: AssertDiagnosticCount}, "1 diagnostics"},
		{"unrecognized", Assertion{Type: AssertUnrecognizedCount, Count: 3}, ""},
		{"record fields", Assertion{Type: AssertRecord, Entity: "gw-1", Status: "complete", StartKind: "explicit", PrevVersion: "8", CurrVersion: "9", DurationS: ptr(90.0)}, ""},
		{"record only entity", Assertion{Type: AssertRecord, Entity: "gw-2"}, ""},
		{"record missing", Assertion{Type: AssertRecord, Entity: "gw-9"}, "no such record"},
		{"record status", Assertion{Type: AssertRecord, Entity: "gw-2", Status: "complete"}, `status="in_progress" (want "complete")`},
		{"record duration", Assertion{Type: AssertRecord, Entity: "gw-1", DurationS: ptr(60.0)}, "duration_s=90 (want 60)"},
		{"record open duration", Assertion{Type: AssertRecord, Entity: "gw-2", DurationS: ptr(0.0)}, "duration_s=<open>"},
		{"row order", Assertion{Type: AssertRowOrder, Entities: []string{"gw-1", "gw-2"}}, ""},
		{"row order subset", Assertion{Type: AssertRowOrder, Entities: []string{"gw-2"}}, ""},
		{"row order reversed", Assertion{Type: AssertRowOrder, Entities: []string{"gw-2", "gw-1"}}, "gw-2 (row 2) should be before gw-1 (row 1)"},
		{"row order missing", Assertion{Type: AssertRowOrder, Entities: []string{"gw-1", "gw-3"}}, "missing row: gw-3"},
		{"not empty", Assertion{Type: AssertEmptyDocument, Empty: ptr(false)}, ""},
		{"wrongly empty", Assertion{Type: AssertEmptyDocument, Empty: ptr(true)}, "Expected: empty=true"},
		{"unknown", Assertion{Type: "trace_count"}, `unknown assertion type "trace_count"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := EvaluateAssertions(testResult(), []Assertion{tt.assertion})
			if tt.wantErr == "" {
				assert.Empty(t, errs)
				return
			}
			require.Len(t, errs, 1)
			assert.Contains(t, errs[0], tt.wantErr)
		})
	}
}

func TestEvaluateAssertions_EmptyDocument(t *testing.T) {
	r := NewResult()
	r.Layout = layout.Compute(ir.Snapshot{}, layout.Options{Width: 600, MinSpan: time.Minute})
	r.Document = []byte("<svg><text>" + render.EmptyMessage + "</text></svg>")

	assert.Empty(t, EvaluateAssertions(r, []Assertion{{Type: AssertEmptyDocument, Empty: ptr(true)}}))
	assert.Len(t, EvaluateAssertions(r, []Assertion{{Type: AssertEmptyDocument, Empty: ptr(false)}}), 1)
}

func TestAssertionError_Format(t *testing.T) {
	err := &AssertionError{
		Type:     AssertRowOrder,
		Expected: "rows in order",
		Actual:   "reversed",
		Rows:     []string{"gw-1", "gw-2"},
	}

	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: row_order")
	assert.Contains(t, msg, "  Expected: rows in order\n")
	assert.Contains(t, msg, "  Actual: reversed\n")
	assert.Contains(t, msg, "  [1] gw-1\n  [2] gw-2\n")
}

func TestResult_AddError(t *testing.T) {
	r := NewResult()
	assert.True(t, r.Pass)
	r.AddError("boom")
	assert.False(t, r.Pass)
	assert.Equal(t, []string{"boom"}, r.Errors)
}
