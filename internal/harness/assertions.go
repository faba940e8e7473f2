package harness

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	"github.com/roach88/upgradeviz/internal/render"
)

// durationTolerance absorbs float formatting of duration_s in YAML.
const durationTolerance = 1e-6

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string   // Assertion type for categorization
	Expected string   // Human-readable expected outcome
	Actual   string   // Human-readable actual outcome
	Rows     []string // Entities in row order, for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nRows:\n")
	for i, entity := range e.Rows {
		fmt.Fprintf(&buf, "  [%d] %s\n", i+1, entity)
	}

	return buf.String()
}

// EvaluateAssertions checks every assertion against result and returns one
// message per failure.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(result, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d: %v", i, err))
		}
	}
	return errs
}

func evaluate(result *Result, a Assertion) error {
	switch a.Type {
	case AssertRecordCount:
		return assertCount(result, a, len(result.Snapshot.Records), "records")
	case AssertDiagnosticCount:
		return assertCount(result, a, len(result.Summary.Diagnostics), "diagnostics")
	case AssertUnrecognizedCount:
		return assertCount(result, a, result.Summary.Unrecognized, "unrecognized lines")
	case AssertRecord:
		return assertRecord(result, a)
	case AssertRowOrder:
		return assertRowOrder(result, a)
	case AssertEmptyDocument:
		return assertEmptyDocument(result, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func assertCount(result *Result, a Assertion, got int, what string) error {
	if got == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("%d %s", a.Count, what),
		Actual:   fmt.Sprintf("%d %s", got, what),
		Rows:     result.Snapshot.Entities(),
	}
}

// assertRecord checks the fields the assertion names; empty fields are skipped.
func assertRecord(result *Result, a Assertion) error {
	rec, ok := result.Snapshot.Lookup(a.Entity)
	if !ok {
		return &AssertionError{
			Type:     AssertRecord,
			Expected: fmt.Sprintf("record for %s", a.Entity),
			Actual:   "no such record",
			Rows:     result.Snapshot.Entities(),
		}
	}

	var mismatches []string
	check := func(field, want, got string) {
		if want != "" && want != got {
			mismatches = append(mismatches, fmt.Sprintf("%s=%q (want %q)", field, got, want))
		}
	}
	check("status", a.Status, string(rec.Status))
	check("start_kind", a.StartKind, string(rec.StartKind))
	check("prev_version", a.PrevVersion, rec.PrevVersion)
	check("curr_version", a.CurrVersion, rec.CurrVersion)

	if a.DurationS != nil {
		switch {
		case !rec.Ended():
			mismatches = append(mismatches, fmt.Sprintf("duration_s=<open> (want %g)", *a.DurationS))
		case math.Abs(rec.Duration().Seconds()-*a.DurationS) > durationTolerance:
			mismatches = append(mismatches, fmt.Sprintf("duration_s=%g (want %g)", rec.Duration().Seconds(), *a.DurationS))
		}
	}

	if len(mismatches) == 0 {
		return nil
	}
	return &AssertionError{
		Type:     AssertRecord,
		Expected: fmt.Sprintf("record %s matches", a.Entity),
		Actual:   strings.Join(mismatches, ", "),
		Rows:     result.Snapshot.Entities(),
	}
}

// assertRowOrder checks that entities appear as rows in the specified order.
// Rows don't need to be consecutive (intervening rows are allowed).
func assertRowOrder(result *Result, a Assertion) error {
	rows := rowEntities(result)

	positions := make(map[string]int, len(rows))
	for i, entity := range rows {
		positions[entity] = i + 1 // 1-indexed for readability
	}

	for _, entity := range a.Entities {
		if positions[entity] == 0 {
			return &AssertionError{
				Type:     AssertRowOrder,
				Expected: fmt.Sprintf("all rows present: %v", a.Entities),
				Actual:   fmt.Sprintf("missing row: %s", entity),
				Rows:     rows,
			}
		}
	}

	for i := 1; i < len(a.Entities); i++ {
		prev, curr := a.Entities[i-1], a.Entities[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertRowOrder,
				Expected: fmt.Sprintf("rows in order: %v", a.Entities),
				Actual: fmt.Sprintf("%s (row %d) should be before %s (row %d)",
					prev, positions[prev], curr, positions[curr]),
				Rows: rows,
			}
		}
	}

	return nil
}

func assertEmptyDocument(result *Result, a Assertion) error {
	want := *a.Empty
	got := result.Layout.Empty() && bytes.Contains(result.Document, []byte(render.EmptyMessage))
	if got == want {
		return nil
	}
	return &AssertionError{
		Type:     AssertEmptyDocument,
		Expected: fmt.Sprintf("empty=%t", want),
		Actual:   fmt.Sprintf("empty=%t", got),
		Rows:     rowEntities(result),
	}
}

func rowEntities(result *Result) []string {
	rows := make([]string, len(result.Layout.Rows))
	for i, row := range result.Layout.Rows {
		rows[i] = row.Record.Entity
	}
	return rows
}
