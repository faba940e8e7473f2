package engine

import (
	"fmt"
	"time"
)

// Diagnostic describes an input line the fold had to skip or repair.
//
// Diagnostics are never fatal. They are logged as they occur and collected in
// the Summary so callers can report them.
type Diagnostic struct {
	// Code identifies the diagnostic category.
	Code DiagnosticCode

	// Line is the 1-based input line number.
	Line int

	// Entity names the affected entity, if any.
	Entity string

	// Message is a human-readable description.
	Message string
}

// DiagnosticCode categorizes diagnostics.
type DiagnosticCode string

const (
	// CodeMalformedTimestamp indicates the leading token is not a timestamp.
	CodeMalformedTimestamp DiagnosticCode = "MALFORMED_TIMESTAMP"

	// CodeEndBeforeStart indicates a completion earlier than its recorded
	// start. The end time is clamped to the start.
	CodeEndBeforeStart DiagnosticCode = "END_BEFORE_START"

	// CodeLineTooLong indicates a line over MaxLineBytes. It is skipped.
	CodeLineTooLong DiagnosticCode = "LINE_TOO_LONG"
)

// String implements fmt.Stringer.
func (d Diagnostic) String() string {
	if d.Entity != "" {
		return fmt.Sprintf("line %d: %s: %s (entity=%s)", d.Line, d.Code, d.Message, d.Entity)
	}
	return fmt.Sprintf("line %d: %s: %s", d.Line, d.Code, d.Message)
}

func newTimestampDiagnostic(line int, err error) Diagnostic {
	return Diagnostic{
		Code:    CodeMalformedTimestamp,
		Line:    line,
		Message: err.Error(),
	}
}

func newEndBeforeStartDiagnostic(line int, entity string, start, end time.Time) Diagnostic {
	return Diagnostic{
		Code:    CodeEndBeforeStart,
		Line:    line,
		Entity:  entity,
		Message: fmt.Sprintf("completion at %s precedes start at %s", end.Format(time.RFC3339Nano), start.Format(time.RFC3339Nano)),
	}
}

func newLineTooLongDiagnostic(line, size int) Diagnostic {
	return Diagnostic{
		Code:    CodeLineTooLong,
		Line:    line,
		Message: fmt.Sprintf("line is %d bytes, limit is %d", size, MaxLineBytes),
	}
}
