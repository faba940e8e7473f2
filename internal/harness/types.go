package harness

import (
	"github.com/roach88/upgradeviz/internal/engine"
	"github.com/roach88/upgradeviz/internal/ir"
	"github.com/roach88/upgradeviz/internal/layout"
)

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if all assertions hold.
	Pass bool

	// Snapshot is the reconstructed record set, compared against golden files.
	Snapshot ir.Snapshot

	// Summary holds the line counters and diagnostics of the run.
	Summary engine.Summary

	// Layout is the computed chart geometry.
	Layout layout.Layout

	// Document is the rendered SVG.
	Document []byte

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
