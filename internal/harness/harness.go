package harness

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/upgradeviz/internal/classify"
	"github.com/roach88/upgradeviz/internal/config"
	"github.com/roach88/upgradeviz/internal/engine"
	"github.com/roach88/upgradeviz/internal/layout"
	"github.com/roach88/upgradeviz/internal/render"
	"github.com/roach88/upgradeviz/internal/source"
)

// Harness is the test execution engine.
// It runs scenarios against the stream clock so results never depend on
// when the test runs.
type Harness struct {
	logger *slog.Logger
}

// Option configures a Harness.
type Option func(*Harness)

// WithLogger routes pipeline logs (diagnostics included) to l.
// The default discards them.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) { h.logger = l }
}

// New creates a harness.
func New(opts ...Option) *Harness {
	h := &Harness{logger: slog.New(slog.NewTextHandler(io.Discard, nil))} // Suppress logs in tests
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run executes a test scenario with a default harness.
func Run(scenario *Scenario) (*Result, error) {
	return New().Run(context.Background(), scenario)
}

// Run executes a test scenario and returns the result.
//
// Execution flow:
// 1. Load the scenario's config (or the defaults)
// 2. Reconstruct records from the input
// 3. Lay out and render the document
// 4. Evaluate assertions
//
// An error is returned only when the scenario cannot be executed;
// failed assertions are reported in Result.Errors.
func (h *Harness) Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	cfg, err := config.Load(scenario.Config)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	c, err := classify.New(cfg.Patterns)
	if err != nil {
		return nil, fmt.Errorf("failed to compile patterns: %w", err)
	}

	var input io.Reader = strings.NewReader(scenario.Input)
	if scenario.InputFile != "" {
		in, err := source.Open(scenario.InputFile, nil)
		if err != nil {
			return nil, err
		}
		defer in.Close()
		input = in
	}

	snap, summary, err := engine.Reconstruct(ctx, c, input, h.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to reconstruct: %w", err)
	}

	now := engine.StreamClock{}.Now(snap)
	l := layout.Compute(snap, layout.OptionsFor(cfg.Chart, now))

	var doc bytes.Buffer
	if err := render.New(cfg.Chart).Render(&doc, l); err != nil {
		return nil, fmt.Errorf("failed to render: %w", err)
	}

	result := NewResult()
	result.Snapshot = snap
	result.Summary = summary
	result.Layout = l
	result.Document = doc.Bytes()

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}

	h.logger.Debug("scenario finished",
		"name", scenario.Name,
		"records", len(snap.Records),
		"pass", result.Pass,
	)
	return result, nil
}
