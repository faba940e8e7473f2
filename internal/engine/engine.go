package engine

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/upgradeviz/internal/classify"
	"github.com/roach88/upgradeviz/internal/ir"
)

// MaxLineBytes bounds a single input line. Status payloads can be long, so
// this is well above bufio's 64 KiB default.
const MaxLineBytes = 4 << 20

// Summary counts what a Run did with its input.
type Summary struct {
	Lines        int // lines read, including blank ones
	Recognized   int // lines that classified to a known event
	Unrecognized int // lines that matched nothing (not diagnostics)
	Duplicates   int // start or completion events that were inert
	Retroactive  int // completions that created a record
	Diagnostics  []Diagnostic
}

// Engine drives a classifier and a tracker over a line stream.
//
// Engine.Run must be called from one goroutine at a time; the tracker it
// owns has exactly one writer.
type Engine struct {
	classifier *classify.Classifier
	tracker    *Tracker
	logger     *slog.Logger
	summary    Summary
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the diagnostic logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// New creates an Engine around c.
func New(c *classify.Classifier, opts ...Option) *Engine {
	e := &Engine{
		classifier: c,
		tracker:    NewTracker(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run folds every line of r into the tracker.
//
// Malformed lines never stop the fold. A line longer than MaxLineBytes is
// skipped with a CodeLineTooLong diagnostic. Run returns an error only if r
// fails or ctx is cancelled between lines; in both cases the records folded so
// far remain available through Snapshot.
func (e *Engine) Run(ctx context.Context, r io.Reader) error {
	br := bufio.NewReaderSize(r, 64*1024)

	var (
		line    []byte
		size    int
		tooLong bool
	)
	for {
		chunk, isPrefix, err := br.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("reading input at line %d: %w", e.summary.Lines+1, err)
		}

		size += len(chunk)
		if size > MaxLineBytes {
			tooLong = true
			line = line[:0]
		}
		if !tooLong {
			line = append(line, chunk...)
		}
		if isPrefix {
			continue
		}

		if err := ctx.Err(); err != nil {
			return err
		}
		e.summary.Lines++
		if tooLong {
			e.skipLongLine(e.summary.Lines, size)
		} else {
			e.Step(e.summary.Lines, string(line))
		}
		line, size, tooLong = line[:0], 0, false
	}
}

func (e *Engine) skipLongLine(lineNo, size int) {
	d := newLineTooLongDiagnostic(lineNo, size)
	e.summary.Diagnostics = append(e.summary.Diagnostics, d)
	e.logger.Warn("skipping oversized line",
		"line", lineNo,
		"bytes", size,
		"limit", MaxLineBytes)
}

// Step classifies and folds a single line. lineNo is used for diagnostics.
func (e *Engine) Step(lineNo int, line string) Transition {
	ev, err := e.classifier.Classify(line)
	if err != nil {
		d := newTimestampDiagnostic(lineNo, err)
		e.summary.Diagnostics = append(e.summary.Diagnostics, d)
		e.logger.Warn("skipping line with malformed timestamp",
			"line", lineNo,
			"error", err)
		return TransitionIgnored
	}
	if ev.Kind == ir.Unrecognized {
		e.summary.Unrecognized++
		return TransitionIgnored
	}

	ev.Line = lineNo
	e.summary.Recognized++

	var before ir.IntervalRecord
	if ev.Kind == ir.EntityComplete {
		before, _ = e.tracker.Record(ev.Entity)
	}

	tr := e.tracker.Apply(ev)
	switch tr {
	case TransitionDuplicateStart, TransitionAfterComplete:
		e.summary.Duplicates++
		e.logger.Debug("inert event",
			"line", lineNo,
			"entity", ev.Entity,
			"kind", ev.Kind.String(),
			"transition", tr.String())
	case TransitionRetroactive:
		e.summary.Retroactive++
		e.logger.Debug("completion without observed start",
			"line", lineNo,
			"entity", ev.Entity)
	case TransitionClamped:
		d := newEndBeforeStartDiagnostic(lineNo, ev.Entity, before.Start, ev.Timestamp)
		e.summary.Diagnostics = append(e.summary.Diagnostics, d)
		e.logger.Warn("completion precedes start, clamping end",
			"line", lineNo,
			"entity", ev.Entity,
			"start", before.Start,
			"end", ev.Timestamp)
	}
	return tr
}

// Snapshot returns the folded state so far.
func (e *Engine) Snapshot() ir.Snapshot {
	return e.tracker.Snapshot()
}

// Summary returns a copy of the counters accumulated so far.
func (e *Engine) Summary() Summary {
	s := e.summary
	s.Diagnostics = append([]Diagnostic(nil), e.summary.Diagnostics...)
	return s
}

// Reconstruct is the one-shot form: fold all of r and return the snapshot.
func Reconstruct(ctx context.Context, c *classify.Classifier, r io.Reader, logger *slog.Logger) (ir.Snapshot, Summary, error) {
	e := New(c, WithLogger(logger))
	err := e.Run(ctx, r)
	return e.Snapshot(), e.Summary(), err
}
