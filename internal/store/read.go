package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/upgradeviz/internal/ir"
)

// ErrRunNotFound is returned by LoadRun for an unknown id.
var ErrRunNotFound = errors.New("run not found")

// Run is the header of one archived reconstruction.
type Run struct {
	ID           string
	CreatedAt    time.Time
	Source       string // input name, "stdin" for piped input
	ToolVersion  string
	Lines        int
	Recognized   int
	Unrecognized int
	Duplicates   int
	Diagnostics  int
	Records      int
	Overall      time.Time // zero when no overall marker was seen
	LastSeen     time.Time
}

// HistoryEntry is one entity's record in one archived run.
type HistoryEntry struct {
	RunID     string
	CreatedAt time.Time
	Record    ir.IntervalRecord
}

const runColumns = `
	r.id, r.created_at, r.source, r.tool_version,
	r.lines, r.recognized, r.unrecognized, r.duplicates, r.diagnostics,
	r.overall_start, r.last_seen,
	(SELECT COUNT(*) FROM records WHERE run_id = r.id)`

const recordColumns = `
	entity, start_time, end_time, start_kind, status, prev_version, curr_version, target_version`

// ListRuns returns all runs, newest first.
// Ordering is ORDER BY created_at DESC, id DESC COLLATE BINARY.
//
// Returns an empty slice (not nil) if the archive is empty.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM runs r
		ORDER BY r.created_at DESC, r.id COLLATE BINARY DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// LoadRun returns a run header and its snapshot, with records in the
// order they were saved. Returns ErrRunNotFound if id is unknown.
func (s *Store) LoadRun(ctx context.Context, id string) (Run, ir.Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+runColumns+`
		FROM runs r
		WHERE r.id = ?
	`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ir.Snapshot{}, fmt.Errorf("load run %s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return Run{}, ir.Snapshot{}, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+recordColumns+`
		FROM records
		WHERE run_id = ?
		ORDER BY seq ASC
	`, id)
	if err != nil {
		return Run{}, ir.Snapshot{}, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	snap := ir.Snapshot{
		Overall:  ir.OverallWindow{Start: run.Overall},
		LastSeen: run.LastSeen,
	}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return Run{}, ir.Snapshot{}, err
		}
		snap.Records = append(snap.Records, rec)
	}
	if err := rows.Err(); err != nil {
		return Run{}, ir.Snapshot{}, fmt.Errorf("iterate records: %w", err)
	}
	return run, snap, nil
}

// EntityHistory returns every archived record of one entity, newest run first.
func (s *Store) EntityHistory(ctx context.Context, entity string) ([]HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.created_at, `+recordColumns+`
		FROM records
		JOIN runs r ON records.run_id = r.id
		WHERE records.entity = ?
		ORDER BY r.created_at DESC, r.id COLLATE BINARY DESC
	`, entity)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	entries := []HistoryEntry{}
	for rows.Next() {
		var (
			e       HistoryEntry
			created string
			rec     recordRow
		)
		if err := rows.Scan(append([]any{&e.RunID, &created}, rec.dest()...)...); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		if e.CreatedAt, err = unmarshalTime(created); err != nil {
			return nil, err
		}
		if e.Record, err = rec.record(); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return entries, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var (
		run      Run
		created  string
		overall  sql.NullString
		lastSeen sql.NullString
	)
	err := sc.Scan(
		&run.ID, &created, &run.Source, &run.ToolVersion,
		&run.Lines, &run.Recognized, &run.Unrecognized, &run.Duplicates, &run.Diagnostics,
		&overall, &lastSeen,
		&run.Records,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, err
	}
	if err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}

	if run.CreatedAt, err = unmarshalTime(created); err != nil {
		return Run{}, err
	}
	if run.Overall, err = unmarshalNullTime(overall); err != nil {
		return Run{}, err
	}
	if run.LastSeen, err = unmarshalNullTime(lastSeen); err != nil {
		return Run{}, err
	}
	return run, nil
}

// recordRow holds the raw columns of one records row.
type recordRow struct {
	entity, start, kind, status string
	end                         sql.NullString
	prev, curr, target          string
}

func (r *recordRow) dest() []any {
	return []any{&r.entity, &r.start, &r.end, &r.kind, &r.status, &r.prev, &r.curr, &r.target}
}

func (r *recordRow) record() (ir.IntervalRecord, error) {
	start, err := unmarshalTime(r.start)
	if err != nil {
		return ir.IntervalRecord{}, err
	}
	end, err := unmarshalNullTime(r.end)
	if err != nil {
		return ir.IntervalRecord{}, err
	}
	return ir.IntervalRecord{
		Entity:        r.entity,
		Start:         start,
		End:           end,
		StartKind:     ir.StartKind(r.kind),
		Status:        ir.Status(r.status),
		PrevVersion:   r.prev,
		CurrVersion:   r.curr,
		TargetVersion: r.target,
	}, nil
}

func scanRecord(sc scanner) (ir.IntervalRecord, error) {
	var row recordRow
	if err := sc.Scan(row.dest()...); err != nil {
		return ir.IntervalRecord{}, fmt.Errorf("scan record: %w", err)
	}
	return row.record()
}
