package store

import (
	"context"
	"fmt"

	"github.com/roach88/upgradeviz/internal/ir"
)

// SaveRun archives a run and its records in one transaction.
//
// ID, CreatedAt and ToolVersion are filled in when empty. Records,
// Overall and LastSeen are always taken from snap so the run header
// cannot disagree with its records. The stored run is returned.
func (s *Store) SaveRun(ctx context.Context, run Run, snap ir.Snapshot) (Run, error) {
	if run.ID == "" {
		run.ID = s.ids.Generate()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = s.now()
	}
	run.CreatedAt = run.CreatedAt.UTC()
	if run.ToolVersion == "" {
		run.ToolVersion = ir.ToolVersion
	}
	run.Records = len(snap.Records)
	run.Overall = snap.Overall.Start
	run.LastSeen = snap.LastSeen

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, fmt.Errorf("save run: begin: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, created_at, source, tool_version, lines, recognized, unrecognized, duplicates, diagnostics, overall_start, last_seen)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		marshalTime(run.CreatedAt),
		run.Source,
		run.ToolVersion,
		run.Lines,
		run.Recognized,
		run.Unrecognized,
		run.Duplicates,
		run.Diagnostics,
		marshalNullTime(run.Overall),
		marshalNullTime(run.LastSeen),
	)
	if err != nil {
		return Run{}, fmt.Errorf("save run %s: %w", run.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO records
		(run_id, seq, entity, start_time, end_time, start_kind, status, prev_version, curr_version, target_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return Run{}, fmt.Errorf("save run %s: prepare records: %w", run.ID, err)
	}
	defer stmt.Close()

	for i, rec := range snap.Records {
		_, err := stmt.ExecContext(ctx,
			run.ID,
			i,
			rec.Entity,
			marshalTime(rec.Start),
			marshalNullTime(rec.End),
			string(rec.StartKind),
			string(rec.Status),
			rec.PrevVersion,
			rec.CurrVersion,
			rec.TargetVersion,
		)
		if err != nil {
			return Run{}, fmt.Errorf("save run %s: record %q: %w", run.ID, rec.Entity, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Run{}, fmt.Errorf("save run %s: commit: %w", run.ID, err)
	}
	return run, nil
}

// DeleteRun removes a run and, by cascade, its records.
// Deleting an unknown id is not an error.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete run %s: %w", id, err)
	}
	return nil
}
