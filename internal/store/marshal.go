package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/roach88/upgradeviz/internal/ir"
)

// marshalTime converts a time to its stored TEXT form.
func marshalTime(t time.Time) string {
	return ir.FormatTime(t)
}

// marshalNullTime stores the zero time as NULL.
func marshalNullTime(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: ir.FormatTime(t), Valid: true}
}

// unmarshalTime parses a stored timestamp. The result is in UTC.
func unmarshalTime(s string) (time.Time, error) {
	t, err := time.Parse(ir.TimeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("unmarshal time %q: %w", s, err)
	}
	return t.UTC(), nil
}

// unmarshalNullTime maps NULL back to the zero time.
func unmarshalNullTime(ns sql.NullString) (time.Time, error) {
	if !ns.Valid {
		return time.Time{}, nil
	}
	return unmarshalTime(ns.String)
}
