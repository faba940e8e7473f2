package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"time"
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"
)

// TimeLayout is the fixed-precision layout used for every serialized timestamp.
// Microsecond precision matches the input logs.
const TimeLayout = "2006-01-02T15:04:05.000000Z07:00"

// FormatTime renders t in UTC with TimeLayout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// MarshalCanonical produces canonical JSON in the style of RFC 8785:
//  1. Object keys sorted by UTF-16 code units
//  2. No HTML escaping (< > & are NOT escaped)
//  3. Strings are NFC normalized
//  4. No floats and no null (returns error)
//  5. No insignificant whitespace
//
// Supported inputs are string, int, int64, bool, []any and map[string]any.
func MarshalCanonical(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeCanonical(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCanonical(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil:
		return fmt.Errorf("null is forbidden in canonical JSON")
	case string:
		return writeCanonicalString(buf, val)
	case int:
		fmt.Fprintf(buf, "%d", val)
	case int64:
		fmt.Fprintf(buf, "%d", val)
	case bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case []any:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, elem); err != nil {
				return fmt.Errorf("array[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		slices.SortFunc(keys, compareUTF16)

		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonicalString(buf, k); err != nil {
				return fmt.Errorf("key %q: %w", k, err)
			}
			buf.WriteByte(':')
			if err := writeCanonical(buf, val[k]); err != nil {
				return fmt.Errorf("value for key %q: %w", k, err)
			}
		}
		buf.WriteByte('}')
	case float64, float32:
		return fmt.Errorf("floats are forbidden in canonical JSON: %v", val)
	default:
		return fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
	return nil
}

// writeCanonicalString writes an NFC-normalised JSON string without HTML
// escaping. U+2028 and U+2029 are emitted literally.
func writeCanonicalString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(norm.NFC.String(s)); err != nil {
		return err
	}
	out := bytes.TrimSuffix(tmp.Bytes(), []byte("\n"))
	buf.Write(unescapeLineSeparators(out))
	return nil
}

// unescapeLineSeparators turns \u2028 and \u2029 escapes back into literal
// characters. Escape pairs are consumed left to right, so an escaped backslash
// followed by "u2028" text is left alone.
func unescapeLineSeparators(data []byte) []byte {
	if !bytes.Contains(data, []byte(`\u202`)) {
		return data
	}
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		if data[i] == '\\' && i+1 < len(data) {
			if i+6 <= len(data) && string(data[i+1:i+5]) == "u202" && (data[i+5] == '8' || data[i+5] == '9') {
				if data[i+5] == '8' {
					out = append(out, "\u2028"...)
				} else {
					out = append(out, "\u2029"...)
				}
				i += 5
				continue
			}
			// any other escape pair is copied verbatim
			out = append(out, data[i], data[i+1])
			i++
			continue
		}
		out = append(out, data[i])
	}
	return out
}

// compareUTF16 orders strings by UTF-16 code units.
// Go's native string comparison uses UTF-8 which differs for supplementary planes.
func compareUTF16(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))
	for i := 0; i < len(a16) && i < len(b16); i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}
	return len(a16) - len(b16)
}

// CanonicalRecord converts a record into its canonical map form.
// Optional fields are omitted rather than emitted as null.
func CanonicalRecord(r IntervalRecord) map[string]any {
	m := map[string]any{
		"entity":     r.Entity,
		"start":      FormatTime(r.Start),
		"start_kind": string(r.StartKind),
		"status":     string(r.Status),
	}
	if r.Ended() {
		m["end"] = FormatTime(r.End)
		m["duration_us"] = r.Duration().Microseconds()
	}
	if r.PrevVersion != "" {
		m["prev_version"] = r.PrevVersion
	}
	if r.CurrVersion != "" {
		m["curr_version"] = r.CurrVersion
	}
	if r.TargetVersion != "" {
		m["target_version"] = r.TargetVersion
	}
	return m
}

// CanonicalSnapshot converts a snapshot into its canonical map form.
func CanonicalSnapshot(s Snapshot) map[string]any {
	records := make([]any, len(s.Records))
	for i, r := range s.Records {
		records[i] = CanonicalRecord(r)
	}
	m := map[string]any{
		"schema_version": SchemaVersion,
		"records":        records,
	}
	if s.Overall.Set() {
		m["overall_start"] = FormatTime(s.Overall.Start)
	}
	if !s.LastSeen.IsZero() {
		m["last_seen"] = FormatTime(s.LastSeen)
	}
	return m
}

// MarshalSnapshot renders a snapshot as canonical JSON.
func MarshalSnapshot(s Snapshot) ([]byte, error) {
	return MarshalCanonical(CanonicalSnapshot(s))
}
