package classify

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/valyala/fastjson"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/upgradeviz/internal/config"
	"github.com/roach88/upgradeviz/internal/ir"
)

// Classifier maps lines to events using an immutable set of patterns.
// It is safe for concurrent use.
type Classifier struct {
	overall    string
	explicit   *regexp.Regexp
	status     *regexp.Regexp
	installing string
	complete   string
	parsers    fastjson.ParserPool
}

// New compiles the patterns. The explicit-start pattern must define the named
// groups "entity" and "version"; the status-update pattern "entity" and "payload".
func New(p config.Patterns) (*Classifier, error) {
	explicit, err := compileWithGroups(p.ExplicitStart, "entity", "version")
	if err != nil {
		return nil, fmt.Errorf("explicit_start: %w", err)
	}
	status, err := compileWithGroups(p.StatusUpdate, "entity", "payload")
	if err != nil {
		return nil, fmt.Errorf("status_update: %w", err)
	}
	if p.OverallStart == "" {
		return nil, fmt.Errorf("overall_start: empty sentinel phrase")
	}

	return &Classifier{
		overall:    p.OverallStart,
		explicit:   explicit,
		status:     status,
		installing: p.InstallingStatus,
		complete:   p.CompleteStatus,
	}, nil
}

func compileWithGroups(pattern string, groups ...string) (*regexp.Regexp, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	for _, g := range groups {
		if re.SubexpIndex(g) < 0 {
			return nil, fmt.Errorf("pattern %q lacks named group %q", pattern, g)
		}
	}
	return re, nil
}

// ParseTimestamp parses an RFC 3339 timestamp with optional fractional
// seconds and a mandatory UTC offset ("+00:00" or "Z"). The result is in UTC.
func ParseTimestamp(token string) (time.Time, error) {
	ts, err := time.Parse(time.RFC3339Nano, token)
	if err != nil {
		return time.Time{}, &TimestampError{Token: token, Err: err}
	}
	return ts.UTC(), nil
}

// Classify converts one line into an event.
//
// Blank lines are ir.Unrecognized with no error. A malformed leading timestamp
// yields ir.Unrecognized and a *TimestampError. Every other outcome, including
// status values other than installing/complete, returns a nil error.
func (c *Classifier) Classify(line string) (ir.LogEvent, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return ir.LogEvent{Kind: ir.Unrecognized}, nil
	}

	token, msg := line, ""
	if i := strings.IndexFunc(line, unicode.IsSpace); i >= 0 {
		token, msg = line[:i], line[i:]
	}
	ts, err := ParseTimestamp(token)
	if err != nil {
		return ir.LogEvent{Kind: ir.Unrecognized}, err
	}
	msg = strings.TrimSpace(msg)

	ev := ir.LogEvent{Kind: ir.Unrecognized, Timestamp: ts}

	if strings.Contains(msg, c.overall) {
		ev.Kind = ir.OverallStart
		return ev, nil
	}

	if m := c.explicit.FindStringSubmatch(msg); m != nil {
		entity := normalizeEntity(m[c.explicit.SubexpIndex("entity")])
		if entity == "" {
			return ev, nil
		}
		ev.Kind = ir.EntityStartExplicit
		ev.Entity = entity
		ev.Payload.TargetVersion = strings.TrimSpace(m[c.explicit.SubexpIndex("version")])
		return ev, nil
	}

	if m := c.status.FindStringSubmatch(msg); m != nil {
		entity := normalizeEntity(m[c.status.SubexpIndex("entity")])
		if entity == "" {
			return ev, nil
		}
		fields := c.ExtractFields(m[c.status.SubexpIndex("payload")])
		if !fields.HasStatus {
			return ev, nil
		}
		ev.Entity = entity
		ev.Payload.StatusRaw = fields.Status

		switch fields.Status {
		case c.installing:
			ev.Kind = ir.EntityStartImplicit
		case c.complete:
			ev.Kind = ir.EntityComplete
			ev.Payload.CurrVersion = fields.CurrVersion
			ev.Payload.PrevVersion = fields.PrevVersion
		default:
			// other statuses are progress chatter
			ev.Entity = ""
		}
		return ev, nil
	}

	return ev, nil
}

// normalizeEntity trims and NFC-normalises an entity name so that one
// gateway always maps to one identity key.
func normalizeEntity(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}
