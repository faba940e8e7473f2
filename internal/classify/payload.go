package classify

import (
	"regexp"
	"strings"

	"github.com/valyala/fastjson"
)

// Fields holds the payload values the tracker cares about.
// Each value is paired with a presence flag; absence is a normal case.
type Fields struct {
	Status      string
	HasStatus   bool
	CurrVersion string
	PrevVersion string
}

// Payload keys, as written by the upgrade service.
const (
	keyStatus = "status"
	keyCurr   = "curr_ver"
	keyPrev   = "prev_ver"
)

// fallbackField matches a top-level-looking 'key': 'value' pair with either
// quote style. The leading quote keeps 'status' from matching 'update_status'.
func fallbackField(key string) *regexp.Regexp {
	return regexp.MustCompile(`['"]` + regexp.QuoteMeta(key) + `['"]\s*:\s*['"]([^'"]*)['"]`)
}

var fallbacks = map[string]*regexp.Regexp{
	keyStatus: fallbackField(keyStatus),
	keyCurr:   fallbackField(keyCurr),
	keyPrev:   fallbackField(keyPrev),
}

// ExtractFields pulls status and versions out of a quasi-JSON payload.
//
// The payload is first rewritten from Python-literal syntax to JSON and parsed
// with fastjson; top-level fields are read from the parsed object. If the
// payload does not parse, each field is searched for independently.
func (c *Classifier) ExtractFields(payload string) Fields {
	p := c.parsers.Get()
	defer c.parsers.Put(p)

	v, err := p.Parse(normalizeLiteral(payload))
	if err == nil && v.Type() == fastjson.TypeObject {
		var f Fields
		f.Status, f.HasStatus = scalar(v.Get(keyStatus))
		f.CurrVersion, _ = scalar(v.Get(keyCurr))
		f.PrevVersion, _ = scalar(v.Get(keyPrev))
		return f
	}

	return extractFallback(payload)
}

func extractFallback(payload string) Fields {
	var f Fields
	if m := fallbacks[keyStatus].FindStringSubmatch(payload); m != nil {
		f.Status, f.HasStatus = m[1], true
	}
	if m := fallbacks[keyCurr].FindStringSubmatch(payload); m != nil {
		f.CurrVersion = m[1]
	}
	if m := fallbacks[keyPrev].FindStringSubmatch(payload); m != nil {
		f.PrevVersion = m[1]
	}
	return f
}

// scalar renders a string or number value. Objects, arrays and null are
// treated as absent.
func scalar(v *fastjson.Value) (string, bool) {
	if v == nil {
		return "", false
	}
	switch v.Type() {
	case fastjson.TypeString:
		return string(v.GetStringBytes()), true
	case fastjson.TypeNumber:
		return string(v.MarshalTo(nil)), true
	default:
		return "", false
	}
}

// pyWords maps Python literal keywords to their JSON spelling.
var pyWords = []struct{ py, json string }{
	{"None", "null"},
	{"True", "true"},
	{"False", "false"},
}

// normalizeLiteral rewrites a Python dict literal into JSON: single-quoted
// strings become double-quoted and None/True/False become null/true/false.
// Input that is not a dict literal passes through and fails to parse later.
func normalizeLiteral(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 8)

	var quote byte
	for i := 0; i < len(s); i++ {
		ch := s[i]

		if quote != 0 {
			switch {
			case ch == '\\' && i+1 < len(s):
				if s[i+1] == '\'' {
					b.WriteByte('\'')
				} else {
					b.WriteByte(ch)
					b.WriteByte(s[i+1])
				}
				i++
			case ch == quote:
				b.WriteByte('"')
				quote = 0
			case ch == '"':
				b.WriteString(`\"`)
			default:
				b.WriteByte(ch)
			}
			continue
		}

		if ch == '\'' || ch == '"' {
			quote = ch
			b.WriteByte('"')
			continue
		}

		if n, repl := matchWord(s, i); n > 0 {
			b.WriteString(repl)
			i += n - 1
			continue
		}
		b.WriteByte(ch)
	}
	return b.String()
}

// matchWord reports a Python keyword starting at s[i] on identifier boundaries.
func matchWord(s string, i int) (int, string) {
	if i > 0 && isIdent(s[i-1]) {
		return 0, ""
	}
	for _, w := range pyWords {
		end := i + len(w.py)
		if strings.HasPrefix(s[i:], w.py) && (end == len(s) || !isIdent(s[end])) {
			return len(w.py), w.json
		}
	}
	return 0, ""
}

func isIdent(ch byte) bool {
	return ch == '_' || ch >= '0' && ch <= '9' || ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z'
}
