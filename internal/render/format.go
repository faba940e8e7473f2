package render

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Durations at three granularities, as shown in the tooltip.
func durationSeconds(d time.Duration) string { return fmt.Sprintf("%.1f", d.Seconds()) }
func durationMinutes(d time.Duration) string { return fmt.Sprintf("%.2f", d.Minutes()) }
func durationHours(d time.Duration) string   { return fmt.Sprintf("%.3f", d.Hours()) }

// HumanDuration picks the coarsest unit that keeps the value readable:
// seconds under a minute, minutes under an hour, hours otherwise.
func HumanDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	case d < time.Hour:
		return fmt.Sprintf("%.1fm", d.Minutes())
	default:
		return fmt.Sprintf("%.1fh", d.Hours())
	}
}

// stampLayout is used for tooltip and data-* timestamps.
const stampLayout = "2006-01-02 15:04:05.000 UTC"

func stamp(t time.Time) string {
	return t.UTC().Format(stampLayout)
}

// TruncateLabel shortens name to at most max runes, ending in "..." when cut.
func TruncateLabel(name string, max int) string {
	if max <= 3 || utf8.RuneCountInString(name) <= max {
		return name
	}
	runes := []rune(name)
	return string(runes[:max-3]) + "..."
}

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

// escapeXML escapes markup characters and drops code points XML 1.0 cannot
// carry, so arbitrary log text always yields a well-formed document.
func escapeXML(s string) string {
	if strings.IndexFunc(s, invalidXMLRune) >= 0 {
		s = strings.Map(func(r rune) rune {
			if invalidXMLRune(r) {
				return -1
			}
			return r
		}, s)
	}
	return xmlEscaper.Replace(s)
}

func invalidXMLRune(r rune) bool {
	switch {
	case r == '\t' || r == '\n' || r == '\r':
		return false
	case r < 0x20:
		return true
	case r == utf8.RuneError:
		return true
	case r >= 0xFFFE && r <= 0xFFFF:
		return true
	}
	return false
}
