package stats

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
)

func formatMinutes(m float64) string {
	return fmt.Sprintf("%.2fm", m)
}

const rule = "============================================================"

// WriteText writes r as a plain-text report.
func WriteText(w io.Writer, r Report) error {
	var b strings.Builder

	b.WriteString(rule + "\n")
	b.WriteString("UPGRADE TIME STATISTICS\n")
	b.WriteString(rule + "\n")
	fmt.Fprintf(&b, "Total upgrades:       %s\n", humanize.Comma(int64(r.Total)))
	fmt.Fprintf(&b, "Completed upgrades:   %s\n", humanize.Comma(int64(r.Completed)))
	fmt.Fprintf(&b, "In-progress upgrades: %s\n", humanize.Comma(int64(r.InProgress)))
	fmt.Fprintf(&b, "Retroactive records:  %s\n", humanize.Comma(int64(r.Retroactive)))

	if !r.HasDurations() {
		b.WriteString("\nNo completed upgrades with an observed start.\n")
		b.WriteString(rule + "\n")
		_, err := io.WriteString(w, b.String())
		return err
	}

	b.WriteString("\nDuration Statistics (minutes):\n")
	fmt.Fprintf(&b, "  Minimum: %s (%s)\n", formatMinutes(r.Min.Minutes), r.Min.Entity)
	fmt.Fprintf(&b, "  Maximum: %s (%s)\n", formatMinutes(r.Max.Minutes), r.Max.Entity)
	fmt.Fprintf(&b, "  Average: %s\n", formatMinutes(r.AvgMinutes))
	fmt.Fprintf(&b, "  Std Dev: %s\n", formatMinutes(r.StdMinutes))

	b.WriteString("\nDuration Distribution:\n")
	for _, bk := range r.Histogram {
		fmt.Fprintf(&b, "  %6s: %3d upgrades (%5.1f%%)\n", bk.Label, bk.Count, bk.Percent)
	}
	b.WriteString(rule + "\n")

	_, err := io.WriteString(w, b.String())
	return err
}
