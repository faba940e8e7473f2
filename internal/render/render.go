// Package render writes a timeline layout as a self-contained interactive
// SVG document.
//
// The document carries one bar per row, a time axis with grid lines, a
// tooltip layer and an embedded viewport script (assets/viewport.js) that
// implements wheel zoom anchored at the cursor, drag pan and tooltip
// show/hide. The script is a fixed asset; the renderer emits it verbatim.
package render

import (
	_ "embed"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/roach88/upgradeviz/internal/config"
	"github.com/roach88/upgradeviz/internal/ir"
	"github.com/roach88/upgradeviz/internal/layout"
)

//go:embed assets/viewport.js
var viewportJS string

// EmptyMessage is the text of a document rendered from no records.
const EmptyMessage = "No upgrade data found in logs"

// MinBarWidth keeps zero-width (retroactive) intervals visible.
const MinBarWidth = 2.0

const (
	titleBaseline = 30
	axisGap       = 10 // between last row and axis line
	tickLength    = 5
	labelGap      = 20 // between axis line and tick labels
	labelPad      = 10 // between row label and plot area
)

// Renderer renders layouts with fixed chart settings. It holds no mutable
// state and is safe for concurrent use.
type Renderer struct {
	chart config.Chart
}

// New returns a Renderer for chart.
func New(chart config.Chart) *Renderer {
	return &Renderer{chart: chart}
}

// Size returns the document width and height for n rows.
func (r *Renderer) Size(n int) (width, height int) {
	c := r.chart
	plot := n * (c.RowHeight + c.RowGap)
	height = c.MarginTop + plot + c.MarginBottom
	if height < c.MinHeight {
		height = c.MinHeight
	}
	return c.Width, height
}

// plotHeight is the vertical space available to rows.
func (r *Renderer) plotHeight(n int) int {
	_, h := r.Size(n)
	return h - r.chart.MarginTop - r.chart.MarginBottom
}

// Render writes l as an SVG document. An empty layout produces a minimal
// document marked data-empty="true".
func (r *Renderer) Render(w io.Writer, l layout.Layout) error {
	var b strings.Builder
	if l.Empty() {
		r.writeEmpty(&b)
	} else {
		r.writeChart(&b, l)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func (r *Renderer) open(b *strings.Builder, width, height int, empty bool) {
	c := r.chart
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	fmt.Fprintf(b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" font-family="%s" data-generator="upgradeviz %s" data-empty="%t">`+"\n",
		width, height, width, height, escapeXML(c.FontFamily), ir.ToolVersion, empty)
	fmt.Fprintf(b, `<rect class="background" width="100%%" height="100%%" fill="%s"/>`+"\n", c.Colors.Background)
}

func (r *Renderer) writeEmpty(b *strings.Builder) {
	width, height := r.Size(0)
	r.open(b, width, height, true)
	fmt.Fprintf(b, `<text class="empty" x="%d" y="%d" text-anchor="middle" font-size="18" fill="%s">%s</text>`+"\n",
		width/2, height/2, r.chart.Colors.Text, EmptyMessage)
	b.WriteString("</svg>\n")
}

func (r *Renderer) writeChart(b *strings.Builder, l layout.Layout) {
	c := r.chart
	width, height := r.Size(len(l.Rows))
	r.open(b, width, height, false)
	r.writeStyle(b)

	fmt.Fprintf(b, `<text class="title" x="%d" y="%d">%s</text>`+"\n", width/2, titleBaseline, escapeXML(c.Title))

	fmt.Fprintf(b, `<g id="viewport" transform="%s">`+"\n", Identity().Matrix())
	fmt.Fprintf(b, `<g class="chart-area" transform="translate(%d %d)">`+"\n", c.MarginLeft, c.MarginTop)
	r.writeAxis(b, l, r.plotHeight(len(l.Rows)))
	b.WriteString(`<g class="rows">` + "\n")
	for i, row := range l.Rows {
		r.writeRow(b, i, row)
	}
	b.WriteString("</g>\n</g>\n</g>\n")

	r.writeTooltipLayer(b)
	b.WriteString(`<script type="application/ecmascript"><![CDATA[` + "\n")
	b.WriteString(cdataSafe(viewportJS))
	b.WriteString("]]></script>\n")
	b.WriteString("</svg>\n")
}

func (r *Renderer) writeStyle(b *strings.Builder) {
	c := r.chart.Colors
	b.WriteString("<style>\n")
	fmt.Fprintf(b, ".title { font-size: 18px; font-weight: bold; fill: %s; text-anchor: middle; }\n", c.Text)
	fmt.Fprintf(b, ".gateway-label { font-size: 11px; fill: %s; dominant-baseline: middle; text-anchor: end; }\n", c.Text)
	fmt.Fprintf(b, ".time-label { font-size: 10px; fill: %s; text-anchor: middle; }\n", c.Text)
	fmt.Fprintf(b, ".bar { cursor: pointer; stroke: %s; stroke-width: 1; }\n", c.Axis)
	b.WriteString(".bar:hover { opacity: 0.8; stroke-width: 2; }\n")
	b.WriteString("svg { cursor: grab; }\nsvg.panning { cursor: grabbing; }\n")
	b.WriteString(".tooltip-text { fill: #ffffff; font-size: 12px; }\n")
	b.WriteString("</style>\n")
}

func (r *Renderer) writeAxis(b *strings.Builder, l layout.Layout, plotH int) {
	c := r.chart
	axisY := plotH + axisGap

	b.WriteString(`<g class="grid">` + "\n")
	for _, t := range l.Ticks {
		fmt.Fprintf(b, `<line x1="%s" y1="0" x2="%s" y2="%d" stroke="%s" stroke-width="1"/>`+"\n",
			num(t.X), num(t.X), plotH, c.Colors.Grid)
	}
	b.WriteString("</g>\n")

	b.WriteString(`<g class="axis">` + "\n")
	fmt.Fprintf(b, `<line x1="0" y1="%d" x2="%s" y2="%d" stroke="%s" stroke-width="1"/>`+"\n",
		axisY, num(l.Scale.Width), axisY, c.Colors.Axis)
	for _, t := range l.Ticks {
		fmt.Fprintf(b, `<line x1="%s" y1="%d" x2="%s" y2="%d" stroke="%s" stroke-width="1"/>`+"\n",
			num(t.X), axisY, num(t.X), axisY+tickLength, c.Colors.Axis)
		fmt.Fprintf(b, `<text class="time-label" x="%s" y="%d" data-time="%s">%s</text>`+"\n",
			num(t.X), axisY+labelGap, stamp(t.At), escapeXML(t.Label))
	}
	b.WriteString("</g>\n")
}

func (r *Renderer) writeRow(b *strings.Builder, i int, row layout.Row) {
	c := r.chart
	rec := row.Record
	y := i * (c.RowHeight + c.RowGap)

	barW := row.X1 - row.X0
	if barW < MinBarWidth {
		barW = MinBarWidth
	}
	fill := c.Colors.InProgress
	class := "bar bar-in-progress"
	if rec.Complete() {
		fill = c.Colors.Complete
		class = "bar bar-complete"
	}

	d := row.End.Sub(rec.Start)
	end := ""
	if rec.Ended() {
		end = stamp(rec.End)
	}

	fmt.Fprintf(b, `<g class="row" data-row="%d">`+"\n", i)
	fmt.Fprintf(b, `<text class="gateway-label" x="%d" y="%s">%s</text>`+"\n",
		-labelPad, num(float64(y)+float64(c.RowHeight)/2), escapeXML(TruncateLabel(rec.Entity, c.LabelMaxChars)))

	fmt.Fprintf(b, `<rect class="%s" x="%s" y="%d" width="%s" height="%d" fill="%s"`,
		class, num(row.X0), y, num(barW), c.RowHeight, fill)
	attr(b, "data-entity", rec.Entity)
	attr(b, "data-status", string(rec.Status))
	attr(b, "data-start-kind", string(rec.StartKind))
	attr(b, "data-start", stamp(rec.Start))
	attr(b, "data-end", end)
	attr(b, "data-duration-s", durationSeconds(d))
	attr(b, "data-duration-m", durationMinutes(d))
	attr(b, "data-duration-h", durationHours(d))
	if rec.PrevVersion != "" {
		attr(b, "data-prev-version", rec.PrevVersion)
	}
	if rec.CurrVersion != "" {
		attr(b, "data-curr-version", rec.CurrVersion)
	}
	if rec.TargetVersion != "" {
		attr(b, "data-target-version", rec.TargetVersion)
	}
	b.WriteString(">")
	fmt.Fprintf(b, "<title>%s</title>", escapeXML(TooltipText(rec, row.End)))
	b.WriteString("</rect>\n</g>\n")
}

func (r *Renderer) writeTooltipLayer(b *strings.Builder) {
	b.WriteString(`<g id="tooltip" class="svg-tooltip" visibility="hidden" pointer-events="none">`)
	b.WriteString(`<rect rx="4" ry="4" width="0" height="0" fill="#000000" fill-opacity="0.9"/>`)
	b.WriteString(`<text class="tooltip-text"></text>`)
	b.WriteString("</g>\n")
}

func attr(b *strings.Builder, name, value string) {
	fmt.Fprintf(b, ` %s="%s"`, name, escapeXML(value))
}

// TooltipText is the native <title> text of a bar. end is the bar's drawn
// end, used for the running duration of open records.
func TooltipText(rec ir.IntervalRecord, end time.Time) string {
	d := end.Sub(rec.Start)
	lines := []string{
		"Gateway: " + rec.Entity,
		"Start: " + stamp(rec.Start) + startNote(rec.StartKind),
	}
	if rec.Ended() {
		lines = append(lines,
			"End: "+stamp(rec.End),
			fmt.Sprintf("Duration: %s (%ss / %sm / %sh)", HumanDuration(d), durationSeconds(d), durationMinutes(d), durationHours(d)))
	} else {
		lines = append(lines,
			"Status: In Progress",
			fmt.Sprintf("Running: %s (%ss / %sm / %sh)", HumanDuration(d), durationSeconds(d), durationMinutes(d), durationHours(d)))
	}
	if rec.PrevVersion != "" || rec.CurrVersion != "" {
		lines = append(lines, "Version: "+orUnknown(rec.PrevVersion)+" -> "+orUnknown(rec.CurrVersion))
	}
	if rec.TargetVersion != "" {
		lines = append(lines, "Target: "+rec.TargetVersion)
	}
	return strings.Join(lines, "\n")
}

func startNote(k ir.StartKind) string {
	switch k {
	case ir.StartInstalling:
		return " (from installing status)"
	case ir.StartRetroactive:
		return " (no start observed)"
	default:
		return ""
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "?"
	}
	return s
}

// cdataSafe splits any "]]>" so it cannot terminate the CDATA section.
func cdataSafe(s string) string {
	return strings.ReplaceAll(s, "]]>", "]]]]><![CDATA[>")
}
