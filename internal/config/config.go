// Package config holds the immutable configuration value shared by the
// classifier, layout and renderer.
//
// Defaults and constraints live in the embedded CUE schema (schema.cue).
// Configuration files may be YAML or CUE; both are unified with the schema
// and decoded into Config, so a partial file only overrides what it names.
package config

import (
	"fmt"
	"regexp"
	"time"
)

// Clock modes for the "current" timestamp of in-progress records.
const (
	ClockStream = "stream" // last timestamp observed in the input
	ClockWall   = "wall"   // time.Now()
)

// Config is passed by value; consumers never mutate a shared instance.
type Config struct {
	Patterns Patterns `json:"patterns" yaml:"patterns"`
	Chart    Chart    `json:"chart" yaml:"chart"`
	Clock    string   `json:"clock" yaml:"clock"`
}

// Patterns configures the line classifier.
type Patterns struct {
	// OverallStart is a literal sentinel phrase, matched as a substring.
	OverallStart string `json:"overall_start" yaml:"overall_start"`
	// ExplicitStart must define the named groups "entity" and "version".
	ExplicitStart string `json:"explicit_start" yaml:"explicit_start"`
	// StatusUpdate must define the named groups "entity" and "payload".
	StatusUpdate     string `json:"status_update" yaml:"status_update"`
	InstallingStatus string `json:"installing_status" yaml:"installing_status"`
	CompleteStatus   string `json:"complete_status" yaml:"complete_status"`
}

// Chart configures layout and rendering.
type Chart struct {
	Title          string `json:"title" yaml:"title"`
	Width          int    `json:"width" yaml:"width"`
	MinHeight      int    `json:"min_height" yaml:"min_height"`
	MarginTop      int    `json:"margin_top" yaml:"margin_top"`
	MarginRight    int    `json:"margin_right" yaml:"margin_right"`
	MarginBottom   int    `json:"margin_bottom" yaml:"margin_bottom"`
	MarginLeft     int    `json:"margin_left" yaml:"margin_left"`
	RowHeight      int    `json:"row_height" yaml:"row_height"`
	RowGap         int    `json:"row_gap" yaml:"row_gap"`
	LabelMaxChars  int    `json:"label_max_chars" yaml:"label_max_chars"`
	MinSpanSeconds int    `json:"min_span_seconds" yaml:"min_span_seconds"`
	FontFamily     string `json:"font_family" yaml:"font_family"`
	Colors         Colors `json:"colors" yaml:"colors"`
}

// Colors are hex "#rrggbb" values.
type Colors struct {
	Background string `json:"background" yaml:"background"`
	Complete   string `json:"complete" yaml:"complete"`
	InProgress string `json:"in_progress" yaml:"in_progress"`
	Axis       string `json:"axis" yaml:"axis"`
	Grid       string `json:"grid" yaml:"grid"`
	Text       string `json:"text" yaml:"text"`
}

// PlotWidth is the drawable width between the left and right margins.
func (c Chart) PlotWidth() float64 {
	w := c.Width - c.MarginLeft - c.MarginRight
	if w < 1 {
		w = 1
	}
	return float64(w)
}

// MinSpan returns the padding applied to a degenerate time range.
func (c Chart) MinSpan() time.Duration {
	return time.Duration(c.MinSpanSeconds) * time.Second
}

// ValidationError reports a configuration field that failed validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid config: " + e.Message
	}
	return fmt.Sprintf("invalid config: %s: %s", e.Field, e.Message)
}

// Validate checks constraints the CUE schema cannot express: pattern
// compilation and the named capture groups the classifier relies on.
func (c Config) Validate() error {
	if err := requireGroups("patterns.explicit_start", c.Patterns.ExplicitStart, "entity", "version"); err != nil {
		return err
	}
	if err := requireGroups("patterns.status_update", c.Patterns.StatusUpdate, "entity", "payload"); err != nil {
		return err
	}
	if c.Patterns.InstallingStatus == c.Patterns.CompleteStatus {
		return &ValidationError{Field: "patterns", Message: "installing_status and complete_status must differ"}
	}
	if c.Clock != ClockStream && c.Clock != ClockWall {
		return &ValidationError{Field: "clock", Message: fmt.Sprintf("unknown clock %q", c.Clock)}
	}
	if c.Chart.PlotWidth() <= 1 {
		return &ValidationError{Field: "chart.width", Message: "margins leave no room for the plot"}
	}
	return nil
}

func requireGroups(field, pattern string, groups ...string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return &ValidationError{Field: field, Message: err.Error()}
	}
	for _, g := range groups {
		if re.SubexpIndex(g) < 0 {
			return &ValidationError{Field: field, Message: fmt.Sprintf("missing named group %q", g)}
		}
	}
	return nil
}
