package testutil

import (
	"fmt"
	"strings"
	"time"
)

// Base is the reference instant used by fixtures: 2025-07-23T00:00:00Z.
var Base = time.Date(2025, 7, 23, 0, 0, 0, 0, time.UTC)

// At returns Base plus d.
func At(d time.Duration) time.Time {
	return Base.Add(d)
}

// Stamp formats t the way the upgrade service logs it.
func Stamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000000-07:00")
}

// OverallStartLine builds a batch-level start marker line.
func OverallStartLine(t time.Time) string {
	return Stamp(t) + " Upgrading gateways without controller upgrade..."
}

// ExplicitStartLine builds an "Upgrading <name> to version <ver>" line.
func ExplicitStartLine(t time.Time, name, version string) string {
	return fmt.Sprintf("%s Upgrading %s to version %s", Stamp(t), name, version)
}

// InstallingLine builds a status update with status 'installing'.
func InstallingLine(t time.Time, name string) string {
	return fmt.Sprintf("%s Updating upgrade_info to gw %s: {'status': 'installing', 'process_status': "+
		"{'type': 'Software Upgrade', 'prev_status': 'pending', 'message': 'INSTALLING: Starting upgrade', 'timestamp': None}}",
		Stamp(t), name)
}

// CompleteLine builds a status update with status 'complete'.
func CompleteLine(t time.Time, name, prev, curr string) string {
	return fmt.Sprintf("%s Updating upgrade_info to gw %s: {'status': 'complete', 'curr_ver': '%s', 'kernel_ver': '', "+
		"'prev_ver': '%s', 'process_status': {'type': 'Software Upgrade', 'update_status': 'complete', "+
		"'message': 'Successfully upgraded', 'timestamp': %d}}",
		Stamp(t), name, curr, prev, t.Unix())
}

// StatusLine builds a status update with an arbitrary status value.
func StatusLine(t time.Time, name, status string) string {
	return fmt.Sprintf("%s Updating upgrade_info to gw %s: {'status': '%s'}", Stamp(t), name, status)
}

// Join concatenates lines into newline-terminated log text.
func Join(lines ...string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}
