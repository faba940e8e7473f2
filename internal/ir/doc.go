// Package ir provides the shared data model for upgradeviz.
//
// This package contains type definitions and their canonical serialization
// only. All other internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - One IntervalRecord per entity name; entity names are NFC-normalised keys
//   - A zero time.Time means "not observed" for optional timestamps
//   - Empty version strings mean "not reported"
//   - Snapshots handed downstream are copies; only the tracker mutates records
//   - All JSON keys use snake_case
package ir
