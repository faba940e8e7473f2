// Package harness runs reconstruction scenarios end to end.
//
// A scenario feeds log text through the classifier, the tracker, the layout
// and the renderer, then checks assertions against the result. The canonical
// record snapshot can also be compared against a golden file.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	config: optional/config.yaml
//	input: |
//	  2025-07-23T00:00:00.000000+00:00 Upgrading gw-1 to version 9
//	  2025-07-23T00:03:50.000000+00:00 Updating upgrade_info to gw gw-1: {'status': 'complete'}
//	assertions:
//	  - type: record_count
//	    count: 1
//	  - type: record
//	    entity: gw-1
//	    status: complete
//	    start_kind: explicit
//	    duration_s: 230
//
// input_file may name a log file instead of inline input; gzip and zstd
// files are decompressed transparently.
//
// # Assertion Types
//
//   - record_count: exactly N records were reconstructed
//   - record: the named record has the listed fields
//   - row_order: entities appear as rows in the given relative order
//   - diagnostic_count: exactly N diagnostics were reported
//   - unrecognized_count: exactly N lines matched no event shape
//   - empty_document: the document is (or is not) the empty-state message
//
// # Deterministic Testing
//
// The "current" time for open records is always the last timestamp in the
// input, never the wall clock, so the same scenario renders the same
// document on every run.
package harness
