// Package engine reconstructs upgrade intervals from a classified log stream.
//
// The engine is a single-pass fold. Engine.Run reads lines, hands each to the
// classifier, and applies the resulting event to a Tracker. The Tracker owns
// the record mapping exclusively; callers only ever see an ir.Snapshot copy.
//
// STATE MACHINE (per entity):
//
//	Unseen --start--> Started --complete--> Completed
//	Unseen --complete--> Completed (retroactive, zero width)
//
// Completed is terminal. Starts on a Started record are inert, so the first
// recorded start wins. Any event for a Completed record is inert.
//
// DIAGNOSTICS:
// Malformed timestamps and completions that precede their start are logged at
// Warn and counted in the Summary. Duplicates and unrecognized lines are not
// diagnostics; they are logged at Debug only.
//
// Nothing in the fold is fatal. Run returns an error only when the reader
// fails or the context is cancelled.
package engine
