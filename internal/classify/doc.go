// Package classify turns raw log lines into tagged events.
//
// A Classifier is built from config.Patterns and is a pure function of its
// input line: the same line always yields the same event. Patterns are tested
// from most to least specific:
//
//  1. overall-start sentinel phrase
//  2. explicit per-entity start ("Upgrading <name> to version <ver>")
//  3. status update with a quasi-structured payload ('installing', 'complete')
//
// Anything else is ir.Unrecognized. A line whose leading token is not an
// RFC 3339 timestamp is also ir.Unrecognized, and Classify additionally
// returns a *TimestampError so callers can emit a diagnostic.
//
// Payloads use Python-literal quoting ('single quotes', None, True). They are
// parsed field by field: a payload that cannot be parsed as a whole still
// yields whichever fields can be found, and missing fields are not errors.
package classify
