// Package doc defines the versioned preference document and the pure
// algorithms the commit store runs over it.
//
// A Document is a flat map from field name to either a single string (Text)
// or an ordered list of short facts (List). Any other JSON value is kept
// verbatim as Raw so malformed documents survive a round trip.
//
// Key behaviors:
//   - Fact lists are compared by FactKey: trimmed, case-folded, NFC.
//   - The reserved LastUpdated field never takes part in deltas or merges.
//   - Deltas are audit records only; snapshots are always complete.
//
// doc imports nothing internal.
package doc
