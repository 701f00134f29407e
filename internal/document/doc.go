// Package document provides the text documents that excerpts are drawn from.
//
// A Document is mutable and thread-safe. Every edit is appended to an edit
// log and bumps the document Version. Snapshot returns an immutable view of
// the current state that:
//
//   - resolves Anchors (version, offset, bias) created at any earlier version
//   - extracts text and TextSummary metrics for offset or anchor ranges
//   - reports EditsSince(version) as sorted, coalesced old/new ranges
//   - exposes the file path and a counter of non-text state changes
//
// Anchor resolution: an edit replacing old bytes [s, e] with n bytes maps an
// offset inside the closed range to s for a left-biased anchor and to s+n for
// a right-biased one. Offsets after e shift by the length delta.
//
// Basic usage:
//
//	doc := document.New("hello world", document.WithPath("a.txt"))
//	r := doc.Range(0, 5)
//	_ = doc.Insert(0, ">> ")
//	snap := doc.Snapshot()
//	snap.TextForRange(r) // ">> hello"
package document
