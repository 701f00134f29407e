// Package multibuffer composes excerpts of many documents into one ordered,
// linear view and keeps that view correct as the documents are edited and
// renamed.
//
// An excerpt is an anchor range of a document. Excerpts live in a persistent
// sumtree.Tree ordered by ExcerptKey: file path (documents without a file
// first), document ID, then range. Each tree node caches the greatest key
// and the text metrics of its subtree, so inserting, locating and measuring
// excerpts are logarithmic, and snapshots share all untouched nodes.
//
// The composed text is the concatenation of every excerpt's text, with a
// "\n" separator before each excerpt that is not empty and does not start
// exactly where the previous excerpt of the same document ends.
//
// Invariants, checked after every mutation unless built with the release
// tag or disabled with WithInvariantChecks(false):
//
//   - excerpts are strictly ordered by key
//   - excerpts of one document never overlap; overlapping or touching
//     requests are merged
//   - every referenced document has a cached snapshot
//   - TouchesPrevious, Empty and the cached metrics match the snapshots
//
// Synchronization runs at the start of InsertExcerpts and Snapshot. It
// takes a fresh snapshot of every registered document, moves the excerpts of
// renamed documents, and repairs the excerpts touched by edits.
//
// Basic usage:
//
//	a := document.New("The quick brown fox", document.WithPath("a.txt"))
//	mb := multibuffer.New()
//	mb.InsertExcerpts([]multibuffer.ExcerptRange{
//		{Document: a, Range: a.Range(0, 9)},
//	})
//	mb.Snapshot().Text() // "\nThe quick"
package multibuffer
