// Package rope provides an immutable rope for text storage.
//
// Text is kept in bounded chunks held by a sumtree.Tree whose nodes cache a
// TextSummary (bytes, UTF-16 units, newlines and line lengths). Offset and
// line lookups seek through the cached summaries in O(log n).
//
// Basic usage:
//
//	r := rope.FromString("hello world")
//	r = r.Insert(5, ",")  // "hello, world"
//	r = r.Delete(0, 7)    // "world"
//	text := r.String()    // "world"
//
// Ropes are values; edits return new ropes that share unchanged chunks with
// the original, so old versions stay valid and are safe for concurrent reads.
package rope
