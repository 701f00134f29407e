// Package sumtree provides a persistent B+ tree whose nodes cache an
// aggregated summary of their subtree.
//
// A Tree is parameterized by an item type and a summary type. Every item
// reports its own summary and summaries combine with an associative Add
// whose identity is the summary's zero value. Internal nodes store the fold
// of their children's summaries, which turns any monotone predicate over a
// running summary (byte offset, line count, maximum key) into an O(log n)
// seek.
//
// Trees are immutable values. Push, Append and the split operations return
// new trees that share every untouched node with their inputs, so a Tree can
// be copied and handed to concurrent readers while the owner keeps building
// new versions.
//
//	t := sumtree.FromItems[chunk, size](chunks)
//	left, right := t.Split(func(s size) bool { return s.bytes > 1024 })
//	t = left.Push(extra).Append(right)
package sumtree
