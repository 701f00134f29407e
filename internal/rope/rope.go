package rope

import (
	"iter"
	"strings"

	"github.com/dshills/multibuffer/internal/sumtree"
)

// Rope is an immutable text sequence.
// Operations return new Rope values that share structure with the original.
// The zero value is an empty rope.
type Rope struct {
	tree sumtree.Tree[chunk, TextSummary]
}

// FromString creates a rope holding s.
func FromString(s string) Rope {
	return Rope{tree: sumtree.FromItems[chunk, TextSummary](splitIntoChunks(s))}
}

// Len returns the byte length.
func (r Rope) Len() ByteOffset {
	return r.tree.Summary().Bytes
}

// IsEmpty reports whether the rope holds no text.
func (r Rope) IsEmpty() bool {
	return r.tree.IsEmpty()
}

// LineCount returns the number of lines (newlines + 1).
func (r Rope) LineCount() uint32 {
	return r.tree.Summary().Lines + 1
}

// Summary returns the metrics of the whole text.
func (r Rope) Summary() TextSummary {
	return r.tree.Summary()
}

// String returns the full text.
func (r Rope) String() string {
	var sb strings.Builder
	sb.Grow(int(r.Len()))
	for c := range r.tree.All() {
		sb.WriteString(c.text)
	}
	return sb.String()
}

// Chunks iterates the stored text pieces in order.
func (r Rope) Chunks() iter.Seq[string] {
	return func(yield func(string) bool) {
		for c := range r.tree.All() {
			if !yield(c.text) {
				return
			}
		}
	}
}

// Split divides the rope at offset, clamped to [0, Len].
func (r Rope) Split(offset ByteOffset) (Rope, Rope) {
	switch {
	case offset <= 0:
		return Rope{}, r
	case offset >= r.Len():
		return r, Rope{}
	}

	left, right := r.tree.Split(func(s TextSummary) bool { return s.Bytes > offset })
	at := offset - left.Summary().Bytes
	if at == 0 {
		return Rope{tree: left}, Rope{tree: right}
	}

	c, _ := right.First()
	a, b := c.split(int(at))
	left = left.Push(a)
	right = sumtree.FromItems[chunk, TextSummary]([]chunk{b}).Append(right.DropFirst())
	return Rope{tree: left}, Rope{tree: right}
}

// Append returns the concatenation of r and other.
// Small chunks meeting at the seam are merged.
func (r Rope) Append(other Rope) Rope {
	if r.IsEmpty() {
		return other
	}
	if other.IsEmpty() {
		return r
	}

	last, _ := r.tree.Last()
	first, _ := other.tree.First()
	if (len(last.text) < MinChunkSize || len(first.text) < MinChunkSize) &&
		len(last.text)+len(first.text) <= MaxChunkSize {
		merged := newChunk(last.text + first.text)
		return Rope{tree: r.tree.DropLast().Push(merged).Append(other.tree.DropFirst())}
	}
	return Rope{tree: r.tree.Append(other.tree)}
}

// Insert returns a rope with text inserted at offset.
func (r Rope) Insert(offset ByteOffset, text string) Rope {
	if len(text) == 0 {
		return r
	}
	left, right := r.Split(offset)
	return left.Append(FromString(text)).Append(right)
}

// Delete returns a rope without the bytes in [start, end).
func (r Rope) Delete(start, end ByteOffset) Rope {
	if start >= end {
		return r
	}
	left, rest := r.Split(start)
	_, right := rest.Split(end - max(start, 0))
	return left.Append(right)
}

// Replace returns a rope with [start, end) replaced by text.
func (r Rope) Replace(start, end ByteOffset, text string) Rope {
	return r.Delete(start, end).Insert(start, text)
}

// Sub returns the rope holding [start, end).
func (r Rope) Sub(start, end ByteOffset) Rope {
	if start >= end {
		return Rope{}
	}
	_, rest := r.Split(start)
	mid, _ := rest.Split(end - max(start, 0))
	return mid
}

// Slice returns the text in [start, end).
func (r Rope) Slice(start, end ByteOffset) string {
	return r.Sub(start, end).String()
}

// SummaryForRange returns the metrics of the text in [start, end).
func (r Rope) SummaryForRange(start, end ByteOffset) TextSummary {
	return r.Sub(start, end).Summary()
}

// LineStartOffset returns the offset of the first byte of a 0-indexed line.
// Lines past the end map to Len.
func (r Rope) LineStartOffset(line uint32) ByteOffset {
	if line == 0 {
		return 0
	}
	if line >= r.LineCount() {
		return r.Len()
	}

	c, before, _ := r.tree.Find(func(s TextSummary) bool { return s.Lines >= line })
	idx := nthNewline(c.text, line-before.Lines)
	return before.Bytes + ByteOffset(idx) + 1
}

// LineEndOffset returns the offset of the newline ending a line, or Len for
// the last line.
func (r Rope) LineEndOffset(line uint32) ByteOffset {
	if line+1 >= r.LineCount() {
		return r.Len()
	}
	return r.LineStartOffset(line+1) - 1
}

// LineText returns a line without its newline.
func (r Rope) LineText(line uint32) string {
	return r.Slice(r.LineStartOffset(line), r.LineEndOffset(line))
}

// OffsetToPoint converts a byte offset to a line/column position.
func (r Rope) OffsetToPoint(offset ByteOffset) Point {
	prefix, _ := r.Split(offset)
	s := prefix.Summary()
	return Point{Line: s.Lines, Column: s.LastLineLen}
}

// PointToOffset converts a line/column position to a byte offset.
// Columns past the end of the line clamp to the line end.
func (r Rope) PointToOffset(p Point) ByteOffset {
	start := r.LineStartOffset(p.Line)
	end := r.LineEndOffset(p.Line)
	return min(start+ByteOffset(p.Column), end)
}

// Check verifies the internal tree structure.
func (r Rope) Check() error {
	return r.tree.Check(func(a, b TextSummary) bool { return a == b })
}
