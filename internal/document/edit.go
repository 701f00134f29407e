package document

import (
	"fmt"

	"github.com/dshills/multibuffer/internal/rope"
)

// ByteOffset is an absolute byte position in a document.
type ByteOffset = rope.ByteOffset

// Point is a 0-indexed line/column position.
type Point = rope.Point

// Range is a byte range [Start, End).
type Range struct {
	Start ByteOffset
	End   ByteOffset
}

// String returns a human-readable representation of the range.
func (r Range) String() string {
	return fmt.Sprintf("[%d:%d)", r.Start, r.End)
}

// Len returns the length of the range in bytes.
func (r Range) Len() ByteOffset {
	return r.End - r.Start
}

// IsEmpty reports whether the range has zero length.
func (r Range) IsEmpty() bool {
	return r.Start >= r.End
}

// Edit describes a replaced region: Old in the coordinates of the earlier
// version, New in the coordinates of the later one.
type Edit struct {
	Old Range
	New Range
}

// String returns "old -> new".
func (e Edit) String() string {
	return fmt.Sprintf("%s -> %s", e.Old, e.New)
}

// delta is the change in document length caused by the edit.
func (e Edit) delta() ByteOffset {
	return e.New.Len() - e.Old.Len()
}

// logEntry is one applied replacement: bytes [start, end] of the previous
// version were replaced by newLen bytes.
type logEntry struct {
	start  ByteOffset
	end    ByteOffset
	newLen ByteOffset
}

// composeEdits folds a sequence of applied replacements into sorted,
// disjoint edits from the first version to the last. Edits that touch are
// coalesced.
func composeEdits(entries []logEntry) []Edit {
	var edits []Edit

	for _, entry := range entries {
		s, e := entry.start, entry.end
		delta := entry.newLen - (e - s)

		// edits[:i] end before s; edits[j:] start after e.
		i := 0
		var deltaBefore ByteOffset
		for i < len(edits) && edits[i].New.End < s {
			deltaBefore += edits[i].delta()
			i++
		}
		j := i
		deltaThrough := deltaBefore
		for j < len(edits) && edits[j].New.Start <= e {
			deltaThrough += edits[j].delta()
			j++
		}

		merged := Edit{
			Old: Range{Start: s - deltaBefore, End: e - deltaThrough},
			New: Range{Start: s, End: e + delta},
		}
		if i < j {
			first, last := edits[i], edits[j-1]
			if first.New.Start < s {
				merged.Old.Start = first.Old.Start
				merged.New.Start = first.New.Start
			}
			if last.New.End > e {
				merged.Old.End = last.Old.End
				merged.New.End = last.New.End + delta
			}
		}

		tail := edits[j:]
		out := make([]Edit, 0, i+1+len(tail))
		out = append(out, edits[:i]...)
		out = append(out, merged)
		for _, t := range tail {
			t.New.Start += delta
			t.New.End += delta
			out = append(out, t)
		}
		edits = out
	}

	return edits
}
