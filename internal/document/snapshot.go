package document

import (
	"fmt"

	"github.com/dshills/multibuffer/internal/rope"
)

// Snapshot is a read-only view of a document at one version.
// It is safe for concurrent use and never changes.
type Snapshot struct {
	id      ID
	path    string
	rope    rope.Rope
	log     []logEntry
	nonText uint64
	anchors *anchorCache
}

// ID returns the document ID.
func (s *Snapshot) ID() ID {
	return s.id
}

// Path returns the file path, or "" when the document has no file.
func (s *Snapshot) Path() string {
	return s.path
}

// Version returns the number of edits applied at this snapshot.
func (s *Snapshot) Version() Version {
	return Version(len(s.log))
}

// NonTextStateUpdateCount changes whenever state other than the text, such
// as the path or saved state, changes.
func (s *Snapshot) NonTextStateUpdateCount() uint64 {
	return s.nonText
}

// Text returns the full text.
func (s *Snapshot) Text() string {
	return s.rope.String()
}

// Len returns the byte length.
func (s *Snapshot) Len() ByteOffset {
	return s.rope.Len()
}

// LineCount returns the number of lines.
func (s *Snapshot) LineCount() uint32 {
	return s.rope.LineCount()
}

// Slice returns the text in [start, end).
func (s *Snapshot) Slice(start, end ByteOffset) string {
	return s.rope.Slice(start, end)
}

// SummaryForOffsets returns the metrics of the text in [start, end).
func (s *Snapshot) SummaryForOffsets(start, end ByteOffset) rope.TextSummary {
	return s.rope.SummaryForRange(start, end)
}

// TextForRange returns the text covered by an anchor range.
// Inverted ranges yield "".
func (s *Snapshot) TextForRange(r AnchorRange) string {
	o := s.OffsetRange(r)
	return s.rope.Slice(o.Start, o.End)
}

// TextSummaryForRange returns the metrics of the text covered by an anchor
// range. Inverted ranges yield the zero summary.
func (s *Snapshot) TextSummaryForRange(r AnchorRange) rope.TextSummary {
	o := s.OffsetRange(r)
	return s.rope.SummaryForRange(o.Start, o.End)
}

// Offset resolves an anchor to a byte offset in this snapshot.
// It panics if the anchor was created at a later version.
func (s *Snapshot) Offset(a Anchor) ByteOffset {
	v := s.Version()
	if a.Version > v {
		panic(fmt.Sprintf("document: anchor %s is newer than snapshot version %d", a, v))
	}
	from, offset := a.Version, a.Offset
	if r, ok := s.anchors.lookup(a, v); ok {
		from, offset = r.version, r.offset
	}
	for _, e := range s.log[from:v] {
		offset = e.resolve(offset, a.Bias)
	}
	if from < v {
		s.anchors.store(a, resolved{version: v, offset: offset})
	}
	return offset
}

// OffsetRange resolves an anchor range to byte offsets.
func (s *Snapshot) OffsetRange(r AnchorRange) Range {
	return Range{Start: s.Offset(r.Start), End: s.Offset(r.End)}
}

// CompareAnchors orders anchors by resolved offset, then bias
// (left before right).
func (s *Snapshot) CompareAnchors(a, b Anchor) int {
	oa, ob := s.Offset(a), s.Offset(b)
	switch {
	case oa < ob:
		return -1
	case oa > ob:
		return 1
	case a.Bias < b.Bias:
		return -1
	case a.Bias > b.Bias:
		return 1
	}
	return 0
}

// MinAnchor returns the earlier of two anchors.
func (s *Snapshot) MinAnchor(a, b Anchor) Anchor {
	if s.CompareAnchors(b, a) < 0 {
		return b
	}
	return a
}

// MaxAnchor returns the later of two anchors.
func (s *Snapshot) MaxAnchor(a, b Anchor) Anchor {
	if s.CompareAnchors(b, a) > 0 {
		return b
	}
	return a
}

// CompareRanges orders ranges by start, then end.
func (s *Snapshot) CompareRanges(a, b AnchorRange) int {
	if c := s.CompareAnchors(a.Start, b.Start); c != 0 {
		return c
	}
	return s.CompareAnchors(a.End, b.End)
}

// AnchorAt creates an anchor at offset in this snapshot, clamped to its
// length.
func (s *Snapshot) AnchorAt(offset ByteOffset, bias Bias) Anchor {
	return Anchor{
		Version: s.Version(),
		Offset:  min(max(offset, 0), s.rope.Len()),
		Bias:    bias,
	}
}

// EditsSince returns the edits applied after version, sorted and
// coalesced, with old ranges in the coordinates of that version.
// It panics if version is later than the snapshot.
func (s *Snapshot) EditsSince(version Version) []Edit {
	v := s.Version()
	if version > v {
		panic(fmt.Sprintf("document: version %d is newer than snapshot version %d", version, v))
	}
	return composeEdits(s.log[version:])
}

// OffsetToPoint converts a byte offset to a line/column position.
func (s *Snapshot) OffsetToPoint(offset ByteOffset) Point {
	return s.rope.OffsetToPoint(offset)
}

// PointToOffset converts a line/column position to a byte offset.
func (s *Snapshot) PointToOffset(p Point) ByteOffset {
	return s.rope.PointToOffset(p)
}

// LineStartOffset returns the offset of the start of a 0-indexed line.
func (s *Snapshot) LineStartOffset(line uint32) ByteOffset {
	return s.rope.LineStartOffset(line)
}
