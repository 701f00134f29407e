package multibuffer

import (
	"iter"
	"strings"

	"github.com/dshills/multibuffer/internal/document"
	"github.com/dshills/multibuffer/internal/rope"
)

// Snapshot is an immutable composed view: the excerpt tree and the document
// snapshots its excerpts resolve against. It is safe for concurrent use.
type Snapshot struct {
	excerpts excerptTree
	docs     map[document.ID]*document.Snapshot
}

// ExcerptInfo describes one excerpt of a Snapshot.
type ExcerptInfo struct {
	Doc   document.ID
	Path  string
	Range document.AnchorRange

	// Offsets is the excerpt's range in its document.
	Offsets document.Range

	// Start is the offset of the excerpt's text in the composed view,
	// after its separator if it has one.
	Start rope.ByteOffset

	TouchesPrevious bool
	Empty           bool
	HasHeader       bool
}

// End returns the offset just past the excerpt's text in the composed view.
func (e ExcerptInfo) End() rope.ByteOffset {
	return e.Start + e.Offsets.Len()
}

// Len returns the byte length of the composed text.
func (s *Snapshot) Len() rope.ByteOffset {
	return s.excerpts.Summary().Text.Bytes
}

// IsEmpty reports whether the view holds no excerpts.
func (s *Snapshot) IsEmpty() bool {
	return s.excerpts.IsEmpty()
}

// TextSummary returns the metrics of the composed text.
func (s *Snapshot) TextSummary() rope.TextSummary {
	return s.excerpts.Summary().Text
}

// ExcerptCount returns the number of excerpts.
func (s *Snapshot) ExcerptCount() int {
	return s.excerpts.Len()
}

// Document returns the snapshot of a document referenced by the view.
func (s *Snapshot) Document(id document.ID) (*document.Snapshot, bool) {
	snap, ok := s.docs[id]
	return snap, ok
}

// Text reconstructs the composed text. A separator precedes every excerpt
// that neither touches its predecessor nor is empty.
func (s *Snapshot) Text() string {
	var sb strings.Builder
	sb.Grow(int(s.Len()))
	for x := range s.excerpts.All() {
		if x.ShowHeader() {
			sb.WriteString(separator)
		}
		snap := s.mustDoc(x.Key.Doc)
		o := snap.OffsetRange(x.Key.Range)
		sb.WriteString(snap.Slice(o.Start, o.End))
	}
	return sb.String()
}

// Excerpts iterates the excerpts in order.
func (s *Snapshot) Excerpts() iter.Seq[ExcerptInfo] {
	return func(yield func(ExcerptInfo) bool) {
		var offset rope.ByteOffset
		for x := range s.excerpts.All() {
			info := s.info(x, offset)
			if !yield(info) {
				return
			}
			offset = info.Start + x.Text.Bytes
		}
	}
}

// ExcerptAt returns the excerpt covering offset in the composed text. A
// separator belongs to the excerpt it precedes. It reports false when
// offset is outside [0, Len).
func (s *Snapshot) ExcerptAt(offset rope.ByteOffset) (ExcerptInfo, bool) {
	if offset < 0 {
		return ExcerptInfo{}, false
	}
	x, before, ok := s.excerpts.Find(func(sum ExcerptSummary) bool {
		return sum.Text.Bytes > offset
	})
	if !ok {
		return ExcerptInfo{}, false
	}
	return s.info(x, before.Text.Bytes), true
}

// info describes x, whose summary starts at offset in the composed text.
func (s *Snapshot) info(x Excerpt, offset rope.ByteOffset) ExcerptInfo {
	if x.ShowHeader() {
		offset += separatorSummary.Bytes
	}
	return ExcerptInfo{
		Doc:             x.Key.Doc,
		Path:            x.Key.Path,
		Range:           x.Key.Range,
		Offsets:         s.mustDoc(x.Key.Doc).OffsetRange(x.Key.Range),
		Start:           offset,
		TouchesPrevious: x.TouchesPrevious,
		Empty:           x.Empty,
		HasHeader:       x.ShowHeader(),
	}
}

// mustDoc returns the snapshot of a referenced document. A missing snapshot
// means the view is corrupt.
func (s *Snapshot) mustDoc(id document.ID) *document.Snapshot {
	snap, ok := s.docs[id]
	if !ok {
		panic("multibuffer: no snapshot for document " + id.String())
	}
	return snap
}
