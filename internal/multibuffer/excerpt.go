package multibuffer

import (
	"github.com/dshills/multibuffer/internal/document"
	"github.com/dshills/multibuffer/internal/rope"
	"github.com/dshills/multibuffer/internal/sumtree"
)

// separator is emitted before every excerpt that shows a header.
const separator = "\n"

var separatorSummary = rope.Summarize(separator)

// Excerpt is one visible span of a document in the composed view.
type Excerpt struct {
	Key ExcerptKey

	// TouchesPrevious is set when the excerpt starts exactly where the
	// preceding excerpt of the same document ends.
	TouchesPrevious bool

	// Empty is set when the range resolves to zero length.
	Empty bool

	// Text caches the metrics of the excerpt's text.
	Text rope.TextSummary
}

// ShowHeader reports whether a separator precedes the excerpt.
func (e Excerpt) ShowHeader() bool {
	return !e.TouchesPrevious && !e.Empty
}

// Summary implements sumtree.Item.
func (e Excerpt) Summary() ExcerptSummary {
	text := e.Text
	if e.ShowHeader() {
		text = separatorSummary.Add(text)
	}
	return ExcerptSummary{maxKey: e.Key, hasKey: true, Text: text}
}

// ExcerptSummary aggregates a run of excerpts: the greatest key and the
// metrics of the composed text, separators included.
type ExcerptSummary struct {
	maxKey ExcerptKey
	hasKey bool
	Text   rope.TextSummary
}

// Add implements sumtree.Summary.
func (s ExcerptSummary) Add(other ExcerptSummary) ExcerptSummary {
	if other.hasKey {
		s.maxKey = other.maxKey
		s.hasKey = true
	}
	s.Text = s.Text.Add(other.Text)
	return s
}

type excerptTree = sumtree.Tree[Excerpt, ExcerptSummary]

// newExcerpt builds an excerpt for key, computing its flags and text
// metrics against snap.
func newExcerpt(key ExcerptKey, touchesPrevious bool, snap *document.Snapshot) Excerpt {
	o := snap.OffsetRange(key.Range)
	x := Excerpt{
		Key:             key,
		TouchesPrevious: touchesPrevious,
		Empty:           o.IsEmpty(),
	}
	if !x.Empty {
		x.Text = snap.SummaryForOffsets(o.Start, o.End)
	}
	return x
}

// pushExcerpt appends key to tree. If the last entry belongs to the same
// document and reaches key's start, the two are merged into one range; this
// repeats while the new last entry still overlaps. Otherwise TouchesPrevious
// is computed from the last entry.
func pushExcerpt(tree excerptTree, key ExcerptKey, snap *document.Snapshot) excerptTree {
	for {
		last, ok := tree.Last()
		if !ok || last.Key.Doc != key.Doc {
			return tree.Push(newExcerpt(key, false, snap))
		}
		if snap.CompareAnchors(last.Key.Range.End, key.Range.Start) < 0 {
			touches := snap.Offset(last.Key.Range.End) == snap.Offset(key.Range.Start)
			return tree.Push(newExcerpt(key, touches, snap))
		}
		key.Range.Start = snap.MinAnchor(last.Key.Range.Start, key.Range.Start)
		key.Range.End = snap.MaxAnchor(last.Key.Range.End, key.Range.End)
		tree = tree.DropLast()
	}
}
