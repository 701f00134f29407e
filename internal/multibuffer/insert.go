package multibuffer

import (
	"slices"
	"time"

	"github.com/dshills/multibuffer/internal/document"
)

// pendingExcerpt is a normalized request waiting to be merged into the tree.
type pendingExcerpt struct {
	key  ExcerptKey
	snap *document.Snapshot
}

// InsertExcerpts adds ranges to the composed view.
//
// Ranges whose end is not after their start are dropped. Ranges of the same
// document that overlap or touch, in the batch or in the view, are merged
// into one excerpt. Inserting a range that is already covered changes
// nothing.
func (mb *MultiBuffer) InsertExcerpts(ranges []ExcerptRange) {
	start := time.Now()
	mb.sync()

	batch := make([]pendingExcerpt, 0, len(ranges))
	dropped := 0
	for _, r := range ranges {
		if r.Document == nil {
			dropped++
			continue
		}
		snap, _ := mb.docSnapshot(r.Document)
		if snap.CompareAnchors(r.Range.End, r.Range.Start) <= 0 {
			mb.logger.Debug("dropping empty excerpt range", "doc", r.Document.ID(), "range", r.Range)
			dropped++
			continue
		}
		mb.register(r.Document, snap)
		batch = append(batch, pendingExcerpt{
			key:  ExcerptKey{Path: snap.Path(), Doc: snap.ID(), Range: r.Range},
			snap: snap,
		})
	}

	if len(batch) > 0 {
		batch = coalesce(batch)
		mb.snapshot.excerpts = mb.merge(batch)
		mb.verify()
	}

	count := mb.snapshot.excerpts.Len()
	mb.logger.Debug("inserted excerpts",
		"requested", len(ranges), "dropped", dropped, "excerpts", count)
	mb.metrics.RecordInsert(len(ranges), dropped, count, time.Since(start))
}

// coalesce sorts a batch by key and merges entries of the same document
// whose ranges overlap or touch.
func coalesce(batch []pendingExcerpt) []pendingExcerpt {
	slices.SortStableFunc(batch, func(a, b pendingExcerpt) int {
		return compareKeys(a.key, b.key, a.snap)
	})

	out := batch[:1]
	for _, p := range batch[1:] {
		last := &out[len(out)-1]
		if last.key.Doc == p.key.Doc &&
			p.snap.CompareAnchors(p.key.Range.Start, last.key.Range.End) <= 0 {
			last.key.Range.End = p.snap.MaxAnchor(last.key.Range.End, p.key.Range.End)
			continue
		}
		out = append(out, p)
	}
	return out
}

// merge rebuilds the excerpt tree with a sorted, coalesced batch. Runs of
// existing excerpts between insertion points are reused unchanged.
func (mb *MultiBuffer) merge(batch []pendingExcerpt) excerptTree {
	rest := mb.snapshot.excerpts
	var out excerptTree

	for _, p := range batch {
		var before excerptTree
		before, rest = rest.Split(func(s ExcerptSummary) bool {
			return s.hasKey && compareKeys(p.key, s.maxKey, p.snap) <= 0
		})
		out = out.Append(before)
		out = pushExcerpt(out, p.key, p.snap)

		// Absorb following excerpts of the same document that now overlap.
		// One that only touches is re-pushed for its TouchesPrevious flag;
		// anything further away stays in rest, where a later batch entry
		// can still land in front of it.
		for {
			next, ok := rest.First()
			if !ok || next.Key.Doc != p.key.Doc {
				break
			}
			last, _ := out.Last()
			overlaps := p.snap.CompareAnchors(next.Key.Range.Start, last.Key.Range.End) <= 0
			if !overlaps && p.snap.Offset(next.Key.Range.Start) != p.snap.Offset(last.Key.Range.End) {
				break
			}
			rest = rest.DropFirst()
			out = pushExcerpt(out, next.Key, p.snap)
			if !overlaps {
				break
			}
		}
	}

	return out.Append(rest)
}
