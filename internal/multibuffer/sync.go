package multibuffer

import (
	"cmp"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/dshills/multibuffer/internal/document"
	"github.com/dshills/multibuffer/internal/sumtree"
)

// rename is a path change of one registered document.
type rename struct {
	doc     document.ID
	oldPath string
	newPath string
}

// docEdits are the text changes of one registered document since its
// cached snapshot.
type docEdits struct {
	doc   document.ID
	path  string
	old   *document.Snapshot
	cur   *document.Snapshot
	edits []document.Edit
}

// sync brings every cached document snapshot up to date and repairs the
// excerpt tree for the renames and edits found. A sync with nothing to do
// leaves the tree untouched.
func (mb *MultiBuffer) sync() {
	start := time.Now()

	var renames []rename
	var edited []docEdits

	ids := slices.SortedFunc(maps.Keys(mb.handles), document.ID.Compare)
	for _, id := range ids {
		old := mb.snapshot.docs[id]
		cur := mb.handles[id].Snapshot()

		changed := cur.NonTextStateUpdateCount() != old.NonTextStateUpdateCount()
		if cur.Path() != old.Path() {
			renames = append(renames, rename{doc: id, oldPath: old.Path(), newPath: cur.Path()})
			changed = true
		}
		if edits := cur.EditsSince(old.Version()); len(edits) > 0 {
			edited = append(edited, docEdits{doc: id, path: cur.Path(), old: old, cur: cur, edits: edits})
			changed = true
		}
		if changed {
			mb.setDocSnapshot(id, cur)
		}
	}

	if len(renames) == 0 && len(edited) == 0 {
		return
	}

	tree := mb.snapshot.excerpts
	if len(renames) > 0 {
		tree = applyRenames(tree, renames)
	}
	if len(edited) > 0 {
		tree = applyEdits(tree, edited)
	}
	mb.snapshot.excerpts = tree
	mb.verify()

	count := tree.Len()
	mb.logger.Debug("synchronized documents",
		"renames", len(renames), "edits", len(edited), "excerpts", count)
	mb.metrics.RecordSync(len(renames), len(edited), count, time.Since(start))
}

// splitGroup splits tree into the excerpts ordered before (path, doc), the
// excerpts of that document, and the rest.
func splitGroup(tree excerptTree, path string, doc document.ID) (before, group, after excerptTree) {
	target := ExcerptKey{Path: path, Doc: doc}
	before, rest := tree.Split(func(s ExcerptSummary) bool {
		return s.hasKey && comparePrefix(target, s.maxKey) <= 0
	})
	group, after = rest.Split(func(s ExcerptSummary) bool {
		return s.hasKey && comparePrefix(target, s.maxKey) < 0
	})
	return before, group, after
}

// applyRenames moves the excerpts of every renamed document to the position
// of its new path. All groups are removed first, then reinserted, so
// documents swapping paths are handled. Order within a group and all flags
// are preserved.
func applyRenames(tree excerptTree, renames []rename) excerptTree {
	slices.SortFunc(renames, func(a, b rename) int {
		return cmp.Or(strings.Compare(a.oldPath, b.oldPath), a.doc.Compare(b.doc))
	})

	type movedGroup struct {
		rename
		excerpts []Excerpt
	}
	moved := make([]movedGroup, 0, len(renames))

	var kept excerptTree
	for _, r := range renames {
		before, group, after := splitGroup(tree, r.oldPath, r.doc)
		kept = kept.Append(before)
		tree = after

		excerpts := group.Items()
		for i := range excerpts {
			excerpts[i].Key.Path = r.newPath
		}
		moved = append(moved, movedGroup{rename: r, excerpts: excerpts})
	}
	tree = kept.Append(tree)

	slices.SortFunc(moved, func(a, b movedGroup) int {
		return cmp.Or(strings.Compare(a.newPath, b.newPath), a.doc.Compare(b.doc))
	})

	var out excerptTree
	for _, g := range moved {
		before, _, after := splitGroup(tree, g.newPath, g.doc)
		group := sumtree.FromItems[Excerpt, ExcerptSummary](g.excerpts)
		out = out.Append(before).Append(group)
		tree = after
	}
	return out.Append(tree)
}

// applyEdits reconciles the excerpts of every edited document with its
// edits. Documents are visited in tree order.
func applyEdits(tree excerptTree, edited []docEdits) excerptTree {
	slices.SortFunc(edited, func(a, b docEdits) int {
		return cmp.Or(strings.Compare(a.path, b.path), a.doc.Compare(b.doc))
	})

	var out excerptTree
	for _, d := range edited {
		before, group, after := splitGroup(tree, d.path, d.doc)
		out = reconcile(out.Append(before), group, d)
		tree = after
	}
	return out.Append(tree)
}

// reconcile appends the excerpts of one document to out, repaired for its
// edits.
//
// An excerpt is dirty when an edit's old range intersects or touches the
// excerpt's old offset range. Clean excerpts are kept as they are. Dirty
// excerpts are dropped if their anchors now collapse or invert, or if they
// had content and now resolve to nothing; otherwise their metrics are
// recomputed. Dirty excerpts and the excerpt following one go through
// pushExcerpt, which merges ranges that now overlap and recomputes
// TouchesPrevious.
func reconcile(out, group excerptTree, d docEdits) excerptTree {
	ei := 0
	afterDirty := false

	for x := range group.All() {
		o := d.old.OffsetRange(x.Key.Range)
		for ei < len(d.edits) && d.edits[ei].Old.End < o.Start {
			ei++
		}
		dirty := ei < len(d.edits) && d.edits[ei].Old.Start <= o.End

		switch {
		case dirty:
			if !collapsed(x, d.cur) {
				out = pushExcerpt(out, x.Key, d.cur)
			}
		case afterDirty:
			out = pushExcerpt(out, x.Key, d.cur)
		default:
			out = out.Push(x)
		}
		afterDirty = dirty
	}
	return out
}

// collapsed reports whether an edited excerpt no longer describes a range:
// its anchors invert or coincide, or its content was deleted entirely.
func collapsed(x Excerpt, snap *document.Snapshot) bool {
	r := x.Key.Range
	if snap.CompareAnchors(r.End, r.Start) <= 0 {
		return true
	}
	return !x.Empty && snap.OffsetRange(r).IsEmpty()
}
