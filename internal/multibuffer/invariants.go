package multibuffer

import "fmt"

// checkInvariants panics if the view is inconsistent: keys out of order,
// overlapping ranges of one document, a missing or stale document
// snapshot, wrong flags or cached metrics, or a corrupt tree.
func (s *Snapshot) checkInvariants() {
	var prev Excerpt
	for i, x := range s.excerpts.Items() {
		snap := s.mustDoc(x.Key.Doc)
		r := x.Key.Range

		if x.Key.Path != snap.Path() {
			panic(fmt.Sprintf("multibuffer: excerpt %d has stale path %q, document is at %q", i, x.Key.Path, snap.Path()))
		}
		if snap.CompareAnchors(r.End, r.Start) <= 0 {
			panic(fmt.Sprintf("multibuffer: excerpt %d has an empty or inverted range: %s", i, x.Key))
		}

		touches := false
		if i > 0 {
			if compareKeys(prev.Key, x.Key, snap) >= 0 {
				panic(fmt.Sprintf("multibuffer: excerpts out of order: %s before %s", prev.Key, x.Key))
			}
			if prev.Key.Doc == x.Key.Doc {
				if snap.CompareAnchors(prev.Key.Range.End, r.Start) >= 0 {
					panic(fmt.Sprintf("multibuffer: overlapping excerpts: %s and %s", prev.Key, x.Key))
				}
				touches = snap.Offset(prev.Key.Range.End) == snap.Offset(r.Start)
			}
		}
		if x.TouchesPrevious != touches {
			panic(fmt.Sprintf("multibuffer: excerpt %d has TouchesPrevious=%t, want %t", i, x.TouchesPrevious, touches))
		}

		o := snap.OffsetRange(r)
		if x.Empty != o.IsEmpty() {
			panic(fmt.Sprintf("multibuffer: excerpt %d has Empty=%t for offsets %s", i, x.Empty, o))
		}
		if !x.Empty && x.Text != snap.SummaryForOffsets(o.Start, o.End) {
			panic(fmt.Sprintf("multibuffer: excerpt %d has stale text metrics", i))
		}
		prev = x
	}

	if err := s.excerpts.Check(func(a, b ExcerptSummary) bool { return a == b }); err != nil {
		panic(fmt.Sprintf("multibuffer: %v", err))
	}
}
