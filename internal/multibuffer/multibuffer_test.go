package multibuffer

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/multibuffer/internal/document"
	"github.com/dshills/multibuffer/internal/sumtree"
)

func fromItems(items []Excerpt) excerptTree {
	return sumtree.FromItems[Excerpt, ExcerptSummary](items)
}

func excerpt(doc *document.Document, start, end document.ByteOffset) ExcerptRange {
	return ExcerptRange{Document: doc, Range: doc.Range(start, end)}
}

func TestInsertExcerpts(t *testing.T) {
	doc := document.New("abcdefghijklmnopqrstuvwxyz")
	mb := New()

	mb.InsertExcerpts([]ExcerptRange{excerpt(doc, 0, 2), excerpt(doc, 4, 12)})
	assert.Equal(t, "\nab\nefghijkl", mb.Snapshot().Text())

	mb.InsertExcerpts([]ExcerptRange{excerpt(doc, 4, 6), excerpt(doc, 8, 10)})
	assert.Equal(t, "\nab\nefghijkl", mb.Snapshot().Text())

	mb.InsertExcerpts([]ExcerptRange{excerpt(doc, 10, 14), excerpt(doc, 16, 18)})
	assert.Equal(t, "\nab\nefghijklmn\nqr", mb.Snapshot().Text())

	mb.InsertExcerpts([]ExcerptRange{excerpt(doc, 12, 17)})
	snap := mb.Snapshot()
	assert.Equal(t, "\nab\nefghijklmnopqr", snap.Text())
	assert.Equal(t, 2, snap.ExcerptCount())
	assert.Equal(t, int64(len(snap.Text())), snap.Len())
}

func TestInsertIsIdempotent(t *testing.T) {
	a := document.New("The quick brown fox", document.WithPath("a.txt"))
	b := document.New("jumps over the lazy dog", document.WithPath("b.txt"))
	ranges := []ExcerptRange{excerpt(a, 0, 9), excerpt(b, 6, 10), excerpt(a, 10, 19)}

	mb := New()
	mb.InsertExcerpts(ranges)
	first := mb.Snapshot()

	mb.InsertExcerpts(ranges)
	second := mb.Snapshot()

	assert.Equal(t, first.Text(), second.Text())
	assert.Equal(t, first.ExcerptCount(), second.ExcerptCount())
	assert.Equal(t, 3, second.ExcerptCount())
}

func TestCoalescing(t *testing.T) {
	tests := []struct {
		name   string
		ranges func(doc *document.Document) []ExcerptRange
		want   string
		count  int
	}{
		{
			name: "overlapping in one batch",
			ranges: func(doc *document.Document) []ExcerptRange {
				return []ExcerptRange{excerpt(doc, 5, 9), excerpt(doc, 2, 6)}
			},
			want:  "\n2345678",
			count: 1,
		},
		{
			name: "touching in one batch",
			ranges: func(doc *document.Document) []ExcerptRange {
				return []ExcerptRange{excerpt(doc, 0, 3), excerpt(doc, 3, 6)}
			},
			want:  "\n012345",
			count: 1,
		},
		{
			name: "touching by offset only",
			ranges: func(doc *document.Document) []ExcerptRange {
				return []ExcerptRange{
					{Document: doc, Range: document.AnchorRange{Start: doc.AnchorBefore(0), End: doc.AnchorBefore(3)}},
					{Document: doc, Range: document.AnchorRange{Start: doc.AnchorAfter(3), End: doc.AnchorAfter(6)}},
				}
			},
			want:  "\n012345",
			count: 2,
		},
		{
			name: "contained",
			ranges: func(doc *document.Document) []ExcerptRange {
				return []ExcerptRange{excerpt(doc, 1, 9), excerpt(doc, 3, 4)}
			},
			want:  "\n12345678",
			count: 1,
		},
		{
			name: "disjoint",
			ranges: func(doc *document.Document) []ExcerptRange {
				return []ExcerptRange{excerpt(doc, 7, 9), excerpt(doc, 1, 2)}
			},
			want:  "\n1\n78",
			count: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := document.New("0123456789")
			mb := New()
			mb.InsertExcerpts(tt.ranges(doc))
			snap := mb.Snapshot()
			assert.Equal(t, tt.want, snap.Text())
			assert.Equal(t, tt.count, snap.ExcerptCount())
		})
	}
}

func TestBatchIntoExistingExcerpts(t *testing.T) {
	tests := []struct {
		name     string
		existing func(a, b *document.Document) []ExcerptRange
		batch    func(a, b *document.Document) []ExcerptRange
		want     string
		count    int
	}{
		{
			name: "overlap then gap before later excerpt",
			existing: func(a, _ *document.Document) []ExcerptRange {
				return []ExcerptRange{excerpt(a, 0, 2), excerpt(a, 20, 22)}
			},
			batch: func(a, _ *document.Document) []ExcerptRange {
				return []ExcerptRange{excerpt(a, 1, 3), excerpt(a, 5, 7)}
			},
			want:  "\nabc\nfg\nuv",
			count: 3,
		},
		{
			name: "entries in several gaps",
			existing: func(a, _ *document.Document) []ExcerptRange {
				return []ExcerptRange{excerpt(a, 0, 2), excerpt(a, 10, 12), excerpt(a, 20, 22)}
			},
			batch: func(a, _ *document.Document) []ExcerptRange {
				return []ExcerptRange{excerpt(a, 1, 3), excerpt(a, 5, 7), excerpt(a, 15, 17)}
			},
			want:  "\nabc\nfg\nkl\npq\nuv",
			count: 5,
		},
		{
			name: "second entry reaches later excerpt",
			existing: func(a, _ *document.Document) []ExcerptRange {
				return []ExcerptRange{excerpt(a, 0, 2), excerpt(a, 10, 12)}
			},
			batch: func(a, _ *document.Document) []ExcerptRange {
				return []ExcerptRange{excerpt(a, 1, 3), excerpt(a, 5, 10)}
			},
			want:  "\nabc\nfghijkl",
			count: 2,
		},
		{
			name: "second entry touches later excerpt by offset",
			existing: func(a, _ *document.Document) []ExcerptRange {
				return []ExcerptRange{
					excerpt(a, 0, 2),
					{Document: a, Range: document.AnchorRange{Start: a.AnchorAfter(10), End: a.AnchorAfter(12)}},
				}
			},
			batch: func(a, _ *document.Document) []ExcerptRange {
				return []ExcerptRange{
					excerpt(a, 1, 3),
					{Document: a, Range: document.AnchorRange{Start: a.AnchorBefore(5), End: a.AnchorBefore(10)}},
				}
			},
			want:  "\nabc\nfghijkl",
			count: 3,
		},
		{
			name: "two documents",
			existing: func(a, b *document.Document) []ExcerptRange {
				return []ExcerptRange{excerpt(a, 0, 2), excerpt(a, 20, 22), excerpt(b, 0, 2), excerpt(b, 8, 10)}
			},
			batch: func(a, b *document.Document) []ExcerptRange {
				return []ExcerptRange{excerpt(b, 5, 6), excerpt(a, 5, 7), excerpt(b, 1, 3), excerpt(a, 1, 3)}
			},
			want:  "\nabc\nfg\nuv\n012\n5\n89",
			count: 6,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := document.New("abcdefghijklmnopqrstuvwxyz", document.WithPath("a.txt"))
			b := document.New("0123456789", document.WithPath("b.txt"))
			mb := New(WithInvariantChecks(true))
			mb.InsertExcerpts(tt.existing(a, b))
			mb.InsertExcerpts(tt.batch(a, b))

			snap := mb.Snapshot()
			assert.Equal(t, tt.want, snap.Text())
			assert.Equal(t, tt.count, snap.ExcerptCount())
		})
	}
}

func TestMergeAcrossBatches(t *testing.T) {
	doc := document.New("0123456789")
	mb := New()

	mb.InsertExcerpts([]ExcerptRange{excerpt(doc, 0, 2), excerpt(doc, 4, 5), excerpt(doc, 7, 8)})
	assert.Equal(t, 3, mb.Snapshot().ExcerptCount())

	// One range bridging all three.
	mb.InsertExcerpts([]ExcerptRange{excerpt(doc, 1, 7)})
	snap := mb.Snapshot()
	assert.Equal(t, "\n01234567", snap.Text())
	assert.Equal(t, 1, snap.ExcerptCount())
}

func TestDropsEmptyAndInvertedRanges(t *testing.T) {
	doc := document.New("0123456789")
	mb := New()

	mb.InsertExcerpts([]ExcerptRange{
		{Document: doc, Range: document.AnchorRange{Start: doc.AnchorAfter(6), End: doc.AnchorBefore(2)}},
		{Document: doc, Range: document.AnchorRange{Start: doc.AnchorBefore(4), End: doc.AnchorBefore(4)}},
		{Document: nil},
	})

	snap := mb.Snapshot()
	assert.True(t, snap.IsEmpty())
	assert.Empty(t, snap.Text())
	assert.Equal(t, 0, mb.DocumentCount())
}

func TestEmptyExcerptHasNoHeader(t *testing.T) {
	doc := document.New("0123456789")
	mb := New()

	// Left start and right end at the same offset: ordered, but empty.
	mb.InsertExcerpts([]ExcerptRange{excerpt(doc, 5, 5)})
	snap := mb.Snapshot()
	assert.Equal(t, 1, snap.ExcerptCount())
	assert.Empty(t, snap.Text())
	assert.Equal(t, int64(0), snap.Len())

	// Typing inside the empty excerpt grows it.
	require.NoError(t, doc.Insert(5, "abc"))
	snap = mb.Snapshot()
	assert.Equal(t, "\nabc", snap.Text())
}

func TestEditReconciliation(t *testing.T) {
	tests := []struct {
		name   string
		ranges func(doc *document.Document) []ExcerptRange
		edit   func(doc *document.Document) error
		want   string
		count  int
	}{
		{
			name: "insert inside",
			ranges: func(doc *document.Document) []ExcerptRange {
				return []ExcerptRange{excerpt(doc, 2, 6)}
			},
			edit:  func(doc *document.Document) error { return doc.Insert(4, "XX") },
			want:  "\n23XX45",
			count: 1,
		},
		{
			name: "insert at start boundary",
			ranges: func(doc *document.Document) []ExcerptRange {
				return []ExcerptRange{excerpt(doc, 2, 6)}
			},
			edit:  func(doc *document.Document) error { return doc.Insert(2, "!") },
			want:  "\n!2345",
			count: 1,
		},
		{
			name: "insert at end boundary",
			ranges: func(doc *document.Document) []ExcerptRange {
				return []ExcerptRange{excerpt(doc, 2, 6)}
			},
			edit:  func(doc *document.Document) error { return doc.Insert(6, "!") },
			want:  "\n2345!",
			count: 1,
		},
		{
			name: "edit outside",
			ranges: func(doc *document.Document) []ExcerptRange {
				return []ExcerptRange{excerpt(doc, 2, 6)}
			},
			edit:  func(doc *document.Document) error { return doc.Insert(8, "zz") },
			want:  "\n2345",
			count: 1,
		},
		{
			name: "delete covering excerpt",
			ranges: func(doc *document.Document) []ExcerptRange {
				return []ExcerptRange{excerpt(doc, 2, 6)}
			},
			edit:  func(doc *document.Document) error { return doc.Delete(1, 7) },
			want:  "",
			count: 0,
		},
		{
			name: "delete between excerpts merges them",
			ranges: func(doc *document.Document) []ExcerptRange {
				return []ExcerptRange{excerpt(doc, 0, 3), excerpt(doc, 5, 8)}
			},
			edit:  func(doc *document.Document) error { return doc.Delete(2, 6) },
			want:  "\n0167",
			count: 1,
		},
		{
			name: "delete gap makes excerpts touch",
			ranges: func(doc *document.Document) []ExcerptRange {
				return []ExcerptRange{
					{Document: doc, Range: document.AnchorRange{Start: doc.AnchorBefore(0), End: doc.AnchorBefore(3)}},
					{Document: doc, Range: document.AnchorRange{Start: doc.AnchorAfter(5), End: doc.AnchorAfter(8)}},
				}
			},
			edit:  func(doc *document.Document) error { return doc.Delete(3, 5) },
			want:  "\n012567",
			count: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := document.New("0123456789")
			mb := New()
			mb.InsertExcerpts(tt.ranges(doc))

			require.NoError(t, tt.edit(doc))
			snap := mb.Snapshot()
			assert.Equal(t, tt.want, snap.Text())
			assert.Equal(t, tt.count, snap.ExcerptCount())
			assert.Equal(t, int64(len(tt.want)), snap.Len())
		})
	}
}

func TestRenameDocuments(t *testing.T) {
	a := document.New("The quick brown fox", document.WithPath("a.txt"))
	b := document.New("jumps over the lazy dog", document.WithPath("b.txt"))

	mb := New()
	mb.InsertExcerpts([]ExcerptRange{
		excerpt(a, 0, 9),
		excerpt(b, 0, 5),
		excerpt(a, 10, 19),
		excerpt(b, 6, 23),
	})
	assert.Equal(t, "\nThe quick\nbrown fox\njumps\nover the lazy dog", mb.Snapshot().Text())

	b.SetPath("/0.txt")
	snap := mb.Snapshot()
	assert.Equal(t, "\njumps\nover the lazy dog\nThe quick\nbrown fox", snap.Text())

	var paths []string
	for info := range snap.Excerpts() {
		paths = append(paths, info.Path)
	}
	assert.Equal(t, []string{"/0.txt", "/0.txt", "a.txt", "a.txt"}, paths)
}

func TestRenameSwap(t *testing.T) {
	a := document.New("alpha", document.WithPath("a.txt"))
	b := document.New("beta", document.WithPath("b.txt"))

	mb := New()
	mb.InsertExcerpts([]ExcerptRange{excerpt(a, 0, 5), excerpt(b, 0, 4)})
	assert.Equal(t, "\nalpha\nbeta", mb.Snapshot().Text())

	a.SetPath("b.txt")
	b.SetPath("a.txt")
	assert.Equal(t, "\nbeta\nalpha", mb.Snapshot().Text())
}

func TestRemovePath(t *testing.T) {
	a := document.New("alpha", document.WithPath("a.txt"))
	b := document.New("beta", document.WithPath("b.txt"))

	mb := New()
	mb.InsertExcerpts([]ExcerptRange{excerpt(a, 0, 5), excerpt(b, 0, 4)})

	// Documents without a file sort first.
	b.SetPath("")
	assert.Equal(t, "\nbeta\nalpha", mb.Snapshot().Text())
}

func TestSyncWithoutChangesIsNoop(t *testing.T) {
	doc := document.New("0123456789", document.WithPath("x.txt"))
	metrics := &recordingMetrics{}
	mb := New(WithMetrics(metrics))
	mb.InsertExcerpts([]ExcerptRange{excerpt(doc, 1, 4)})

	first := mb.Snapshot()
	second := mb.Snapshot()
	assert.Equal(t, first.excerpts, second.excerpts)
	assert.Zero(t, metrics.syncs)

	// A non-text change refreshes the cached snapshot without touching
	// the excerpts.
	doc.MarkSaved()
	third := mb.Snapshot()
	assert.Equal(t, first.excerpts, third.excerpts)
	assert.Zero(t, metrics.syncs)
	cached, ok := third.Document(doc.ID())
	require.True(t, ok)
	assert.Equal(t, uint64(1), cached.NonTextStateUpdateCount())
}

func TestSnapshotIsolation(t *testing.T) {
	doc := document.New("0123456789", document.WithPath("x.txt"))
	mb := New()
	mb.InsertExcerpts([]ExcerptRange{excerpt(doc, 0, 4)})
	before := mb.Snapshot()

	mb.InsertExcerpts([]ExcerptRange{excerpt(doc, 6, 8)})
	require.NoError(t, doc.Insert(1, "xyz"))
	doc.SetPath("y.txt")
	after := mb.Snapshot()

	assert.Equal(t, "\n0123", before.Text())
	assert.Equal(t, 1, before.ExcerptCount())
	oldDoc, ok := before.Document(doc.ID())
	require.True(t, ok)
	assert.Equal(t, "x.txt", oldDoc.Path())

	assert.Equal(t, "\n0xyz123\n67", after.Text())
	newDoc, ok := after.Document(doc.ID())
	require.True(t, ok)
	assert.Equal(t, "y.txt", newDoc.Path())
}

func TestExcerptQueries(t *testing.T) {
	a := document.New("The quick brown fox", document.WithPath("a.txt"))
	mb := New()
	mb.InsertExcerpts([]ExcerptRange{excerpt(a, 0, 3), excerpt(a, 10, 15)})
	snap := mb.Snapshot()
	require.Equal(t, "\nThe\nbrown", snap.Text())

	var infos []ExcerptInfo
	for info := range snap.Excerpts() {
		infos = append(infos, info)
	}
	require.Len(t, infos, 2)
	assert.Equal(t, document.Range{Start: 0, End: 3}, infos[0].Offsets)
	assert.Equal(t, int64(1), infos[0].Start)
	assert.Equal(t, int64(4), infos[0].End())
	assert.Equal(t, int64(5), infos[1].Start)
	assert.Equal(t, int64(10), infos[1].End())
	assert.True(t, infos[1].HasHeader)

	tests := []struct {
		offset int64
		want   int64 // Start of the expected excerpt, or -1
	}{
		{-1, -1},
		{0, 1}, // separator belongs to the following excerpt
		{3, 1},
		{4, 5},
		{9, 5},
		{10, -1},
	}
	for _, tt := range tests {
		info, ok := snap.ExcerptAt(tt.offset)
		if tt.want < 0 {
			assert.False(t, ok, "offset %d", tt.offset)
			continue
		}
		require.True(t, ok, "offset %d", tt.offset)
		assert.Equal(t, tt.want, info.Start, "offset %d", tt.offset)
	}

	summary := snap.TextSummary()
	assert.Equal(t, uint32(2), summary.Lines)
	assert.Equal(t, uint32(5), summary.LastLineLen)
}

func TestInvariantViolationPanics(t *testing.T) {
	doc := document.New("0123456789")
	mb := New()
	mb.InsertExcerpts([]ExcerptRange{excerpt(doc, 0, 2), excerpt(doc, 5, 7)})
	snap := mb.Snapshot()

	items := snap.excerpts.Items()
	items[0], items[1] = items[1], items[0]
	corrupt := &Snapshot{excerpts: fromItems(items), docs: snap.docs}
	assert.Panics(t, corrupt.checkInvariants)

	items = snap.excerpts.Items()
	items[1].TouchesPrevious = true
	corrupt = &Snapshot{excerpts: fromItems(items), docs: snap.docs}
	assert.Panics(t, corrupt.checkInvariants)

	missing := &Snapshot{excerpts: snap.excerpts, docs: nil}
	assert.Panics(t, missing.checkInvariants)
	assert.NotPanics(t, snap.checkInvariants)
}

type recordingMetrics struct {
	inserts  int
	dropped  int
	excerpts int
	syncs    int
	renames  int
	edits    int
}

func (m *recordingMetrics) RecordInsert(_, dropped, excerpts int, _ time.Duration) {
	m.inserts++
	m.dropped += dropped
	m.excerpts = excerpts
}

func (m *recordingMetrics) RecordSync(renames, edits, excerpts int, _ time.Duration) {
	m.syncs++
	m.renames += renames
	m.edits += edits
	m.excerpts = excerpts
}

func TestMetricsAndLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	metrics := &recordingMetrics{}

	doc := document.New("0123456789", document.WithPath("m.txt"))
	mb := New(WithLogger(logger), WithMetrics(metrics))

	mb.InsertExcerpts([]ExcerptRange{excerpt(doc, 0, 3), excerpt(doc, 5, 5), excerpt(doc, 6, 2)})
	assert.Equal(t, 1, metrics.inserts)
	assert.Equal(t, 1, metrics.dropped)
	assert.Equal(t, 2, metrics.excerpts)

	require.NoError(t, doc.Insert(0, "ab"))
	doc.SetPath("n.txt")
	mb.Snapshot()
	assert.Equal(t, 1, metrics.syncs)
	assert.Equal(t, 1, metrics.renames)
	assert.Equal(t, 1, metrics.edits)

	out := buf.String()
	assert.Contains(t, out, "component=multibuffer")
	assert.Contains(t, out, "inserted excerpts")
	assert.Contains(t, out, "synchronized documents")
}

func TestInvariantChecksOption(t *testing.T) {
	assert.False(t, New(WithInvariantChecks(false)).checkInvariants)
	assert.True(t, New(WithInvariantChecks(true)).checkInvariants)
}
