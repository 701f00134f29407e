package multibuffer

import (
	"log/slog"
	"maps"

	"github.com/dshills/multibuffer/internal/document"
	"github.com/dshills/multibuffer/internal/logging"
)

// MultiBuffer composes excerpts of many documents into one ordered view.
//
// A MultiBuffer has a single writer: calls must not run concurrently.
// Snapshots it returns are immutable and safe to share between goroutines.
type MultiBuffer struct {
	snapshot Snapshot
	handles  map[document.ID]*document.Document

	// docsShared is set once the docs map has been handed out in a
	// Snapshot; the next write copies it first.
	docsShared bool

	logger          *slog.Logger
	metrics         MetricsCollector
	checkInvariants bool
}

// ExcerptRange requests one excerpt: a range of a document.
type ExcerptRange struct {
	Document *document.Document
	Range    document.AnchorRange
}

// New creates an empty MultiBuffer.
func New(opts ...Option) *MultiBuffer {
	mb := &MultiBuffer{
		snapshot: Snapshot{
			docs: make(map[document.ID]*document.Snapshot),
		},
		handles:         make(map[document.ID]*document.Document),
		logger:          logging.Discard(),
		metrics:         NoopMetricsCollector{},
		checkInvariants: defaultCheckInvariants,
	}
	for _, opt := range opts {
		opt(mb)
	}
	mb.logger = logging.Component(mb.logger, "multibuffer")
	return mb
}

// Snapshot synchronizes with the registered documents and returns the
// current composed view.
func (mb *MultiBuffer) Snapshot() *Snapshot {
	mb.sync()
	mb.docsShared = true
	s := mb.snapshot
	return &s
}

// Document returns the registered handle for id.
func (mb *MultiBuffer) Document(id document.ID) (*document.Document, bool) {
	doc, ok := mb.handles[id]
	return doc, ok
}

// DocumentCount returns the number of registered documents.
func (mb *MultiBuffer) DocumentCount() int {
	return len(mb.handles)
}

// docSnapshot returns the cached snapshot of a registered document, or a
// fresh one for a document seen for the first time.
func (mb *MultiBuffer) docSnapshot(doc *document.Document) (*document.Snapshot, bool) {
	if snap, ok := mb.snapshot.docs[doc.ID()]; ok {
		return snap, true
	}
	return doc.Snapshot(), false
}

// register records a document handle and its snapshot on first reference.
func (mb *MultiBuffer) register(doc *document.Document, snap *document.Snapshot) {
	id := doc.ID()
	if _, ok := mb.handles[id]; ok {
		return
	}
	mb.handles[id] = doc
	mb.setDocSnapshot(id, snap)
	mb.logger.Debug("registered document", "doc", id, "path", snap.Path())
}

// setDocSnapshot replaces a cached document snapshot, copying the map first
// if a Snapshot still references it.
func (mb *MultiBuffer) setDocSnapshot(id document.ID, snap *document.Snapshot) {
	if mb.docsShared {
		mb.snapshot.docs = maps.Clone(mb.snapshot.docs)
		mb.docsShared = false
	}
	mb.snapshot.docs[id] = snap
}

func (mb *MultiBuffer) verify() {
	if mb.checkInvariants {
		mb.snapshot.checkInvariants()
	}
}
