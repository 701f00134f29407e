package document

import (
	"errors"
	"fmt"
	"sync"

	"github.com/dshills/multibuffer/internal/rope"
)

// Errors returned by document operations.
var (
	ErrOffsetOutOfRange = errors.New("offset out of range")
	ErrRangeInvalid     = errors.New("invalid range")
)

// Document is a mutable text document with an identity, an optional file
// path and an append-only edit log used to resolve anchors.
// All methods are thread-safe.
type Document struct {
	id ID

	mu           sync.RWMutex
	path         string
	rope         rope.Rope
	log          []logEntry
	nonText      uint64
	savedVersion Version

	anchors *anchorCache
}

// Option configures a Document.
type Option func(*Document)

// WithID sets the document ID.
func WithID(id ID) Option {
	return func(d *Document) {
		d.id = id
	}
}

// WithReplica assigns a fresh ID owned by the given replica.
func WithReplica(replica ReplicaID) Option {
	return func(d *Document) {
		d.id = NewID(replica)
	}
}

// WithPath sets the file path. An empty path means the document has no file.
func WithPath(path string) Option {
	return func(d *Document) {
		d.path = path
	}
}

// New creates a document holding text.
func New(text string, opts ...Option) *Document {
	d := &Document{
		id:      NewID(LocalReplica),
		rope:    rope.FromString(text),
		anchors: newAnchorCache(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ID returns the document ID.
func (d *Document) ID() ID {
	return d.id
}

// Path returns the file path, or "" when the document has no file.
func (d *Document) Path() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.path
}

// Version returns the number of edits applied so far.
func (d *Document) Version() Version {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return Version(len(d.log))
}

// Len returns the byte length.
func (d *Document) Len() ByteOffset {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.rope.Len()
}

// Text returns the full text.
func (d *Document) Text() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.rope.String()
}

// Insert inserts text at offset.
func (d *Document) Insert(offset ByteOffset, text string) error {
	return d.Replace(offset, offset, text)
}

// Delete removes the bytes in [start, end).
func (d *Document) Delete(start, end ByteOffset) error {
	return d.Replace(start, end, "")
}

// Replace replaces the bytes in [start, end) with text.
func (d *Document) Replace(start, end ByteOffset, text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.replaceLocked(start, end, text)
}

func (d *Document) replaceLocked(start, end ByteOffset, text string) error {
	if start > end {
		return fmt.Errorf("replace [%d:%d): %w", start, end, ErrRangeInvalid)
	}
	if start < 0 || end > d.rope.Len() {
		return fmt.Errorf("replace [%d:%d) in document of length %d: %w",
			start, end, d.rope.Len(), ErrOffsetOutOfRange)
	}
	if start == end && text == "" {
		return nil
	}

	d.rope = d.rope.Replace(start, end, text)
	d.log = append(d.log, logEntry{start: start, end: end, newLen: ByteOffset(len(text))})
	return nil
}

// SetText replaces the content with text by applying the minimal set of
// line edits, so anchors in unchanged lines keep their position.
// It returns the number of edits applied.
func (d *Document) SetText(text string) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	hunks := lineDiff(d.rope.String(), text)
	// Apply back to front so earlier offsets stay valid.
	for i := len(hunks) - 1; i >= 0; i-- {
		h := hunks[i]
		if err := d.replaceLocked(h.start, h.end, h.text); err != nil {
			panic(fmt.Sprintf("document: diff hunk out of range: %v", err))
		}
	}
	return len(hunks)
}

// SetPath changes the file path. Changing it counts as a non-text update.
func (d *Document) SetPath(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.path == path {
		return
	}
	d.path = path
	d.nonText++
}

// MarkSaved records the current version as saved.
func (d *Document) MarkSaved() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.savedVersion = Version(len(d.log))
	d.nonText++
}

// IsDirty reports whether the document changed since it was last saved.
func (d *Document) IsDirty() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return Version(len(d.log)) != d.savedVersion
}

// AnchorAt creates an anchor at offset, clamped to the document.
func (d *Document) AnchorAt(offset ByteOffset, bias Bias) Anchor {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return Anchor{
		Version: Version(len(d.log)),
		Offset:  min(max(offset, 0), d.rope.Len()),
		Bias:    bias,
	}
}

// AnchorBefore creates a left-biased anchor at offset.
func (d *Document) AnchorBefore(offset ByteOffset) Anchor {
	return d.AnchorAt(offset, BiasLeft)
}

// AnchorAfter creates a right-biased anchor at offset.
func (d *Document) AnchorAfter(offset ByteOffset) Anchor {
	return d.AnchorAt(offset, BiasRight)
}

// Range creates an anchor range from a left-biased start to a right-biased
// end, so text inserted at either boundary falls inside.
func (d *Document) Range(start, end ByteOffset) AnchorRange {
	return AnchorRange{Start: d.AnchorBefore(start), End: d.AnchorAfter(end)}
}

// Snapshot returns an immutable view of the current state.
func (d *Document) Snapshot() *Snapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()
	n := len(d.log)
	return &Snapshot{
		id:      d.id,
		path:    d.path,
		rope:    d.rope,
		log:     d.log[:n:n],
		nonText: d.nonText,
		anchors: d.anchors,
	}
}
