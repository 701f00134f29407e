package multibuffer

import (
	"fmt"
	"strings"

	"github.com/dshills/multibuffer/internal/document"
)

// ExcerptKey orders excerpts in the composed view: by file path (documents
// without a file first), then document ID, then range.
type ExcerptKey struct {
	Path  string
	Doc   document.ID
	Range document.AnchorRange
}

// String returns a debug representation.
func (k ExcerptKey) String() string {
	path := k.Path
	if path == "" {
		path = "<untitled>"
	}
	return fmt.Sprintf("%s (%s) %s", path, k.Doc, k.Range)
}

// comparePrefix orders keys by path and document only.
func comparePrefix(a, b ExcerptKey) int {
	if c := strings.Compare(a.Path, b.Path); c != 0 {
		return c
	}
	return a.Doc.Compare(b.Doc)
}

// compareKeys orders keys fully. Ranges of the same document are compared
// with snap, the snapshot of that document.
func compareKeys(a, b ExcerptKey, snap *document.Snapshot) int {
	if c := comparePrefix(a, b); c != 0 {
		return c
	}
	return snap.CompareRanges(a.Range, b.Range)
}
