// Package workspace backs documents with files on disk.
//
// A Workspace opens files as documents, reloads them when they change on
// disk by applying a line diff as ordinary edits, and renames them. Anchors
// into a reloaded document survive wherever the surrounding text did, so a
// multibuffer built over workspace documents follows external changes.
package workspace

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/multibuffer/internal/document"
	"github.com/dshills/multibuffer/internal/logging"
)

// MetricsCollector receives file load outcomes.
type MetricsCollector interface {
	// RecordLoad is called after every file read; op is "open" or "reload".
	RecordLoad(op string, err error)
}

type noopMetrics struct{}

func (noopMetrics) RecordLoad(string, error) {}

// Option configures a Workspace.
type Option func(*Workspace)

// WithLogger sets the logger. The default discards all output.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Workspace) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m MetricsCollector) Option {
	return func(w *Workspace) {
		if m != nil {
			w.metrics = m
		}
	}
}

// WithMaxConcurrentOpens bounds the file reads OpenAll runs in parallel.
func WithMaxConcurrentOpens(n int) Option {
	return func(w *Workspace) {
		if n > 0 {
			w.maxOpens = n
		}
	}
}

// WithMaxFileSize sets the largest file Open accepts. Zero means unlimited.
func WithMaxFileSize(size int64) Option {
	return func(w *Workspace) {
		w.maxFileSize = max(size, 0)
	}
}

// Workspace holds the documents opened from one root directory.
// It is safe for concurrent use.
type Workspace struct {
	root string

	mu   sync.RWMutex
	docs map[string]*document.Document // keyed by absolute path

	maxOpens    int
	maxFileSize int64
	logger      *slog.Logger
	metrics     MetricsCollector
}

// New creates a workspace rooted at root.
func New(root string, opts ...Option) (*Workspace, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, &PathError{Op: "open workspace", Path: root, Err: err}
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, &PathError{Op: "open workspace", Path: root, Err: err}
	}
	if !info.IsDir() {
		return nil, &PathError{Op: "open workspace", Path: root, Err: errors.New("not a directory")}
	}

	w := &Workspace{
		root:        abs,
		docs:        make(map[string]*document.Document),
		maxOpens:    8,
		maxFileSize: 10 * 1024 * 1024,
		logger:      logging.Discard(),
		metrics:     noopMetrics{},
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = logging.Component(w.logger, "workspace")
	return w, nil
}

// Root returns the absolute root directory.
func (w *Workspace) Root() string {
	return w.root
}

// Abs resolves path against the root.
func (w *Workspace) Abs(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(w.root, path)
}

// displayPath is the path documents carry: slash-separated and relative to
// the root when the file lies inside it.
func (w *Workspace) displayPath(abs string) string {
	rel, err := filepath.Rel(w.root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.ToSlash(abs)
	}
	return filepath.ToSlash(rel)
}

// Open returns the document for the file at path, reading it on first use.
func (w *Workspace) Open(path string) (*document.Document, error) {
	abs := w.Abs(path)

	w.mu.RLock()
	doc, ok := w.docs[abs]
	w.mu.RUnlock()
	if ok {
		return doc, nil
	}

	content, err := w.read("open", abs)
	w.metrics.RecordLoad("open", err)
	if err != nil {
		return nil, err
	}
	doc = document.New(string(content), document.WithPath(w.displayPath(abs)))

	w.mu.Lock()
	defer w.mu.Unlock()
	if existing, ok := w.docs[abs]; ok {
		return existing, nil
	}
	w.docs[abs] = doc
	w.logger.Debug("opened document", "doc", doc.ID(), "path", doc.Path(), "bytes", len(content))
	return doc, nil
}

// OpenAll opens paths concurrently and returns their documents in the same
// order. It stops at the first failure.
func (w *Workspace) OpenAll(ctx context.Context, paths []string) ([]*document.Document, error) {
	docs := make([]*document.Document, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(w.maxOpens)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			doc, err := w.Open(path)
			if err != nil {
				return err
			}
			docs[i] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return docs, nil
}

// read loads a text file, rejecting directories, oversized and binary files.
func (w *Workspace) read(op, abs string) ([]byte, error) {
	info, err := os.Stat(abs)
	if err != nil {
		return nil, &PathError{Op: op, Path: abs, Err: err}
	}
	if info.IsDir() {
		return nil, &PathError{Op: op, Path: abs, Err: ErrIsDirectory}
	}
	if w.maxFileSize > 0 && info.Size() > w.maxFileSize {
		return nil, &PathError{Op: op, Path: abs, Err: ErrFileTooLarge}
	}

	content, err := os.ReadFile(abs)
	if err != nil {
		return nil, &PathError{Op: op, Path: abs, Err: err}
	}
	if isBinary(content) {
		return nil, &PathError{Op: op, Path: abs, Err: ErrBinaryFile}
	}
	return content, nil
}

// isBinary reports whether content looks like binary data: a NUL byte in
// the first 8KB.
func isBinary(content []byte) bool {
	return bytes.IndexByte(content[:min(len(content), 8192)], 0) >= 0
}

// Get returns the open document for path.
func (w *Workspace) Get(path string) (*document.Document, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	doc, ok := w.docs[w.Abs(path)]
	return doc, ok
}

// Documents returns the open documents ordered by path.
func (w *Workspace) Documents() []*document.Document {
	w.mu.RLock()
	docs := make([]*document.Document, 0, len(w.docs))
	for _, doc := range w.docs {
		docs = append(docs, doc)
	}
	w.mu.RUnlock()

	slices.SortFunc(docs, func(a, b *document.Document) int {
		return strings.Compare(a.Path(), b.Path())
	})
	return docs
}

// Paths returns the absolute paths of the open documents, sorted.
func (w *Workspace) Paths() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	paths := make([]string, 0, len(w.docs))
	for p := range w.docs {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	return paths
}

// Reload rereads the file behind an open document and applies the
// difference as edits. It returns the number of edits applied.
func (w *Workspace) Reload(path string) (int, error) {
	abs := w.Abs(path)
	doc, ok := w.Get(abs)
	if !ok {
		return 0, &PathError{Op: "reload", Path: abs, Err: ErrNotOpen}
	}

	content, err := w.read("reload", abs)
	w.metrics.RecordLoad("reload", err)
	if err != nil {
		return 0, err
	}

	n := doc.SetText(string(content))
	doc.MarkSaved()
	w.logger.Debug("reloaded document", "doc", doc.ID(), "path", doc.Path(), "edits", n)
	return n, nil
}

// Save writes an open document to its file.
func (w *Workspace) Save(path string) error {
	abs := w.Abs(path)
	doc, ok := w.Get(abs)
	if !ok {
		return &PathError{Op: "save", Path: abs, Err: ErrNotOpen}
	}
	if err := os.WriteFile(abs, []byte(doc.Text()), 0o644); err != nil {
		return &PathError{Op: "save", Path: abs, Err: err}
	}
	doc.MarkSaved()
	return nil
}

// Rename moves an open document's file and updates the document's path.
func (w *Workspace) Rename(oldPath, newPath string) error {
	oldAbs, newAbs := w.Abs(oldPath), w.Abs(newPath)

	w.mu.Lock()
	defer w.mu.Unlock()

	doc, ok := w.docs[oldAbs]
	if !ok {
		return &PathError{Op: "rename", Path: oldAbs, Err: ErrNotOpen}
	}
	if _, exists := w.docs[newAbs]; exists {
		return &PathError{Op: "rename", Path: newAbs, Err: ErrAlreadyOpen}
	}
	if err := os.Rename(oldAbs, newAbs); err != nil {
		return &PathError{Op: "rename", Path: oldAbs, Err: err}
	}

	delete(w.docs, oldAbs)
	w.docs[newAbs] = doc
	doc.SetPath(w.displayPath(newAbs))
	w.logger.Info("renamed document", "doc", doc.ID(), "from", w.displayPath(oldAbs), "path", doc.Path())
	return nil
}

// Close forgets an open document. The document itself stays usable.
func (w *Workspace) Close(path string) error {
	abs := w.Abs(path)
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.docs[abs]; !ok {
		return &PathError{Op: "close", Path: abs, Err: ErrNotOpen}
	}
	delete(w.docs, abs)
	return nil
}

// exists reports whether a regular file exists at abs.
func exists(abs string) bool {
	info, err := os.Stat(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return false
	}
	return err == nil && !info.IsDir()
}
