package workspace

import (
	"context"

	"github.com/dshills/multibuffer/internal/document"
	"github.com/dshills/multibuffer/internal/watcher"
)

// ChangeKind classifies how a document followed a file event.
type ChangeKind int

const (
	// ChangeNone means the event left the document as it was.
	ChangeNone ChangeKind = iota
	// ChangeReloaded means the document was reloaded from disk.
	ChangeReloaded
	// ChangeDetached means the file disappeared and the document no longer
	// has a path.
	ChangeDetached
)

// String returns the name of the change kind.
func (k ChangeKind) String() string {
	switch k {
	case ChangeNone:
		return "none"
	case ChangeReloaded:
		return "reloaded"
	case ChangeDetached:
		return "detached"
	default:
		return "unknown"
	}
}

// Change describes the effect of one file event.
type Change struct {
	Doc   *document.Document
	Kind  ChangeKind
	Edits int
}

// HandleEvent brings the document behind e up to date with the disk.
// A file that still exists is reloaded; one that is gone is detached by
// clearing the document's path and closing it in the workspace.
func (w *Workspace) HandleEvent(e watcher.Event) (Change, error) {
	doc, ok := w.Get(e.Path)
	if !ok {
		return Change{}, nil
	}

	if !exists(e.Path) {
		if err := w.Close(e.Path); err != nil {
			return Change{}, err
		}
		doc.SetPath("")
		w.logger.Info("file removed, document detached", "doc", doc.ID(), "path", w.displayPath(e.Path))
		return Change{Doc: doc, Kind: ChangeDetached}, nil
	}

	if !e.Op.Has(watcher.OpWrite) && !e.Op.Has(watcher.OpCreate) && !e.Op.Has(watcher.OpRename) {
		return Change{Doc: doc, Kind: ChangeNone}, nil
	}
	n, err := w.Reload(e.Path)
	if err != nil {
		return Change{}, err
	}
	if n == 0 {
		return Change{Doc: doc, Kind: ChangeNone}, nil
	}
	return Change{Doc: doc, Kind: ChangeReloaded, Edits: n}, nil
}

// Watch adds every open document's file to wt and applies its events until
// ctx is done or wt is closed. onChange is called for each event that
// changed a document.
func (w *Workspace) Watch(ctx context.Context, wt *watcher.Watcher, onChange func(Change)) error {
	for _, path := range w.Paths() {
		if err := wt.Add(path); err != nil {
			return &PathError{Op: "watch", Path: path, Err: err}
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case e, ok := <-wt.Events():
			if !ok {
				return watcher.ErrWatcherClosed
			}
			change, err := w.HandleEvent(e)
			if err != nil {
				w.logger.Warn("failed to apply file change", "path", e.Path, "op", e.Op, "error", err)
				continue
			}
			if change.Kind == ChangeDetached {
				_ = wt.Remove(e.Path)
			}
			if change.Kind != ChangeNone && onChange != nil {
				onChange(change)
			}

		case err, ok := <-wt.Errors():
			if !ok {
				return watcher.ErrWatcherClosed
			}
			w.logger.Warn("watcher error", "error", err)
		}
	}
}
