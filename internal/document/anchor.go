package document

import (
	"fmt"
	"sync"
)

// Version counts the edits applied to a document.
type Version uint64

// Bias selects which side of an edit an anchor sticks to.
type Bias uint8

const (
	// BiasLeft keeps the anchor before text inserted at its position.
	BiasLeft Bias = iota
	// BiasRight moves the anchor after text inserted at its position.
	BiasRight
)

// String returns "left" or "right".
func (b Bias) String() string {
	if b == BiasRight {
		return "right"
	}
	return "left"
}

// Anchor is a stable position in a document. It records the offset at the
// version it was created and is resolved lazily against later snapshots.
type Anchor struct {
	Version Version
	Offset  ByteOffset
	Bias    Bias
}

// String returns a debug representation.
func (a Anchor) String() string {
	return fmt.Sprintf("%d@v%d/%s", a.Offset, a.Version, a.Bias)
}

// AnchorRange is a range of anchors. It is not guaranteed to be ordered.
type AnchorRange struct {
	Start Anchor
	End   Anchor
}

// String returns a debug representation.
func (r AnchorRange) String() string {
	return fmt.Sprintf("%s..%s", r.Start, r.End)
}

// resolve maps an offset through one edit.
func (e logEntry) resolve(offset ByteOffset, bias Bias) ByteOffset {
	switch {
	case offset < e.start:
		return offset
	case offset > e.end:
		return offset + e.newLen - (e.end - e.start)
	case bias == BiasLeft:
		return e.start
	default:
		return e.start + e.newLen
	}
}

// maxCachedAnchors bounds an anchorCache. A full cache is dropped and
// refilled; resolution restarts from the anchors' own versions.
const maxCachedAnchors = 1 << 14

// resolved is an anchor's offset at one version.
type resolved struct {
	version Version
	offset  ByteOffset
}

// anchorCache remembers the latest resolution of each anchor so a later
// snapshot replays only the edits made since. Mapping an offset through the
// log one entry at a time composes, so resuming from a cached resolution
// gives the same result as replaying from the anchor's version. All
// snapshots of a document share one cache.
type anchorCache struct {
	mu      sync.Mutex
	entries map[Anchor]resolved
}

func newAnchorCache() *anchorCache {
	return &anchorCache{entries: make(map[Anchor]resolved)}
}

// lookup returns the cached resolution of a if it can be resumed at
// version v.
func (c *anchorCache) lookup(a Anchor, v Version) (resolved, bool) {
	if c == nil {
		return resolved{}, false
	}
	c.mu.Lock()
	r, ok := c.entries[a]
	c.mu.Unlock()
	if !ok || r.version > v || r.version < a.Version {
		return resolved{}, false
	}
	return r, true
}

// store records r unless a resolution at a later version is cached.
func (c *anchorCache) store(a Anchor, r resolved) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if old, ok := c.entries[a]; ok && old.version >= r.version {
		return
	}
	if len(c.entries) >= maxCachedAnchors {
		clear(c.entries)
	}
	c.entries[a] = r
}
