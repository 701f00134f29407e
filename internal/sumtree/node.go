package sumtree

// Tree structure constants
const (
	// MaxChildren is the maximum children per internal node before splitting.
	MaxChildren = 8

	// MaxItems is the maximum items in a leaf node.
	MaxItems = 8
)

// node is a node in the B+ tree.
// Leaf nodes (height == 0) hold items; internal nodes hold children of
// height-1. Nodes are never modified once built.
type node[T Item[S], S Summary[S]] struct {
	height  uint8
	count   int // items in this subtree
	summary S   // aggregated summary of the subtree

	// Internal node fields (height > 0)
	children []*node[T, S]

	// Leaf node fields (height == 0)
	items         []T
	itemSummaries []S
}

func (n *node[T, S]) isLeaf() bool {
	return n.height == 0
}

// newLeaf creates a leaf, computing each item's summary.
func newLeaf[T Item[S], S Summary[S]](items []T) *node[T, S] {
	sums := make([]S, len(items))
	for i, it := range items {
		sums[i] = it.Summary()
	}
	return newLeafWithSummaries(items, sums)
}

// newLeafWithSummaries creates a leaf from items whose summaries are known.
func newLeafWithSummaries[T Item[S], S Summary[S]](items []T, sums []S) *node[T, S] {
	n := &node[T, S]{
		count:         len(items),
		items:         items,
		itemSummaries: sums,
	}
	for i, s := range sums {
		if i == 0 {
			n.summary = s
		} else {
			n.summary = n.summary.Add(s)
		}
	}
	return n
}

// newInternal creates an internal node. All children must share a height.
func newInternal[T Item[S], S Summary[S]](children []*node[T, S]) *node[T, S] {
	n := &node[T, S]{
		height:   children[0].height + 1,
		children: children,
	}
	for i, c := range children {
		n.count += c.count
		if i == 0 {
			n.summary = c.summary
		} else {
			n.summary = n.summary.Add(c.summary)
		}
	}
	return n
}

// buildFromItems builds a balanced tree bottom-up.
func buildFromItems[T Item[S], S Summary[S]](items []T) *node[T, S] {
	if len(items) == 0 {
		return nil
	}

	var nodes []*node[T, S]
	for i := 0; i < len(items); i += MaxItems {
		end := min(i+MaxItems, len(items))
		leafItems := make([]T, end-i)
		copy(leafItems, items[i:end])
		nodes = append(nodes, newLeaf[T, S](leafItems))
	}

	for len(nodes) > 1 {
		var parents []*node[T, S]
		for i := 0; i < len(nodes); i += MaxChildren {
			end := min(i+MaxChildren, len(nodes))
			children := make([]*node[T, S], end-i)
			copy(children, nodes[i:end])
			parents = append(parents, newInternal(children))
		}
		nodes = parents
	}
	return nodes[0]
}

// leafSlice returns a leaf holding items [i, j) of n, or nil when empty.
func leafSlice[T Item[S], S Summary[S]](n *node[T, S], i, j int) *node[T, S] {
	if i >= j {
		return nil
	}
	if i == 0 && j == len(n.items) {
		return n
	}
	items := make([]T, j-i)
	copy(items, n.items[i:j])
	sums := make([]S, j-i)
	copy(sums, n.itemSummaries[i:j])
	return newLeafWithSummaries(items, sums)
}

// childSlice returns a node holding children [i, j) of n, or nil when empty.
// A single child is returned as is, one level lower.
func childSlice[T Item[S], S Summary[S]](n *node[T, S], i, j int) *node[T, S] {
	switch {
	case i >= j:
		return nil
	case j-i == 1:
		return n.children[i]
	case i == 0 && j == len(n.children):
		return n
	}
	children := make([]*node[T, S], j-i)
	copy(children, n.children[i:j])
	return newInternal(children)
}

// fromChildren wraps same-height children in one parent, or in two parents
// under a new root when they overflow a single node. The result is never
// lower than one level above the children.
func fromChildren[T Item[S], S Summary[S]](children []*node[T, S]) *node[T, S] {
	if len(children) <= MaxChildren {
		return newInternal(children)
	}
	mid := len(children) / 2
	left := make([]*node[T, S], mid)
	copy(left, children[:mid])
	right := make([]*node[T, S], len(children)-mid)
	copy(right, children[mid:])
	return newInternal([]*node[T, S]{newInternal(left), newInternal(right)})
}

// join concatenates two subtrees, copying only the nodes along the seam.
// The result is at most one level taller than the taller input.
func join[T Item[S], S Summary[S]](l, r *node[T, S]) *node[T, S] {
	if l == nil {
		return r
	}
	if r == nil {
		return l
	}

	switch {
	case l.height == r.height:
		return joinLevel(l, r)

	case l.height > r.height:
		last := len(l.children) - 1
		j := join(l.children[last], r)
		children := make([]*node[T, S], 0, len(l.children)+1)
		children = append(children, l.children[:last]...)
		if j.height == l.height {
			children = append(children, j.children...)
		} else {
			children = append(children, j)
		}
		return fromChildren(children)

	default:
		j := join(l, r.children[0])
		children := make([]*node[T, S], 0, len(r.children)+1)
		if j.height == r.height {
			children = append(children, j.children...)
		} else {
			children = append(children, j)
		}
		children = append(children, r.children[1:]...)
		return fromChildren(children)
	}
}

// joinLevel concatenates two nodes of the same height.
func joinLevel[T Item[S], S Summary[S]](l, r *node[T, S]) *node[T, S] {
	if l.isLeaf() {
		if len(l.items) >= MaxItems/2 && len(r.items) >= MaxItems/2 {
			return newInternal([]*node[T, S]{l, r})
		}
		total := len(l.items) + len(r.items)
		items := make([]T, 0, total)
		items = append(items, l.items...)
		items = append(items, r.items...)
		sums := make([]S, 0, total)
		sums = append(sums, l.itemSummaries...)
		sums = append(sums, r.itemSummaries...)
		if total <= MaxItems {
			return newLeafWithSummaries(items, sums)
		}
		mid := total / 2
		return newInternal([]*node[T, S]{
			newLeafWithSummaries(items[:mid:mid], sums[:mid:mid]),
			newLeafWithSummaries(items[mid:], sums[mid:]),
		})
	}

	if len(l.children) >= MaxChildren/2 && len(r.children) >= MaxChildren/2 {
		return newInternal([]*node[T, S]{l, r})
	}
	children := make([]*node[T, S], 0, len(l.children)+len(r.children))
	children = append(children, l.children...)
	children = append(children, r.children...)
	return fromChildren(children)
}

// splitBy splits n before the first item at which the running summary,
// starting from acc, satisfies pred.
func splitBy[T Item[S], S Summary[S]](n *node[T, S], acc S, pred func(S) bool) (*node[T, S], *node[T, S]) {
	if n.isLeaf() {
		for i, s := range n.itemSummaries {
			acc = acc.Add(s)
			if pred(acc) {
				return leafSlice(n, 0, i), leafSlice(n, i, len(n.items))
			}
		}
		return n, nil
	}

	for i, c := range n.children {
		next := acc.Add(c.summary)
		if pred(next) {
			l, r := splitBy(c, acc, pred)
			return join(childSlice(n, 0, i), l), join(r, childSlice(n, i+1, len(n.children)))
		}
		acc = next
	}
	return n, nil
}

// splitAt splits n so that the left part holds k items.
func splitAt[T Item[S], S Summary[S]](n *node[T, S], k int) (*node[T, S], *node[T, S]) {
	if k <= 0 {
		return nil, n
	}
	if k >= n.count {
		return n, nil
	}
	if n.isLeaf() {
		return leafSlice(n, 0, k), leafSlice(n, k, len(n.items))
	}

	for i, c := range n.children {
		if k < c.count {
			l, r := splitAt(c, k)
			return join(childSlice(n, 0, i), l), join(r, childSlice(n, i+1, len(n.children)))
		}
		k -= c.count
	}
	return n, nil
}

// walk yields every item in order; it reports false once yield stops.
func (n *node[T, S]) walk(yield func(T) bool) bool {
	if n.isLeaf() {
		for _, it := range n.items {
			if !yield(it) {
				return false
			}
		}
		return true
	}
	for _, c := range n.children {
		if !c.walk(yield) {
			return false
		}
	}
	return true
}
