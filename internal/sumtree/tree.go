package sumtree

import (
	"errors"
	"fmt"
	"iter"
)

// Summary is an associative aggregate. The zero value must be the identity.
type Summary[S any] interface {
	Add(other S) S
}

// Item is an element stored in a Tree.
type Item[S any] interface {
	Summary() S
}

// Errors reported by Check.
var (
	ErrSummaryMismatch = errors.New("sumtree: cached summary mismatch")
	ErrCountMismatch   = errors.New("sumtree: cached count mismatch")
	ErrHeightMismatch  = errors.New("sumtree: child height mismatch")
	ErrNodeOverflow    = errors.New("sumtree: node exceeds maximum size")
)

// Tree is an immutable sequence of items with cached summaries.
// The zero value is an empty tree.
type Tree[T Item[S], S Summary[S]] struct {
	root *node[T, S]
}

// FromItems builds a tree holding items in order.
func FromItems[T Item[S], S Summary[S]](items []T) Tree[T, S] {
	return Tree[T, S]{root: buildFromItems[T, S](items)}
}

// Len returns the number of items.
func (t Tree[T, S]) Len() int {
	if t.root == nil {
		return 0
	}
	return t.root.count
}

// IsEmpty reports whether the tree holds no items.
func (t Tree[T, S]) IsEmpty() bool {
	return t.root == nil
}

// Summary returns the aggregate of every item.
func (t Tree[T, S]) Summary() S {
	if t.root == nil {
		var zero S
		return zero
	}
	return t.root.summary
}

// Height returns the tree height. Leaves have height 0.
func (t Tree[T, S]) Height() int {
	if t.root == nil {
		return 0
	}
	return int(t.root.height)
}

// Push returns a tree with item appended.
func (t Tree[T, S]) Push(item T) Tree[T, S] {
	return Tree[T, S]{root: join(t.root, newLeaf[T, S]([]T{item}))}
}

// Append returns the concatenation of t and other.
func (t Tree[T, S]) Append(other Tree[T, S]) Tree[T, S] {
	return Tree[T, S]{root: join(t.root, other.root)}
}

// Split divides the tree before the first item at which the running summary
// satisfies pred. pred must be monotone: once true it stays true.
func (t Tree[T, S]) Split(pred func(S) bool) (Tree[T, S], Tree[T, S]) {
	if t.root == nil {
		return t, t
	}
	var zero S
	l, r := splitBy(t.root, zero, pred)
	return Tree[T, S]{root: l}, Tree[T, S]{root: r}
}

// SplitAt divides the tree so the left side holds the first n items.
func (t Tree[T, S]) SplitAt(n int) (Tree[T, S], Tree[T, S]) {
	if t.root == nil {
		return t, t
	}
	l, r := splitAt(t.root, n)
	return Tree[T, S]{root: l}, Tree[T, S]{root: r}
}

// Find returns the first item at which the running summary satisfies pred,
// together with the summary of all items before it.
func (t Tree[T, S]) Find(pred func(S) bool) (T, S, bool) {
	var (
		acc  S
		zero T
	)
	n := t.root
	if n == nil || !pred(n.summary) {
		return zero, acc, false
	}

	for !n.isLeaf() {
		for _, c := range n.children {
			next := acc.Add(c.summary)
			if pred(next) {
				n = c
				break
			}
			acc = next
		}
	}
	for i, s := range n.itemSummaries {
		next := acc.Add(s)
		if pred(next) {
			return n.items[i], acc, true
		}
		acc = next
	}
	return zero, acc, false
}

// First returns the first item.
func (t Tree[T, S]) First() (T, bool) {
	var zero T
	n := t.root
	if n == nil {
		return zero, false
	}
	for !n.isLeaf() {
		n = n.children[0]
	}
	return n.items[0], true
}

// Last returns the last item.
func (t Tree[T, S]) Last() (T, bool) {
	var zero T
	n := t.root
	if n == nil {
		return zero, false
	}
	for !n.isLeaf() {
		n = n.children[len(n.children)-1]
	}
	return n.items[len(n.items)-1], true
}

// DropFirst returns the tree without its first item.
func (t Tree[T, S]) DropFirst() Tree[T, S] {
	_, r := t.SplitAt(1)
	return r
}

// DropLast returns the tree without its last item.
func (t Tree[T, S]) DropLast() Tree[T, S] {
	l, _ := t.SplitAt(t.Len() - 1)
	return l
}

// All iterates the items in order.
func (t Tree[T, S]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		if t.root != nil {
			t.root.walk(yield)
		}
	}
}

// Items returns the items as a slice.
func (t Tree[T, S]) Items() []T {
	items := make([]T, 0, t.Len())
	for it := range t.All() {
		items = append(items, it)
	}
	return items
}

// Check verifies cached counts, heights, node sizes and summaries.
// eq compares two summaries for equality.
func (t Tree[T, S]) Check(eq func(a, b S) bool) error {
	if t.root == nil {
		return nil
	}
	_, err := checkNode(t.root, eq)
	return err
}

func checkNode[T Item[S], S Summary[S]](n *node[T, S], eq func(a, b S) bool) (int, error) {
	var sum S
	count := 0

	if n.isLeaf() {
		if len(n.items) == 0 || len(n.items) > MaxItems {
			return 0, fmt.Errorf("%w: leaf with %d items", ErrNodeOverflow, len(n.items))
		}
		for i, it := range n.items {
			s := it.Summary()
			if !eq(s, n.itemSummaries[i]) {
				return 0, fmt.Errorf("%w: item %d", ErrSummaryMismatch, i)
			}
			sum = sum.Add(s)
		}
		count = len(n.items)
	} else {
		if len(n.children) == 0 || len(n.children) > MaxChildren {
			return 0, fmt.Errorf("%w: node with %d children", ErrNodeOverflow, len(n.children))
		}
		for _, c := range n.children {
			if c.height+1 != n.height {
				return 0, fmt.Errorf("%w: parent %d, child %d", ErrHeightMismatch, n.height, c.height)
			}
			cc, err := checkNode(c, eq)
			if err != nil {
				return 0, err
			}
			count += cc
			sum = sum.Add(c.summary)
		}
	}

	if count != n.count {
		return 0, fmt.Errorf("%w: cached %d, actual %d", ErrCountMismatch, n.count, count)
	}
	if !eq(sum, n.summary) {
		return 0, fmt.Errorf("%w: node at height %d", ErrSummaryMismatch, n.height)
	}
	return count, nil
}
