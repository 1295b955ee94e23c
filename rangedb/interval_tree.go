package rangedb

import "math/rand"

// treeNode is one node of a randomized treap keyed by Rng. Treaps stay
// heap-ordered on a random priority via rotations while remaining a BST on
// key order, giving expected O(log n) operations without the rotation
// bookkeeping of a deterministic balanced tree. maxEnd augments each node
// with the largest Max in its subtree so range queries can prune branches
// that cannot possibly intersect the query.
type treeNode[T any] struct {
	key      Rng
	value    T
	priority uint64
	maxEnd   uint64
	left     *treeNode[T]
	right    *treeNode[T]
}

// tree is an ordered multimap from Rng to T: duplicate and overlapping keys
// are permitted, insertion order is preserved among ties, and Delete removes
// a single exact-key match.
type tree[T any] struct {
	root *treeNode[T]
	rnd  *rand.Rand
}

func newTree[T any]() *tree[T] {
	return &tree[T]{rnd: rand.New(rand.NewSource(rand.Int63()))}
}

func nodeMaxEnd[T any](n *treeNode[T]) uint64 {
	if n == nil {
		return 0
	}
	return n.maxEnd
}

func (n *treeNode[T]) refresh() {
	m := n.key.Max
	if l := nodeMaxEnd(n.left); l > m {
		m = l
	}
	if r := nodeMaxEnd(n.right); r > m {
		m = r
	}
	n.maxEnd = m
}

func rotateRight[T any](n *treeNode[T]) *treeNode[T] {
	l := n.left
	n.left = l.right
	l.right = n
	n.refresh()
	l.refresh()
	return l
}

func rotateLeft[T any](n *treeNode[T]) *treeNode[T] {
	r := n.right
	n.right = r.left
	r.left = n
	n.refresh()
	r.refresh()
	return r
}

// Insert stores a new (key, value) entry. Duplicate or overlapping keys are
// permitted and coexist as distinct entries.
func (t *tree[T]) Insert(key Rng, value T) {
	t.root = insertNode(t.root, &treeNode[T]{key: key, value: value, priority: t.rnd.Uint64(), maxEnd: key.Max})
}

func insertNode[T any](n, toInsert *treeNode[T]) *treeNode[T] {
	if n == nil {
		return toInsert
	}
	if toInsert.key.Less(n.key) {
		n.left = insertNode(n.left, toInsert)
		n.refresh()
		if n.left.priority > n.priority {
			n = rotateRight(n)
		}
	} else {
		n.right = insertNode(n.right, toInsert)
		n.refresh()
		if n.right.priority > n.priority {
			n = rotateLeft(n)
		}
	}
	return n
}

// Delete removes one entry whose key equals the given range exactly. It is
// a no-op if no such entry exists.
func (t *tree[T]) Delete(key Rng) {
	t.root, _ = deleteNode(t.root, key)
}

func deleteNode[T any](n *treeNode[T], key Rng) (*treeNode[T], bool) {
	if n == nil {
		return nil, false
	}
	switch {
	case key.Less(n.key):
		left, deleted := deleteNode(n.left, key)
		n.left = left
		if deleted {
			n.refresh()
		}
		return n, deleted
	case n.key.Less(key):
		right, deleted := deleteNode(n.right, key)
		n.right = right
		if deleted {
			n.refresh()
		}
		return n, deleted
	default:
		return deleteRoot(n), true
	}
}

// deleteRoot removes n itself by merging its two children, preferring to
// rotate up whichever child has higher priority so the treap stays
// heap-ordered (the standard treap delete-by-merge).
func deleteRoot[T any](n *treeNode[T]) *treeNode[T] {
	switch {
	case n.left == nil:
		return n.right
	case n.right == nil:
		return n.left
	case n.left.priority > n.right.priority:
		newRoot := rotateRight(n)
		newRoot.right = deleteRoot(newRoot.right)
		newRoot.refresh()
		return newRoot
	default:
		newRoot := rotateLeft(n)
		newRoot.left = deleteRoot(newRoot.left)
		newRoot.refresh()
		return newRoot
	}
}

// Range calls fn, in ascending key order, for every stored entry whose key
// intersects [qMin, qMax].
func (t *tree[T]) Range(qMin, qMax uint64, fn func(key Rng, value T)) {
	q := Rng{Min: qMin, Max: qMax}
	rangeNode(t.root, q, fn)
}

func rangeNode[T any](n *treeNode[T], q Rng, fn func(Rng, T)) {
	if n == nil || nodeMaxEnd(n) < q.Min {
		return
	}
	if n.left != nil && nodeMaxEnd(n.left) >= q.Min {
		rangeNode(n.left, q, fn)
	}
	if n.key.Intersects(q) {
		fn(n.key, n.value)
	}
	if n.key.Min <= q.Max {
		rangeNode(n.right, q, fn)
	}
}

// Snapshot returns every stored entry in ascending key order. Used by
// serialization and by Table's ObjectEntries/BitmapEntries accessors.
func (t *tree[T]) Snapshot() []struct {
	Key   Rng
	Value T
} {
	var out []struct {
		Key   Rng
		Value T
	}
	var walk func(*treeNode[T])
	walk = func(n *treeNode[T]) {
		if n == nil {
			return
		}
		walk(n.left)
		out = append(out, struct {
			Key   Rng
			Value T
		}{n.key, n.value})
		walk(n.right)
	}
	walk(t.root)
	return out
}
