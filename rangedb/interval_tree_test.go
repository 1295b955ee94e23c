package rangedb

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTreeRangeQuery(t *testing.T) {
	tr := newTree[string]()
	tr.Insert(NewRng(3, 4), "a")
	tr.Insert(NewRng(4, 5), "b")
	tr.Insert(NewRng(5, 6), "c")

	var got []string
	tr.Range(4, 4, func(_ Rng, v string) { got = append(got, v) })
	assert.ElementsMatch(t, []string{"a", "b"}, got)
}

func TestTreeInsertAndDeleteManyKeepsOrdering(t *testing.T) {
	tr := newTree[int]()
	for i := 0; i < 200; i++ {
		tr.Insert(NewRng(uint64(i), uint64(i)), i)
	}
	for i := 0; i < 200; i += 2 {
		tr.Delete(NewRng(uint64(i), uint64(i)))
	}
	entries := tr.Snapshot()
	assert.Equal(t, 100, len(entries))
	for i, e := range entries {
		assert.Equal(t, uint64(2*i+1), e.Key.Min)
	}
}

func TestTreeDeleteIsNoopWhenMissing(t *testing.T) {
	tr := newTree[string]()
	tr.Insert(NewRng(1, 2), "a")
	tr.Delete(NewRng(5, 6))
	assert.Equal(t, 1, len(tr.Snapshot()))
}

func TestTreeRangeQueryFullSpan(t *testing.T) {
	tr := newTree[int]()
	tr.Insert(NewRng(10, 20), 1)
	tr.Insert(NewRng(30, 40), 2)
	var count int
	tr.Range(0, math.MaxUint64, func(_ Rng, _ int) { count++ })
	assert.Equal(t, 2, count)
}

func TestTreeSnapshotIsSortedByKey(t *testing.T) {
	tr := newTree[int]()
	tr.Insert(NewRng(50, 60), 1)
	tr.Insert(NewRng(10, 20), 2)
	tr.Insert(NewRng(30, 30), 3)

	entries := tr.Snapshot()
	assert.True(t, entries[0].Key.Less(entries[1].Key))
	assert.True(t, entries[1].Key.Less(entries[2].Key))
}
