package rangedb

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFingerprintIsStable(t *testing.T) {
	a := Fingerprint([]byte("hello world"))
	b := Fingerprint([]byte("hello world"))
	assert.Equal(t, a, b)
}

func TestFingerprintDiffersOnDifferentInput(t *testing.T) {
	assert.NotEqual(t, Fingerprint([]byte("a")), Fingerprint([]byte("b")))
}

func TestOccupancyAddRemove(t *testing.T) {
	o := newOccupancy()
	o.add(1, NewRng(5, 10))
	assert.Equal(t, uint64(6), o.bitmapFor(1).GetCardinality())

	o.remove(1, NewRng(5, 6))
	assert.Equal(t, uint64(4), o.bitmapFor(1).GetCardinality())
	assert.False(t, o.bitmapFor(1).Contains(5))
	assert.True(t, o.bitmapFor(1).Contains(7))
}

func TestOccupancyHandlesMaxUint64Boundary(t *testing.T) {
	o := newOccupancy()
	o.add(1, NewRng(math.MaxUint64-1, math.MaxUint64))
	assert.Equal(t, uint64(2), o.bitmapFor(1).GetCardinality())
	assert.True(t, o.bitmapFor(1).Contains(math.MaxUint64))

	o.remove(1, NewRng(math.MaxUint64, math.MaxUint64))
	assert.Equal(t, uint64(1), o.bitmapFor(1).GetCardinality())
	assert.False(t, o.bitmapFor(1).Contains(math.MaxUint64))
}

func TestRecomputeFromTreeMatchesIncremental(t *testing.T) {
	db := New()
	db.InsertBitmap("tbl", NewRng(0, 10), Bitmap{EntrySize: 1, Data: make([]byte, 11)})
	db.InsertBitmap("tbl", NewRng(20, 25), Bitmap{EntrySize: 1, Data: make([]byte, 6)})

	tbl := db.ensureTable("tbl")
	recomputed := recomputeFromTree(tbl.bitmaps, 1)
	assert.True(t, recomputed.Equals(tbl.occupancy.bitmapFor(1)))
}
