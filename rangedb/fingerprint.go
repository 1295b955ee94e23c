package rangedb

import (
	"math"

	"github.com/RoaringBitmap/roaring/roaring64"
	"github.com/cespare/xxhash/v2"
)

// Fingerprint returns a 64-bit content digest of data. It plays no part in
// the merge/truncate algebra's correctness (which must stay byte-exact per
// spec.md section 4.3) -- it exists for diagnostics, such as the CLI's
// inspect command reporting duplicate object payloads within a table.
func Fingerprint(data []byte) uint64 {
	return xxhash.Sum64(data)
}

// occupancy tracks, per entry size, the set of keys currently covered by a
// stored bitmap range. It is maintained incrementally by Table's bitmap
// insert/delete paths -- never recomputed from scratch during normal
// operation -- so that it cannot silently drift out of sync without also
// breaking an invariant check.
type occupancy struct {
	bySize map[uint64]*roaring64.Bitmap
}

func newOccupancy() occupancy {
	return occupancy{bySize: make(map[uint64]*roaring64.Bitmap)}
}

func (o *occupancy) bitmapFor(entrySize uint64) *roaring64.Bitmap {
	b, ok := o.bySize[entrySize]
	if !ok {
		b = roaring64.New()
		o.bySize[entrySize] = b
	}
	return b
}

func (o *occupancy) add(entrySize uint64, r Rng) {
	addInclusiveRange(o.bitmapFor(entrySize), r.Min, r.Max)
}

func (o *occupancy) remove(entrySize uint64, r Rng) {
	b, ok := o.bySize[entrySize]
	if !ok {
		return
	}
	removeInclusiveRange(b, r.Min, r.Max)
}

// addInclusiveRange/removeInclusiveRange add/remove [min, max] inclusive.
// roaring64's AddRange/RemoveRange take an exclusive end, which cannot
// represent max == math.MaxUint64 without overflow, so that boundary value
// is handled as a single-element Add/Remove.
func addInclusiveRange(b *roaring64.Bitmap, min, max uint64) {
	if max == math.MaxUint64 {
		if min < max {
			b.AddRange(min, max)
		}
		b.Add(max)
		return
	}
	b.AddRange(min, max+1)
}

func removeInclusiveRange(b *roaring64.Bitmap, min, max uint64) {
	if max == math.MaxUint64 {
		if min < max {
			b.RemoveRange(min, max)
		}
		b.Remove(max)
		return
	}
	b.RemoveRange(min, max+1)
}

// snapshot returns a copy of the occupancy bitmap for entrySize (empty if
// nothing has ever been stored at that entry size).
func (o *occupancy) snapshot(entrySize uint64) *roaring64.Bitmap {
	b, ok := o.bySize[entrySize]
	if !ok {
		return roaring64.New()
	}
	return b.Clone()
}

// recomputeFromTree rebuilds a fresh occupancy bitmap for entrySize by
// walking the bitmap tree directly. Used only by consistency checks (tests)
// to confirm the incrementally maintained bitmap hasn't drifted.
func recomputeFromTree(bitmaps *tree[Bitmap], entrySize uint64) *roaring64.Bitmap {
	out := roaring64.New()
	bitmaps.Range(0, math.MaxUint64, func(key Rng, value Bitmap) {
		if value.EntrySize == entrySize {
			addInclusiveRange(out, key.Min, key.Max)
		}
	})
	return out
}
