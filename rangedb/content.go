package rangedb

import "fmt"

// Object is an opaque byte blob, stored verbatim with no merge semantics.
type Object struct {
	Data []byte
}

// Bitmap is a fixed-entry-size byte array: EntrySize bytes per logical
// cell, len(Data) == EntrySize * range-length for the range it is filed
// under in a Table's bitmap tree.
type Bitmap struct {
	EntrySize uint64
	Data      []byte
}

// BitmapSlice is a non-owning view over a Bitmap's bytes, returned by range
// queries so callers see data windowed to their own query range.
type BitmapSlice struct {
	EntrySize uint64
	Data      []byte
}

// ToBitmap copies s into a new owned Bitmap.
func (s BitmapSlice) ToBitmap() Bitmap {
	data := make([]byte, len(s.Data))
	copy(data, s.Data)
	return Bitmap{EntrySize: s.EntrySize, Data: data}
}

// ToSubslice returns a borrowed view of b's bytes at the offsets
// corresponding to restriction, given that b is filed under dataRange.
// restriction must be contained in dataRange.
func (b Bitmap) ToSubslice(dataRange, restriction Rng) BitmapSlice {
	if restriction.Min < dataRange.Min || restriction.Max > dataRange.Max {
		panic(fmt.Sprintf("rangedb: restriction %s not contained in %s", restriction, dataRange))
	}
	start := (restriction.Min - dataRange.Min) * b.EntrySize
	end := start + restriction.Len()*b.EntrySize
	return BitmapSlice{EntrySize: b.EntrySize, Data: b.Data[start:end]}
}

// ToSubbitmap is ToSubslice but copies the bytes into a new owned Bitmap.
func (b Bitmap) ToSubbitmap(dataRange, restriction Rng) Bitmap {
	return b.ToSubslice(dataRange, restriction).ToBitmap()
}

// mergePartner is one (range, bitmap) neighbour absorbed by Merge.
type mergePartner struct {
	Range  Rng
	Bitmap Bitmap
}

// Merge combines b (filed under dataRange) with a set of partner bitmaps of
// the same EntrySize into a single wider bitmap. If the union of dataRange
// and every partner range equals dataRange, b is returned unchanged.
// Otherwise a new zero-filled buffer spanning the union is allocated,
// partner bytes are written first, then b's own bytes are written last so
// they overlay any partner bytes at the same logical offset -- the newest
// insert always wins in the overlap.
func (b Bitmap) Merge(dataRange Rng, partners []mergePartner) (Rng, Bitmap) {
	union := dataRange
	for _, p := range partners {
		if p.Bitmap.EntrySize != b.EntrySize {
			panic(fmt.Sprintf("rangedb: merge partner entry size %d != %d", p.Bitmap.EntrySize, b.EntrySize))
		}
		union = union.Union(p.Range)
	}
	if union.Equal(dataRange) {
		return dataRange, b
	}

	combined := make([]byte, union.Len()*b.EntrySize)
	for _, p := range partners {
		offset := (p.Range.Min - union.Min) * b.EntrySize
		copy(combined[offset:offset+uint64(len(p.Bitmap.Data))], p.Bitmap.Data)
	}
	selfOffset := (dataRange.Min - union.Min) * b.EntrySize
	copy(combined[selfOffset:selfOffset+uint64(len(b.Data))], b.Data)

	return union, Bitmap{EntrySize: b.EntrySize, Data: combined}
}
