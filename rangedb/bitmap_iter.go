package rangedb

// BitmapIter walks the stored bitmap entries that intersect a query range,
// windowing each one down to the part the caller actually asked for.
// Grounded on original_source/src/db_iterator.rs's DBIterator, which wraps
// a tree range iterator together with the query range it was built from.
type BitmapIter struct {
	entries []mergePartner
	query   Rng
	pos     int
}

// BitmapEntry is one windowed (range, slice) result from BitmapIter.Next.
type BitmapEntry struct {
	Range Rng
	Slice BitmapSlice
}

// Next returns the next entry windowed to the iterator's query range, and
// ok=false once exhausted. The returned slice shares storage with the
// underlying stored bitmap and must not be retained past further DB writes.
func (it *BitmapIter) Next() (entry BitmapEntry, ok bool) {
	if it.pos >= len(it.entries) {
		return BitmapEntry{}, false
	}
	p := it.entries[it.pos]
	it.pos++

	windowed := p.Range.Intersection(it.query)
	return BitmapEntry{
		Range: windowed,
		Slice: p.Bitmap.ToSubslice(p.Range, windowed),
	}, true
}

// Len returns the number of entries remaining.
func (it *BitmapIter) Len() int {
	return len(it.entries) - it.pos
}
