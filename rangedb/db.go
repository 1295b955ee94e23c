package rangedb

import "sort"

// Table is a named pair of interval trees inside a DB: one indexing objects,
// one indexing bitmaps. A table always has both trees, or neither -- it is
// created (empty) atomically on first write.
type Table struct {
	objects   *tree[Object]
	bitmaps   *tree[Bitmap]
	occupancy occupancy
}

func newTable() *Table {
	return &Table{
		objects:   newTree[Object](),
		bitmaps:   newTree[Bitmap](),
		occupancy: newOccupancy(),
	}
}

// Occupancy returns a snapshot of which keys this table's bitmap collection
// currently covers at the given entry size. Diagnostic only; not part of
// the merge/truncate algebra.
func (t *Table) Occupancy(entrySize uint64) *occupancySnapshot {
	return &occupancySnapshot{bitmap: t.occupancy.snapshot(entrySize)}
}

// BitmapEntrySizes returns every entry size this table currently holds at
// least one bitmap for, in ascending order. Diagnostic only, used by the
// CLI's inspect command.
func (t *Table) BitmapEntrySizes() []uint64 {
	sizes := make([]uint64, 0, len(t.occupancy.bySize))
	for size, b := range t.occupancy.bySize {
		if b.IsEmpty() {
			continue
		}
		sizes = append(sizes, size)
	}
	sort.Slice(sizes, func(i, j int) bool { return sizes[i] < sizes[j] })
	return sizes
}

// StoredBitmap is one (range, bitmap) entry as actually stored, with no
// query-range windowing applied.
type StoredBitmap struct {
	Range  Rng
	Bitmap Bitmap
}

// ObjectEntries returns every stored object entry in ascending key order.
func (t *Table) ObjectEntries() []ObjectEntry {
	snapshot := t.objects.Snapshot()
	out := make([]ObjectEntry, len(snapshot))
	for i, e := range snapshot {
		out[i] = ObjectEntry{Range: e.Key, Object: e.Value}
	}
	return out
}

// BitmapEntries returns every stored bitmap entry in ascending key order,
// unwindowed.
func (t *Table) BitmapEntries() []StoredBitmap {
	snapshot := t.bitmaps.Snapshot()
	out := make([]StoredBitmap, len(snapshot))
	for i, e := range snapshot {
		out[i] = StoredBitmap{Range: e.Key, Bitmap: e.Value}
	}
	return out
}

// DB is an ordered mapping of table name to Table. Tables are created on
// first write; there is no explicit "create table" operation.
type DB struct {
	tables  map[string]*Table
	Metrics *Metrics
}

// New returns an empty DB.
func New() *DB {
	return &DB{tables: make(map[string]*Table)}
}

func (db *DB) table(name string) (*Table, bool) {
	t, ok := db.tables[name]
	return t, ok
}

// Table returns the named table, or nil if it does not exist.
func (db *DB) Table(name string) *Table {
	t, _ := db.table(name)
	return t
}

// TableNames returns every table name in sorted order.
func (db *DB) TableNames() []string {
	return db.tableNames()
}

// TableCounts returns the number of object and bitmap entries stored in
// name. Both are zero if the table does not exist.
func (db *DB) TableCounts(name string) (objects, bitmaps int) {
	t, ok := db.table(name)
	if !ok {
		return 0, 0
	}
	return len(t.objects.Snapshot()), len(t.bitmaps.Snapshot())
}

// BitmapEntrySizes returns the bitmap entry sizes stored in name, in
// ascending order. Empty if the table does not exist.
func (db *DB) BitmapEntrySizes(name string) []uint64 {
	t, ok := db.table(name)
	if !ok {
		return nil
	}
	return t.BitmapEntrySizes()
}

func (db *DB) ensureTable(name string) *Table {
	t, ok := db.tables[name]
	if !ok {
		t = newTable()
		db.tables[name] = t
	}
	return t
}

// tableNames returns every table name in sorted order. Used by
// serialization, which requires a stable iteration order.
func (db *DB) tableNames() []string {
	names := make([]string, 0, len(db.tables))
	for name := range db.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// InsertObject stores o under r in table, creating the table if needed.
// Objects have no merge semantics: overlapping objects simply coexist.
func (db *DB) InsertObject(table string, r Rng, o Object) {
	t := db.ensureTable(table)
	t.objects.Insert(r, o)
	db.Metrics.recordInsertObject()
}

// ObjectEntry is one (range, object) result from QueryObject.
type ObjectEntry struct {
	Range  Rng
	Object Object
}

// QueryObject returns every object in table whose range intersects r, in
// ascending key order, or ok=false if the table does not exist.
func (db *DB) QueryObject(table string, r Rng) (entries []ObjectEntry, ok bool) {
	t, ok := db.table(table)
	if !ok {
		return nil, false
	}
	t.objects.Range(r.Min, r.Max, func(key Rng, value Object) {
		entries = append(entries, ObjectEntry{Range: key, Object: value})
	})
	return entries, true
}

// DeleteObject removes the single object entry whose key equals r exactly.
// No-op if table or the exact range doesn't exist.
func (db *DB) DeleteObject(table string, r Rng) {
	t, ok := db.table(table)
	if !ok {
		return
	}
	t.objects.Delete(r)
}

// DeleteAllObjects removes every object entry intersecting r. Keys are
// snapshotted before any deletion, since the tree must not be mutated while
// a live range iterator walks it.
func (db *DB) DeleteAllObjects(table string, r Rng) {
	t, ok := db.table(table)
	if !ok {
		return
	}
	var victims []Rng
	t.objects.Range(r.Min, r.Max, func(key Rng, _ Object) {
		victims = append(victims, key)
	})
	for _, key := range victims {
		t.objects.Delete(key)
	}
}

// overlappingBitmaps returns every stored bitmap in table of the given
// entry size whose range intersects r. Bitmaps of other entry sizes are
// left untouched -- entry sizes are independent axes (spec.md section 9,
// "Open questions").
func overlappingBitmaps(t *Table, r Rng, entrySize uint64) []mergePartner {
	var out []mergePartner
	t.bitmaps.Range(r.Min, r.Max, func(key Rng, value Bitmap) {
		if value.EntrySize == entrySize {
			out = append(out, mergePartner{Range: key, Bitmap: value})
		}
	})
	return out
}

func deleteBitmapsFromTree(t *Table, partners []mergePartner) {
	for _, p := range partners {
		t.bitmaps.Delete(p.Range)
		t.occupancy.remove(p.Bitmap.EntrySize, p.Range)
	}
}

// InsertBitmap stores bmp under r in table, merging it with any same-sized
// bitmap whose range overlaps or is adjacent to r (see spec.md section 4.4).
// Panics if bmp.EntrySize is 0 or len(bmp.Data) != bmp.EntrySize * r.Len()
// -- a precondition violation, not a recoverable error.
func (db *DB) InsertBitmap(table string, r Rng, bmp Bitmap) {
	if bmp.EntrySize == 0 {
		panic("rangedb: bitmap entry_size must be greater than zero")
	}
	if uint64(len(bmp.Data)) != bmp.EntrySize*r.Len() {
		panic("rangedb: bitmap data length does not match entry_size * range length")
	}
	t := db.ensureTable(table)

	partners := overlappingBitmaps(t, r.Extended(), bmp.EntrySize)
	before := bitmapPartnerBytes(partners)
	deleteBitmapsFromTree(t, partners)

	newRange, newBitmap := bmp.Merge(r, partners)

	t.bitmaps.Insert(newRange, newBitmap)
	t.occupancy.add(newBitmap.EntrySize, newRange)

	db.Metrics.recordBitmapMerge(int64(len(newBitmap.Data)) - int64(before))
}

func bitmapPartnerBytes(partners []mergePartner) int64 {
	var total int64
	for _, p := range partners {
		total += int64(len(p.Bitmap.Data))
	}
	return total
}

// DeleteBitmap clears hole from every bitmap of entrySize in table,
// truncating overlapping entries around the hole rather than deleting them
// outright: residual ranges that survive on either side of the hole are
// re-inserted carrying their original bytes.
func (db *DB) DeleteBitmap(table string, entrySize uint64, hole Rng) {
	t, ok := db.table(table)
	if !ok {
		return
	}
	victims := overlappingBitmaps(t, hole, entrySize)
	deleteBitmapsFromTree(t, victims)

	var truncatedBytes int64
	for _, victim := range victims {
		left, right, hasLeft, hasRight := victim.Range.Difference(hole)
		if hasLeft {
			sub := victim.Bitmap.ToSubbitmap(victim.Range, *left)
			t.bitmaps.Insert(*left, sub)
			t.occupancy.add(entrySize, *left)
			truncatedBytes += int64(len(sub.Data))
		}
		if hasRight {
			sub := victim.Bitmap.ToSubbitmap(victim.Range, *right)
			t.bitmaps.Insert(*right, sub)
			t.occupancy.add(entrySize, *right)
			truncatedBytes += int64(len(sub.Data))
		}
	}
	removedBytes := bitmapPartnerBytes(victims)
	db.Metrics.recordBitmapTruncation(len(victims), truncatedBytes-removedBytes)
}

// QueryBitmap returns an iterator over every bitmap in table intersecting
// r, windowed to r (see BitmapIter), or ok=false if the table does not
// exist.
func (db *DB) QueryBitmap(table string, r Rng) (iter *BitmapIter, ok bool) {
	t, ok := db.table(table)
	if !ok {
		return nil, false
	}
	var entries []mergePartner
	t.bitmaps.Range(r.Min, r.Max, func(key Rng, value Bitmap) {
		entries = append(entries, mergePartner{Range: key, Bitmap: value})
	})
	return &BitmapIter{entries: entries, query: r}, true
}

// occupancySnapshot wraps a roaring64.Bitmap snapshot so callers cannot
// mutate the table's live occupancy state through the returned value.
type occupancySnapshot struct {
	bitmap interface {
		GetCardinality() uint64
		Contains(uint64) bool
	}
}

// Cardinality returns the number of distinct keys covered.
func (s *occupancySnapshot) Cardinality() uint64 {
	return s.bitmap.GetCardinality()
}

// Contains reports whether key is covered by some stored bitmap range at
// the snapshotted entry size.
func (s *occupancySnapshot) Contains(key uint64) bool {
	return s.bitmap.Contains(key)
}
