package rangedb

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSerializeObjectsRoundtrip(t *testing.T) {
	db := New()
	db.InsertObject("foo", NewRng(3, 4), Object{Data: []byte("foo")})
	db.InsertObject("foo", NewRng(4, 5), Object{Data: []byte("foo")})
	db.InsertObject("foo", NewRng(5, 6), Object{Data: []byte("foo")})

	buf, err := db.Serialize()
	assert.NoError(t, err)

	db2, err := Deserialize(buf)
	assert.NoError(t, err)

	want, ok := db.QueryObject("foo", NewRng(0, 100))
	assert.True(t, ok)
	got, ok := db2.QueryObject("foo", NewRng(0, 100))
	assert.True(t, ok)
	assert.Equal(t, rangesOf(want), rangesOf(got))
	assert.Equal(t, want, got)
}

func TestSerializeBitmapsRoundtrip(t *testing.T) {
	db := New()
	db.InsertBitmap("too", NewRng(5, 7), Bitmap{EntrySize: 1, Data: []byte("goo")})
	db.InsertBitmap("too", NewRng(6, 8), Bitmap{EntrySize: 1, Data: []byte("bar")})

	buf, err := db.Serialize()
	assert.NoError(t, err)

	db2, err := Deserialize(buf)
	assert.NoError(t, err)

	want := queryBitmapAll(t, db, "too", NewRng(6, 7))
	got := queryBitmapAll(t, db2, "too", NewRng(6, 7))
	assert.Equal(t, len(want), len(got))
	for i := range want {
		assert.Equal(t, want[i].Range, got[i].Range)
		assert.Equal(t, want[i].Slice.Data, got[i].Slice.Data)
	}
}

func TestSerializeEmptyDB(t *testing.T) {
	db := New()
	buf, err := db.Serialize()
	assert.NoError(t, err)

	db2, err := Deserialize(buf)
	assert.NoError(t, err)
	assert.Empty(t, db2.tableNames())
}

func TestSerializePreservesOccupancyAfterDeserialize(t *testing.T) {
	db := New()
	db.InsertBitmap("tbl", NewRng(0, 10), Bitmap{EntrySize: 1, Data: make([]byte, 11)})

	buf, err := db.Serialize()
	assert.NoError(t, err)
	db2, err := Deserialize(buf)
	assert.NoError(t, err)

	occ := db2.ensureTable("tbl").Occupancy(1)
	assert.Equal(t, uint64(11), occ.Cardinality())
}

func TestDeserializeRejectsTruncatedInput(t *testing.T) {
	_, err := Deserialize([]byte{0x92, 0x80})
	assert.Error(t, err)
}

func TestDeserializeRejectsBadTreeLength(t *testing.T) {
	// array(2) [ map(1) {"x": array(4) [...]}, ... ] -- object tree array
	// length 4 is not a multiple of 3, so decoding must fail before reading
	// the rest of the (incomplete) stream.
	buf := []byte{
		0x92,
		0x81, 0xa1, 'x', 0x94,
	}
	_, err := Deserialize(buf)
	assert.Error(t, err)
	var rdbErr *Error
	assert.ErrorAs(t, err, &rdbErr)
	assert.Equal(t, KindFileFormat, rdbErr.Kind)
}
