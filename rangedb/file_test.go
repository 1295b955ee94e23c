package rangedb

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSaveAndLoadFromFile(t *testing.T) {
	db := New()
	db.InsertObject("foo", NewRng(1, 2), Object{Data: []byte("bar")})

	path := filepath.Join(t.TempDir(), "snapshot.rangedb")
	assert.NoError(t, db.SaveToFile(path))

	loaded, err := LoadFromFile(path)
	assert.NoError(t, err)

	entries, ok := loaded.QueryObject("foo", NewRng(0, 10))
	assert.True(t, ok)
	assert.Equal(t, 1, len(entries))
	assert.Equal(t, []byte("bar"), entries[0].Object.Data)
}

func TestLoadFromFileMissingReturnsError(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "does-not-exist"))
	assert.Error(t, err)
}

func TestSaveAndLoadFromBucket(t *testing.T) {
	ctx := context.Background()
	db := New()
	db.InsertBitmap("tbl", NewRng(0, 3), Bitmap{EntrySize: 1, Data: []byte("abcd")})

	bucketURL := "file://" + filepath.ToSlash(t.TempDir())

	assert.NoError(t, db.SaveToBucket(ctx, bucketURL, "snapshot.rangedb"))

	loaded, err := LoadFromBucket(ctx, bucketURL, "snapshot.rangedb")
	assert.NoError(t, err)

	got := queryBitmapAll(t, loaded, "tbl", NewRng(0, 3))
	assert.Equal(t, 1, len(got))
	assert.Equal(t, []byte("abcd"), got[0].Slice.Data)
}
