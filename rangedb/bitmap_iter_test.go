package rangedb

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBitmapIterWindowsToQueryRange(t *testing.T) {
	it := &BitmapIter{
		entries: []mergePartner{
			{Range: NewRng(0, 10), Bitmap: Bitmap{EntrySize: 1, Data: []byte("0123456789a")}},
		},
		query: NewRng(3, 5),
	}

	entry, ok := it.Next()
	assert.True(t, ok)
	assert.Equal(t, NewRng(3, 5), entry.Range)
	assert.Equal(t, []byte("345"), entry.Slice.Data)

	_, ok = it.Next()
	assert.False(t, ok)
}

func TestBitmapIterLen(t *testing.T) {
	it := &BitmapIter{
		entries: []mergePartner{
			{Range: NewRng(0, 1), Bitmap: Bitmap{EntrySize: 1, Data: []byte("ab")}},
			{Range: NewRng(2, 3), Bitmap: Bitmap{EntrySize: 1, Data: []byte("cd")}},
		},
		query: NewRng(0, 3),
	}
	assert.Equal(t, 2, it.Len())
	it.Next()
	assert.Equal(t, 1, it.Len())
}
