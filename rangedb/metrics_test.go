package rangedb

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	var m dto.Metric
	assert.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestMetricsNilIsNoop(t *testing.T) {
	db := New()
	assert.NotPanics(t, func() {
		db.InsertObject("foo", NewRng(0, 1), Object{Data: []byte("x")})
		db.InsertBitmap("foo", NewRng(0, 1), Bitmap{EntrySize: 1, Data: []byte("xy")})
		db.DeleteBitmap("foo", 1, NewRng(0, 1))
	})
}

func TestMetricsRecordsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	db := New()
	db.Metrics = m

	db.InsertObject("foo", NewRng(0, 1), Object{Data: []byte("x")})
	assert.Equal(t, float64(1), counterValue(t, m.objectsInserted))

	db.InsertBitmap("foo", NewRng(0, 1), Bitmap{EntrySize: 1, Data: []byte("xy")})
	assert.Equal(t, float64(1), counterValue(t, m.bitmapMerges))

	db.DeleteBitmap("foo", 1, NewRng(0, 0))
	assert.Equal(t, float64(1), counterValue(t, m.bitmapTruncations))
}
