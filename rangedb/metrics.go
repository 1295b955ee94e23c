package rangedb

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is an optional set of Prometheus collectors a DB can be wired to.
// Every recording method returns early on a nil receiver, so a nil *Metrics
// (the default) costs nothing and instrumentation is purely opt-in, mirroring
// the teacher's promauto.With(reg).NewCounterVec convention in
// server_metrics.go but scoped to the in-process algebra rather than HTTP
// request handling.
type Metrics struct {
	objectsInserted   prometheus.Counter
	bitmapMerges      prometheus.Counter
	bitmapTruncations prometheus.Counter
	bitmapBytesStored prometheus.Gauge
}

// NewMetrics registers this package's collectors against reg and returns a
// handle that can be attached to a DB via DB.Metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		objectsInserted: factory.NewCounter(prometheus.CounterOpts{
			Name: "rangedb_objects_inserted_total",
			Help: "Number of InsertObject calls.",
		}),
		bitmapMerges: factory.NewCounter(prometheus.CounterOpts{
			Name: "rangedb_bitmap_merges_total",
			Help: "Number of InsertBitmap calls that ran the merge algebra.",
		}),
		bitmapTruncations: factory.NewCounter(prometheus.CounterOpts{
			Name: "rangedb_bitmap_truncations_total",
			Help: "Number of bitmap entries truncated by DeleteBitmap.",
		}),
		bitmapBytesStored: factory.NewGauge(prometheus.GaugeOpts{
			Name: "rangedb_bitmap_bytes_stored",
			Help: "Approximate total bytes held across all bitmap entries, updated incrementally.",
		}),
	}
}

func (m *Metrics) recordInsertObject() {
	if m == nil {
		return
	}
	m.objectsInserted.Inc()
}

func (m *Metrics) recordBitmapMerge(deltaBytes int64) {
	if m == nil {
		return
	}
	m.bitmapMerges.Inc()
	m.bitmapBytesStored.Add(float64(deltaBytes))
}

func (m *Metrics) recordBitmapTruncation(count int, deltaBytes int64) {
	if m == nil {
		return
	}
	m.bitmapTruncations.Add(float64(count))
	m.bitmapBytesStored.Add(float64(deltaBytes))
}
