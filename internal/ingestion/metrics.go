package ingestion

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	logsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "device_logs_received_total",
			Help: "Total number of device log messages received",
		},
		[]string{"source"},
	)

	logsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "device_logs_rejected_total",
			Help: "Total number of device log messages rejected",
		},
		[]string{"reason"},
	)

	logsInserted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "device_logs_inserted_total",
			Help: "Total number of device log records written to storage",
		},
	)

	batchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "device_logs_batch_insert_duration_seconds",
			Help:    "Duration of device log batch inserts",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// IngestMetrics tracks ingestion performance
type IngestMetrics struct {
	MessagesReceived      int64
	MessagesProcessed     int64
	MessagesFailed        int64
	MessagesDropped       int64
	RecordsInserted       int64
	LastProcessedAt       time.Time
	AverageProcessingTime time.Duration
	BufferSize            int
}

// MetricsTracker provides a goroutine-safe wrapper around IngestMetrics.
type MetricsTracker struct {
	mu        sync.RWMutex
	metrics   IngestMetrics
	listeners []func(IngestMetrics)
}

func NewMetricsTracker() *MetricsTracker {
	return &MetricsTracker{}
}

// Update applies a mutation in a thread-safe way.
func (t *MetricsTracker) Update(fn func(*IngestMetrics)) {
	if fn == nil {
		return
	}

	t.mu.Lock()
	fn(&t.metrics)
	snapshot := t.metrics
	listeners := t.listeners
	t.mu.Unlock()

	for _, listener := range listeners {
		listener(snapshot)
	}
}

// Snapshot returns a copy of the current metrics.
func (t *MetricsTracker) Snapshot() IngestMetrics {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.metrics
}

func (t *MetricsTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.metrics = IngestMetrics{}
}

// OnChange registers a callback invoked whenever metrics are updated.
func (t *MetricsTracker) OnChange(listener func(IngestMetrics)) {
	if listener == nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.listeners = append(t.listeners, listener)
}
