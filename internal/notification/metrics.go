package notification

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	notificationsEnqueued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_enqueued_total",
			Help: "Total number of notification tasks accepted by the dispatcher",
		},
		[]string{"kind"},
	)

	notificationsPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notifications_published_total",
			Help: "Total number of device notifications published successfully",
		},
	)

	notificationsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_dropped_total",
			Help: "Total number of notification tasks dropped",
		},
		[]string{"kind", "reason"},
	)

	publishAttempts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notification_publish_attempts_total",
			Help: "Total number of publish attempts including retries",
		},
	)

	publishDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "notification_publish_duration_seconds",
			Help:    "Duration of a single publish attempt",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2, 5},
		},
	)
)

// DispatchMetrics tracks dispatcher throughput
type DispatchMetrics struct {
	Enqueued        int64
	Published       int64
	PublishFailures int64
	Retries         int64
	Dropped         int64
	EmailsSent      int64
	EmailsFailed    int64
	QueueDepth      int
	LastPublishedAt time.Time
}

// MetricsTracker provides a goroutine-safe wrapper around DispatchMetrics.
type MetricsTracker struct {
	mu        sync.RWMutex
	metrics   DispatchMetrics
	listeners []func(DispatchMetrics)
}

func NewMetricsTracker() *MetricsTracker {
	return &MetricsTracker{}
}

// Update applies a mutation and notifies listeners with the new snapshot.
func (t *MetricsTracker) Update(fn func(*DispatchMetrics)) {
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

func (t *MetricsTracker) Snapshot() DispatchMetrics {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.metrics
}

// OnChange registers a callback invoked whenever metrics are updated.
func (t *MetricsTracker) OnChange(listener func(DispatchMetrics)) {
	if listener == nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.listeners = append(t.listeners, listener)
}
