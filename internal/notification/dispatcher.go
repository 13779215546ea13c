package notification

import (
	"context"
	"sync"
	"time"

	"device-fleet-manager/internal/logger"

	"go.uber.org/zap"
)

type taskKind string

const (
	kindDevice taskKind = "device"
	kindEmail  taskKind = "email"
)

type task struct {
	kind taskKind

	macID   string
	payload []byte

	templateID string
	data       map[string]interface{}
	recipient  string
}

// Options configures a Dispatcher.
type Options struct {
	Workers        int
	QueueSize      int
	MaxRetries     int
	PublishTimeout time.Duration
	RetryDelay     time.Duration
	DefaultPayload string
}

// Dispatcher is a work queue for notification side effects. Request handlers
// enqueue and return; a fixed pool of workers does the delivery.
type Dispatcher struct {
	publisher Publisher
	mailer    Mailer
	opts      Options

	tasks   chan task
	stopped bool
	mu      sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	metrics *MetricsTracker
	log     *zap.Logger
}

func NewDispatcher(publisher Publisher, mailer Mailer, opts Options) *Dispatcher {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.PublishTimeout <= 0 {
		opts.PublishTimeout = 10 * time.Second
	}
	if opts.DefaultPayload == "" {
		opts.DefaultPayload = " "
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Dispatcher{
		publisher: publisher,
		mailer:    mailer,
		opts:      opts,
		tasks:     make(chan task, opts.QueueSize),
		ctx:       ctx,
		cancel:    cancel,
		metrics:   NewMetricsTracker(),
		log:       logger.Named("notification_dispatcher"),
	}
}

func (d *Dispatcher) Start() {
	for i := 0; i < d.opts.Workers; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}

	d.log.Info("Notification dispatcher started",
		zap.Int("workers", d.opts.Workers),
		zap.Int("queue_size", d.opts.QueueSize),
		zap.Int("max_retries", d.opts.MaxRetries),
	)
}

// Stop stops accepting tasks and drains the queue. If ctx expires first,
// in-flight deliveries are cancelled.
func (d *Dispatcher) Stop(ctx context.Context) {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	close(d.tasks)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		d.log.Warn("Notification dispatcher stop timed out, cancelling in-flight deliveries")
		d.cancel()
		<-done
	}
	d.cancel()

	d.log.Info("Notification dispatcher stopped")
}

// NotifyDevice queues the default payload for the device's routing key.
func (d *Dispatcher) NotifyDevice(macID string) {
	d.enqueue(task{
		kind:    kindDevice,
		macID:   macID,
		payload: []byte(d.opts.DefaultPayload),
	})
}

func (d *Dispatcher) SendEmail(templateID string, data map[string]interface{}, recipient string) {
	d.enqueue(task{
		kind:       kindEmail,
		templateID: templateID,
		data:       data,
		recipient:  recipient,
	})
}

func (d *Dispatcher) GetMetrics() DispatchMetrics {
	return d.metrics.Snapshot()
}

func (d *Dispatcher) enqueue(t task) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.stopped {
		d.drop(t, "stopped")
		return
	}

	select {
	case d.tasks <- t:
		notificationsEnqueued.WithLabelValues(string(t.kind)).Inc()
		d.metrics.Update(func(m *DispatchMetrics) {
			m.Enqueued++
			m.QueueDepth = len(d.tasks)
		})
	default:
		d.drop(t, "queue_full")
	}
}

func (d *Dispatcher) drop(t task, reason string) {
	notificationsDropped.WithLabelValues(string(t.kind), reason).Inc()
	d.metrics.Update(func(m *DispatchMetrics) {
		m.Dropped++
	})
	d.log.Warn("Notification dropped",
		zap.String("kind", string(t.kind)),
		zap.String("mac_id", t.macID),
		zap.String("recipient", t.recipient),
		zap.String("reason", reason),
		logger.Event("notification_dropped"),
	)
}

func (d *Dispatcher) worker(id int) {
	defer d.wg.Done()

	for t := range d.tasks {
		d.metrics.Update(func(m *DispatchMetrics) {
			m.QueueDepth = len(d.tasks)
		})

		switch t.kind {
		case kindDevice:
			d.deliver(id, t)
		case kindEmail:
			d.email(id, t)
		}
	}
}

// deliver makes one attempt plus up to MaxRetries retries, then gives up.
func (d *Dispatcher) deliver(workerID int, t task) {
	if d.publisher == nil {
		d.drop(t, "no_publisher")
		return
	}

	attemptsLeft := d.opts.MaxRetries
	for {
		err := d.publishOnce(t)
		if err == nil {
			notificationsPublished.Inc()
			d.metrics.Update(func(m *DispatchMetrics) {
				m.Published++
				m.LastPublishedAt = time.Now()
			})
			return
		}

		d.metrics.Update(func(m *DispatchMetrics) {
			m.PublishFailures++
		})

		if attemptsLeft <= 0 || d.ctx.Err() != nil {
			d.log.Error("Notification delivery failed, giving up",
				zap.Int("worker", workerID),
				zap.String("mac_id", t.macID),
				zap.Int("attempts", d.opts.MaxRetries+1-attemptsLeft),
				zap.Error(err),
				logger.Event("notification_failed"),
			)
			d.drop(t, "retries_exhausted")
			return
		}

		attemptsLeft--
		d.metrics.Update(func(m *DispatchMetrics) {
			m.Retries++
		})
		d.log.Warn("Notification delivery failed, retrying",
			zap.Int("worker", workerID),
			zap.String("mac_id", t.macID),
			zap.Int("attempts_left", attemptsLeft),
			zap.Error(err),
		)

		if d.opts.RetryDelay > 0 {
			select {
			case <-time.After(d.opts.RetryDelay):
			case <-d.ctx.Done():
			}
		}
	}
}

func (d *Dispatcher) publishOnce(t task) error {
	ctx, cancel := context.WithTimeout(d.ctx, d.opts.PublishTimeout)
	defer cancel()

	start := time.Now()
	publishAttempts.Inc()
	err := d.publisher.Publish(ctx, t.macID, t.payload)
	publishDuration.Observe(time.Since(start).Seconds())
	return err
}

func (d *Dispatcher) email(workerID int, t task) {
	if d.mailer == nil {
		d.drop(t, "no_mailer")
		return
	}

	ctx, cancel := context.WithTimeout(d.ctx, d.opts.PublishTimeout)
	defer cancel()

	if err := d.mailer.Send(ctx, t.templateID, t.data, t.recipient); err != nil {
		d.metrics.Update(func(m *DispatchMetrics) {
			m.EmailsFailed++
		})
		d.log.Error("Email delivery failed",
			zap.Int("worker", workerID),
			zap.String("template_id", t.templateID),
			zap.String("recipient", t.recipient),
			zap.Error(err),
			logger.Event("email_failed"),
		)
		return
	}

	d.metrics.Update(func(m *DispatchMetrics) {
		m.EmailsSent++
	})
}
