package ingestion

import (
	"context"
	"sync"
	"time"

	domainLog "device-fleet-manager/internal/domain/devicelog"
	"device-fleet-manager/internal/logger"

	"go.uber.org/zap"
)

// Source names where a message came from, for metrics.
const (
	SourceRabbitMQ = "rabbitmq"
	SourceMQTT     = "mqtt"
)

// Processor handles log messages with batching and concurrent workers
type Processor struct {
	repo domainLog.Repository
	hub  *Hub

	buffer []*domainLog.Log

	batchSize    int
	batchTimeout time.Duration
	workerCount  int

	logChan chan *LogMessage

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex

	stopOnce sync.Once
	log      *zap.Logger
	metrics  *MetricsTracker
}

// NewProcessor creates a new log processor. hub may be nil.
func NewProcessor(repo domainLog.Repository, hub *Hub, batchSize, workerCount, bufferSize int, batchTimeout time.Duration) *Processor {
	if batchSize <= 0 {
		batchSize = 1
	}
	if workerCount <= 0 {
		workerCount = 1
	}
	if batchTimeout <= 0 {
		batchTimeout = time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Processor{
		repo:         repo,
		hub:          hub,
		batchSize:    batchSize,
		batchTimeout: batchTimeout,
		workerCount:  workerCount,
		buffer:       make([]*domainLog.Log, 0, batchSize),
		logChan:      make(chan *LogMessage, bufferSize),
		ctx:          ctx,
		cancel:       cancel,
		log:          logger.Named("ingestion"),
		metrics:      NewMetricsTracker(),
	}
}

// Start starts the processor workers
func (p *Processor) Start() {
	p.log.Info("Starting log processor",
		zap.Int("workers", p.workerCount),
		zap.Int("batch_size", p.batchSize),
		zap.Duration("batch_timeout", p.batchTimeout),
	)

	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}

	p.wg.Add(1)
	go p.batchFlusher()
}

// Stop stops the workers, then stores whatever is still queued or buffered.
func (p *Processor) Stop() {
	p.stopOnce.Do(func() {
		p.log.Info("Stopping log processor")
		p.cancel()
		p.wg.Wait()

		for drained := false; !drained; {
			select {
			case msg := <-p.logChan:
				p.handle(msg)
			default:
				drained = true
			}
		}
		p.flushBatch()
		p.log.Info("Log processor stopped")
	})
}

// HandleDelivery decodes a message from the logs exchange.
func (p *Processor) HandleDelivery(_ string, body []byte) {
	p.ingest(SourceRabbitMQ, body, "")
}

// HandleMQTT decodes a message from a devices/<mac>/logs topic. The topic
// supplies the MAC when the payload leaves it out.
func (p *Processor) HandleMQTT(topic string, payload []byte) {
	p.ingest(SourceMQTT, payload, macFromTopic(topic))
}

func (p *Processor) ingest(source string, payload []byte, fallbackMac string) {
	logsReceived.WithLabelValues(source).Inc()

	msg, err := ParseLogMessage(payload)
	if err != nil {
		p.log.Warn("Invalid device log payload",
			zap.String("source", source),
			zap.Error(err),
			logger.Event("device_log_rejected"),
		)
		logsRejected.WithLabelValues("decode").Inc()
		p.metrics.Update(func(m *IngestMetrics) {
			m.MessagesFailed++
		})
		return
	}
	if msg.MacID == "" && fallbackMac != "" {
		msg.MacID = fallbackMac
	}

	p.Process(msg)
}

// Process queues a message. It never blocks: a full buffer drops the message.
func (p *Processor) Process(msg *LogMessage) bool {
	if p.ctx.Err() != nil {
		return false
	}

	select {
	case p.logChan <- msg:
		p.metrics.Update(func(m *IngestMetrics) {
			m.MessagesReceived++
			m.BufferSize = len(p.logChan)
		})
		return true
	default:
		p.log.Warn("Log buffer full, dropping message",
			zap.String("mac_id", msg.MacID),
			logger.Event("device_log_dropped"),
		)
		logsRejected.WithLabelValues("buffer_full").Inc()
		p.metrics.Update(func(m *IngestMetrics) {
			m.MessagesDropped++
		})
		return false
	}
}

func (p *Processor) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case msg := <-p.logChan:
			p.handle(msg)
		case <-p.ctx.Done():
			p.log.Debug("Log worker stopped", zap.Int("worker", id))
			return
		}
	}
}

func (p *Processor) handle(msg *LogMessage) {
	start := time.Now()

	if err := ValidateLogMessage(msg); err != nil {
		p.log.Warn("Device log failed validation",
			zap.String("mac_id", msg.MacID),
			zap.Error(err),
			logger.Event("device_log_rejected"),
		)
		logsRejected.WithLabelValues("validation").Inc()
		p.metrics.Update(func(m *IngestMetrics) {
			m.MessagesFailed++
		})
		return
	}

	p.mu.Lock()
	p.buffer = append(p.buffer, msg.ToLog())
	shouldFlush := len(p.buffer) >= p.batchSize
	p.mu.Unlock()

	if shouldFlush {
		p.flushBatch()
	}

	p.metrics.Update(func(m *IngestMetrics) {
		m.MessagesProcessed++
		m.LastProcessedAt = time.Now()

		processingTime := time.Since(start)
		if m.AverageProcessingTime == 0 {
			m.AverageProcessingTime = processingTime
		} else {
			m.AverageProcessingTime = (m.AverageProcessingTime + processingTime) / 2
		}
	})
}

func (p *Processor) batchFlusher() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.batchTimeout)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.flushBatch()
		case <-p.ctx.Done():
			return
		}
	}
}

// flushBatch writes buffered records and then broadcasts them.
func (p *Processor) flushBatch() {
	p.mu.Lock()
	if len(p.buffer) == 0 {
		p.mu.Unlock()
		return
	}
	batch := p.buffer
	p.buffer = make([]*domainLog.Log, 0, p.batchSize)
	p.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	start := time.Now()
	if err := p.repo.BatchInsert(ctx, batch); err != nil {
		p.log.Error("Failed to insert device log batch",
			zap.Int("size", len(batch)),
			zap.Error(err),
			logger.Event("device_log_batch_failed"),
		)
		p.metrics.Update(func(m *IngestMetrics) {
			m.MessagesFailed += int64(len(batch))
		})
		return
	}
	batchDuration.Observe(time.Since(start).Seconds())
	logsInserted.Add(float64(len(batch)))

	p.log.Debug("Inserted device log batch",
		zap.Int("size", len(batch)),
		zap.Duration("took", time.Since(start)),
	)
	p.metrics.Update(func(m *IngestMetrics) {
		m.RecordsInserted += int64(len(batch))
	})

	if p.hub != nil {
		for _, entry := range batch {
			p.hub.Broadcast(entry)
		}
	}
}

// GetMetrics returns current metrics
func (p *Processor) GetMetrics() IngestMetrics {
	return p.metrics.Snapshot()
}
