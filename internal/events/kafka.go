package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaConfig holds publisher settings.
type KafkaConfig struct {
	Brokers       []string      // Broker addresses
	Topic         string        // Destination topic
	BatchSize     int           // Max events per produce call
	FlushInterval time.Duration // Max time a batched event waits
	BufferSize    int           // Initial pending-event buffer capacity
}

// DefaultKafkaConfig returns sensible defaults for everything but Brokers
// and Topic.
func DefaultKafkaConfig() KafkaConfig {
	return KafkaConfig{
		BatchSize:     100,
		FlushInterval: time.Second,
		BufferSize:    1024,
	}
}

// KafkaPublisher batches committed-entry events to a kafka topic. Publish
// never blocks the caller; delivery is asynchronous and best-effort, with
// failures logged and the batch dropped.
type KafkaPublisher struct {
	cfg    KafkaConfig
	writer *kafka.Writer
	logger *slog.Logger

	input *buffer

	batchMu sync.Mutex
	batch   []EntryCommitted

	flushTicker *time.Ticker

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewKafkaPublisher creates a publisher for the configured topic.
func NewKafkaPublisher(cfg KafkaConfig, logger *slog.Logger) *KafkaPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultKafkaConfig()
	if cfg.BatchSize == 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.FlushInterval == 0 {
		cfg.FlushInterval = def.FlushInterval
	}
	if cfg.BufferSize == 0 {
		cfg.BufferSize = def.BufferSize
	}

	return &KafkaPublisher{
		cfg: cfg,
		writer: &kafka.Writer{
			Addr:     kafka.TCP(cfg.Brokers...),
			Topic:    cfg.Topic,
			Balancer: &kafka.LeastBytes{},
		},
		logger: logger,
		input:  newBuffer(cfg.BufferSize),
		batch:  make([]EntryCommitted, 0, cfg.BatchSize),
	}
}

// Publish implements Publisher.
func (p *KafkaPublisher) Publish(event EntryCommitted) bool {
	return p.input.send(event)
}

// Start begins consuming and producing.
func (p *KafkaPublisher) Start(ctx context.Context) error {
	p.ctx, p.cancel = context.WithCancel(ctx)
	p.flushTicker = time.NewTicker(p.cfg.FlushInterval)

	p.wg.Add(1)
	go p.consumeLoop()

	p.wg.Add(1)
	go p.flushLoop()

	p.logger.Info("ledger event publisher started",
		"topic", p.cfg.Topic,
		"batch_size", p.cfg.BatchSize,
		"flush_interval", p.cfg.FlushInterval,
	)
	return nil
}

// Stop drains pending events and closes the kafka writer.
func (p *KafkaPublisher) Stop(ctx context.Context) error {
	p.input.close()
	if p.cancel != nil {
		p.cancel()
	}
	if p.flushTicker != nil {
		p.flushTicker.Stop()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("ledger event publisher stopped")
	case <-ctx.Done():
		p.logger.Warn("ledger event publisher stop timed out",
			"pending", p.input.len(),
		)
	}

	p.flush()
	return p.writer.Close()
}

// consumeLoop pulls events from the buffer into the current batch.
func (p *KafkaPublisher) consumeLoop() {
	defer p.wg.Done()

	for {
		event, ok := p.input.receive()
		if !ok {
			return
		}

		p.batchMu.Lock()
		p.batch = append(p.batch, event)
		full := len(p.batch) >= p.cfg.BatchSize
		p.batchMu.Unlock()

		if full {
			p.flush()
		}
	}
}

// flushLoop produces partial batches on a timer.
func (p *KafkaPublisher) flushLoop() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-p.flushTicker.C:
			p.flush()
		}
	}
}

// flush produces the current batch.
func (p *KafkaPublisher) flush() {
	p.batchMu.Lock()
	if len(p.batch) == 0 {
		p.batchMu.Unlock()
		return
	}
	batch := p.batch
	p.batch = make([]EntryCommitted, 0, p.cfg.BatchSize)
	p.batchMu.Unlock()

	msgs := make([]kafka.Message, 0, len(batch))
	for _, event := range batch {
		data, err := json.Marshal(event)
		if err != nil {
			p.logger.Error("marshal ledger event", "entry_id", event.EntryID, "err", err)
			continue
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(event.AccountID.String()),
			Value: data,
		})
	}
	if len(msgs) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		p.logger.Error("produce ledger events",
			"count", len(msgs),
			"err", err,
		)
		return
	}

	p.logger.Debug("produced ledger events", "count", len(msgs))
}

var _ Publisher = (*KafkaPublisher)(nil)
