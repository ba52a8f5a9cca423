package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Shopify/sarama"
	"github.com/rs/zerolog"

	"github.com/j-veylop/energy-kpi/internal/metrics"
	"github.com/j-veylop/energy-kpi/internal/models"
)

// Config configures a Consumer.
type Config struct {
	Brokers      []string
	Topic        string
	GroupID      string
	BatchSize    int
	BatchTimeout time.Duration
}

// Consumer reads readings from a Kafka consumer group and hands them to a Sink in batches.
// A batch is flushed when it reaches BatchSize or BatchTimeout has passed.
type Consumer struct {
	group   sarama.ConsumerGroup
	sink    Sink
	metrics *metrics.Metrics
	log     zerolog.Logger
	buffer  []models.NewDatapoint
	config  Config
	bufMu   sync.Mutex
	flushMu sync.Mutex
}

// NewConsumer connects a consumer group to the configured brokers.
func NewConsumer(cfg Config, sink Sink, m *metrics.Metrics, log zerolog.Logger) (*Consumer, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Consumer.Return.Errors = true
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetOldest
	saramaConfig.Consumer.Group.Rebalance.Strategy = sarama.BalanceStrategyRoundRobin
	saramaConfig.Consumer.MaxWaitTime = 250 * time.Millisecond

	group, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}
	return newConsumer(group, cfg, sink, m, log), nil
}

func newConsumer(group sarama.ConsumerGroup, cfg Config, sink Sink, m *metrics.Metrics, log zerolog.Logger) *Consumer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = 2 * time.Second
	}
	return &Consumer{
		group:   group,
		sink:    sink,
		metrics: m,
		log:     log.With().Str("component", "ingest").Str("topic", cfg.Topic).Logger(),
		buffer:  make([]models.NewDatapoint, 0, cfg.BatchSize),
		config:  cfg,
	}
}

// Run consumes until ctx is cancelled. The remaining buffer is flushed before returning.
func (c *Consumer) Run(ctx context.Context) error {
	go func() {
		for err := range c.group.Errors() {
			c.log.Error().Err(err).Msg("consumer group error")
		}
	}()

	flushTicker := time.NewTicker(c.config.BatchTimeout)
	defer flushTicker.Stop()

	go func() {
		for {
			select {
			case <-flushTicker.C:
				c.flush(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()

	handler := &consumerGroupHandler{consumer: c}
	defer c.flush(ctx)

	for {
		if err := c.group.Consume(ctx, []string{c.config.Topic}, handler); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) || errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("failed to consume %s: %w", c.config.Topic, err)
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

// Close leaves the consumer group.
func (c *Consumer) Close() error {
	return c.group.Close()
}

// add buffers a reading and flushes when the buffer is full.
func (c *Consumer) add(ctx context.Context, dp models.NewDatapoint) {
	c.bufMu.Lock()
	c.buffer = append(c.buffer, dp)
	full := len(c.buffer) >= c.config.BatchSize
	c.bufMu.Unlock()

	if full {
		c.flush(ctx)
	}
}

// flush hands the buffered readings to the sink. Flushes never run concurrently,
// so batches reach the sink in arrival order. The write ignores cancellation of
// ctx because the readings are already marked as consumed.
func (c *Consumer) flush(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)

	c.flushMu.Lock()
	defer c.flushMu.Unlock()

	c.bufMu.Lock()
	if len(c.buffer) == 0 {
		c.bufMu.Unlock()
		return
	}
	batch := make([]models.NewDatapoint, len(c.buffer))
	copy(batch, c.buffer)
	c.buffer = c.buffer[:0]
	c.bufMu.Unlock()

	if err := c.sink.Write(ctx, batch); err != nil {
		c.log.Error().Err(err).Int("readings", len(batch)).Msg("failed to write batch")
		c.metrics.ObserveIngest("error", len(batch))
		return
	}
	c.metrics.ObserveIngest("ok", len(batch))
	c.log.Debug().Int("readings", len(batch)).Msg("batch written")
}

// pending returns the number of buffered readings.
func (c *Consumer) pending() int {
	c.bufMu.Lock()
	defer c.bufMu.Unlock()
	return len(c.buffer)
}

// consumerGroupHandler implements sarama.ConsumerGroupHandler
type consumerGroupHandler struct {
	consumer *Consumer
}

func (h *consumerGroupHandler) Setup(_ sarama.ConsumerGroupSession) error   { return nil }
func (h *consumerGroupHandler) Cleanup(_ sarama.ConsumerGroupSession) error { return nil }

func (h *consumerGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	ctx := session.Context()
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok {
				return nil
			}

			dp, err := Decode(message.Value)
			if err != nil {
				h.consumer.log.Warn().Err(err).
					Int32("partition", message.Partition).
					Int64("offset", message.Offset).
					Msg("skipping malformed reading")
				h.consumer.metrics.ObserveIngest("malformed", 1)
				session.MarkMessage(message, "")
				continue
			}

			h.consumer.add(ctx, dp)
			session.MarkMessage(message, "")

		case <-ctx.Done():
			return nil
		}
	}
}
