package jobs

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// Handler processes one decoded analysis job. The consumer does not retry:
// handlers own the job row and must mark it failed on error so the outcome
// is visible to API callers.
type Handler interface {
	HandleAnalyzePDF(ctx context.Context, payload AnalyzePDFPayload) error
}

// ConsumerConfig holds configuration for the job consumer.
type ConsumerConfig struct {
	// Brokers is the list of Kafka broker addresses.
	Brokers []string
	// Topic is the topic carrying analysis jobs.
	Topic string
	// GroupID is the consumer group ID.
	GroupID string
}

// Consumer drains analysis jobs from Kafka and dispatches them to a handler.
type Consumer struct {
	reader  *kafka.Reader
	handler Handler
	logger  zerolog.Logger
}

// NewConsumer creates a job consumer bound to the configured consumer group.
func NewConsumer(cfg ConsumerConfig, handler Handler, logger zerolog.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  3 * time.Second,
	})

	return &Consumer{
		reader:  reader,
		handler: handler,
		logger:  logger.With().Str("component", "job_consumer").Logger(),
	}
}

// Run starts the consume loop. Blocks until the context is cancelled.
// Malformed messages and handler failures are logged and skipped; the loop
// only exits on context cancellation.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info().Msg("starting job consumer")

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info().Msg("job consumer stopped via context cancellation")
				return ctx.Err()
			}
			c.logger.Error().Err(err).Msg("failed to read message from Kafka")
			continue
		}

		c.logger.Debug().
			Int("partition", msg.Partition).
			Int64("offset", msg.Offset).
			Msg("received job message")

		var payload AnalyzePDFPayload
		if err := json.Unmarshal(msg.Value, &payload); err != nil {
			c.logger.Error().Err(err).
				Str("raw_value", string(msg.Value)).
				Msg("failed to unmarshal job payload")
			continue
		}

		if err := c.handler.HandleAnalyzePDF(ctx, payload); err != nil {
			c.logger.Error().Err(err).
				Str("job_id", payload.JobID.String()).
				Str("paper_id", payload.PaperID.String()).
				Msg("job handler failed")
		}
	}
}

// Close closes the Kafka reader.
func (c *Consumer) Close() error {
	c.logger.Info().Msg("closing job consumer")
	return c.reader.Close()
}
