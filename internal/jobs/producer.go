// Package jobs wires the Kafka-backed background job pipeline. The API
// process enqueues work with a Producer; worker processes drain the topic
// with a Consumer and dispatch each message to a handler. Job lifecycle
// state lives in Postgres so callers can poll status over the API even
// when the broker is opaque to them.
package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/helixir/paper-enrichment-service/internal/domain"
	"github.com/helixir/paper-enrichment-service/internal/repository"
)

// AnalyzePDFPayload is the message body for a full-text analysis job.
type AnalyzePDFPayload struct {
	JobID       uuid.UUID `json:"job_id"`
	PaperID     uuid.UUID `json:"paper_id"`
	StoragePath string    `json:"storage_path"`
}

// ProducerConfig holds configuration for the job producer.
type ProducerConfig struct {
	// Brokers is the list of Kafka broker addresses.
	Brokers []string
	// Topic is the topic carrying analysis jobs.
	Topic string
	// BatchTimeout is the maximum time a message waits for a batch to fill.
	BatchTimeout time.Duration
}

// Producer records jobs in Postgres and publishes them to Kafka. The row is
// written before the message so a consumer never sees a job it cannot load.
type Producer struct {
	writer  *kafka.Writer
	jobRepo repository.JobRepository
	logger  zerolog.Logger
}

// NewProducer creates a job producer publishing to the configured topic.
func NewProducer(cfg ProducerConfig, jobRepo repository.JobRepository, logger zerolog.Logger) *Producer {
	batchTimeout := cfg.BatchTimeout
	if batchTimeout <= 0 {
		batchTimeout = 10 * time.Millisecond
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: batchTimeout,
		RequiredAcks: kafka.RequireOne,
	}

	return &Producer{
		writer:  writer,
		jobRepo: jobRepo,
		logger:  logger.With().Str("component", "job_producer").Logger(),
	}
}

// EnqueueAnalyzePDF creates a queued job row and publishes the analysis
// request. Returns the created job so callers can hand its ID back for
// status polling.
func (p *Producer) EnqueueAnalyzePDF(ctx context.Context, paperID uuid.UUID, storagePath string) (*domain.Job, error) {
	jobID := uuid.New()
	payload := AnalyzePDFPayload{
		JobID:       jobID,
		PaperID:     paperID,
		StoragePath: storagePath,
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal job payload: %w", err)
	}

	job, err := p.jobRepo.Create(ctx, &domain.Job{
		ID:      jobID,
		Kind:    domain.JobKindAnalyzePDF,
		Payload: raw,
	})
	if err != nil {
		return nil, fmt.Errorf("create job record: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(paperID.String()),
		Value: raw,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		// The row stays queued; a stuck queued job is visible to operators,
		// a message without a row is not.
		p.logger.Error().Err(err).
			Str("job_id", jobID.String()).
			Str("paper_id", paperID.String()).
			Msg("failed to publish job message")
		return nil, domain.NewExternalAPIError("kafka", 0, "failed to publish job", err)
	}

	p.logger.Info().
		Str("job_id", jobID.String()).
		Str("paper_id", paperID.String()).
		Str("storage_path", storagePath).
		Msg("enqueued pdf analysis job")

	return job, nil
}

// Close flushes and closes the Kafka writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}
