package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/event-risk-client/internal/config"
	"github.com/couchcryptid/event-risk-client/internal/domain"
)

// Writer publishes submission outcomes to a Kafka topic.
// It implements submission.Recorder.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured outcome topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaOutcomeTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
		WriteTimeout: cfg.KafkaWriteTimeout,
		MaxAttempts:  3,
	}
	return &Writer{writer: w, logger: logger}
}

// Record publishes one outcome. Failures are logged; the stream is
// best-effort and never affects the submission state.
func (w *Writer) Record(ctx context.Context, outcome domain.SubmissionOutcome) {
	if err := w.Publish(ctx, outcome); err != nil {
		w.logger.Warn("publish submission outcome",
			"session_id", outcome.SessionID,
			"outcome", outcome.Outcome,
			"error", err,
		)
	}
}

// Publish serializes and writes outcomes in a single WriteMessages call.
func (w *Writer) Publish(ctx context.Context, outcomes ...domain.SubmissionOutcome) error {
	if len(outcomes) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(outcomes))
	for i := range outcomes {
		msg, err := serializeToMessage(outcomes[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	return w.writer.WriteMessages(ctx, msgs...)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals an outcome keyed by session so one session's
// outcomes stay on one partition.
func serializeToMessage(outcome domain.SubmissionOutcome) (kafkago.Message, error) {
	data, err := json.Marshal(outcome)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize submission outcome: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(outcome.SessionID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "outcome", Value: []byte(outcome.Outcome)},
			{Key: "completed_at", Value: []byte(outcome.CompletedAt.Format(time.RFC3339))},
		},
	}, nil
}
