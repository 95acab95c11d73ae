package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/quake-data-etl/internal/domain"
)

// Writer publishes enriched events to a Kafka topic keyed by event ID, so a
// compacted topic holds the latest assessment per event.
// It implements pipeline.EventStore.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the given topic.
func NewWriter(brokers []string, topic string, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// UpsertBatch publishes the events in a single WriteMessages call. A topic
// cannot tell new keys from old ones, so the created count is always zero.
func (w *Writer) UpsertBatch(ctx context.Context, events []domain.SeismicEvent) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}
	msgs := make([]kafkago.Message, len(events))
	for i := range events {
		msg, err := serializeToMessage(events[i])
		if err != nil {
			return 0, err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return 0, fmt.Errorf("publish events: %w", err)
	}
	w.logger.Debug("events published", "topic", w.writer.Topic, "count", len(msgs))
	return 0, nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a SeismicEvent into a Kafka message.
func serializeToMessage(event domain.SeismicEvent) (kafkago.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize seismic event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(event.ID),
		Value: data,
		Time:  event.Origin,
		Headers: []kafkago.Header{
			{Key: "is_fatal_risk", Value: []byte(strconv.FormatBool(event.IsFatalRisk))},
			{Key: "ttl_epoch_seconds", Value: []byte(strconv.FormatInt(event.TTLEpochSeconds, 10))},
			{Key: "processed_at", Value: []byte(event.ProcessedAt.Format(time.RFC3339))},
		},
	}, nil
}
