package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/quake-map-service/internal/domain"
)

// Writer publishes applied record sets to a Kafka topic, one message per quake.
// It implements pipeline.Publisher.
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

// Publish serializes every quake in the set and writes them in a single
// WriteMessages call. Messages are keyed by event ID so updates to the same
// event land on the same partition.
func (w *Writer) Publish(ctx context.Context, set domain.RecordSet) error {
	if len(set.Quakes) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(set.Quakes))
	for i := range set.Quakes {
		msg, err := serializeToMessage(set.Quakes[i], set.Generation, set.FetchedAt)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish record set %d: %w", set.Generation, err)
	}
	w.logger.Debug("record set published", "generation", set.Generation, "messages", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a Quake into a Kafka message.
func serializeToMessage(q domain.Quake, generation uint64, fetchedAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(q)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize earthquake: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(q.ID),
		Value: data,
		Time:  q.OccurredAt,
		Headers: []kafkago.Header{
			{Key: "alert", Value: []byte(q.Alert)},
			{Key: "generation", Value: []byte(strconv.FormatUint(generation, 10))},
			{Key: "fetched_at", Value: []byte(fetchedAt.Format(time.RFC3339))},
		},
	}, nil
}
