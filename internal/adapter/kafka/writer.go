// Package kafka publishes enriched daily rows to a Kafka topic so
// downstream dashboards can consume analysis output as a stream.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/order-weather-insights/internal/domain"
)

// Writer produces enriched rows to a Kafka topic.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the given brokers and topic.
func NewWriter(brokers []string, topic string, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// PublishRows serializes and publishes the rows of one analysis run in a
// single WriteMessages call. The generatedAt stamp ties every message back
// to its run.
func (w *Writer) PublishRows(ctx context.Context, rows []domain.EnrichedRecord, generatedAt time.Time) error {
	if len(rows) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(rows))
	for i := range rows {
		msg, err := serializeToMessage(rows[i], generatedAt)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish enriched rows: %w", err)
	}
	w.logger.Debug("published enriched rows", "count", len(rows))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals an enriched row into a Kafka message keyed by
// its date, so replays of the same day land in the same partition.
func serializeToMessage(row domain.EnrichedRecord, generatedAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(row)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize enriched row: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(row.DateISO),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "day_of_week", Value: []byte(time.Weekday(row.DayOfWeek).String())},
			{Key: "generated_at", Value: []byte(generatedAt.Format(time.RFC3339))},
		},
	}, nil
}
