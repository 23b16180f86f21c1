package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/storm-exposure/internal/config"
	"github.com/couchcryptid/storm-exposure/internal/exposure"
	"github.com/couchcryptid/storm-exposure/internal/observability"
	kafkago "github.com/segmentio/kafka-go"
)

// Publisher produces exposure rows to a Kafka topic so downstream services
// can index freshly computed exposure histories.
type Publisher struct {
	writer  *kafkago.Writer
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewPublisher creates a Kafka producer for the configured sink topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, logger: logger, metrics: metrics}
}

// PublishTable serializes and publishes every row of an exposure table in a
// single WriteMessages call. Rows are keyed by location so one location's
// exposure history lands on one partition, in order.
func (p *Publisher) PublishTable(ctx context.Context, table *exposure.Table) error {
	if table.Empty() {
		return nil
	}
	msgs := make([]kafkago.Message, len(table.Rows))
	for i := range table.Rows {
		msg, err := serializeRow(table, table.Rows[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		p.metrics.PublishErrors.Inc()
		return fmt.Errorf("publish exposure rows: %w", err)
	}
	p.metrics.RowsPublished.Add(float64(len(msgs)))
	p.logger.Info("exposure rows published", "topic", p.writer.Topic, "rows", len(msgs))
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeRow marshals an exposure row into a Kafka message.
func serializeRow(table *exposure.Table, row exposure.Row) (kafkago.Message, error) {
	data, err := json.Marshal(row)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize exposure row: %w", err)
	}
	scope := "county"
	if table.Community {
		scope = "community"
	}
	return kafkago.Message{
		Key:   []byte(row.Loc),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "metric", Value: []byte(table.Metric.String())},
			{Key: "scope", Value: []byte(scope)},
			{Key: "generated_at", Value: []byte(table.GeneratedAt.Format(time.RFC3339))},
		},
	}, nil
}
