// Package kafka republishes ingested bulletins to a Kafka sink topic for
// downstream storage and analytics services.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/wxwire-feed-service/internal/config"
	"github.com/couchcryptid/wxwire-feed-service/internal/domain"
	"github.com/couchcryptid/wxwire-feed-service/internal/observability"
)

// Relay is a push subscriber that forwards every bulletin to Kafka.
type Relay struct {
	writer  *kafkago.Writer
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewRelay creates a Kafka producer for the configured sink topic. The
// writer runs in async mode so a slow broker never stalls the fan-out loop;
// failures surface through the completion callback.
func NewRelay(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *Relay {
	r := &Relay{logger: logger, metrics: metrics}
	r.writer = &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
		Async:        true,
		Completion:   r.onCompletion,
	}
	return r
}

// Handle implements dispatch.Handler: serialize and hand the bulletin to the
// async writer.
func (r *Relay) Handle(b domain.Bulletin) {
	msg, err := serializeToMessage(b)
	if err != nil {
		r.metrics.RelayErrors.Inc()
		r.logger.Error("relay serialization failed", "id", b.ID, "error", err)
		return
	}
	// Async mode: WriteMessages only enqueues, so the background context
	// cannot stall the fan-out loop.
	if err := r.writer.WriteMessages(context.Background(), msg); err != nil {
		r.metrics.RelayErrors.Inc()
		r.logger.Error("relay enqueue failed", "id", b.ID, "error", err)
	}
}

func (r *Relay) onCompletion(messages []kafkago.Message, err error) {
	if err != nil {
		r.metrics.RelayErrors.Inc()
		r.logger.Error("relay publish failed", "count", len(messages), "error", err)
		return
	}
	r.metrics.RelayPublished.Add(float64(len(messages)))
}

// Close flushes pending messages and releases the writer.
func (r *Relay) Close() error {
	return r.writer.Close()
}

// serializeToMessage marshals a Bulletin into a Kafka message keyed by
// product id, with the WMO identification fields as headers.
func serializeToMessage(b domain.Bulletin) (kafkago.Message, error) {
	data, err := json.Marshal(b)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize bulletin: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(b.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "ttaaii", Value: []byte(b.TTAAII)},
			{Key: "cccc", Value: []byte(b.CCCC)},
			{Key: "awipsid", Value: []byte(b.AwipsID)},
			{Key: "issue", Value: []byte(b.IssueTime.Format(time.RFC3339))},
		},
	}, nil
}
