package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"stayd/internal/pkg/config"

	"github.com/segmentio/kafka-go"
)

// KafkaSink publishes audit events to a kafka topic, keyed by booking ID so
// one booking's history stays ordered within a partition.
type KafkaSink struct {
	writer *kafka.Writer
}

func NewKafkaSink(cfg config.AuditConfig) *KafkaSink {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		MaxAttempts:  3,
		WriteTimeout: 10 * time.Second,
	}
	return &KafkaSink{writer: writer}
}

func (s *KafkaSink) Publish(ctx context.Context, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		slog.Error("failed to marshal audit event", "kind", event.Kind, "error", err)
		return
	}

	msg := kafka.Message{
		Key:   []byte(event.BookingID.String()),
		Value: payload,
		Time:  event.OccurredAt,
	}

	// Fire-and-forget off the request path; the engine's result does not
	// depend on audit delivery.
	go func() {
		writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
		defer cancel()
		if err := s.writer.WriteMessages(writeCtx, msg); err != nil {
			slog.Error("failed to publish audit event", "kind", event.Kind, "error", err)
		}
	}()
}

func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
