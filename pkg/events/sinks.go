package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// Topic is the logical stream decision events are published to.
const Topic = "payment.decided"

// AuditLogSink writes events to the structured log, standing in for a real
// broker in single-instance deployments.
type AuditLogSink struct {
	log *slog.Logger
}

// NewAuditLogSink creates a sink over the given logger.
func NewAuditLogSink(log *slog.Logger) *AuditLogSink {
	if log == nil {
		log = slog.Default()
	}
	return &AuditLogSink{log: log}
}

func (s *AuditLogSink) Publish(ctx context.Context, event DecisionEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", event.EventID, err)
	}
	s.log.Info("event published",
		"topic", Topic,
		"event_id", event.EventID,
		"event", string(payload))
	return nil
}

// RedisStreamSink appends events to a Redis Stream so external consumers
// can tail decisions.
type RedisStreamSink struct {
	client *redis.Client
	stream string
}

// NewRedisStreamSink creates a sink appending to the decision stream.
func NewRedisStreamSink(client *redis.Client) *RedisStreamSink {
	return &RedisStreamSink{client: client, stream: Topic}
}

func (s *RedisStreamSink) Publish(ctx context.Context, event DecisionEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", event.EventID, err)
	}
	err = s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]any{"event": payload},
	}).Err()
	if err != nil {
		return fmt.Errorf("xadd event %s: %w", event.EventID, err)
	}
	return nil
}
