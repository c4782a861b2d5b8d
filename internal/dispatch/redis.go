package dispatch

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/njbennett/changepoll/internal/config"
)

// redisSink appends events to a Redis Stream. Consumers read with consumer
// groups at their own pace; the stream gives at-least-once delivery a
// durable handoff point.
type redisSink struct {
	client *redis.Client
	stream string
}

// NewRedisSink creates the Redis Stream sink.
func NewRedisSink(cfg config.RedisSinkConfig) Sink {
	return &redisSink{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		stream: cfg.Stream,
	}
}

func (s *redisSink) Name() string { return "redis" }

func (s *redisSink) Emit(ctx context.Context, eventName string, payload map[string]string) error {
	fields, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	err = s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]any{
			"event":   eventName,
			"payload": string(fields),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("xadd to %s: %w", s.stream, err)
	}
	return nil
}
