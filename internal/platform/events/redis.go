package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisPublisher appends events to a Redis stream with XADD. Each entry
// carries the JSON payload under "data" and the publish time under
// "timestamp".
type RedisPublisher struct {
	client *redis.Client
	stream string
}

func NewRedisPublisher(client *redis.Client, stream string) *RedisPublisher {
	return &RedisPublisher{client: client, stream: stream}
}

func (p *RedisPublisher) PublishTransition(ctx context.Context, evt TransitionEvent) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal transition event: %w", err)
	}
	err = p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			"data":           string(payload),
			"patient_number": evt.PatientNumber,
			"new_status":     evt.NewStatus,
			"timestamp":      time.Now().Unix(),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("xadd %s: %w", p.stream, err)
	}
	return nil
}

// Close is a no-op; the client is shared with the status cache and closed by
// its owner.
func (p *RedisPublisher) Close() error { return nil }
