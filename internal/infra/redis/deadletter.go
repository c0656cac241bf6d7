package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/trandat/shipper/internal/core/domain"
)

// DeadLetterQueue is a Redis-backed queue holding undeliverable record
// chunks for later inspection and replay.
type DeadLetterQueue struct {
	rdb *redis.Client
	key string
}

// NewDeadLetterQueue creates a dead-letter queue on the given list key.
func NewDeadLetterQueue(client *Client, key string) *DeadLetterQueue {
	if key == "" {
		key = "dead_letter_queue"
	}
	return &DeadLetterQueue{rdb: client.rdb, key: key}
}

// Publish appends one dead-letter message.
func (q *DeadLetterQueue) Publish(ctx context.Context, msg domain.DeadLetterMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal dead-letter message: %w", err)
	}
	if err := q.rdb.RPush(ctx, q.key, data).Err(); err != nil {
		return fmt.Errorf("rpush failed: %w", err)
	}
	return nil
}

// Pop removes and returns the oldest dead-letter message, or
// (nil, nil) when the queue is empty.
func (q *DeadLetterQueue) Pop(ctx context.Context) (*domain.DeadLetterMessage, error) {
	res, err := q.rdb.LPop(ctx, q.key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lpop failed: %w", err)
	}
	var msg domain.DeadLetterMessage
	if err := json.Unmarshal([]byte(res), &msg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal dead-letter message: %w", err)
	}
	return &msg, nil
}

// Length returns the number of pending dead-letter messages.
func (q *DeadLetterQueue) Length(ctx context.Context) (int64, error) {
	n, err := q.rdb.LLen(ctx, q.key).Result()
	if err != nil {
		return 0, fmt.Errorf("llen failed: %w", err)
	}
	return n, nil
}
