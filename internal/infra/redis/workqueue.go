package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/trandat/shipper/internal/core/domain"
)

// WorkQueue is a Redis-backed work queue for fan-out items. Delivery is
// at-least-once: a consumer crash between pop and completion re-runs
// the item, so all consumers must tolerate duplicates.
type WorkQueue struct {
	rdb *redis.Client
	key string
}

// NewWorkQueue creates a work queue on the given list key.
func NewWorkQueue(client *Client, key string) *WorkQueue {
	if key == "" {
		key = "work_queue"
	}
	return &WorkQueue{rdb: client.rdb, key: key}
}

// Publish appends one work item to the queue.
func (q *WorkQueue) Publish(ctx context.Context, item domain.WorkItem) error {
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to marshal work item: %w", err)
	}
	if err := q.rdb.RPush(ctx, q.key, data).Err(); err != nil {
		return fmt.Errorf("rpush failed: %w", err)
	}
	return nil
}

// Pop blocks up to timeout for the next work item. It returns
// (nil, nil) when the wait timed out with an empty queue.
func (q *WorkQueue) Pop(ctx context.Context, timeout time.Duration) (*domain.WorkItem, error) {
	res, err := q.rdb.BLPop(ctx, timeout, q.key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("blpop failed: %w", err)
	}
	// BLPop returns [key, value]
	var item domain.WorkItem
	if err := json.Unmarshal([]byte(res[1]), &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal work item: %w", err)
	}
	return &item, nil
}

// Length returns the number of pending work items.
func (q *WorkQueue) Length(ctx context.Context) (int64, error) {
	n, err := q.rdb.LLen(ctx, q.key).Result()
	if err != nil {
		return 0, fmt.Errorf("llen failed: %w", err)
	}
	return n, nil
}
