// Package fanout splits oversized workloads into bounded work items and
// publishes them to the work queue, where independent consumers re-enter
// the delivery pipeline per item.
package fanout

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.uber.org/multierr"

	"github.com/trandat/shipper/internal/core/domain"
	"github.com/trandat/shipper/internal/metrics"
)

// Defaults for the fan-out decision and slicing.
const (
	DefaultThreshold = 5000
	DefaultBatchSize = 1000
)

// QueuePublisher publishes one work item to the work queue.
type QueuePublisher interface {
	Publish(ctx context.Context, item domain.WorkItem) error
}

// Controller decides when a workload is too large for inline delivery
// and redistributes it as independent queue messages.
type Controller struct {
	pub       QueuePublisher
	threshold int
	batchSize int
}

// NewController creates a fan-out controller. Zero threshold/batchSize
// fall back to the defaults (5000 / 1000).
func NewController(pub QueuePublisher, threshold, batchSize int) *Controller {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Controller{pub: pub, threshold: threshold, batchSize: batchSize}
}

// ShouldFanOut reports whether a workload of the given size should be
// redistributed instead of delivered inline.
func (c *Controller) ShouldFanOut(recordCount int) bool {
	return c.pub != nil && recordCount > c.threshold
}

// BatchCount returns how many work items FanOut would publish for n
// records.
func (c *Controller) BatchCount(n int) int {
	if n <= 0 {
		return 0
	}
	return (n + c.batchSize - 1) / c.batchSize
}

// FanOut partitions records into contiguous fixed-size slices, keeping
// original order within each slice, and publishes each as a WorkItem
// tagged with its batch number and the total count. Publishing is
// at-least-once: a partial failure is reported but already-published
// slices are not retracted.
func (c *Controller) FanOut(ctx context.Context, typ string, records []domain.Record) error {
	if c.pub == nil {
		return fmt.Errorf("no work queue configured")
	}
	if len(records) == 0 {
		return nil
	}

	total := c.BatchCount(len(records))
	var errs error
	for i := 0; i < total; i++ {
		start := i * c.batchSize
		end := start + c.batchSize
		if end > len(records) {
			end = len(records)
		}
		item := domain.WorkItem{
			Type:         typ,
			Records:      records[start:end],
			Timestamp:    time.Now().Format(time.RFC3339Nano),
			BatchNumber:  i + 1,
			TotalBatches: total,
		}
		if err := c.pub.Publish(ctx, item); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("publish batch %d/%d: %w", i+1, total, err))
			continue
		}
		metrics.FanOutBatchesTotal.WithLabelValues(typ).Inc()
	}

	if errs != nil {
		slog.Error("Fan-out completed with publish failures", "type", typ, "error", errs)
		return errs
	}
	slog.Info("Distributed records across work items",
		"type", typ,
		"records", len(records),
		"batches", total,
	)
	return nil
}
