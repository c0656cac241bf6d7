// Package deadletter persists records that exhausted the primary
// delivery path. Writes are best effort: a failed dead-letter publish
// is logged and reported, never escalated, because there is no further
// fallback behind it.
package deadletter

import (
	"context"
	"log/slog"
	"time"

	"github.com/trandat/shipper/internal/core/domain"
	"github.com/trandat/shipper/internal/metrics"
)

// DefaultChunkSize bounds records per message, governed by the
// transport's message-size limits.
const DefaultChunkSize = 10

// Publisher publishes one dead-letter message to the durable queue.
type Publisher interface {
	Publish(ctx context.Context, msg domain.DeadLetterMessage) error
}

// Sink chunks failed records and publishes each chunk independently.
type Sink struct {
	pub        Publisher
	customerID string
	chunkSize  int

	now func() time.Time
}

// NewSink creates a sink over the given publisher. A nil publisher
// means no dead-letter target is configured; Write then becomes a no-op
// that reports failure, and callers keep the failed batch themselves.
func NewSink(pub Publisher, customerID string, chunkSize int) *Sink {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Sink{
		pub:        pub,
		customerID: customerID,
		chunkSize:  chunkSize,
		now:        time.Now,
	}
}

// Write partitions records into chunks and publishes each as an
// independent message, preserving original order within and across
// chunks. It returns true only if every publish succeeded.
func (s *Sink) Write(ctx context.Context, records []domain.Record) bool {
	if len(records) == 0 {
		return true
	}
	if s.pub == nil {
		slog.Warn("No dead-letter queue configured, dropping durable copy", "records", len(records))
		return false
	}

	now := s.now()
	ok := true
	published := 0
	for i := 0; i < len(records); i += s.chunkSize {
		end := i + s.chunkSize
		if end > len(records) {
			end = len(records)
		}
		msg := domain.DeadLetterMessage{
			Records:         records[i:end],
			Timestamp:       float64(now.UnixNano()) / float64(time.Second),
			CustomerID:      s.customerID,
			FailedTimestamp: now.Format(time.RFC3339Nano),
		}
		if err := s.pub.Publish(ctx, msg); err != nil {
			slog.Error("Failed to publish dead-letter chunk", "error", err, "records", end-i)
			metrics.DeadLetterMessagesTotal.WithLabelValues("error").Inc()
			ok = false
			continue
		}
		metrics.DeadLetterMessagesTotal.WithLabelValues("ok").Inc()
		published++
	}

	slog.Info("Wrote failed records to dead-letter queue",
		"records", len(records),
		"chunks", published,
	)
	return ok
}
