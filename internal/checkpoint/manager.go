// Package checkpoint tracks pagination progress for resumable upstream
// fetches. Saving is best effort: losing a checkpoint only costs a
// potential re-fetch, never correctness, because downstream validation
// is idempotent on natural keys.
package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/trandat/shipper/internal/core/domain"
	"github.com/trandat/shipper/internal/infra/storage"
	"github.com/trandat/shipper/internal/metrics"
)

// Manager saves and resumes checkpoints keyed by logical stream name
// (one stream per data type).
type Manager struct {
	repo storage.CheckpointRepository
}

// NewManager creates a checkpoint manager over a durable repository.
func NewManager(repo storage.CheckpointRepository) *Manager {
	return &Manager{repo: repo}
}

// Save appends a checkpoint for the stream. Failure to persist is
// logged as a warning and swallowed; the caller's fetch must not abort
// over a lost checkpoint.
func (m *Manager) Save(ctx context.Context, stream, cursor, lastID string, processed int) {
	if m == nil || m.repo == nil {
		return
	}
	cp := &domain.Checkpoint{
		Stream:         stream,
		Cursor:         cursor,
		LastID:         lastID,
		ProcessedCount: processed,
		CreatedAt:      time.Now(),
	}
	if err := m.repo.Append(ctx, cp); err != nil {
		slog.Warn("Failed to save checkpoint", "stream", stream, "error", err)
		metrics.CheckpointWritesTotal.WithLabelValues(stream, "error").Inc()
		return
	}
	metrics.CheckpointWritesTotal.WithLabelValues(stream, "ok").Inc()
	slog.Debug("Saved checkpoint", "stream", stream, "last_id", lastID, "processed", processed)
}

// Resume returns the latest checkpoint for the stream, or nil when the
// stream has never checkpointed.
func (m *Manager) Resume(ctx context.Context, stream string) (*domain.Checkpoint, error) {
	if m == nil || m.repo == nil {
		return nil, nil
	}
	cp, err := m.repo.Latest(ctx, stream)
	if errors.Is(err, storage.ErrCheckpointNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load checkpoint for %s: %w", stream, err)
	}
	return cp, nil
}
