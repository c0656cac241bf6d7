package storage

import (
	"context"
	"errors"

	"github.com/trandat/shipper/internal/core/domain"
)

var (
	// ErrCheckpointNotFound is returned when a stream has no checkpoint yet
	ErrCheckpointNotFound = errors.New("checkpoint not found")
)

// CheckpointRepository persists pagination checkpoints. Checkpoints are
// append-only: a new row supersedes the previous one, nothing is
// overwritten.
type CheckpointRepository interface {
	// Append stores a new checkpoint for its stream.
	Append(ctx context.Context, cp *domain.Checkpoint) error

	// Latest returns the most recent checkpoint for a stream, or
	// ErrCheckpointNotFound.
	Latest(ctx context.Context, stream string) (*domain.Checkpoint, error)
}
