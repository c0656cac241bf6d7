package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/trandat/shipper/internal/core/domain"
	"github.com/trandat/shipper/internal/infra/storage"
)

// CheckpointRepo implements storage.CheckpointRepository using
// PostgreSQL. Rows are append-only; Latest picks the newest row per
// stream.
type CheckpointRepo struct {
	db *DB
}

// NewCheckpointRepo creates a new PostgreSQL checkpoint repository.
func NewCheckpointRepo(db *DB) *CheckpointRepo {
	return &CheckpointRepo{db: db}
}

type checkpointRow struct {
	Stream         string    `db:"stream"`
	Cursor         string    `db:"cursor"`
	LastID         string    `db:"last_id"`
	ProcessedCount int       `db:"processed_count"`
	CreatedAt      time.Time `db:"created_at"`
}

// Append inserts a new checkpoint row for the stream.
func (r *CheckpointRepo) Append(ctx context.Context, cp *domain.Checkpoint) error {
	createdAt := cp.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO checkpoints (stream, cursor, last_id, processed_count, created_at)
		VALUES (:stream, :cursor, :last_id, :processed_count, :created_at)`,
		checkpointRow{
			Stream:         cp.Stream,
			Cursor:         cp.Cursor,
			LastID:         cp.LastID,
			ProcessedCount: cp.ProcessedCount,
			CreatedAt:      createdAt,
		})
	if err != nil {
		return fmt.Errorf("failed to insert checkpoint: %w", err)
	}
	return nil
}

// Latest retrieves the most recent checkpoint for a stream.
func (r *CheckpointRepo) Latest(ctx context.Context, stream string) (*domain.Checkpoint, error) {
	var row checkpointRow
	err := r.db.GetContext(ctx, &row, `
		SELECT stream, cursor, last_id, processed_count, created_at
		FROM checkpoints
		WHERE stream = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1`, stream)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrCheckpointNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get checkpoint: %w", err)
	}

	return &domain.Checkpoint{
		Stream:         row.Stream,
		Cursor:         row.Cursor,
		LastID:         row.LastID,
		ProcessedCount: row.ProcessedCount,
		CreatedAt:      row.CreatedAt,
	}, nil
}
