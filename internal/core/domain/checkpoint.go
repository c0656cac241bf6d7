package domain

import "time"

// Checkpoint records pagination progress for one logical stream of a
// paginated upstream source. A new checkpoint is appended after every
// page; older checkpoints are superseded, never overwritten, so a
// resumed run reads the latest one for its stream.
type Checkpoint struct {
	Stream         string    `json:"stream"`
	Cursor         string    `json:"cursor"`
	LastID         string    `json:"last_id"`
	ProcessedCount int       `json:"processed_count"`
	CreatedAt      time.Time `json:"created_at"`
}
