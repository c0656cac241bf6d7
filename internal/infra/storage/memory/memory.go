package memory

import (
	"context"
	"sync"

	"github.com/trandat/shipper/internal/core/domain"
	"github.com/trandat/shipper/internal/infra/storage"
)

// CheckpointRepo is an in-memory storage.CheckpointRepository, used in
// tests and when no database is configured.
type CheckpointRepo struct {
	mu          sync.RWMutex
	checkpoints map[string][]*domain.Checkpoint
}

func NewCheckpointRepo() *CheckpointRepo {
	return &CheckpointRepo{checkpoints: make(map[string][]*domain.Checkpoint)}
}

func (r *CheckpointRepo) Append(ctx context.Context, cp *domain.Checkpoint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *cp
	r.checkpoints[cp.Stream] = append(r.checkpoints[cp.Stream], &c)
	return nil
}

func (r *CheckpointRepo) Latest(ctx context.Context, stream string) (*domain.Checkpoint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cps := r.checkpoints[stream]
	if len(cps) == 0 {
		return nil, storage.ErrCheckpointNotFound
	}
	c := *cps[len(cps)-1]
	return &c, nil
}

// All returns every checkpoint appended for a stream, oldest first.
func (r *CheckpointRepo) All(stream string) []*domain.Checkpoint {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*domain.Checkpoint(nil), r.checkpoints[stream]...)
}
