package memory

import (
	"context"
	"sync"

	"github.com/vsinha/craftsman/pkg/domain/repositories"
)

// SequenceRepository is a mutex-guarded per-prefix counter
type SequenceRepository struct {
	mu     sync.Mutex
	values map[string]int64
}

// NewSequenceRepository creates an empty counter set
func NewSequenceRepository() *SequenceRepository {
	return &SequenceRepository{values: make(map[string]int64)}
}

var _ repositories.SequenceRepository = (*SequenceRepository)(nil)

// NextValue increments and returns the counter for prefix
func (r *SequenceRepository) NextValue(ctx context.Context, prefix string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[prefix]++
	return r.values[prefix], nil
}
