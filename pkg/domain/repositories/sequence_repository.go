package repositories

import "context"

// SequenceRepository hands out per-prefix counter values. Concurrent
// callers on the same prefix never receive the same value.
type SequenceRepository interface {
	NextValue(ctx context.Context, prefix string) (int64, error)
}
