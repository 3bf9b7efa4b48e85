// Package redis keeps code sequences as Redis counters.
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/vsinha/craftsman/pkg/domain/repositories"
)

const keyPrefix = "craftsman:seq:"

// SequenceRepository relies on INCR being atomic on the server
type SequenceRepository struct {
	client redis.Cmdable
}

var _ repositories.SequenceRepository = (*SequenceRepository)(nil)

// NewSequenceRepository wraps a connected client
func NewSequenceRepository(client redis.Cmdable) *SequenceRepository {
	return &SequenceRepository{client: client}
}

// Connect opens a client for addr and checks it answers
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// Key returns the counter key of prefix
func Key(prefix string) string {
	return keyPrefix + prefix
}

// NextValue increments and returns the counter for prefix
func (r *SequenceRepository) NextValue(ctx context.Context, prefix string) (int64, error) {
	value, err := r.client.Incr(ctx, Key(prefix)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment %s: %w", Key(prefix), err)
	}
	return value, nil
}
