package redis

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"
)

func TestKey(t *testing.T) {
	if Key("WO-2026") != "craftsman:seq:WO-2026" {
		t.Errorf("Unexpected key %s", Key("WO-2026"))
	}
}

func TestSequenceRepository_Concurrent(t *testing.T) {
	addr := os.Getenv("CRAFTSMAN_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("CRAFTSMAN_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	client, err := Connect(ctx, addr, "", 0)
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer client.Close()

	prefix := fmt.Sprintf("TEST-%d", time.Now().UnixNano())
	defer client.Del(ctx, Key(prefix))
	repo := NewSequenceRepository(client)

	const workers = 20
	var (
		mu   sync.Mutex
		seen = make(map[int64]bool)
		wg   sync.WaitGroup
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := repo.NextValue(ctx, prefix)
			if err != nil {
				t.Errorf("NextValue failed: %v", err)
				return
			}
			mu.Lock()
			seen[v] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(seen) != workers {
		t.Errorf("Expected %d distinct values, got %d", workers, len(seen))
	}
}
