package memory

import (
	"context"
	"sync"
	"testing"
)

func TestSequenceRepository_StrictlyIncreasing(t *testing.T) {
	repo := NewSequenceRepository()
	ctx := context.Background()

	var last int64
	for i := 0; i < 10; i++ {
		v, err := repo.NextValue(ctx, "WO-2026")
		if err != nil {
			t.Fatalf("NextValue failed: %v", err)
		}
		if v <= last {
			t.Fatalf("Expected value greater than %d, got %d", last, v)
		}
		last = v
	}

	if v, _ := repo.NextValue(ctx, "WO-2027"); v != 1 {
		t.Errorf("Expected independent prefix to start at 1, got %d", v)
	}
}

func TestSequenceRepository_Concurrent(t *testing.T) {
	repo := NewSequenceRepository()
	ctx := context.Background()

	const workers = 50
	values := make(chan int64, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := repo.NextValue(ctx, "WO-2026")
			if err != nil {
				t.Errorf("NextValue failed: %v", err)
				return
			}
			values <- v
		}()
	}
	wg.Wait()
	close(values)

	seen := make(map[int64]bool)
	for v := range values {
		if seen[v] {
			t.Errorf("Duplicate value %d", v)
		}
		seen[v] = true
	}
	if len(seen) != workers {
		t.Errorf("Expected %d distinct values, got %d", workers, len(seen))
	}
}
