package sqlite

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
)

func newRepo(t *testing.T, path string) *SequenceRepository {
	t.Helper()
	repo, err := NewSequenceRepository(path)
	if err != nil {
		t.Fatalf("NewSequenceRepository failed: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestSequenceRepository_StrictlyIncreasing(t *testing.T) {
	repo := newRepo(t, filepath.Join(t.TempDir(), "seq.db"))
	ctx := context.Background()

	for want := int64(1); want <= 10; want++ {
		got, err := repo.NextValue(ctx, "WO-2026")
		if err != nil {
			t.Fatalf("NextValue failed: %v", err)
		}
		if got != want {
			t.Errorf("Expected %d, got %d", want, got)
		}
	}
}

func TestSequenceRepository_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "seq.db")
	ctx := context.Background()

	first, err := NewSequenceRepository(path)
	if err != nil {
		t.Fatalf("NewSequenceRepository failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := first.NextValue(ctx, "WO-2026"); err != nil {
			t.Fatalf("NextValue failed: %v", err)
		}
	}
	_ = first.Close()

	second := newRepo(t, path)
	got, err := second.NextValue(ctx, "WO-2026")
	if err != nil {
		t.Fatalf("NextValue failed: %v", err)
	}
	if got != 4 {
		t.Errorf("Expected 4 after reopen, got %d", got)
	}
}

func TestSequenceRepository_Concurrent(t *testing.T) {
	repo := newRepo(t, filepath.Join(t.TempDir(), "seq.db"))
	ctx := context.Background()

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
			v, err := repo.NextValue(ctx, "WO-2026")
			if err != nil {
				t.Errorf("NextValue failed: %v", err)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if seen[v] {
				t.Errorf("Duplicate value %d", v)
			}
			seen[v] = true
		}()
	}
	wg.Wait()

	for v := int64(1); v <= workers; v++ {
		if !seen[v] {
			t.Errorf("Expected value %d to be handed out", v)
		}
	}
}
