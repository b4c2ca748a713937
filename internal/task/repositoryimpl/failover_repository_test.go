package repositoryimpl

import (
	"context"
	"sync"
	"testing"

	"github.com/mkhoudour/taskbridge/internal/task"
	"github.com/mkhoudour/taskbridge/pkg/cerr"
)

// flakyRepo counts calls and fails with Unavailable while down.
type flakyRepo struct {
	mu    sync.Mutex
	inner *MemoryRepository
	down  bool
	calls int
}

func newFlakyRepo() *flakyRepo {
	return &flakyRepo{inner: NewMemoryRepository()}
}

func (f *flakyRepo) fail() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.down {
		return cerr.NewError(cerr.Unavailable, "store unavailable", nil)
	}
	return nil
}

func (f *flakyRepo) Create(ctx context.Context, t *task.Task) error {
	if err := f.fail(); err != nil {
		return err
	}
	return f.inner.Create(ctx, t)
}

func (f *flakyRepo) Get(ctx context.Context, id string) (*task.Task, error) {
	if err := f.fail(); err != nil {
		return nil, err
	}
	return f.inner.Get(ctx, id)
}

func (f *flakyRepo) List(ctx context.Context, channelID string, limit int) ([]*task.Task, error) {
	if err := f.fail(); err != nil {
		return nil, err
	}
	return f.inner.List(ctx, channelID, limit)
}

func (f *flakyRepo) Update(ctx context.Context, t *task.Task) error {
	if err := f.fail(); err != nil {
		return err
	}
	return f.inner.Update(ctx, t)
}

func (f *flakyRepo) Delete(ctx context.Context, id string) error {
	if err := f.fail(); err != nil {
		return err
	}
	return f.inner.Delete(ctx, id)
}

func (f *flakyRepo) setDown(down bool) {
	f.mu.Lock()
	f.down = down
	f.mu.Unlock()
}

func (f *flakyRepo) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestFailoverUsesDurableWhenHealthy(t *testing.T) {
	durable := newFlakyRepo()
	repo := NewFailoverRepository(durable)
	ctx := context.Background()

	if err := repo.Create(ctx, testTask("1001")); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := durable.inner.Get(ctx, "1001"); err != nil {
		t.Errorf("task not written to durable store: %v", err)
	}
	if _, err := repo.memory.Get(ctx, "1001"); !cerr.IsCode(err, cerr.NotFound) {
		t.Errorf("task unexpectedly written to memory store")
	}
}

func TestFailoverFallsBackToMemory(t *testing.T) {
	durable := newFlakyRepo()
	durable.setDown(true)
	repo := NewFailoverRepository(durable)
	ctx := context.Background()

	if err := repo.Create(ctx, testTask("1001")); err != nil {
		t.Fatalf("Create during outage failed: %v", err)
	}

	got, err := repo.Get(ctx, "1001")
	if err != nil {
		t.Fatalf("Get during outage failed: %v", err)
	}
	if got.ID != "1001" {
		t.Errorf("Get returned task %s, want 1001", got.ID)
	}
}

func TestFailoverCooldownSkipsDurable(t *testing.T) {
	durable := newFlakyRepo()
	durable.setDown(true)
	repo := NewFailoverRepository(durable)
	ctx := context.Background()

	// First call burns the retry budget and trips the cooldown.
	if err := repo.Create(ctx, testTask("1001")); err != nil {
		t.Fatalf("Create during outage failed: %v", err)
	}
	afterFirst := durable.callCount()
	if afterFirst != durableAttempts {
		t.Fatalf("durable store called %d times, want %d", afterFirst, durableAttempts)
	}

	// Within the cooldown window the durable store is left alone.
	if err := repo.Create(ctx, testTask("1002")); err != nil {
		t.Fatalf("Create during cooldown failed: %v", err)
	}
	if durable.callCount() != afterFirst {
		t.Errorf("durable store called during cooldown: %d calls, want %d", durable.callCount(), afterFirst)
	}
}

func TestFailoverRecoversAfterHealthySuccess(t *testing.T) {
	durable := newFlakyRepo()
	repo := NewFailoverRepository(durable)
	ctx := context.Background()

	if err := repo.Create(ctx, testTask("1001")); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	// A success resets the failure marker directly.
	repo.markFailure()
	repo.markHealthy()
	if repo.coolingDown() {
		t.Errorf("coolingDown after markHealthy = true, want false")
	}
}

func TestFailoverSemanticErrorsPassThrough(t *testing.T) {
	durable := newFlakyRepo()
	repo := NewFailoverRepository(durable)
	ctx := context.Background()

	if err := repo.Create(ctx, testTask("1001")); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	err := repo.Create(ctx, testTask("1001"))
	if !cerr.IsCode(err, cerr.AlreadyExists) {
		t.Errorf("duplicate Create error = %v, want AlreadyExists", err)
	}
	// A semantic error must not burn retries or trip the cooldown.
	if repo.coolingDown() {
		t.Errorf("semantic error tripped the cooldown")
	}
}

func TestFailoverGetChecksMemoryOnDurableMiss(t *testing.T) {
	durable := newFlakyRepo()
	repo := NewFailoverRepository(durable)
	ctx := context.Background()

	// Task written during an outage lives only in memory.
	if err := repo.memory.Create(ctx, testTask("1001")); err != nil {
		t.Fatalf("memory Create failed: %v", err)
	}

	got, err := repo.Get(ctx, "1001")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.ID != "1001" {
		t.Errorf("Get returned %s, want 1001", got.ID)
	}
}
