package repositoryimpl

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mkhoudour/taskbridge/internal/task"
	"github.com/mkhoudour/taskbridge/pkg/cerr"
	"github.com/mkhoudour/taskbridge/pkg/retry"
)

const (
	// failoverCooldown is how long the durable store is left alone after a
	// failure before the next call probes it again.
	failoverCooldown = 30 * time.Second

	durableAttempts     = 3
	durableInitialDelay = 200 * time.Millisecond
)

// FailoverRepository serves reads and writes from a durable repository,
// falling back to a process-local memory repository when the durable one is
// unreachable. After a failure the durable store is skipped for a cooldown
// window so a flapping backend is not hammered with reconnect attempts.
// Callers see a plain task.Repository and never learn which backend served
// them.
type FailoverRepository struct {
	durable task.Repository
	memory  *MemoryRepository

	mu          sync.Mutex
	lastFailure time.Time
}

func NewFailoverRepository(durable task.Repository) *FailoverRepository {
	return &FailoverRepository{
		durable: durable,
		memory:  NewMemoryRepository(),
	}
}

// coolingDown reports whether the durable store recently failed and should
// not yet be retried.
func (r *FailoverRepository) coolingDown() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.lastFailure.IsZero() && time.Since(r.lastFailure) < failoverCooldown
}

func (r *FailoverRepository) markFailure() {
	r.mu.Lock()
	r.lastFailure = time.Now()
	r.mu.Unlock()
}

func (r *FailoverRepository) markHealthy() {
	r.mu.Lock()
	r.lastFailure = time.Time{}
	r.mu.Unlock()
}

// tryDurable runs op against the durable store with bounded retries.
// Semantic errors (not found, already exists) are returned as-is; transport
// errors trip the cooldown and report the store as down.
func (r *FailoverRepository) tryDurable(ctx context.Context, name string, op func(ctx context.Context) error) (down bool, err error) {
	if r.coolingDown() {
		return true, nil
	}
	err = retry.Do(ctx, retry.Policy{Attempts: durableAttempts, InitialDelay: durableInitialDelay}, func(ctx context.Context) error {
		opErr := op(ctx)
		if opErr != nil && !isTransportError(opErr) {
			// Semantic failure: do not burn retries on it.
			return nil
		}
		return opErr
	})
	if err != nil {
		r.markFailure()
		slog.Warn("durable task store unreachable, using in-memory fallback", "op", name, "error", err)
		return true, nil
	}
	r.markHealthy()
	return false, nil
}

func isTransportError(err error) bool {
	return cerr.IsCode(err, cerr.Unavailable) || cerr.IsTimeout(err)
}

func (r *FailoverRepository) Create(ctx context.Context, t *task.Task) error {
	var semantic error
	down, err := r.tryDurable(ctx, "create", func(ctx context.Context) error {
		semantic = r.durable.Create(ctx, t)
		return semantic
	})
	if down {
		return r.memory.Create(ctx, t)
	}
	if err != nil {
		return err
	}
	return semantic
}

func (r *FailoverRepository) Get(ctx context.Context, id string) (*task.Task, error) {
	var (
		found    *task.Task
		semantic error
	)
	down, err := r.tryDurable(ctx, "get", func(ctx context.Context) error {
		found, semantic = r.durable.Get(ctx, id)
		return semantic
	})
	if down {
		return r.memory.Get(ctx, id)
	}
	if err != nil {
		return nil, err
	}
	if cerr.IsCode(semantic, cerr.NotFound) {
		// The task may have been written during an earlier outage.
		if t, memErr := r.memory.Get(ctx, id); memErr == nil {
			return t, nil
		}
	}
	return found, semantic
}

func (r *FailoverRepository) List(ctx context.Context, channelID string, limit int) ([]*task.Task, error) {
	var (
		found    []*task.Task
		semantic error
	)
	down, err := r.tryDurable(ctx, "list", func(ctx context.Context) error {
		found, semantic = r.durable.List(ctx, channelID, limit)
		return semantic
	})
	if down {
		return r.memory.List(ctx, channelID, limit)
	}
	if err != nil {
		return nil, err
	}
	return found, semantic
}

func (r *FailoverRepository) Update(ctx context.Context, t *task.Task) error {
	var semantic error
	down, err := r.tryDurable(ctx, "update", func(ctx context.Context) error {
		semantic = r.durable.Update(ctx, t)
		return semantic
	})
	if down {
		return r.memory.Update(ctx, t)
	}
	if err != nil {
		return err
	}
	if cerr.IsCode(semantic, cerr.NotFound) {
		if memErr := r.memory.Update(ctx, t); memErr == nil {
			return nil
		}
	}
	return semantic
}

func (r *FailoverRepository) Delete(ctx context.Context, id string) error {
	var semantic error
	down, err := r.tryDurable(ctx, "delete", func(ctx context.Context) error {
		semantic = r.durable.Delete(ctx, id)
		return semantic
	})
	if down {
		return r.memory.Delete(ctx, id)
	}
	if err != nil {
		return err
	}
	return semantic
}
