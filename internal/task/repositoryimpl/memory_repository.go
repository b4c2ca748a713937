package repositoryimpl

import (
	"context"
	"sort"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/mkhoudour/taskbridge/internal/task"
	"github.com/mkhoudour/taskbridge/pkg/cerr"
)

// MemoryRepository is a process-local task store. It backs the failover
// repository while the durable store is unreachable; records are lost when
// the process exits.
type MemoryRepository struct {
	mu    sync.RWMutex
	tasks map[string]*task.Task
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{tasks: make(map[string]*task.Task)}
}

func (r *MemoryRepository) Create(_ context.Context, t *task.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t.ID == "" {
		t.ID = ulid.Make().String()
	}
	if _, ok := r.tasks[t.ID]; ok {
		return cerr.NewError(cerr.AlreadyExists, "task already exists", nil)
	}
	copied := *t
	r.tasks[t.ID] = &copied
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, id string) (*task.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tasks[id]
	if !ok {
		return nil, cerr.NewError(cerr.NotFound, "task not found", nil)
	}
	copied := *t
	return &copied, nil
}

func (r *MemoryRepository) List(_ context.Context, channelID string, limit int) ([]*task.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var all []*task.Task
	for _, t := range r.tasks {
		if channelID != "" && t.ChannelID != channelID {
			continue
		}
		copied := *t
		all = append(all, &copied)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (r *MemoryRepository) Update(_ context.Context, t *task.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tasks[t.ID]; !ok {
		return cerr.NewError(cerr.NotFound, "task not found", nil)
	}
	copied := *t
	r.tasks[t.ID] = &copied
	return nil
}

func (r *MemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tasks[id]; !ok {
		return cerr.NewError(cerr.NotFound, "task not found", nil)
	}
	delete(r.tasks, id)
	return nil
}
