package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/nate007-quant/mission-control/internal/domain"
	"github.com/nate007-quant/mission-control/internal/store"
)

// MockTaskStore is an in-memory store.TaskStore.
type MockTaskStore struct {
	CreateFn        func(ctx context.Context, task *domain.Task) (int64, error)
	GetByIDFn       func(ctx context.Context, id int64) (*domain.Task, error)
	ListFn          func(ctx context.Context, filter store.TaskFilter) ([]*domain.Task, error)
	ClaimNextFn     func(ctx context.Context) (*domain.Task, error)
	UpdateFn        func(ctx context.Context, id int64, update store.TaskUpdate) (*domain.Task, error)
	CountByStatusFn func(ctx context.Context) (map[domain.TaskStatus]int, error)

	// Now supplies timestamps; defaults to time.Now in UTC.
	Now func() time.Time

	mu     sync.Mutex
	tasks  map[int64]*domain.Task
	nextID int64
}

// Ensure MockTaskStore implements store.TaskStore interface
var _ store.TaskStore = (*MockTaskStore)(nil)

// NewMockTaskStore creates an empty in-memory task store.
func NewMockTaskStore() *MockTaskStore {
	return &MockTaskStore{tasks: make(map[int64]*domain.Task)}
}

func (m *MockTaskStore) now() time.Time {
	if m.Now != nil {
		return m.Now().UTC()
	}
	return time.Now().UTC()
}

func (m *MockTaskStore) init() {
	if m.tasks == nil {
		m.tasks = make(map[int64]*domain.Task)
	}
}

func cloneTask(t *domain.Task) *domain.Task {
	c := *t
	if t.StartedAt != nil {
		v := *t.StartedAt
		c.StartedAt = &v
	}
	if t.FinishedAt != nil {
		v := *t.FinishedAt
		c.FinishedAt = &v
	}
	if t.SessionKey != nil {
		v := *t.SessionKey
		c.SessionKey = &v
	}
	if t.LastError != nil {
		v := *t.LastError
		c.LastError = &v
	}
	return &c
}

// Create implements store.TaskStore.Create
func (m *MockTaskStore) Create(ctx context.Context, task *domain.Task) (int64, error) {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, task)
	}
	if err := task.Validate(); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.init()

	m.nextID++
	task.ID = m.nextID
	if task.CreatedAt.IsZero() {
		task.CreatedAt = m.now()
	}
	if task.UpdatedAt.IsZero() {
		task.UpdatedAt = task.CreatedAt
	}
	m.tasks[task.ID] = cloneTask(task)
	return task.ID, nil
}

// GetByID implements store.TaskStore.GetByID
func (m *MockTaskStore) GetByID(ctx context.Context, id int64) (*domain.Task, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	task, ok := m.tasks[id]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	return cloneTask(task), nil
}

// sorted returns every task newest first.
func (m *MockTaskStore) sorted() []*domain.Task {
	all := make([]*domain.Task, 0, len(m.tasks))
	for _, t := range m.tasks {
		all = append(all, t)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})
	return all
}

// List implements store.TaskStore.List
func (m *MockTaskStore) List(ctx context.Context, filter store.TaskFilter) ([]*domain.Task, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx, filter)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]*domain.Task, 0)
	for _, t := range m.sorted() {
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		result = append(result, cloneTask(t))
		if filter.Limit > 0 && len(result) == filter.Limit {
			break
		}
	}
	return result, nil
}

// ClaimNext implements store.TaskStore.ClaimNext
func (m *MockTaskStore) ClaimNext(ctx context.Context) (*domain.Task, error) {
	if m.ClaimNextFn != nil {
		return m.ClaimNextFn(ctx)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	all := m.sorted()
	for i := len(all) - 1; i >= 0; i-- {
		t := all[i]
		if t.Status != domain.TaskStatusQueued {
			continue
		}
		if err := t.Transition(domain.TaskStatusRunning, m.now()); err != nil {
			return nil, err
		}
		return cloneTask(t), nil
	}
	return nil, nil
}

// Update implements store.TaskStore.Update
func (m *MockTaskStore) Update(ctx context.Context, id int64, update store.TaskUpdate) (*domain.Task, error) {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, id, update)
	}
	if update.Status != nil && !update.Status.IsValid() {
		return nil, domain.ErrInvalidStatus
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tasks[id]
	if !ok {
		return nil, store.ErrTaskNotFound
	}

	now := m.now()
	if update.Status != nil {
		if err := t.Transition(*update.Status, now); err != nil {
			return nil, err
		}
	}
	if update.SessionKey != nil {
		v := *update.SessionKey
		t.SessionKey = &v
	}
	if update.LastError != nil {
		v := *update.LastError
		t.LastError = &v
	}
	if update.AppendLog != nil {
		t.Log = domain.AppendLog(t.Log, *update.AppendLog)
	}
	t.UpdatedAt = now
	return cloneTask(t), nil
}

// CountByStatus implements store.TaskStore.CountByStatus
func (m *MockTaskStore) CountByStatus(ctx context.Context) (map[domain.TaskStatus]int, error) {
	if m.CountByStatusFn != nil {
		return m.CountByStatusFn(ctx)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	counts := make(map[domain.TaskStatus]int, len(domain.AllTaskStatuses))
	for _, s := range domain.AllTaskStatuses {
		counts[s] = 0
	}
	for _, t := range m.tasks {
		counts[t.Status]++
	}
	return counts, nil
}
