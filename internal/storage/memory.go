package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/terra-clan/dsa-tracker/internal/models"
)

// MemoryRepository implements Repository in process memory.
// Used by the "memory" storage driver and by tests.
type MemoryRepository struct {
	mu       sync.RWMutex
	users    map[string]*models.User
	progress map[string]*models.ProgressAggregate
	solved   map[string][]*models.SolvedProblem // by user id, in insertion order
	tasks    map[string]*models.Task
}

// NewMemoryRepository creates an empty in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users:    make(map[string]*models.User),
		progress: make(map[string]*models.ProgressAggregate),
		solved:   make(map[string][]*models.SolvedProblem),
		tasks:    make(map[string]*models.Task),
	}
}

// Ping always succeeds
func (r *MemoryRepository) Ping(ctx context.Context) error { return nil }

// Close is a no-op
func (r *MemoryRepository) Close() error { return nil }

// CreateUser stores a new user
func (r *MemoryRepository) CreateUser(ctx context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[u.ID]; ok {
		return fmt.Errorf("user %s: %w", u.ID, ErrDuplicate)
	}
	for _, existing := range r.users {
		if existing.ApiKey == u.ApiKey {
			return fmt.Errorf("api key: %w", ErrDuplicate)
		}
	}
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

// GetUser retrieves a user by ID
func (r *MemoryRepository) GetUser(ctx context.Context, id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

// GetUserByApiKey retrieves a user by API key
func (r *MemoryRepository) GetUserByApiKey(ctx context.Context, apiKey string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.ApiKey == apiKey {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

// UpdateUserSettings replaces a user's notification settings
func (r *MemoryRepository) UpdateUserSettings(ctx context.Context, id string, settings models.NotificationSettings) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	u.Notifications = settings
	return nil
}

// UpdateUserLastUsed stamps the key's last use
func (r *MemoryRepository) UpdateUserLastUsed(ctx context.Context, apiKey string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.ApiKey == apiKey {
			now := time.Now()
			u.LastUsedAt = &now
			return nil
		}
	}
	return fmt.Errorf("api key: %w", ErrNotFound)
}

// DeleteUser removes a user and everything the user owns
func (r *MemoryRepository) DeleteUser(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id]; !ok {
		return fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	delete(r.users, id)
	delete(r.progress, id)
	delete(r.solved, id)
	for taskID, t := range r.tasks {
		if t.UserID == id {
			delete(r.tasks, taskID)
		}
	}
	return nil
}

// GetProgress retrieves a user's aggregate
func (r *MemoryRepository) GetProgress(ctx context.Context, userID string) (*models.ProgressAggregate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.progress[userID]
	if !ok {
		return nil, nil
	}
	return p.Clone(), nil
}

// SaveProgress upserts a user's aggregate
func (r *MemoryRepository) SaveProgress(ctx context.Context, p *models.ProgressAggregate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.progress[p.UserID] = p.Clone()
	return nil
}

// RecordSolve appends to the solved log and saves the aggregate atomically
func (r *MemoryRepository) RecordSolve(ctx context.Context, sp *models.SolvedProblem, p *models.ProgressAggregate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.solved[sp.UserID] {
		if existing.ProblemID == sp.ProblemID {
			return fmt.Errorf("problem %s: %w", sp.ProblemID, ErrDuplicate)
		}
	}
	cp := *sp
	cp.Topics = append([]models.Topic(nil), sp.Topics...)
	r.solved[sp.UserID] = append(r.solved[sp.UserID], &cp)
	r.progress[p.UserID] = p.Clone()
	return nil
}

// HasSolved reports whether the user already solved problemID
func (r *MemoryRepository) HasSolved(ctx context.Context, userID, problemID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, sp := range r.solved[userID] {
		if sp.ProblemID == problemID {
			return true, nil
		}
	}
	return false, nil
}

// ListSolved returns the user's solved log, newest first
func (r *MemoryRepository) ListSolved(ctx context.Context, userID string, filters models.SolvedFilters) ([]*models.SolvedProblem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*models.SolvedProblem
	for _, sp := range r.solved[userID] {
		if filters.Difficulty != "" && sp.Difficulty != filters.Difficulty {
			continue
		}
		if filters.Topic != "" && !containsTopic(sp.Topics, filters.Topic) {
			continue
		}
		if filters.Since != nil && sp.SolvedAt.Before(*filters.Since) {
			continue
		}
		cp := *sp
		result = append(result, &cp)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].SolvedAt.After(result[j].SolvedAt)
	})

	return paginate(result, filters.Offset, filters.Limit), nil
}

// CountSolved counts the user's log entries solved at or after since
func (r *MemoryRepository) CountSolved(ctx context.Context, userID string, since *time.Time) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, sp := range r.solved[userID] {
		if since == nil || !sp.SolvedAt.Before(*since) {
			count++
		}
	}
	return count, nil
}

// CreateTask stores a new task
func (r *MemoryRepository) CreateTask(ctx context.Context, t *models.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tasks[t.ID]; ok {
		return fmt.Errorf("task %s: %w", t.ID, ErrDuplicate)
	}
	cp := *t
	r.tasks[t.ID] = &cp
	return nil
}

// GetTask retrieves a task owned by userID
func (r *MemoryRepository) GetTask(ctx context.Context, userID, id string) (*models.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tasks[id]
	if !ok || t.UserID != userID {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

// UpdateTask replaces a stored task, keeping its latch unless resetLatch is set
func (r *MemoryRepository) UpdateTask(ctx context.Context, t *models.Task, resetLatch bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.tasks[t.ID]
	if !ok || existing.UserID != t.UserID {
		return fmt.Errorf("task %s: %w", t.ID, ErrNotFound)
	}
	if resetLatch {
		t.NotificationSent = false
	} else {
		t.NotificationSent = existing.NotificationSent
	}
	cp := *t
	r.tasks[t.ID] = &cp
	return nil
}

// DeleteTask removes a task owned by userID
func (r *MemoryRepository) DeleteTask(ctx context.Context, userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[id]
	if !ok || t.UserID != userID {
		return fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	delete(r.tasks, id)
	return nil
}

// ListTasks returns the user's tasks ordered by deadline, undated last
func (r *MemoryRepository) ListTasks(ctx context.Context, userID string, filters models.TaskFilters) ([]*models.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*models.Task
	for _, t := range r.tasks {
		if t.UserID != userID {
			continue
		}
		if filters.Category != "" && t.Category != filters.Category {
			continue
		}
		if filters.Priority != "" && t.Priority != filters.Priority {
			continue
		}
		if filters.Completed != nil && t.Completed != *filters.Completed {
			continue
		}
		cp := *t
		result = append(result, &cp)
	}

	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		switch {
		case a.Deadline == nil && b.Deadline == nil:
			return a.CreatedAt.After(b.CreatedAt)
		case a.Deadline == nil:
			return false
		case b.Deadline == nil:
			return true
		}
		return a.Deadline.Before(*b.Deadline)
	})

	return paginate(result, filters.Offset, filters.Limit), nil
}

// ListReminderCandidates returns pending, unnotified tasks due after now
func (r *MemoryRepository) ListReminderCandidates(ctx context.Context, now time.Time) ([]models.ReminderCandidate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []models.ReminderCandidate
	for _, t := range r.tasks {
		if t.Completed || t.NotificationSent || t.Deadline == nil || !t.Deadline.After(now) {
			continue
		}
		u, ok := r.users[t.UserID]
		if !ok || !u.IsActive || !u.Notifications.Enabled {
			continue
		}
		task := *t
		user := *u
		result = append(result, models.ReminderCandidate{
			Task:     &task,
			User:     &user,
			LeadTime: user.Notifications.LeadTime(),
		})
	}
	return result, nil
}

// MarkNotificationSent flips the task's latch if it is still unset
func (r *MemoryRepository) MarkNotificationSent(ctx context.Context, taskID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[taskID]
	if !ok {
		return false, fmt.Errorf("task %s: %w", taskID, ErrNotFound)
	}
	if t.NotificationSent {
		return false, nil
	}
	t.NotificationSent = true
	t.UpdatedAt = time.Now()
	return true, nil
}

func containsTopic(topics []models.Topic, t models.Topic) bool {
	for _, x := range topics {
		if x == t {
			return true
		}
	}
	return false
}

func paginate[T any](items []T, offset, limit int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
