// Package planner manages study tasks and their deadline reminder latch.
package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/terra-clan/dsa-tracker/internal/models"
	"github.com/terra-clan/dsa-tracker/internal/storage"
)

// Planner errors
var (
	ErrTaskNotFound = errors.New("task not found")
	ErrInvalidTask  = errors.New("invalid task")
)

const (
	maxTitleLength = 200
	maxListLimit   = 500
)

// Service implements task CRUD for a user
type Service struct {
	repo storage.Repository
	now  func() time.Time
	loc  *time.Location
}

// Option configures a Service
type Option func(*Service)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLocation sets the zone used for "due today"
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// NewService creates a planner service
func NewService(repo storage.Repository, opts ...Option) *Service {
	s := &Service{
		repo: repo,
		now:  time.Now,
		loc:  time.Local,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create adds a task for userID
func (s *Service) Create(ctx context.Context, userID string, req models.CreateTaskRequest) (*models.Task, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidTask)
	}
	if len(title) > maxTitleLength {
		return nil, fmt.Errorf("%w: title exceeds %d characters", ErrInvalidTask, maxTitleLength)
	}

	category := req.Category
	if category == "" {
		category = models.CategoryStudy
	}
	if !category.Valid() {
		return nil, fmt.Errorf("%w: unknown category %q", ErrInvalidTask, category)
	}

	priority := req.Priority
	if priority == "" {
		priority = models.TaskPriorityMedium
	}
	if !priority.Valid() {
		return nil, fmt.Errorf("%w: unknown priority %q", ErrInvalidTask, priority)
	}

	if req.TimeSpent < 0 {
		return nil, fmt.Errorf("%w: time spent cannot be negative", ErrInvalidTask)
	}

	now := s.now()
	task := &models.Task{
		ID:          uuid.NewString(),
		UserID:      userID,
		Title:       title,
		Description: req.Description,
		Category:    category,
		Priority:    priority,
		Deadline:    req.Deadline,
		TimeSpent:   req.TimeSpent,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.CreateTask(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	slog.Info("task created", "user_id", userID, "task_id", task.ID, "deadline", task.Deadline)
	return task, nil
}

// Get returns one of the user's tasks
func (s *Service) Get(ctx context.Context, userID, id string) (*models.Task, error) {
	task, err := s.repo.GetTask(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	if task == nil {
		return nil, fmt.Errorf("%s: %w", id, ErrTaskNotFound)
	}
	return task, nil
}

// List returns the user's tasks ordered by deadline
func (s *Service) List(ctx context.Context, userID string, filters models.TaskFilters) ([]*models.Task, error) {
	if filters.Limit <= 0 || filters.Limit > maxListLimit {
		filters.Limit = maxListLimit
	}
	tasks, err := s.repo.ListTasks(ctx, userID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	if tasks == nil {
		tasks = []*models.Task{}
	}
	return tasks, nil
}

// Update applies a partial edit. Moving or clearing the deadline re-arms
// the reminder.
func (s *Service) Update(ctx context.Context, userID, id string, req models.UpdateTaskRequest) (*models.Task, error) {
	task, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, fmt.Errorf("%w: title is required", ErrInvalidTask)
		}
		if len(title) > maxTitleLength {
			return nil, fmt.Errorf("%w: title exceeds %d characters", ErrInvalidTask, maxTitleLength)
		}
		task.Title = title
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.Category != nil {
		if !req.Category.Valid() {
			return nil, fmt.Errorf("%w: unknown category %q", ErrInvalidTask, *req.Category)
		}
		task.Category = *req.Category
	}
	if req.Priority != nil {
		if !req.Priority.Valid() {
			return nil, fmt.Errorf("%w: unknown priority %q", ErrInvalidTask, *req.Priority)
		}
		task.Priority = *req.Priority
	}
	if req.TimeSpent != nil {
		if *req.TimeSpent < 0 {
			return nil, fmt.Errorf("%w: time spent cannot be negative", ErrInvalidTask)
		}
		task.TimeSpent = *req.TimeSpent
	}

	rearm := false
	switch {
	case req.ClearDeadline:
		if task.Deadline != nil {
			task.Deadline = nil
			rearm = true
		}
	case req.Deadline != nil:
		if task.Deadline == nil || !task.Deadline.Equal(*req.Deadline) {
			deadline := *req.Deadline
			task.Deadline = &deadline
			rearm = true
		}
	}

	task.UpdatedAt = s.now()
	if err := s.save(ctx, task, rearm); err != nil {
		return nil, err
	}
	return task, nil
}

// Delete removes one of the user's tasks
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if err := s.repo.DeleteTask(ctx, userID, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", id, ErrTaskNotFound)
		}
		return fmt.Errorf("failed to delete task: %w", err)
	}
	slog.Info("task deleted", "user_id", userID, "task_id", id)
	return nil
}

// Complete marks a task done, optionally adding minutes spent
func (s *Service) Complete(ctx context.Context, userID, id string, req models.CompleteTaskRequest) (*models.Task, error) {
	if req.TimeSpent < 0 {
		return nil, fmt.Errorf("%w: time spent cannot be negative", ErrInvalidTask)
	}

	task, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if !task.Completed {
		task.Completed = true
		task.CompletedAt = &now
	}
	task.TimeSpent += req.TimeSpent
	task.UpdatedAt = now

	if err := s.save(ctx, task, false); err != nil {
		return nil, err
	}
	return task, nil
}

// Incomplete reopens a task and re-arms its reminder
func (s *Service) Incomplete(ctx context.Context, userID, id string) (*models.Task, error) {
	task, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	rearm := task.Completed
	if task.Completed {
		task.Completed = false
		task.CompletedAt = nil
	}
	task.UpdatedAt = s.now()

	if err := s.save(ctx, task, rearm); err != nil {
		return nil, err
	}
	return task, nil
}

// MarkNotificationSent sets the task's one-shot reminder latch. It reports
// whether this call flipped it.
func (s *Service) MarkNotificationSent(ctx context.Context, taskID string) (bool, error) {
	flipped, err := s.repo.MarkNotificationSent(ctx, taskID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, fmt.Errorf("%s: %w", taskID, ErrTaskNotFound)
		}
		return false, fmt.Errorf("failed to mark notification sent: %w", err)
	}
	return flipped, nil
}

// MarkOwnNotificationSent sets the latch on a task owned by userID
func (s *Service) MarkOwnNotificationSent(ctx context.Context, userID, id string) (*models.Task, error) {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return nil, err
	}
	if _, err := s.MarkNotificationSent(ctx, id); err != nil {
		return nil, err
	}
	return s.Get(ctx, userID, id)
}

// Stats summarizes the user's planner
func (s *Service) Stats(ctx context.Context, userID string) (*models.TaskStats, error) {
	tasks, err := s.repo.ListTasks(ctx, userID, models.TaskFilters{})
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	now := s.now()
	y, m, d := now.In(s.loc).Date()
	startOfDay := time.Date(y, m, d, 0, 0, 0, 0, s.loc)
	endOfDay := startOfDay.AddDate(0, 0, 1)

	stats := &models.TaskStats{
		TimeByCategory: make(map[models.TaskCategory]int),
	}
	for _, t := range tasks {
		stats.Total++
		stats.TimeSpent += t.TimeSpent
		stats.TimeByCategory[t.Category] += t.TimeSpent

		if t.Completed {
			stats.Completed++
			continue
		}
		stats.Pending++
		if t.IsOverdue(now) {
			stats.Overdue++
		}
		if t.Deadline != nil && !t.Deadline.Before(startOfDay) && t.Deadline.Before(endOfDay) {
			stats.DueToday++
		}
	}
	if stats.Total > 0 {
		stats.CompletionRatio = float64(stats.Completed) / float64(stats.Total)
	}
	return stats, nil
}

// save writes task; rearm clears the reminder latch, otherwise the stored
// latch wins over the copy read earlier
func (s *Service) save(ctx context.Context, task *models.Task, rearm bool) error {
	if err := s.repo.UpdateTask(ctx, task, rearm); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", task.ID, ErrTaskNotFound)
		}
		return fmt.Errorf("failed to update task: %w", err)
	}
	return nil
}
