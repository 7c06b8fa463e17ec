package storage

import (
	"context"
	"errors"
	"time"

	"github.com/terra-clan/dsa-tracker/internal/models"
)

// Common errors
var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// Repository defines the interface for tracker persistence.
// Get* methods return (nil, nil) when the record does not exist.
type Repository interface {
	// Users
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByApiKey(ctx context.Context, apiKey string) (*models.User, error)
	UpdateUserSettings(ctx context.Context, id string, settings models.NotificationSettings) error
	UpdateUserLastUsed(ctx context.Context, apiKey string) error
	// DeleteUser removes the user together with progress, solved log and tasks
	DeleteUser(ctx context.Context, id string) error

	// Progress
	GetProgress(ctx context.Context, userID string) (*models.ProgressAggregate, error)
	SaveProgress(ctx context.Context, p *models.ProgressAggregate) error

	// Solved log
	// RecordSolve appends sp and saves p atomically. It returns ErrDuplicate
	// when the user already solved sp.ProblemID; nothing is written then.
	RecordSolve(ctx context.Context, sp *models.SolvedProblem, p *models.ProgressAggregate) error
	HasSolved(ctx context.Context, userID, problemID string) (bool, error)
	ListSolved(ctx context.Context, userID string, filters models.SolvedFilters) ([]*models.SolvedProblem, error)
	// CountSolved counts log entries solved at or after since (all entries when since is nil)
	CountSolved(ctx context.Context, userID string, since *time.Time) (int, error)

	// Tasks
	CreateTask(ctx context.Context, t *models.Task) error
	GetTask(ctx context.Context, userID, id string) (*models.Task, error)
	// UpdateTask writes the task's editable fields. The reminder latch is only
	// written when resetLatch is set, which clears it; otherwise the stored
	// latch is kept and copied back into t.
	UpdateTask(ctx context.Context, t *models.Task, resetLatch bool) error
	DeleteTask(ctx context.Context, userID, id string) error
	ListTasks(ctx context.Context, userID string, filters models.TaskFilters) ([]*models.Task, error)
	// ListReminderCandidates returns pending, unnotified tasks with a deadline
	// after now whose owners have reminders enabled.
	ListReminderCandidates(ctx context.Context, now time.Time) ([]models.ReminderCandidate, error)
	// MarkNotificationSent flips the latch false -> true and reports whether it flipped
	MarkNotificationSent(ctx context.Context, taskID string) (bool, error)

	// Health
	Ping(ctx context.Context) error
	Close() error
}
