package planner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/dsa-tracker/internal/models"
	"github.com/terra-clan/dsa-tracker/internal/storage"
)

var base = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *storage.MemoryRepository) {
	t.Helper()
	repo := storage.NewMemoryRepository()
	require.NoError(t, repo.CreateUser(context.Background(), &models.User{
		ID: "u1", Name: "Ada", ApiKey: "dsa_u1", IsActive: true,
		Notifications: models.DefaultNotificationSettings(),
	}))
	svc := NewService(repo,
		WithClock(func() time.Time { return base }),
		WithLocation(time.UTC),
	)
	return svc, repo
}

func ptr[T any](v T) *T { return &v }

func TestCreateDefaults(t *testing.T) {
	svc, _ := newTestService(t)

	task, err := svc.Create(context.Background(), "u1", models.CreateTaskRequest{Title: "  Graphs revision  "})
	require.NoError(t, err)

	assert.NotEmpty(t, task.ID)
	assert.Equal(t, "Graphs revision", task.Title)
	assert.Equal(t, models.CategoryStudy, task.Category)
	assert.Equal(t, models.TaskPriorityMedium, task.Priority)
	assert.False(t, task.NotificationSent)
	assert.Equal(t, base, task.CreatedAt)
}

func TestCreateValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for name, req := range map[string]models.CreateTaskRequest{
		"empty title":    {Title: "   "},
		"bad category":   {Title: "x", Category: "chores"},
		"bad priority":   {Title: "x", Priority: "urgent"},
		"negative spent": {Title: "x", TimeSpent: -5},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Create(ctx, "u1", req)
			assert.ErrorIs(t, err, ErrInvalidTask)
		})
	}
}

func TestGetIsScopedToOwner(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	task, err := svc.Create(ctx, "u1", models.CreateTaskRequest{Title: "DP"})
	require.NoError(t, err)

	_, err = svc.Get(ctx, "u2", task.ID)
	assert.ErrorIs(t, err, ErrTaskNotFound)

	assert.ErrorIs(t, svc.Delete(ctx, "u2", task.ID), ErrTaskNotFound)
	require.NoError(t, svc.Delete(ctx, "u1", task.ID))
	_, err = svc.Get(ctx, "u1", task.ID)
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestUpdateResetsLatchOnDeadlineChange(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	task, err := svc.Create(ctx, "u1", models.CreateTaskRequest{Title: "Contest", Deadline: ptr(base.Add(time.Hour))})
	require.NoError(t, err)

	flipped, err := svc.MarkNotificationSent(ctx, task.ID)
	require.NoError(t, err)
	require.True(t, flipped)

	// Same deadline keeps the latch.
	task, err = svc.Update(ctx, "u1", task.ID, models.UpdateTaskRequest{
		Title:    ptr("Weekly contest"),
		Deadline: ptr(base.Add(time.Hour)),
	})
	require.NoError(t, err)
	assert.True(t, task.NotificationSent)
	assert.Equal(t, "Weekly contest", task.Title)

	task, err = svc.Update(ctx, "u1", task.ID, models.UpdateTaskRequest{Deadline: ptr(base.Add(3 * time.Hour))})
	require.NoError(t, err)
	assert.False(t, task.NotificationSent)

	_, err = svc.MarkNotificationSent(ctx, task.ID)
	require.NoError(t, err)
	task, err = svc.Update(ctx, "u1", task.ID, models.UpdateTaskRequest{ClearDeadline: true})
	require.NoError(t, err)
	assert.Nil(t, task.Deadline)
	assert.False(t, task.NotificationSent)

	stored, err := repo.GetTask(ctx, "u1", task.ID)
	require.NoError(t, err)
	assert.False(t, stored.NotificationSent)
}

// tickAfterRead sets a task's latch right after it is read, the way a
// scheduler tick can land between an edit's read and its write
type tickAfterRead struct {
	*storage.MemoryRepository
}

func (r tickAfterRead) GetTask(ctx context.Context, userID, id string) (*models.Task, error) {
	task, err := r.MemoryRepository.GetTask(ctx, userID, id)
	if err != nil || task == nil {
		return task, err
	}
	if _, err := r.MemoryRepository.MarkNotificationSent(ctx, id); err != nil {
		return nil, err
	}
	return task, nil
}

func TestEditsKeepLatchSetByConcurrentTick(t *testing.T) {
	_, repo := newTestService(t)
	svc := NewService(tickAfterRead{repo},
		WithClock(func() time.Time { return base }),
		WithLocation(time.UTC),
	)
	ctx := context.Background()

	task, err := svc.Create(ctx, "u1", models.CreateTaskRequest{Title: "DP", Deadline: ptr(base.Add(time.Hour))})
	require.NoError(t, err)
	require.False(t, task.NotificationSent)

	task, err = svc.Update(ctx, "u1", task.ID, models.UpdateTaskRequest{Title: ptr("DP revision")})
	require.NoError(t, err)
	assert.True(t, task.NotificationSent)

	stored, err := repo.GetTask(ctx, "u1", task.ID)
	require.NoError(t, err)
	assert.Equal(t, "DP revision", stored.Title)
	assert.True(t, stored.NotificationSent, "a title edit must not re-arm the reminder")

	task, err = svc.Complete(ctx, "u1", task.ID, models.CompleteTaskRequest{TimeSpent: 5})
	require.NoError(t, err)
	assert.True(t, task.NotificationSent)

	task, err = svc.Incomplete(ctx, "u1", task.ID)
	require.NoError(t, err)
	assert.False(t, task.NotificationSent, "reopening re-arms even after a tick")

	task, err = svc.Update(ctx, "u1", task.ID, models.UpdateTaskRequest{Deadline: ptr(base.Add(2 * time.Hour))})
	require.NoError(t, err)
	assert.False(t, task.NotificationSent, "a new deadline re-arms even after a tick")

	stored, err = repo.GetTask(ctx, "u1", task.ID)
	require.NoError(t, err)
	assert.False(t, stored.NotificationSent)
}

func TestUpdateValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	task, err := svc.Create(ctx, "u1", models.CreateTaskRequest{Title: "Heaps"})
	require.NoError(t, err)

	_, err = svc.Update(ctx, "u1", task.ID, models.UpdateTaskRequest{Category: ptr(models.TaskCategory("nap"))})
	assert.ErrorIs(t, err, ErrInvalidTask)

	_, err = svc.Update(ctx, "u1", "missing", models.UpdateTaskRequest{})
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestCompleteAndIncomplete(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	task, err := svc.Create(ctx, "u1", models.CreateTaskRequest{Title: "Tries", TimeSpent: 10, Deadline: ptr(base.Add(time.Hour))})
	require.NoError(t, err)
	_, err = svc.MarkNotificationSent(ctx, task.ID)
	require.NoError(t, err)

	task, err = svc.Complete(ctx, "u1", task.ID, models.CompleteTaskRequest{TimeSpent: 25})
	require.NoError(t, err)
	assert.True(t, task.Completed)
	require.NotNil(t, task.CompletedAt)
	assert.Equal(t, base, *task.CompletedAt)
	assert.Equal(t, 35, task.TimeSpent)
	assert.True(t, task.NotificationSent, "completing does not touch the latch")

	task, err = svc.Incomplete(ctx, "u1", task.ID)
	require.NoError(t, err)
	assert.False(t, task.Completed)
	assert.Nil(t, task.CompletedAt)
	assert.False(t, task.NotificationSent, "reopening re-arms the reminder")
}

func TestMarkNotificationSentIsOneShot(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	task, err := svc.Create(ctx, "u1", models.CreateTaskRequest{Title: "Graphs", Deadline: ptr(base.Add(time.Hour))})
	require.NoError(t, err)

	flipped, err := svc.MarkNotificationSent(ctx, task.ID)
	require.NoError(t, err)
	assert.True(t, flipped)

	flipped, err = svc.MarkNotificationSent(ctx, task.ID)
	require.NoError(t, err)
	assert.False(t, flipped)

	_, err = svc.MarkNotificationSent(ctx, "missing")
	assert.ErrorIs(t, err, ErrTaskNotFound)

	got, err := svc.MarkOwnNotificationSent(ctx, "u1", task.ID)
	require.NoError(t, err)
	assert.True(t, got.NotificationSent)

	_, err = svc.MarkOwnNotificationSent(ctx, "u2", task.ID)
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestListOrdersByDeadline(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, "u1", models.CreateTaskRequest{Title: "undated"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, "u1", models.CreateTaskRequest{Title: "later", Deadline: ptr(base.Add(48 * time.Hour))})
	require.NoError(t, err)
	_, err = svc.Create(ctx, "u1", models.CreateTaskRequest{Title: "sooner", Deadline: ptr(base.Add(time.Hour)), Category: models.CategoryContest})
	require.NoError(t, err)

	tasks, err := svc.List(ctx, "u1", models.TaskFilters{})
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	assert.Equal(t, []string{"sooner", "later", "undated"}, []string{tasks[0].Title, tasks[1].Title, tasks[2].Title})

	contests, err := svc.List(ctx, "u1", models.TaskFilters{Category: models.CategoryContest})
	require.NoError(t, err)
	assert.Len(t, contests, 1)

	empty, err := svc.List(ctx, "u2", models.TaskFilters{})
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestStats(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, "u1", models.CreateTaskRequest{Title: "overdue", Deadline: ptr(base.Add(-time.Hour)), TimeSpent: 30})
	require.NoError(t, err)
	_, err = svc.Create(ctx, "u1", models.CreateTaskRequest{Title: "today", Deadline: ptr(base.Add(5 * time.Hour)), Category: models.CategoryPractice, TimeSpent: 15})
	require.NoError(t, err)
	done, err := svc.Create(ctx, "u1", models.CreateTaskRequest{Title: "done", Category: models.CategoryPractice})
	require.NoError(t, err)
	_, err = svc.Complete(ctx, "u1", done.ID, models.CompleteTaskRequest{TimeSpent: 45})
	require.NoError(t, err)

	stats, err := svc.Stats(ctx, "u1")
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 1, stats.Completed)
	assert.Equal(t, 2, stats.Pending)
	assert.Equal(t, 1, stats.Overdue)
	assert.Equal(t, 2, stats.DueToday)
	assert.Equal(t, 90, stats.TimeSpent)
	assert.Equal(t, 60, stats.TimeByCategory[models.CategoryPractice])
	assert.Equal(t, 30, stats.TimeByCategory[models.CategoryStudy])
	assert.InDelta(t, 1.0/3.0, stats.CompletionRatio, 1e-9)
}
