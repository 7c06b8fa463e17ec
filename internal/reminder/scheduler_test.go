package reminder

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/dsa-tracker/internal/lock"
	"github.com/terra-clan/dsa-tracker/internal/models"
	"github.com/terra-clan/dsa-tracker/internal/notify"
	"github.com/terra-clan/dsa-tracker/internal/storage"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingDispatcher struct {
	mu      sync.Mutex
	sent    []notify.Notification
	err     error
	entered chan struct{}
	block   chan struct{}
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, n notify.Notification) error {
	if d.block != nil {
		d.entered <- struct{}{}
		<-d.block
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent = append(d.sent, n)
	return d.err
}

func (d *recordingDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.sent)
}

var t0 = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

type fixture struct {
	repo       *storage.MemoryRepository
	clock      *fakeClock
	dispatcher *recordingDispatcher
	sched      *Scheduler
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	repo := storage.NewMemoryRepository()
	require.NoError(t, repo.CreateUser(context.Background(), &models.User{
		ID:            "u1",
		Name:          "Ada",
		Email:         "ada@example.com",
		ApiKey:        "dsa_test",
		IsActive:      true,
		Notifications: models.NotificationSettings{Enabled: true, ReminderLeadTime: 60, Channel: models.ChannelBoth},
	}))

	f := &fixture{
		repo:       repo,
		clock:      &fakeClock{now: t0},
		dispatcher: &recordingDispatcher{},
	}
	opts = append([]Option{WithClock(f.clock)}, opts...)
	f.sched = NewScheduler(repo, repo, f.dispatcher, opts...)
	return f
}

func (f *fixture) addTask(t *testing.T, id string, deadline time.Time) {
	t.Helper()
	require.NoError(t, f.repo.CreateTask(context.Background(), &models.Task{
		ID:       id,
		UserID:   "u1",
		Title:    "Revise graphs",
		Category: models.CategoryRevision,
		Priority: models.TaskPriorityHigh,
		Deadline: &deadline,
	}))
}

func (f *fixture) latched(t *testing.T, id string) bool {
	t.Helper()
	task, err := f.repo.GetTask(context.Background(), "u1", id)
	require.NoError(t, err)
	require.NotNil(t, task)
	return task.NotificationSent
}

func TestClassify(t *testing.T) {
	deadline := t0.Add(time.Hour)
	lead := time.Hour

	tests := []struct {
		name string
		task models.Task
		now  time.Time
		want State
	}{
		{"no deadline", models.Task{}, t0, StateNotDue},
		{"outside window", models.Task{Deadline: &deadline}, t0.Add(-time.Minute), StateNotDue},
		{"window edge", models.Task{Deadline: &deadline}, t0, StateDueSoonUnsent},
		{"inside window", models.Task{Deadline: &deadline}, t0.Add(30 * time.Minute), StateDueSoonUnsent},
		{"already sent", models.Task{Deadline: &deadline, NotificationSent: true}, t0.Add(30 * time.Minute), StateDueSoonSent},
		{"deadline reached", models.Task{Deadline: &deadline}, deadline, StateCompletedOrPast},
		{"past", models.Task{Deadline: &deadline}, deadline.Add(time.Minute), StateCompletedOrPast},
		{"completed", models.Task{Deadline: &deadline, Completed: true}, t0.Add(30 * time.Minute), StateCompletedOrPast},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(&tt.task, tt.now, lead))
		})
	}
}

func TestTickFiresOncePerTask(t *testing.T) {
	f := newFixture(t)
	f.addTask(t, "t1", t0.Add(59*time.Minute))

	fired, err := f.sched.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, fired)

	f.clock.Advance(time.Minute)
	fired, err = f.sched.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, fired)

	require.Equal(t, 1, f.dispatcher.count())
	assert.True(t, f.latched(t, "t1"))

	n := f.dispatcher.sent[0]
	assert.Equal(t, "u1", n.UserID)
	assert.Equal(t, models.ChannelBoth, n.Channel)
	assert.Equal(t, "ada@example.com", n.RecipientEmail)
	assert.Equal(t, "t1", n.TaskID)
	assert.Contains(t, n.Title, "Revise graphs")
	assert.Contains(t, n.Message, "59 minutes")
}

func TestTickFiresImmediatelyInsideWindow(t *testing.T) {
	f := newFixture(t)
	f.addTask(t, "t1", t0.Add(30*time.Minute))

	fired, err := f.sched.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, fired)
}

func TestTickWaitsForWindow(t *testing.T) {
	f := newFixture(t)
	f.addTask(t, "t1", t0.Add(90*time.Minute))

	for i := 0; i < 29; i++ {
		fired, err := f.sched.Tick(context.Background())
		require.NoError(t, err)
		require.Zero(t, fired, "tick %d fired early", i)
		f.clock.Advance(time.Minute)
	}
	assert.False(t, f.latched(t, "t1"))

	// 90 - 30 = 60 minutes left
	f.clock.Advance(time.Minute)
	fired, err := f.sched.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, fired)
	assert.Contains(t, f.dispatcher.sent[0].Message, "1 hour")
}

func TestTickSkipsPastAndCompleted(t *testing.T) {
	f := newFixture(t)
	f.addTask(t, "past", t0.Add(-time.Minute))
	f.addTask(t, "done", t0.Add(10*time.Minute))

	task, err := f.repo.GetTask(context.Background(), "u1", "done")
	require.NoError(t, err)
	task.Completed = true
	require.NoError(t, f.repo.UpdateTask(context.Background(), task, false))

	fired, err := f.sched.Tick(context.Background())
	require.NoError(t, err)
	assert.Zero(t, fired)
	assert.Zero(t, f.dispatcher.count())
}

func TestTickHonoursUserLeadTime(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.repo.UpdateUserSettings(context.Background(), "u1", models.NotificationSettings{
		Enabled: true, ReminderLeadTime: 1440, Channel: models.ChannelEmail,
	}))
	f.addTask(t, "t1", t0.Add(23*time.Hour))

	fired, err := f.sched.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, fired)
	assert.Equal(t, models.ChannelEmail, f.dispatcher.sent[0].Channel)
}

func TestTickSkipsDisabledUsers(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.repo.UpdateUserSettings(context.Background(), "u1", models.NotificationSettings{
		Enabled: false, ReminderLeadTime: 60, Channel: models.ChannelBrowser,
	}))
	f.addTask(t, "t1", t0.Add(10*time.Minute))

	fired, err := f.sched.Tick(context.Background())
	require.NoError(t, err)
	assert.Zero(t, fired)
}

func TestDispatchFailureStillLatches(t *testing.T) {
	f := newFixture(t)
	f.dispatcher.err = errors.New("smtp down")
	f.addTask(t, "t1", t0.Add(10*time.Minute))

	fired, err := f.sched.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, fired)
	assert.True(t, f.latched(t, "t1"))

	fired, err = f.sched.Tick(context.Background())
	require.NoError(t, err)
	assert.Zero(t, fired)
	assert.Equal(t, 1, f.dispatcher.count())
}

func TestTicksDoNotOverlap(t *testing.T) {
	f := newFixture(t)
	f.dispatcher.entered = make(chan struct{})
	f.dispatcher.block = make(chan struct{})
	f.addTask(t, "t1", t0.Add(10*time.Minute))

	done := make(chan struct{})
	go func() {
		defer close(done)
		fired, err := f.sched.Tick(context.Background())
		assert.NoError(t, err)
		assert.Equal(t, 1, fired)
	}()

	// first tick is now parked inside the dispatcher
	<-f.dispatcher.entered

	_, err := f.sched.Tick(context.Background())
	assert.ErrorIs(t, err, ErrTickInProgress)

	close(f.dispatcher.block)
	<-done
	assert.Equal(t, 1, f.dispatcher.count())
}

func TestCancelledTickCompletesDispatchAndLatch(t *testing.T) {
	f := newFixture(t)
	f.addTask(t, "t1", t0.Add(10*time.Minute))

	ctx, cancel := context.WithCancel(context.Background())
	source := cancellingSource{TaskSource: f.repo, cancel: cancel}
	sched := NewScheduler(source, f.repo, f.dispatcher, WithClock(f.clock))

	fired, err := sched.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, fired)
	assert.True(t, f.latched(t, "t1"))
}

// cancellingSource cancels the tick context right after listing
type cancellingSource struct {
	TaskSource
	cancel context.CancelFunc
}

func (s cancellingSource) ListReminderCandidates(ctx context.Context, now time.Time) ([]models.ReminderCandidate, error) {
	defer s.cancel()
	return s.TaskSource.ListReminderCandidates(ctx, now)
}

func TestTickWithSharedLock(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	locker := lock.NewRedisLockerFromClient(client, 10*time.Second)

	f := newFixture(t, WithLocker(locker))
	f.addTask(t, "t1", t0.Add(10*time.Minute))

	// another instance is mid-tick
	unlock, err := locker.Lock(context.Background(), tickLockKey)
	require.NoError(t, err)

	_, err = f.sched.Tick(context.Background())
	assert.ErrorIs(t, err, ErrTickInProgress)
	assert.Zero(t, f.dispatcher.count())

	unlock()
	fired, err := f.sched.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, fired)
}

type countingSource struct {
	TaskSource
	calls atomic.Int32
}

func (s *countingSource) ListReminderCandidates(ctx context.Context, now time.Time) ([]models.ReminderCandidate, error) {
	s.calls.Add(1)
	return s.TaskSource.ListReminderCandidates(ctx, now)
}

func TestStartRunsImmediatelyAndStops(t *testing.T) {
	f := newFixture(t)
	f.addTask(t, "t1", t0.Add(10*time.Minute))

	source := &countingSource{TaskSource: f.repo}
	sched := NewScheduler(source, f.repo, f.dispatcher, WithClock(f.clock), WithInterval(time.Hour))

	sched.Start(context.Background())
	sched.Start(context.Background())
	require.Eventually(t, func() bool { return f.dispatcher.count() == 1 }, time.Second, 5*time.Millisecond)

	sched.Stop()
	sched.Stop()
	assert.Equal(t, int32(1), source.calls.Load())

	// restart after the user re-enables reminders
	f.addTask(t, "t2", t0.Add(20*time.Minute))
	sched.Start(context.Background())
	require.Eventually(t, func() bool { return f.dispatcher.count() == 2 }, time.Second, 5*time.Millisecond)
	sched.Stop()
}

func TestHumanMinutes(t *testing.T) {
	assert.Equal(t, "1 minute", humanMinutes(1))
	assert.Equal(t, "45 minutes", humanMinutes(45))
	assert.Equal(t, "1 hour", humanMinutes(60))
	assert.Equal(t, "2 hours", humanMinutes(120))
	assert.Equal(t, "1h 30m", humanMinutes(90))
}
