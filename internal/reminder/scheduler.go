// Package reminder runs the deadline reminder loop: on every tick it finds
// pending tasks inside their owner's lead time window and fires exactly one
// notification per task.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/terra-clan/dsa-tracker/internal/lock"
	"github.com/terra-clan/dsa-tracker/internal/metrics"
	"github.com/terra-clan/dsa-tracker/internal/models"
	"github.com/terra-clan/dsa-tracker/internal/notify"
)

// ErrTickInProgress is returned by Tick when another tick is still running
var ErrTickInProgress = errors.New("reminder tick already in progress")

const (
	defaultInterval        = time.Minute
	defaultDispatchTimeout = 30 * time.Second
	tickLockKey            = "reminder:tick"
)

// State is where a task sits relative to its reminder window
type State int

const (
	// StateNotDue: the deadline is further away than the lead time, or unset
	StateNotDue State = iota
	// StateDueSoonUnsent: inside the window and not yet notified
	StateDueSoonUnsent
	// StateDueSoonSent: inside the window and already notified
	StateDueSoonSent
	// StateCompletedOrPast: completed, or the deadline has passed
	StateCompletedOrPast
)

func (s State) String() string {
	switch s {
	case StateNotDue:
		return "not-due"
	case StateDueSoonUnsent:
		return "due-soon-unsent"
	case StateDueSoonSent:
		return "due-soon-sent"
	case StateCompletedOrPast:
		return "completed-or-past"
	}
	return "unknown"
}

// Classify places task in its reminder state at now for the given lead time
func Classify(task *models.Task, now time.Time, lead time.Duration) State {
	if task.Completed {
		return StateCompletedOrPast
	}
	if task.Deadline == nil {
		return StateNotDue
	}
	until := task.Deadline.Sub(now)
	switch {
	case until <= 0:
		return StateCompletedOrPast
	case until > lead:
		return StateNotDue
	case task.NotificationSent:
		return StateDueSoonSent
	default:
		return StateDueSoonUnsent
	}
}

// Clock abstracts the wall clock
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// TaskSource lists pending, unnotified tasks with a deadline after now
type TaskSource interface {
	ListReminderCandidates(ctx context.Context, now time.Time) ([]models.ReminderCandidate, error)
}

// Latch flips a task's notification flag and reports whether it flipped
type Latch interface {
	MarkNotificationSent(ctx context.Context, taskID string) (bool, error)
}

// Scheduler handles periodic deadline reminders
type Scheduler struct {
	source     TaskSource
	latch      Latch
	dispatcher notify.Dispatcher
	clock      Clock
	interval   time.Duration
	timeout    time.Duration
	locker     lock.Locker
	metrics    *metrics.Manager

	tickMu sync.Mutex

	mu      sync.Mutex
	cancel  context.CancelFunc
	stopped chan struct{}
}

// Option configures a Scheduler
type Option func(*Scheduler)

// WithClock overrides the wall clock
func WithClock(c Clock) Option {
	return func(s *Scheduler) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithInterval sets the tick interval
func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithDispatchTimeout bounds a single dispatch
func WithDispatchTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithLocker makes ticks exclusive across every process sharing the locker
func WithLocker(l lock.Locker) Option {
	return func(s *Scheduler) {
		s.locker = l
	}
}

// WithMetrics records scheduler metrics on m
func WithMetrics(m *metrics.Manager) Option {
	return func(s *Scheduler) {
		s.metrics = m
	}
}

// NewScheduler creates a reminder scheduler
func NewScheduler(source TaskSource, latch Latch, dispatcher notify.Dispatcher, opts ...Option) *Scheduler {
	s := &Scheduler{
		source:     source,
		latch:      latch,
		dispatcher: dispatcher,
		clock:      realClock{},
		interval:   defaultInterval,
		timeout:    defaultDispatchTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start runs a tick immediately and then on every interval until Stop or
// until ctx is done. Calling Start on a running scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.stopped = make(chan struct{})
	go s.run(ctx, s.stopped)
}

// Stop halts the loop and waits for an in-flight tick to finish. The
// scheduler may be started again afterwards.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, stopped := s.cancel, s.stopped
	s.cancel, s.stopped = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-stopped
}

// run is the main loop for the reminder worker
func (s *Scheduler) run(ctx context.Context, stopped chan struct{}) {
	defer close(stopped)
	slog.Info("reminder scheduler started", "interval", s.interval)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Run immediately on start
	s.tickAndLog(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("reminder scheduler stopped")
			return
		case <-ticker.C:
			s.tickAndLog(ctx)
		}
	}
}

func (s *Scheduler) tickAndLog(ctx context.Context) {
	if _, err := s.Tick(ctx); err != nil && !errors.Is(err, ErrTickInProgress) {
		slog.Error("reminder tick failed", "error", err)
	}
}

// Tick scans pending tasks once and notifies those newly inside their
// reminder window. Ticks never overlap: a call made while another tick is
// running returns ErrTickInProgress without doing anything.
func (s *Scheduler) Tick(ctx context.Context) (int, error) {
	if !s.tickMu.TryLock() {
		s.metrics.TickSkipped()
		slog.Debug("skipping reminder tick, previous tick still running")
		return 0, ErrTickInProgress
	}
	defer s.tickMu.Unlock()

	if s.locker != nil {
		lockCtx, cancel := context.WithTimeout(ctx, time.Second)
		unlock, err := s.locker.Lock(lockCtx, tickLockKey)
		cancel()
		if err != nil {
			if errors.Is(err, lock.ErrNotAcquired) {
				s.metrics.TickSkipped()
				slog.Debug("skipping reminder tick, another instance holds the lock")
				return 0, ErrTickInProgress
			}
			return 0, fmt.Errorf("failed to acquire tick lock: %w", err)
		}
		defer unlock()
	}

	started := time.Now()
	now := s.clock.Now()

	candidates, err := s.source.ListReminderCandidates(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to list reminder candidates: %w", err)
	}

	fired := 0
	for _, c := range candidates {
		lead := c.LeadTime
		if !models.ValidLeadTime(int(lead / time.Minute)) {
			slog.Warn("invalid reminder lead time, using default",
				"user_id", c.User.ID,
				"lead_time", lead,
			)
			lead = models.DefaultReminderLeadTime * time.Minute
		}

		if Classify(c.Task, now, lead) != StateDueSoonUnsent {
			continue
		}

		s.fire(ctx, c, now)
		fired++
	}

	s.metrics.ObserveTick(time.Since(started), fired)
	if fired > 0 {
		slog.Info("reminder tick completed", "candidates", len(candidates), "notified", fired)
	}
	return fired, nil
}

// fire dispatches one reminder and then sets the task's latch. Dispatch is
// best effort; the latch is set even when it fails so the reminder is never
// repeated. Neither step is cut short by ctx cancellation.
func (s *Scheduler) fire(ctx context.Context, c models.ReminderCandidate, now time.Time) {
	ctx = context.WithoutCancel(ctx)
	task, user := c.Task, c.User

	dispatchCtx, cancel := context.WithTimeout(ctx, s.timeout)
	err := s.dispatcher.Dispatch(dispatchCtx, buildNotification(task, user, now))
	cancel()
	if err != nil {
		slog.Error("failed to dispatch reminder",
			"error", err,
			"task_id", task.ID,
			"user_id", user.ID,
		)
	} else {
		slog.Info("reminder dispatched",
			"task_id", task.ID,
			"user_id", user.ID,
			"channel", user.Notifications.Channel,
			"deadline", task.Deadline,
		)
	}

	flipped, err := s.latch.MarkNotificationSent(ctx, task.ID)
	if err != nil {
		slog.Error("failed to mark notification sent", "error", err, "task_id", task.ID)
		return
	}
	if !flipped {
		slog.Warn("notification latch was already set", "task_id", task.ID)
	}
}

func buildNotification(task *models.Task, user *models.User, now time.Time) notify.Notification {
	minutes := int(math.Ceil(task.Deadline.Sub(now).Minutes()))
	return notify.Notification{
		UserID:         user.ID,
		Title:          fmt.Sprintf("Task due soon: %s", task.Title),
		Message:        fmt.Sprintf("%q is due in %s (%s).", task.Title, humanMinutes(minutes), task.Deadline.Format(time.RFC1123)),
		Channel:        user.Notifications.Channel,
		RecipientEmail: user.Email,
		TaskID:         task.ID,
		Deadline:       task.Deadline,
	}
}

func humanMinutes(m int) string {
	switch {
	case m <= 1:
		return "1 minute"
	case m < 60:
		return fmt.Sprintf("%d minutes", m)
	case m%60 == 0 && m/60 == 1:
		return "1 hour"
	case m%60 == 0:
		return fmt.Sprintf("%d hours", m/60)
	}
	return fmt.Sprintf("%dh %dm", m/60, m%60)
}
