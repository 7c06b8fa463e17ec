package progress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/terra-clan/dsa-tracker/internal/lock"
	"github.com/terra-clan/dsa-tracker/internal/metrics"
	"github.com/terra-clan/dsa-tracker/internal/models"
	"github.com/terra-clan/dsa-tracker/internal/storage"
)

// Tracker errors
var (
	ErrAlreadySolved = errors.New("problem already solved")
	ErrUserNotFound  = errors.New("user not found")
	ErrInvalidSolve  = errors.New("invalid solve")
	ErrInvalidGoal   = errors.New("invalid goal")
)

const (
	defaultLockTimeout = 5 * time.Second
	// maxClockSkew is how far in the future a solvedAt may lie
	maxClockSkew = 5 * time.Minute
	maxDailyGoal = 100
)

// Catalog is the part of the problem bank the tracker reads
type Catalog interface {
	Get(id string) *models.Problem
	TodaysProblem(date time.Time, loc *time.Location) *models.Problem
	Curriculum() []models.Topic
}

// Tracker records solves and serves progress for users. Every
// read-modify-write of an aggregate runs under the user's lock.
type Tracker struct {
	repo        storage.Repository
	locker      lock.Locker
	catalog     Catalog
	metrics     *metrics.Manager
	now         func() time.Time
	loc         *time.Location
	lockTimeout time.Duration
}

// Option configures a Tracker
type Option func(*Tracker)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// WithLocation sets the zone whose calendar days define streaks
func WithLocation(loc *time.Location) Option {
	return func(t *Tracker) {
		if loc != nil {
			t.loc = loc
		}
	}
}

// WithMetrics records tracker metrics on m
func WithMetrics(m *metrics.Manager) Option {
	return func(t *Tracker) {
		t.metrics = m
	}
}

// WithLockTimeout bounds how long a request waits for the user's lock
func WithLockTimeout(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.lockTimeout = d
		}
	}
}

// NewTracker creates a progress tracker. catalog may be nil.
func NewTracker(repo storage.Repository, locker lock.Locker, catalog Catalog, opts ...Option) *Tracker {
	t := &Tracker{
		repo:        repo,
		locker:      locker,
		catalog:     catalog,
		now:         time.Now,
		loc:         time.Local,
		lockTimeout: defaultLockTimeout,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Location returns the zone used for calendar days
func (t *Tracker) Location() *time.Location {
	return t.loc
}

// RecordSolved appends a solve to the user's log and folds it into the
// aggregate. Submitting the same problem twice returns ErrAlreadySolved and
// changes nothing, so a caller may retry safely.
func (t *Tracker) RecordSolved(ctx context.Context, userID string, req models.SolveRequest) (*models.SolveResponse, error) {
	now := t.now()

	sp, err := t.buildSolved(userID, req, now)
	if err != nil {
		return nil, err
	}

	unlock, err := t.lock(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if err := t.ensureUser(ctx, userID); err != nil {
		return nil, err
	}

	solved, err := t.repo.HasSolved(ctx, userID, sp.ProblemID)
	if err != nil {
		return nil, fmt.Errorf("failed to check solved log: %w", err)
	}
	if solved {
		t.metrics.SolveDuplicate()
		return nil, fmt.Errorf("%s: %w", sp.ProblemID, ErrAlreadySolved)
	}

	agg, err := t.load(ctx, userID, now)
	if err != nil {
		return nil, err
	}

	if t.catalog != nil {
		if today := t.catalog.TodaysProblem(sp.SolvedAt, t.loc); today != nil && today.ID == sp.ProblemID {
			sp.IsTodaysProblem = true
		}
	}

	next := Apply(agg, SolveEvent{
		Difficulty:    sp.Difficulty,
		Topics:        sp.Topics,
		SolvedAt:      sp.SolvedAt,
		TodaysProblem: sp.IsTodaysProblem,
	}, t.loc)

	rollups, err := t.countRollups(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	week, month := RollupWindows(now)
	rollups.Total++
	if !sp.SolvedAt.Before(week) {
		rollups.Week++
	}
	if !sp.SolvedAt.Before(month) {
		rollups.Month++
	}
	ApplyRollups(next, rollups)
	next.UpdatedAt = now

	if err := t.repo.RecordSolve(ctx, sp, next); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			t.metrics.SolveDuplicate()
			return nil, fmt.Errorf("%s: %w", sp.ProblemID, ErrAlreadySolved)
		}
		return nil, fmt.Errorf("failed to record solve: %w", err)
	}

	view := t.view(next, now)
	t.metrics.SolveRecorded(string(sp.Difficulty))
	slog.Info("solve recorded",
		"user_id", userID,
		"problem_id", sp.ProblemID,
		"difficulty", sp.Difficulty,
		"streak", view.CurrentStreak,
		"rating", view.CurrentRating,
	)

	return &models.SolveResponse{
		Solved:          sp,
		Progress:        view,
		Recommendations: Recommend(view, t.curriculum()),
	}, nil
}

// buildSolved validates the intake payload and fills gaps from the problem bank
func (t *Tracker) buildSolved(userID string, req models.SolveRequest, now time.Time) (*models.SolvedProblem, error) {
	problemID := strings.TrimSpace(req.ProblemID)
	if problemID == "" {
		return nil, fmt.Errorf("%w: problem_id is required", ErrInvalidSolve)
	}

	var known *models.Problem
	if t.catalog != nil {
		known = t.catalog.Get(problemID)
	}

	var difficulty models.Difficulty
	switch {
	case strings.TrimSpace(req.Difficulty) != "":
		d, ok := models.ParseDifficulty(req.Difficulty)
		if !ok {
			return nil, fmt.Errorf("%w: unknown difficulty %q", ErrInvalidSolve, req.Difficulty)
		}
		difficulty = d
	case known != nil:
		difficulty = known.Difficulty
	default:
		return nil, fmt.Errorf("%w: difficulty is required", ErrInvalidSolve)
	}

	topics := make([]models.Topic, 0, len(req.Topics))
	for _, raw := range req.Topics {
		topic, ok := models.ParseTopic(raw)
		if !ok {
			slog.Warn("ignoring unknown topic", "user_id", userID, "problem_id", problemID, "topic", raw)
			continue
		}
		topics = append(topics, topic)
	}
	if len(req.Topics) == 0 && known != nil {
		topics = append(topics, known.Topics...)
	}

	solvedAt := now
	if req.SolvedAt != nil {
		solvedAt = *req.SolvedAt
		if solvedAt.After(now.Add(maxClockSkew)) {
			return nil, fmt.Errorf("%w: solved_at is in the future", ErrInvalidSolve)
		}
	}

	sp := &models.SolvedProblem{
		ID:         uuid.NewString(),
		UserID:     userID,
		ProblemID:  problemID,
		Title:      req.Title,
		Platform:   req.Platform,
		URL:        req.URL,
		Difficulty: difficulty,
		Topics:     topics,
		SolvedAt:   solvedAt,
		Solution:   req.Solution,
		CreatedAt:  now,
	}
	if known != nil {
		if sp.Title == "" {
			sp.Title = known.Title
		}
		if sp.Platform == "" {
			sp.Platform = known.Platform
		}
		if sp.URL == "" {
			sp.URL = known.URL
		}
	}
	return sp, nil
}

// Progress returns the user's aggregate with rollups refreshed as of now
func (t *Tracker) Progress(ctx context.Context, userID string) (*models.ProgressStats, error) {
	now := t.now()
	agg, err := t.RefreshRollups(ctx, userID, now)
	if err != nil {
		return nil, err
	}

	stats := &models.ProgressStats{
		Progress:        agg,
		WeeklyProblems:  agg.SolvedThisWeek,
		MonthlyProblems: agg.SolvedThisMonth,
		TotalProblems:   agg.TotalSolved,
	}
	if t.catalog != nil {
		stats.TodaysProblem = t.catalog.TodaysProblem(now, t.loc)
	}
	return stats, nil
}

// RefreshRollups recomputes the weekly, monthly and total counts from the
// solved log as of asOf and persists them. The returned aggregate shows
// lapsed streaks as zero; the stored streak is left for the next solve to
// extend or restart. Creates the aggregate when the user has none yet.
func (t *Tracker) RefreshRollups(ctx context.Context, userID string, asOf time.Time) (*models.ProgressAggregate, error) {
	unlock, err := t.lock(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if err := t.ensureUser(ctx, userID); err != nil {
		return nil, err
	}

	agg, err := t.load(ctx, userID, asOf)
	if err != nil {
		return nil, err
	}

	rollups, err := t.countRollups(ctx, userID, asOf)
	if err != nil {
		return nil, err
	}
	ApplyRollups(agg, rollups)
	agg.UpdatedAt = t.now()

	if err := t.repo.SaveProgress(ctx, agg); err != nil {
		return nil, fmt.Errorf("failed to save progress: %w", err)
	}
	return t.view(agg, asOf), nil
}

// Recommendations returns study hints for the user's current progress
func (t *Tracker) Recommendations(ctx context.Context, userID string) ([]models.Recommendation, error) {
	stats, err := t.Progress(ctx, userID)
	if err != nil {
		return nil, err
	}
	return Recommend(stats.Progress, t.curriculum()), nil
}

// UpdateGoals changes the user's daily and weekly targets
func (t *Tracker) UpdateGoals(ctx context.Context, userID string, req models.GoalsRequest) (*models.ProgressAggregate, error) {
	if req.DailyGoal != nil && (*req.DailyGoal < 1 || *req.DailyGoal > maxDailyGoal) {
		return nil, fmt.Errorf("%w: daily goal must be between 1 and %d", ErrInvalidGoal, maxDailyGoal)
	}
	if req.WeeklyGoal != nil && (*req.WeeklyGoal < 1 || *req.WeeklyGoal > 7*maxDailyGoal) {
		return nil, fmt.Errorf("%w: weekly goal must be between 1 and %d", ErrInvalidGoal, 7*maxDailyGoal)
	}

	unlock, err := t.lock(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if err := t.ensureUser(ctx, userID); err != nil {
		return nil, err
	}

	now := t.now()
	agg, err := t.load(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	if req.DailyGoal != nil {
		agg.DailyGoal = *req.DailyGoal
	}
	if req.WeeklyGoal != nil {
		agg.WeeklyGoal = *req.WeeklyGoal
	}
	agg.UpdatedAt = now

	if err := t.repo.SaveProgress(ctx, agg); err != nil {
		return nil, fmt.Errorf("failed to save progress: %w", err)
	}
	return t.view(agg, now), nil
}

// SolvedProblems lists the user's solved log, newest first
func (t *Tracker) SolvedProblems(ctx context.Context, userID string, filters models.SolvedFilters) ([]*models.SolvedProblem, error) {
	list, err := t.repo.ListSolved(ctx, userID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list solved problems: %w", err)
	}
	if list == nil {
		list = []*models.SolvedProblem{}
	}
	return list, nil
}

// DeleteUserData removes the user's account, aggregate, solved log and tasks
func (t *Tracker) DeleteUserData(ctx context.Context, userID string) error {
	unlock, err := t.lock(ctx, userID)
	if err != nil {
		return err
	}
	defer unlock()

	if err := t.repo.DeleteUser(ctx, userID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", userID, ErrUserNotFound)
		}
		return fmt.Errorf("failed to delete user: %w", err)
	}

	slog.Info("user data deleted", "user_id", userID)
	return nil
}

func (t *Tracker) lock(ctx context.Context, userID string) (func(), error) {
	lockCtx, cancel := context.WithTimeout(ctx, t.lockTimeout)
	defer cancel()

	unlock, err := t.locker.Lock(lockCtx, "progress:"+userID)
	if err != nil {
		t.metrics.LockFailed()
		return nil, fmt.Errorf("failed to lock progress for user %s: %w", userID, err)
	}
	return unlock, nil
}

func (t *Tracker) ensureUser(ctx context.Context, userID string) error {
	u, err := t.repo.GetUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if u == nil {
		return fmt.Errorf("%s: %w", userID, ErrUserNotFound)
	}
	return nil
}

// load returns the stored aggregate or a fresh seed one
func (t *Tracker) load(ctx context.Context, userID string, now time.Time) (*models.ProgressAggregate, error) {
	agg, err := t.repo.GetProgress(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get progress: %w", err)
	}
	if agg == nil {
		agg = NewAggregate(userID, now)
	}
	return agg, nil
}

// view returns a copy of agg with streaks that lapsed before asOf shown as zero
func (t *Tracker) view(agg *models.ProgressAggregate, asOf time.Time) *models.ProgressAggregate {
	v := agg.Clone()
	ExpireStreaks(v, asOf, t.loc)
	return v
}

func (t *Tracker) countRollups(ctx context.Context, userID string, asOf time.Time) (Rollups, error) {
	week, month := RollupWindows(asOf)

	var r Rollups
	var err error
	if r.Week, err = t.repo.CountSolved(ctx, userID, &week); err != nil {
		return r, fmt.Errorf("failed to count weekly solves: %w", err)
	}
	if r.Month, err = t.repo.CountSolved(ctx, userID, &month); err != nil {
		return r, fmt.Errorf("failed to count monthly solves: %w", err)
	}
	if r.Total, err = t.repo.CountSolved(ctx, userID, nil); err != nil {
		return r, fmt.Errorf("failed to count solves: %w", err)
	}
	return r, nil
}

func (t *Tracker) curriculum() []models.Topic {
	if t.catalog == nil {
		return models.AllTopics
	}
	return t.catalog.Curriculum()
}
