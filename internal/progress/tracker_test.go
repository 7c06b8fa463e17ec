package progress

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/dsa-tracker/internal/catalog"
	"github.com/terra-clan/dsa-tracker/internal/lock"
	"github.com/terra-clan/dsa-tracker/internal/models"
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

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

const testBank = `
problems:
  - {id: two-sum, title: Two Sum, platform: leetcode, difficulty: easy, topics: [arrays, hashing]}
  - {id: coin-change, title: Coin Change, platform: leetcode, difficulty: medium, topics: [dynamic-programming]}
`

type trackerFixture struct {
	tracker *Tracker
	repo    *storage.MemoryRepository
	clock   *fakeClock
	bank    *catalog.Loader
}

func newTrackerFixture(t *testing.T) *trackerFixture {
	t.Helper()

	repo := storage.NewMemoryRepository()
	require.NoError(t, repo.CreateUser(context.Background(), &models.User{
		ID:            "u1",
		Name:          "Ada",
		ApiKey:        "dsa_test",
		IsActive:      true,
		Notifications: models.DefaultNotificationSettings(),
	}))

	bank := catalog.NewLoader()
	require.NoError(t, bank.Load([]byte(testBank)))

	clock := &fakeClock{now: day(1, 10)}
	tracker := NewTracker(repo, lock.NewLocalLocker(), bank,
		WithClock(clock.Now),
		WithLocation(utc),
	)
	return &trackerFixture{tracker: tracker, repo: repo, clock: clock, bank: bank}
}

func (f *trackerFixture) solveAt(t *testing.T, problemID, difficulty string, at time.Time) *models.SolveResponse {
	t.Helper()
	f.clock.Set(at)
	resp, err := f.tracker.RecordSolved(context.Background(), "u1", models.SolveRequest{
		ProblemID:  problemID,
		Difficulty: difficulty,
	})
	require.NoError(t, err)
	return resp
}

// solvePast logs a solve dated at without moving the clock
func (f *trackerFixture) solvePast(t *testing.T, problemID string, at time.Time) *models.SolveResponse {
	t.Helper()
	resp, err := f.tracker.RecordSolved(context.Background(), "u1", models.SolveRequest{
		ProblemID:  problemID,
		Difficulty: "easy",
		SolvedAt:   &at,
	})
	require.NoError(t, err)
	return resp
}

func TestRecordSolvedScenario(t *testing.T) {
	f := newTrackerFixture(t)

	resp := f.solveAt(t, "p1", "easy", day(1, 9))
	assert.Equal(t, 1, resp.Progress.CurrentStreak)
	assert.Equal(t, 1210, resp.Progress.CurrentRating)

	resp = f.solveAt(t, "p2", "medium", day(2, 9))
	assert.Equal(t, 2, resp.Progress.CurrentStreak)
	assert.Equal(t, 1230, resp.Progress.CurrentRating)

	resp = f.solveAt(t, "p3", "hard", day(4, 9))
	assert.Equal(t, 1, resp.Progress.CurrentStreak)
	assert.Equal(t, 2, resp.Progress.LongestStreak)
	assert.Equal(t, 1260, resp.Progress.CurrentRating)
	assert.Equal(t, 3, resp.Progress.TotalSolved)
	assert.Equal(t, 3, resp.Progress.SolvedThisWeek)
	assert.LessOrEqual(t, len(resp.Recommendations), 3)

	stored, err := f.repo.GetProgress(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, resp.Progress.CurrentRating, stored.CurrentRating)
}

func TestRecordSolvedPastDatedConsecutiveDays(t *testing.T) {
	f := newTrackerFixture(t)
	f.clock.Set(day(10, 12))

	for i, d := range []int{5, 6, 7, 8} {
		resp := f.solvePast(t, fmt.Sprintf("p%d", i), day(d, 9))
		assert.Zero(t, resp.Progress.CurrentStreak, "day %d lapsed as of today", d)
		assert.Equal(t, i+1, resp.Progress.LongestStreak)
	}

	resp := f.solvePast(t, "p-yesterday", day(9, 9))
	assert.Equal(t, 5, resp.Progress.CurrentStreak)

	resp = f.solvePast(t, "p-today", day(10, 9))
	assert.Equal(t, 6, resp.Progress.CurrentStreak)
	assert.Equal(t, 6, resp.Progress.LongestStreak)
	assert.Equal(t, 1260, resp.Progress.CurrentRating)

	stored, err := f.repo.GetProgress(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 6, stored.CurrentStreak)
	assert.Equal(t, 6, stored.LongestStreak)
}

func TestRecordSolvedBackfillKeepsStreak(t *testing.T) {
	f := newTrackerFixture(t)
	f.solveAt(t, "p1", "easy", day(3, 9))
	f.solveAt(t, "p2", "easy", day(4, 9))

	resp := f.solvePast(t, "old", day(1, 9))
	assert.Equal(t, 2, resp.Progress.CurrentStreak)
	assert.Equal(t, 2, resp.Progress.LongestStreak)
	assert.Equal(t, 1230, resp.Progress.CurrentRating)
	assert.Equal(t, 3, resp.Progress.TotalSolved)
	require.NotNil(t, resp.Progress.LastActivityDate)
	assert.True(t, resp.Progress.LastActivityDate.Equal(day(4, 0)))

	resp = f.solveAt(t, "p3", "easy", day(5, 9))
	assert.Equal(t, 3, resp.Progress.CurrentStreak)
}

func TestProgressAfterGapDoesNotBreakChaining(t *testing.T) {
	f := newTrackerFixture(t)
	ctx := context.Background()
	f.solveAt(t, "p1", "easy", day(1, 9))
	f.solveAt(t, "p2", "easy", day(2, 9))

	f.clock.Set(day(6, 12))
	stats, err := f.tracker.Progress(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, stats.Progress.CurrentStreak)
	assert.Equal(t, 2, stats.Progress.LongestStreak)

	stored, err := f.repo.GetProgress(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, stored.CurrentStreak, "reads must not persist the lapse")

	resp := f.solvePast(t, "p3", day(3, 9))
	assert.Zero(t, resp.Progress.CurrentStreak)
	assert.Equal(t, 3, resp.Progress.LongestStreak)

	f.solvePast(t, "p4", day(4, 9))
	f.solvePast(t, "p5", day(5, 9))
	resp = f.solvePast(t, "p6", day(6, 9))
	assert.Equal(t, 6, resp.Progress.CurrentStreak)
	assert.Equal(t, 6, resp.Progress.LongestStreak)

	f.clock.Set(day(9, 12))
	resp = f.solveAt(t, "p7", "easy", day(9, 12))
	assert.Equal(t, 1, resp.Progress.CurrentStreak, "a live gap still restarts the streak")
	assert.Equal(t, 6, resp.Progress.LongestStreak)
}

func TestRecordSolvedDuplicate(t *testing.T) {
	f := newTrackerFixture(t)
	f.solveAt(t, "p1", "hard", day(1, 9))

	_, err := f.tracker.RecordSolved(context.Background(), "u1", models.SolveRequest{ProblemID: "p1", Difficulty: "hard"})
	require.ErrorIs(t, err, ErrAlreadySolved)

	agg, err := f.repo.GetProgress(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 1230, agg.CurrentRating, "retry must not double count")
	assert.Equal(t, 1, agg.TotalSolved)
}

func TestRecordSolvedValidation(t *testing.T) {
	f := newTrackerFixture(t)
	ctx := context.Background()

	future := day(1, 10).Add(time.Hour)
	tests := map[string]models.SolveRequest{
		"missing problem id":   {Difficulty: "easy"},
		"unknown difficulty":   {ProblemID: "p9", Difficulty: "brutal"},
		"missing difficulty":   {ProblemID: "not-in-bank"},
		"solved in the future": {ProblemID: "p9", Difficulty: "easy", SolvedAt: &future},
	}
	for name, req := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := f.tracker.RecordSolved(ctx, "u1", req)
			assert.ErrorIs(t, err, ErrInvalidSolve)
		})
	}

	_, err := f.tracker.RecordSolved(ctx, "ghost", models.SolveRequest{ProblemID: "p1", Difficulty: "easy"})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestRecordSolvedFillsFromCatalog(t *testing.T) {
	f := newTrackerFixture(t)

	resp, err := f.tracker.RecordSolved(context.Background(), "u1", models.SolveRequest{ProblemID: "coin-change"})
	require.NoError(t, err)

	assert.Equal(t, models.DifficultyMedium, resp.Solved.Difficulty)
	assert.Equal(t, []models.Topic{models.TopicDynamicProgramming}, resp.Solved.Topics)
	assert.Equal(t, "Coin Change", resp.Solved.Title)
	assert.Equal(t, 1, resp.Progress.TopicProgress[models.TopicDynamicProgramming])
}

func TestRecordSolvedIgnoresUnknownTopics(t *testing.T) {
	f := newTrackerFixture(t)

	resp, err := f.tracker.RecordSolved(context.Background(), "u1", models.SolveRequest{
		ProblemID:  "p1",
		Difficulty: "easy",
		Topics:     []string{"Two Pointers", "astrology"},
	})
	require.NoError(t, err)
	assert.Equal(t, []models.Topic{models.TopicTwoPointers}, resp.Solved.Topics)
}

func TestRecordSolvedFlagsTodaysProblem(t *testing.T) {
	f := newTrackerFixture(t)

	today := f.bank.TodaysProblem(day(1, 10), utc)
	require.NotNil(t, today)

	resp, err := f.tracker.RecordSolved(context.Background(), "u1", models.SolveRequest{ProblemID: today.ID})
	require.NoError(t, err)
	assert.True(t, resp.Solved.IsTodaysProblem)
	assert.Equal(t, 1, resp.Progress.TodaysProblemStreak)
}

func TestRecordSolvedSerializesPerUser(t *testing.T) {
	f := newTrackerFixture(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.tracker.RecordSolved(ctx, "u1", models.SolveRequest{
				ProblemID:  "concurrent-" + string(rune('a'+i)),
				Difficulty: "medium",
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	agg, err := f.repo.GetProgress(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 20, agg.TotalSolved)
	assert.Equal(t, 1200+20*20, agg.CurrentRating)
	assert.Equal(t, 20, agg.DifficultyProgress[models.DifficultyMedium])
}

func TestProgressCreatesAggregateLazily(t *testing.T) {
	f := newTrackerFixture(t)

	stats, err := f.tracker.Progress(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 1200, stats.Progress.CurrentRating)
	assert.Zero(t, stats.TotalProblems)
	assert.NotNil(t, stats.TodaysProblem)

	stored, err := f.repo.GetProgress(context.Background(), "u1")
	require.NoError(t, err)
	require.NotNil(t, stored)

	_, err = f.tracker.Progress(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestRefreshRollupsIsIdempotent(t *testing.T) {
	f := newTrackerFixture(t)
	f.solveAt(t, "p1", "easy", day(1, 9))
	f.solveAt(t, "p2", "easy", day(10, 9))
	f.solveAt(t, "p3", "easy", day(15, 9))

	asOf := day(20, 9)
	first, err := f.tracker.RefreshRollups(context.Background(), "u1", asOf)
	require.NoError(t, err)
	second, err := f.tracker.RefreshRollups(context.Background(), "u1", asOf)
	require.NoError(t, err)

	assert.Equal(t, 1, first.SolvedThisWeek)
	assert.Equal(t, 3, first.SolvedThisMonth)
	assert.Equal(t, 3, first.TotalSolved)
	assert.Equal(t, first.SolvedThisWeek, second.SolvedThisWeek)
	assert.Equal(t, first.SolvedThisMonth, second.SolvedThisMonth)
	assert.Zero(t, second.CurrentStreak, "streak lapsed by day 20")
	assert.Equal(t, 1, second.LongestStreak)

	stored, err := f.repo.GetProgress(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, stored.CurrentStreak)
}

func TestUpdateGoals(t *testing.T) {
	f := newTrackerFixture(t)
	ctx := context.Background()

	daily, weekly := 5, 30
	agg, err := f.tracker.UpdateGoals(ctx, "u1", models.GoalsRequest{DailyGoal: &daily, WeeklyGoal: &weekly})
	require.NoError(t, err)
	assert.Equal(t, 5, agg.DailyGoal)
	assert.Equal(t, 30, agg.WeeklyGoal)

	zero := 0
	_, err = f.tracker.UpdateGoals(ctx, "u1", models.GoalsRequest{DailyGoal: &zero})
	assert.ErrorIs(t, err, ErrInvalidGoal)

	recs, err := f.tracker.Recommendations(ctx, "u1")
	require.NoError(t, err)
	for _, r := range recs {
		if r.Type == models.RecommendWeeklyGoal {
			assert.Equal(t, 30, *r.Remaining)
		}
	}
}

func TestSolvedProblemsAndDelete(t *testing.T) {
	f := newTrackerFixture(t)
	ctx := context.Background()
	f.solveAt(t, "p1", "easy", day(1, 9))
	f.solveAt(t, "p2", "hard", day(2, 9))

	list, err := f.tracker.SolvedProblems(ctx, "u1", models.SolvedFilters{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "p2", list[0].ProblemID, "newest first")

	hard, err := f.tracker.SolvedProblems(ctx, "u1", models.SolvedFilters{Difficulty: models.DifficultyHard})
	require.NoError(t, err)
	assert.Len(t, hard, 1)

	require.NoError(t, f.tracker.DeleteUserData(ctx, "u1"))
	assert.ErrorIs(t, f.tracker.DeleteUserData(ctx, "u1"), ErrUserNotFound)

	agg, err := f.repo.GetProgress(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, agg)
}
