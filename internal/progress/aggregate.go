// Package progress maintains the per-user progress aggregate: streaks,
// rating, topic and difficulty counters, rolling solve counts, and the
// study recommendations derived from them.
package progress

import (
	"time"

	"github.com/terra-clan/dsa-tracker/internal/models"
)

// SolveEvent is a genuinely new solve, already checked against the solved log
type SolveEvent struct {
	Difficulty    models.Difficulty
	Topics        []models.Topic
	SolvedAt      time.Time
	TodaysProblem bool
}

// NewAggregate returns the seed aggregate for a user with no activity
func NewAggregate(userID string, now time.Time) *models.ProgressAggregate {
	return &models.ProgressAggregate{
		UserID:             userID,
		CurrentRating:      models.InitialRating,
		HighestRating:      models.InitialRating,
		TopicProgress:      make(map[models.Topic]int),
		DifficultyProgress: make(map[models.Difficulty]int),
		DailyGoal:          models.DefaultDailyGoal,
		WeeklyGoal:         models.DefaultWeeklyGoal,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

// Apply returns a copy of agg updated for ev. Calendar days are taken in loc.
//
// A solve dated before the last activity day (a late backfill) still counts
// towards rating and counters but leaves the streak untouched.
func Apply(agg *models.ProgressAggregate, ev SolveEvent, loc *time.Location) *models.ProgressAggregate {
	next := agg.Clone()
	if next.TopicProgress == nil {
		next.TopicProgress = make(map[models.Topic]int)
	}
	if next.DifficultyProgress == nil {
		next.DifficultyProgress = make(map[models.Difficulty]int)
	}

	next.CurrentStreak, next.LongestStreak, next.LastActivityDate = advanceStreak(
		next.CurrentStreak, next.LongestStreak, next.LastActivityDate, ev.SolvedAt, loc)

	if ev.TodaysProblem {
		next.TodaysProblemStreak, next.LongestTodaysProblemStreak, next.LastTodaysProblemDate = advanceStreak(
			next.TodaysProblemStreak, next.LongestTodaysProblemStreak, next.LastTodaysProblemDate, ev.SolvedAt, loc)
	}

	if ev.Difficulty.Valid() {
		next.CurrentRating += ev.Difficulty.RatingDelta()
		next.HighestRating = max(next.HighestRating, next.CurrentRating)
		next.DifficultyProgress[ev.Difficulty]++
	}

	seen := make(map[models.Topic]bool, len(ev.Topics))
	for _, t := range ev.Topics {
		if !t.Valid() || seen[t] {
			continue
		}
		seen[t] = true
		next.TopicProgress[t]++
	}

	next.TotalSolved++
	return next
}

// advanceStreak applies one qualifying event on the calendar day of at
func advanceStreak(current, longest int, last *time.Time, at time.Time, loc *time.Location) (int, int, *time.Time) {
	today := StartOfDay(at, loc)

	if last == nil {
		current = 1
	} else {
		switch gap := DaysBetween(*last, today, loc); {
		case gap < 0:
			return current, max(longest, current), last
		case gap == 0:
			if current == 0 {
				current = 1
			}
		case gap == 1:
			current++
		default:
			current = 1
		}
	}

	return current, max(longest, current), &today
}

// ExpireStreaks zeroes streaks whose last qualifying day is more than one
// calendar day before asOf. Longest streaks are kept. Apply it to read copies
// only; the stored streak stays as advanceStreak left it.
func ExpireStreaks(agg *models.ProgressAggregate, asOf time.Time, loc *time.Location) bool {
	changed := false
	if agg.LastActivityDate != nil && agg.CurrentStreak > 0 && DaysBetween(*agg.LastActivityDate, asOf, loc) > 1 {
		agg.CurrentStreak = 0
		changed = true
	}
	if agg.LastTodaysProblemDate != nil && agg.TodaysProblemStreak > 0 && DaysBetween(*agg.LastTodaysProblemDate, asOf, loc) > 1 {
		agg.TodaysProblemStreak = 0
		changed = true
	}
	return changed
}

// Rollups holds the counts recomputed from the solved log
type Rollups struct {
	Week  int
	Month int
	Total int
}

// RollupWindows returns the lower bounds of the weekly and monthly windows
func RollupWindows(asOf time.Time) (week, month time.Time) {
	return asOf.AddDate(0, 0, -7), asOf.AddDate(0, 0, -30)
}

// ApplyRollups stores recomputed counts on the aggregate
func ApplyRollups(agg *models.ProgressAggregate, r Rollups) {
	agg.SolvedThisWeek = r.Week
	agg.SolvedThisMonth = r.Month
	agg.TotalSolved = r.Total
}

// StartOfDay returns midnight of t's calendar day in loc
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// DaysBetween counts calendar days from a to b in loc (negative when b is earlier)
func DaysBetween(a, b time.Time, loc *time.Location) int {
	return civilDay(b, loc) - civilDay(a, loc)
}

func civilDay(t time.Time, loc *time.Location) int {
	if loc == nil {
		loc = time.Local
	}
	y, m, d := t.In(loc).Date()
	return int(time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400)
}
