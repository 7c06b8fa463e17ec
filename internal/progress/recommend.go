package progress

import (
	"fmt"

	"github.com/terra-clan/dsa-tracker/internal/models"
)

// Recommendation thresholds
const (
	MaxRecommendations  = 3
	topicMasteryCount   = 5
	streakTarget        = 7
	easyMasteryCount    = 10
	mediumStarterTarget = 5
)

// Recommend derives at most three study hints from agg. Topics are scanned
// in curriculum order; only the first topic below the mastery count is
// suggested. An empty curriculum falls back to models.AllTopics.
func Recommend(agg *models.ProgressAggregate, curriculum []models.Topic) []models.Recommendation {
	if agg == nil {
		return nil
	}
	if len(curriculum) == 0 {
		curriculum = models.AllTopics
	}

	recs := make([]models.Recommendation, 0, 4)

	for _, topic := range curriculum {
		count := agg.TopicProgress[topic]
		if count >= topicMasteryCount {
			continue
		}
		priority := models.PriorityMedium
		reason := fmt.Sprintf("You have solved %d %s problems", count, topic.DisplayName())
		if count == 0 {
			priority = models.PriorityHigh
			reason = fmt.Sprintf("You haven't solved any %s problems yet", topic.DisplayName())
		}
		solved := count
		remaining := topicMasteryCount - count
		recs = append(recs, models.Recommendation{
			Type:        models.RecommendTopic,
			Title:       fmt.Sprintf("Practice %s", topic.DisplayName()),
			Description: fmt.Sprintf("Solve %d more %s problems to build a solid foundation", remaining, topic.DisplayName()),
			Action:      "practice_topic",
			Priority:    priority,
			Reason:      reason,
			Topic:       topic,
			Solved:      &solved,
			Remaining:   &remaining,
		})
		break
	}

	if agg.CurrentStreak < streakTarget {
		remaining := streakTarget - agg.CurrentStreak
		recs = append(recs, models.Recommendation{
			Type:        models.RecommendStreak,
			Title:       "Build your streak",
			Description: fmt.Sprintf("Solve at least one problem a day for %d more days to reach a %d-day streak", remaining, streakTarget),
			Action:      "solve_daily",
			Priority:    models.PriorityMedium,
			Reason:      fmt.Sprintf("Your current streak is %d days", agg.CurrentStreak),
			Remaining:   &remaining,
		})
	}

	if agg.SolvedThisWeek < agg.WeeklyGoal {
		remaining := agg.WeeklyGoal - agg.SolvedThisWeek
		recs = append(recs, models.Recommendation{
			Type:        models.RecommendWeeklyGoal,
			Title:       "Reach your weekly goal",
			Description: fmt.Sprintf("Solve %d more problems this week to hit your goal of %d", remaining, agg.WeeklyGoal),
			Action:      "weekly_goal",
			Priority:    models.PriorityMedium,
			Reason:      fmt.Sprintf("%d of %d problems solved this week", agg.SolvedThisWeek, agg.WeeklyGoal),
			Solved:      intPtr(agg.SolvedThisWeek),
			Remaining:   &remaining,
		})
	}

	easy := agg.DifficultyProgress[models.DifficultyEasy]
	medium := agg.DifficultyProgress[models.DifficultyMedium]
	switch {
	case easy < easyMasteryCount:
		remaining := easyMasteryCount - easy
		recs = append(recs, models.Recommendation{
			Type:        models.RecommendDifficulty,
			Title:       "Master easy problems",
			Description: fmt.Sprintf("Solve %d more easy problems before moving on", remaining),
			Action:      "solve_easy",
			Priority:    models.PriorityMedium,
			Reason:      fmt.Sprintf("%d easy problems solved", easy),
			Difficulty:  models.DifficultyEasy,
			Solved:      intPtr(easy),
			Remaining:   &remaining,
		})
	case medium < mediumStarterTarget:
		remaining := mediumStarterTarget - medium
		recs = append(recs, models.Recommendation{
			Type:        models.RecommendDifficulty,
			Title:       "Try medium problems",
			Description: fmt.Sprintf("You're ready for medium problems. Solve %d to get started", remaining),
			Action:      "solve_medium",
			Priority:    models.PriorityHigh,
			Reason:      fmt.Sprintf("%d easy and %d medium problems solved", easy, medium),
			Difficulty:  models.DifficultyMedium,
			Solved:      intPtr(medium),
			Remaining:   &remaining,
		})
	}

	if len(recs) > MaxRecommendations {
		recs = recs[:MaxRecommendations]
	}
	return recs
}

func intPtr(v int) *int { return &v }
