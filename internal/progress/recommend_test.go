package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/dsa-tracker/internal/models"
)

func masteredAggregate() *models.ProgressAggregate {
	agg := NewAggregate("u1", time.Now())
	for _, t := range models.AllTopics {
		agg.TopicProgress[t] = 5
	}
	agg.CurrentStreak = 7
	agg.LongestStreak = 7
	agg.SolvedThisWeek = 15
	agg.DifficultyProgress[models.DifficultyEasy] = 10
	agg.DifficultyProgress[models.DifficultyMedium] = 5
	return agg
}

func TestRecommendFreshUser(t *testing.T) {
	recs := Recommend(NewAggregate("u1", time.Now()), nil)

	require.Len(t, recs, 3)
	assert.Equal(t, models.RecommendTopic, recs[0].Type)
	assert.Equal(t, models.TopicArrays, recs[0].Topic)
	assert.Equal(t, models.PriorityHigh, recs[0].Priority)
	assert.Equal(t, models.RecommendStreak, recs[1].Type)
	assert.Equal(t, models.PriorityMedium, recs[1].Priority)
	assert.Equal(t, models.RecommendWeeklyGoal, recs[2].Type)
	require.NotNil(t, recs[2].Remaining)
	assert.Equal(t, 15, *recs[2].Remaining)
}

func TestRecommendNothingWhenMastered(t *testing.T) {
	assert.Empty(t, Recommend(masteredAggregate(), nil))
	assert.Nil(t, Recommend(nil, nil))
}

func TestRecommendTopicFollowsCurriculum(t *testing.T) {
	agg := masteredAggregate()
	agg.TopicProgress[models.TopicGraphs] = 2
	agg.TopicProgress[models.TopicTrees] = 0

	recs := Recommend(agg, []models.Topic{models.TopicGraphs, models.TopicTrees})
	require.Len(t, recs, 1)
	assert.Equal(t, models.TopicGraphs, recs[0].Topic)
	assert.Equal(t, models.PriorityMedium, recs[0].Priority, "partially practiced topic is medium")
	assert.Equal(t, 3, *recs[0].Remaining)

	recs = Recommend(agg, []models.Topic{models.TopicTrees, models.TopicGraphs})
	require.Len(t, recs, 1)
	assert.Equal(t, models.TopicTrees, recs[0].Topic)
	assert.Equal(t, models.PriorityHigh, recs[0].Priority)
}

func TestRecommendDifficultyRules(t *testing.T) {
	agg := masteredAggregate()
	agg.DifficultyProgress[models.DifficultyEasy] = 4

	recs := Recommend(agg, nil)
	require.Len(t, recs, 1)
	assert.Equal(t, "Master easy problems", recs[0].Title)
	assert.Equal(t, models.PriorityMedium, recs[0].Priority)

	agg.DifficultyProgress[models.DifficultyEasy] = 10
	agg.DifficultyProgress[models.DifficultyMedium] = 1
	recs = Recommend(agg, nil)
	require.Len(t, recs, 1)
	assert.Equal(t, "Try medium problems", recs[0].Title)
	assert.Equal(t, models.PriorityHigh, recs[0].Priority)
	assert.Equal(t, models.DifficultyMedium, recs[0].Difficulty)
}

func TestRecommendTruncatesInRuleOrder(t *testing.T) {
	agg := masteredAggregate()
	agg.CurrentStreak = 1
	agg.SolvedThisWeek = 3
	agg.DifficultyProgress[models.DifficultyEasy] = 0

	recs := Recommend(agg, nil)
	require.Len(t, recs, 3)
	assert.Equal(t, models.RecommendStreak, recs[0].Type)
	assert.Equal(t, models.RecommendWeeklyGoal, recs[1].Type)
	assert.Equal(t, models.RecommendDifficulty, recs[2].Type)
}

func TestRecommendNeverSuggestsMasteredTopic(t *testing.T) {
	agg := NewAggregate("u1", time.Now())
	for i, topic := range models.AllTopics {
		agg.TopicProgress[topic] = i % 7
	}
	for n := 0; n < 50; n++ {
		agg.CurrentStreak = n % 9
		agg.SolvedThisWeek = n % 17
		recs := Recommend(agg, nil)
		assert.LessOrEqual(t, len(recs), MaxRecommendations)
		for _, r := range recs {
			if r.Type == models.RecommendTopic {
				assert.Less(t, agg.TopicProgress[r.Topic], 5)
			}
		}
	}
}
