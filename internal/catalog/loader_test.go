package catalog

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/dsa-tracker/internal/models"
)

const sampleBank = `
curriculum: [Graphs, "Dynamic Programming", arrays]
problems:
  - id: p1
    title: One
    platform: leetcode
    difficulty: Easy
    topics: [arrays, hashing]
  - id: p2
    title: Two
    platform: codeforces
    difficulty: medium
    topics: [graphs]
  - id: p3
    title: Three
    platform: leetcode
    difficulty: hard
    topics: [dynamic_programming]
`

func TestLoad(t *testing.T) {
	l := NewLoader()
	require.NoError(t, l.Load([]byte(sampleBank)))

	assert.Equal(t, 3, l.Len())
	assert.Equal(t,
		[]models.Topic{models.TopicGraphs, models.TopicDynamicProgramming, models.TopicArrays},
		l.Curriculum())

	p := l.Get("p1")
	require.NotNil(t, p)
	assert.Equal(t, models.DifficultyEasy, p.Difficulty)
	assert.Equal(t, []models.Topic{models.TopicArrays, models.TopicHashing}, p.Topics)

	assert.Equal(t, models.TopicDynamicProgramming, l.Get("p3").Topics[0])
	assert.Nil(t, l.Get("missing"))
}

func TestLoadRejectsBadEntries(t *testing.T) {
	tests := map[string]string{
		"bad difficulty": "problems:\n  - {id: x, title: X, difficulty: extreme}\n",
		"bad topic":      "problems:\n  - {id: x, title: X, difficulty: easy, topics: [quantum]}\n",
		"missing id":     "problems:\n  - {title: X, difficulty: easy}\n",
		"bad curriculum": "curriculum: [cooking]\n",
		"bad yaml":       "problems: [",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			l := NewLoader()
			assert.Error(t, l.Load([]byte(doc)))
			assert.Equal(t, 0, l.Len())
		})
	}
}

func TestList(t *testing.T) {
	l := NewLoader()
	require.NoError(t, l.Load([]byte(sampleBank)))

	assert.Len(t, l.List(models.ProblemFilters{}), 3)
	assert.Len(t, l.List(models.ProblemFilters{Platform: "LeetCode"}), 2)

	byTopic := l.List(models.ProblemFilters{Topic: models.TopicGraphs})
	require.Len(t, byTopic, 1)
	assert.Equal(t, "p2", byTopic[0].ID)

	byDifficulty := l.List(models.ProblemFilters{Difficulty: models.DifficultyHard})
	require.Len(t, byDifficulty, 1)
	assert.Equal(t, "p3", byDifficulty[0].ID)
}

func TestCurriculumDefaultsToAllTopics(t *testing.T) {
	l := NewLoader()
	assert.Equal(t, models.AllTopics, l.Curriculum())
}

func TestTodaysProblemRotation(t *testing.T) {
	l := NewLoader()
	assert.Nil(t, l.TodaysProblem(time.Now(), time.UTC))

	require.NoError(t, l.Load([]byte(sampleBank)))

	day := time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)
	first := l.TodaysProblem(day, time.UTC)
	require.NotNil(t, first)

	assert.Equal(t, first, l.TodaysProblem(day.Add(15*time.Hour), time.UTC), "same calendar day")

	seen := map[string]bool{first.ID: true}
	for i := 1; i < 3; i++ {
		seen[l.TodaysProblem(day.AddDate(0, 0, i), time.UTC).ID] = true
	}
	assert.Len(t, seen, 3, "three consecutive days cover the whole bank")

	assert.Equal(t, first, l.TodaysProblem(day.AddDate(0, 0, 3), time.UTC), "rotation wraps")
}

func TestLoadFromDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte(sampleBank), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yml"),
		[]byte("problems:\n  - {id: p4, title: Four, difficulty: easy, topics: [math]}\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("problems: ["), 0o644))

	l := NewLoader()
	require.NoError(t, l.LoadFromDir(dir))
	assert.Equal(t, 4, l.Len())
}

func TestBundledProblemBank(t *testing.T) {
	path := filepath.Join("..", "..", "catalog", "problems.yaml")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Skip("problem bank not found, skipping")
	}

	l := NewLoader()
	require.NoError(t, l.LoadFromFile(path))
	assert.Greater(t, l.Len(), 20)
	assert.Len(t, l.Curriculum(), len(models.AllTopics))

	for _, topic := range models.AllTopics {
		assert.NotEmpty(t, l.List(models.ProblemFilters{Topic: topic}), "topic %s has no problems", topic)
	}
}
