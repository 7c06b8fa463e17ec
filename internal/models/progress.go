package models

import "time"

// Seed values for a freshly created aggregate
const (
	InitialRating     = 1200
	DefaultDailyGoal  = 3
	DefaultWeeklyGoal = 15
)

// ProgressAggregate is the per-user denormalized progress record
type ProgressAggregate struct {
	UserID string `json:"user_id"`

	CurrentStreak    int        `json:"current_streak"`
	LongestStreak    int        `json:"longest_streak"`
	LastActivityDate *time.Time `json:"last_activity_date,omitempty"`

	TodaysProblemStreak        int        `json:"todays_problem_streak"`
	LongestTodaysProblemStreak int        `json:"longest_todays_problem_streak"`
	LastTodaysProblemDate      *time.Time `json:"last_todays_problem_date,omitempty"`

	TotalSolved     int `json:"total_solved"`
	SolvedThisWeek  int `json:"solved_this_week"`
	SolvedThisMonth int `json:"solved_this_month"`

	CurrentRating int `json:"current_rating"`
	HighestRating int `json:"highest_rating"`

	TopicProgress      map[Topic]int      `json:"topic_progress"`
	DifficultyProgress map[Difficulty]int `json:"difficulty_progress"`

	DailyGoal  int `json:"daily_goal"`
	WeeklyGoal int `json:"weekly_goal"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy so pure updates never alias the caller's maps
func (p *ProgressAggregate) Clone() *ProgressAggregate {
	if p == nil {
		return nil
	}
	c := *p
	c.TopicProgress = make(map[Topic]int, len(p.TopicProgress))
	for k, v := range p.TopicProgress {
		c.TopicProgress[k] = v
	}
	c.DifficultyProgress = make(map[Difficulty]int, len(p.DifficultyProgress))
	for k, v := range p.DifficultyProgress {
		c.DifficultyProgress[k] = v
	}
	if p.LastActivityDate != nil {
		t := *p.LastActivityDate
		c.LastActivityDate = &t
	}
	if p.LastTodaysProblemDate != nil {
		t := *p.LastTodaysProblemDate
		c.LastTodaysProblemDate = &t
	}
	return &c
}

// ProgressStats is the aggregate read shape: the aggregate plus derived counts
type ProgressStats struct {
	Progress        *ProgressAggregate `json:"progress"`
	WeeklyProblems  int                `json:"weekly_problems"`
	MonthlyProblems int                `json:"monthly_problems"`
	TotalProblems   int                `json:"total_problems"`
	TodaysProblem   *Problem           `json:"todays_problem,omitempty"`
}

// RecommendationPriority orders recommendations for display
type RecommendationPriority string

const (
	PriorityHigh   RecommendationPriority = "high"
	PriorityMedium RecommendationPriority = "medium"
)

// RecommendationType identifies which rule produced a recommendation
type RecommendationType string

const (
	RecommendTopic      RecommendationType = "topic"
	RecommendStreak     RecommendationType = "streak"
	RecommendWeeklyGoal RecommendationType = "weekly_goal"
	RecommendDifficulty RecommendationType = "difficulty"
)

// Recommendation is a study hint derived from a progress aggregate
type Recommendation struct {
	Type        RecommendationType     `json:"type"`
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	Action      string                 `json:"action"`
	Priority    RecommendationPriority `json:"priority"`
	Reason      string                 `json:"reason"`

	Topic      Topic      `json:"topic,omitempty"`
	Difficulty Difficulty `json:"difficulty,omitempty"`
	Solved     *int       `json:"solved,omitempty"`
	Remaining  *int       `json:"remaining,omitempty"`
}
