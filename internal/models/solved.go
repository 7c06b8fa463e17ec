package models

import "time"

// SolvedProblem is an append-only solved log entry, unique per (user, problem)
type SolvedProblem struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	ProblemID  string     `json:"problem_id"`
	Title      string     `json:"title,omitempty"`
	Platform   string     `json:"platform,omitempty"`
	URL        string     `json:"url,omitempty"`
	Difficulty Difficulty `json:"difficulty"`
	Topics     []Topic    `json:"topics"`
	SolvedAt   time.Time  `json:"solved_at"`

	Solution SolutionMeta `json:"solution"`

	IsTodaysProblem bool      `json:"is_todays_problem"`
	CreatedAt       time.Time `json:"created_at"`
}

// SolutionMeta holds the user's notes about how the problem was solved
type SolutionMeta struct {
	Language         string `json:"language,omitempty"`
	Code             string `json:"code,omitempty"`
	Notes            string `json:"notes,omitempty"`
	TimeTakenMinutes int    `json:"time_taken_minutes,omitempty"`
	Attempts         int    `json:"attempts,omitempty"`
}

// SolvedFilters narrows a solved log listing
type SolvedFilters struct {
	Difficulty Difficulty
	Topic      Topic
	Since      *time.Time
	Limit      int
	Offset     int
}

// SolveRequest is the problem-solved intake payload
type SolveRequest struct {
	ProblemID  string       `json:"problem_id"`
	Title      string       `json:"title,omitempty"`
	Platform   string       `json:"platform,omitempty"`
	URL        string       `json:"url,omitempty"`
	Difficulty string       `json:"difficulty"`
	Topics     []string     `json:"topics"`
	SolvedAt   *time.Time   `json:"solved_at,omitempty"`
	Solution   SolutionMeta `json:"solution"`
}

// SolveResponse is returned after a solve is recorded
type SolveResponse struct {
	Solved          *SolvedProblem     `json:"solved"`
	Progress        *ProgressAggregate `json:"progress"`
	Recommendations []Recommendation   `json:"recommendations"`
}

// GoalsRequest updates the user's daily and weekly targets
type GoalsRequest struct {
	DailyGoal  *int `json:"daily_goal,omitempty"`
	WeeklyGoal *int `json:"weekly_goal,omitempty"`
}
