package models

import (
	"time"
)

// TaskCategory groups planner tasks
type TaskCategory string

const (
	CategoryStudy    TaskCategory = "study"
	CategoryPractice TaskCategory = "practice"
	CategoryRevision TaskCategory = "revision"
	CategoryContest  TaskCategory = "contest"
	CategoryProject  TaskCategory = "project"
	CategoryOther    TaskCategory = "other"
)

// Valid reports whether c is a known category
func (c TaskCategory) Valid() bool {
	switch c {
	case CategoryStudy, CategoryPractice, CategoryRevision, CategoryContest, CategoryProject, CategoryOther:
		return true
	}
	return false
}

// TaskPriority ranks planner tasks
type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
)

// Valid reports whether p is a known priority
func (p TaskPriority) Valid() bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh:
		return true
	}
	return false
}

// Task is a study planner item with an optional deadline reminder
type Task struct {
	ID               string       `json:"id"`
	UserID           string       `json:"user_id"`
	Title            string       `json:"title"`
	Description      string       `json:"description,omitempty"`
	Category         TaskCategory `json:"category"`
	Priority         TaskPriority `json:"priority"`
	Deadline         *time.Time   `json:"deadline,omitempty"`
	Completed        bool         `json:"completed"`
	CompletedAt      *time.Time   `json:"completed_at,omitempty"`
	TimeSpent        int          `json:"time_spent"` // minutes
	NotificationSent bool         `json:"notification_sent"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// MinutesUntilDeadline returns the whole minutes left before the deadline.
// ok is false when the task has no deadline.
func (t *Task) MinutesUntilDeadline(now time.Time) (minutes float64, ok bool) {
	if t.Deadline == nil {
		return 0, false
	}
	return t.Deadline.Sub(now).Minutes(), true
}

// IsOverdue reports whether a pending task has passed its deadline
func (t *Task) IsOverdue(now time.Time) bool {
	return !t.Completed && t.Deadline != nil && now.After(*t.Deadline)
}

// TaskFilters narrows a task listing
type TaskFilters struct {
	Category  TaskCategory
	Priority  TaskPriority
	Completed *bool
	Limit     int
	Offset    int
}

// CreateTaskRequest represents a request to create a task
type CreateTaskRequest struct {
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Category    TaskCategory `json:"category,omitempty"`
	Priority    TaskPriority `json:"priority,omitempty"`
	Deadline    *time.Time   `json:"deadline,omitempty"`
	TimeSpent   int          `json:"time_spent,omitempty"`
}

// UpdateTaskRequest carries a partial task edit
type UpdateTaskRequest struct {
	Title         *string       `json:"title,omitempty"`
	Description   *string       `json:"description,omitempty"`
	Category      *TaskCategory `json:"category,omitempty"`
	Priority      *TaskPriority `json:"priority,omitempty"`
	Deadline      *time.Time    `json:"deadline,omitempty"`
	ClearDeadline bool          `json:"clear_deadline,omitempty"`
	TimeSpent     *int          `json:"time_spent,omitempty"`
}

// CompleteTaskRequest optionally adds time spent when completing a task
type CompleteTaskRequest struct {
	TimeSpent int `json:"time_spent,omitempty"`
}

// TaskStats summarizes a user's planner
type TaskStats struct {
	Total           int                  `json:"total"`
	Completed       int                  `json:"completed"`
	Pending         int                  `json:"pending"`
	Overdue         int                  `json:"overdue"`
	DueToday        int                  `json:"due_today"`
	TimeSpent       int                  `json:"time_spent"`
	TimeByCategory  map[TaskCategory]int `json:"time_by_category"`
	CompletionRatio float64              `json:"completion_ratio"`
}

// ReminderCandidate is a pending task paired with its owner's reminder settings
type ReminderCandidate struct {
	Task     *Task
	User     *User
	LeadTime time.Duration
}
