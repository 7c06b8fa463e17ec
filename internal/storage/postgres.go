package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/terra-clan/dsa-tracker/internal/models"
)

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	DSN          string
	MaxOpenConns int32
	MaxIdleConns int32
	MaxLifetime  time.Duration
}

// scanner is satisfied by pgx.Row and pgx.Rows
type scanner interface {
	Scan(dest ...any) error
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(ctx context.Context, cfg PostgresConfig) (*PostgresRepository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	poolConfig.MaxConns = 25
	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = cfg.MaxOpenConns
	}
	poolConfig.MinConns = 2
	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = cfg.MaxIdleConns
	}
	poolConfig.MaxConnLifetime = 30 * time.Minute
	if cfg.MaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{pool: pool}, nil
}

// Ping checks database connectivity
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close closes the database connection pool
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// --- Users ---

const userColumns = `id, name, email, api_key, is_active, is_admin, notify_enabled, reminder_lead_time, notify_channel, created_at, last_used_at`

// CreateUser inserts a new user
func (r *PostgresRepository) CreateUser(ctx context.Context, u *models.User) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT DO NOTHING
	`

	result, err := r.pool.Exec(ctx, query,
		u.ID,
		u.Name,
		nullString(u.Email),
		u.ApiKey,
		u.IsActive,
		u.IsAdmin,
		u.Notifications.Enabled,
		u.Notifications.ReminderLeadTime,
		string(u.Notifications.Channel),
		u.CreatedAt,
		nullTime(u.LastUsedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("user %s: %w", u.ID, ErrDuplicate)
	}
	return nil
}

// GetUser retrieves a user by ID
func (r *PostgresRepository) GetUser(ctx context.Context, id string) (*models.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// GetUserByApiKey retrieves a user by API key
func (r *PostgresRepository) GetUserByApiKey(ctx context.Context, apiKey string) (*models.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE api_key = $1`, apiKey)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by api key: %w", err)
	}
	return u, nil
}

// UpdateUserSettings replaces a user's notification settings
func (r *PostgresRepository) UpdateUserSettings(ctx context.Context, id string, s models.NotificationSettings) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE users SET notify_enabled = $2, reminder_lead_time = $3, notify_channel = $4
		WHERE id = $1
	`, id, s.Enabled, s.ReminderLeadTime, string(s.Channel))
	if err != nil {
		return fmt.Errorf("failed to update user settings: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return nil
}

// UpdateUserLastUsed updates the last_used_at timestamp for an API key
func (r *PostgresRepository) UpdateUserLastUsed(ctx context.Context, apiKey string) error {
	_, err := r.pool.Exec(ctx, `UPDATE users SET last_used_at = NOW() WHERE api_key = $1`, apiKey)
	if err != nil {
		return fmt.Errorf("failed to update last_used_at: %w", err)
	}
	return nil
}

// DeleteUser deletes a user; progress, solved log and tasks cascade
func (r *PostgresRepository) DeleteUser(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return nil
}

func scanUser(row scanner) (*models.User, error) {
	var u models.User
	var email sql.NullString
	var channel string
	var lastUsed sql.NullTime

	err := row.Scan(
		&u.ID,
		&u.Name,
		&email,
		&u.ApiKey,
		&u.IsActive,
		&u.IsAdmin,
		&u.Notifications.Enabled,
		&u.Notifications.ReminderLeadTime,
		&channel,
		&u.CreatedAt,
		&lastUsed,
	)
	if err != nil {
		return nil, err
	}

	u.Email = email.String
	u.Notifications.Channel = models.NotificationChannel(channel)
	if lastUsed.Valid {
		u.LastUsedAt = &lastUsed.Time
	}
	return &u, nil
}

// --- Progress ---

const progressColumns = `user_id, current_streak, longest_streak, last_activity_date,
	todays_problem_streak, longest_todays_problem_streak, last_todays_problem_date,
	total_solved, solved_this_week, solved_this_month, current_rating, highest_rating,
	topic_progress, difficulty_progress, daily_goal, weekly_goal, created_at, updated_at`

const upsertProgressQuery = `
	INSERT INTO progress (` + progressColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	ON CONFLICT (user_id) DO UPDATE SET
		current_streak = EXCLUDED.current_streak,
		longest_streak = EXCLUDED.longest_streak,
		last_activity_date = EXCLUDED.last_activity_date,
		todays_problem_streak = EXCLUDED.todays_problem_streak,
		longest_todays_problem_streak = EXCLUDED.longest_todays_problem_streak,
		last_todays_problem_date = EXCLUDED.last_todays_problem_date,
		total_solved = EXCLUDED.total_solved,
		solved_this_week = EXCLUDED.solved_this_week,
		solved_this_month = EXCLUDED.solved_this_month,
		current_rating = EXCLUDED.current_rating,
		highest_rating = EXCLUDED.highest_rating,
		topic_progress = EXCLUDED.topic_progress,
		difficulty_progress = EXCLUDED.difficulty_progress,
		daily_goal = EXCLUDED.daily_goal,
		weekly_goal = EXCLUDED.weekly_goal,
		updated_at = EXCLUDED.updated_at
`

// GetProgress retrieves a user's aggregate
func (r *PostgresRepository) GetProgress(ctx context.Context, userID string) (*models.ProgressAggregate, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+progressColumns+` FROM progress WHERE user_id = $1`, userID)

	var p models.ProgressAggregate
	var lastActivity, lastTodays sql.NullTime
	var topicJSON, difficultyJSON []byte

	err := row.Scan(
		&p.UserID,
		&p.CurrentStreak,
		&p.LongestStreak,
		&lastActivity,
		&p.TodaysProblemStreak,
		&p.LongestTodaysProblemStreak,
		&lastTodays,
		&p.TotalSolved,
		&p.SolvedThisWeek,
		&p.SolvedThisMonth,
		&p.CurrentRating,
		&p.HighestRating,
		&topicJSON,
		&difficultyJSON,
		&p.DailyGoal,
		&p.WeeklyGoal,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get progress: %w", err)
	}

	if lastActivity.Valid {
		p.LastActivityDate = &lastActivity.Time
	}
	if lastTodays.Valid {
		p.LastTodaysProblemDate = &lastTodays.Time
	}

	p.TopicProgress = make(map[models.Topic]int)
	if err := json.Unmarshal(topicJSON, &p.TopicProgress); err != nil {
		return nil, fmt.Errorf("failed to unmarshal topic progress: %w", err)
	}
	p.DifficultyProgress = make(map[models.Difficulty]int)
	if err := json.Unmarshal(difficultyJSON, &p.DifficultyProgress); err != nil {
		return nil, fmt.Errorf("failed to unmarshal difficulty progress: %w", err)
	}

	return &p, nil
}

// SaveProgress upserts a user's aggregate
func (r *PostgresRepository) SaveProgress(ctx context.Context, p *models.ProgressAggregate) error {
	args, err := progressArgs(p)
	if err != nil {
		return err
	}
	if _, err := r.pool.Exec(ctx, upsertProgressQuery, args...); err != nil {
		return fmt.Errorf("failed to save progress: %w", err)
	}
	return nil
}

func progressArgs(p *models.ProgressAggregate) ([]any, error) {
	topicJSON, err := json.Marshal(p.TopicProgress)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal topic progress: %w", err)
	}
	difficultyJSON, err := json.Marshal(p.DifficultyProgress)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal difficulty progress: %w", err)
	}

	return []any{
		p.UserID,
		p.CurrentStreak,
		p.LongestStreak,
		nullTime(p.LastActivityDate),
		p.TodaysProblemStreak,
		p.LongestTodaysProblemStreak,
		nullTime(p.LastTodaysProblemDate),
		p.TotalSolved,
		p.SolvedThisWeek,
		p.SolvedThisMonth,
		p.CurrentRating,
		p.HighestRating,
		topicJSON,
		difficultyJSON,
		p.DailyGoal,
		p.WeeklyGoal,
		p.CreatedAt,
		p.UpdatedAt,
	}, nil
}

// --- Solved log ---

const solvedColumns = `id, user_id, problem_id, title, platform, url, difficulty, topics, solved_at, solution, is_todays_problem, created_at`

// RecordSolve appends to the solved log and saves the aggregate in one transaction
func (r *PostgresRepository) RecordSolve(ctx context.Context, sp *models.SolvedProblem, p *models.ProgressAggregate) error {
	solutionJSON, err := json.Marshal(sp.Solution)
	if err != nil {
		return fmt.Errorf("failed to marshal solution: %w", err)
	}
	progress, err := progressArgs(p)
	if err != nil {
		return err
	}

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		result, err := tx.Exec(ctx, `
			INSERT INTO solved_problems (`+solvedColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			ON CONFLICT (user_id, problem_id) DO NOTHING
		`,
			sp.ID,
			sp.UserID,
			sp.ProblemID,
			nullString(sp.Title),
			nullString(sp.Platform),
			nullString(sp.URL),
			string(sp.Difficulty),
			topicStrings(sp.Topics),
			sp.SolvedAt,
			solutionJSON,
			sp.IsTodaysProblem,
			sp.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert solved problem: %w", err)
		}
		if result.RowsAffected() == 0 {
			return fmt.Errorf("problem %s: %w", sp.ProblemID, ErrDuplicate)
		}

		if _, err := tx.Exec(ctx, upsertProgressQuery, progress...); err != nil {
			return fmt.Errorf("failed to save progress: %w", err)
		}
		return nil
	})
}

// HasSolved reports whether the user already solved problemID
func (r *PostgresRepository) HasSolved(ctx context.Context, userID, problemID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM solved_problems WHERE user_id = $1 AND problem_id = $2)`,
		userID, problemID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check solved problem: %w", err)
	}
	return exists, nil
}

// ListSolved returns the user's solved log, newest first
func (r *PostgresRepository) ListSolved(ctx context.Context, userID string, filters models.SolvedFilters) ([]*models.SolvedProblem, error) {
	query := `SELECT ` + solvedColumns + ` FROM solved_problems WHERE user_id = $1`
	args := []any{userID}
	argNum := 2

	if filters.Difficulty != "" {
		query += fmt.Sprintf(" AND difficulty = $%d", argNum)
		args = append(args, string(filters.Difficulty))
		argNum++
	}
	if filters.Topic != "" {
		query += fmt.Sprintf(" AND $%d = ANY(topics)", argNum)
		args = append(args, string(filters.Topic))
		argNum++
	}
	if filters.Since != nil {
		query += fmt.Sprintf(" AND solved_at >= $%d", argNum)
		args = append(args, *filters.Since)
		argNum++
	}

	query += " ORDER BY solved_at DESC"

	if filters.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argNum)
		args = append(args, filters.Limit)
		argNum++
	}
	if filters.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argNum)
		args = append(args, filters.Offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list solved problems: %w", err)
	}
	defer rows.Close()

	var result []*models.SolvedProblem
	for rows.Next() {
		sp, err := scanSolved(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan solved problem: %w", err)
		}
		result = append(result, sp)
	}
	return result, rows.Err()
}

// CountSolved counts the user's log entries solved at or after since
func (r *PostgresRepository) CountSolved(ctx context.Context, userID string, since *time.Time) (int, error) {
	var count int
	var err error
	if since == nil {
		err = r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM solved_problems WHERE user_id = $1`, userID).Scan(&count)
	} else {
		err = r.pool.QueryRow(ctx,
			`SELECT COUNT(*) FROM solved_problems WHERE user_id = $1 AND solved_at >= $2`,
			userID, *since,
		).Scan(&count)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to count solved problems: %w", err)
	}
	return count, nil
}

func scanSolved(row scanner) (*models.SolvedProblem, error) {
	var sp models.SolvedProblem
	var title, platform, url sql.NullString
	var difficulty string
	var topics []string
	var solutionJSON []byte

	err := row.Scan(
		&sp.ID,
		&sp.UserID,
		&sp.ProblemID,
		&title,
		&platform,
		&url,
		&difficulty,
		&topics,
		&sp.SolvedAt,
		&solutionJSON,
		&sp.IsTodaysProblem,
		&sp.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	sp.Title = title.String
	sp.Platform = platform.String
	sp.URL = url.String
	sp.Difficulty = models.Difficulty(difficulty)
	sp.Topics = make([]models.Topic, 0, len(topics))
	for _, t := range topics {
		sp.Topics = append(sp.Topics, models.Topic(t))
	}
	if len(solutionJSON) > 0 {
		if err := json.Unmarshal(solutionJSON, &sp.Solution); err != nil {
			return nil, fmt.Errorf("failed to unmarshal solution: %w", err)
		}
	}
	return &sp, nil
}

// --- Tasks ---

const taskColumns = `id, user_id, title, description, category, priority, deadline, completed, completed_at, time_spent, notification_sent, created_at, updated_at`

// CreateTask inserts a new task
func (r *PostgresRepository) CreateTask(ctx context.Context, t *models.Task) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`,
		t.ID,
		t.UserID,
		t.Title,
		nullString(t.Description),
		string(t.Category),
		string(t.Priority),
		nullTime(t.Deadline),
		t.Completed,
		nullTime(t.CompletedAt),
		t.TimeSpent,
		t.NotificationSent,
		t.CreatedAt,
		t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

// GetTask retrieves a task owned by userID
func (r *PostgresRepository) GetTask(ctx context.Context, userID, id string) (*models.Task, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1 AND user_id = $2`, id, userID)
	t, err := scanTask(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return t, nil
}

// UpdateTask replaces the mutable fields of a task. notification_sent is
// only cleared when resetLatch is set; the stored value is read back into t.
func (r *PostgresRepository) UpdateTask(ctx context.Context, t *models.Task, resetLatch bool) error {
	err := r.pool.QueryRow(ctx, `
		UPDATE tasks
		SET title = $3, description = $4, category = $5, priority = $6, deadline = $7,
			completed = $8, completed_at = $9, time_spent = $10,
			notification_sent = CASE WHEN $11::boolean THEN FALSE ELSE notification_sent END,
			updated_at = $12
		WHERE id = $1 AND user_id = $2
		RETURNING notification_sent
	`,
		t.ID,
		t.UserID,
		t.Title,
		nullString(t.Description),
		string(t.Category),
		string(t.Priority),
		nullTime(t.Deadline),
		t.Completed,
		nullTime(t.CompletedAt),
		t.TimeSpent,
		resetLatch,
		t.UpdatedAt,
	).Scan(&t.NotificationSent)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("task %s: %w", t.ID, ErrNotFound)
		}
		return fmt.Errorf("failed to update task: %w", err)
	}
	return nil
}

// DeleteTask deletes a task owned by userID
func (r *PostgresRepository) DeleteTask(ctx context.Context, userID, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return nil
}

// ListTasks returns the user's tasks ordered by deadline, undated last
func (r *PostgresRepository) ListTasks(ctx context.Context, userID string, filters models.TaskFilters) ([]*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE user_id = $1`
	args := []any{userID}
	argNum := 2

	if filters.Category != "" {
		query += fmt.Sprintf(" AND category = $%d", argNum)
		args = append(args, string(filters.Category))
		argNum++
	}
	if filters.Priority != "" {
		query += fmt.Sprintf(" AND priority = $%d", argNum)
		args = append(args, string(filters.Priority))
		argNum++
	}
	if filters.Completed != nil {
		query += fmt.Sprintf(" AND completed = $%d", argNum)
		args = append(args, *filters.Completed)
		argNum++
	}

	query += " ORDER BY deadline ASC NULLS LAST, created_at DESC"

	if filters.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argNum)
		args = append(args, filters.Limit)
		argNum++
	}
	if filters.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argNum)
		args = append(args, filters.Offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// ListReminderCandidates returns pending, unnotified tasks due after now
// whose owners have reminders enabled
func (r *PostgresRepository) ListReminderCandidates(ctx context.Context, now time.Time) ([]models.ReminderCandidate, error) {
	query := `
		SELECT t.id, t.user_id, t.title, t.description, t.category, t.priority, t.deadline, t.completed,
			t.completed_at, t.time_spent, t.notification_sent, t.created_at, t.updated_at,
			u.id, u.name, u.email, u.api_key, u.is_active, u.is_admin, u.notify_enabled,
			u.reminder_lead_time, u.notify_channel, u.created_at, u.last_used_at
		FROM tasks t
		JOIN users u ON u.id = t.user_id
		WHERE t.completed = FALSE
		  AND t.notification_sent = FALSE
		  AND t.deadline IS NOT NULL
		  AND t.deadline > $1
		  AND u.is_active = TRUE
		  AND u.notify_enabled = TRUE
		ORDER BY t.deadline ASC
	`

	rows, err := r.pool.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list reminder candidates: %w", err)
	}
	defer rows.Close()

	var result []models.ReminderCandidate
	for rows.Next() {
		t, u, err := scanTaskWithOwner(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reminder candidate: %w", err)
		}
		result = append(result, models.ReminderCandidate{
			Task:     t,
			User:     u,
			LeadTime: u.Notifications.LeadTime(),
		})
	}
	return result, rows.Err()
}

// MarkNotificationSent flips the task's latch if it is still unset
func (r *PostgresRepository) MarkNotificationSent(ctx context.Context, taskID string) (bool, error) {
	result, err := r.pool.Exec(ctx, `
		UPDATE tasks SET notification_sent = TRUE, updated_at = NOW()
		WHERE id = $1 AND notification_sent = FALSE
	`, taskID)
	if err != nil {
		return false, fmt.Errorf("failed to mark notification sent: %w", err)
	}
	if result.RowsAffected() == 1 {
		return true, nil
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tasks WHERE id = $1)`, taskID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check task: %w", err)
	}
	if !exists {
		return false, fmt.Errorf("task %s: %w", taskID, ErrNotFound)
	}
	return false, nil
}

func taskDest(t *models.Task, description *sql.NullString, category, priority *string, deadline, completedAt *sql.NullTime) []any {
	return []any{
		&t.ID,
		&t.UserID,
		&t.Title,
		description,
		category,
		priority,
		deadline,
		&t.Completed,
		completedAt,
		&t.TimeSpent,
		&t.NotificationSent,
		&t.CreatedAt,
		&t.UpdatedAt,
	}
}

func finishTask(t *models.Task, description sql.NullString, category, priority string, deadline, completedAt sql.NullTime) {
	t.Description = description.String
	t.Category = models.TaskCategory(category)
	t.Priority = models.TaskPriority(priority)
	if deadline.Valid {
		t.Deadline = &deadline.Time
	}
	if completedAt.Valid {
		t.CompletedAt = &completedAt.Time
	}
}

func scanTask(row scanner) (*models.Task, error) {
	var t models.Task
	var description sql.NullString
	var category, priority string
	var deadline, completedAt sql.NullTime

	if err := row.Scan(taskDest(&t, &description, &category, &priority, &deadline, &completedAt)...); err != nil {
		return nil, err
	}
	finishTask(&t, description, category, priority, deadline, completedAt)
	return &t, nil
}

func scanTaskWithOwner(row scanner) (*models.Task, *models.User, error) {
	var t models.Task
	var description sql.NullString
	var category, priority string
	var deadline, completedAt sql.NullTime

	var u models.User
	var email sql.NullString
	var channel string
	var lastUsed sql.NullTime

	dest := taskDest(&t, &description, &category, &priority, &deadline, &completedAt)
	dest = append(dest,
		&u.ID,
		&u.Name,
		&email,
		&u.ApiKey,
		&u.IsActive,
		&u.IsAdmin,
		&u.Notifications.Enabled,
		&u.Notifications.ReminderLeadTime,
		&channel,
		&u.CreatedAt,
		&lastUsed,
	)
	if err := row.Scan(dest...); err != nil {
		return nil, nil, err
	}

	finishTask(&t, description, category, priority, deadline, completedAt)
	u.Email = email.String
	u.Notifications.Channel = models.NotificationChannel(channel)
	if lastUsed.Valid {
		u.LastUsedAt = &lastUsed.Time
	}
	return &t, &u, nil
}

// Helper functions for nullable values

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func topicStrings(topics []models.Topic) []string {
	out := make([]string, 0, len(topics))
	for _, t := range topics {
		out = append(out, string(t))
	}
	return out
}
