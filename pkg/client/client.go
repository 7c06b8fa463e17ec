// Package client is a Go SDK for the dsa-tracker API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/terra-clan/dsa-tracker/internal/models"
)

// Client is a Go SDK for dsa-tracker API
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Option configures the client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the client timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new dsa-tracker client
func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError is an error envelope returned by the server
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d: %s - %s", e.StatusCode, e.Code, e.Message)
}

// IsConflict reports whether err is a 409 from the server, e.g. a duplicate solve
func IsConflict(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusConflict
}

// IsNotFound reports whether err is a 404 from the server
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

type envelope[T any] struct {
	Success bool `json:"success"`
	Data    T    `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// SolvedList is a page of the solved log
type SolvedList struct {
	Solved []*models.SolvedProblem `json:"solved"`
	Total  int                     `json:"total"`
}

// SolvedOptions contains options for listing solved problems
type SolvedOptions struct {
	Difficulty string
	Topic      string
	Since      *time.Time
	Limit      int
	Offset     int
}

// TaskOptions contains options for listing tasks
type TaskOptions struct {
	Category  string
	Priority  string
	Completed *bool
	Limit     int
	Offset    int
}

// NotificationSettingsUpdate is a partial settings change
type NotificationSettingsUpdate struct {
	Enabled          *bool                       `json:"enabled,omitempty"`
	ReminderLeadTime *int                        `json:"reminder_lead_time,omitempty"`
	Channel          *models.NotificationChannel `json:"channel,omitempty"`
}

// Solved log

// RecordSolved logs a solved problem and returns the updated progress
func (c *Client) RecordSolved(ctx context.Context, req models.SolveRequest) (*models.SolveResponse, error) {
	return call[*models.SolveResponse](ctx, c, http.MethodPost, "/api/v1/solved", req)
}

// ListSolved retrieves the solved log, newest first
func (c *Client) ListSolved(ctx context.Context, opts SolvedOptions) (*SolvedList, error) {
	q := url.Values{}
	setString(q, "difficulty", opts.Difficulty)
	setString(q, "topic", opts.Topic)
	if opts.Since != nil {
		q.Set("since", opts.Since.Format(time.RFC3339))
	}
	setPaging(q, opts.Limit, opts.Offset)
	return call[*SolvedList](ctx, c, http.MethodGet, withQuery("/api/v1/solved", q), nil)
}

// Progress

// Progress retrieves the caller's progress with fresh rollups
func (c *Client) Progress(ctx context.Context) (*models.ProgressStats, error) {
	return call[*models.ProgressStats](ctx, c, http.MethodGet, "/api/v1/progress", nil)
}

// RefreshProgress recomputes rollups now
func (c *Client) RefreshProgress(ctx context.Context) (*models.ProgressAggregate, error) {
	return call[*models.ProgressAggregate](ctx, c, http.MethodPost, "/api/v1/progress/refresh", nil)
}

// Recommendations retrieves study hints
func (c *Client) Recommendations(ctx context.Context) ([]models.Recommendation, error) {
	result, err := call[struct {
		Recommendations []models.Recommendation `json:"recommendations"`
	}](ctx, c, http.MethodGet, "/api/v1/progress/recommendations", nil)
	if err != nil {
		return nil, err
	}
	return result.Recommendations, nil
}

// UpdateGoals changes the daily and weekly targets
func (c *Client) UpdateGoals(ctx context.Context, req models.GoalsRequest) (*models.ProgressAggregate, error) {
	return call[*models.ProgressAggregate](ctx, c, http.MethodPut, "/api/v1/progress/goals", req)
}

// Notification settings

// NotificationSettings retrieves the caller's reminder settings
func (c *Client) NotificationSettings(ctx context.Context) (*models.NotificationSettings, error) {
	result, err := call[struct {
		Settings *models.NotificationSettings `json:"settings"`
	}](ctx, c, http.MethodGet, "/api/v1/settings/notifications", nil)
	if err != nil {
		return nil, err
	}
	return result.Settings, nil
}

// UpdateNotificationSettings changes the caller's reminder settings
func (c *Client) UpdateNotificationSettings(ctx context.Context, req NotificationSettingsUpdate) (*models.NotificationSettings, error) {
	result, err := call[struct {
		Settings *models.NotificationSettings `json:"settings"`
	}](ctx, c, http.MethodPut, "/api/v1/settings/notifications", req)
	if err != nil {
		return nil, err
	}
	return result.Settings, nil
}

// Tasks

// CreateTask adds a planner task
func (c *Client) CreateTask(ctx context.Context, req models.CreateTaskRequest) (*models.Task, error) {
	return call[*models.Task](ctx, c, http.MethodPost, "/api/v1/tasks", req)
}

// ListTasks retrieves planner tasks ordered by deadline
func (c *Client) ListTasks(ctx context.Context, opts TaskOptions) ([]*models.Task, error) {
	q := url.Values{}
	setString(q, "category", opts.Category)
	setString(q, "priority", opts.Priority)
	if opts.Completed != nil {
		q.Set("completed", strconv.FormatBool(*opts.Completed))
	}
	setPaging(q, opts.Limit, opts.Offset)

	result, err := call[struct {
		Tasks []*models.Task `json:"tasks"`
	}](ctx, c, http.MethodGet, withQuery("/api/v1/tasks", q), nil)
	if err != nil {
		return nil, err
	}
	return result.Tasks, nil
}

// GetTask retrieves a task by ID
func (c *Client) GetTask(ctx context.Context, id string) (*models.Task, error) {
	return call[*models.Task](ctx, c, http.MethodGet, taskPath(id, ""), nil)
}

// UpdateTask edits a task
func (c *Client) UpdateTask(ctx context.Context, id string, req models.UpdateTaskRequest) (*models.Task, error) {
	return call[*models.Task](ctx, c, http.MethodPut, taskPath(id, ""), req)
}

// DeleteTask removes a task
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	_, err := call[json.RawMessage](ctx, c, http.MethodDelete, taskPath(id, ""), nil)
	return err
}

// CompleteTask marks a task completed, adding timeSpent minutes
func (c *Client) CompleteTask(ctx context.Context, id string, timeSpent int) (*models.Task, error) {
	return call[*models.Task](ctx, c, http.MethodPost, taskPath(id, "/complete"), models.CompleteTaskRequest{TimeSpent: timeSpent})
}

// IncompleteTask reopens a completed task
func (c *Client) IncompleteTask(ctx context.Context, id string) (*models.Task, error) {
	return call[*models.Task](ctx, c, http.MethodPost, taskPath(id, "/incomplete"), nil)
}

// MarkNotificationSent sets the task's reminder latch
func (c *Client) MarkNotificationSent(ctx context.Context, id string) (*models.Task, error) {
	return call[*models.Task](ctx, c, http.MethodPost, taskPath(id, "/notification-sent"), nil)
}

// TaskStats retrieves planner statistics
func (c *Client) TaskStats(ctx context.Context) (*models.TaskStats, error) {
	return call[*models.TaskStats](ctx, c, http.MethodGet, "/api/v1/tasks/stats", nil)
}

// Problem bank

// ListProblems retrieves problems from the bank
func (c *Client) ListProblems(ctx context.Context, topic, difficulty string) ([]*models.Problem, error) {
	q := url.Values{}
	setString(q, "topic", topic)
	setString(q, "difficulty", difficulty)

	result, err := call[struct {
		Problems []*models.Problem `json:"problems"`
	}](ctx, c, http.MethodGet, withQuery("/api/v1/problems", q), nil)
	if err != nil {
		return nil, err
	}
	return result.Problems, nil
}

// TodaysProblem retrieves the daily problem
func (c *Client) TodaysProblem(ctx context.Context) (*models.Problem, error) {
	return call[*models.Problem](ctx, c, http.MethodGet, "/api/v1/problems/today", nil)
}

// GetProblem retrieves a problem by ID
func (c *Client) GetProblem(ctx context.Context, id string) (*models.Problem, error) {
	return call[*models.Problem](ctx, c, http.MethodGet, "/api/v1/problems/"+url.PathEscape(id), nil)
}

// Users

// CreateUser creates a user; requires an admin key
func (c *Client) CreateUser(ctx context.Context, req models.CreateUserRequest) (*models.CreateUserResponse, error) {
	return call[*models.CreateUserResponse](ctx, c, http.MethodPost, "/api/v1/users", req)
}

// Me retrieves the authenticated user
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	return call[*models.User](ctx, c, http.MethodGet, "/api/v1/me", nil)
}

// DeleteMe removes the caller's account and all of its data
func (c *Client) DeleteMe(ctx context.Context) error {
	_, err := call[json.RawMessage](ctx, c, http.MethodDelete, "/api/v1/me", nil)
	return err
}

// Health checks if the service is healthy
func (c *Client) Health(ctx context.Context) error {
	_, err := c.doRequest(ctx, http.MethodGet, "/health", nil)
	return err
}

// call performs a request and unwraps the response envelope
func call[T any](ctx context.Context, c *Client, method, path string, in interface{}) (T, error) {
	var zero T

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return zero, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	resp, err := c.doRequest(ctx, method, path, body)
	if err != nil {
		return zero, err
	}

	var result envelope[T]
	if err := json.Unmarshal(resp, &result); err != nil {
		return zero, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if !result.Success {
		apiErr := &APIError{StatusCode: http.StatusOK, Code: "unknown"}
		if result.Error != nil {
			apiErr.Code, apiErr.Message = result.Error.Code, result.Error.Message
		}
		return zero, apiErr
	}

	return result.Data, nil
}

// doRequest performs an HTTP request
func (c *Client) doRequest(ctx context.Context, method, path string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Code: "http_error", Message: strings.TrimSpace(string(respBody))}
		var result envelope[json.RawMessage]
		if json.Unmarshal(respBody, &result) == nil && result.Error != nil {
			apiErr.Code, apiErr.Message = result.Error.Code, result.Error.Message
		}
		return nil, apiErr
	}

	return respBody, nil
}

func taskPath(id, suffix string) string {
	return "/api/v1/tasks/" + url.PathEscape(id) + suffix
}

func withQuery(path string, q url.Values) string {
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}

func setString(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}

func setPaging(q url.Values, limit, offset int) {
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}
}
