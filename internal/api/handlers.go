package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/terra-clan/dsa-tracker/internal/lock"
	"github.com/terra-clan/dsa-tracker/internal/models"
	"github.com/terra-clan/dsa-tracker/internal/planner"
	"github.com/terra-clan/dsa-tracker/internal/progress"
	"github.com/terra-clan/dsa-tracker/internal/storage"
)

const (
	defaultListLimit = 50
	maxBodyBytes     = 1 << 20
)

// Response helpers

type apiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *apiError   `json:"error,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: false,
		Error: &apiError{
			Code:    code,
			Message: message,
		},
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// respondServiceError maps domain errors to HTTP responses
func respondServiceError(w http.ResponseWriter, err error, action string) {
	switch {
	case errors.Is(err, progress.ErrAlreadySolved):
		respondError(w, http.StatusConflict, "already_solved", "problem already solved")
	case errors.Is(err, progress.ErrUserNotFound):
		respondError(w, http.StatusNotFound, "user_not_found", "user not found")
	case errors.Is(err, planner.ErrTaskNotFound):
		respondError(w, http.StatusNotFound, "not_found", "task not found")
	case errors.Is(err, progress.ErrInvalidSolve),
		errors.Is(err, progress.ErrInvalidGoal),
		errors.Is(err, planner.ErrInvalidTask):
		respondError(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, lock.ErrNotAcquired):
		respondError(w, http.StatusServiceUnavailable, "busy", "another update for this user is in progress, retry shortly")
	default:
		slog.Error("failed to "+action, "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to "+action)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return false
	}
	return true
}

// parsePaging reads limit and offset query parameters
func parsePaging(r *http.Request) (limit, offset int) {
	limit = defaultListLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			offset = o
		}
	}
	return limit, offset
}

// Health handlers

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   s.now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ready, checks := s.deps.Health.Ready(r.Context())
	if !ready {
		respondJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status": "not_ready",
			"checks": checks,
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ready",
		"checks": checks,
	})
}

// User handlers

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req models.CreateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "name is required")
		return
	}

	apiKey, err := models.GenerateApiKey()
	if err != nil {
		slog.Error("failed to generate api key", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to create user")
		return
	}

	user := &models.User{
		ID:            uuid.NewString(),
		Name:          req.Name,
		Email:         strings.TrimSpace(req.Email),
		ApiKey:        apiKey,
		IsActive:      true,
		IsAdmin:       req.Admin,
		Notifications: s.deps.DefaultNotifications,
		CreatedAt:     s.now().UTC(),
	}
	if user.Email == "" && user.Notifications.Channel.Email() {
		user.Notifications.Channel = models.ChannelBrowser
	}

	if err := s.deps.Repo.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			respondError(w, http.StatusConflict, "duplicate", "user already exists")
			return
		}
		slog.Error("failed to create user", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to create user")
		return
	}

	slog.Info("user created", "user_id", user.ID, "key_prefix", user.MaskedApiKey(), "by", UserFromContext(r.Context()).ID)
	respondJSON(w, http.StatusCreated, models.CreateUserResponse{User: user, ApiKey: apiKey})
}

func (s *Server) handleGetMe(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, UserFromContext(r.Context()))
}

func (s *Server) handleDeleteMe(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if err := s.deps.Tracker.DeleteUserData(r.Context(), user.ID); err != nil {
		respondServiceError(w, err, "delete user data")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "user data deleted",
	})
}

// Notification settings handlers

func (s *Server) handleGetNotificationSettings(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"settings":         user.Notifications,
		"lead_time_values": models.ReminderLeadTimes,
	})
}

func (s *Server) handleUpdateNotificationSettings(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	settings := user.Notifications
	var req struct {
		Enabled          *bool                       `json:"enabled"`
		ReminderLeadTime *int                        `json:"reminder_lead_time"`
		Channel          *models.NotificationChannel `json:"channel"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.Enabled != nil {
		settings.Enabled = *req.Enabled
	}
	if req.ReminderLeadTime != nil {
		if !models.ValidLeadTime(*req.ReminderLeadTime) {
			respondError(w, http.StatusBadRequest, "validation_error", "reminder_lead_time must be one of 30, 60, 120 or 1440 minutes")
			return
		}
		settings.ReminderLeadTime = *req.ReminderLeadTime
	}
	if req.Channel != nil {
		if !req.Channel.Valid() {
			respondError(w, http.StatusBadRequest, "validation_error", "channel must be browser, email or both")
			return
		}
		settings.Channel = *req.Channel
	}
	if settings.Channel.Email() && user.Email == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "email delivery requires an email address on the account")
		return
	}

	if err := s.deps.Repo.UpdateUserSettings(r.Context(), user.ID, settings); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "user_not_found", "user not found")
			return
		}
		slog.Error("failed to update notification settings", "error", err, "user_id", user.ID)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to update notification settings")
		return
	}

	slog.Info("notification settings updated",
		"user_id", user.ID,
		"enabled", settings.Enabled,
		"lead_time", settings.ReminderLeadTime,
		"channel", settings.Channel,
	)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"settings": settings,
	})
}

// Solved log handlers

func (s *Server) handleRecordSolved(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	var req models.SolveRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if strings.TrimSpace(req.ProblemID) == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "problem_id is required")
		return
	}

	resp, err := s.deps.Tracker.RecordSolved(r.Context(), user.ID, req)
	if err != nil {
		respondServiceError(w, err, "record solved problem")
		return
	}

	respondJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListSolved(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	q := r.URL.Query()

	var filters models.SolvedFilters
	filters.Limit, filters.Offset = parsePaging(r)

	if v := q.Get("difficulty"); v != "" {
		d, ok := models.ParseDifficulty(v)
		if !ok {
			respondError(w, http.StatusBadRequest, "validation_error", "unknown difficulty: "+v)
			return
		}
		filters.Difficulty = d
	}
	if v := q.Get("topic"); v != "" {
		t, ok := models.ParseTopic(v)
		if !ok {
			respondError(w, http.StatusBadRequest, "validation_error", "unknown topic: "+v)
			return
		}
		filters.Topic = t
	}
	if v := q.Get("since"); v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "validation_error", "since must be an RFC 3339 timestamp")
			return
		}
		filters.Since = &since
	}

	solved, err := s.deps.Tracker.SolvedProblems(r.Context(), user.ID, filters)
	if err != nil {
		respondServiceError(w, err, "list solved problems")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"solved": solved,
		"total":  len(solved),
	})
}

// Progress handlers

func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	stats, err := s.deps.Tracker.Progress(r.Context(), user.ID)
	if err != nil {
		respondServiceError(w, err, "get progress")
		return
	}

	respondJSON(w, http.StatusOK, stats)
}

func (s *Server) handleRefreshProgress(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	agg, err := s.deps.Tracker.RefreshRollups(r.Context(), user.ID, s.now())
	if err != nil {
		respondServiceError(w, err, "refresh progress")
		return
	}

	respondJSON(w, http.StatusOK, agg)
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	recs, err := s.deps.Tracker.Recommendations(r.Context(), user.ID)
	if err != nil {
		respondServiceError(w, err, "get recommendations")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"recommendations": recs,
		"total":           len(recs),
	})
}

func (s *Server) handleUpdateGoals(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	var req models.GoalsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.DailyGoal == nil && req.WeeklyGoal == nil {
		respondError(w, http.StatusBadRequest, "validation_error", "daily_goal or weekly_goal is required")
		return
	}

	agg, err := s.deps.Tracker.UpdateGoals(r.Context(), user.ID, req)
	if err != nil {
		respondServiceError(w, err, "update goals")
		return
	}

	respondJSON(w, http.StatusOK, agg)
}
