package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/terra-clan/dsa-tracker/internal/models"
)

// Planner task handlers

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	var req models.CreateTaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	task, err := s.deps.Planner.Create(r.Context(), user.ID, req)
	if err != nil {
		respondServiceError(w, err, "create task")
		return
	}

	respondJSON(w, http.StatusCreated, task)
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	q := r.URL.Query()

	filters := models.TaskFilters{
		Category: models.TaskCategory(q.Get("category")),
		Priority: models.TaskPriority(q.Get("priority")),
	}
	filters.Limit, filters.Offset = parsePaging(r)

	if filters.Category != "" && !filters.Category.Valid() {
		respondError(w, http.StatusBadRequest, "validation_error", "unknown category: "+string(filters.Category))
		return
	}
	if filters.Priority != "" && !filters.Priority.Valid() {
		respondError(w, http.StatusBadRequest, "validation_error", "unknown priority: "+string(filters.Priority))
		return
	}
	if v := q.Get("completed"); v != "" {
		completed, err := strconv.ParseBool(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "validation_error", "completed must be true or false")
			return
		}
		filters.Completed = &completed
	}

	tasks, err := s.deps.Planner.List(r.Context(), user.ID, filters)
	if err != nil {
		respondServiceError(w, err, "list tasks")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"tasks": tasks,
		"total": len(tasks),
	})
}

func (s *Server) handleTaskStats(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	stats, err := s.deps.Planner.Stats(r.Context(), user.ID)
	if err != nil {
		respondServiceError(w, err, "get task stats")
		return
	}

	respondJSON(w, http.StatusOK, stats)
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	id := chi.URLParam(r, "id")

	task, err := s.deps.Planner.Get(r.Context(), user.ID, id)
	if err != nil {
		respondServiceError(w, err, "get task")
		return
	}

	respondJSON(w, http.StatusOK, task)
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	id := chi.URLParam(r, "id")

	var req models.UpdateTaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	task, err := s.deps.Planner.Update(r.Context(), user.ID, id, req)
	if err != nil {
		respondServiceError(w, err, "update task")
		return
	}

	respondJSON(w, http.StatusOK, task)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	id := chi.URLParam(r, "id")

	if err := s.deps.Planner.Delete(r.Context(), user.ID, id); err != nil {
		respondServiceError(w, err, "delete task")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "task deleted",
	})
}

func (s *Server) handleCompleteTask(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	id := chi.URLParam(r, "id")

	// Body is optional
	var req models.CompleteTaskRequest
	if r.ContentLength != 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		if err := decodeOptional(r.Body, &req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
			return
		}
	}

	task, err := s.deps.Planner.Complete(r.Context(), user.ID, id, req)
	if err != nil {
		respondServiceError(w, err, "complete task")
		return
	}

	respondJSON(w, http.StatusOK, task)
}

func (s *Server) handleIncompleteTask(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	id := chi.URLParam(r, "id")

	task, err := s.deps.Planner.Incomplete(r.Context(), user.ID, id)
	if err != nil {
		respondServiceError(w, err, "reopen task")
		return
	}

	respondJSON(w, http.StatusOK, task)
}

func (s *Server) handleMarkNotificationSent(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	id := chi.URLParam(r, "id")

	task, err := s.deps.Planner.MarkOwnNotificationSent(r.Context(), user.ID, id)
	if err != nil {
		respondServiceError(w, err, "mark notification sent")
		return
	}

	respondJSON(w, http.StatusOK, task)
}

// decodeOptional decodes a JSON body, treating an empty body as no input
func decodeOptional(body io.Reader, v interface{}) error {
	err := json.NewDecoder(body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
