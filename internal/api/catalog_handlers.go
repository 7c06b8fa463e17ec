package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/terra-clan/dsa-tracker/internal/models"
)

// Problem bank handlers

func (s *Server) handleListProblems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := models.ProblemFilters{
		Platform: q.Get("platform"),
	}

	if v := q.Get("topic"); v != "" {
		t, ok := models.ParseTopic(v)
		if !ok {
			respondError(w, http.StatusBadRequest, "validation_error", "unknown topic: "+v)
			return
		}
		filters.Topic = t
	}
	if v := q.Get("difficulty"); v != "" {
		d, ok := models.ParseDifficulty(v)
		if !ok {
			respondError(w, http.StatusBadRequest, "validation_error", "unknown difficulty: "+v)
			return
		}
		filters.Difficulty = d
	}

	problems := s.deps.Catalog.List(filters)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"problems": problems,
		"total":    len(problems),
	})
}

func (s *Server) handleTodaysProblem(w http.ResponseWriter, r *http.Request) {
	problem := s.deps.Catalog.TodaysProblem(s.now(), s.deps.Tracker.Location())
	if problem == nil {
		respondError(w, http.StatusNotFound, "not_found", "problem bank is empty")
		return
	}
	respondJSON(w, http.StatusOK, problem)
}

func (s *Server) handleGetProblem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	problem := s.deps.Catalog.Get(id)
	if problem == nil {
		respondError(w, http.StatusNotFound, "not_found", "problem not found")
		return
	}
	respondJSON(w, http.StatusOK, problem)
}
