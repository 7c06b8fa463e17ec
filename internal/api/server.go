package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/terra-clan/dsa-tracker/internal/catalog"
	"github.com/terra-clan/dsa-tracker/internal/config"
	"github.com/terra-clan/dsa-tracker/internal/health"
	"github.com/terra-clan/dsa-tracker/internal/metrics"
	"github.com/terra-clan/dsa-tracker/internal/models"
	"github.com/terra-clan/dsa-tracker/internal/notify"
	"github.com/terra-clan/dsa-tracker/internal/planner"
	"github.com/terra-clan/dsa-tracker/internal/progress"
	"github.com/terra-clan/dsa-tracker/internal/storage"
)

// Dependencies are the services the API serves
type Dependencies struct {
	Repo    storage.Repository
	Tracker *progress.Tracker
	Planner *planner.Service
	Catalog *catalog.Loader
	Hub     *notify.Hub
	Health  *health.Registry
	Metrics *metrics.Manager

	// DefaultNotifications seeds the settings of users created over the API
	DefaultNotifications models.NotificationSettings
}

// Server represents the HTTP API server
type Server struct {
	config         config.ServerConfig
	router         *chi.Mux
	deps           Dependencies
	authMiddleware *AuthMiddleware
	now            func() time.Time
}

// NewServer creates a new API server
func NewServer(cfg config.ServerConfig, deps Dependencies) *Server {
	if deps.Health == nil {
		deps.Health = health.NewRegistry()
	}
	if !deps.DefaultNotifications.Channel.Valid() {
		deps.DefaultNotifications = models.DefaultNotificationSettings()
	}

	s := &Server{
		config:         cfg,
		deps:           deps,
		authMiddleware: NewAuthMiddleware(deps.Repo, cfg.AdminApiKey),
		now:            time.Now,
	}
	s.setupRouter()
	return s
}

// Router returns the configured router
func (s *Server) Router() http.Handler {
	return s.router
}

// setupRouter configures all routes and middleware
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	timeout := s.config.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	origins := s.config.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Public endpoints
	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	if s.deps.Metrics != nil {
		r.Handle("/metrics", s.deps.Metrics.Handler())
	}

	// API v1 routes (protected by authentication)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.authMiddleware.Authenticate)

		// Users
		r.With(s.authMiddleware.RequireAdmin).Post("/users", s.handleCreateUser)

		// Problem bank
		r.Route("/problems", func(r chi.Router) {
			r.Get("/", s.handleListProblems)
			r.Get("/today", s.handleTodaysProblem)
			r.Get("/{id}", s.handleGetProblem)
		})

		// Per-account routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware.RequireAccount)

			r.Get("/me", s.handleGetMe)
			r.Delete("/me", s.handleDeleteMe)

			// Solved log
			r.Route("/solved", func(r chi.Router) {
				r.Post("/", s.handleRecordSolved)
				r.Get("/", s.handleListSolved)
			})

			// Progress
			r.Route("/progress", func(r chi.Router) {
				r.Get("/", s.handleGetProgress)
				r.Post("/refresh", s.handleRefreshProgress)
				r.Get("/recommendations", s.handleRecommendations)
				r.Put("/goals", s.handleUpdateGoals)
			})

			// Notification settings and push channel
			r.Get("/settings/notifications", s.handleGetNotificationSettings)
			r.Put("/settings/notifications", s.handleUpdateNotificationSettings)
			r.Get("/notifications/ws", s.handleNotificationsWS)

			// Planner tasks
			r.Route("/tasks", func(r chi.Router) {
				r.Get("/", s.handleListTasks)
				r.Post("/", s.handleCreateTask)
				r.Get("/stats", s.handleTaskStats)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetTask)
					r.Put("/", s.handleUpdateTask)
					r.Delete("/", s.handleDeleteTask)
					r.Post("/complete", s.handleCompleteTask)
					r.Post("/incomplete", s.handleIncompleteTask)
					r.Post("/notification-sent", s.handleMarkNotificationSent)
				})
			})
		})
	})

	s.router = r
}

// loggingMiddleware logs HTTP requests using slog and records request metrics
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			duration := time.Since(start)
			slog.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", duration.Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
				"remote_addr", r.RemoteAddr,
			)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}
			s.deps.Metrics.ObserveHTTP(r.Method, route, ww.Status(), duration)
		}()

		next.ServeHTTP(ww, r)
	})
}
