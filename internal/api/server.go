// Package api is the HTTP gateway the mobile screens talk to.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"tasker/internal/config"
	"tasker/internal/domain"
	"tasker/internal/models"
	"tasker/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

type Booking interface {
	Quote(ctx context.Context, input models.SelectionInput) (models.PriceQuote, error)
	QuoteDraft(ctx context.Context, sessionKey string) (models.PriceQuote, error)
	Submit(ctx context.Context, sessionKey string, input models.SelectionInput) (*service.Submission, error)
}

type Jobs interface {
	ClientJobs(ctx context.Context, tab string) ([]models.JobView, error)
	WorkerJobs(ctx context.Context, tab string) ([]models.JobView, error)
	WorkerHistory(ctx context.Context) ([]models.JobView, error)
	Dashboard(ctx context.Context) (*models.Dashboard, error)
	Perform(ctx context.Context, role models.Role, jobID string, action models.Action, rating *models.Rating) (*service.ActionResult, error)
}

type Reports interface {
	ParseMonth(raw string) (time.Time, error)
	WorkerReport(ctx context.Context, month time.Time) (string, error)
}

type Catalog interface {
	Entries() []models.CatalogEntry
}

// HealthCheck is one dependency checked by /health.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type Deps struct {
	Booking Booking
	Jobs    Jobs
	Drafts  domain.DraftManager
	Reports Reports
	Catalog Catalog
	Health  []HealthCheck
}

// Server exposes the booking and job endpoints over HTTP.
type Server struct {
	cfg     config.APIConfig
	deps    Deps
	router  chi.Router
	server  *http.Server
	limiter *rateLimiter
	logger  *zerolog.Logger
}

func NewServer(cfg config.APIConfig, deps Deps, logger *zerolog.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		deps:    deps,
		limiter: newRateLimiter(cfg.RateLimit),
		logger:  logger,
	}
	s.router = s.routes()

	readTimeout := cfg.HTTP.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 10 * time.Second
	}
	writeTimeout := cfg.HTTP.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 30 * time.Second
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
	}
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestID)
	r.Use(s.accessLog)

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.bearerAuth)

		r.Get("/services", s.handleServices)
		r.Post("/quotes", s.handleQuote)

		r.Get("/drafts", s.handleGetDraft)
		r.Put("/drafts", s.handleSaveDraft)
		r.Delete("/drafts", s.handleClearDraft)
		r.Post("/drafts/quote", s.handleQuoteDraft)

		r.Post("/jobs", s.handleSubmit)
		r.Get("/jobs", s.handleClientJobs)
		r.Post("/jobs/{id}/cancel", s.handleCancel)
		r.Post("/jobs/{id}/rate", s.handleRate)

		r.Route("/worker", func(r chi.Router) {
			r.Get("/jobs", s.handleWorkerJobs)
			r.Get("/history", s.handleWorkerHistory)
			r.Get("/dashboard", s.handleDashboard)
			r.Get("/report", s.handleReport)
			r.Post("/jobs/{id}/{action}", s.handleWorkerAction)
		})
	})

	return r
}

// Handler is the full middleware chain, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
