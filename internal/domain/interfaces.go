package domain

import (
	"context"
	"time"

	"tasker/internal/models"
)

// Backend is the REST backend as seen by the gateway.
type Backend interface {
	GetService(ctx context.Context, id string) (*models.Service, error)
	CreateJob(ctx context.Context, job models.NewJob) (*models.Job, error)
	ListJobs(ctx context.Context) ([]models.Job, error)
	ListWorkerJobs(ctx context.Context, status models.JobStatus) ([]models.Job, error)
	JobHistory(ctx context.Context) ([]models.Job, error)
	Dashboard(ctx context.Context) (*models.Dashboard, error)
	ReceiveJob(ctx context.Context, id string) (*models.Job, error)
	UpdateJobStatus(ctx context.Context, id string, status models.JobStatus) (*models.Job, error)
	CancelJob(ctx context.Context, id string) (*models.Job, error)
	RateJob(ctx context.Context, id string, rating models.Rating) error
}

type DraftRepository interface {
	GetDraft(ctx context.Context, key string) (*models.Draft, error)
	SetDraft(ctx context.Context, draft *models.Draft) error
	ClearDraft(ctx context.Context, key string) error
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// LocalStore persists client-side state: rated flags and the quote ledger.
type LocalStore interface {
	MarkRated(ctx context.Context, jobID string, at time.Time) error
	IsRated(ctx context.Context, jobID string) (bool, error)
	RatedJobs(ctx context.Context, jobIDs []string) (map[string]bool, error)
	SaveQuote(ctx context.Context, rec *models.QuoteRecord) error
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type DraftManager interface {
	GetDraft(ctx context.Context, key string) (*models.Draft, error)
	SaveDraft(ctx context.Context, key, step string, selection models.SelectionInput) (*models.Draft, error)
	ClearDraft(ctx context.Context, key string) error
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
