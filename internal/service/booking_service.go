package service

import (
	"context"
	"fmt"
	"time"

	"tasker/internal/domain"
	"tasker/internal/events"
	"tasker/internal/metrics"
	"tasker/internal/models"
	"tasker/internal/pricing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SubmitLimits bounds how far ahead and how often a session may submit jobs.
type SubmitLimits struct {
	MaxBookingDays int
	RateLimit      int
	RateWindow     time.Duration
}

// Submission is the outcome of a successful job submission.
type Submission struct {
	Job            models.Job        `json:"job"`
	Quote          models.PriceQuote `json:"quote"`
	IdempotencyKey string            `json:"idempotency_key"`
}

type BookingService struct {
	catalog  *CatalogService
	engine   *pricing.Engine
	backend  domain.Backend
	drafts   domain.DraftManager
	store    domain.LocalStore
	eventBus domain.EventPublisher
	limits   SubmitLimits
	logger   *zerolog.Logger
	now      func() time.Time
}

func NewBookingService(
	catalog *CatalogService,
	engine *pricing.Engine,
	backend domain.Backend,
	drafts domain.DraftManager,
	store domain.LocalStore,
	eventBus domain.EventPublisher,
	limits SubmitLimits,
	logger *zerolog.Logger,
) *BookingService {
	if limits.MaxBookingDays <= 0 {
		limits.MaxBookingDays = models.DefaultMaxBookingDays
	}
	if limits.RateLimit <= 0 {
		limits.RateLimit = models.SubmitRateLimit
	}
	if limits.RateWindow <= 0 {
		limits.RateWindow = models.SubmitRateWindow
	}
	return &BookingService{
		catalog:  catalog,
		engine:   engine,
		backend:  backend,
		drafts:   drafts,
		store:    store,
		eventBus: eventBus,
		limits:   limits,
		logger:   logger,
		now:      time.Now,
	}
}

// Quote prices a selection against the live backend pricing.
func (s *BookingService) Quote(ctx context.Context, input models.SelectionInput) (models.PriceQuote, error) {
	quote, _, _, err := s.quote(ctx, input)
	return quote, err
}

// QuoteDraft prices whatever the session has selected so far.
func (s *BookingService) QuoteDraft(ctx context.Context, sessionKey string) (models.PriceQuote, error) {
	draft, err := s.drafts.GetDraft(ctx, sessionKey)
	if err != nil {
		return models.PriceQuote{}, err
	}
	if draft == nil {
		return models.PriceQuote{}, domain.InvalidSelection("no booking in progress")
	}
	return s.Quote(ctx, draft.Selection)
}

func (s *BookingService) quote(ctx context.Context, input models.SelectionInput) (models.PriceQuote, models.BookingSelection, *models.Service, error) {
	sel, err := input.Parse(s.engine.Location())
	if err != nil {
		return models.PriceQuote{}, sel, nil, domain.InvalidSelection("%v", err)
	}

	svc, err := s.catalog.Service(ctx, sel.ServiceID)
	if err != nil {
		return models.PriceQuote{}, sel, nil, err
	}

	quote, err := s.engine.Quote(*svc, sel, s.now())
	if err != nil {
		return models.PriceQuote{}, sel, svc, err
	}

	reasons := make([]string, 0, len(quote.AppliedSurcharges))
	for _, sc := range quote.AppliedSurcharges {
		reasons = append(reasons, string(sc.Reason))
	}
	metrics.ObserveQuote(string(quote.Category), reasons...)

	return quote, sel, svc, nil
}

// ValidateSchedule rejects instants in the past and dates beyond the booking horizon.
func (s *BookingService) ValidateSchedule(at time.Time) error {
	now := s.now().In(s.engine.Location())
	if at.Before(now) {
		return domain.ErrPastSchedule
	}

	maxDate := now.AddDate(0, 0, s.limits.MaxBookingDays)
	if at.After(maxDate) {
		return domain.ErrDateTooFar
	}

	return nil
}

// Submit quotes the selection once more and creates the job with the final price.
func (s *BookingService) Submit(ctx context.Context, sessionKey string, input models.SelectionInput) (*Submission, error) {
	quote, sel, _, err := s.quote(ctx, input)
	if err != nil {
		return nil, err
	}
	if sel.Address == "" {
		return nil, domain.InvalidSelection("address is required")
	}
	if err := s.ValidateSchedule(quote.ScheduledAt); err != nil {
		return nil, err
	}

	// считаем только прошедшие проверку попытки
	allowed, err := s.drafts.CheckRateLimit(ctx, sessionKey, s.limits.RateLimit, s.limits.RateWindow)
	if err != nil {
		s.logger.Warn().Err(err).Str("session", sessionKey).Msg("submit rate limit check failed")
	} else if !allowed {
		return nil, domain.ErrRateLimited
	}

	key := uuid.NewString()
	record := &models.QuoteRecord{
		IdempotencyKey: key,
		ServiceID:      quote.ServiceID,
		Category:       quote.Category,
		BasePrice:      quote.BasePrice,
		Surcharges:     quote.AppliedSurcharges,
		FinalPrice:     quote.FinalPrice,
		ScheduledAt:    quote.ScheduledAt,
	}
	if err := s.store.SaveQuote(ctx, record); err != nil {
		return nil, fmt.Errorf("record quote: %w", err)
	}

	job, err := s.backend.CreateJob(ctx, models.NewJob{
		Address:       sel.Address,
		DurationHours: quote.Units,
		ServiceID:     quote.ServiceID,
		Price:         quote.FinalPrice,
		ScheduledTime: quote.ScheduledAt,
		Notes:         jobNotes(sel),
	})
	if err != nil {
		s.logger.Error().Err(err).Str("service_id", quote.ServiceID).Str("quote_key", key).Msg("failed to create job")
		return nil, err
	}
	if job == nil {
		// бэкенд ответил без тела
		job = &models.Job{
			ServiceID:     quote.ServiceID,
			ScheduledTime: quote.ScheduledAt,
			DurationHours: quote.Units,
			Price:         quote.FinalPrice,
			Address:       sel.Address,
			Status:        models.StatusPending,
		}
	}

	if job.ID != "" {
		record.JobID = job.ID
		if err := s.store.SaveQuote(ctx, record); err != nil {
			s.logger.Error().Err(err).Str("job_id", job.ID).Msg("failed to link quote to job")
		}
	}

	s.publishEvent(events.EventJobCreated, *job, "", models.RoleClient, key)

	if err := s.drafts.ClearDraft(ctx, sessionKey); err != nil {
		s.logger.Warn().Err(err).Str("session", sessionKey).Msg("failed to clear draft")
	}

	s.logger.Info().
		Str("job_id", job.ID).
		Str("service_id", quote.ServiceID).
		Float64("price", quote.FinalPrice).
		Msg("job submitted")

	return &Submission{Job: *job, Quote: quote, IdempotencyKey: key}, nil
}

func jobNotes(sel models.BookingSelection) string {
	if !sel.WeeklyRepeat {
		return sel.Notes
	}
	if sel.Notes == "" {
		return "Repeat weekly"
	}
	return sel.Notes + "\nRepeat weekly"
}

func (s *BookingService) publishEvent(eventType string, job models.Job, previous models.JobStatus, actor models.Role, quoteKey string) {
	publishJobEvent(s.eventBus, s.logger, eventType, job, previous, actor, quoteKey)
}

func publishJobEvent(bus domain.EventPublisher, logger *zerolog.Logger, eventType string, job models.Job, previous models.JobStatus, actor models.Role, quoteKey string) {
	if bus == nil {
		return
	}

	payload := events.JobEventPayload{
		JobID:         job.ID,
		ServiceID:     job.ServiceID,
		Status:        string(job.Status),
		PreviousState: string(previous),
		Price:         job.Price,
		ScheduledTime: job.ScheduledTime,
		Actor:         string(actor),
		QuoteKey:      quoteKey,
	}

	if err := bus.PublishJSON(eventType, payload); err != nil {
		logger.Error().Err(err).Str("event_type", eventType).Str("job_id", job.ID).Msg("publish event error")
	}
}
