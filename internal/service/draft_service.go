package service

import (
	"context"
	"fmt"
	"time"

	"tasker/internal/domain"
	"tasker/internal/models"

	"github.com/rs/zerolog"
)

var draftSteps = map[string]bool{
	models.StepService: true,
	models.StepPackage: true,
	models.StepAddress: true,
	models.StepTime:    true,
	models.StepConfirm: true,
}

// DraftService keeps the booking selection between screens, keyed by session.
type DraftService struct {
	draftRepo domain.DraftRepository
	logger    *zerolog.Logger
	now       func() time.Time
}

func NewDraftService(draftRepo domain.DraftRepository, logger *zerolog.Logger) *DraftService {
	return &DraftService{
		draftRepo: draftRepo,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *DraftService) GetDraft(ctx context.Context, key string) (*models.Draft, error) {
	draft, err := s.draftRepo.GetDraft(ctx, key)
	if err != nil {
		s.logger.Error().Err(err).Str("session", key).Msg("failed to get draft")
		return nil, err
	}
	return draft, nil
}

func (s *DraftService) SaveDraft(ctx context.Context, key, step string, selection models.SelectionInput) (*models.Draft, error) {
	if step == "" {
		step = models.StepService
	}
	if !draftSteps[step] {
		return nil, domain.InvalidSelection("unknown draft step %q", step)
	}

	draft := &models.Draft{
		SessionKey: key,
		Step:       step,
		Selection:  selection,
		UpdatedAt:  s.now(),
	}
	if err := s.draftRepo.SetDraft(ctx, draft); err != nil {
		return nil, fmt.Errorf("save draft: %w", err)
	}
	return draft, nil
}

func (s *DraftService) ClearDraft(ctx context.Context, key string) error {
	return s.draftRepo.ClearDraft(ctx, key)
}

func (s *DraftService) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	return s.draftRepo.CheckRateLimit(ctx, key, limit, window)
}
