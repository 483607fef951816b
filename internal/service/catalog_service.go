package service

import (
	"context"
	"fmt"
	"sync"

	"tasker/internal/domain"
	"tasker/internal/models"

	"github.com/rs/zerolog"
)

// CatalogService maps backend service ids to categories and attaches live pricing.
type CatalogService struct {
	backend domain.Backend
	logger  *zerolog.Logger
	catalog *models.Catalog
	mu      sync.RWMutex
}

func NewCatalogService(backend domain.Backend, entries []models.CatalogEntry, logger *zerolog.Logger) *CatalogService {
	return &CatalogService{
		backend: backend,
		logger:  logger,
		catalog: models.NewCatalog(entries),
	}
}

// Entries returns the bookable services in catalog order.
func (s *CatalogService) Entries() []models.CatalogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalog.Entries()
}

func (s *CatalogService) Lookup(id string) (models.CatalogEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalog.Lookup(id)
}

// Name returns the display name for a service id.
func (s *CatalogService) Name(id string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalog.Name(id)
}

// Reload swaps the catalog, e.g. after the services file changed.
func (s *CatalogService) Reload(entries []models.CatalogEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalog = models.NewCatalog(entries)
	s.logger.Info().Int("services", len(entries)).Msg("service catalog reloaded")
}

// Service fetches pricing from the backend and tags it with the catalog category.
func (s *CatalogService) Service(ctx context.Context, id string) (*models.Service, error) {
	entry, ok := s.Lookup(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownService, id)
	}

	svc, err := s.backend.GetService(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("service_id", id).Msg("failed to fetch service pricing")
		return nil, err
	}
	svc.ID = id
	svc.Category = entry.Category
	if entry.Name != "" {
		svc.Name = entry.Name
	}
	return svc, nil
}
