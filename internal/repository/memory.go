package repository

import (
	"context"
	"sync"
	"time"

	"tasker/internal/models"
)

// MemoryDraftRepository is the in-process draft store used when Redis is absent or down.
type MemoryDraftRepository struct {
	mu         sync.Mutex
	drafts     map[string]memoryDraft
	rateLimits map[string]rateLimitEntry
	ttl        time.Duration
	now        func() time.Time
}

type memoryDraft struct {
	draft     models.Draft
	expiresAt time.Time
}

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

func NewMemoryDraftRepository(ttl time.Duration) *MemoryDraftRepository {
	return &MemoryDraftRepository{
		drafts:     make(map[string]memoryDraft),
		rateLimits: make(map[string]rateLimitEntry),
		ttl:        ttl,
		now:        time.Now,
	}
}

func (r *MemoryDraftRepository) GetDraft(_ context.Context, key string) (*models.Draft, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.drafts[key]
	if !ok {
		return nil, nil
	}
	if r.ttl > 0 && !r.now().Before(entry.expiresAt) {
		delete(r.drafts, key)
		return nil, nil
	}
	draft := entry.draft
	return &draft, nil
}

func (r *MemoryDraftRepository) SetDraft(_ context.Context, draft *models.Draft) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.drafts[draft.SessionKey] = memoryDraft{draft: *draft, expiresAt: r.now().Add(r.ttl)}
	return nil
}

func (r *MemoryDraftRepository) ClearDraft(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.drafts, key)
	return nil
}

func (r *MemoryDraftRepository) CheckRateLimit(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	entry, ok := r.rateLimits[key]
	if !ok || !now.Before(entry.expiresAt) {
		entry = rateLimitEntry{expiresAt: now.Add(window)}
	}
	entry.count++
	r.rateLimits[key] = entry
	return entry.count <= limit, nil
}
