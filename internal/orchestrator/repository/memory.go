package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	orchestratorerrors "bankops/internal/orchestrator/errors"
	"bankops/pkg/model"
)

type memorySessionRepository struct {
	mu       sync.Mutex
	sessions map[string]model.Session
}

func NewMemorySessionRepository() SessionRepository {
	return &memorySessionRepository{sessions: make(map[string]model.Session)}
}

func (r *memorySessionRepository) Create(_ context.Context, s *model.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[s.ID]; exists {
		return fmt.Errorf("session %s already exists", s.ID)
	}
	r.sessions[s.ID] = *s
	return nil
}

func (r *memorySessionRepository) FindByID(_ context.Context, id string) (*model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", orchestratorerrors.ErrSessionNotFound, id)
	}
	return &s, nil
}

func (r *memorySessionRepository) Update(_ context.Context, s *model.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.sessions[s.ID]
	if !ok {
		return fmt.Errorf("%w: %s", orchestratorerrors.ErrSessionNotFound, s.ID)
	}
	if stored.Version != s.Version {
		return orchestratorerrors.ErrVersionConflict
	}

	s.Version++
	r.sessions[s.ID] = *s
	return nil
}

func (r *memorySessionRepository) ListStale(_ context.Context, cutoff time.Time, limit int) ([]*model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var stale []*model.Session
	for _, s := range r.sessions {
		if s.IsEnded() || !s.UpdatedAt.Before(cutoff) {
			continue
		}
		s := s
		stale = append(stale, &s)
	}
	sort.Slice(stale, func(i, j int) bool { return stale[i].UpdatedAt.Before(stale[j].UpdatedAt) })
	if limit > 0 && len(stale) > limit {
		stale = stale[:limit]
	}
	return stale, nil
}
