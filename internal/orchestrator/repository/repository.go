package repository

import (
	"context"
	"time"

	"bankops/pkg/model"
)

const CollectionName = "Sessions"

// SessionRepository persists sessions with optimistic concurrency: Update only
// succeeds when the stored version equals the caller's copy.
type SessionRepository interface {
	Create(ctx context.Context, s *model.Session) error
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// Update stores s and increments s.Version. Fails with ErrVersionConflict
	// when another writer got there first.
	Update(ctx context.Context, s *model.Session) error
	// ListStale returns sessions not yet ended whose last change is before cutoff,
	// oldest first.
	ListStale(ctx context.Context, cutoff time.Time, limit int) ([]*model.Session, error)
}

var endedStates = []model.SessionState{model.StateReleased, model.StateCancelled}
