package repository

import (
	"context"
	"time"

	"bankops/pkg/model"
)

const CollectionName = "Leases"

// LeaseStore is the compare-and-set primitive behind the lease manager.
// Implementations must make Acquire atomic per lease key.
type LeaseStore interface {
	// Acquire creates lease or renews it when the same session already holds it.
	// Returns leaseserrors.ErrAlreadyLocked when another session holds an unexpired lease.
	Acquire(ctx context.Context, lease model.Lease, now time.Time) (acquired *model.Lease, renewed bool, err error)

	// Release deletes the lease held by sessionID. A missing or expired lease is
	// reported as released == false with a nil error.
	Release(ctx context.Context, key string, sessionID string, now time.Time) (released bool, err error)

	// Get returns the stored lease or nil when there is none.
	Get(ctx context.Context, key string) (*model.Lease, error)

	ReclaimExpired(ctx context.Context, now time.Time) (int, error)
}
