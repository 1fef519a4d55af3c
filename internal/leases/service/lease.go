package service

import (
	"context"
	"errors"
	"net/http"
	"time"

	leaseserrors "bankops/internal/leases/errors"
	"bankops/internal/leases/repository"
	apperrors "bankops/pkg/errors"
	"bankops/pkg/logger"
	"bankops/pkg/metrics"
	"bankops/pkg/model"
)

// LeaseManager grants exclusive, time-bounded ownership of devices and accounts.
// Errors are AppErrors wrapping the leases sentinels, so both errors.Is and
// apperrors.HasCode work on them.
type LeaseManager interface {
	Acquire(ctx context.Context, kind model.ResourceKind, resourceID, sessionID string, ttl time.Duration) (*model.Lease, error)
	Release(ctx context.Context, kind model.ResourceKind, resourceID, sessionID string) error
	Holder(ctx context.Context, kind model.ResourceKind, resourceID string) (*model.Lease, error)
	ReclaimExpired(ctx context.Context) (int, error)
}

type leaseManager struct {
	store     repository.LeaseStore
	collector metrics.Collector
	log       *logger.Logger
	now       func() time.Time
}

type Option func(*leaseManager)

// WithClock replaces time.Now, mostly for expiry tests.
func WithClock(now func() time.Time) Option {
	return func(m *leaseManager) {
		m.now = now
	}
}

func NewLeaseManager(store repository.LeaseStore, collector metrics.Collector, log *logger.Logger, opts ...Option) LeaseManager {
	if collector == nil {
		collector = metrics.NoOpCollector{}
	}
	m := &leaseManager{
		store:     store,
		collector: collector,
		log:       log,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *leaseManager) Acquire(ctx context.Context, kind model.ResourceKind, resourceID, sessionID string, ttl time.Duration) (*model.Lease, error) {
	if resourceID == "" || sessionID == "" {
		return nil, apperrors.InvalidInput("resource id and session id are required")
	}
	if ttl <= 0 {
		return nil, apperrors.Wrap(leaseserrors.ErrInvalidTTL, apperrors.CodeInvalidInput, "lease ttl must be positive", http.StatusBadRequest)
	}

	now := m.now().UTC()
	key := model.LeaseKey(kind, resourceID)
	lease, renewed, err := m.store.Acquire(ctx, model.Lease{
		ID:              key,
		Kind:            kind,
		ResourceID:      resourceID,
		HolderSessionID: sessionID,
		AcquiredAt:      now,
		ExpiresAt:       now.Add(ttl),
	}, now)
	if err != nil {
		if errors.Is(err, leaseserrors.ErrAlreadyLocked) {
			m.collector.RecordLeaseAcquire(string(kind), metrics.OutcomeContended)
			m.log.Debug("Lease contended", "lease", key, "session_id", sessionID)
			appErr := apperrors.AlreadyLocked(key)
			appErr.Err = leaseserrors.ErrAlreadyLocked
			return nil, appErr
		}
		m.collector.RecordLeaseAcquire(string(kind), metrics.OutcomeError)
		m.log.Error("Failed to acquire lease", "lease", key, "session_id", sessionID, "error", err)
		return nil, apperrors.Internal("Failed to acquire lease", err)
	}

	if renewed {
		m.collector.RecordLeaseAcquire(string(kind), metrics.OutcomeRenewed)
		m.log.Debug("Lease renewed", "lease", key, "session_id", sessionID, "expires_at", lease.ExpiresAt)
	} else {
		m.collector.RecordLeaseAcquire(string(kind), metrics.OutcomeAcquired)
		m.log.Info("Lease acquired", "lease", key, "session_id", sessionID, "expires_at", lease.ExpiresAt)
	}
	return lease, nil
}

func (m *leaseManager) Release(ctx context.Context, kind model.ResourceKind, resourceID, sessionID string) error {
	if resourceID == "" || sessionID == "" {
		return apperrors.InvalidInput("resource id and session id are required")
	}

	key := model.LeaseKey(kind, resourceID)
	released, err := m.store.Release(ctx, key, sessionID, m.now().UTC())
	if err != nil {
		if errors.Is(err, leaseserrors.ErrNotOwner) {
			m.collector.RecordLeaseRelease(string(kind), metrics.OutcomeNotOwner)
			m.log.Warn("Release rejected, lease held by another session", "lease", key, "session_id", sessionID)
			appErr := apperrors.NotOwner(key)
			appErr.Err = leaseserrors.ErrNotOwner
			return appErr
		}
		m.collector.RecordLeaseRelease(string(kind), metrics.OutcomeError)
		m.log.Error("Failed to release lease", "lease", key, "session_id", sessionID, "error", err)
		return apperrors.Internal("Failed to release lease", err)
	}

	if !released {
		m.collector.RecordLeaseRelease(string(kind), metrics.OutcomeNoop)
		m.log.Debug("Release was a no-op, lease missing or expired", "lease", key, "session_id", sessionID)
		return nil
	}

	m.collector.RecordLeaseRelease(string(kind), metrics.OutcomeReleased)
	m.log.Info("Lease released", "lease", key, "session_id", sessionID)
	return nil
}

// Holder returns the active lease on the resource, or nil when it is free.
func (m *leaseManager) Holder(ctx context.Context, kind model.ResourceKind, resourceID string) (*model.Lease, error) {
	lease, err := m.store.Get(ctx, model.LeaseKey(kind, resourceID))
	if err != nil {
		return nil, apperrors.Internal("Failed to read lease", err)
	}
	if lease == nil || lease.IsExpired(m.now().UTC()) {
		return nil, nil
	}
	return lease, nil
}

func (m *leaseManager) ReclaimExpired(ctx context.Context) (int, error) {
	n, err := m.store.ReclaimExpired(ctx, m.now().UTC())
	if err != nil {
		m.log.Error("Failed to reclaim expired leases", "error", err)
		return 0, apperrors.Internal("Failed to reclaim expired leases", err)
	}
	if n > 0 {
		m.collector.RecordLeasesReclaimed(n)
		m.log.Info("Reclaimed expired leases", "count", n)
	}
	return n, nil
}
