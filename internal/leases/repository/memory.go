package repository

import (
	"context"
	"sync"
	"time"

	leaseserrors "bankops/internal/leases/errors"
	"bankops/pkg/model"
)

type memoryLeaseStore struct {
	mu     sync.Mutex
	leases map[string]model.Lease
}

func NewMemoryLeaseStore() LeaseStore {
	return &memoryLeaseStore{leases: make(map[string]model.Lease)}
}

func (s *memoryLeaseStore) Acquire(_ context.Context, lease model.Lease, now time.Time) (*model.Lease, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	renewed := false
	if cur, ok := s.leases[lease.ID]; ok && !cur.IsExpired(now) {
		if !cur.HeldBy(lease.HolderSessionID) {
			return nil, false, leaseserrors.ErrAlreadyLocked
		}
		lease.AcquiredAt = cur.AcquiredAt
		renewed = true
	}

	s.leases[lease.ID] = lease
	out := lease
	return &out, renewed, nil
}

func (s *memoryLeaseStore) Release(_ context.Context, key string, sessionID string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.leases[key]
	if !ok {
		return false, nil
	}
	if cur.IsExpired(now) {
		delete(s.leases, key)
		return false, nil
	}
	if !cur.HeldBy(sessionID) {
		return false, leaseserrors.ErrNotOwner
	}
	delete(s.leases, key)
	return true, nil
}

func (s *memoryLeaseStore) Get(_ context.Context, key string) (*model.Lease, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.leases[key]
	if !ok {
		return nil, nil
	}
	return &cur, nil
}

func (s *memoryLeaseStore) ReclaimExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reclaimed := 0
	for key, lease := range s.leases {
		if lease.IsExpired(now) {
			delete(s.leases, key)
			reclaimed++
		}
	}
	return reclaimed, nil
}
