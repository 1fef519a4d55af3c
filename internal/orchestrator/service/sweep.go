package service

import (
	"context"
	"sync/atomic"

	"bankops/internal/operations"
	"bankops/pkg/model"

	"golang.org/x/sync/errgroup"
)

// Sweep reclaims expired leases, then cancels sessions that have not moved
// within the idle timeout. A session is cancelled at most once per sweep; one
// that fails is picked up again next time.
func (s *orchestratorService) Sweep(ctx context.Context) (SweepResult, error) {
	var result SweepResult

	reclaimed, err := s.leases.ReclaimExpired(ctx)
	if err != nil {
		s.log.Error("Failed to reclaim expired leases", "error", err)
		return result, err
	}
	result.LeasesReclaimed = reclaimed

	if s.settings.SessionIdleTimeout <= 0 {
		return result, nil
	}

	cutoff := s.timestamp().Add(-s.settings.SessionIdleTimeout)
	stale, err := s.sessions.ListStale(ctx, cutoff, s.settings.SweepBatchSize)
	if err != nil {
		s.log.Error("Failed to list stale sessions", "error", err)
		return result, err
	}

	var cancelled atomic.Int64
	var group errgroup.Group
	group.SetLimit(s.settings.SweepConcurrency)
	for _, session := range stale {
		session := session
		group.Go(func() error {
			if s.expire(ctx, session) {
				cancelled.Add(1)
			}
			return nil
		})
	}
	_ = group.Wait()

	result.SessionsCancelled = int(cancelled.Load())
	if result.LeasesReclaimed > 0 || result.SessionsCancelled > 0 {
		s.log.Info("Sweep finished",
			"leases_reclaimed", result.LeasesReclaimed,
			"sessions_cancelled", result.SessionsCancelled,
			"stale_found", len(stale),
		)
	}
	return result, nil
}

// expire ends one idle session. A session stuck in SUBMITTED first records the
// outcome its transaction already has. Sessions with an outcome only give back
// their resources; the rest are cancelled.
func (s *orchestratorService) expire(ctx context.Context, session *model.Session) bool {
	if session.State == model.StateSubmitted {
		if err := s.submit(ctx, session); err != nil && !operations.Settled(session.State) {
			s.log.Warn("Failed to resume submitted session", "session_id", session.ID, "error", err)
		}
	}

	flow := flowCancel
	if operations.Settled(session.State) {
		flow = flowRelease
	}

	if _, err := s.end(ctx, session, flow, "idle_timeout"); err != nil {
		s.log.Warn("Failed to expire idle session", "session_id", session.ID, "state", session.State, "error", err)
		return false
	}
	return true
}
