package service

import (
	"context"

	"bankops/internal/operations"
	"bankops/internal/saga"
	"bankops/pkg/auth"
	apperrors "bankops/pkg/errors"
	"bankops/pkg/model"
)

const (
	flowCancel  = "cancel_session"
	flowRelease = "release_session"
)

type releaseState struct {
	session *model.Session
}

// newReleaseEngine builds the two ways a session gives back its resources.
// Both release the account before the device, and every step is a no-op when
// repeated, so an interrupted run is finished by running it again.
func newReleaseEngine(s *orchestratorService) *saga.Engine[*releaseState] {
	cancelTx := saga.NewStep("cancel_transaction", s.cancelTransactionStep)
	releaseAccount := saga.NewStep("release_account", s.releaseAccountStep)
	releaseDevice := saga.NewStep("release_device", s.releaseDeviceStep)

	return saga.NewEngine(s.log,
		saga.NewFlow(flowCancel, cancelTx, releaseAccount, releaseDevice),
		saga.NewFlow(flowRelease, releaseAccount, releaseDevice),
	)
}

// cancelTransactionStep cancels a transaction that has not moved money. Terminal
// and flagged transactions are left alone; a flagged one stays with the reviewers.
func (s *orchestratorService) cancelTransactionStep(ctx context.Context, st *releaseState) error {
	if st.session.TransactionID == "" {
		return nil
	}
	_, err := s.ledger.Cancel(ctx, st.session.TransactionID)
	if err != nil && !apperrors.HasCode(err, apperrors.CodeInvalidState) {
		return err
	}
	return nil
}

func (s *orchestratorService) releaseAccountStep(ctx context.Context, st *releaseState) error {
	if !st.session.AccountLeased {
		return nil
	}
	if err := s.releaseLease(ctx, model.ResourceAccount, st.session.AccountID, st.session.ID); err != nil {
		return err
	}
	st.session.AccountLeased = false
	return nil
}

func (s *orchestratorService) releaseDeviceStep(ctx context.Context, st *releaseState) error {
	if !st.session.DeviceLeased {
		return nil
	}
	if err := s.releaseLease(ctx, model.ResourceDevice, st.session.DeviceID, st.session.ID); err != nil {
		return err
	}
	st.session.DeviceLeased = false
	return nil
}

// releaseLease treats a lease that already moved to another session as released.
func (s *orchestratorService) releaseLease(ctx context.Context, kind model.ResourceKind, resourceID, sessionID string) error {
	err := s.leases.Release(ctx, kind, resourceID, sessionID)
	if err != nil && !apperrors.HasCode(err, apperrors.CodeNotOwner) {
		return err
	}
	return nil
}

// end runs flow and moves the session to its end state. Cancel ends in
// CANCELLED, release in RELEASED.
func (s *orchestratorService) end(ctx context.Context, session *model.Session, flow, reason string) (*model.Session, error) {
	event := operations.EventRelease
	if flow == flowCancel {
		event = operations.EventCancel
	}
	to, err := s.next(session, event)
	if err != nil {
		return nil, err
	}

	if err := s.release.Run(ctx, flow, &releaseState{session: session}); err != nil {
		s.log.Error("Session release interrupted, sweeper will retry",
			"session_id", session.ID,
			"flow", flow,
			"error", err,
		)
		return nil, tagged(apperrors.AsAppError(err), session)
	}

	session.EndReason = reason
	if err := s.persist(ctx, session, to); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *orchestratorService) Cancel(ctx context.Context, identity *auth.Identity, sessionID string) (*SessionView, error) {
	session, err := s.loadFor(ctx, identity, sessionID)
	if err != nil {
		return nil, err
	}
	if session.State == model.StateCancelled {
		return s.view(ctx, session), nil
	}

	session, err = s.end(ctx, session, flowCancel, "cancelled_by_client")
	if err != nil {
		return nil, err
	}
	return s.view(ctx, session), nil
}

func (s *orchestratorService) Finish(ctx context.Context, sessionID string) (*SessionView, error) {
	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.State == model.StateReleased {
		return s.view(ctx, session), nil
	}

	session, err = s.end(ctx, session, flowRelease, "finished")
	if err != nil {
		return nil, err
	}
	return s.view(ctx, session), nil
}
