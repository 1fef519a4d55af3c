package service

import (
	"context"
	"time"

	"bankops/internal/operations"
	apperrors "bankops/pkg/errors"
	"bankops/pkg/model"
)

// Submit moves the session's transaction to an outcome. Once the session has an
// outcome, submitting again returns it without touching the ledger.
func (s *orchestratorService) Submit(ctx context.Context, sessionID string) (*SessionView, error) {
	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if operations.Settled(session.State) {
		return s.view(ctx, session), nil
	}

	if err := s.submit(ctx, session); err != nil {
		return nil, err
	}
	return s.view(ctx, session), nil
}

// submit drives the transaction from pending to an outcome and records the
// matching session state. A session left in SUBMITTED by an interrupted call
// resumes from the transaction's current status.
func (s *orchestratorService) submit(ctx context.Context, session *model.Session) error {
	if session.State != model.StateSubmitted {
		to, err := s.next(session, operations.EventSubmit)
		if err != nil {
			return err
		}
		if err := s.touchLeases(ctx, session); err != nil {
			return err
		}
		if err := s.persist(ctx, session, to); err != nil {
			return err
		}
	}

	tx, err := s.ledger.Get(ctx, session.TransactionID)
	if err != nil {
		return tagged(err, session)
	}

	if tx.Status == model.StatusPending {
		if tx, err = s.ledger.Authorize(ctx, tx.ID); err != nil {
			return tagged(err, session)
		}
	}

	var settleErr error
	if tx.Status == model.StatusAuthorized {
		tx, settleErr = s.settle(ctx, session, tx)
		if settleErr != nil && !apperrors.HasCode(settleErr, apperrors.CodeInsufficientFunds) {
			return tagged(settleErr, session)
		}
	}

	event, ok := outcomeEvent(tx)
	if !ok {
		return tagged(apperrors.InvalidState(string(tx.Status), string(operations.EventSubmit)), session)
	}
	to, err := s.next(session, event)
	if err != nil {
		return err
	}
	if err := s.persist(ctx, session, to); err != nil {
		return err
	}
	s.collector.RecordTransaction(string(session.Operation), string(tx.Status))

	if settleErr != nil {
		return tagged(settleErr, session)
	}
	return nil
}

// settle screens transfers and applies everything that passes. A refused
// commit comes back as the failed transaction together with InsufficientFunds.
func (s *orchestratorService) settle(ctx context.Context, session *model.Session, tx *model.Transaction) (*model.Transaction, error) {
	if tx.Type == model.TransactionTransfer {
		start := time.Now()
		verdict, err := s.screener.Screen(ctx, tx)
		if err != nil {
			verdict.Flag = true
			verdict.Reason = "screening unavailable"
			s.log.Warn("Screening failed, holding transaction", "transaction_id", tx.ID, "error", err)
		}
		s.collector.RecordScreening(verdict.Flag, time.Since(start))

		if verdict.Flag {
			flagged, err := s.ledger.Flag(ctx, tx.ID, verdict.Reason)
			if err != nil {
				return nil, err
			}
			return flagged, nil
		}
	}

	settled, err := s.ledger.Settle(ctx, tx.ID)
	if err == nil {
		return settled, nil
	}
	if !apperrors.HasCode(err, apperrors.CodeInsufficientFunds) {
		return nil, err
	}

	failed, getErr := s.ledger.Get(ctx, tx.ID)
	if getErr != nil {
		return nil, getErr
	}
	s.log.Info("Submit refused for funds", "session_id", session.ID, "transaction_id", tx.ID)
	return failed, err
}

func outcomeEvent(tx *model.Transaction) (operations.Event, bool) {
	switch {
	case tx.Status.IsSuccessful():
		return operations.EventSucceed, true
	case tx.Status == model.StatusFlagged:
		return operations.EventHold, true
	case tx.Status == model.StatusFailure, tx.Status == model.StatusRejected, tx.Status == model.StatusCancelled:
		return operations.EventFail, true
	}
	return "", false
}
