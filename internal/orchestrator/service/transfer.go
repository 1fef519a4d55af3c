package service

import (
	"context"

	"bankops/internal/operations"
	"bankops/pkg/auth"
	apperrors "bankops/pkg/errors"
	"bankops/pkg/model"
	"bankops/pkg/sanitizer"

	"github.com/google/uuid"
)

// Transfer runs a whole transfer session in one call: lease the source account,
// open and submit the transaction, then release. The returned view shows where
// the transaction ended up, PENDING_REVIEW included.
func (s *orchestratorService) Transfer(ctx context.Context, identity *auth.Identity, in TransferInput) (*SessionView, error) {
	if identity == nil {
		return nil, apperrors.Unauthorized("authentication required")
	}
	if !in.Amount.IsPositive() {
		return nil, apperrors.Validation("amount must be positive", map[string]any{"amount_minor": int64(in.Amount)})
	}

	sourceNumber := sanitizer.SanitizeAccountNumber(in.SourceAccount)
	destNumber := sanitizer.SanitizeAccountNumber(in.Destination)
	if sourceNumber == "" || destNumber == "" {
		return nil, apperrors.Validation("invalid account number", map[string]any{
			"source_account": in.SourceAccount,
			"destination":    in.Destination,
		})
	}
	if sourceNumber == destNumber {
		return nil, apperrors.Validation("destination must differ from source", map[string]any{"destination": in.Destination})
	}

	source, err := s.ledger.FindAccountByNumber(ctx, sourceNumber)
	if err != nil {
		return nil, err
	}
	if source.OwnerID != identity.UserID && !identity.HasRole(auth.RoleAdmin) {
		s.log.Warn("Transfer from foreign account refused", "user_id", identity.UserID, "account_id", source.ID)
		return nil, apperrors.Forbidden("account does not belong to the caller")
	}
	if source.Status != model.AccountActive {
		return nil, apperrors.Forbidden("account is not active")
	}

	tx := &model.Transaction{
		Type:            model.TransactionTransfer,
		SourceAccountID: source.ID,
		Amount:          in.Amount,
	}
	dest, err := s.ledger.FindAccountByNumber(ctx, destNumber)
	switch {
	case err == nil:
		tx.DestinationAccountID = dest.ID
	case apperrors.HasCode(err, apperrors.CodeNotFound):
		tx.DestinationExternal = destNumber
	default:
		return nil, err
	}

	now := s.timestamp()
	session := &model.Session{
		ID:        uuid.NewString(),
		Channel:   model.ChannelTransfer,
		State:     model.StateIdle,
		Operation: model.TransactionTransfer,
		AccountID: source.ID,
		OwnerID:   source.OwnerID,
		Amount:    in.Amount,
		CreatedAt: now,
		UpdatedAt: now,
	}
	to, err := s.next(session, operations.EventEnterAmount)
	if err != nil {
		return nil, err
	}

	if _, err := s.leases.Acquire(ctx, model.ResourceAccount, source.ID, session.ID, s.settings.AccountLeaseTTL); err != nil {
		if apperrors.HasCode(err, apperrors.CodeAlreadyLocked) {
			return nil, apperrors.AccountBusy()
		}
		return nil, err
	}
	session.AccountLeased = true

	if err := s.sessions.Create(ctx, session); err != nil {
		s.log.Error("Failed to create session", "session_id", session.ID, "error", err)
		if relErr := s.releaseLease(ctx, model.ResourceAccount, source.ID, session.ID); relErr != nil {
			s.log.Error("Failed to release account after create failure", "session_id", session.ID, "error", relErr)
		}
		return nil, apperrors.Internal("Failed to create session", err)
	}
	s.collector.RecordTransition(string(session.Channel), string(session.State))

	tx.SessionID = session.ID
	opened, err := s.ledger.Open(ctx, tx)
	if err != nil {
		s.abandon(ctx, session)
		return nil, tagged(err, session)
	}
	session.TransactionID = opened.ID
	if err := s.persist(ctx, session, to); err != nil {
		s.abandon(ctx, session)
		return nil, err
	}

	submitErr := s.submit(ctx, session)
	if submitErr != nil && !operations.Settled(session.State) {
		s.abandon(ctx, session)
		return nil, submitErr
	}

	ended, err := s.end(ctx, session, flowRelease, "completed")
	if err != nil {
		return nil, err
	}
	if submitErr != nil {
		return nil, tagged(submitErr, ended)
	}
	return s.view(ctx, ended), nil
}

// abandon cancels a session that cannot go on. A failure here is left for the sweeper.
func (s *orchestratorService) abandon(ctx context.Context, session *model.Session) {
	if _, err := s.end(ctx, session, flowCancel, "aborted"); err != nil {
		s.log.Warn("Failed to cancel abandoned session", "session_id", session.ID, "error", err)
	}
}
