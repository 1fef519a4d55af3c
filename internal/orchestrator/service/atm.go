package service

import (
	"context"
	"errors"
	"net/http"

	"bankops/internal/collaborators/credentials"
	"bankops/internal/collaborators/devices"
	"bankops/internal/operations"
	apperrors "bankops/pkg/errors"
	"bankops/pkg/model"
	"bankops/pkg/sanitizer"

	"github.com/google/uuid"
)

// AssignDevice opens an ATM session on deviceID, or on the first ready device
// whose lease is free when deviceID is empty.
func (s *orchestratorService) AssignDevice(ctx context.Context, deviceID string) (*SessionView, error) {
	now := s.timestamp()
	session := &model.Session{
		ID:        uuid.NewString(),
		Channel:   model.ChannelATM,
		State:     model.StateIdle,
		CreatedAt: now,
		UpdatedAt: now,
	}
	to, err := s.next(session, operations.EventAssignDevice)
	if err != nil {
		return nil, err
	}

	deviceID = sanitizer.SanitizeIdentifier(deviceID)
	if deviceID != "" {
		err = s.leaseDevice(ctx, session, deviceID)
	} else {
		err = s.pickDevice(ctx, session)
	}
	if err != nil {
		return nil, err
	}

	session.State = to
	if err := s.sessions.Create(ctx, session); err != nil {
		s.log.Error("Failed to create session", "session_id", session.ID, "error", err)
		if relErr := s.releaseLease(ctx, model.ResourceDevice, session.DeviceID, session.ID); relErr != nil {
			s.log.Error("Failed to release device after create failure", "session_id", session.ID, "error", relErr)
		}
		return nil, apperrors.Internal("Failed to create session", err)
	}

	s.collector.RecordTransition(string(session.Channel), string(session.State))
	s.log.Info("ATM session opened", "session_id", session.ID, "device_id", session.DeviceID)
	return s.view(ctx, session), nil
}

func (s *orchestratorService) leaseDevice(ctx context.Context, session *model.Session, deviceID string) error {
	ready, err := s.devices.IsDeviceReady(ctx, deviceID)
	if err != nil {
		s.log.Error("Device registry unavailable", "device_id", deviceID, "error", err)
		return apperrors.Unavailable("device registry")
	}
	if !ready {
		return apperrors.NoDeviceAvailable().WithDetails(map[string]any{"device_id": deviceID})
	}

	if _, err := s.leases.Acquire(ctx, model.ResourceDevice, deviceID, session.ID, s.settings.DeviceLeaseTTL); err != nil {
		return err
	}
	session.DeviceID = deviceID
	session.DeviceLeased = true
	return nil
}

func (s *orchestratorService) pickDevice(ctx context.Context, session *model.Session) error {
	ready, err := s.devices.ListReady(ctx)
	if err != nil {
		s.log.Error("Device registry unavailable", "error", err)
		return apperrors.Unavailable("device registry")
	}

	for _, d := range ready {
		_, err := s.leases.Acquire(ctx, model.ResourceDevice, d.ID, session.ID, s.settings.DeviceLeaseTTL)
		if err == nil {
			session.DeviceID = d.ID
			session.DeviceLeased = true
			return nil
		}
		if !apperrors.HasCode(err, apperrors.CodeAlreadyLocked) {
			return err
		}
	}
	return apperrors.NoDeviceAvailable()
}

func (s *orchestratorService) requireATM(session *model.Session, event operations.Event) error {
	if session.Channel != model.ChannelATM {
		return tagged(apperrors.InvalidState(string(session.Channel), string(event)), session)
	}
	return nil
}

// VerifyCard binds the card's account to the session under an account lease.
// A rejected card gives the device back and returns the session to IDLE. When a
// store is unreachable the session stays in DEVICE_ASSIGNED for a retry.
func (s *orchestratorService) VerifyCard(ctx context.Context, sessionID, cardID string) (*SessionView, error) {
	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.requireATM(session, operations.EventVerifyCard); err != nil {
		return nil, err
	}
	to, err := s.next(session, operations.EventVerifyCard)
	if err != nil {
		return nil, err
	}
	if err := s.touchLeases(ctx, session); err != nil {
		return nil, err
	}

	account, rejection := s.checkCard(ctx, sanitizer.SanitizeIdentifier(cardID))
	if rejection != nil && rejection.HTTPStatus >= http.StatusInternalServerError {
		return nil, tagged(rejection, session)
	}
	if rejection == nil {
		_, err := s.leases.Acquire(ctx, model.ResourceAccount, account.ID, session.ID, s.settings.AccountLeaseTTL)
		if apperrors.HasCode(err, apperrors.CodeAlreadyLocked) {
			rejection = apperrors.AccountBusy()
		} else if err != nil {
			return nil, tagged(err, session)
		}
	}
	if rejection != nil {
		return nil, s.rejectCard(ctx, session, rejection)
	}

	session.CardID = sanitizer.SanitizeIdentifier(cardID)
	session.AccountID = account.ID
	session.OwnerID = account.OwnerID
	session.AccountLeased = true
	if err := s.persist(ctx, session, to); err != nil {
		if relErr := s.releaseLease(ctx, model.ResourceAccount, account.ID, session.ID); relErr != nil {
			s.log.Error("Failed to release account after persist failure", "session_id", session.ID, "error", relErr)
		}
		return nil, err
	}
	return s.view(ctx, session), nil
}

// checkCard returns the active account behind cardID, or the AppError that rejects it.
func (s *orchestratorService) checkCard(ctx context.Context, cardID string) (*model.Account, *apperrors.AppError) {
	if cardID == "" {
		return nil, apperrors.InvalidInput("card id is required")
	}

	card, err := s.credentials.GetCard(ctx, cardID)
	if err != nil {
		if errors.Is(err, credentials.ErrCardNotFound) {
			return nil, apperrors.NotFoundWithID("Card", cardID)
		}
		s.log.Error("Credential store unavailable", "card_id", cardID, "error", err)
		return nil, apperrors.Unavailable("credential store")
	}
	if card.Frozen {
		return nil, apperrors.Forbidden("card is frozen")
	}

	account, err := s.ledger.GetAccount(ctx, card.AccountID)
	if err != nil {
		return nil, apperrors.AsAppError(err)
	}
	if account.Status != model.AccountActive {
		return nil, apperrors.Forbidden("account is not active")
	}
	return account, nil
}

func (s *orchestratorService) rejectCard(ctx context.Context, session *model.Session, rejection *apperrors.AppError) error {
	to, err := s.next(session, operations.EventCardRejected)
	if err != nil {
		return err
	}
	if err := s.releaseDeviceStep(ctx, &releaseState{session: session}); err != nil {
		return tagged(err, session)
	}
	session.DeviceID = ""
	if err := s.persist(ctx, session, to); err != nil {
		return err
	}

	s.log.Info("Card rejected, device released", "session_id", session.ID, "reason", rejection.Code)
	return tagged(rejection, session)
}

// VerifyPin checks the PIN. Failures count against the retry budget; the last
// allowed failure freezes the card and cancels the session.
func (s *orchestratorService) VerifyPin(ctx context.Context, sessionID, pin string) (*SessionView, error) {
	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.requireATM(session, operations.EventVerifyPin); err != nil {
		return nil, err
	}
	to, err := s.next(session, operations.EventVerifyPin)
	if err != nil {
		return nil, err
	}
	if err := s.touchLeases(ctx, session); err != nil {
		return nil, err
	}

	ok, err := s.credentials.VerifyCredential(ctx, session.CardID, sanitizer.SanitizePin(pin))
	if err != nil {
		s.log.Error("Credential check failed", "session_id", session.ID, "error", err)
		return nil, tagged(apperrors.Unavailable("credential store"), session)
	}

	if ok {
		session.PinFailures = 0
		if err := s.persist(ctx, session, to); err != nil {
			return nil, err
		}
		return s.view(ctx, session), nil
	}

	session.PinFailures++
	remaining := s.settings.PinRetryBudget - session.PinFailures
	s.log.Warn("PIN verification failed",
		"session_id", session.ID,
		"card_id", session.CardID,
		"remaining", remaining,
	)

	if remaining > 0 {
		if err := s.persist(ctx, session, session.State); err != nil {
			return nil, err
		}
		return nil, tagged(apperrors.PinFailed(remaining), session)
	}

	if err := s.credentials.FreezeCard(ctx, session.CardID); err != nil {
		s.log.Error("Failed to freeze card", "card_id", session.CardID, "error", err)
	}
	ended, err := s.end(ctx, session, flowCancel, "pin_retry_budget_exhausted")
	if err != nil {
		return nil, err
	}
	return nil, tagged(apperrors.PinFailed(0), ended)
}

// EnterAmount records the requested operation as a pending transaction. It may
// be repeated to change the amount, and after a failed submit it starts a new
// transaction.
func (s *orchestratorService) EnterAmount(ctx context.Context, sessionID string, op model.TransactionType, amount model.Amount) (*SessionView, error) {
	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.requireATM(session, operations.EventEnterAmount); err != nil {
		return nil, err
	}
	to, err := s.next(session, operations.EventEnterAmount)
	if err != nil {
		return nil, err
	}
	if err := s.checkAmount(ctx, session, op, amount); err != nil {
		return nil, tagged(err, session)
	}
	if err := s.touchLeases(ctx, session); err != nil {
		return nil, err
	}

	if session.State == model.StateAmountEntered && session.Operation == op {
		if _, err := s.ledger.Amend(ctx, session.TransactionID, amount); err != nil {
			return nil, tagged(err, session)
		}
	} else {
		if session.State == model.StateAmountEntered {
			if _, err := s.ledger.Cancel(ctx, session.TransactionID); err != nil {
				return nil, tagged(err, session)
			}
		}
		tx := &model.Transaction{
			Type:      op,
			Amount:    amount,
			DeviceID:  session.DeviceID,
			SessionID: session.ID,
		}
		if op == model.TransactionWithdrawal {
			tx.SourceAccountID = session.AccountID
		} else {
			tx.DestinationAccountID = session.AccountID
		}
		opened, err := s.ledger.Open(ctx, tx)
		if err != nil {
			return nil, tagged(err, session)
		}
		session.TransactionID = opened.ID
	}

	session.Operation = op
	session.Amount = amount
	if err := s.persist(ctx, session, to); err != nil {
		return nil, err
	}
	return s.view(ctx, session), nil
}

func (s *orchestratorService) checkAmount(ctx context.Context, session *model.Session, op model.TransactionType, amount model.Amount) error {
	if op != model.TransactionWithdrawal && op != model.TransactionDeposit {
		return apperrors.Validation("operation must be withdrawal or deposit", map[string]any{"operation": op})
	}
	if !amount.IsPositive() {
		return apperrors.Validation("amount must be positive", map[string]any{"amount_minor": int64(amount)})
	}
	if op == model.TransactionWithdrawal && amount%s.settings.ATMDenomination != 0 {
		return apperrors.Validation("withdrawal must be a multiple of the smallest note", map[string]any{
			"amount_minor":       int64(amount),
			"denomination_minor": int64(s.settings.ATMDenomination),
		})
	}

	device, err := s.devices.Get(ctx, session.DeviceID)
	if err != nil {
		if errors.Is(err, devices.ErrDeviceNotFound) {
			return apperrors.NotFoundWithID("Device", session.DeviceID)
		}
		return apperrors.Unavailable("device registry")
	}
	if amount > device.PerOperationLimit {
		return apperrors.Validation("amount exceeds the device limit", map[string]any{
			"amount_minor": int64(amount),
			"limit_minor":  int64(device.PerOperationLimit),
		})
	}

	if op == model.TransactionWithdrawal {
		account, err := s.ledger.GetAccount(ctx, session.AccountID)
		if err != nil {
			return err
		}
		if amount > account.Balance {
			return apperrors.InsufficientFunds()
		}
	}
	return nil
}

// ConfirmPrint returns the receipt and then releases the session's resources.
// Repeating it after release returns the same receipt.
func (s *orchestratorService) ConfirmPrint(ctx context.Context, sessionID string) (*SessionView, *model.Confirmation, error) {
	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	if err := s.requireATM(session, operations.EventConfirm); err != nil {
		return nil, nil, err
	}

	replay := session.State == model.StateConfirmed ||
		(session.State == model.StateReleased && session.TransactionID != "")
	if !replay {
		to, err := s.next(session, operations.EventConfirm)
		if err != nil {
			return nil, nil, err
		}
		conf, err := s.ledger.Confirmation(ctx, session.TransactionID)
		if err != nil {
			return nil, nil, tagged(err, session)
		}
		if err := s.persist(ctx, session, to); err != nil {
			return nil, nil, err
		}
		session, err = s.end(ctx, session, flowRelease, "confirmed")
		if err != nil {
			return nil, nil, err
		}
		return s.view(ctx, session), conf, nil
	}

	conf, err := s.ledger.Confirmation(ctx, session.TransactionID)
	if err != nil {
		return nil, nil, tagged(err, session)
	}
	if session.State == model.StateConfirmed {
		session, err = s.end(ctx, session, flowRelease, "confirmed")
		if err != nil {
			return nil, nil, err
		}
	}
	return s.view(ctx, session), conf, nil
}
