package service

import (
	"context"
	"errors"
	"time"

	ledgererrors "bankops/internal/ledger/errors"
	"bankops/internal/ledger/repository"
	apperrors "bankops/pkg/errors"
	"bankops/pkg/logger"
	"bankops/pkg/metrics"
	"bankops/pkg/model"

	"github.com/google/uuid"
)

type Decision string

const (
	DecisionAccept Decision = "accept"
	DecisionReject Decision = "reject"
)

// LedgerService owns transaction status and the balance effects tied to it.
// Every status change is published through the EventPublisher on a best-effort basis.
type LedgerService interface {
	Open(ctx context.Context, tx *model.Transaction) (*model.Transaction, error)
	Amend(ctx context.Context, id string, amount model.Amount) (*model.Transaction, error)
	Authorize(ctx context.Context, id string) (*model.Transaction, error)
	Flag(ctx context.Context, id string, reason string) (*model.Transaction, error)
	Settle(ctx context.Context, id string) (*model.Transaction, error)
	Cancel(ctx context.Context, id string) (*model.Transaction, error)
	Decide(ctx context.Context, id string, decision Decision, note string) (*model.Transaction, error)

	Get(ctx context.Context, id string) (*model.Transaction, error)
	ListByStatus(ctx context.Context, status model.TransactionStatus, limit int, offset int64) ([]*model.Transaction, int64, error)
	Confirmation(ctx context.Context, id string) (*model.Confirmation, error)

	GetAccount(ctx context.Context, id string) (*model.Account, error)
	FindAccountByNumber(ctx context.Context, number string) (*model.Account, error)
}

type ledgerService struct {
	repo      repository.LedgerRepository
	events    EventPublisher
	collector metrics.Collector
	log       *logger.Logger
	now       func() time.Time
}

type Option func(*ledgerService)

func WithClock(now func() time.Time) Option {
	return func(s *ledgerService) {
		s.now = now
	}
}

func NewLedgerService(repo repository.LedgerRepository, events EventPublisher, collector metrics.Collector, log *logger.Logger, opts ...Option) LedgerService {
	if events == nil {
		events = NopEventPublisher{}
	}
	if collector == nil {
		collector = metrics.NoOpCollector{}
	}
	s := &ledgerService{
		repo:      repo,
		events:    events,
		collector: collector,
		log:       log,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *ledgerService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

func (s *ledgerService) Open(ctx context.Context, tx *model.Transaction) (*model.Transaction, error) {
	if !tx.Amount.IsPositive() {
		return nil, apperrors.Validation("amount must be positive", map[string]any{"amount_minor": int64(tx.Amount)})
	}

	now := s.timestamp()
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	tx.Status = model.StatusPending
	tx.EffectApplied = false
	tx.CreatedAt = now
	tx.UpdatedAt = now
	tx.DecidedAt = nil

	if err := s.repo.CreateTransaction(ctx, tx); err != nil {
		s.log.Error("Failed to open transaction",
			"transaction_id", tx.ID,
			"session_id", tx.SessionID,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to record transaction", err)
	}

	s.log.Info("Transaction opened",
		"transaction_id", tx.ID,
		"type", tx.Type,
		"amount", tx.Amount.String(),
		"session_id", tx.SessionID,
	)
	s.changed(ctx, tx)
	return tx, nil
}

func (s *ledgerService) Amend(ctx context.Context, id string, amount model.Amount) (*model.Transaction, error) {
	if !amount.IsPositive() {
		return nil, apperrors.Validation("amount must be positive", map[string]any{"amount_minor": int64(amount)})
	}

	tx, err := s.repo.Transition(ctx, id, []model.TransactionStatus{model.StatusPending}, repository.StatusUpdate{
		Status:    model.StatusPending,
		Amount:    amount,
		UpdatedAt: s.timestamp(),
	})
	if err != nil {
		return nil, s.mapTransitionError(ctx, id, "amend", err)
	}
	return tx, nil
}

func (s *ledgerService) Authorize(ctx context.Context, id string) (*model.Transaction, error) {
	tx, err := s.repo.Transition(ctx, id, []model.TransactionStatus{model.StatusPending}, repository.StatusUpdate{
		Status:    model.StatusAuthorized,
		UpdatedAt: s.timestamp(),
	})
	if err != nil {
		return nil, s.mapTransitionError(ctx, id, "authorize", err)
	}
	s.changed(ctx, tx)
	return tx, nil
}

func (s *ledgerService) Flag(ctx context.Context, id string, reason string) (*model.Transaction, error) {
	tx, err := s.repo.Transition(ctx, id, []model.TransactionStatus{model.StatusAuthorized}, repository.StatusUpdate{
		Status:          model.StatusFlagged,
		ScreeningReason: reason,
		UpdatedAt:       s.timestamp(),
	})
	if err != nil {
		return nil, s.mapTransitionError(ctx, id, "flag", err)
	}

	s.log.Info("Transaction held for AML review", "transaction_id", id, "reason", reason)
	s.changed(ctx, tx)
	return tx, nil
}

// Settle applies an authorized transaction. Settling an already successful
// transaction returns it unchanged, so a retried submit never moves money twice.
func (s *ledgerService) Settle(ctx context.Context, id string) (*model.Transaction, error) {
	start := time.Now()
	now := s.timestamp()

	tx, err := s.repo.Commit(ctx, id, []model.TransactionStatus{model.StatusAuthorized}, repository.StatusUpdate{
		Status:    model.StatusSuccess,
		DecidedAt: &now,
		UpdatedAt: now,
	})
	if err == nil {
		s.collector.RecordSettlement("success", time.Since(start))
		s.log.Info("Transaction settled", "transaction_id", id, "amount", tx.Amount.String())
		s.changed(ctx, tx)
		return tx, nil
	}

	if errors.Is(err, ledgererrors.ErrInsufficientFunds) {
		s.collector.RecordSettlement("insufficient_funds", time.Since(start))
		return nil, s.failForFunds(ctx, id, model.StatusAuthorized, "")
	}

	if errors.Is(err, ledgererrors.ErrStatusConflict) {
		current, getErr := s.Get(ctx, id)
		if getErr == nil && current.Status == model.StatusSuccess {
			return current, nil
		}
	}

	s.collector.RecordSettlement("error", time.Since(start))
	return nil, s.mapTransitionError(ctx, id, "settle", err)
}

// failForFunds records the terminal failure after a commit was refused for lack of funds.
func (s *ledgerService) failForFunds(ctx context.Context, id string, from model.TransactionStatus, note string) error {
	now := s.timestamp()
	tx, err := s.repo.Transition(ctx, id, []model.TransactionStatus{from}, repository.StatusUpdate{
		Status:       model.StatusFailure,
		ReviewerNote: note,
		DecidedAt:    &now,
		UpdatedAt:    now,
	})
	if err != nil {
		return s.mapTransitionError(ctx, id, "fail", err)
	}

	s.log.Warn("Transaction failed, insufficient funds", "transaction_id", id, "account_id", tx.SourceAccountID)
	s.changed(ctx, tx)
	return apperrors.InsufficientFunds().WithDetails(map[string]any{"transaction_id": id})
}

// Cancel marks a transaction with no applied effect as cancelled. Terminal
// transactions are returned as they are.
func (s *ledgerService) Cancel(ctx context.Context, id string) (*model.Transaction, error) {
	now := s.timestamp()
	tx, err := s.repo.Transition(ctx, id, []model.TransactionStatus{model.StatusPending, model.StatusAuthorized}, repository.StatusUpdate{
		Status:    model.StatusCancelled,
		DecidedAt: &now,
		UpdatedAt: now,
	})
	if err == nil {
		s.log.Info("Transaction cancelled", "transaction_id", id)
		s.changed(ctx, tx)
		return tx, nil
	}

	if errors.Is(err, ledgererrors.ErrStatusConflict) {
		current, getErr := s.Get(ctx, id)
		if getErr != nil {
			return nil, getErr
		}
		if current.Status.IsTerminal() {
			return current, nil
		}
		return nil, apperrors.InvalidState(string(current.Status), "cancel")
	}
	return nil, s.mapTransitionError(ctx, id, "cancel", err)
}

func (s *ledgerService) Decide(ctx context.Context, id string, decision Decision, note string) (*model.Transaction, error) {
	if decision != DecisionAccept && decision != DecisionReject {
		return nil, apperrors.InvalidInput("decision must be accept or reject")
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status.IsTerminal() {
		return nil, apperrors.AlreadyDecided(string(current.Status))
	}
	if current.Status != model.StatusFlagged {
		return nil, apperrors.InvalidState(string(current.Status), string(decision))
	}

	now := s.timestamp()
	flagged := []model.TransactionStatus{model.StatusFlagged}

	var tx *model.Transaction
	if decision == DecisionAccept {
		tx, err = s.repo.Commit(ctx, id, flagged, repository.StatusUpdate{
			Status:       model.StatusAccepted,
			ReviewerNote: note,
			DecidedAt:    &now,
			UpdatedAt:    now,
		})
		if errors.Is(err, ledgererrors.ErrInsufficientFunds) {
			return nil, s.failForFunds(ctx, id, model.StatusFlagged, note)
		}
	} else {
		tx, err = s.repo.Transition(ctx, id, flagged, repository.StatusUpdate{
			Status:       model.StatusRejected,
			ReviewerNote: note,
			DecidedAt:    &now,
			UpdatedAt:    now,
		})
	}
	if err != nil {
		return nil, s.mapTransitionError(ctx, id, string(decision), err)
	}

	s.log.Info("AML review decided",
		"transaction_id", id,
		"decision", decision,
		"status", tx.Status,
	)
	s.changed(ctx, tx)
	return tx, nil
}

func (s *ledgerService) Get(ctx context.Context, id string) (*model.Transaction, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Transaction ID cannot be empty")
	}

	tx, err := s.repo.FindTransaction(ctx, id)
	if err != nil {
		if errors.Is(err, ledgererrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Transaction", id)
		}
		s.log.Error("Failed to get transaction", "transaction_id", id, "error", err)
		return nil, apperrors.Internal("Failed to retrieve transaction", err)
	}
	return tx, nil
}

func (s *ledgerService) ListByStatus(ctx context.Context, status model.TransactionStatus, limit int, offset int64) ([]*model.Transaction, int64, error) {
	count, err := s.repo.CountByStatus(ctx, status)
	if err != nil {
		s.log.Error("Failed to count transactions", "status", status, "error", err)
		return nil, 0, apperrors.Internal("Failed to list transactions", err)
	}

	txs, err := s.repo.FindByStatus(ctx, status, limit, offset)
	if err != nil {
		s.log.Error("Failed to list transactions", "status", status, "error", err)
		return nil, 0, apperrors.Internal("Failed to list transactions", err)
	}
	return txs, count, nil
}

// Confirmation returns the receipt of a terminal transaction, generating and
// storing it on first request.
func (s *ledgerService) Confirmation(ctx context.Context, id string) (*model.Confirmation, error) {
	tx, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !tx.Status.IsTerminal() {
		return nil, apperrors.InvalidState(string(tx.Status), "fetch_confirmation")
	}

	existing, err := s.repo.FindConfirmation(ctx, id)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ledgererrors.ErrConfirmationNotFound) {
		return nil, apperrors.Internal("Failed to read confirmation", err)
	}

	created := tx.UpdatedAt
	if tx.DecidedAt != nil {
		created = *tx.DecidedAt
	}
	stored, err := s.repo.InsertConfirmation(ctx, &model.Confirmation{
		TransactionID: id,
		Content:       RenderConfirmation(tx),
		CreatedAt:     created,
	})
	if err != nil {
		s.log.Error("Failed to store confirmation", "transaction_id", id, "error", err)
		return nil, apperrors.Internal("Failed to store confirmation", err)
	}
	return stored, nil
}

func (s *ledgerService) GetAccount(ctx context.Context, id string) (*model.Account, error) {
	acc, err := s.repo.FindAccount(ctx, id)
	if err != nil {
		if errors.Is(err, ledgererrors.ErrAccountNotFound) {
			return nil, apperrors.NotFoundWithID("Account", id)
		}
		return nil, apperrors.Internal("Failed to retrieve account", err)
	}
	return acc, nil
}

func (s *ledgerService) FindAccountByNumber(ctx context.Context, number string) (*model.Account, error) {
	acc, err := s.repo.FindAccountByNumber(ctx, number)
	if err != nil {
		if errors.Is(err, ledgererrors.ErrAccountNotFound) {
			return nil, apperrors.NotFound("Account")
		}
		return nil, apperrors.Internal("Failed to retrieve account", err)
	}
	return acc, nil
}

// mapTransitionError turns repository failures into the external taxonomy.
func (s *ledgerService) mapTransitionError(ctx context.Context, id, operation string, err error) error {
	switch {
	case errors.Is(err, ledgererrors.ErrNotFound):
		return apperrors.NotFoundWithID("Transaction", id)
	case errors.Is(err, ledgererrors.ErrAccountNotFound):
		return apperrors.NotFound("Account")
	case errors.Is(err, ledgererrors.ErrStatusConflict):
		current, getErr := s.repo.FindTransaction(ctx, id)
		if getErr != nil {
			return apperrors.Conflict("transaction status changed concurrently")
		}
		if current.Status.IsTerminal() && (operation == string(DecisionAccept) || operation == string(DecisionReject)) {
			return apperrors.AlreadyDecided(string(current.Status))
		}
		return apperrors.InvalidState(string(current.Status), operation)
	}

	s.log.Error("Ledger operation failed",
		"transaction_id", id,
		"operation", operation,
		"error", err,
	)
	return apperrors.Internal("Ledger operation failed", err)
}

func (s *ledgerService) changed(ctx context.Context, tx *model.Transaction) {
	s.collector.RecordTransaction(string(tx.Type), string(tx.Status))
	if err := s.events.PublishStatusChange(ctx, tx); err != nil {
		s.log.Warn("Failed to publish transaction event",
			"transaction_id", tx.ID,
			"status", tx.Status,
			"error", err,
		)
	}
}
