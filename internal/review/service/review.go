package service

import (
	"context"
	"time"

	ledger "bankops/internal/ledger/service"
	apperrors "bankops/pkg/errors"
	"bankops/pkg/logger"
	"bankops/pkg/model"
	"bankops/pkg/sanitizer"

	"golang.org/x/sync/singleflight"
)

// PendingTransaction is the reviewer's projection of a flagged transaction.
type PendingTransaction struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	SourceAccount string    `json:"source_account_id"`
	Destination   string    `json:"destination"`
	AmountMinor   int64     `json:"amount_minor"`
	Amount        string    `json:"amount"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

type DecisionResult struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
	ReviewerNote  string `json:"reviewer_note,omitempty"`
}

type ReviewService interface {
	ListPending(ctx context.Context, limit int, offset int64) ([]PendingTransaction, int64, error)
	Reason(ctx context.Context, id string) (string, error)
	Decide(ctx context.Context, id string, decision ledger.Decision, note string) (*DecisionResult, error)
}

type reviewService struct {
	ledger ledger.LedgerService
	cache  ReasonCache
	lookup singleflight.Group
	log    *logger.Logger
}

func NewReviewService(ledgerService ledger.LedgerService, cache ReasonCache, log *logger.Logger) ReviewService {
	if cache == nil {
		cache = NewMemoryReasonCache()
	}
	return &reviewService{
		ledger: ledgerService,
		cache:  cache,
		log:    log,
	}
}

func (s *reviewService) ListPending(ctx context.Context, limit int, offset int64) ([]PendingTransaction, int64, error) {
	txs, count, err := s.ledger.ListByStatus(ctx, model.StatusFlagged, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	pending := make([]PendingTransaction, 0, len(txs))
	for _, tx := range txs {
		pending = append(pending, project(tx))
	}
	return pending, count, nil
}

func project(tx *model.Transaction) PendingTransaction {
	destination := tx.DestinationExternal
	if tx.DestinationAccountID != "" {
		destination = tx.DestinationAccountID
	}
	return PendingTransaction{
		ID:            tx.ID,
		Type:          string(tx.Type),
		SourceAccount: tx.SourceAccountID,
		Destination:   destination,
		AmountMinor:   int64(tx.Amount),
		Amount:        tx.Amount.String(),
		Status:        model.ProjectStatus(tx.Status, model.ViewAML),
		CreatedAt:     tx.CreatedAt,
	}
}

func (s *reviewService) Reason(ctx context.Context, id string) (string, error) {
	id = sanitizer.SanitizeIdentifier(id)
	if id == "" {
		return "", apperrors.InvalidInput("Transaction ID cannot be empty")
	}
	if reason, ok := s.cache.Get(ctx, id); ok {
		return reason, nil
	}

	// Reviewers polling the same transaction share one ledger read.
	v, err, _ := s.lookup.Do(id, func() (any, error) {
		tx, err := s.ledger.Get(ctx, id)
		if err != nil {
			return "", err
		}
		if tx.ScreeningReason == "" {
			return "", apperrors.NotFoundWithID("Screening reason", id)
		}
		s.cache.Set(ctx, id, tx.ScreeningReason)
		return tx.ScreeningReason, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (s *reviewService) Decide(ctx context.Context, id string, decision ledger.Decision, note string) (*DecisionResult, error) {
	id = sanitizer.SanitizeIdentifier(id)
	if id == "" {
		return nil, apperrors.InvalidInput("Transaction ID cannot be empty")
	}
	note = sanitizer.SanitizeNote(note)

	tx, err := s.ledger.Decide(ctx, id, decision, note)
	if err != nil {
		if !apperrors.HasCode(err, apperrors.CodeInsufficientFunds) {
			s.log.Warn("AML decision refused", "transaction_id", id, "decision", decision, "error", err)
		}
		return nil, err
	}

	return &DecisionResult{
		TransactionID: tx.ID,
		Status:        model.ProjectStatus(tx.Status, model.ViewAML),
		ReviewerNote:  tx.ReviewerNote,
	}, nil
}
