package repository

import (
	"context"
	"time"

	"bankops/pkg/model"
)

const (
	TransactionsCollection  = "Transactions"
	AccountsCollection      = "Accounts"
	ConfirmationsCollection = "Confirmations"
)

// StatusUpdate describes one status transition. Zero-valued optional fields are left untouched.
type StatusUpdate struct {
	Status          model.TransactionStatus
	Amount          model.Amount
	ScreeningReason string
	ReviewerNote    string
	DecidedAt       *time.Time
	UpdatedAt       time.Time
}

type LedgerRepository interface {
	CreateTransaction(ctx context.Context, tx *model.Transaction) error
	FindTransaction(ctx context.Context, id string) (*model.Transaction, error)
	FindByStatus(ctx context.Context, status model.TransactionStatus, limit int, offset int64) ([]*model.Transaction, error)
	CountByStatus(ctx context.Context, status model.TransactionStatus) (int64, error)

	// Transition moves the transaction from one of from to update.Status without
	// touching balances. Returns ErrStatusConflict when the current status is not in from.
	Transition(ctx context.Context, id string, from []model.TransactionStatus, update StatusUpdate) (*model.Transaction, error)

	// Commit is Transition plus the transaction's balance effects as one atomic unit.
	// It only matches transactions whose effect was never applied, and fails with
	// ErrInsufficientFunds, leaving everything unchanged, when a debit would overdraw.
	Commit(ctx context.Context, id string, from []model.TransactionStatus, update StatusUpdate) (*model.Transaction, error)

	CreateAccount(ctx context.Context, account *model.Account) error
	FindAccount(ctx context.Context, id string) (*model.Account, error)
	FindAccountByNumber(ctx context.Context, number string) (*model.Account, error)

	// InsertConfirmation stores c unless one already exists for the transaction,
	// and returns whichever is stored.
	InsertConfirmation(ctx context.Context, c *model.Confirmation) (*model.Confirmation, error)
	FindConfirmation(ctx context.Context, transactionID string) (*model.Confirmation, error)
}

func containsStatus(from []model.TransactionStatus, s model.TransactionStatus) bool {
	for _, f := range from {
		if f == s {
			return true
		}
	}
	return false
}
