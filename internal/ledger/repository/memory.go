package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	ledgererrors "bankops/internal/ledger/errors"
	"bankops/pkg/model"
)

// memoryLedgerRepository serializes every operation behind one mutex, which
// makes Commit trivially atomic.
type memoryLedgerRepository struct {
	mu            sync.Mutex
	transactions  map[string]model.Transaction
	accounts      map[string]model.Account
	confirmations map[string]model.Confirmation
}

func NewMemoryLedgerRepository() LedgerRepository {
	return &memoryLedgerRepository{
		transactions:  make(map[string]model.Transaction),
		accounts:      make(map[string]model.Account),
		confirmations: make(map[string]model.Confirmation),
	}
}

func (r *memoryLedgerRepository) CreateTransaction(_ context.Context, tx *model.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.transactions[tx.ID]; exists {
		return fmt.Errorf("transaction %s already exists", tx.ID)
	}
	r.transactions[tx.ID] = *tx
	return nil
}

func (r *memoryLedgerRepository) FindTransaction(_ context.Context, id string) (*model.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, ok := r.transactions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ledgererrors.ErrNotFound, id)
	}
	return &tx, nil
}

func (r *memoryLedgerRepository) byStatus(status model.TransactionStatus) []*model.Transaction {
	var out []*model.Transaction
	for _, tx := range r.transactions {
		if tx.Status == status {
			tx := tx
			out = append(out, &tx)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (r *memoryLedgerRepository) FindByStatus(_ context.Context, status model.TransactionStatus, limit int, offset int64) ([]*model.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all := r.byStatus(status)
	if offset >= int64(len(all)) {
		return []*model.Transaction{}, nil
	}
	end := int(offset) + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (r *memoryLedgerRepository) CountByStatus(_ context.Context, status model.TransactionStatus) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.byStatus(status))), nil
}

func (r *memoryLedgerRepository) transitionLocked(id string, from []model.TransactionStatus, update StatusUpdate, requireUnapplied bool) (model.Transaction, error) {
	tx, ok := r.transactions[id]
	if !ok {
		return tx, fmt.Errorf("%w: %s", ledgererrors.ErrNotFound, id)
	}
	if !containsStatus(from, tx.Status) || (requireUnapplied && tx.EffectApplied) {
		return tx, fmt.Errorf("%w: %s is %s", ledgererrors.ErrStatusConflict, id, tx.Status)
	}
	applyUpdate(&tx, update)
	return tx, nil
}

func applyUpdate(tx *model.Transaction, update StatusUpdate) {
	tx.Status = update.Status
	tx.UpdatedAt = update.UpdatedAt
	if update.Amount != 0 {
		tx.Amount = update.Amount
	}
	if update.ScreeningReason != "" {
		tx.ScreeningReason = update.ScreeningReason
	}
	if update.ReviewerNote != "" {
		tx.ReviewerNote = update.ReviewerNote
	}
	if update.DecidedAt != nil {
		decided := *update.DecidedAt
		tx.DecidedAt = &decided
	}
}

func (r *memoryLedgerRepository) Transition(_ context.Context, id string, from []model.TransactionStatus, update StatusUpdate) (*model.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.transitionLocked(id, from, update, false)
	if err != nil {
		return nil, err
	}
	r.transactions[id] = tx
	return &tx, nil
}

func (r *memoryLedgerRepository) Commit(_ context.Context, id string, from []model.TransactionStatus, update StatusUpdate) (*model.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.transitionLocked(id, from, update, true)
	if err != nil {
		return nil, err
	}

	effects := tx.Effects()
	for _, e := range effects {
		acc, ok := r.accounts[e.AccountID]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ledgererrors.ErrAccountNotFound, e.AccountID)
		}
		if acc.Balance+e.Delta < 0 {
			return nil, ledgererrors.ErrInsufficientFunds
		}
	}
	for _, e := range effects {
		acc := r.accounts[e.AccountID]
		acc.Balance += e.Delta
		acc.UpdatedAt = update.UpdatedAt
		r.accounts[e.AccountID] = acc
	}

	tx.EffectApplied = true
	r.transactions[id] = tx
	return &tx, nil
}

func (r *memoryLedgerRepository) CreateAccount(_ context.Context, account *model.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.accounts[account.ID]; exists {
		return fmt.Errorf("account %s already exists", account.ID)
	}
	r.accounts[account.ID] = *account
	return nil
}

func (r *memoryLedgerRepository) FindAccount(_ context.Context, id string) (*model.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	acc, ok := r.accounts[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ledgererrors.ErrAccountNotFound, id)
	}
	return &acc, nil
}

func (r *memoryLedgerRepository) FindAccountByNumber(_ context.Context, number string) (*model.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, acc := range r.accounts {
		if acc.Number == number {
			acc := acc
			return &acc, nil
		}
	}
	return nil, fmt.Errorf("%w: number %s", ledgererrors.ErrAccountNotFound, number)
}

func (r *memoryLedgerRepository) InsertConfirmation(_ context.Context, c *model.Confirmation) (*model.Confirmation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.confirmations[c.TransactionID]; ok {
		return &existing, nil
	}
	r.confirmations[c.TransactionID] = *c
	stored := *c
	return &stored, nil
}

func (r *memoryLedgerRepository) FindConfirmation(_ context.Context, transactionID string) (*model.Confirmation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.confirmations[transactionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ledgererrors.ErrConfirmationNotFound, transactionID)
	}
	return &c, nil
}
