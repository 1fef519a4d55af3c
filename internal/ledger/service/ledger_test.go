package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"bankops/internal/ledger/repository"
	apperrors "bankops/pkg/errors"
	"bankops/pkg/logger"
	"bankops/pkg/metrics"
	"bankops/pkg/model"
)

type recordingPublisher struct {
	mu       sync.Mutex
	statuses []model.TransactionStatus
	err      error
}

func (p *recordingPublisher) PublishStatusChange(_ context.Context, tx *model.Transaction) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.statuses = append(p.statuses, tx.Status)
	return p.err
}

type fixture struct {
	svc       LedgerService
	repo      repository.LedgerRepository
	publisher *recordingPublisher
}

func newFixture(t *testing.T, balances map[string]model.Amount) *fixture {
	t.Helper()
	repo := repository.NewMemoryLedgerRepository()
	for id, balance := range balances {
		if err := repo.CreateAccount(context.Background(), &model.Account{
			ID:      id,
			Number:  "NR-" + id,
			OwnerID: "owner-" + id,
			Balance: balance,
			Status:  model.AccountActive,
		}); err != nil {
			t.Fatalf("CreateAccount() error = %v", err)
		}
	}

	publisher := &recordingPublisher{}
	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := NewLedgerService(repo, publisher, metrics.NoOpCollector{}, logger.Nop(), WithClock(func() time.Time { return fixed }))
	return &fixture{svc: svc, repo: repo, publisher: publisher}
}

func (f *fixture) balance(t *testing.T, id string) model.Amount {
	t.Helper()
	acc, err := f.repo.FindAccount(context.Background(), id)
	if err != nil {
		t.Fatalf("FindAccount(%s) error = %v", id, err)
	}
	return acc.Balance
}

func (f *fixture) authorized(t *testing.T, tx *model.Transaction) *model.Transaction {
	t.Helper()
	ctx := context.Background()
	opened, err := f.svc.Open(ctx, tx)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	authorized, err := f.svc.Authorize(ctx, opened.ID)
	if err != nil {
		t.Fatalf("Authorize() error = %v", err)
	}
	return authorized
}

func TestSettle_Effects(t *testing.T) {
	tests := []struct {
		name string
		tx   model.Transaction
		want map[string]model.Amount
	}{
		{
			name: "withdrawal debits source",
			tx:   model.Transaction{Type: model.TransactionWithdrawal, SourceAccountID: "a", Amount: 30000},
			want: map[string]model.Amount{"a": 20000, "b": 0},
		},
		{
			name: "deposit credits destination",
			tx:   model.Transaction{Type: model.TransactionDeposit, DestinationAccountID: "a", Amount: 1000},
			want: map[string]model.Amount{"a": 51000, "b": 0},
		},
		{
			name: "internal transfer moves funds",
			tx:   model.Transaction{Type: model.TransactionTransfer, SourceAccountID: "a", DestinationAccountID: "b", Amount: 12345},
			want: map[string]model.Amount{"a": 37655, "b": 12345},
		},
		{
			name: "external transfer only debits",
			tx:   model.Transaction{Type: model.TransactionTransfer, SourceAccountID: "a", DestinationExternal: "DE89370400440532013000", Amount: 5000},
			want: map[string]model.Amount{"a": 45000, "b": 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, map[string]model.Amount{"a": 50000, "b": 0})
			tx := tt.tx
			authorized := f.authorized(t, &tx)

			settled, err := f.svc.Settle(context.Background(), authorized.ID)
			if err != nil {
				t.Fatalf("Settle() error = %v", err)
			}
			if settled.Status != model.StatusSuccess || !settled.EffectApplied || settled.DecidedAt == nil {
				t.Errorf("settled = %+v", settled)
			}
			for id, want := range tt.want {
				if got := f.balance(t, id); got != want {
					t.Errorf("balance(%s) = %d, want %d", id, got, want)
				}
			}
		})
	}
}

func TestSettle_AppliesEffectOnce(t *testing.T) {
	f := newFixture(t, map[string]model.Amount{"a": 50000})
	tx := f.authorized(t, &model.Transaction{Type: model.TransactionWithdrawal, SourceAccountID: "a", Amount: 30000})

	for i := 0; i < 3; i++ {
		settled, err := f.svc.Settle(context.Background(), tx.ID)
		if err != nil {
			t.Fatalf("Settle() attempt %d error = %v", i, err)
		}
		if settled.Status != model.StatusSuccess {
			t.Fatalf("status = %s, want success", settled.Status)
		}
	}

	if got := f.balance(t, "a"); got != 20000 {
		t.Errorf("balance = %d, want 20000", got)
	}
}

func TestSettle_InsufficientFunds(t *testing.T) {
	f := newFixture(t, map[string]model.Amount{"a": 10000})
	tx := f.authorized(t, &model.Transaction{Type: model.TransactionWithdrawal, SourceAccountID: "a", Amount: 30000})

	_, err := f.svc.Settle(context.Background(), tx.ID)
	if !apperrors.HasCode(err, apperrors.CodeInsufficientFunds) {
		t.Fatalf("Settle() error = %v, want INSUFFICIENT_FUNDS", err)
	}

	stored, _ := f.svc.Get(context.Background(), tx.ID)
	if stored.Status != model.StatusFailure || stored.EffectApplied {
		t.Errorf("stored = %+v, want failure without effect", stored)
	}
	if got := f.balance(t, "a"); got != 10000 {
		t.Errorf("balance = %d, want 10000", got)
	}
}

func TestSettle_ConcurrentDebitsNeverOverdraw(t *testing.T) {
	f := newFixture(t, map[string]model.Amount{"a": 50000})
	first := f.authorized(t, &model.Transaction{Type: model.TransactionWithdrawal, SourceAccountID: "a", Amount: 30000})
	second := f.authorized(t, &model.Transaction{Type: model.TransactionWithdrawal, SourceAccountID: "a", Amount: 30000})

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i, id := range []string{first.ID, second.ID} {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, results[i] = f.svc.Settle(context.Background(), id)
		}(i, id)
	}
	wg.Wait()

	successes := 0
	for _, err := range results {
		switch {
		case err == nil:
			successes++
		case !apperrors.HasCode(err, apperrors.CodeInsufficientFunds):
			t.Errorf("unexpected error: %v", err)
		}
	}
	if successes != 1 {
		t.Errorf("successes = %d, want 1", successes)
	}
	if got := f.balance(t, "a"); got != 20000 {
		t.Errorf("balance = %d, want 20000", got)
	}
}

func TestCancel(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, map[string]model.Amount{"a": 50000})

	pending, _ := f.svc.Open(ctx, &model.Transaction{Type: model.TransactionWithdrawal, SourceAccountID: "a", Amount: 1000})
	cancelled, err := f.svc.Cancel(ctx, pending.ID)
	if err != nil || cancelled.Status != model.StatusCancelled {
		t.Fatalf("Cancel() = %+v, %v", cancelled, err)
	}

	again, err := f.svc.Cancel(ctx, pending.ID)
	if err != nil || again.Status != model.StatusCancelled {
		t.Errorf("repeat Cancel() = %+v, %v", again, err)
	}

	settledTx := f.authorized(t, &model.Transaction{Type: model.TransactionWithdrawal, SourceAccountID: "a", Amount: 1000})
	_, _ = f.svc.Settle(ctx, settledTx.ID)
	afterSettle, err := f.svc.Cancel(ctx, settledTx.ID)
	if err != nil || afterSettle.Status != model.StatusSuccess {
		t.Errorf("Cancel() on settled = %+v, %v, want success untouched", afterSettle, err)
	}

	flagged := f.authorized(t, &model.Transaction{Type: model.TransactionTransfer, SourceAccountID: "a", DestinationExternal: "X1", Amount: 1000})
	_, _ = f.svc.Flag(ctx, flagged.ID, "over threshold")
	if _, err := f.svc.Cancel(ctx, flagged.ID); !apperrors.HasCode(err, apperrors.CodeInvalidState) {
		t.Errorf("Cancel() on flagged error = %v, want INVALID_STATE", err)
	}
}

func TestAmend(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, map[string]model.Amount{"a": 50000})

	tx, _ := f.svc.Open(ctx, &model.Transaction{Type: model.TransactionWithdrawal, SourceAccountID: "a", Amount: 1000})
	amended, err := f.svc.Amend(ctx, tx.ID, 2000)
	if err != nil || amended.Amount != 2000 {
		t.Fatalf("Amend() = %+v, %v", amended, err)
	}

	_, _ = f.svc.Authorize(ctx, tx.ID)
	if _, err := f.svc.Amend(ctx, tx.ID, 3000); !apperrors.HasCode(err, apperrors.CodeInvalidState) {
		t.Errorf("Amend() after authorize error = %v, want INVALID_STATE", err)
	}
	if _, err := f.svc.Amend(ctx, tx.ID, 0); !apperrors.HasCode(err, apperrors.CodeValidation) {
		t.Errorf("Amend() zero error = %v, want VALIDATION_ERROR", err)
	}
}

func TestDecide(t *testing.T) {
	ctx := context.Background()

	newFlagged := func(t *testing.T, f *fixture, amount model.Amount) *model.Transaction {
		tx := f.authorized(t, &model.Transaction{Type: model.TransactionTransfer, SourceAccountID: "a", DestinationAccountID: "b", Amount: amount})
		flagged, err := f.svc.Flag(ctx, tx.ID, "amount above review threshold")
		if err != nil {
			t.Fatalf("Flag() error = %v", err)
		}
		return flagged
	}

	t.Run("accept applies effect once", func(t *testing.T) {
		f := newFixture(t, map[string]model.Amount{"a": 50000, "b": 0})
		tx := newFlagged(t, f, 30000)

		accepted, err := f.svc.Decide(ctx, tx.ID, DecisionAccept, "documents verified")
		if err != nil {
			t.Fatalf("Decide() error = %v", err)
		}
		if accepted.Status != model.StatusAccepted || accepted.ReviewerNote != "documents verified" {
			t.Errorf("accepted = %+v", accepted)
		}
		if _, err := f.svc.Decide(ctx, tx.ID, DecisionAccept, ""); !apperrors.HasCode(err, apperrors.CodeAlreadyDecided) {
			t.Errorf("second Decide() error = %v, want ALREADY_DECIDED", err)
		}
		if f.balance(t, "a") != 20000 || f.balance(t, "b") != 30000 {
			t.Errorf("balances = %d/%d, want 20000/30000", f.balance(t, "a"), f.balance(t, "b"))
		}
	})

	t.Run("reject then accept is refused", func(t *testing.T) {
		f := newFixture(t, map[string]model.Amount{"a": 50000, "b": 0})
		tx := newFlagged(t, f, 30000)

		rejected, err := f.svc.Decide(ctx, tx.ID, DecisionReject, "")
		if err != nil || rejected.Status != model.StatusRejected {
			t.Fatalf("reject = %+v, %v", rejected, err)
		}
		if _, err := f.svc.Decide(ctx, tx.ID, DecisionAccept, ""); !apperrors.HasCode(err, apperrors.CodeAlreadyDecided) {
			t.Errorf("accept after reject error = %v, want ALREADY_DECIDED", err)
		}
		if f.balance(t, "a") != 50000 || f.balance(t, "b") != 0 {
			t.Errorf("balances changed after reject")
		}
	})

	t.Run("accept without funds fails the transaction", func(t *testing.T) {
		f := newFixture(t, map[string]model.Amount{"a": 1000, "b": 0})
		tx := newFlagged(t, f, 30000)

		if _, err := f.svc.Decide(ctx, tx.ID, DecisionAccept, ""); !apperrors.HasCode(err, apperrors.CodeInsufficientFunds) {
			t.Fatalf("Decide() error = %v, want INSUFFICIENT_FUNDS", err)
		}
		stored, _ := f.svc.Get(ctx, tx.ID)
		if stored.Status != model.StatusFailure {
			t.Errorf("status = %s, want failure", stored.Status)
		}
	})

	t.Run("not flagged", func(t *testing.T) {
		f := newFixture(t, map[string]model.Amount{"a": 50000})
		tx, _ := f.svc.Open(ctx, &model.Transaction{Type: model.TransactionTransfer, SourceAccountID: "a", DestinationExternal: "X", Amount: 100})
		if _, err := f.svc.Decide(ctx, tx.ID, DecisionAccept, ""); !apperrors.HasCode(err, apperrors.CodeInvalidState) {
			t.Errorf("Decide() error = %v, want INVALID_STATE", err)
		}
	})

	t.Run("unknown transaction", func(t *testing.T) {
		f := newFixture(t, nil)
		if _, err := f.svc.Decide(ctx, "missing", DecisionReject, ""); !apperrors.HasCode(err, apperrors.CodeNotFound) {
			t.Errorf("Decide() error = %v, want NOT_FOUND", err)
		}
	})
}

func TestConfirmation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, map[string]model.Amount{"a": 50000})
	tx := f.authorized(t, &model.Transaction{Type: model.TransactionWithdrawal, SourceAccountID: "a", DeviceID: "atm-1", Amount: 30000})

	if _, err := f.svc.Confirmation(ctx, tx.ID); !apperrors.HasCode(err, apperrors.CodeInvalidState) {
		t.Fatalf("Confirmation() before terminal error = %v, want INVALID_STATE", err)
	}

	if _, err := f.svc.Settle(ctx, tx.ID); err != nil {
		t.Fatalf("Settle() error = %v", err)
	}

	first, err := f.svc.Confirmation(ctx, tx.ID)
	if err != nil {
		t.Fatalf("Confirmation() error = %v", err)
	}
	second, err := f.svc.Confirmation(ctx, tx.ID)
	if err != nil {
		t.Fatalf("second Confirmation() error = %v", err)
	}
	if first.Content != second.Content || !first.CreatedAt.Equal(second.CreatedAt) {
		t.Errorf("confirmation changed between fetches:\n%s\n---\n%s", first.Content, second.Content)
	}
	if want := "Amount: 300.00"; !strings.Contains(first.Content, want) {
		t.Errorf("content missing %q:\n%s", want, first.Content)
	}
}

func TestEvents_PublishedOnEveryChange(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, map[string]model.Amount{"a": 50000})
	f.publisher.err = errors.New("broker unavailable")

	tx := f.authorized(t, &model.Transaction{Type: model.TransactionWithdrawal, SourceAccountID: "a", Amount: 100})
	if _, err := f.svc.Settle(ctx, tx.ID); err != nil {
		t.Fatalf("Settle() must not fail on publish errors: %v", err)
	}

	want := []model.TransactionStatus{model.StatusPending, model.StatusAuthorized, model.StatusSuccess}
	if len(f.publisher.statuses) != len(want) {
		t.Fatalf("published = %v, want %v", f.publisher.statuses, want)
	}
	for i := range want {
		if f.publisher.statuses[i] != want[i] {
			t.Errorf("published[%d] = %s, want %s", i, f.publisher.statuses[i], want[i])
		}
	}
}
