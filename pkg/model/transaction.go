package model

import "time"

type TransactionType string

const (
	TransactionTransfer   TransactionType = "transfer"
	TransactionWithdrawal TransactionType = "withdrawal"
	TransactionDeposit    TransactionType = "deposit"
)

type TransactionStatus string

const (
	StatusPending    TransactionStatus = "pending"
	StatusAuthorized TransactionStatus = "authorized"
	StatusSuccess    TransactionStatus = "success"
	StatusFailure    TransactionStatus = "failure"
	StatusCancelled  TransactionStatus = "cancelled"
	StatusFlagged    TransactionStatus = "flagged"
	StatusAccepted   TransactionStatus = "accepted"
	StatusRejected   TransactionStatus = "rejected"
)

// IsTerminal reports whether the status can never change again.
func (s TransactionStatus) IsTerminal() bool {
	switch s {
	case StatusSuccess, StatusFailure, StatusCancelled, StatusRejected, StatusAccepted:
		return true
	}
	return false
}

// IsSuccessful reports whether the monetary effect belongs to this status.
func (s TransactionStatus) IsSuccessful() bool {
	return s == StatusSuccess || s == StatusAccepted
}

type Transaction struct {
	ID                   string            `bson:"_id" json:"id"`
	Type                 TransactionType   `bson:"type" json:"type"`
	SourceAccountID      string            `bson:"source_account_id,omitempty" json:"source_account_id,omitempty"`
	DestinationAccountID string            `bson:"destination_account_id,omitempty" json:"destination_account_id,omitempty"`
	DestinationExternal  string            `bson:"destination_external,omitempty" json:"destination_external,omitempty"`
	Amount               Amount            `bson:"amount" json:"amount_minor"`
	Status               TransactionStatus `bson:"status" json:"status"`
	DeviceID             string            `bson:"device_id,omitempty" json:"device_id,omitempty"`
	SessionID            string            `bson:"session_id" json:"session_id"`
	EffectApplied        bool              `bson:"effect_applied" json:"effect_applied"`
	ScreeningReason      string            `bson:"screening_reason,omitempty" json:"-"`
	ReviewerNote         string            `bson:"reviewer_note,omitempty" json:"reviewer_note,omitempty"`
	CreatedAt            time.Time         `bson:"created_at" json:"created_at"`
	UpdatedAt            time.Time         `bson:"updated_at" json:"updated_at"`
	DecidedAt            *time.Time        `bson:"decided_at,omitempty" json:"decided_at,omitempty"`
}

// Effects returns the balance deltas this transaction applies when it succeeds.
func (t *Transaction) Effects() []BalanceEffect {
	switch t.Type {
	case TransactionWithdrawal:
		return []BalanceEffect{{AccountID: t.SourceAccountID, Delta: -t.Amount}}
	case TransactionDeposit:
		return []BalanceEffect{{AccountID: t.DestinationAccountID, Delta: t.Amount}}
	case TransactionTransfer:
		effects := []BalanceEffect{{AccountID: t.SourceAccountID, Delta: -t.Amount}}
		if t.DestinationAccountID != "" {
			effects = append(effects, BalanceEffect{AccountID: t.DestinationAccountID, Delta: t.Amount})
		}
		return effects
	}
	return nil
}

type BalanceEffect struct {
	AccountID string
	Delta     Amount
}

type StatusView string

const (
	ViewAML   StatusView = "aml"
	ViewAdmin StatusView = "admin"
)

// ProjectStatus translates the canonical status into the vocabulary a channel displays.
func ProjectStatus(s TransactionStatus, view StatusView) string {
	switch view {
	case ViewAML:
		switch s {
		case StatusSuccess, StatusAccepted:
			return "success"
		case StatusCancelled, StatusRejected, StatusFailure:
			return "cancelled"
		default:
			return "pending"
		}
	case ViewAdmin:
		switch s {
		case StatusSuccess, StatusAccepted:
			return "completed"
		case StatusFailure, StatusRejected:
			return "failed"
		case StatusCancelled:
			return "cancelled"
		default:
			return "pending"
		}
	}
	return string(s)
}
