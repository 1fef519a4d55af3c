package model

import "time"

type Channel string

const (
	ChannelATM       Channel = "ATM"
	ChannelTransfer  Channel = "TRANSFER"
	ChannelAMLReview Channel = "AML_REVIEW"
)

type SessionState string

const (
	StateIdle           SessionState = "IDLE"
	StateDeviceAssigned SessionState = "DEVICE_ASSIGNED"
	StateCardVerified   SessionState = "CARD_VERIFIED"
	StatePinVerified    SessionState = "PIN_VERIFIED"
	StateAmountEntered  SessionState = "AMOUNT_ENTERED"
	StateSubmitted      SessionState = "SUBMITTED"
	StateSuccess        SessionState = "SUCCESS"
	StateFailure        SessionState = "FAILURE"
	StatePendingReview  SessionState = "PENDING_REVIEW"
	StateConfirmed      SessionState = "CONFIRMED"
	StateReleased       SessionState = "RELEASED"
	StateCancelled      SessionState = "CANCELLED"
)

// Session is the server-side record of one client interaction.
// Version is bumped on every persisted transition and used for compare-and-set updates.
type Session struct {
	ID            string          `bson:"_id" json:"id"`
	Channel       Channel         `bson:"channel" json:"channel"`
	State         SessionState    `bson:"state" json:"state"`
	Operation     TransactionType `bson:"operation,omitempty" json:"operation,omitempty"`
	DeviceID      string          `bson:"device_id,omitempty" json:"device_id,omitempty"`
	AccountID     string          `bson:"account_id,omitempty" json:"account_id,omitempty"`
	CardID        string          `bson:"card_id,omitempty" json:"card_id,omitempty"`
	OwnerID       string          `bson:"owner_id,omitempty" json:"owner_id,omitempty"`
	Amount        Amount          `bson:"amount" json:"amount_minor"`
	TransactionID string          `bson:"transaction_id,omitempty" json:"transaction_id,omitempty"`
	PinFailures   int             `bson:"pin_failures" json:"pin_failures"`
	DeviceLeased  bool            `bson:"device_leased" json:"device_leased"`
	AccountLeased bool            `bson:"account_leased" json:"account_leased"`
	EndReason     string          `bson:"end_reason,omitempty" json:"end_reason,omitempty"`
	Version       int64           `bson:"version" json:"version"`
	CreatedAt     time.Time       `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `bson:"updated_at" json:"updated_at"`
}

func (s *Session) IsEnded() bool {
	return s.State == StateReleased || s.State == StateCancelled
}

func (s *Session) HoldsLeases() bool {
	return s.DeviceLeased || s.AccountLeased
}
