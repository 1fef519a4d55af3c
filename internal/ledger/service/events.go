package service

import (
	"context"
	"time"

	"bankops/pkg/kafka"
	"bankops/pkg/model"
)

const (
	EventSource        = "bankops.ledger"
	EventSchemaVersion = "1"
)

// TransactionEvent is the payload published on every status change.
type TransactionEvent struct {
	TransactionID        string                  `json:"transaction_id"`
	Type                 model.TransactionType   `json:"type"`
	Status               model.TransactionStatus `json:"status"`
	AmountMinor          model.Amount            `json:"amount_minor"`
	SourceAccountID      string                  `json:"source_account_id,omitempty"`
	DestinationAccountID string                  `json:"destination_account_id,omitempty"`
	DestinationExternal  string                  `json:"destination_external,omitempty"`
	DeviceID             string                  `json:"device_id,omitempty"`
	SessionID            string                  `json:"session_id"`
	EffectApplied        bool                    `json:"effect_applied"`
	OccurredAt           time.Time               `json:"occurred_at"`
}

func NewTransactionEvent(tx *model.Transaction) TransactionEvent {
	return TransactionEvent{
		TransactionID:        tx.ID,
		Type:                 tx.Type,
		Status:               tx.Status,
		AmountMinor:          tx.Amount,
		SourceAccountID:      tx.SourceAccountID,
		DestinationAccountID: tx.DestinationAccountID,
		DestinationExternal:  tx.DestinationExternal,
		DeviceID:             tx.DeviceID,
		SessionID:            tx.SessionID,
		EffectApplied:        tx.EffectApplied,
		OccurredAt:           tx.UpdatedAt,
	}
}

type EventPublisher interface {
	PublishStatusChange(ctx context.Context, tx *model.Transaction) error
}

type Publisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

type kafkaEventPublisher struct {
	producer Publisher
}

// NewKafkaEventPublisher keys events by transaction id so one transaction's
// history stays ordered within a partition.
func NewKafkaEventPublisher(producer Publisher) EventPublisher {
	return &kafkaEventPublisher{producer: producer}
}

func (p *kafkaEventPublisher) PublishStatusChange(ctx context.Context, tx *model.Transaction) error {
	msg := kafka.NewMessage().
		WithKey(tx.ID).
		WithValue(NewTransactionEvent(tx)).
		WithEventType("transaction." + string(tx.Status)).
		WithCorrelationID(tx.SessionID).
		WithSchemaVersion(EventSchemaVersion).
		WithSource(EventSource).
		Build()

	return p.producer.Publish(ctx, msg)
}

type NopEventPublisher struct{}

func (NopEventPublisher) PublishStatusChange(context.Context, *model.Transaction) error {
	return nil
}
