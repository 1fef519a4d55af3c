package kafka

import (
	"context"
	"errors"
	"fmt"
	"testing"

	kafka_config "bankops/pkg/kafka/config"
	"bankops/pkg/logger"
)

func TestMessageBuilder(t *testing.T) {
	msg := NewMessage().
		WithKey("tx-1").
		WithValue(map[string]int{"amount": 500}).
		WithEventType("transaction.decided").
		WithCorrelationID("corr-1").
		Build()

	if err := msg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if msg.GetEventID() == "" {
		t.Error("expected generated event id")
	}
	if msg.GetCorrelationID() != "corr-1" {
		t.Errorf("correlation id = %q, want corr-1", msg.GetCorrelationID())
	}

	var decoded map[string]int
	if err := msg.DecodeValue(&decoded); err != nil {
		t.Fatalf("DecodeValue() error = %v", err)
	}
	if decoded["amount"] != 500 {
		t.Errorf("amount = %d, want 500", decoded["amount"])
	}
}

func TestMessageValidate(t *testing.T) {
	tests := []struct {
		name    string
		msg     Message
		wantErr error
	}{
		{name: "empty key", msg: NewMessage().WithValue("x").Build(), wantErr: ErrEmptyKey},
		{name: "empty value", msg: NewMessage().WithKey("k").Build(), wantErr: ErrEmptyValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.msg.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}

	bad := NewMessage().WithKey("k").WithValue(make(chan int)).Build()
	if err := bad.Validate(); ClassifyError(err) != ErrorTypePermanent {
		t.Errorf("unencodable value: Validate() = %v, want permanent error", err)
	}
}

func TestRetryCount(t *testing.T) {
	msg := NewMessage().WithKey("k").WithValue("v").Build()
	if got := msg.GetRetryCount(); got != 0 {
		t.Fatalf("GetRetryCount() = %d, want 0", got)
	}
	for i := 0; i < 12; i++ {
		msg.IncrementRetryCount()
	}
	if got := msg.GetRetryCount(); got != 12 {
		t.Errorf("GetRetryCount() = %d, want 12", got)
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorType
	}{
		{name: "nil", err: nil, want: ErrorTypeUnknown},
		{name: "explicit transient", err: NewTransientError("x", nil), want: ErrorTypeTransient},
		{name: "wrapped permanent", err: fmt.Errorf("ctx: %w", NewPermanentError("x", nil)), want: ErrorTypePermanent},
		{name: "timeout text", err: errors.New("i/o Timeout"), want: ErrorTypeTransient},
		{name: "unknown text", err: errors.New("invalid schema"), want: ErrorTypePermanent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyError(tt.err); got != tt.want {
				t.Errorf("ClassifyError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestShouldRetry(t *testing.T) {
	transient := NewTransientError("x", nil)
	if !ShouldRetry(transient, 0, 3) {
		t.Error("expected retry for transient error under limit")
	}
	if ShouldRetry(transient, 3, 3) {
		t.Error("expected no retry at limit")
	}
	if ShouldRetry(NewPermanentError("x", nil), 0, 3) {
		t.Error("expected no retry for permanent error")
	}
}

func newTestProducer(t *testing.T) *Producer {
	t.Helper()
	cfg := &kafka_config.Config{
		Brokers:              []string{"localhost:9092"},
		ProducerMaxAttempts:  1,
		ProducerBatchTimeout: 1,
		ProducerRequireAcks:  -1,
		ProducerCompression:  "none",
	}
	p, err := NewProducer(cfg, "ledger.transactions", "", logger.Nop())
	if err != nil {
		t.Fatalf("NewProducer() error = %v", err)
	}
	return p
}

func TestNewProducer_Validation(t *testing.T) {
	if _, err := NewProducer(nil, "t", "", logger.Nop()); err == nil {
		t.Error("expected error for nil config")
	}
	if _, err := NewProducer(&kafka_config.Config{}, "t", "", logger.Nop()); err == nil {
		t.Error("expected error for missing brokers")
	}
	if _, err := NewProducer(&kafka_config.Config{Brokers: []string{"b"}}, "", "", logger.Nop()); err == nil {
		t.Error("expected error for empty topic")
	}
}

func TestProducer_MiddlewareOrder(t *testing.T) {
	p := newTestProducer(t)
	defer p.Close()

	var order []string
	p.Use(func(ctx context.Context, msg Message, next PublishFunc) error {
		order = append(order, "first")
		return next(ctx, msg)
	})
	stop := errors.New("stop")
	p.Use(func(_ context.Context, msg Message, _ PublishFunc) error {
		order = append(order, "second")
		if msg.Topic != "ledger.transactions" {
			t.Errorf("Topic = %q, want default topic", msg.Topic)
		}
		return stop
	})

	err := p.Publish(context.Background(), NewMessage().WithKey("k").WithValue("v").Build())
	if !errors.Is(err, stop) {
		t.Fatalf("Publish() = %v, want %v", err, stop)
	}
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Errorf("order = %v, want [first second]", order)
	}
}

func TestProducer_Closed(t *testing.T) {
	p := newTestProducer(t)
	if err := p.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	err := p.Publish(context.Background(), NewMessage().WithKey("k").WithValue("v").Build())
	if !errors.Is(err, ErrProducerClosed) {
		t.Errorf("Publish() = %v, want ErrProducerClosed", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}
