package kafka_middleware

import (
	"context"
	"errors"
	"testing"
	"time"

	"bankops/pkg/kafka"
	"bankops/pkg/logger"
	"bankops/pkg/metrics"
)

type publishRecord struct {
	topic   string
	success bool
}

type fakeCollector struct {
	metrics.NoOpCollector
	publishes []publishRecord
}

func (f *fakeCollector) RecordPublish(topic string, success bool, _ time.Duration) {
	f.publishes = append(f.publishes, publishRecord{topic: topic, success: success})
}

func testMessage() kafka.Message {
	msg := kafka.NewMessage().
		WithKey("tx-1").
		WithValue(map[string]string{"status": "success"}).
		WithEventType("transaction.decided").
		Build()
	msg.Topic = "ledger.transactions"
	return msg
}

func TestMetricsProducerMiddleware(t *testing.T) {
	tests := []struct {
		name    string
		nextErr error
		want    bool
	}{
		{name: "success", want: true},
		{name: "failure", nextErr: errors.New("broker down"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			collector := &fakeCollector{}
			mw := MetricsProducerMiddleware(collector)

			err := mw(context.Background(), testMessage(), func(context.Context, kafka.Message) error {
				return tt.nextErr
			})
			if !errors.Is(err, tt.nextErr) {
				t.Fatalf("err = %v, want %v", err, tt.nextErr)
			}
			if len(collector.publishes) != 1 {
				t.Fatalf("recorded %d publishes, want 1", len(collector.publishes))
			}
			got := collector.publishes[0]
			if got.topic != "ledger.transactions" || got.success != tt.want {
				t.Errorf("recorded %+v, want topic ledger.transactions success %v", got, tt.want)
			}
		})
	}
}

func TestLoggingProducerMiddleware_PassesThrough(t *testing.T) {
	mw := LoggingProducerMiddleware(logger.Nop())
	called := false
	wantErr := errors.New("boom")

	err := mw(context.Background(), testMessage(), func(_ context.Context, msg kafka.Message) error {
		called = true
		if msg.Key != "tx-1" {
			t.Errorf("Key = %q, want tx-1", msg.Key)
		}
		return wantErr
	})

	if !called {
		t.Fatal("next was not called")
	}
	if !errors.Is(err, wantErr) {
		t.Errorf("err = %v, want %v", err, wantErr)
	}
}
