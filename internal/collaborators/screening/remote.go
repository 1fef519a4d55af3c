package screening

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bankops/pkg/client"
	"bankops/pkg/logger"
	"bankops/pkg/model"
	"bankops/pkg/sanitizer"

	"github.com/sony/gobreaker"
)

const screenPath = "/screen"

type screenRequest struct {
	TransactionID       string `json:"transaction_id"`
	Type                string `json:"type"`
	SourceAccountID     string `json:"source_account_id"`
	DestinationAccount  string `json:"destination_account_id,omitempty"`
	DestinationExternal string `json:"destination_external,omitempty"`
	AmountMinor         int64  `json:"amount_minor"`
}

// Remote asks an HTTP rule evaluator. It fails closed: when the evaluator is
// unreachable or the breaker is open the transaction is flagged for review.
type Remote struct {
	http *client.HttpClient
	cb   *gobreaker.CircuitBreaker
	log  *logger.Logger
}

type RemoteConfig struct {
	BaseURL             string
	Timeout             time.Duration
	ConsecutiveFailures uint32
	OpenTimeout         time.Duration
}

func NewRemote(cfg RemoteConfig, log *logger.Logger) (*Remote, error) {
	baseURL := sanitizer.SanitizeBaseURL(cfg.BaseURL)
	if baseURL == "" {
		return nil, fmt.Errorf("invalid screening url %q", cfg.BaseURL)
	}
	if cfg.ConsecutiveFailures == 0 {
		cfg.ConsecutiveFailures = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}

	settings := gobreaker.Settings{
		Name:        "aml-screening",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("Circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	}

	return &Remote{
		http: client.NewHttpClient(baseURL, cfg.Timeout),
		cb:   gobreaker.NewCircuitBreaker(settings),
		log:  log,
	}, nil
}

func (r *Remote) Screen(ctx context.Context, tx *model.Transaction) (Verdict, error) {
	req := screenRequest{
		TransactionID:       tx.ID,
		Type:                string(tx.Type),
		SourceAccountID:     tx.SourceAccountID,
		DestinationAccount:  tx.DestinationAccountID,
		DestinationExternal: tx.DestinationExternal,
		AmountMinor:         int64(tx.Amount),
	}

	result, err := r.cb.Execute(func() (interface{}, error) {
		resp, err := r.http.POST(ctx, screenPath, req)
		if err != nil {
			return nil, err
		}
		if !resp.IsSuccess() {
			return nil, fmt.Errorf("screening returned %d: %s", resp.StatusCode, client.GetErrorMessage(resp))
		}
		var v Verdict
		if err := resp.DecodeJSON(&v); err != nil {
			return nil, fmt.Errorf("invalid screening response: %w", err)
		}
		return v, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			r.log.Warn("Screening circuit open, holding transaction for review", "transaction_id", tx.ID)
			return Verdict{Flag: true, Reason: "screening service unavailable (circuit open)"}, nil
		}
		r.log.Error("Screening request failed, holding transaction for review", "transaction_id", tx.ID, "error", err)
		return Verdict{Flag: true, Reason: "screening service unavailable"}, nil
	}

	v := result.(Verdict)
	if v.Flag && v.Reason == "" {
		v.Reason = "flagged by screening rules"
	}
	return v, nil
}

var _ Screener = (*Remote)(nil)
