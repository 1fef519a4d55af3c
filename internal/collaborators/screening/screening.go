// Package screening evaluates proposed transfers against AML rules.
package screening

import (
	"context"
	"fmt"

	"bankops/pkg/model"
)

type Verdict struct {
	Flag   bool   `json:"flag"`
	Reason string `json:"reason"`
}

type Screener interface {
	Screen(ctx context.Context, tx *model.Transaction) (Verdict, error)
}

// Threshold flags amounts strictly above Limit.
type Threshold struct {
	Limit model.Amount
}

func NewThreshold(limit model.Amount) *Threshold {
	return &Threshold{Limit: limit}
}

func (t *Threshold) Screen(_ context.Context, tx *model.Transaction) (Verdict, error) {
	if tx.Amount > t.Limit {
		return Verdict{
			Flag:   true,
			Reason: fmt.Sprintf("amount %s exceeds the review threshold of %s", tx.Amount, t.Limit),
		}, nil
	}
	return Verdict{}, nil
}

// Chain runs screeners in order and returns the first flag.
type Chain []Screener

func (c Chain) Screen(ctx context.Context, tx *model.Transaction) (Verdict, error) {
	for _, s := range c {
		v, err := s.Screen(ctx, tx)
		if err != nil {
			return Verdict{}, err
		}
		if v.Flag {
			return v, nil
		}
	}
	return Verdict{}, nil
}

var (
	_ Screener = (*Threshold)(nil)
	_ Screener = Chain(nil)
)
