// Package credentials is the card and PIN credential collaborator.
package credentials

import (
	"context"
	"errors"

	"bankops/pkg/model"

	"golang.org/x/crypto/bcrypt"
)

const TableName = "cards"

var ErrCardNotFound = errors.New("card not found")

// Store answers card lookups and PIN checks. PINs are only ever compared
// against their bcrypt hash.
type Store interface {
	GetCard(ctx context.Context, cardID string) (*model.Card, error)
	VerifyCredential(ctx context.Context, cardID, pin string) (bool, error)
	FreezeCard(ctx context.Context, cardID string) error
}

func HashPin(pin string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// matches reports whether pin hashes to the stored value. A frozen card never matches.
func matches(card *model.Card, pin string) (bool, error) {
	if card.Frozen {
		return false, nil
	}
	err := bcrypt.CompareHashAndPassword([]byte(card.PinHash), []byte(pin))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
