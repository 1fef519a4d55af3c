package credentials

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"bankops/pkg/model"

	"github.com/jmoiron/sqlx"
)

type PostgresStore struct {
	db *sqlx.DB
}

func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) GetCard(ctx context.Context, cardID string) (*model.Card, error) {
	query := `
    SELECT id, account_id, pin_hash, frozen
    FROM cards
    WHERE id = $1
    `

	var card model.Card
	if err := s.db.GetContext(ctx, &card, query, cardID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCardNotFound
		}
		return nil, fmt.Errorf("failed to get card: %w", err)
	}
	return &card, nil
}

func (s *PostgresStore) VerifyCredential(ctx context.Context, cardID, pin string) (bool, error) {
	card, err := s.GetCard(ctx, cardID)
	if err != nil {
		return false, err
	}
	return matches(card, pin)
}

func (s *PostgresStore) FreezeCard(ctx context.Context, cardID string) error {
	query := `
    UPDATE cards
    SET frozen = TRUE, updated_at = NOW()
    WHERE id = $1
    `

	result, err := s.db.ExecContext(ctx, query, cardID)
	if err != nil {
		return fmt.Errorf("failed to freeze card: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to freeze card: %w", err)
	}
	if rows == 0 {
		return ErrCardNotFound
	}
	return nil
}

// AddCard inserts or replaces a card. Used by seeding tools and tests.
func (s *PostgresStore) AddCard(ctx context.Context, card model.Card, pin string) error {
	hash, err := HashPin(pin)
	if err != nil {
		return err
	}

	query := `
    INSERT INTO cards (id, account_id, pin_hash, frozen)
    VALUES ($1, $2, $3, $4)
    ON CONFLICT (id) DO UPDATE
    SET account_id = EXCLUDED.account_id, pin_hash = EXCLUDED.pin_hash, frozen = EXCLUDED.frozen, updated_at = NOW()
    `
	if _, err := s.db.ExecContext(ctx, query, card.ID, card.AccountID, hash, card.Frozen); err != nil {
		return fmt.Errorf("failed to add card: %w", err)
	}
	return nil
}

var _ Store = (*PostgresStore)(nil)
