package credentials

import (
	"context"
	"sync"

	"bankops/pkg/model"
)

type MemoryStore struct {
	mu    sync.RWMutex
	cards map[string]model.Card
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{cards: make(map[string]model.Card)}
}

// AddCard stores card with pin hashed.
func (s *MemoryStore) AddCard(card model.Card, pin string) error {
	hash, err := HashPin(pin)
	if err != nil {
		return err
	}
	card.PinHash = hash

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cards[card.ID] = card
	return nil
}

func (s *MemoryStore) GetCard(_ context.Context, cardID string) (*model.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	card, ok := s.cards[cardID]
	if !ok {
		return nil, ErrCardNotFound
	}
	return &card, nil
}

func (s *MemoryStore) VerifyCredential(ctx context.Context, cardID, pin string) (bool, error) {
	card, err := s.GetCard(ctx, cardID)
	if err != nil {
		return false, err
	}
	return matches(card, pin)
}

func (s *MemoryStore) FreezeCard(_ context.Context, cardID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	card, ok := s.cards[cardID]
	if !ok {
		return ErrCardNotFound
	}
	card.Frozen = true
	s.cards[cardID] = card
	return nil
}

var _ Store = (*MemoryStore)(nil)
