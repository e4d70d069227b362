package memory

import (
	"context"
	"sync"

	"github.com/esdrastrade/Market-Manus-sub002/internal/domain"
	"github.com/esdrastrade/Market-Manus-sub002/internal/storage"
)

// ArmStore is an in-memory implementation of storage.ArmStore.
type ArmStore struct {
	mu    sync.RWMutex
	data  map[string]*domain.Arm // keyed by strategy_id|canonical_params
	order []string               // registration order of keys
}

// NewArmStore creates a new in-memory arm store.
func NewArmStore() *ArmStore {
	return &ArmStore{
		data: make(map[string]*domain.Arm),
	}
}

func armKey(strategyID, canonicalParams string) string {
	return strategyID + "|" + canonicalParams
}

// Insert adds a new arm. Returns ErrDuplicateKey if the identity exists.
func (s *ArmStore) Insert(_ context.Context, arm *domain.Arm) error {
	if arm == nil || arm.StrategyID == "" {
		return storage.ErrInvalidInput
	}

	key := armKey(arm.StrategyID, arm.Params.Canonical())

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateKey
	}

	cp := arm.Clone()
	s.data[key] = &cp
	s.order = append(s.order, key)
	return nil
}

// Get retrieves an arm by identity. Returns ErrNotFound if absent.
func (s *ArmStore) Get(_ context.Context, strategyID, canonicalParams string) (*domain.Arm, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	arm, exists := s.data[armKey(strategyID, canonicalParams)]
	if !exists {
		return nil, storage.ErrNotFound
	}

	cp := arm.Clone()
	return &cp, nil
}

// List returns all arms in registration order.
func (s *ArmStore) List(_ context.Context) ([]*domain.Arm, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Arm, 0, len(s.order))
	for _, key := range s.order {
		cp := s.data[key].Clone()
		result = append(result, &cp)
	}
	return result, nil
}

// Update overwrites the statistics of an existing arm. Returns ErrNotFound
// if the identity does not exist.
func (s *ArmStore) Update(_ context.Context, arm *domain.Arm) error {
	if arm == nil || arm.StrategyID == "" {
		return storage.ErrInvalidInput
	}

	key := armKey(arm.StrategyID, arm.Params.Canonical())

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[key]; !exists {
		return storage.ErrNotFound
	}

	cp := arm.Clone()
	s.data[key] = &cp
	return nil
}

var _ storage.ArmStore = (*ArmStore)(nil)
