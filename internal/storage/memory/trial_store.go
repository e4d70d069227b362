package memory

import (
	"context"
	"sync"

	"github.com/esdrastrade/Market-Manus-sub002/internal/domain"
	"github.com/esdrastrade/Market-Manus-sub002/internal/storage"
)

// TrialStore is an in-memory implementation of storage.TrialStore.
// Trials are kept in insertion order, oldest first.
type TrialStore struct {
	mu     sync.RWMutex
	trials []*domain.Trial
	ids    map[string]struct{}
}

// NewTrialStore creates a new in-memory trial store.
func NewTrialStore() *TrialStore {
	return &TrialStore{
		ids: make(map[string]struct{}),
	}
}

// Append adds a new trial. Returns ErrDuplicateKey if trial_id exists.
func (s *TrialStore) Append(_ context.Context, t *domain.Trial) error {
	if t == nil || t.TrialID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.ids[t.TrialID]; exists {
		return storage.ErrDuplicateKey
	}

	s.trials = append(s.trials, t.Clone())
	s.ids[t.TrialID] = struct{}{}
	return nil
}

// Query retrieves trials matching the filter, most-recent-first.
func (s *TrialStore) Query(_ context.Context, f storage.TrialFilter) ([]*domain.Trial, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Trial
	for i := len(s.trials) - 1; i >= 0; i-- {
		t := s.trials[i]
		if f.StrategyID != "" && t.StrategyID != f.StrategyID {
			continue
		}
		if f.SinceMs != 0 && t.TimestampMs < f.SinceMs {
			continue
		}
		if f.UntilMs != 0 && t.TimestampMs > f.UntilMs {
			continue
		}
		result = append(result, t.Clone())
		if f.Limit > 0 && len(result) >= f.Limit {
			break
		}
	}
	return result, nil
}

// Count returns the number of stored trials.
func (s *TrialStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.trials), nil
}

// TrimOldest drops the oldest trials beyond keep.
func (s *TrialStore) TrimOldest(_ context.Context, keep int) (int, error) {
	if keep < 0 {
		return 0, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	excess := len(s.trials) - keep
	if excess <= 0 {
		return 0, nil
	}

	for _, t := range s.trials[:excess] {
		delete(s.ids, t.TrialID)
	}
	s.trials = append([]*domain.Trial(nil), s.trials[excess:]...)
	return excess, nil
}

// Clear removes all trials.
func (s *TrialStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.trials = nil
	s.ids = make(map[string]struct{})
	return nil
}

var _ storage.TrialStore = (*TrialStore)(nil)
