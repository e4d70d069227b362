// Package bandit implements the UCB1 arm registry: it owns the pool of
// (strategy, params) arms and decides which one the engine tries next.
package bandit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/esdrastrade/Market-Manus-sub002/internal/domain"
	"github.com/esdrastrade/Market-Manus-sub002/internal/storage"
)

// ErrEmptyRegistry is returned by SelectArm when no arms are registered.
var ErrEmptyRegistry = errors.New("no arms registered")

// Registry is a UCB1 bandit policy over a persisted arm store. A single
// mutex guards every select/update read-modify-write, so an interleaved
// select from one cycle can never pair with an update from another.
type Registry struct {
	mu     sync.Mutex
	store  storage.ArmStore
	logger zerolog.Logger
}

// NewRegistry creates a Registry backed by the given arm store.
func NewRegistry(store storage.ArmStore, logger zerolog.Logger) *Registry {
	return &Registry{
		store:  store,
		logger: logger.With().Str("component", "bandit").Logger(),
	}
}

// EnsureArms idempotently registers every seed not already present, with
// zero pulls. Existing arms keep their statistics untouched.
func (r *Registry) EnsureArms(ctx context.Context, seeds []domain.ArmSeed) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, seed := range seeds {
		arm := &domain.Arm{
			StrategyID: seed.StrategyID,
			Params:     seed.Params.Clone(),
		}
		err := r.store.Insert(ctx, arm)
		if errors.Is(err, storage.ErrDuplicateKey) {
			continue
		}
		if err != nil {
			return fmt.Errorf("ensure arm %s: %w", arm.Key(), err)
		}
	}
	return nil
}

// Score computes the UCB1 selection score for one arm. Holding meanReward
// fixed, more pulls always means a lower (never higher) score.
func Score(meanReward float64, pulls, totalPulls int) float64 {
	if pulls <= 0 {
		return math.Inf(1)
	}
	return meanReward + math.Sqrt(2*math.Log(float64(totalPulls))/float64(pulls))
}

// SelectArm returns the next arm to try. Arms with zero pulls are returned
// first, in registration order, so every arm is explored once before any
// exploitation; afterwards the arm with the highest UCB1 score wins, ties
// broken by first-seen order.
func (r *Registry) SelectArm(ctx context.Context) (domain.Arm, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	arms, err := r.store.List(ctx)
	if err != nil {
		return domain.Arm{}, fmt.Errorf("list arms: %w", err)
	}
	if len(arms) == 0 {
		return domain.Arm{}, ErrEmptyRegistry
	}

	totalPulls := 0
	for _, a := range arms {
		totalPulls += a.Pulls
	}

	for _, a := range arms {
		if a.Pulls == 0 {
			return a.Clone(), nil
		}
	}

	best := arms[0]
	bestScore := Score(best.MeanReward, best.Pulls, totalPulls)
	for _, a := range arms[1:] {
		if s := Score(a.MeanReward, a.Pulls, totalPulls); s > bestScore {
			best, bestScore = a, s
		}
	}
	return best.Clone(), nil
}

// Update feeds one reward back into the arm's statistics. An unknown
// (strategy, params) pair is created with pulls=1 rather than rejected.
func (r *Registry) Update(ctx context.Context, strategyID string, params domain.Params, reward float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	canonical := params.Canonical()
	now := time.Now().UnixMilli()

	arm, err := r.store.Get(ctx, strategyID, canonical)
	if errors.Is(err, storage.ErrNotFound) {
		return r.store.Insert(ctx, &domain.Arm{
			StrategyID:  strategyID,
			Params:      params.Clone(),
			Pulls:       1,
			TotalReward: reward,
			MeanReward:  reward,
			LastUpdate:  now,
		})
	}
	if err != nil {
		return fmt.Errorf("get arm %s: %w", strategyID, err)
	}

	arm.Pulls++
	arm.TotalReward += reward
	arm.MeanReward = arm.TotalReward / float64(arm.Pulls)
	arm.LastUpdate = now

	if err := r.store.Update(ctx, arm); err != nil {
		return fmt.Errorf("update arm %s: %w", strategyID, err)
	}
	return nil
}

// Rollback reverses exactly one prior Update for the arm. The engine calls
// it when persisting the matching trial fails, so a failed cycle leaves no
// partial update behind.
func (r *Registry) Rollback(ctx context.Context, strategyID string, params domain.Params, reward float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	arm, err := r.store.Get(ctx, strategyID, params.Canonical())
	if err != nil {
		return fmt.Errorf("get arm %s: %w", strategyID, err)
	}

	arm.Pulls--
	arm.TotalReward -= reward
	if arm.Pulls <= 0 {
		arm.Pulls = 0
		arm.TotalReward = 0
		arm.MeanReward = 0
	} else {
		arm.MeanReward = arm.TotalReward / float64(arm.Pulls)
	}
	arm.LastUpdate = time.Now().UnixMilli()

	if err := r.store.Update(ctx, arm); err != nil {
		return fmt.Errorf("rollback arm %s: %w", strategyID, err)
	}
	r.logger.Warn().Str("strategy", strategyID).Float64("reward", reward).
		Msg("rolled back arm update")
	return nil
}

// Stats returns every arm sorted by mean reward descending, ties broken by
// pull count descending.
func (r *Registry) Stats(ctx context.Context) ([]domain.Arm, error) {
	arms, err := r.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list arms: %w", err)
	}

	out := make([]domain.Arm, len(arms))
	for i, a := range arms {
		out[i] = a.Clone()
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].MeanReward != out[j].MeanReward {
			return out[i].MeanReward > out[j].MeanReward
		}
		return out[i].Pulls > out[j].Pulls
	})
	return out, nil
}
