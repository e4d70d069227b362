package storage

import (
	"context"

	"github.com/esdrastrade/Market-Manus-sub002/internal/domain"
)

// ArmStore persists bandit arm statistics, uniquely keyed by
// (strategy_id, canonical params). Committed updates must be durable.
type ArmStore interface {
	// Insert adds a new arm with the given statistics.
	// Returns ErrDuplicateKey if the identity already exists.
	Insert(ctx context.Context, arm *domain.Arm) error

	// Get retrieves an arm by identity. Returns ErrNotFound if absent.
	Get(ctx context.Context, strategyID, canonicalParams string) (*domain.Arm, error)

	// List returns all arms in registration order.
	List(ctx context.Context) ([]*domain.Arm, error)

	// Update overwrites the statistics of an existing arm.
	// Returns ErrNotFound if the identity does not exist.
	Update(ctx context.Context, arm *domain.Arm) error
}

// TrialFilter restricts a trial query. Zero values mean "unbounded".
type TrialFilter struct {
	StrategyID string
	SinceMs    int64
	UntilMs    int64
	Limit      int
}

// TrialStore persists the append-oriented trial log, keyed by insertion
// order. Appends are all-or-nothing: readers never observe a partial trial.
type TrialStore interface {
	// Append adds a new trial. Returns ErrDuplicateKey if trial_id exists,
	// ErrInvalidInput on a nil trial or empty trial_id.
	Append(ctx context.Context, t *domain.Trial) error

	// Query retrieves trials matching the filter, most-recent-first.
	Query(ctx context.Context, f TrialFilter) ([]*domain.Trial, error)

	// Count returns the number of stored trials.
	Count(ctx context.Context) (int, error)

	// TrimOldest drops the oldest trials beyond keep, returning how many
	// were removed.
	TrimOldest(ctx context.Context, keep int) (int, error)

	// Clear removes all trials.
	Clear(ctx context.Context) error
}
