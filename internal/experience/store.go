// Package experience manages the durable trial log: validated appends with
// size-bounded retention, periodic backup snapshots, export and reset.
package experience

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/esdrastrade/Market-Manus-sub002/internal/domain"
	"github.com/esdrastrade/Market-Manus-sub002/internal/observability"
	"github.com/esdrastrade/Market-Manus-sub002/internal/storage"
)

// Store errors.
var (
	// ErrInvalidRecord is returned when a trial fails validation. Nothing
	// is persisted in that case.
	ErrInvalidRecord = errors.New("invalid trial record")

	// ErrStorageFailure is returned when a write still fails after one
	// retry. The host should alert or pause learning rather than lose
	// trials silently.
	ErrStorageFailure = errors.New("storage failure")
)

// Config holds the retention and backup policy.
type Config struct {
	// MaxTrials bounds the stored trial count; the oldest trials beyond
	// it are dropped after every append. 0 disables retention.
	MaxTrials int

	// BackupEveryN writes a snapshot every N successful appends.
	// 0 disables periodic backups.
	BackupEveryN int

	// BackupsToKeep bounds the snapshot count, oldest deleted first.
	BackupsToKeep int

	// BackupDir receives snapshot files.
	BackupDir string

	// ExportDir receives export artifacts.
	ExportDir string
}

// Store wraps a TrialStore with the validation, retention and backup
// policies. It exclusively owns the trial log.
type Store struct {
	store   storage.TrialStore
	cfg     Config
	logger  zerolog.Logger
	metrics *observability.Metrics // optional

	appendsSinceBackup int
}

// New creates a Store. metrics may be nil.
func New(store storage.TrialStore, cfg Config, logger zerolog.Logger, metrics *observability.Metrics) *Store {
	return &Store{
		store:   store,
		cfg:     cfg,
		logger:  logger.With().Str("component", "experience").Logger(),
		metrics: metrics,
	}
}

// Append validates and durably writes one trial, then applies the retention
// and backup policies. Validation failures reject the record before any
// state mutation; write failures are retried once and then surfaced.
func (s *Store) Append(ctx context.Context, t *domain.Trial) error {
	if t == nil {
		return fmt.Errorf("%w: nil trial", ErrInvalidRecord)
	}
	if err := t.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}

	if err := s.writeWithRetry(ctx, t); err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.TrialsAppended.Inc()
	}

	if err := s.enforceRetention(ctx); err != nil {
		// The trial is already durable; retention failure is not fatal
		// to the append.
		s.logger.Error().Err(err).Msg("retention trim failed")
	}

	s.appendsSinceBackup++
	if s.cfg.BackupEveryN > 0 && s.appendsSinceBackup >= s.cfg.BackupEveryN {
		s.appendsSinceBackup = 0
		if _, err := s.Backup(ctx); err != nil {
			s.logger.Error().Err(err).Msg("periodic backup failed")
		}
	}

	return nil
}

// writeWithRetry appends to the underlying store, retrying once on a
// transient failure. Validation and duplicate errors are never retried.
func (s *Store) writeWithRetry(ctx context.Context, t *domain.Trial) error {
	err := s.store.Append(ctx, t)
	if err == nil {
		return nil
	}
	if errors.Is(err, storage.ErrDuplicateKey) || errors.Is(err, storage.ErrInvalidInput) {
		return fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}

	s.logger.Warn().Err(err).Str("trial_id", t.TrialID).Msg("trial append failed, retrying once")
	if s.metrics != nil {
		s.metrics.StorageRetries.Inc()
	}

	if err := s.store.Append(ctx, t); err != nil {
		if s.metrics != nil {
			s.metrics.StorageFailures.Inc()
		}
		return fmt.Errorf("%w: append trial %s: %v", ErrStorageFailure, t.TrialID, err)
	}
	return nil
}

// enforceRetention drops the oldest trials beyond MaxTrials.
func (s *Store) enforceRetention(ctx context.Context) error {
	if s.cfg.MaxTrials <= 0 {
		return nil
	}

	dropped, err := s.store.TrimOldest(ctx, s.cfg.MaxTrials)
	if err != nil {
		return fmt.Errorf("trim to %d trials: %w", s.cfg.MaxTrials, err)
	}
	if dropped > 0 {
		if s.metrics != nil {
			s.metrics.TrialsEvicted.Add(float64(dropped))
		}
		s.logger.Debug().Int("dropped", dropped).Msg("evicted oldest trials")
	}
	return nil
}

// Filter restricts a Query. Zero values mean "unbounded".
type Filter struct {
	StrategyID string
	SinceMs    int64
	UntilMs    int64
	Limit      int
}

// Query returns trials matching the filter, most-recent-first.
func (s *Store) Query(ctx context.Context, f Filter) ([]*domain.Trial, error) {
	trials, err := s.store.Query(ctx, storage.TrialFilter{
		StrategyID: f.StrategyID,
		SinceMs:    f.SinceMs,
		UntilMs:    f.UntilMs,
		Limit:      f.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("query trials: %w", err)
	}
	return trials, nil
}

// Count returns the stored trial count.
func (s *Store) Count(ctx context.Context) (int, error) {
	return s.store.Count(ctx)
}

// Reset takes a final backup snapshot, then clears all trials. Operator
// use only; the engine never calls it.
func (s *Store) Reset(ctx context.Context) error {
	n, err := s.store.Count(ctx)
	if err != nil {
		return fmt.Errorf("count before reset: %w", err)
	}
	if n > 0 {
		if _, err := s.Backup(ctx); err != nil {
			return fmt.Errorf("final backup before reset: %w", err)
		}
	}
	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("%w: clear trials: %v", ErrStorageFailure, err)
	}
	s.appendsSinceBackup = 0
	s.logger.Info().Int("trials_cleared", n).Msg("experience store reset")
	return nil
}
