package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/esdrastrade/Market-Manus-sub002/internal/domain"
	"github.com/esdrastrade/Market-Manus-sub002/internal/storage"
)

// TrialStore implements storage.TrialStore using PostgreSQL. Insertion
// order is the bigserial primary key order.
type TrialStore struct {
	pool *Pool
}

// NewTrialStore creates a new TrialStore.
func NewTrialStore(pool *Pool) *TrialStore {
	return &TrialStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TrialStore = (*TrialStore)(nil)

// Append adds a new trial. Returns ErrDuplicateKey if trial_id exists.
func (s *TrialStore) Append(ctx context.Context, t *domain.Trial) error {
	if t == nil || t.TrialID == "" {
		return fmt.Errorf("%w: trial must have an id", storage.ErrInvalidInput)
	}

	query := `
		INSERT INTO trials (
			trial_id, timestamp_ms, strategy_id, params_json,
			total_return, sharpe, max_drawdown, win_rate, turnover, trade_count,
			reward
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := s.pool.Exec(ctx, query,
		t.TrialID, t.TimestampMs, t.StrategyID, t.Params.Canonical(),
		t.Metrics.TotalReturn, t.Metrics.Sharpe, t.Metrics.MaxDrawdown,
		t.Metrics.WinRate, t.Metrics.Turnover, t.Metrics.TradeCount,
		t.Reward,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("append trial: %w", err)
	}
	return nil
}

// Query retrieves trials matching the filter, most-recent-first.
func (s *TrialStore) Query(ctx context.Context, f storage.TrialFilter) ([]*domain.Trial, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT trial_id, timestamp_ms, strategy_id, params_json,
		       total_return, sharpe, max_drawdown, win_rate, turnover, trade_count,
		       reward
		FROM trials
	`)

	var conds []string
	var args []any
	if f.StrategyID != "" {
		args = append(args, f.StrategyID)
		conds = append(conds, fmt.Sprintf("strategy_id = $%d", len(args)))
	}
	if f.SinceMs > 0 {
		args = append(args, f.SinceMs)
		conds = append(conds, fmt.Sprintf("timestamp_ms >= $%d", len(args)))
	}
	if f.UntilMs > 0 {
		args = append(args, f.UntilMs)
		conds = append(conds, fmt.Sprintf("timestamp_ms <= $%d", len(args)))
	}
	if len(conds) > 0 {
		sb.WriteString(" WHERE " + strings.Join(conds, " AND "))
	}
	sb.WriteString(" ORDER BY id DESC")
	if f.Limit > 0 {
		args = append(args, f.Limit)
		sb.WriteString(fmt.Sprintf(" LIMIT $%d", len(args)))
	}

	rows, err := s.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query trials: %w", err)
	}
	defer rows.Close()

	var trials []*domain.Trial
	for rows.Next() {
		t, err := scanTrial(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trial: %w", err)
		}
		trials = append(trials, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trials: %w", err)
	}
	return trials, nil
}

// Count returns the number of stored trials.
func (s *TrialStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM trials`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count trials: %w", err)
	}
	return n, nil
}

// TrimOldest drops the oldest trials beyond keep.
func (s *TrialStore) TrimOldest(ctx context.Context, keep int) (int, error) {
	if keep < 0 {
		return 0, fmt.Errorf("%w: keep must be >= 0", storage.ErrInvalidInput)
	}

	query := `
		DELETE FROM trials
		WHERE id NOT IN (SELECT id FROM trials ORDER BY id DESC LIMIT $1)
	`

	tag, err := s.pool.Exec(ctx, query, keep)
	if err != nil {
		return 0, fmt.Errorf("trim trials: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// Clear removes all trials.
func (s *TrialStore) Clear(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM trials`); err != nil {
		return fmt.Errorf("clear trials: %w", err)
	}
	return nil
}

func scanTrial(row rowScanner) (*domain.Trial, error) {
	var t domain.Trial
	var paramsJSON string
	if err := row.Scan(
		&t.TrialID, &t.TimestampMs, &t.StrategyID, &paramsJSON,
		&t.Metrics.TotalReturn, &t.Metrics.Sharpe, &t.Metrics.MaxDrawdown,
		&t.Metrics.WinRate, &t.Metrics.Turnover, &t.Metrics.TradeCount,
		&t.Reward,
	); err != nil {
		return nil, err
	}

	params, err := domain.ParamsFromCanonical(paramsJSON)
	if err != nil {
		return nil, fmt.Errorf("decode trial params: %w", err)
	}
	t.Params = params
	return &t, nil
}
