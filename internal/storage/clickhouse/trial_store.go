package clickhouse

import (
	"context"
	"fmt"
	"strings"

	"github.com/esdrastrade/Market-Manus-sub002/internal/domain"
	"github.com/esdrastrade/Market-Manus-sub002/internal/storage"
)

// TrialStore implements storage.TrialStore using ClickHouse. MergeTree
// does not enforce uniqueness, so Append checks for the trial_id first;
// appends are effectively ordered by (timestamp_ms, trial_id).
type TrialStore struct {
	conn *Conn
}

// NewTrialStore creates a new TrialStore.
func NewTrialStore(conn *Conn) *TrialStore {
	return &TrialStore{conn: conn}
}

// Compile-time interface check.
var _ storage.TrialStore = (*TrialStore)(nil)

// Append adds a new trial. Returns ErrDuplicateKey if trial_id exists.
func (s *TrialStore) Append(ctx context.Context, t *domain.Trial) error {
	if t == nil || t.TrialID == "" {
		return fmt.Errorf("%w: trial must have an id", storage.ErrInvalidInput)
	}

	exists, err := s.exists(ctx, t.TrialID)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	query := `
		INSERT INTO trials (
			trial_id, timestamp_ms, strategy_id, params_json,
			total_return, sharpe, max_drawdown, win_rate, turnover, trade_count,
			reward
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	err = s.conn.Exec(ctx, query,
		t.TrialID, t.TimestampMs, t.StrategyID, t.Params.Canonical(),
		t.Metrics.TotalReturn, t.Metrics.Sharpe, t.Metrics.MaxDrawdown,
		t.Metrics.WinRate, t.Metrics.Turnover, int32(t.Metrics.TradeCount),
		t.Reward,
	)
	if err != nil {
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
		conds = append(conds, "strategy_id = ?")
		args = append(args, f.StrategyID)
	}
	if f.SinceMs > 0 {
		conds = append(conds, "timestamp_ms >= ?")
		args = append(args, f.SinceMs)
	}
	if f.UntilMs > 0 {
		conds = append(conds, "timestamp_ms <= ?")
		args = append(args, f.UntilMs)
	}
	if len(conds) > 0 {
		sb.WriteString(" WHERE " + strings.Join(conds, " AND "))
	}
	sb.WriteString(" ORDER BY timestamp_ms DESC, trial_id DESC")
	if f.Limit > 0 {
		sb.WriteString(" LIMIT ?")
		args = append(args, f.Limit)
	}

	rows, err := s.conn.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query trials: %w", err)
	}
	defer rows.Close()

	var trials []*domain.Trial
	for rows.Next() {
		var t domain.Trial
		var paramsJSON string
		var tradeCount int32
		if err := rows.Scan(
			&t.TrialID, &t.TimestampMs, &t.StrategyID, &paramsJSON,
			&t.Metrics.TotalReturn, &t.Metrics.Sharpe, &t.Metrics.MaxDrawdown,
			&t.Metrics.WinRate, &t.Metrics.Turnover, &tradeCount,
			&t.Reward,
		); err != nil {
			return nil, fmt.Errorf("scan trial: %w", err)
		}
		t.Metrics.TradeCount = int(tradeCount)

		params, err := domain.ParamsFromCanonical(paramsJSON)
		if err != nil {
			return nil, fmt.Errorf("decode trial params: %w", err)
		}
		t.Params = params
		trials = append(trials, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trials: %w", err)
	}
	return trials, nil
}

// Count returns the number of stored trials.
func (s *TrialStore) Count(ctx context.Context) (int, error) {
	var n uint64
	row := s.conn.QueryRow(ctx, `SELECT COUNT(*) FROM trials`)
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("count trials: %w", err)
	}
	return int(n), nil
}

// TrimOldest drops the oldest trials beyond keep via an async mutation.
// ClickHouse applies the delete in the background; readers may briefly
// still see trimmed rows.
func (s *TrialStore) TrimOldest(ctx context.Context, keep int) (int, error) {
	if keep < 0 {
		return 0, fmt.Errorf("%w: keep must be >= 0", storage.ErrInvalidInput)
	}

	total, err := s.Count(ctx)
	if err != nil {
		return 0, err
	}
	if total <= keep {
		return 0, nil
	}
	drop := total - keep

	// Cutoff is the newest of the rows to drop.
	var cutoffTs int64
	var cutoffID string
	row := s.conn.QueryRow(ctx, `
		SELECT timestamp_ms, trial_id
		FROM trials
		ORDER BY timestamp_ms ASC, trial_id ASC
		LIMIT 1 OFFSET ?
	`, drop-1)
	if err := row.Scan(&cutoffTs, &cutoffID); err != nil {
		return 0, fmt.Errorf("find trim cutoff: %w", err)
	}

	err = s.conn.Exec(ctx, `
		ALTER TABLE trials DELETE
		WHERE (timestamp_ms, trial_id) <= (?, ?)
	`, cutoffTs, cutoffID)
	if err != nil {
		return 0, fmt.Errorf("trim trials: %w", err)
	}
	return drop, nil
}

// Clear removes all trials.
func (s *TrialStore) Clear(ctx context.Context) error {
	if err := s.conn.Exec(ctx, `TRUNCATE TABLE trials`); err != nil {
		return fmt.Errorf("clear trials: %w", err)
	}
	return nil
}

func (s *TrialStore) exists(ctx context.Context, trialID string) (bool, error) {
	var n uint64
	row := s.conn.QueryRow(ctx, `SELECT COUNT(*) FROM trials WHERE trial_id = ?`, trialID)
	if err := row.Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}
