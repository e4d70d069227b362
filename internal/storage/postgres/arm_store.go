package postgres

import (
	"context"
	"fmt"

	"github.com/esdrastrade/Market-Manus-sub002/internal/domain"
	"github.com/esdrastrade/Market-Manus-sub002/internal/storage"
)

// ArmStore implements storage.ArmStore using PostgreSQL. Registration
// order is the serial primary key order.
type ArmStore struct {
	pool *Pool
}

// NewArmStore creates a new ArmStore.
func NewArmStore(pool *Pool) *ArmStore {
	return &ArmStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ArmStore = (*ArmStore)(nil)

// Insert adds a new arm. Returns ErrDuplicateKey if the
// (strategy_id, params) identity exists.
func (s *ArmStore) Insert(ctx context.Context, arm *domain.Arm) error {
	if arm == nil || arm.StrategyID == "" {
		return fmt.Errorf("%w: arm must have a strategy id", storage.ErrInvalidInput)
	}

	query := `
		INSERT INTO arms (
			strategy_id, params_json, pulls, total_reward, mean_reward, last_update_ms
		) VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := s.pool.Exec(ctx, query,
		arm.StrategyID, arm.Params.Canonical(),
		arm.Pulls, arm.TotalReward, arm.MeanReward, arm.LastUpdate,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert arm: %w", err)
	}
	return nil
}

// Get retrieves an arm by identity. Returns ErrNotFound if absent.
func (s *ArmStore) Get(ctx context.Context, strategyID, canonicalParams string) (*domain.Arm, error) {
	query := `
		SELECT strategy_id, params_json, pulls, total_reward, mean_reward, last_update_ms
		FROM arms
		WHERE strategy_id = $1 AND params_json = $2
	`

	row := s.pool.QueryRow(ctx, query, strategyID, canonicalParams)
	arm, err := scanArm(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get arm: %w", err)
	}
	return arm, nil
}

// List returns all arms in registration order.
func (s *ArmStore) List(ctx context.Context) ([]*domain.Arm, error) {
	query := `
		SELECT strategy_id, params_json, pulls, total_reward, mean_reward, last_update_ms
		FROM arms
		ORDER BY id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list arms: %w", err)
	}
	defer rows.Close()

	var arms []*domain.Arm
	for rows.Next() {
		arm, err := scanArm(rows)
		if err != nil {
			return nil, fmt.Errorf("scan arm: %w", err)
		}
		arms = append(arms, arm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate arms: %w", err)
	}
	return arms, nil
}

// Update overwrites the statistics of an existing arm.
// Returns ErrNotFound if the identity does not exist.
func (s *ArmStore) Update(ctx context.Context, arm *domain.Arm) error {
	if arm == nil || arm.StrategyID == "" {
		return fmt.Errorf("%w: arm must have a strategy id", storage.ErrInvalidInput)
	}

	query := `
		UPDATE arms
		SET pulls = $3, total_reward = $4, mean_reward = $5, last_update_ms = $6
		WHERE strategy_id = $1 AND params_json = $2
	`

	tag, err := s.pool.Exec(ctx, query,
		arm.StrategyID, arm.Params.Canonical(),
		arm.Pulls, arm.TotalReward, arm.MeanReward, arm.LastUpdate,
	)
	if err != nil {
		return fmt.Errorf("update arm: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// rowScanner covers pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanArm(row rowScanner) (*domain.Arm, error) {
	var arm domain.Arm
	var paramsJSON string
	if err := row.Scan(
		&arm.StrategyID, &paramsJSON,
		&arm.Pulls, &arm.TotalReward, &arm.MeanReward, &arm.LastUpdate,
	); err != nil {
		return nil, err
	}

	params, err := domain.ParamsFromCanonical(paramsJSON)
	if err != nil {
		return nil, fmt.Errorf("decode arm params: %w", err)
	}
	arm.Params = params
	return &arm, nil
}
