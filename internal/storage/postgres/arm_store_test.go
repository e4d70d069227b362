package postgres_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/esdrastrade/Market-Manus-sub002/internal/domain"
	"github.com/esdrastrade/Market-Manus-sub002/internal/storage"
	pgstore "github.com/esdrastrade/Market-Manus-sub002/internal/storage/postgres"
)

func TestArmStore_InsertGetUpdate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := pgstore.NewArmStore(pool)

	arm := &domain.Arm{
		StrategyID: "ema_cross",
		Params:     domain.Params{"fast": 9, "slow": 21},
	}
	require.NoError(t, store.Insert(ctx, arm))

	// Identity is the canonical params encoding, so key order is irrelevant.
	dup := &domain.Arm{
		StrategyID: "ema_cross",
		Params:     domain.Params{"slow": 21, "fast": 9},
	}
	require.ErrorIs(t, store.Insert(ctx, dup), storage.ErrDuplicateKey)

	got, err := store.Get(ctx, "ema_cross", arm.Params.Canonical())
	require.NoError(t, err)
	require.Equal(t, "ema_cross", got.StrategyID)
	require.Equal(t, 0, got.Pulls)
	require.Equal(t, arm.Params, got.Params)

	got.Pulls = 2
	got.TotalReward = 0.5
	got.MeanReward = 0.25
	got.LastUpdate = 1700000000000
	require.NoError(t, store.Update(ctx, got))

	again, err := store.Get(ctx, "ema_cross", arm.Params.Canonical())
	require.NoError(t, err)
	require.Equal(t, 2, again.Pulls)
	require.InDelta(t, 0.25, again.MeanReward, 1e-12)
	require.Equal(t, int64(1700000000000), again.LastUpdate)

	_, err = store.Get(ctx, "ema_cross", `{"fast":12,"slow":26}`)
	require.ErrorIs(t, err, storage.ErrNotFound)

	missing := &domain.Arm{StrategyID: "rsi_mr", Params: domain.Params{"period": 14}}
	require.ErrorIs(t, store.Update(ctx, missing), storage.ErrNotFound)

	require.ErrorIs(t, store.Insert(ctx, nil), storage.ErrInvalidInput)
}

func TestArmStore_ListRegistrationOrder(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := pgstore.NewArmStore(pool)

	want := []string{"breakout", "ema_cross", "rsi_mr"}
	params := []domain.Params{
		{"lookback": 20, "buffer_bps": 2},
		{"fast": 9, "slow": 21},
		{"period": 14, "lo": 30, "hi": 70},
	}
	for i, id := range want {
		require.NoError(t, store.Insert(ctx, &domain.Arm{StrategyID: id, Params: params[i]}))
	}

	arms, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, arms, 3)
	for i, id := range want {
		require.Equal(t, id, arms[i].StrategyID)
	}
}
