package bandit

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/rs/zerolog"

	"github.com/esdrastrade/Market-Manus-sub002/internal/domain"
	"github.com/esdrastrade/Market-Manus-sub002/internal/storage/memory"
)

func testRegistry() *Registry {
	return NewRegistry(memory.NewArmStore(), zerolog.Nop())
}

func threeSeeds() []domain.ArmSeed {
	return []domain.ArmSeed{
		{StrategyID: "ema_cross", Params: domain.Params{"fast": 9, "slow": 21}},
		{StrategyID: "rsi_mr", Params: domain.Params{"period": 14, "lo": 30, "hi": 70}},
		{StrategyID: "breakout", Params: domain.Params{"lookback": 20, "buffer_bps": 2}},
	}
}

func TestSelectArm_EmptyRegistry(t *testing.T) {
	_, err := testRegistry().SelectArm(context.Background())
	if !errors.Is(err, ErrEmptyRegistry) {
		t.Fatalf("got %v, want ErrEmptyRegistry", err)
	}
}

func TestSelectArm_ExploresInSeedOrderThenExploits(t *testing.T) {
	ctx := context.Background()
	r := testRegistry()
	seeds := threeSeeds()
	if err := r.EnsureArms(ctx, seeds); err != nil {
		t.Fatalf("EnsureArms: %v", err)
	}

	// Three selections with intervening updates visit each arm once, in
	// seed order.
	rewards := []float64{0.1, 0.2, 0.05}
	for i, want := range seeds {
		arm, err := r.SelectArm(ctx)
		if err != nil {
			t.Fatalf("SelectArm %d: %v", i, err)
		}
		if arm.StrategyID != want.StrategyID || arm.Params.Canonical() != want.Params.Canonical() {
			t.Fatalf("selection %d = %s, want %s", i, arm.Key(), want.StrategyID)
		}
		if err := r.Update(ctx, arm.StrategyID, arm.Params, rewards[i]); err != nil {
			t.Fatalf("Update %d: %v", i, err)
		}
	}

	// All arms have pulls=1 and equal exploration bonus; the fourth
	// selection exploits the highest mean.
	arm, err := r.SelectArm(ctx)
	if err != nil {
		t.Fatalf("SelectArm: %v", err)
	}
	if arm.StrategyID != "rsi_mr" {
		t.Fatalf("fourth selection = %s, want rsi_mr (mean 0.2)", arm.StrategyID)
	}
}

func TestSelectArm_TieKeepsFirstSeen(t *testing.T) {
	ctx := context.Background()
	r := testRegistry()
	if err := r.EnsureArms(ctx, threeSeeds()); err != nil {
		t.Fatalf("EnsureArms: %v", err)
	}

	// Identical rewards everywhere: identical scores, first-seen wins.
	for _, s := range threeSeeds() {
		if err := r.Update(ctx, s.StrategyID, s.Params, 0.1); err != nil {
			t.Fatalf("Update: %v", err)
		}
	}

	arm, err := r.SelectArm(ctx)
	if err != nil {
		t.Fatalf("SelectArm: %v", err)
	}
	if arm.StrategyID != "ema_cross" {
		t.Fatalf("tie broke to %s, want first-seen ema_cross", arm.StrategyID)
	}
}

func TestEnsureArms_IdempotentKeepsStats(t *testing.T) {
	ctx := context.Background()
	r := testRegistry()
	seeds := threeSeeds()
	if err := r.EnsureArms(ctx, seeds); err != nil {
		t.Fatalf("EnsureArms: %v", err)
	}
	if err := r.Update(ctx, "ema_cross", seeds[0].Params, 0.5); err != nil {
		t.Fatalf("Update: %v", err)
	}

	// Re-registering must not reset the learned pull.
	if err := r.EnsureArms(ctx, seeds); err != nil {
		t.Fatalf("second EnsureArms: %v", err)
	}

	arms, err := r.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if len(arms) != 3 {
		t.Fatalf("arm count = %d, want 3", len(arms))
	}
	if arms[0].StrategyID != "ema_cross" || arms[0].Pulls != 1 || arms[0].MeanReward != 0.5 {
		t.Fatalf("stats lost after re-registration: %+v", arms[0])
	}
}

func TestScore_MorePullsNeverScoreHigher(t *testing.T) {
	if !math.IsInf(Score(0, 0, 10), 1) {
		t.Fatal("zero pulls must score +Inf")
	}

	prev := Score(0.1, 1, 100)
	for pulls := 2; pulls <= 100; pulls++ {
		s := Score(0.1, pulls, 100)
		if s > prev {
			t.Fatalf("score rose from %g to %g at pulls=%d", prev, s, pulls)
		}
		prev = s
	}
}

func TestUpdate_RunningMean(t *testing.T) {
	ctx := context.Background()
	r := testRegistry()
	params := domain.Params{"fast": 9, "slow": 21}

	// Upsert path: unknown arm is created with pulls=1.
	if err := r.Update(ctx, "ema_cross", params, 0.3); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := r.Update(ctx, "ema_cross", params, 0.1); err != nil {
		t.Fatalf("Update: %v", err)
	}

	arms, err := r.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if len(arms) != 1 {
		t.Fatalf("arm count = %d, want 1", len(arms))
	}
	a := arms[0]
	if a.Pulls != 2 || math.Abs(a.MeanReward-0.2) > 1e-12 || math.Abs(a.TotalReward-0.4) > 1e-12 {
		t.Fatalf("stats = %+v, want pulls=2 mean=0.2 total=0.4", a)
	}
	if a.LastUpdate == 0 {
		t.Fatal("LastUpdate not set")
	}
}

func TestRollback_ReversesOneUpdate(t *testing.T) {
	ctx := context.Background()
	r := testRegistry()
	params := domain.Params{"period": 14, "lo": 30, "hi": 70}

	if err := r.Update(ctx, "rsi_mr", params, 0.4); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := r.Update(ctx, "rsi_mr", params, 0.2); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := r.Rollback(ctx, "rsi_mr", params, 0.2); err != nil {
		t.Fatalf("Rollback: %v", err)
	}

	arms, err := r.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	a := arms[0]
	if a.Pulls != 1 || math.Abs(a.MeanReward-0.4) > 1e-12 {
		t.Fatalf("after rollback: %+v, want pulls=1 mean=0.4", a)
	}

	// Rolling back the only remaining update clamps to a clean zero state.
	if err := r.Rollback(ctx, "rsi_mr", params, 0.4); err != nil {
		t.Fatalf("Rollback: %v", err)
	}
	arms, _ = r.Stats(ctx)
	a = arms[0]
	if a.Pulls != 0 || a.MeanReward != 0 || a.TotalReward != 0 {
		t.Fatalf("after full rollback: %+v, want zeroed stats", a)
	}
}

func TestStats_SortedByMeanDescending(t *testing.T) {
	ctx := context.Background()
	r := testRegistry()
	seeds := threeSeeds()
	if err := r.EnsureArms(ctx, seeds); err != nil {
		t.Fatalf("EnsureArms: %v", err)
	}

	rewards := map[string]float64{"ema_cross": 0.1, "rsi_mr": 0.3, "breakout": 0.2}
	for _, s := range seeds {
		if err := r.Update(ctx, s.StrategyID, s.Params, rewards[s.StrategyID]); err != nil {
			t.Fatalf("Update: %v", err)
		}
	}

	arms, err := r.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	wantOrder := []string{"rsi_mr", "breakout", "ema_cross"}
	for i, want := range wantOrder {
		if arms[i].StrategyID != want {
			t.Fatalf("rank %d = %s, want %s", i, arms[i].StrategyID, want)
		}
	}
}
