package experience

import (
	"context"
	"math"
	"testing"
)

func seedStatsTrials(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()

	// ema_cross: rewards 0.1, 0.2, 0.3; rsi_mr: 0.5; breakout: -0.1, -0.3.
	rewards := []struct {
		strategy string
		reward   float64
	}{
		{"ema_cross", 0.1},
		{"ema_cross", 0.2},
		{"ema_cross", 0.3},
		{"rsi_mr", 0.5},
		{"breakout", -0.1},
		{"breakout", -0.3},
	}
	for i, r := range rewards {
		if err := s.Append(ctx, makeTrial(i, r.strategy, r.reward)); err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
	}
}

func TestStats_PerStrategyAggregates(t *testing.T) {
	s := newTestStore(t, Config{})
	seedStatsTrials(t, s)

	stats, err := s.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if len(stats) != 3 {
		t.Fatalf("strategies = %d, want 3", len(stats))
	}

	ema := stats["ema_cross"]
	if ema.Trials != 3 {
		t.Fatalf("ema_cross trials = %d, want 3", ema.Trials)
	}
	if math.Abs(ema.MeanReward-0.2) > 1e-12 {
		t.Fatalf("ema_cross mean = %g, want 0.2", ema.MeanReward)
	}
	if math.Abs(ema.MinReward-0.1) > 1e-12 || math.Abs(ema.MaxReward-0.3) > 1e-12 {
		t.Fatalf("ema_cross min/max = %g/%g", ema.MinReward, ema.MaxReward)
	}
	if math.Abs(ema.MedianReward-0.2) > 1e-12 {
		t.Fatalf("ema_cross median = %g, want 0.2", ema.MedianReward)
	}
	if ema.StdReward <= 0 {
		t.Fatalf("ema_cross std = %g, want > 0", ema.StdReward)
	}

	single := stats["rsi_mr"]
	if single.Trials != 1 || single.StdReward != 0 {
		t.Fatalf("single-trial stats = %+v, want std 0", single)
	}
}

func TestRanking_BestMeanFirst(t *testing.T) {
	s := newTestStore(t, Config{})
	seedStatsTrials(t, s)

	ranked, err := s.Ranking(context.Background())
	if err != nil {
		t.Fatalf("Ranking: %v", err)
	}
	want := []string{"rsi_mr", "ema_cross", "breakout"}
	for i, id := range want {
		if ranked[i].StrategyID != id {
			t.Fatalf("rank %d = %s, want %s", i, ranked[i].StrategyID, id)
		}
	}
}

func TestBestTrials_MetricOrdering(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, Config{})
	seedStatsTrials(t, s)

	top, err := s.BestTrials(ctx, "reward", 2)
	if err != nil {
		t.Fatalf("BestTrials: %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("len = %d, want 2", len(top))
	}
	if top[0].Reward != 0.5 {
		t.Fatalf("best reward = %g, want 0.5", top[0].Reward)
	}
	if top[1].Reward != 0.3 {
		t.Fatalf("second reward = %g, want 0.3", top[1].Reward)
	}

	// max_drawdown ranks ascending. makeTrial derives it as |reward|/2,
	// so the smallest |reward| wins.
	byDD, err := s.BestTrials(ctx, "max_drawdown", 1)
	if err != nil {
		t.Fatalf("BestTrials: %v", err)
	}
	if byDD[0].Metrics.MaxDrawdown != 0.05 {
		t.Fatalf("best drawdown = %g, want 0.05", byDD[0].Metrics.MaxDrawdown)
	}

	if _, err := s.BestTrials(ctx, "alpha_decay", 1); err == nil {
		t.Fatal("unknown metric must error")
	}
}
