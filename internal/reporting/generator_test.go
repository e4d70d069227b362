package reporting

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/esdrastrade/Market-Manus-sub002/internal/bandit"
	"github.com/esdrastrade/Market-Manus-sub002/internal/domain"
	"github.com/esdrastrade/Market-Manus-sub002/internal/experience"
	"github.com/esdrastrade/Market-Manus-sub002/internal/storage/memory"
)

func seededState(t *testing.T) (*bandit.Registry, *experience.Store) {
	t.Helper()
	ctx := context.Background()
	logger := zerolog.Nop()

	registry := bandit.NewRegistry(memory.NewArmStore(), logger)
	seeds := []domain.ArmSeed{
		{StrategyID: "ema_cross", Params: domain.Params{"fast": 9, "slow": 21}},
		{StrategyID: "rsi_mr", Params: domain.Params{"period": 14, "lo": 30, "hi": 70}},
	}
	if err := registry.EnsureArms(ctx, seeds); err != nil {
		t.Fatalf("EnsureArms: %v", err)
	}
	if err := registry.Update(ctx, "ema_cross", seeds[0].Params, 0.3); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := registry.Update(ctx, "rsi_mr", seeds[1].Params, 0.1); err != nil {
		t.Fatalf("Update: %v", err)
	}

	exp := experience.New(memory.NewTrialStore(), experience.Config{BackupDir: t.TempDir()}, logger, nil)
	for i := 0; i < 4; i++ {
		strategy := "ema_cross"
		params := seeds[0].Params
		if i%2 == 1 {
			strategy = "rsi_mr"
			params = seeds[1].Params
		}
		trial := &domain.Trial{
			TrialID:     fmt.Sprintf("t%02d", i),
			TimestampMs: int64(1_700_000_000_000 + i*60_000),
			StrategyID:  strategy,
			Params:      params,
			Metrics:     domain.BacktestMetrics{Sharpe: 0.5, MaxDrawdown: 0.1, TradeCount: 3},
			Reward:      0.1 * float64(i+1),
		}
		if err := exp.Append(ctx, trial); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	return registry, exp
}

func TestGenerate_SnapshotsState(t *testing.T) {
	registry, exp := seededState(t)
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	gen := NewGenerator(registry, exp, 3).WithClock(func() time.Time { return fixed })

	report, err := gen.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if !report.GeneratedAt.Equal(fixed) {
		t.Fatalf("GeneratedAt = %v, want %v", report.GeneratedAt, fixed)
	}
	if report.ArmCount != 2 || report.TrialCount != 4 {
		t.Fatalf("counts = %d arms / %d trials, want 2/4", report.ArmCount, report.TrialCount)
	}

	// Ranking is best mean first.
	if report.ArmRanking[0].StrategyID != "ema_cross" {
		t.Fatalf("top arm = %s, want ema_cross", report.ArmRanking[0].StrategyID)
	}
	if report.ArmRanking[0].Pulls != 1 {
		t.Fatalf("top arm pulls = %d, want 1", report.ArmRanking[0].Pulls)
	}

	if len(report.RecentTrials) != 3 {
		t.Fatalf("recent trials = %d, want limit 3", len(report.RecentTrials))
	}
	if report.RecentTrials[0].TrialID != "t03" {
		t.Fatalf("newest trial = %s, want t03", report.RecentTrials[0].TrialID)
	}

	if len(report.StrategyStats) != 2 {
		t.Fatalf("strategy stats = %d, want 2", len(report.StrategyStats))
	}
}

func TestRenderMarkdown_ContainsTables(t *testing.T) {
	registry, exp := seededState(t)
	gen := NewGenerator(registry, exp, 5).WithClock(func() time.Time {
		return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	})

	report, err := gen.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	md := RenderMarkdown(report)
	for _, want := range []string{
		"# Strategy Selection Report",
		"Generated: 2025-06-01T12:00:00Z",
		"Arms: 2 | Trials: 4",
		"## Arm Ranking",
		"## Strategy Performance",
		"## Recent Trials",
		"ema_cross",
		"`{\"hi\":70,\"lo\":30,\"period\":14}`",
	} {
		if !strings.Contains(md, want) {
			t.Fatalf("markdown missing %q:\n%s", want, md)
		}
	}
}

func TestRenderMarkdown_EmptyState(t *testing.T) {
	logger := zerolog.Nop()
	registry := bandit.NewRegistry(memory.NewArmStore(), logger)
	exp := experience.New(memory.NewTrialStore(), experience.Config{}, logger, nil)

	report, err := NewGenerator(registry, exp, 5).Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	md := RenderMarkdown(report)
	if !strings.Contains(md, "No arms registered.") || !strings.Contains(md, "No trials recorded.") {
		t.Fatalf("empty placeholders missing:\n%s", md)
	}
}

func TestRenderCSV_RankingRows(t *testing.T) {
	rows := []ArmRow{
		{StrategyID: "ema_cross", ParamsJSON: `{"fast":9,"slow":21}`, Pulls: 3, MeanReward: 0.25, LastUpdate: 1700000000000},
		{StrategyID: "breakout", ParamsJSON: `{"lookback":20}`, Pulls: 1, MeanReward: -0.1, LastUpdate: 0},
	}

	out := RenderCSV(rows)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %d, want header + 2 rows", len(lines))
	}
	if lines[0] != "strategy_id,params_json,pulls,mean_reward,last_update_ms" {
		t.Fatalf("header = %s", lines[0])
	}
	if !strings.HasPrefix(lines[1], `ema_cross,"{\"fast\":9,\"slow\":21}",3,0.250000,1700000000000`) {
		t.Fatalf("row = %s", lines[1])
	}
}
