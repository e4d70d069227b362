package reporting

import (
	"context"
	"time"

	"github.com/esdrastrade/Market-Manus-sub002/internal/bandit"
	"github.com/esdrastrade/Market-Manus-sub002/internal/experience"
)

// Generator produces reports from the live registry and trial log.
type Generator struct {
	registry     *bandit.Registry
	experience   *experience.Store
	recentTrials int
	now          func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a report generator. recentTrials bounds the
// recent-trials table; <= 0 defaults to 20.
func NewGenerator(registry *bandit.Registry, exp *experience.Store, recentTrials int) *Generator {
	if recentTrials <= 0 {
		recentTrials = 20
	}
	return &Generator{
		registry:     registry,
		experience:   exp,
		recentTrials: recentTrials,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate assembles a full snapshot report.
func (g *Generator) Generate(ctx context.Context) (*Report, error) {
	arms, err := g.registry.Stats(ctx)
	if err != nil {
		return nil, err
	}

	ranking := make([]ArmRow, len(arms))
	for i, a := range arms {
		ranking[i] = ArmRow{
			StrategyID: a.StrategyID,
			ParamsJSON: a.Params.Canonical(),
			Pulls:      a.Pulls,
			MeanReward: a.MeanReward,
			LastUpdate: a.LastUpdate,
		}
	}

	stats, err := g.experience.Ranking(ctx)
	if err != nil {
		return nil, err
	}

	recent, err := g.experience.Query(ctx, experience.Filter{Limit: g.recentTrials})
	if err != nil {
		return nil, err
	}

	count, err := g.experience.Count(ctx)
	if err != nil {
		return nil, err
	}

	return &Report{
		GeneratedAt:   g.now(),
		ArmCount:      len(arms),
		TrialCount:    count,
		ArmRanking:    ranking,
		StrategyStats: stats,
		RecentTrials:  recent,
	}, nil
}
