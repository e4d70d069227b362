// Package reporting renders the learning state as CSV and Markdown.
package reporting

import (
	"time"

	"github.com/esdrastrade/Market-Manus-sub002/internal/domain"
	"github.com/esdrastrade/Market-Manus-sub002/internal/experience"
)

// Report captures one snapshot of the engine's learning state.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	ArmCount    int
	TrialCount  int

	// Arms ordered by mean reward, best first.
	ArmRanking []ArmRow

	// Per-strategy aggregates over the trial log.
	StrategyStats []experience.StrategyStats

	// Most recent trials, newest first.
	RecentTrials []*domain.Trial
}

// ArmRow is one arm in the ranking table.
type ArmRow struct {
	StrategyID string
	ParamsJSON string
	Pulls      int
	MeanReward float64
	LastUpdate int64
}
