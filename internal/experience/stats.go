package experience

import (
	"context"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/esdrastrade/Market-Manus-sub002/internal/domain"
	"github.com/esdrastrade/Market-Manus-sub002/internal/storage"
)

// StrategyStats summarizes a strategy's recorded trials.
type StrategyStats struct {
	StrategyID string `json:"strategy_id"`
	Trials     int    `json:"trials"`

	MeanReward   float64 `json:"mean_reward"`
	StdReward    float64 `json:"std_reward"`
	MinReward    float64 `json:"min_reward"`
	MaxReward    float64 `json:"max_reward"`
	MedianReward float64 `json:"median_reward"`

	MeanSharpe      float64 `json:"mean_sharpe"`
	MeanTotalReturn float64 `json:"mean_total_return"`
	MeanMaxDrawdown float64 `json:"mean_max_drawdown"`
	MeanWinRate     float64 `json:"mean_win_rate"`
	MeanTurnover    float64 `json:"mean_turnover"`
}

// Stats aggregates all recorded trials per strategy.
func (s *Store) Stats(ctx context.Context) (map[string]StrategyStats, error) {
	trials, err := s.store.Query(ctx, storage.TrialFilter{})
	if err != nil {
		return nil, fmt.Errorf("load trials: %w", err)
	}

	byStrategy := make(map[string][]*domain.Trial)
	for _, t := range trials {
		byStrategy[t.StrategyID] = append(byStrategy[t.StrategyID], t)
	}

	out := make(map[string]StrategyStats, len(byStrategy))
	for id, group := range byStrategy {
		out[id] = summarize(id, group)
	}
	return out, nil
}

// Ranking returns per-strategy stats ordered by mean reward, best first.
// Ties break on trial count, then strategy id for determinism.
func (s *Store) Ranking(ctx context.Context) ([]StrategyStats, error) {
	byID, err := s.Stats(ctx)
	if err != nil {
		return nil, err
	}

	ranked := make([]StrategyStats, 0, len(byID))
	for _, st := range byID {
		ranked = append(ranked, st)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].MeanReward != ranked[j].MeanReward {
			return ranked[i].MeanReward > ranked[j].MeanReward
		}
		if ranked[i].Trials != ranked[j].Trials {
			return ranked[i].Trials > ranked[j].Trials
		}
		return ranked[i].StrategyID < ranked[j].StrategyID
	})
	return ranked, nil
}

// BestTrials returns the top trials ordered by the named metric,
// descending, except max_drawdown which orders ascending (smaller loss
// is better). Supported metrics: reward, sharpe, total_return,
// max_drawdown, win_rate. limit <= 0 means all.
func (s *Store) BestTrials(ctx context.Context, metric string, limit int) ([]*domain.Trial, error) {
	key, asc, err := metricAccessor(metric)
	if err != nil {
		return nil, err
	}

	trials, err := s.store.Query(ctx, storage.TrialFilter{})
	if err != nil {
		return nil, fmt.Errorf("load trials: %w", err)
	}

	sort.SliceStable(trials, func(i, j int) bool {
		a, b := key(trials[i]), key(trials[j])
		if asc {
			return a < b
		}
		return a > b
	})
	if limit > 0 && limit < len(trials) {
		trials = trials[:limit]
	}
	return trials, nil
}

func metricAccessor(metric string) (func(*domain.Trial) float64, bool, error) {
	switch metric {
	case "", "reward":
		return func(t *domain.Trial) float64 { return t.Reward }, false, nil
	case "sharpe":
		return func(t *domain.Trial) float64 { return t.Metrics.Sharpe }, false, nil
	case "total_return":
		return func(t *domain.Trial) float64 { return t.Metrics.TotalReturn }, false, nil
	case "max_drawdown":
		return func(t *domain.Trial) float64 { return t.Metrics.MaxDrawdown }, true, nil
	case "win_rate":
		return func(t *domain.Trial) float64 { return t.Metrics.WinRate }, false, nil
	default:
		return nil, false, fmt.Errorf("unknown metric %q", metric)
	}
}

func summarize(id string, trials []*domain.Trial) StrategyStats {
	n := len(trials)
	rewards := make([]float64, n)
	var sharpe, totalReturn, maxDD, winRate, turnover float64
	for i, t := range trials {
		rewards[i] = t.Reward
		sharpe += t.Metrics.Sharpe
		totalReturn += t.Metrics.TotalReturn
		maxDD += t.Metrics.MaxDrawdown
		winRate += t.Metrics.WinRate
		turnover += t.Metrics.Turnover
	}

	sorted := make([]float64, n)
	copy(sorted, rewards)
	sort.Float64s(sorted)

	std := 0.0
	if n > 1 {
		std = stat.StdDev(rewards, nil)
	}

	fn := float64(n)
	return StrategyStats{
		StrategyID:      id,
		Trials:          n,
		MeanReward:      stat.Mean(rewards, nil),
		StdReward:       std,
		MinReward:       sorted[0],
		MaxReward:       sorted[n-1],
		MedianReward:    stat.Quantile(0.5, stat.Empirical, sorted, nil),
		MeanSharpe:      sharpe / fn,
		MeanTotalReturn: totalReturn / fn,
		MeanMaxDrawdown: maxDD / fn,
		MeanWinRate:     winRate / fn,
		MeanTurnover:    turnover / fn,
	}
}
