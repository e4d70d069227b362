package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders the report as a Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Strategy Selection Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Arms: %d | Trials: %d\n\n", r.ArmCount, r.TrialCount))

	// Arm ranking
	sb.WriteString("## Arm Ranking\n\n")
	if len(r.ArmRanking) > 0 {
		sb.WriteString("| Strategy | Params | Pulls | Mean Reward | Last Update |\n")
		sb.WriteString("|----------|--------|-------|-------------|-------------|\n")
		for _, a := range r.ArmRanking {
			lastUpdate := "never"
			if a.LastUpdate > 0 {
				lastUpdate = time.UnixMilli(a.LastUpdate).UTC().Format(time.RFC3339)
			}
			sb.WriteString(fmt.Sprintf("| %s | `%s` | %d | %.4f | %s |\n",
				a.StrategyID, a.ParamsJSON, a.Pulls, a.MeanReward, lastUpdate))
		}
	} else {
		sb.WriteString("No arms registered.\n")
	}
	sb.WriteString("\n")

	// Strategy aggregates
	sb.WriteString("## Strategy Performance\n\n")
	if len(r.StrategyStats) > 0 {
		sb.WriteString("| Strategy | Trials | Mean | Std | Median | Min | Max | Sharpe | MaxDD | WinRate |\n")
		sb.WriteString("|----------|--------|------|-----|--------|-----|-----|--------|-------|--------|\n")
		for _, s := range r.StrategyStats {
			sb.WriteString(fmt.Sprintf("| %s | %d | %.4f | %.4f | %.4f | %.4f | %.4f | %.4f | %.4f | %.4f |\n",
				s.StrategyID, s.Trials,
				s.MeanReward, s.StdReward, s.MedianReward, s.MinReward, s.MaxReward,
				s.MeanSharpe, s.MeanMaxDrawdown, s.MeanWinRate))
		}
	} else {
		sb.WriteString("No trials recorded.\n")
	}
	sb.WriteString("\n")

	// Recent trials
	sb.WriteString("## Recent Trials\n\n")
	if len(r.RecentTrials) > 0 {
		sb.WriteString("| Time | Strategy | Params | Reward | Sharpe | MaxDD | Trades |\n")
		sb.WriteString("|------|----------|--------|--------|--------|-------|--------|\n")
		for _, t := range r.RecentTrials {
			sb.WriteString(fmt.Sprintf("| %s | %s | `%s` | %.4f | %.4f | %.4f | %d |\n",
				time.UnixMilli(t.TimestampMs).UTC().Format(time.RFC3339),
				t.StrategyID, t.Params.Canonical(),
				t.Reward, t.Metrics.Sharpe, t.Metrics.MaxDrawdown, t.Metrics.TradeCount))
		}
	} else {
		sb.WriteString("No trials recorded.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}
