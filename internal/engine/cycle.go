package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/esdrastrade/Market-Manus-sub002/internal/domain"
	"github.com/esdrastrade/Market-Manus-sub002/internal/idhash"
)

// ProcessBatch runs one full learning cycle over the batch and returns
// the decision for its last bar. The batch is validated before any state
// is touched; a failure in any later step rolls the cycle back where
// needed and returns a flat, degraded decision.
func (e *Engine) ProcessBatch(ctx context.Context, candles []domain.Candle) Decision {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()

	if err := e.validateBatch(candles); err != nil {
		return e.degrade(StateIdle, err)
	}

	// Arm selection.
	arm, err := e.registry.SelectArm(ctx)
	if err != nil {
		return e.degrade(StateIdle, err)
	}
	if e.metrics != nil {
		e.metrics.ArmSelections.WithLabelValues(arm.StrategyID).Inc()
	}

	strat, known := e.strategies.Resolve(arm.StrategyID)
	if !known {
		// The arm stays in rotation; it just earns zero-effect trials
		// until it is cleaned up.
		e.logger.Warn().Str("strategy", arm.StrategyID).Msg("unknown strategy id, using noop signals")
	}

	// Signal generation for the live decision.
	signals, err := strat.GenerateSignals(candles, arm.Params)
	if err != nil {
		return e.degrade(StateArmSelected, fmt.Errorf("generate signals for %s: %w", arm.StrategyID, err))
	}

	// Evaluation; walk-forward degrades internally to a single pass when
	// the series is too short for one window.
	metrics, err := e.evaluator.WalkForward(candles, strat.GenerateSignals, arm.Params,
		e.cfg.TrainWindowSize, e.cfg.TestWindowSize, e.cfg.FeeRateBps)
	if err != nil {
		return e.degrade(StateSignalGenerated, fmt.Errorf("evaluate %s: %w", arm.StrategyID, err))
	}

	reward := e.Reward(metrics)
	if e.metrics != nil {
		e.metrics.RewardObserved.Observe(reward)
	}

	// Bandit update.
	if err := e.registry.Update(ctx, arm.StrategyID, arm.Params, reward); err != nil {
		return e.degrade(StateEvaluated, fmt.Errorf("update arm %s: %w", arm.Key(), err))
	}

	// Trial logging. On failure the registry update is reversed so the
	// cycle leaves no partial state behind.
	trial := e.buildTrial(arm, metrics, reward)
	if err := e.experience.Append(ctx, trial); err != nil {
		if rbErr := e.registry.Rollback(ctx, arm.StrategyID, arm.Params, reward); rbErr != nil {
			e.logger.Error().Err(rbErr).Str("arm", arm.Key()).Msg("rollback after failed trial append also failed")
		}
		return e.degrade(StateUpdated, fmt.Errorf("append trial %s: %w", trial.TrialID, err))
	}

	if e.metrics != nil {
		e.metrics.CyclesTotal.WithLabelValues("completed").Inc()
		e.metrics.CycleDuration.Observe(time.Since(start).Seconds())
	}

	decision := Decision{
		Signal:     signals[len(signals)-1],
		StrategyID: arm.StrategyID,
		Params:     arm.Params.Clone(),
		Metrics:    metrics,
		Reward:     reward,
		TrialID:    trial.TrialID,
	}
	e.logger.Info().
		Str("strategy", arm.StrategyID).
		Str("params", arm.Params.Canonical()).
		Int("signal", decision.Signal).
		Float64("reward", reward).
		Float64("sharpe", metrics.Sharpe).
		Float64("max_drawdown", metrics.MaxDrawdown).
		Msg("cycle completed")
	return decision
}

// validateBatch rejects malformed batches before the cycle starts.
func (e *Engine) validateBatch(candles []domain.Candle) error {
	if len(candles) < e.cfg.MinBars {
		return fmt.Errorf("batch too short: %d bars, need %d", len(candles), e.cfg.MinBars)
	}
	if err := domain.ValidateCandles(candles); err != nil {
		return fmt.Errorf("invalid batch: %w", err)
	}
	return nil
}

func (e *Engine) buildTrial(arm domain.Arm, metrics domain.BacktestMetrics, reward float64) *domain.Trial {
	e.seq++
	ts := e.now().UnixMilli()
	return &domain.Trial{
		TrialID:     idhash.ComputeTrialID(arm.StrategyID, arm.Params.Canonical(), ts, e.seq),
		TimestampMs: ts,
		StrategyID:  arm.StrategyID,
		Params:      arm.Params.Clone(),
		Metrics:     metrics,
		Reward:      reward,
	}
}

// degrade records a failed cycle and returns the flat decision.
func (e *Engine) degrade(from State, err error) Decision {
	if e.metrics != nil {
		e.metrics.CyclesTotal.WithLabelValues("degraded").Inc()
		e.metrics.DegradedCycles.WithLabelValues(string(from)).Inc()
	}
	e.logger.Error().Err(err).Str("state", string(from)).Msg("cycle degraded to flat signal")
	return Decision{Degraded: true, DegradedFrom: from}
}
