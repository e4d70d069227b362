package domain

import (
	"errors"
	"math"
)

// BacktestMetrics is the scalar performance summary produced by the reward
// evaluator. All fields are neutral (zero) when a window has no trades, so
// reward computation stays total.
type BacktestMetrics struct {
	TotalReturn float64 // compounded net return over the window
	Sharpe      float64 // annualized mean/std of net returns, 0 when std is 0
	MaxDrawdown float64 // peak-to-trough decline, non-negative fraction
	WinRate     float64 // positive net returns / non-zero net returns
	Turnover    float64 // sum of |position changes| / bar count
	TradeCount  int     // count of non-zero net returns
}

// Trial is one immutable experience record: which arm was tried, what it
// scored and the reward it earned. Created exactly once per engine cycle.
type Trial struct {
	TrialID     string
	TimestampMs int64
	StrategyID  string
	Params      Params
	Metrics     BacktestMetrics
	Reward      float64
}

// Trial validation errors.
var (
	ErrTrialMissingStrategy = errors.New("trial missing strategy id")
	ErrTrialMissingParams   = errors.New("trial missing params")
	ErrTrialBadReward       = errors.New("trial reward is not a finite number")
)

// Validate checks the fields required before a trial may be persisted.
func (t *Trial) Validate() error {
	if t.StrategyID == "" {
		return ErrTrialMissingStrategy
	}
	if t.Params == nil {
		return ErrTrialMissingParams
	}
	if math.IsNaN(t.Reward) || math.IsInf(t.Reward, 0) {
		return ErrTrialBadReward
	}
	return nil
}

// Clone returns an independent copy of the trial.
func (t *Trial) Clone() *Trial {
	out := *t
	out.Params = t.Params.Clone()
	return &out
}
