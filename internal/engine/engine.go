// Package engine drives the learning cycle: select an arm, generate
// signals, evaluate, update the bandit, log the trial. A failed cycle
// degrades to a flat signal instead of crashing the host.
package engine

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/esdrastrade/Market-Manus-sub002/internal/backtest"
	"github.com/esdrastrade/Market-Manus-sub002/internal/bandit"
	"github.com/esdrastrade/Market-Manus-sub002/internal/domain"
	"github.com/esdrastrade/Market-Manus-sub002/internal/experience"
	"github.com/esdrastrade/Market-Manus-sub002/internal/observability"
	"github.com/esdrastrade/Market-Manus-sub002/internal/strategies"
)

// State names one step of the cycle; degrade events carry the state the
// cycle failed in.
type State string

const (
	StateIdle            State = "idle"
	StateArmSelected     State = "arm_selected"
	StateSignalGenerated State = "signal_generated"
	StateEvaluated       State = "evaluated"
	StateUpdated         State = "updated"
	StateLogged          State = "logged"
)

// Config holds the engine's evaluation tunables.
type Config struct {
	FeeRateBps          float64
	LambdaDrawdown      float64
	LambdaTurnover      float64
	AnnualizationFactor float64

	TrainWindowSize int
	TestWindowSize  int
	MinBars         int
}

// Decision is the outcome of one cycle. On a degraded cycle Signal is 0
// and only Degraded and DegradedFrom are meaningful.
type Decision struct {
	Signal     int
	StrategyID string
	Params     domain.Params
	Metrics    domain.BacktestMetrics
	Reward     float64
	TrialID    string

	Degraded     bool
	DegradedFrom State
}

// Engine runs learning cycles over candle batches. A mutex enforces at
// most one in-flight cycle per engine.
type Engine struct {
	cfg        Config
	registry   *bandit.Registry
	experience *experience.Store
	strategies *strategies.Registry
	evaluator  *backtest.Evaluator
	logger     zerolog.Logger
	metrics    *observability.Metrics // optional

	mu  sync.Mutex
	seq uint64

	now func() time.Time
}

// New creates an Engine. metrics may be nil.
func New(cfg Config, registry *bandit.Registry, exp *experience.Store, strats *strategies.Registry, logger zerolog.Logger, metrics *observability.Metrics) *Engine {
	return &Engine{
		cfg:        cfg,
		registry:   registry,
		experience: exp,
		strategies: strats,
		evaluator:  backtest.New(cfg.AnnualizationFactor),
		logger:     logger.With().Str("component", "engine").Logger(),
		metrics:    metrics,
		now:        time.Now,
	}
}

// Reward combines backtest metrics into the scalar the bandit learns on:
// risk-adjusted return penalized by drawdown and trading cost.
func (e *Engine) Reward(m domain.BacktestMetrics) float64 {
	return m.Sharpe - e.cfg.LambdaDrawdown*m.MaxDrawdown - e.cfg.LambdaTurnover*m.Turnover
}
