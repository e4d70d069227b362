package backtest

import (
	"fmt"

	"github.com/esdrastrade/Market-Manus-sub002/internal/domain"
)

// minWindowBars is the smallest test segment a walk-forward window may score.
const minWindowBars = 10

// SignalFunc regenerates a signal series for a candle segment. It must be a
// pure function of its inputs so the same arm reproduces the same signals.
type SignalFunc func(candles []domain.Candle, params domain.Params) ([]int, error)

// window is one transient walk-forward slice over the series. Only the test
// segment [trainEnd, testEnd) is scored; no refitting happens on the train
// segment, the same params apply across every window.
type window struct {
	start    int
	trainEnd int
	testEnd  int
}

// windows slides test segments across n bars with 50% overlap
// (step = testSize/2, at least 1).
func windows(n, trainSize, testSize int) []window {
	step := testSize / 2
	if step < 1 {
		step = 1
	}

	var out []window
	for start := 0; start+trainSize+testSize <= n; start += step {
		trainEnd := start + trainSize
		testEnd := trainEnd + testSize
		if testEnd > n {
			testEnd = n
		}
		out = append(out, window{start: start, trainEnd: trainEnd, testEnd: testEnd})
	}
	return out
}

// WalkForward evaluates a strategy over sliding out-of-sample windows and
// aggregates the per-window metrics: every metric is weighted by the
// window's bar count, except MaxDrawdown which takes the worst window and
// TradeCount which is summed.
//
// If the series is shorter than trainSize+testSize, or no window yields at
// least 10 usable bars, the whole series is scored once instead.
func (e *Evaluator) WalkForward(candles []domain.Candle, gen SignalFunc, params domain.Params, trainSize, testSize int, feeRateBps float64) (domain.BacktestMetrics, error) {
	var zero domain.BacktestMetrics

	if gen == nil {
		return zero, fmt.Errorf("%w: nil signal func", ErrInvalidInput)
	}
	if trainSize <= 0 || testSize <= 0 {
		return zero, fmt.Errorf("%w: train and test sizes must be positive", ErrInvalidInput)
	}

	n := len(candles)
	if n < trainSize+testSize {
		return e.evaluateOnce(candles, gen, params, feeRateBps)
	}

	var (
		metrics []domain.BacktestMetrics
		weights []float64
	)
	for _, w := range windows(n, trainSize, testSize) {
		seg := candles[w.trainEnd:w.testEnd]
		if len(seg) < minWindowBars {
			continue
		}

		signals, err := gen(seg, params)
		if err != nil {
			return zero, fmt.Errorf("generate signals for window [%d,%d): %w", w.trainEnd, w.testEnd, err)
		}

		m, err := e.Evaluate(seg, signals, feeRateBps)
		if err != nil {
			return zero, fmt.Errorf("evaluate window [%d,%d): %w", w.trainEnd, w.testEnd, err)
		}

		metrics = append(metrics, m)
		weights = append(weights, float64(len(seg)))
	}

	if len(metrics) == 0 {
		return e.evaluateOnce(candles, gen, params, feeRateBps)
	}

	return aggregate(metrics, weights), nil
}

// evaluateOnce is the fallback: fresh signals over the whole series, one pass.
func (e *Evaluator) evaluateOnce(candles []domain.Candle, gen SignalFunc, params domain.Params, feeRateBps float64) (domain.BacktestMetrics, error) {
	signals, err := gen(candles, params)
	if err != nil {
		return domain.BacktestMetrics{}, fmt.Errorf("generate signals: %w", err)
	}
	return e.Evaluate(candles, signals, feeRateBps)
}

// aggregate combines per-window metrics weighted by bar count.
func aggregate(metrics []domain.BacktestMetrics, weights []float64) domain.BacktestMetrics {
	var agg domain.BacktestMetrics
	total := 0.0
	for _, w := range weights {
		total += w
	}
	if total == 0 {
		return agg
	}

	for i, m := range metrics {
		w := weights[i] / total
		agg.TotalReturn += w * m.TotalReturn
		agg.Sharpe += w * m.Sharpe
		agg.WinRate += w * m.WinRate
		agg.Turnover += w * m.Turnover
		agg.TradeCount += m.TradeCount
		if m.MaxDrawdown > agg.MaxDrawdown {
			agg.MaxDrawdown = m.MaxDrawdown
		}
	}
	return agg
}
