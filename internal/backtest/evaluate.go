// Package backtest scores signal series against price series and produces
// risk-adjusted performance metrics, in single-pass and walk-forward modes.
package backtest

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/esdrastrade/Market-Manus-sub002/internal/domain"
)

// Evaluator errors.
var (
	ErrInvalidInput   = errors.New("invalid evaluator input")
	ErrLengthMismatch = fmt.Errorf("%w: candles and signals must have equal length", ErrInvalidInput)
	ErrTooFewBars     = fmt.Errorf("%w: too few bars", ErrInvalidInput)
	ErrBadSignal      = fmt.Errorf("%w: signal values must be -1, 0 or 1", ErrInvalidInput)
)

const (
	// defaultAnnualization assumes daily bars.
	defaultAnnualization = 252.0

	// minEvalBars is the smallest series a single evaluation accepts:
	// one bar of history plus one bar to trade on.
	minEvalBars = 2
)

// Evaluator converts candle and signal series into BacktestMetrics.
// The zero-cost configuration is obtained with New(0).
type Evaluator struct {
	annualization float64
}

// New creates an Evaluator. annualization is the factor under the square
// root of the Sharpe ratio; 0 selects the default of 252.
func New(annualization float64) *Evaluator {
	if annualization <= 0 {
		annualization = defaultAnnualization
	}
	return &Evaluator{annualization: annualization}
}

// Evaluate runs a signal series against a candle series with transaction
// costs and returns aggregate performance metrics.
//
// Positions are the signals shifted by one bar: a signal observed on bar i
// is acted on starting bar i+1, so no bar's return ever depends on its own
// signal. Transaction cost is feeRateBps/10000 per unit of position change.
func (e *Evaluator) Evaluate(candles []domain.Candle, signals []int, feeRateBps float64) (domain.BacktestMetrics, error) {
	var m domain.BacktestMetrics

	n := len(candles)
	if n != len(signals) {
		return m, ErrLengthMismatch
	}
	if n < minEvalBars {
		return m, ErrTooFewBars
	}
	if err := domain.ValidateCandles(candles); err != nil {
		return m, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	for _, s := range signals {
		if s < -1 || s > 1 {
			return m, ErrBadSignal
		}
	}

	// Bar returns; the first bar has no predecessor and contributes zero.
	returns := make([]float64, n)
	for i := 1; i < n; i++ {
		prev := candles[i-1].Close
		if prev != 0 {
			returns[i] = candles[i].Close/prev - 1
		}
	}

	// Positions are signals shifted by one bar, flat before the first signal.
	positions := make([]float64, n)
	for i := 1; i < n; i++ {
		positions[i] = float64(signals[i-1])
	}

	fee := feeRateBps / 10000.0
	net := make([]float64, n)
	sumChange := 0.0
	prevPos := 0.0
	for i := 0; i < n; i++ {
		change := math.Abs(positions[i] - prevPos)
		prevPos = positions[i]
		sumChange += change
		net[i] = positions[i]*returns[i] - change*fee
	}

	// Compounded equity curve, total return and peak-to-trough drawdown.
	equity := 1.0
	peak := 1.0
	maxDrawdown := 0.0
	for _, r := range net {
		equity *= 1 + r
		if equity > peak {
			peak = equity
		}
		if peak > 0 {
			if dd := (peak - equity) / peak; dd > maxDrawdown {
				maxDrawdown = dd
			}
		}
	}
	m.TotalReturn = equity - 1
	m.MaxDrawdown = maxDrawdown

	mean := stat.Mean(net, nil)
	std := stat.StdDev(net, nil)
	if std > 0 && !math.IsNaN(std) {
		m.Sharpe = mean / std * math.Sqrt(e.annualization)
	}

	wins, losses := 0, 0
	for _, r := range net {
		switch {
		case r > 0:
			wins++
		case r < 0:
			losses++
		}
	}
	m.TradeCount = wins + losses
	if m.TradeCount > 0 {
		m.WinRate = float64(wins) / float64(m.TradeCount)
	}
	m.Turnover = sumChange / float64(n)

	return m, nil
}
