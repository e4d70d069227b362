package strategies

import (
	"fmt"

	"github.com/markcheno/go-talib"

	"github.com/esdrastrade/Market-Manus-sub002/internal/domain"
)

// RSIMeanReversionStrategy buys oversold bars and sells overbought ones:
// long while RSI < lo, short while RSI > hi, flat in between.
//
// Params: "period" (default 14, >= 2), "lo" (default 30), "hi"
// (default 70), with 0 <= lo < hi <= 100.
type RSIMeanReversionStrategy struct{}

func (s *RSIMeanReversionStrategy) ID() string { return IDRSIMR }

func (s *RSIMeanReversionStrategy) GenerateSignals(candles []domain.Candle, params domain.Params) ([]int, error) {
	period := int(params.Get("period", 14))
	lo := params.Get("lo", 30)
	hi := params.Get("hi", 70)
	if period < 2 {
		return nil, fmt.Errorf("%w: rsi period must be >= 2, got %d", ErrBadParams, period)
	}
	if lo >= hi {
		return nil, fmt.Errorf("%w: rsi lo (%g) must be below hi (%g)", ErrBadParams, lo, hi)
	}
	if lo < 0 || hi > 100 {
		return nil, fmt.Errorf("%w: rsi bounds must lie in [0, 100], got lo=%g hi=%g", ErrBadParams, lo, hi)
	}

	signals := make([]int, len(candles))
	if len(candles) <= period {
		return signals, nil
	}

	rsi := talib.Rsi(domain.Closes(candles), period)
	for i := period; i < len(candles); i++ {
		switch {
		case rsi[i] < lo:
			signals[i] = 1
		case rsi[i] > hi:
			signals[i] = -1
		}
	}
	return signals, nil
}
