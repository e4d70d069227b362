package strategies

import (
	"fmt"

	"github.com/markcheno/go-talib"

	"github.com/esdrastrade/Market-Manus-sub002/internal/domain"
)

// BreakoutStrategy trades range breaks: long when the bar's high clears
// the prior lookback-window high plus a buffer, short when its low breaks
// the prior window low minus the buffer, flat otherwise. The window
// excludes the current bar so a breakout compares against levels that
// were already in place.
//
// Params: "lookback" (default 20, >= 2) and "buffer_bps" (default 0,
// >= 0) applied as a fraction of the level.
type BreakoutStrategy struct{}

func (s *BreakoutStrategy) ID() string { return IDBreakout }

func (s *BreakoutStrategy) GenerateSignals(candles []domain.Candle, params domain.Params) ([]int, error) {
	lookback := int(params.Get("lookback", 20))
	bufferBps := params.Get("buffer_bps", 0)
	if lookback < 2 {
		return nil, fmt.Errorf("%w: breakout lookback must be >= 2, got %d", ErrBadParams, lookback)
	}
	if bufferBps < 0 {
		return nil, fmt.Errorf("%w: breakout buffer must be >= 0, got %g bps", ErrBadParams, bufferBps)
	}

	signals := make([]int, len(candles))
	if len(candles) <= lookback {
		return signals, nil
	}

	highestHigh := talib.Max(domain.Highs(candles), lookback)
	lowestLow := talib.Min(domain.Lows(candles), lookback)

	mult := 1 + bufferBps/10000
	for i := lookback; i < len(candles); i++ {
		// talib.Max/Min at i-1 covers bars [i-lookback, i-1].
		upper := highestHigh[i-1] * mult
		lower := lowestLow[i-1] / mult
		switch {
		case candles[i].High > upper:
			signals[i] = 1
		case candles[i].Low < lower:
			signals[i] = -1
		}
	}
	return signals, nil
}
