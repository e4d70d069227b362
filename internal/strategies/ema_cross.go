package strategies

import (
	"fmt"

	"github.com/markcheno/go-talib"

	"github.com/esdrastrade/Market-Manus-sub002/internal/domain"
)

// EMACrossStrategy goes long while the fast EMA is above the slow EMA and
// short while it is below.
//
// Params: "fast" (default 12), "slow" (default 26), both periods >= 2
// and fast < slow.
type EMACrossStrategy struct{}

func (s *EMACrossStrategy) ID() string { return IDEMACross }

func (s *EMACrossStrategy) GenerateSignals(candles []domain.Candle, params domain.Params) ([]int, error) {
	fast := int(params.Get("fast", 12))
	slow := int(params.Get("slow", 26))
	if fast < 2 || slow < 2 {
		return nil, fmt.Errorf("%w: ema periods must be >= 2, got fast=%d slow=%d", ErrBadParams, fast, slow)
	}
	if fast >= slow {
		return nil, fmt.Errorf("%w: fast ema (%d) must be shorter than slow ema (%d)", ErrBadParams, fast, slow)
	}

	signals := make([]int, len(candles))
	if len(candles) <= slow {
		return signals, nil
	}

	closes := domain.Closes(candles)
	emaFast := talib.Ema(closes, fast)
	emaSlow := talib.Ema(closes, slow)

	// talib leaves the first period-1 entries unseeded; stay flat until
	// the slow EMA has a full lookback behind it.
	for i := slow; i < len(candles); i++ {
		switch {
		case emaFast[i] > emaSlow[i]:
			signals[i] = 1
		case emaFast[i] < emaSlow[i]:
			signals[i] = -1
		}
	}
	return signals, nil
}
