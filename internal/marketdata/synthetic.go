package marketdata

import (
	"math"
	"math/rand"

	"github.com/esdrastrade/Market-Manus-sub002/internal/domain"
)

// SyntheticConfig controls the generated random walk.
type SyntheticConfig struct {
	// Seed makes the series deterministic.
	Seed int64

	// StartPrice is the first close. Defaults to 50000.
	StartPrice float64

	// Volatility is the per-bar return standard deviation. Defaults to 0.02.
	Volatility float64

	// StartMs is the first bar timestamp. Bars are spaced IntervalMs
	// apart; IntervalMs defaults to one hour.
	StartMs    int64
	IntervalMs int64
}

// Synthetic generates n valid candles following a seeded geometric random
// walk. The same config always yields the same series.
func Synthetic(n int, cfg SyntheticConfig) []domain.Candle {
	if cfg.StartPrice <= 0 {
		cfg.StartPrice = 50000
	}
	if cfg.Volatility <= 0 {
		cfg.Volatility = 0.02
	}
	if cfg.IntervalMs <= 0 {
		cfg.IntervalMs = 3_600_000
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	candles := make([]domain.Candle, n)

	price := cfg.StartPrice
	for i := 0; i < n; i++ {
		open := price
		close := open * (1 + rng.NormFloat64()*cfg.Volatility)
		if close <= 0 {
			close = open * 0.5
		}

		wickUp := math.Abs(rng.NormFloat64()) * cfg.Volatility / 4
		wickDown := math.Abs(rng.NormFloat64()) * cfg.Volatility / 4
		high := math.Max(open, close) * (1 + wickUp)
		low := math.Min(open, close) * (1 - wickDown)

		candles[i] = domain.Candle{
			TimestampMs: cfg.StartMs + int64(i)*cfg.IntervalMs,
			Open:        open,
			High:        high,
			Low:         low,
			Close:       close,
			Volume:      100 + rng.Float64()*900,
		}
		price = close
	}
	return candles
}
