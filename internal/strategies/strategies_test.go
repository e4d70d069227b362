package strategies

import (
	"errors"
	"reflect"
	"testing"

	"github.com/esdrastrade/Market-Manus-sub002/internal/domain"
)

func candlesFromCloses(closes []float64) []domain.Candle {
	out := make([]domain.Candle, len(closes))
	for i, c := range closes {
		out[i] = domain.Candle{
			TimestampMs: int64(1_700_000_000_000 + i*60_000),
			Open:        c,
			High:        c + 1,
			Low:         c - 1,
			Close:       c,
			Volume:      100,
		}
	}
	return out
}

func rampCloses(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + step*float64(i)
	}
	return out
}

func TestEMACross_TrendDirection(t *testing.T) {
	s := &EMACrossStrategy{}
	params := domain.Params{"fast": 3, "slow": 5}

	up, err := s.GenerateSignals(candlesFromCloses(rampCloses(30, 100, 1)), params)
	if err != nil {
		t.Fatalf("GenerateSignals: %v", err)
	}
	if len(up) != 30 {
		t.Fatalf("len = %d, want 30", len(up))
	}
	for i := 0; i < 5; i++ {
		if up[i] != 0 {
			t.Fatalf("warmup signal[%d] = %d, want 0", i, up[i])
		}
	}
	// In a steady uptrend the fast EMA stays above the slow EMA.
	for i := 5; i < 30; i++ {
		if up[i] != 1 {
			t.Fatalf("uptrend signal[%d] = %d, want 1", i, up[i])
		}
	}

	down, err := s.GenerateSignals(candlesFromCloses(rampCloses(30, 200, -1)), params)
	if err != nil {
		t.Fatalf("GenerateSignals: %v", err)
	}
	for i := 5; i < 30; i++ {
		if down[i] != -1 {
			t.Fatalf("downtrend signal[%d] = %d, want -1", i, down[i])
		}
	}
}

func TestEMACross_ShortSeriesStaysFlat(t *testing.T) {
	s := &EMACrossStrategy{}
	signals, err := s.GenerateSignals(candlesFromCloses(rampCloses(5, 100, 1)), domain.Params{"fast": 3, "slow": 5})
	if err != nil {
		t.Fatalf("GenerateSignals: %v", err)
	}
	for i, sig := range signals {
		if sig != 0 {
			t.Fatalf("signal[%d] = %d, want 0 on short series", i, sig)
		}
	}
}

func TestEMACross_BadParams(t *testing.T) {
	s := &EMACrossStrategy{}
	candles := candlesFromCloses(rampCloses(30, 100, 1))

	for _, params := range []domain.Params{
		{"fast": 1, "slow": 5},
		{"fast": 5, "slow": 1},
		{"fast": 10, "slow": 10},
		{"fast": 26, "slow": 12},
	} {
		if _, err := s.GenerateSignals(candles, params); !errors.Is(err, ErrBadParams) {
			t.Fatalf("params %v: got %v, want ErrBadParams", params, err)
		}
	}
}

func TestRSIMeanReversion_FadesExtremes(t *testing.T) {
	s := &RSIMeanReversionStrategy{}
	params := domain.Params{"period": 5, "lo": 30, "hi": 70}

	// Monotonic gains pin RSI at 100: overbought, so the strategy shorts.
	up, err := s.GenerateSignals(candlesFromCloses(rampCloses(40, 100, 1)), params)
	if err != nil {
		t.Fatalf("GenerateSignals: %v", err)
	}
	for i := 0; i < 5; i++ {
		if up[i] != 0 {
			t.Fatalf("warmup signal[%d] = %d, want 0", i, up[i])
		}
	}
	for i := 5; i < 40; i++ {
		if up[i] != -1 {
			t.Fatalf("overbought signal[%d] = %d, want -1", i, up[i])
		}
	}

	// Monotonic losses pin RSI at 0: oversold, so it buys.
	down, err := s.GenerateSignals(candlesFromCloses(rampCloses(40, 200, -1)), params)
	if err != nil {
		t.Fatalf("GenerateSignals: %v", err)
	}
	for i := 5; i < 40; i++ {
		if down[i] != 1 {
			t.Fatalf("oversold signal[%d] = %d, want 1", i, down[i])
		}
	}
}

func TestRSIMeanReversion_BadParams(t *testing.T) {
	s := &RSIMeanReversionStrategy{}
	candles := candlesFromCloses(rampCloses(40, 100, 1))

	for _, params := range []domain.Params{
		{"period": 1},
		{"lo": 70, "hi": 30},
		{"lo": 50, "hi": 50},
		{"lo": -5, "hi": 70},
		{"lo": 30, "hi": 105},
	} {
		if _, err := s.GenerateSignals(candles, params); !errors.Is(err, ErrBadParams) {
			t.Fatalf("params %v: got %v, want ErrBadParams", params, err)
		}
	}
}

func breakoutCandles() []domain.Candle {
	// Ten bars of a 95..105 range, then an upside break and a downside
	// break.
	candles := make([]domain.Candle, 12)
	for i := 0; i < 10; i++ {
		candles[i] = domain.Candle{
			TimestampMs: int64(1_700_000_000_000 + i*60_000),
			Open:        100, High: 105, Low: 95, Close: 100, Volume: 100,
		}
	}
	candles[10] = domain.Candle{
		TimestampMs: 1_700_000_000_000 + 10*60_000,
		Open:        104, High: 110, Low: 100, Close: 108, Volume: 100,
	}
	candles[11] = domain.Candle{
		TimestampMs: 1_700_000_000_000 + 11*60_000,
		Open:        96, High: 100, Low: 90, Close: 92, Volume: 100,
	}
	return candles
}

func TestBreakout_RangeBreaks(t *testing.T) {
	s := &BreakoutStrategy{}
	signals, err := s.GenerateSignals(breakoutCandles(), domain.Params{"lookback": 5})
	if err != nil {
		t.Fatalf("GenerateSignals: %v", err)
	}

	for i := 0; i < 10; i++ {
		if signals[i] != 0 {
			t.Fatalf("in-range signal[%d] = %d, want 0", i, signals[i])
		}
	}
	if signals[10] != 1 {
		t.Fatalf("upside break signal = %d, want 1", signals[10])
	}
	if signals[11] != -1 {
		t.Fatalf("downside break signal = %d, want -1", signals[11])
	}
}

func TestBreakout_BufferSuppressesShallowBreaks(t *testing.T) {
	s := &BreakoutStrategy{}
	// A 10% buffer lifts the trigger to 115.5, above the 110 break bar.
	signals, err := s.GenerateSignals(breakoutCandles(), domain.Params{"lookback": 5, "buffer_bps": 1000})
	if err != nil {
		t.Fatalf("GenerateSignals: %v", err)
	}
	if signals[10] != 0 {
		t.Fatalf("buffered upside signal = %d, want 0", signals[10])
	}
}

func TestBreakout_BadParams(t *testing.T) {
	s := &BreakoutStrategy{}
	candles := breakoutCandles()

	for _, params := range []domain.Params{
		{"lookback": 1},
		{"lookback": 5, "buffer_bps": -10},
	} {
		if _, err := s.GenerateSignals(candles, params); !errors.Is(err, ErrBadParams) {
			t.Fatalf("params %v: got %v, want ErrBadParams", params, err)
		}
	}
}

func TestNoop_AlwaysFlat(t *testing.T) {
	s := &NoopStrategy{}
	signals, err := s.GenerateSignals(candlesFromCloses(rampCloses(10, 100, 5)), nil)
	if err != nil {
		t.Fatalf("GenerateSignals: %v", err)
	}
	for i, sig := range signals {
		if sig != 0 {
			t.Fatalf("signal[%d] = %d, want 0", i, sig)
		}
	}
}

func TestRegistry_GetAndResolve(t *testing.T) {
	r := NewRegistry()

	s, err := r.Get(IDEMACross)
	if err != nil || s.ID() != IDEMACross {
		t.Fatalf("Get(ema_cross) = %v, %v", s, err)
	}
	if _, err := r.Get("momentum_xl"); !errors.Is(err, ErrUnknownStrategy) {
		t.Fatalf("got %v, want ErrUnknownStrategy", err)
	}

	s, known := r.Resolve("momentum_xl")
	if known {
		t.Fatal("unknown id resolved as known")
	}
	if s.ID() != IDNoop {
		t.Fatalf("fallback = %s, want noop", s.ID())
	}

	wantIDs := []string{IDBreakout, IDEMACross, IDNoop, IDRSIMR}
	if got := r.IDs(); !reflect.DeepEqual(got, wantIDs) {
		t.Fatalf("IDs() = %v, want %v", got, wantIDs)
	}
}

func TestDefaultSeeds_UniqueAndResolvable(t *testing.T) {
	r := NewRegistry()
	seeds := DefaultSeeds()
	if len(seeds) != 9 {
		t.Fatalf("seed count = %d, want 9", len(seeds))
	}

	seen := make(map[string]struct{})
	for _, seed := range seeds {
		key := seed.StrategyID + "|" + seed.Params.Canonical()
		if _, dup := seen[key]; dup {
			t.Fatalf("duplicate seed %s", key)
		}
		seen[key] = struct{}{}

		if _, known := r.Resolve(seed.StrategyID); !known {
			t.Fatalf("seed references unknown strategy %s", seed.StrategyID)
		}
	}
}
