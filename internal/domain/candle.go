package domain

import "fmt"

// Candle is one OHLCV bar supplied by the market-data layer.
type Candle struct {
	TimestampMs int64   // bar open time (ms since epoch)
	Open        float64
	High        float64
	Low         float64
	Close       float64
	Volume      float64
}

// Validate checks OHLC consistency: low <= open,close <= high.
func (c Candle) Validate() error {
	if c.Low > c.Open || c.Low > c.Close || c.High < c.Open || c.High < c.Close {
		return fmt.Errorf("candle at %d violates low <= open,close <= high (o=%g h=%g l=%g c=%g)",
			c.TimestampMs, c.Open, c.High, c.Low, c.Close)
	}
	return nil
}

// ValidateCandles checks every bar in a batch and that timestamps
// are strictly increasing. Irregular spacing is tolerated.
func ValidateCandles(candles []Candle) error {
	for i, c := range candles {
		if err := c.Validate(); err != nil {
			return err
		}
		if i > 0 && c.TimestampMs <= candles[i-1].TimestampMs {
			return fmt.Errorf("candle timestamps not strictly increasing at index %d", i)
		}
	}
	return nil
}

// Closes extracts the close series from a candle batch.
func Closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

// Highs extracts the high series from a candle batch.
func Highs(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.High
	}
	return out
}

// Lows extracts the low series from a candle batch.
func Lows(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Low
	}
	return out
}
