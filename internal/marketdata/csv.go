// Package marketdata loads candle series from CSV files and generates
// deterministic synthetic series for demos and tests.
package marketdata

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/esdrastrade/Market-Manus-sub002/internal/domain"
)

// ErrBadCSV is returned when a candle file cannot be parsed.
var ErrBadCSV = errors.New("malformed candle csv")

// Expected header: timestamp_ms,open,high,low,close,volume.
var expectedHeader = []string{"timestamp_ms", "open", "high", "low", "close", "volume"}

// LoadCSV reads a candle series from path and validates it.
func LoadCSV(path string) ([]domain.Candle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open candles %s: %w", path, err)
	}
	defer f.Close()

	candles, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return candles, nil
}

// ReadCSV parses a candle series from r and validates it.
func ReadCSV(r io.Reader) ([]domain.Candle, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(expectedHeader)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: read header: %v", ErrBadCSV, err)
	}
	for i, col := range expectedHeader {
		if header[i] != col {
			return nil, fmt.Errorf("%w: header column %d is %q, want %q", ErrBadCSV, i, header[i], col)
		}
	}

	var candles []domain.Candle
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrBadCSV, line, err)
		}

		c, err := parseCandle(record)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrBadCSV, line, err)
		}
		candles = append(candles, c)
	}

	if err := domain.ValidateCandles(candles); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadCSV, err)
	}
	return candles, nil
}

func parseCandle(record []string) (domain.Candle, error) {
	ts, err := strconv.ParseInt(record[0], 10, 64)
	if err != nil {
		return domain.Candle{}, fmt.Errorf("timestamp_ms: %v", err)
	}

	fields := make([]float64, 5)
	for i, name := range expectedHeader[1:] {
		v, err := strconv.ParseFloat(record[i+1], 64)
		if err != nil {
			return domain.Candle{}, fmt.Errorf("%s: %v", name, err)
		}
		fields[i] = v
	}

	return domain.Candle{
		TimestampMs: ts,
		Open:        fields[0],
		High:        fields[1],
		Low:         fields[2],
		Close:       fields[3],
		Volume:      fields[4],
	}, nil
}
