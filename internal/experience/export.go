package experience

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/esdrastrade/Market-Manus-sub002/internal/domain"
	"github.com/esdrastrade/Market-Manus-sub002/internal/storage"
)

// ErrUnsupportedFormat is returned by Export for unknown formats.
var ErrUnsupportedFormat = errors.New("unsupported export format")

// Export formats.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)

var csvHeader = []string{
	"trial_id", "timestamp_ms", "strategy_id", "params_json",
	"total_return", "sharpe", "max_drawdown", "win_rate", "turnover",
	"trade_count", "reward",
}

// exportRow is one flattened trial for JSON export.
type exportRow struct {
	TrialID     string  `json:"trial_id"`
	TimestampMs int64   `json:"timestamp_ms"`
	StrategyID  string  `json:"strategy_id"`
	ParamsJSON  string  `json:"params_json"`
	TotalReturn float64 `json:"total_return"`
	Sharpe      float64 `json:"sharpe"`
	MaxDrawdown float64 `json:"max_drawdown"`
	WinRate     float64 `json:"win_rate"`
	Turnover    float64 `json:"turnover"`
	TradeCount  int     `json:"trade_count"`
	Reward      float64 `json:"reward"`
}

// Export serializes the full current trial set, oldest first, to a flat
// file in ExportDir and returns its path. The live log is not mutated.
func (s *Store) Export(ctx context.Context, format string) (string, error) {
	trials, err := s.allOldestFirst(ctx)
	if err != nil {
		return "", err
	}

	dir := s.cfg.ExportDir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}

	stamp := time.Now().Format("20060102_150405")
	switch format {
	case FormatCSV:
		path := filepath.Join(dir, fmt.Sprintf("trials_export_%s.csv", stamp))
		if err := writeTrialsCSV(path, trials); err != nil {
			return "", err
		}
		return path, nil
	case FormatJSON:
		path := filepath.Join(dir, fmt.Sprintf("trials_export_%s.json", stamp))
		if err := writeTrialsJSON(path, trials); err != nil {
			return "", err
		}
		return path, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// allOldestFirst loads the full trial set in chronological append order.
func (s *Store) allOldestFirst(ctx context.Context) ([]*domain.Trial, error) {
	trials, err := s.store.Query(ctx, storage.TrialFilter{})
	if err != nil {
		return nil, fmt.Errorf("load trials: %w", err)
	}
	// Query returns most-recent-first.
	for i, j := 0, len(trials)-1; i < j; i, j = i+1, j-1 {
		trials[i], trials[j] = trials[j], trials[i]
	}
	return trials, nil
}

func writeTrialsCSV(path string, trials []*domain.Trial) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, t := range trials {
		record := []string{
			t.TrialID,
			strconv.FormatInt(t.TimestampMs, 10),
			t.StrategyID,
			t.Params.Canonical(),
			formatFloat(t.Metrics.TotalReturn),
			formatFloat(t.Metrics.Sharpe),
			formatFloat(t.Metrics.MaxDrawdown),
			formatFloat(t.Metrics.WinRate),
			formatFloat(t.Metrics.Turnover),
			strconv.Itoa(t.Metrics.TradeCount),
			formatFloat(t.Reward),
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return f.Close()
}

func writeTrialsJSON(path string, trials []*domain.Trial) error {
	rows := make([]exportRow, len(trials))
	for i, t := range trials {
		rows[i] = exportRow{
			TrialID:     t.TrialID,
			TimestampMs: t.TimestampMs,
			StrategyID:  t.StrategyID,
			ParamsJSON:  t.Params.Canonical(),
			TotalReturn: t.Metrics.TotalReturn,
			Sharpe:      t.Metrics.Sharpe,
			MaxDrawdown: t.Metrics.MaxDrawdown,
			WinRate:     t.Metrics.WinRate,
			Turnover:    t.Metrics.Turnover,
			TradeCount:  t.Metrics.TradeCount,
			Reward:      t.Reward,
		}
	}

	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal trials: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
