// Package strategies implements the signal generators the bandit chooses
// between. Every generator maps a candle series and a parameter set to a
// per-bar signal in {-1, 0, 1}.
package strategies

import (
	"errors"
	"sort"

	"github.com/esdrastrade/Market-Manus-sub002/internal/domain"
)

// Strategy IDs.
const (
	IDEMACross = "ema_cross"
	IDRSIMR    = "rsi_mr"
	IDBreakout = "breakout"
	IDNoop     = "noop"
)

// Strategy errors.
var (
	ErrUnknownStrategy = errors.New("unknown strategy id")
	ErrBadParams       = errors.New("invalid strategy parameters")
)

// Strategy produces one trading signal per candle.
type Strategy interface {
	// ID returns the stable strategy identifier used in arm keys.
	ID() string

	// GenerateSignals returns len(candles) signals in {-1, 0, 1}.
	// Warmup bars before the indicators settle are 0.
	GenerateSignals(candles []domain.Candle, params domain.Params) ([]int, error)
}

// Registry resolves strategy ids to implementations.
type Registry struct {
	byID map[string]Strategy
	noop Strategy
}

// NewRegistry creates a Registry holding the built-in strategies.
func NewRegistry() *Registry {
	r := &Registry{
		byID: make(map[string]Strategy),
		noop: &NoopStrategy{},
	}
	for _, s := range []Strategy{
		&EMACrossStrategy{},
		&RSIMeanReversionStrategy{},
		&BreakoutStrategy{},
		r.noop.(*NoopStrategy),
	} {
		r.byID[s.ID()] = s
	}
	return r
}

// Get returns the strategy for id, or ErrUnknownStrategy.
func (r *Registry) Get(id string) (Strategy, error) {
	s, ok := r.byID[id]
	if !ok {
		return nil, ErrUnknownStrategy
	}
	return s, nil
}

// Resolve returns the strategy for id, falling back to the noop strategy
// for ids it does not know. The second return reports whether id was
// known.
func (r *Registry) Resolve(id string) (Strategy, bool) {
	if s, ok := r.byID[id]; ok {
		return s, true
	}
	return r.noop, false
}

// IDs returns the known strategy ids, sorted.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// NoopStrategy always stays flat. It backs unknown strategy ids so a
// misconfigured arm produces a recorded zero-effect trial instead of a
// crash.
type NoopStrategy struct{}

func (s *NoopStrategy) ID() string { return IDNoop }

func (s *NoopStrategy) GenerateSignals(candles []domain.Candle, _ domain.Params) ([]int, error) {
	return make([]int, len(candles)), nil
}

// Ensure implementations satisfy Strategy.
var (
	_ Strategy = (*NoopStrategy)(nil)
	_ Strategy = (*EMACrossStrategy)(nil)
	_ Strategy = (*RSIMeanReversionStrategy)(nil)
	_ Strategy = (*BreakoutStrategy)(nil)
)
