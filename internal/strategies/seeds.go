package strategies

import "github.com/esdrastrade/Market-Manus-sub002/internal/domain"

// DefaultSeeds returns the initial arm set the engine registers on
// startup: three parameterizations of each built-in strategy.
func DefaultSeeds() []domain.ArmSeed {
	return []domain.ArmSeed{
		{StrategyID: IDEMACross, Params: domain.Params{"fast": 9, "slow": 21}},
		{StrategyID: IDEMACross, Params: domain.Params{"fast": 12, "slow": 26}},
		{StrategyID: IDEMACross, Params: domain.Params{"fast": 20, "slow": 50}},

		{StrategyID: IDRSIMR, Params: domain.Params{"period": 14, "lo": 30, "hi": 70}},
		{StrategyID: IDRSIMR, Params: domain.Params{"period": 8, "lo": 25, "hi": 75}},
		{StrategyID: IDRSIMR, Params: domain.Params{"period": 21, "lo": 35, "hi": 65}},

		{StrategyID: IDBreakout, Params: domain.Params{"lookback": 20, "buffer_bps": 2}},
		{StrategyID: IDBreakout, Params: domain.Params{"lookback": 55, "buffer_bps": 3}},
		{StrategyID: IDBreakout, Params: domain.Params{"lookback": 10, "buffer_bps": 1}},
	}
}
