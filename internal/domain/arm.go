package domain

// ArmSeed identifies one candidate (strategy, parameter set) to register
// with the bandit before any learning starts.
type ArmSeed struct {
	StrategyID string
	Params     Params
}

// Arm is one bandit arm with its learned statistics. The identity of an
// arm is the (StrategyID, canonical Params) pair; it is unique across the
// registry.
type Arm struct {
	StrategyID  string
	Params      Params
	Pulls       int
	TotalReward float64
	MeanReward  float64
	LastUpdate  int64 // ms since epoch, zero until first update
}

// Key returns the arm's unique identity: strategy id plus canonical params.
func (a Arm) Key() string {
	return a.StrategyID + "|" + a.Params.Canonical()
}

// Clone returns an independent copy of the arm.
func (a Arm) Clone() Arm {
	out := a
	out.Params = a.Params.Clone()
	return out
}
