package idhash

import (
	"crypto/sha256"
	"encoding/hex"
)

// ComputeArmKey computes a deterministic key for an arm identity.
// Formula: SHA256(strategy_id|canonical_params)
// Returns hex-encoded hash (64 characters). Because the params encoding is
// canonical, semantically identical configurations always hash equal.
func ComputeArmKey(strategyID, canonicalParams string) string {
	hash := sha256.Sum256([]byte(strategyID + "|" + canonicalParams))
	return hex.EncodeToString(hash[:])
}
