package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeTrialID computes a deterministic trial_id using SHA256.
// Formula: SHA256(strategy_id|canonical_params|timestamp_ms|seq)
// Returns hex-encoded hash (64 characters).
func ComputeTrialID(strategyID, canonicalParams string, timestampMs int64, seq uint64) string {
	data := fmt.Sprintf("%s|%s|%d|%d", strategyID, canonicalParams, timestampMs, seq)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
