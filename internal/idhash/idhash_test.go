package idhash

import "testing"

func TestComputeTrialID_DeterministicAndDistinct(t *testing.T) {
	a := ComputeTrialID("ema_cross", `{"fast":9,"slow":21}`, 1700000000000, 1)
	b := ComputeTrialID("ema_cross", `{"fast":9,"slow":21}`, 1700000000000, 1)
	if a != b {
		t.Fatal("same inputs must hash equal")
	}
	if len(a) != 64 {
		t.Fatalf("len = %d, want 64 hex chars", len(a))
	}

	if a == ComputeTrialID("ema_cross", `{"fast":9,"slow":21}`, 1700000000000, 2) {
		t.Fatal("seq must change the id")
	}
	if a == ComputeTrialID("ema_cross", `{"fast":9,"slow":21}`, 1700000000001, 1) {
		t.Fatal("timestamp must change the id")
	}
	if a == ComputeTrialID("rsi_mr", `{"fast":9,"slow":21}`, 1700000000000, 1) {
		t.Fatal("strategy must change the id")
	}
}

func TestComputeArmKey_CanonicalParamsHashEqual(t *testing.T) {
	a := ComputeArmKey("ema_cross", `{"fast":9,"slow":21}`)
	if a != ComputeArmKey("ema_cross", `{"fast":9,"slow":21}`) {
		t.Fatal("same identity must hash equal")
	}
	if len(a) != 64 {
		t.Fatalf("len = %d, want 64 hex chars", len(a))
	}
	if a == ComputeArmKey("ema_cross", `{"fast":12,"slow":26}`) {
		t.Fatal("different params must hash apart")
	}
}
