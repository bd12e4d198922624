package domain

import "testing"

func TestTierForWait(t *testing.T) {
	cases := []struct {
		waitSeconds float64
		want        StarvationTier
	}{
		{0, TierNone},
		{29.9, TierNone},
		{30, TierEarly},
		{44.9, TierEarly},
		{45, TierModerate},
		{59.9, TierModerate},
		{60, TierSevere},
		{89.9, TierSevere},
		{90, TierCritical},
		{500, TierCritical},
	}

	for _, c := range cases {
		if got := TierForWait(c.waitSeconds); got != c.want {
			t.Errorf("TierForWait(%v) = %v, want %v", c.waitSeconds, got, c.want)
		}
	}
}

func TestStarvationTier_Monotone(t *testing.T) {
	prev := TierNone
	for s := 0.0; s <= 120; s += 5 {
		tier := TierForWait(s)
		if tier < prev {
			t.Fatalf("tier regressed at wait=%v: %v < %v", s, tier, prev)
		}
		prev = tier
	}
}

func TestRequiresImmediateAssignment(t *testing.T) {
	if TierEarly.RequiresImmediateAssignment() {
		t.Error("early tier should not force assignment")
	}
	if !TierSevere.RequiresImmediateAssignment() {
		t.Error("severe tier must force assignment")
	}
	if !TierCritical.RequiresImmediateAssignment() {
		t.Error("critical tier must force assignment")
	}
}
