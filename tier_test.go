package authcore

import "testing"

func TestTierMeets(t *testing.T) {
	cases := []struct {
		have, need Tier
		want       bool
	}{
		{TierPublic, TierPublic, true},
		{TierBase, TierPublic, true},
		{TierBase, TierBase, true},
		{TierBase, TierElevated, false},
		{TierBase, TierSuper, false},
		{TierElevated, TierBase, true},
		{TierElevated, TierElevated, true},
		{TierElevated, TierSuper, false},
		{TierSuper, TierBase, true},
		{TierSuper, TierSuper, true},
	}
	for _, tc := range cases {
		if got := tc.have.Meets(tc.need); got != tc.want {
			t.Errorf("%v.Meets(%v) = %v, want %v", tc.have, tc.need, got, tc.want)
		}
	}
}

func TestTierString(t *testing.T) {
	for tier, want := range map[Tier]string{
		TierPublic:   "public",
		TierBase:     "base",
		TierElevated: "elevated",
		TierSuper:    "super",
		Tier(99):     "unknown",
	} {
		if got := tier.String(); got != want {
			t.Errorf("Tier(%d).String() = %q, want %q", tier, got, want)
		}
	}
}
