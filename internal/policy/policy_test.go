package policy_test

import (
	"testing"
	"time"

	"jobmate/matching-service/internal/policy"
)

func TestParseTier(t *testing.T) {
	cases := []struct {
		raw  string
		want policy.Tier
	}{
		{"free", policy.TierFree},
		{"standard", policy.TierStandard},
		{"enterprise", policy.TierEnterprise},
		{"", policy.TierFree},
		{"premium", policy.TierFree},
		{"Enterprise", policy.TierFree}, // tiers are stored lowercase
	}
	for _, tc := range cases {
		if got := policy.ParseTier(tc.raw); got != tc.want {
			t.Errorf("ParseTier(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestDefaultConfigWindows(t *testing.T) {
	cfg := policy.DefaultConfig()

	if cfg.CandidateStaleness != 24*time.Hour {
		t.Errorf("candidate staleness = %v, want 24h", cfg.CandidateStaleness)
	}

	windows := map[policy.Tier]time.Duration{
		policy.TierFree:       168 * time.Hour,
		policy.TierStandard:   24 * time.Hour,
		policy.TierEnterprise: time.Hour,
	}
	for tier, want := range windows {
		if got := cfg.IntervalFor(tier); got != want {
			t.Errorf("IntervalFor(%s) = %v, want %v", tier, got, want)
		}
	}
}

func TestIntervalFor_UnknownTierFallsBackToFree(t *testing.T) {
	cfg := policy.DefaultConfig()
	if got := cfg.IntervalFor(policy.Tier("platinum")); got != 168*time.Hour {
		t.Errorf("IntervalFor(platinum) = %v, want the free window", got)
	}
}

// A free-tier agency that generated two hours ago must wait out the rest of
// the week.
func TestNextAllowed(t *testing.T) {
	cfg := policy.DefaultConfig()
	last := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)

	next := cfg.NextAllowed(policy.TierFree, last)
	if want := last.Add(168 * time.Hour); !next.Equal(want) {
		t.Errorf("NextAllowed(free) = %v, want %v", next, want)
	}

	asOf := last.Add(2 * time.Hour)
	if !next.After(asOf) {
		t.Errorf("free tier should still be inside its window at %v", asOf)
	}

	if next := cfg.NextAllowed(policy.TierEnterprise, last); !next.Equal(last.Add(time.Hour)) {
		t.Errorf("NextAllowed(enterprise) = %v, want %v", next, last.Add(time.Hour))
	}
}
