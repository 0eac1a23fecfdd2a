package services

import (
	"testing"

	"github.com/SAP-F-2025/attempt-service/internal/config"
)

func TestRewardPolicy_Compute(t *testing.T) {
	policy := DefaultRewardPolicy()

	tests := []struct {
		name   string
		score  int
		passed bool
		prior  int64
		want   int
	}{
		{name: "perfect first attempt", score: 100, passed: true, want: 50 + 30 + 25},
		{name: "tier 90 boundary", score: 90, passed: true, want: 50 + 30 + 25},
		{name: "tier 80", score: 85, passed: true, want: 50 + 20 + 25},
		{name: "tier 70", score: 70, passed: true, want: 50 + 10 + 25},
		{name: "passed below tiers", score: 60, passed: true, want: 50 + 25},
		{name: "failed first attempt earns participation", score: 40, passed: false, want: 10},
		{name: "failed with high score earns participation only", score: 92, passed: false, want: 10},
		{name: "retake at 100 earns nothing", score: 100, passed: true, prior: 1, want: 0},
		{name: "failed retake earns nothing", score: 10, passed: false, prior: 3, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := policy.Compute(tt.score, tt.passed, tt.prior); got != tt.want {
				t.Errorf("Compute(%d, %v, %d) = %d, want %d", tt.score, tt.passed, tt.prior, got, tt.want)
			}
		})
	}
}

func TestNewRewardPolicy_FromConfig(t *testing.T) {
	policy := NewRewardPolicy(config.RewardConfig{
		PassReward:          100,
		TierBonus90:         3,
		TierBonus80:         2,
		TierBonus70:         1,
		FirstCompletion:     0,
		ParticipationReward: 0,
	})

	if got := policy.Compute(95, true, 0); got != 103 {
		t.Errorf("got %d, want 103", got)
	}
	if got := policy.Compute(20, false, 0); got != 0 {
		t.Errorf("participation disabled, got %d", got)
	}
}
