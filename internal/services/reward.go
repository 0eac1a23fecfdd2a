package services

import "github.com/SAP-F-2025/attempt-service/internal/config"

// RewardPolicy holds the point amounts credited for a first completed attempt
type RewardPolicy struct {
	PassReward          int
	TierBonus90         int
	TierBonus80         int
	TierBonus70         int
	FirstCompletion     int
	ParticipationReward int
}

func NewRewardPolicy(cfg config.RewardConfig) RewardPolicy {
	return RewardPolicy{
		PassReward:          cfg.PassReward,
		TierBonus90:         cfg.TierBonus90,
		TierBonus80:         cfg.TierBonus80,
		TierBonus70:         cfg.TierBonus70,
		FirstCompletion:     cfg.FirstCompletion,
		ParticipationReward: cfg.ParticipationReward,
	}
}

func DefaultRewardPolicy() RewardPolicy {
	return RewardPolicy{
		PassReward:          50,
		TierBonus90:         30,
		TierBonus80:         20,
		TierBonus70:         10,
		FirstCompletion:     25,
		ParticipationReward: 10,
	}
}

// Compute returns the reward for a graded submission. Only a user's first
// completed attempt at an assessment earns anything.
func (p RewardPolicy) Compute(score int, passed bool, priorAttempts int64) int {
	if priorAttempts > 0 {
		return 0
	}
	if !passed {
		return p.ParticipationReward
	}

	reward := p.PassReward + p.tierBonus(score) + p.FirstCompletion
	return max(reward, 0)
}

// tierBonus picks the highest tier reached
func (p RewardPolicy) tierBonus(score int) int {
	switch {
	case score >= 90:
		return p.TierBonus90
	case score >= 80:
		return p.TierBonus80
	case score >= 70:
		return p.TierBonus70
	default:
		return 0
	}
}
