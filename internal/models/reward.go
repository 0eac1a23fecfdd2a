package models

import "time"

// UserPoints is the per-user reward counter; it only grows
type UserPoints struct {
	UserID    string    `json:"user_id" gorm:"primaryKey;size:255"`
	Points    int64     `json:"points" gorm:"not null;default:0"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (UserPoints) TableName() string {
	return "user_points"
}

// RewardGrant marks that a user's first completion of an assessment has been paid
type RewardGrant struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	UserID       string    `json:"user_id" gorm:"not null;size:255;uniqueIndex:uq_reward_grants_user_assessment"`
	AssessmentID uint      `json:"assessment_id" gorm:"not null;uniqueIndex:uq_reward_grants_user_assessment"`
	SessionID    string    `json:"session_id" gorm:"not null;size:36"`
	Amount       int       `json:"amount" gorm:"not null"`
	CreatedAt    time.Time `json:"created_at"`
}

func (RewardGrant) TableName() string {
	return "reward_grants"
}
