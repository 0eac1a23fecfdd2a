package models

import "time"

type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
	SubscriptionExpired   SubscriptionStatus = "expired"
)

// Subscription is written by billing; this service only reads it for entitlement
type Subscription struct {
	ID        uint               `json:"id" gorm:"primaryKey"`
	UserID    string             `json:"user_id" gorm:"not null;index;size:255"`
	Plan      string             `json:"plan" gorm:"not null;size:50"`
	Status    SubscriptionStatus `json:"status" gorm:"not null;size:20;index"`
	ExpiresAt *time.Time         `json:"expires_at"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

func (Subscription) TableName() string {
	return "subscriptions"
}

// IsActiveAt reports whether the subscription grants access at the given instant
func (s *Subscription) IsActiveAt(now time.Time) bool {
	if s.Status != SubscriptionActive {
		return false
	}
	return s.ExpiresAt == nil || now.Before(*s.ExpiresAt)
}
