package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/attempt-service/internal/models"
	"github.com/SAP-F-2025/attempt-service/internal/repositories"
)

type SubscriptionPostgreSQL struct {
	db *gorm.DB
}

func NewSubscriptionPostgreSQL(db *gorm.DB) repositories.SubscriptionRepository {
	return &SubscriptionPostgreSQL{db: db}
}

func (s *SubscriptionPostgreSQL) GetActiveByUser(ctx context.Context, userID string, now time.Time) (*models.Subscription, error) {
	var sub models.Subscription
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, models.SubscriptionActive).
		Where("expires_at IS NULL OR expires_at > ?", now).
		Order("expires_at DESC NULLS FIRST").
		First(&sub).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", translateError(err))
	}
	return &sub, nil
}
