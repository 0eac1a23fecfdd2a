package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SAP-F-2025/attempt-service/internal/models"
	"github.com/SAP-F-2025/attempt-service/internal/repositories"
)

type RewardPostgreSQL struct {
	db *gorm.DB
}

func NewRewardPostgreSQL(db *gorm.DB) repositories.RewardRepository {
	return &RewardPostgreSQL{db: db}
}

// ClaimFirstCompletion inserts the grant unless one exists for (user_id, assessment_id)
func (r *RewardPostgreSQL) ClaimFirstCompletion(ctx context.Context, grant *models.RewardGrant) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "assessment_id"}},
			DoNothing: true,
		}).
		Create(grant)
	if result.Error != nil {
		return false, fmt.Errorf("failed to claim reward grant: %w", translateError(result.Error))
	}
	return result.RowsAffected == 1, nil
}

// IncrementPoints adds amount to the user's counter, creating it on first credit
func (r *RewardPostgreSQL) IncrementPoints(ctx context.Context, userID string, amount int) error {
	if amount <= 0 {
		return fmt.Errorf("reward amount must be positive, got %d", amount)
	}

	now := time.Now().UTC()
	row := models.UserPoints{
		UserID:    userID,
		Points:    int64(amount),
		UpdatedAt: now,
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"points":     gorm.Expr("user_points.points + ?", amount),
				"updated_at": now,
			}),
		}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to increment points: %w", err)
	}
	return nil
}

func (r *RewardPostgreSQL) GetBalance(ctx context.Context, userID string) (int64, error) {
	var row models.UserPoints
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get points balance: %w", err)
	}
	return row.Points, nil
}
