package postgres

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/attempt-service/internal/cache"
	"github.com/SAP-F-2025/attempt-service/internal/models"
	"github.com/SAP-F-2025/attempt-service/internal/repositories"
)

type AssessmentPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewAssessmentPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.AssessmentRepository {
	return &AssessmentPostgreSQL{
		db:           db,
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

// GetBySlug retrieves an assessment by its public slug with caching
func (a *AssessmentPostgreSQL) GetBySlug(ctx context.Context, slug string) (*models.Assessment, error) {
	cacheKey := fmt.Sprintf("slug:%s", slug)
	var assessment models.Assessment

	err := a.cacheManager.Assessment.CacheOrExecute(ctx, cacheKey, &assessment, cache.AssessmentCacheConfig.TTL, func() (interface{}, error) {
		var dbAssessment models.Assessment
		if err := a.db.WithContext(ctx).Where("slug = ?", slug).First(&dbAssessment).Error; err != nil {
			return nil, translateError(err)
		}
		return &dbAssessment, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}

	return &assessment, nil
}

// GetByID retrieves an assessment by ID with caching
func (a *AssessmentPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Assessment, error) {
	cacheKey := fmt.Sprintf("id:%d", id)
	var assessment models.Assessment

	err := a.cacheManager.Assessment.CacheOrExecute(ctx, cacheKey, &assessment, cache.AssessmentCacheConfig.TTL, func() (interface{}, error) {
		var dbAssessment models.Assessment
		if err := a.db.WithContext(ctx).First(&dbAssessment, id).Error; err != nil {
			return nil, translateError(err)
		}
		return &dbAssessment, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}

	return &assessment, nil
}

// GetByIDs retrieves several assessments in one query (used for history rendering)
func (a *AssessmentPostgreSQL) GetByIDs(ctx context.Context, ids []uint) ([]*models.Assessment, error) {
	if len(ids) == 0 {
		return []*models.Assessment{}, nil
	}

	var assessments []*models.Assessment
	if err := a.db.WithContext(ctx).Where("id IN ?", ids).Find(&assessments).Error; err != nil {
		return nil, fmt.Errorf("failed to get assessments: %w", err)
	}
	return assessments, nil
}
