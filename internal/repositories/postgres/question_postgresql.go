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

type QuestionPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewQuestionPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.QuestionRepository {
	return &QuestionPostgreSQL{
		db:           db,
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

// GetPool returns the full question pool of an assessment, cached per assessment
func (q *QuestionPostgreSQL) GetPool(ctx context.Context, assessmentID uint) ([]*models.Question, error) {
	cacheKey := fmt.Sprintf("pool:%d", assessmentID)
	var pool []*models.Question

	err := q.cacheManager.Question.CacheOrExecute(ctx, cacheKey, &pool, cache.QuestionCacheConfig.TTL, func() (interface{}, error) {
		var questions []*models.Question
		if err := q.db.WithContext(ctx).
			Where("assessment_id = ?", assessmentID).
			Order("\"order\" ASC, id ASC").
			Find(&questions).Error; err != nil {
			return nil, err
		}
		return questions, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get question pool: %w", err)
	}

	return pool, nil
}

// GetByIDs loads the locked questions of a session straight from the database
func (q *QuestionPostgreSQL) GetByIDs(ctx context.Context, assessmentID uint, ids []uint) ([]*models.Question, error) {
	if len(ids) == 0 {
		return []*models.Question{}, nil
	}

	var questions []*models.Question
	if err := q.db.WithContext(ctx).
		Where("assessment_id = ? AND id IN ?", assessmentID, ids).
		Find(&questions).Error; err != nil {
		return nil, fmt.Errorf("failed to get questions: %w", err)
	}
	return questions, nil
}
