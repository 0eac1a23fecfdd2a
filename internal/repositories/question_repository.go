package repositories

import (
	"context"

	"github.com/SAP-F-2025/attempt-service/internal/models"
)

// AssessmentRepository resolves authored assessments
type AssessmentRepository interface {
	GetBySlug(ctx context.Context, slug string) (*models.Assessment, error)
	GetByID(ctx context.Context, id uint) (*models.Assessment, error)
	GetByIDs(ctx context.Context, ids []uint) ([]*models.Assessment, error)
}

// QuestionRepository is the question pool accessor
type QuestionRepository interface {
	// GetPool returns every question of the assessment in authored order
	GetPool(ctx context.Context, assessmentID uint) ([]*models.Question, error)

	// GetByIDs returns the requested questions of the assessment; missing ids are simply absent
	GetByIDs(ctx context.Context, assessmentID uint, ids []uint) ([]*models.Question, error)
}
