package repositories

import (
	"context"
	"time"

	"github.com/SAP-F-2025/attempt-service/internal/models"
)

// ===== SHARED FILTER STRUCTS =====

type RecordFilters struct {
	AssessmentID *uint      `json:"assessment_id"`
	Passed       *bool      `json:"passed"`
	DateFrom     *time.Time `json:"date_from"`
	DateTo       *time.Time `json:"date_to"`
	Limit        int        `json:"limit"`
	Offset       int        `json:"offset"`
	SortBy       string     `json:"sort_by"`    // "completed_at", "score"
	SortOrder    string     `json:"sort_order"` // "asc", "desc"
}

// ===== ATTEMPT LIFECYCLE =====

type AttemptSessionRepository interface {
	Create(ctx context.Context, session *models.AttemptSession) error
	GetByID(ctx context.Context, id string) (*models.AttemptSession, error)

	// Consume flips used false -> true for the owner; returns the number of rows changed (0 or 1)
	Consume(ctx context.Context, id, userID string, usedAt time.Time) (int64, error)

	// Expiry housekeeping
	ListExpiredUnreported(ctx context.Context, now time.Time, limit int) ([]*models.AttemptSession, error)
	MarkExpiryReported(ctx context.Context, id string, reportedAt time.Time) (bool, error)
}

type AttemptRecordRepository interface {
	Create(ctx context.Context, record *models.AttemptRecord) error
	CountByUserAndAssessment(ctx context.Context, userID string, assessmentID uint) (int64, error)
	ListByUser(ctx context.Context, userID string, filters RecordFilters) ([]*models.AttemptRecord, int64, error)
}

// ===== REWARDS AND ENTITLEMENT =====

type RewardRepository interface {
	// ClaimFirstCompletion records the grant; false when the user was already paid for the assessment
	ClaimFirstCompletion(ctx context.Context, grant *models.RewardGrant) (bool, error)
	IncrementPoints(ctx context.Context, userID string, amount int) error
	GetBalance(ctx context.Context, userID string) (int64, error)
}

type SubscriptionRepository interface {
	GetActiveByUser(ctx context.Context, userID string, now time.Time) (*models.Subscription, error)
}
