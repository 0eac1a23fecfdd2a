package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/attempt-service/internal/models"
	"github.com/SAP-F-2025/attempt-service/internal/repositories"
)

// ===== SESSIONS =====

type AttemptSessionPostgreSQL struct {
	db *gorm.DB
}

func NewAttemptSessionPostgreSQL(db *gorm.DB) repositories.AttemptSessionRepository {
	return &AttemptSessionPostgreSQL{db: db}
}

func (s *AttemptSessionPostgreSQL) Create(ctx context.Context, session *models.AttemptSession) error {
	if err := s.db.WithContext(ctx).Create(session).Error; err != nil {
		return fmt.Errorf("failed to create attempt session: %w", translateError(err))
	}
	return nil
}

// GetByID reads the session without caching; Used must always be fresh
func (s *AttemptSessionPostgreSQL) GetByID(ctx context.Context, id string) (*models.AttemptSession, error) {
	var session models.AttemptSession
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&session).Error; err != nil {
		return nil, fmt.Errorf("failed to get attempt session: %w", translateError(err))
	}
	return &session, nil
}

// Consume is the compare-and-set that makes a session single use:
// UPDATE attempt_sessions SET used = true WHERE id = ? AND user_id = ? AND used = false
func (s *AttemptSessionPostgreSQL) Consume(ctx context.Context, id, userID string, usedAt time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Model(&models.AttemptSession{}).
		Where("id = ? AND user_id = ? AND used = ?", id, userID, false).
		Updates(map[string]interface{}{
			"used":    true,
			"used_at": usedAt,
		})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to consume attempt session: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (s *AttemptSessionPostgreSQL) ListExpiredUnreported(ctx context.Context, now time.Time, limit int) ([]*models.AttemptSession, error) {
	var sessions []*models.AttemptSession
	if err := s.db.WithContext(ctx).
		Where("used = ? AND expiry_reported_at IS NULL AND expires_at < ?", false, now).
		Order("expires_at ASC").
		Limit(limit).
		Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("failed to list expired sessions: %w", err)
	}
	return sessions, nil
}

// MarkExpiryReported sets the audit marker once; false when another sweeper or a submit got there first
func (s *AttemptSessionPostgreSQL) MarkExpiryReported(ctx context.Context, id string, reportedAt time.Time) (bool, error) {
	result := s.db.WithContext(ctx).
		Model(&models.AttemptSession{}).
		Where("id = ? AND used = ? AND expiry_reported_at IS NULL", id, false).
		Update("expiry_reported_at", reportedAt)
	if result.Error != nil {
		return false, fmt.Errorf("failed to mark session expiry: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

// ===== RECORDS =====

type AttemptRecordPostgreSQL struct {
	db *gorm.DB
}

func NewAttemptRecordPostgreSQL(db *gorm.DB) repositories.AttemptRecordRepository {
	return &AttemptRecordPostgreSQL{db: db}
}

func (r *AttemptRecordPostgreSQL) Create(ctx context.Context, record *models.AttemptRecord) error {
	if err := r.db.WithContext(ctx).Omit("Assessment").Create(record).Error; err != nil {
		return fmt.Errorf("failed to create attempt record: %w", translateError(err))
	}
	return nil
}

func (r *AttemptRecordPostgreSQL) CountByUserAndAssessment(ctx context.Context, userID string, assessmentID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.AttemptRecord{}).
		Where("user_id = ? AND assessment_id = ?", userID, assessmentID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count attempt records: %w", err)
	}
	return count, nil
}

func (r *AttemptRecordPostgreSQL) ListByUser(ctx context.Context, userID string, filters repositories.RecordFilters) ([]*models.AttemptRecord, int64, error) {
	var records []*models.AttemptRecord
	var total int64

	// apply filter first
	query := r.db.WithContext(ctx).Model(&models.AttemptRecord{}).Where("user_id = ?", userID)
	query = applyRecordFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count attempt records: %w", err)
	}

	// then apply pagination and sorting
	query = applyRecordPaginationAndSort(query, filters)

	if err := query.Preload("Assessment").Find(&records).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list attempt records: %w", err)
	}

	return records, total, nil
}
