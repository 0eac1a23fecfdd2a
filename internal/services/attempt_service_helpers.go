package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/SAP-F-2025/attempt-service/internal/events"
	"github.com/SAP-F-2025/attempt-service/internal/models"
	"github.com/SAP-F-2025/attempt-service/internal/repositories"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// ===== AUTHORIZATION =====

// authorize checks the caller acts for the claimed user and that the user is entitled
func (s *attemptService) authorize(ctx context.Context, claimedUserID, callerID string, resourceID interface{}, action string) error {
	if callerID == "" || claimedUserID != callerID {
		return NewPermissionError(callerID, resourceID, "attempt", action, "sign in with the account that owns this attempt")
	}

	entitled, err := s.entitlement.CanTakeAssessments(ctx, claimedUserID)
	if err != nil {
		return fmt.Errorf("failed to check entitlement: %w", err)
	}
	if !entitled {
		return ErrNotEntitled
	}

	return nil
}

func (s *attemptService) getAssessment(ctx context.Context, slug string) (*models.Assessment, error) {
	assessment, err := s.repo.Assessment().GetBySlug(ctx, slug)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAssessmentNotFound
		}
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}
	return assessment, nil
}

// ===== SESSION ISSUANCE =====

// presentQuestions strips answers and shuffles choice options, returning the permutation per question
func (s *attemptService) presentQuestions(selected []*models.Question) ([]AttemptQuestion, map[uint][]int) {
	questions := make([]AttemptQuestion, 0, len(selected))
	orders := make(map[uint][]int)

	for _, question := range selected {
		options := []string(question.Options)
		if question.Type.HasShuffledOptions() && len(options) > 1 {
			order := s.shuffler.Permutation(len(options))
			orders[question.ID] = order
			options = applyOrder(options, order)
		}
		if options == nil {
			options = []string{}
		}

		questions = append(questions, AttemptQuestion{
			ID:      question.ID,
			Type:    question.Type,
			Prompt:  question.Prompt,
			Options: options,
			Points:  question.Points,
		})
	}

	return questions, orders
}

func questionIDs(questions []*models.Question) []uint {
	ids := make([]uint, len(questions))
	for i, question := range questions {
		ids[i] = question.ID
	}
	return ids
}

// ===== SUBMISSION =====

// loadSubmittableSession returns the session only if this request may still consume it
func (s *attemptService) loadSubmittableSession(ctx context.Context, tx repositories.Repository, req *SubmitAttemptRequest, assessment *models.Assessment, now time.Time) (*models.AttemptSession, error) {
	session, err := tx.Session().GetByID(ctx, req.SessionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get attempt session: %w", err)
	}

	if session.UserID != req.UserID {
		return nil, ErrSessionOwnerMismatch
	}
	if session.AssessmentID != assessment.ID {
		return nil, ErrSessionAssessmentMismatch
	}
	if session.Used {
		return nil, ErrAttemptAlreadySubmitted
	}
	if session.IsExpired(now) {
		return nil, ErrSessionExpired
	}

	return session, nil
}

// resolveAnswerKeys parses answer keys and rejects any question outside the locked set
func resolveAnswerKeys(raw map[string]models.AnswerValue, locked []uint) (map[uint]models.AnswerValue, error) {
	allowed := make(map[uint]struct{}, len(locked))
	for _, id := range locked {
		allowed[id] = struct{}{}
	}

	answers := make(map[uint]models.AnswerValue, len(raw))
	for key, value := range raw {
		id, err := strconv.ParseUint(key, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid question id %q", ErrAnswerOutsideLockedSet, key)
		}
		if _, ok := allowed[uint(id)]; !ok {
			return nil, fmt.Errorf("%w: question %d", ErrAnswerOutsideLockedSet, id)
		}
		answers[uint(id)] = value
	}

	return answers, nil
}

// loadLockedQuestions fetches the locked questions in session order
func (s *attemptService) loadLockedQuestions(ctx context.Context, tx repositories.Repository, assessmentID uint, locked []uint) ([]*models.Question, error) {
	found, err := tx.Question().GetByIDs(ctx, assessmentID, locked)
	if err != nil {
		return nil, fmt.Errorf("failed to get locked questions: %w", err)
	}

	byID := make(map[uint]*models.Question, len(found))
	for _, question := range found {
		byID[question.ID] = question
	}

	questions := make([]*models.Question, 0, len(locked))
	for _, id := range locked {
		question, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: question %d no longer exists", ErrLockedQuestionsInvalid, id)
		}
		questions = append(questions, question)
	}

	return questions, nil
}

// settleReward pays a positive reward once per user and assessment; it returns what was actually paid
func (s *attemptService) settleReward(ctx context.Context, tx repositories.Repository, session *models.AttemptSession, reward int) (int, error) {
	if reward <= 0 {
		return 0, nil
	}

	claimed, err := tx.Reward().ClaimFirstCompletion(ctx, &models.RewardGrant{
		UserID:       session.UserID,
		AssessmentID: session.AssessmentID,
		SessionID:    session.ID,
		Amount:       reward,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to claim reward: %w", err)
	}
	if !claimed {
		s.logger.Info("Reward already granted by another attempt",
			"session_id", session.ID,
			"user_id", session.UserID,
			"assessment_id", session.AssessmentID)
		return 0, nil
	}

	if err := tx.Reward().IncrementPoints(ctx, session.UserID, reward); err != nil {
		return 0, fmt.Errorf("failed to increment points: %w", err)
	}

	return reward, nil
}

// clampTimeSpent bounds the elapsed seconds to [0, expiresAt-startedAt]
func clampTimeSpent(reported *int, session *models.AttemptSession, now time.Time) int {
	spent := int(now.Sub(session.StartedAt) / time.Second)
	if reported != nil {
		spent = *reported
	}

	limit := max(int(session.AllowedDuration()/time.Second), 0)
	return min(max(spent, 0), limit)
}

// publish is best effort; the attempt is already committed
func (s *attemptService) publish(ctx context.Context, event *events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("Failed to publish event",
			"event_type", event.Type,
			"event_id", event.ID,
			"error", err)
	}
}

// ===== HISTORY =====

func normalizeRecordFilters(filters repositories.RecordFilters) repositories.RecordFilters {
	if filters.Limit <= 0 {
		filters.Limit = defaultHistoryLimit
	}
	if filters.Limit > maxHistoryLimit {
		filters.Limit = maxHistoryLimit
	}
	if filters.Offset < 0 {
		filters.Offset = 0
	}
	return filters
}

func toHistoryItem(record *models.AttemptRecord) AttemptHistoryItem {
	item := AttemptHistoryItem{
		ID:             record.ID,
		SessionID:      record.SessionID,
		AssessmentID:   record.AssessmentID,
		Score:          record.Score,
		Passed:         record.Passed,
		CorrectCount:   record.CorrectCount,
		TotalQuestions: record.TotalQuestions,
		RewardGranted:  record.RewardGranted,
		TimeSpent:      record.TimeSpent,
		CompletedAt:    record.CompletedAt,
	}
	if record.Assessment != nil {
		item.AssessmentSlug = record.Assessment.Slug
		item.AssessmentName = record.Assessment.Name
	}
	return item
}
