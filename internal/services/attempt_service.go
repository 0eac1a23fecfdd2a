package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/SAP-F-2025/attempt-service/internal/events"
	"github.com/SAP-F-2025/attempt-service/internal/models"
	"github.com/SAP-F-2025/attempt-service/internal/repositories"
	"github.com/SAP-F-2025/attempt-service/internal/validator"
)

// DefaultGracePeriod absorbs network latency on the last submission of an attempt
const DefaultGracePeriod = 30 * time.Second

// AttemptServiceConfig holds the tunables of the attempt lifecycle
type AttemptServiceConfig struct {
	GracePeriod time.Duration
	Rewards     RewardPolicy
}

type attemptService struct {
	repo        repositories.Repository
	logger      *slog.Logger
	validator   *validator.Validator
	entitlement EntitlementService
	publisher   events.EventPublisher

	shuffler    *Shuffler
	grader      *Grader
	rewards     RewardPolicy
	gracePeriod time.Duration
	now         func() time.Time
}

func NewAttemptService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, entitlement EntitlementService, publisher events.EventPublisher, config AttemptServiceConfig) AttemptService {
	return newAttemptService(repo, logger, validator, entitlement, publisher, config)
}

func newAttemptService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, entitlement EntitlementService, publisher events.EventPublisher, config AttemptServiceConfig) *attemptService {
	grace := config.GracePeriod
	if grace <= 0 {
		grace = DefaultGracePeriod
	}
	return &attemptService{
		repo:        repo,
		logger:      logger,
		validator:   validator,
		entitlement: entitlement,
		publisher:   publisher,
		shuffler:    NewShuffler(),
		grader:      NewGrader(logger),
		rewards:     config.Rewards,
		gracePeriod: grace,
		now:         time.Now,
	}
}

// ===== CORE ATTEMPT OPERATIONS =====

func (s *attemptService) Start(ctx context.Context, req *StartAttemptRequest, callerID string) (*StartAttemptResponse, error) {
	s.logger.Info("Starting assessment attempt",
		"assessment_slug", req.AssessmentSlug,
		"user_id", req.UserID)

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	if err := s.authorize(ctx, req.UserID, callerID, req.AssessmentSlug, "start"); err != nil {
		return nil, err
	}

	assessment, err := s.getAssessment(ctx, req.AssessmentSlug)
	if err != nil {
		return nil, err
	}

	pool, err := s.repo.Question().GetPool(ctx, assessment.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get question pool: %w", err)
	}
	if len(pool) == 0 {
		return nil, ErrEmptyQuestionPool
	}

	// Sample the locked set from a shuffled pool
	selected := Shuffle(s.shuffler, pool)[:assessment.SampleSize(len(pool))]
	questions, orders := s.presentQuestions(selected)

	startedAt := s.now().UTC()
	session := &models.AttemptSession{
		ID:           uuid.NewString(),
		UserID:       req.UserID,
		AssessmentID: assessment.ID,
		StartedAt:    startedAt,
		ExpiresAt:    startedAt.Add(assessment.TimeLimit() + s.gracePeriod),
	}
	if err := session.SetLockedQuestionIDs(questionIDs(selected)); err != nil {
		return nil, fmt.Errorf("failed to encode locked questions: %w", err)
	}
	if err := session.SetOptionOrderMap(orders); err != nil {
		return nil, fmt.Errorf("failed to encode option orders: %w", err)
	}

	if err := s.repo.Session().Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create attempt session: %w", err)
	}

	s.logger.Info("Assessment attempt started successfully",
		"session_id", session.ID,
		"assessment_id", assessment.ID,
		"user_id", req.UserID,
		"question_count", len(questions))

	s.publish(ctx, events.NewEvent(events.TopicAttemptStarted, events.AttemptStartedEvent{
		SessionID:      session.ID,
		UserID:         session.UserID,
		AssessmentID:   assessment.ID,
		AssessmentSlug: assessment.Slug,
		QuestionCount:  len(questions),
		StartedAt:      session.StartedAt,
		ExpiresAt:      session.ExpiresAt,
	}))

	return &StartAttemptResponse{
		SessionID: session.ID,
		Assessment: AttemptAssessmentInfo{
			ID:               assessment.ID,
			Slug:             assessment.Slug,
			Name:             assessment.Name,
			TimeLimitMinutes: assessment.TimeLimitMinutes,
			PassScore:        assessment.PassScore,
			QuestionCount:    len(questions),
		},
		StartedAt: session.StartedAt,
		ExpiresAt: session.ExpiresAt,
		Questions: questions,
	}, nil
}

func (s *attemptService) Submit(ctx context.Context, req *SubmitAttemptRequest, callerID string) (*SubmitAttemptResponse, error) {
	s.logger.Info("Submitting assessment attempt",
		"session_id", req.SessionID,
		"assessment_slug", req.AssessmentSlug,
		"user_id", req.UserID)

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	if err := s.authorize(ctx, req.UserID, callerID, req.SessionID, "submit"); err != nil {
		return nil, err
	}

	assessment, err := s.getAssessment(ctx, req.AssessmentSlug)
	if err != nil {
		return nil, err
	}

	var (
		session  *models.AttemptSession
		record   *models.AttemptRecord
		graded   *GradeResult
		firstTry bool
	)

	// Every check and every write below shares one transaction; any error rolls it all back
	err = s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		now := s.now().UTC()

		var err error
		session, err = s.loadSubmittableSession(ctx, tx, req, assessment, now)
		if err != nil {
			return err
		}

		locked, err := session.LockedQuestionIDs()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrLockedQuestionsInvalid, err)
		}

		answers, err := resolveAnswerKeys(req.Answers, locked)
		if err != nil {
			return err
		}

		questions, err := s.loadLockedQuestions(ctx, tx, assessment.ID, locked)
		if err != nil {
			return err
		}

		orders, err := session.OptionOrderMap()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrLockedQuestionsInvalid, err)
		}

		prior, err := tx.Record().CountByUserAndAssessment(ctx, req.UserID, assessment.ID)
		if err != nil {
			return fmt.Errorf("failed to count previous attempts: %w", err)
		}
		firstTry = prior == 0

		graded = s.grader.Grade(GradeInput{
			Questions:    questions,
			Answers:      answers,
			OptionOrders: orders,
			PassScore:    assessment.PassScore,
		})
		reward := s.rewards.Compute(graded.Score, graded.Passed, prior)

		// Compare-and-set: exactly one concurrent submission sees a changed row
		affected, err := tx.Session().Consume(ctx, session.ID, req.UserID, now)
		if err != nil {
			return fmt.Errorf("failed to consume attempt session: %w", err)
		}
		if affected == 0 {
			return ErrAttemptAlreadySubmitted
		}

		reward, err = s.settleReward(ctx, tx, session, reward)
		if err != nil {
			return err
		}

		rawAnswers, err := json.Marshal(req.Answers)
		if err != nil {
			return fmt.Errorf("failed to encode answers: %w", err)
		}

		record = &models.AttemptRecord{
			UserID:         req.UserID,
			AssessmentID:   assessment.ID,
			SessionID:      session.ID,
			Score:          graded.Score,
			CorrectCount:   graded.CorrectCount,
			TotalQuestions: graded.TotalQuestions,
			EarnedPoints:   graded.EarnedPoints,
			TotalPoints:    graded.TotalPoints,
			TimeSpent:      clampTimeSpent(req.TimeSpent, session, now),
			Passed:         graded.Passed,
			RewardGranted:  reward,
			Answers:        rawAnswers,
			CompletedAt:    now,
		}
		if err := tx.Record().Create(ctx, record); err != nil {
			return fmt.Errorf("failed to create attempt record: %w", err)
		}

		return nil
	})
	if err != nil {
		s.logger.Warn("Attempt submission rejected",
			"session_id", req.SessionID,
			"user_id", req.UserID,
			"error", err)
		return nil, err
	}

	s.logger.Info("Assessment attempt submitted successfully",
		"session_id", session.ID,
		"record_id", record.ID,
		"score", record.Score,
		"passed", record.Passed,
		"reward", record.RewardGranted)

	s.publish(ctx, events.NewEvent(events.TopicAttemptCompleted, events.AttemptCompletedEvent{
		SessionID:      session.ID,
		UserID:         record.UserID,
		AssessmentID:   assessment.ID,
		AssessmentSlug: assessment.Slug,
		Score:          record.Score,
		Passed:         record.Passed,
		CorrectCount:   record.CorrectCount,
		TotalQuestions: record.TotalQuestions,
		RewardGranted:  record.RewardGranted,
		FirstAttempt:   firstTry,
		CompletedAt:    record.CompletedAt,
	}))

	return &SubmitAttemptResponse{
		SessionID:      session.ID,
		AssessmentID:   assessment.ID,
		Score:          record.Score,
		Passed:         record.Passed,
		CorrectCount:   record.CorrectCount,
		TotalQuestions: record.TotalQuestions,
		EarnedPoints:   record.EarnedPoints,
		TotalPoints:    record.TotalPoints,
		RewardGranted:  record.RewardGranted,
		TimeSpent:      record.TimeSpent,
		CompletedAt:    record.CompletedAt,
		Results:        graded.Results,
	}, nil
}

// ===== QUERIES =====

func (s *attemptService) GetHistory(ctx context.Context, userID string, filters repositories.RecordFilters) (*AttemptHistoryResponse, error) {
	filters = normalizeRecordFilters(filters)

	records, total, err := s.repo.Record().ListByUser(ctx, userID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempt records: %w", err)
	}

	items := make([]AttemptHistoryItem, 0, len(records))
	for _, record := range records {
		items = append(items, toHistoryItem(record))
	}

	return &AttemptHistoryResponse{
		Records: items,
		Total:   total,
		Limit:   filters.Limit,
		Offset:  filters.Offset,
		HasMore: int64(filters.Offset+len(items)) < total,
	}, nil
}

func (s *attemptService) GetPointsBalance(ctx context.Context, userID string) (*PointsBalanceResponse, error) {
	points, err := s.repo.Reward().GetBalance(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get points balance: %w", err)
	}

	return &PointsBalanceResponse{UserID: userID, Points: points}, nil
}
