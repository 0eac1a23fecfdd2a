package services

import (
	"context"
	"time"

	"github.com/SAP-F-2025/attempt-service/internal/models"
	"github.com/SAP-F-2025/attempt-service/internal/repositories"
)

// ===== REQUEST DTOs =====

type StartAttemptRequest struct {
	AssessmentSlug string `json:"assessment_slug" validate:"required,assessment_slug"`
	UserID         string `json:"user_id" validate:"required,max=255"`
}

type SubmitAttemptRequest struct {
	SessionID      string                        `json:"session_id" validate:"required,max=64"`
	AssessmentSlug string                        `json:"assessment_slug" validate:"required,assessment_slug"`
	UserID         string                        `json:"user_id" validate:"required,max=255"`
	Answers        map[string]models.AnswerValue `json:"answers" validate:"answer_map"`
	TimeSpent      *int                          `json:"time_spent,omitempty"` // seconds, client reported
}

// ===== RESPONSE DTOs =====

type AttemptAssessmentInfo struct {
	ID               uint   `json:"id"`
	Slug             string `json:"slug"`
	Name             string `json:"name"`
	TimeLimitMinutes int    `json:"time_limit_minutes"`
	PassScore        int    `json:"pass_score"`
	QuestionCount    int    `json:"question_count"`
}

// AttemptQuestion is a question as shown to the learner; it never carries the answer
type AttemptQuestion struct {
	ID      uint                `json:"id"`
	Type    models.QuestionType `json:"type"`
	Prompt  string              `json:"prompt"`
	Options []string            `json:"options"`
	Points  int                 `json:"points"`
}

type StartAttemptResponse struct {
	SessionID  string                `json:"session_id"`
	Assessment AttemptAssessmentInfo `json:"assessment"`
	StartedAt  time.Time             `json:"started_at"`
	ExpiresAt  time.Time             `json:"expires_at"`
	Questions  []AttemptQuestion     `json:"questions"`
}

// QuestionResult is the per-question feedback row returned after grading
type QuestionResult struct {
	QuestionID     uint                `json:"question_id"`
	Type           models.QuestionType `json:"type"`
	Correct        bool                `json:"correct"`
	UserAnswer     interface{}         `json:"user_answer"`
	CorrectAnswer  interface{}         `json:"correct_answer"`
	Explanation    *string             `json:"explanation,omitempty"`
	PointsEarned   int                 `json:"points_earned"`
	PointsPossible int                 `json:"points_possible"`
}

type SubmitAttemptResponse struct {
	SessionID      string           `json:"session_id"`
	AssessmentID   uint             `json:"assessment_id"`
	Score          int              `json:"score"`
	Passed         bool             `json:"passed"`
	CorrectCount   int              `json:"correct_count"`
	TotalQuestions int              `json:"total_questions"`
	EarnedPoints   int              `json:"earned_points"`
	TotalPoints    int              `json:"total_points"`
	RewardGranted  int              `json:"reward_granted"`
	TimeSpent      int              `json:"time_spent"`
	CompletedAt    time.Time        `json:"completed_at"`
	Results        []QuestionResult `json:"results"`
}

type AttemptHistoryItem struct {
	ID             uint      `json:"id"`
	SessionID      string    `json:"session_id"`
	AssessmentID   uint      `json:"assessment_id"`
	AssessmentSlug string    `json:"assessment_slug,omitempty"`
	AssessmentName string    `json:"assessment_name,omitempty"`
	Score          int       `json:"score"`
	Passed         bool      `json:"passed"`
	CorrectCount   int       `json:"correct_count"`
	TotalQuestions int       `json:"total_questions"`
	RewardGranted  int       `json:"reward_granted"`
	TimeSpent      int       `json:"time_spent"`
	CompletedAt    time.Time `json:"completed_at"`
}

type AttemptHistoryResponse struct {
	Records []AttemptHistoryItem `json:"records"`
	Total   int64                `json:"total"`
	Limit   int                  `json:"limit"`
	Offset  int                  `json:"offset"`
	HasMore bool                 `json:"has_more"`
}

type PointsBalanceResponse struct {
	UserID string `json:"user_id"`
	Points int64  `json:"points"`
}

// ===== SERVICE INTERFACES =====

type AttemptService interface {
	// Start issues a new attempt session for the caller
	Start(ctx context.Context, req *StartAttemptRequest, callerID string) (*StartAttemptResponse, error)

	// Submit grades a session exactly once and settles the reward
	Submit(ctx context.Context, req *SubmitAttemptRequest, callerID string) (*SubmitAttemptResponse, error)

	GetHistory(ctx context.Context, userID string, filters repositories.RecordFilters) (*AttemptHistoryResponse, error)
	GetPointsBalance(ctx context.Context, userID string) (*PointsBalanceResponse, error)
}

// EntitlementService answers whether a user may take assessments at all
type EntitlementService interface {
	CanTakeAssessments(ctx context.Context, userID string) (bool, error)
}

type ExportService interface {
	// ExportHistory renders the user's attempt history as an xlsx workbook
	ExportHistory(ctx context.Context, userID string, filters repositories.RecordFilters) ([]byte, error)
}

// ServiceManager owns service construction and background jobs
type ServiceManager interface {
	Attempt() AttemptService
	Entitlement() EntitlementService
	Export() ExportService

	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
