package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	EventSource  = "attempt-service"
	EventVersion = "1.0"
)

// Topics published by the attempt service
const (
	TopicAttemptStarted   = "attempt.started"
	TopicAttemptCompleted = "attempt.completed"
	TopicAttemptExpired   = "attempt.expired"
)

// Event is the envelope for every domain event
type Event struct {
	ID            string      `json:"id"`
	Type          string      `json:"type"`
	Source        string      `json:"source"`
	Version       string      `json:"version"`
	Timestamp     time.Time   `json:"timestamp"`
	CorrelationID string      `json:"correlation_id,omitempty"`
	Data          interface{} `json:"data"`
}

// NewEvent wraps data in an envelope with a fresh id
func NewEvent(eventType string, data interface{}) *Event {
	return &Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Source:    EventSource,
		Version:   EventVersion,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// EventPublisher publishes domain events; consumers live in other services
type EventPublisher interface {
	Publish(ctx context.Context, event *Event) error
	Close() error
}

// ===== PAYLOADS =====

type AttemptStartedEvent struct {
	SessionID      string    `json:"session_id"`
	UserID         string    `json:"user_id"`
	AssessmentID   uint      `json:"assessment_id"`
	AssessmentSlug string    `json:"assessment_slug"`
	QuestionCount  int       `json:"question_count"`
	StartedAt      time.Time `json:"started_at"`
	ExpiresAt      time.Time `json:"expires_at"`
}

type AttemptCompletedEvent struct {
	SessionID      string    `json:"session_id"`
	UserID         string    `json:"user_id"`
	AssessmentID   uint      `json:"assessment_id"`
	AssessmentSlug string    `json:"assessment_slug"`
	Score          int       `json:"score"`
	Passed         bool      `json:"passed"`
	CorrectCount   int       `json:"correct_count"`
	TotalQuestions int       `json:"total_questions"`
	RewardGranted  int       `json:"reward_granted"`
	FirstAttempt   bool      `json:"first_attempt"`
	CompletedAt    time.Time `json:"completed_at"`
}

type AttemptExpiredEvent struct {
	SessionID    string    `json:"session_id"`
	UserID       string    `json:"user_id"`
	AssessmentID uint      `json:"assessment_id"`
	ExpiresAt    time.Time `json:"expires_at"`
	ReportedAt   time.Time `json:"reported_at"`
}
