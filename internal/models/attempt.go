package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"gorm.io/datatypes"
)

type SessionStatus string

const (
	SessionCreated SessionStatus = "created"
	SessionUsed    SessionStatus = "used"
)

// AttemptSession is the capability issued on start; its ID is the only token a client holds.
// Rows are never deleted. Used flips false -> true exactly once.
type AttemptSession struct {
	ID           string `json:"id" gorm:"primaryKey;size:36"`
	UserID       string `json:"user_id" gorm:"not null;index;size:255"`
	AssessmentID uint   `json:"assessment_id" gorm:"not null;index"`

	// Locked question set in presentation order
	QuestionIDs datatypes.JSON `json:"question_ids" gorm:"type:jsonb;not null"`
	// Presented option permutation per question id
	OptionOrders datatypes.JSON `json:"option_orders" gorm:"type:jsonb"`

	StartedAt time.Time  `json:"started_at" gorm:"not null"`
	ExpiresAt time.Time  `json:"expires_at" gorm:"not null;index"`
	Used      bool       `json:"used" gorm:"not null;default:false;index"`
	UsedAt    *time.Time `json:"used_at"`

	// Set once by the expiry sweeper; audit only
	ExpiryReportedAt *time.Time `json:"expiry_reported_at"`

	CreatedAt time.Time `json:"created_at"`
}

func (AttemptSession) TableName() string {
	return "attempt_sessions"
}

// Status reports the lifecycle state of the session
func (s *AttemptSession) Status() SessionStatus {
	if s.Used {
		return SessionUsed
	}
	return SessionCreated
}

// IsExpired reports whether the session can no longer be submitted at the given instant
func (s *AttemptSession) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// AllowedDuration is the widest time span a submission may report
func (s *AttemptSession) AllowedDuration() time.Duration {
	return s.ExpiresAt.Sub(s.StartedAt)
}

// LockedQuestionIDs decodes the locked set
func (s *AttemptSession) LockedQuestionIDs() ([]uint, error) {
	if len(s.QuestionIDs) == 0 {
		return nil, fmt.Errorf("session has no locked questions")
	}
	var ids []uint
	if err := json.Unmarshal(s.QuestionIDs, &ids); err != nil {
		return nil, fmt.Errorf("decode locked questions: %w", err)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("session has no locked questions")
	}
	seen := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("duplicate locked question %d", id)
		}
		seen[id] = struct{}{}
	}
	return ids, nil
}

// SetLockedQuestionIDs encodes the locked set
func (s *AttemptSession) SetLockedQuestionIDs(ids []uint) error {
	data, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	s.QuestionIDs = datatypes.JSON(data)
	return nil
}

// OptionOrderMap decodes the presented option permutations keyed by question id
func (s *AttemptSession) OptionOrderMap() (map[uint][]int, error) {
	out := make(map[uint][]int)
	if len(s.OptionOrders) == 0 {
		return out, nil
	}
	var raw map[string][]int
	if err := json.Unmarshal(s.OptionOrders, &raw); err != nil {
		return nil, fmt.Errorf("decode option orders: %w", err)
	}
	for key, order := range raw {
		id, err := strconv.ParseUint(key, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("decode option orders: bad question id %q", key)
		}
		out[uint(id)] = order
	}
	return out, nil
}

// SetOptionOrderMap encodes the presented option permutations
func (s *AttemptSession) SetOptionOrderMap(orders map[uint][]int) error {
	raw := make(map[string][]int, len(orders))
	for id, order := range orders {
		raw[strconv.FormatUint(uint64(id), 10)] = order
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	s.OptionOrders = datatypes.JSON(data)
	return nil
}

// AttemptRecord is the immutable result of a successful submission
type AttemptRecord struct {
	ID           uint   `json:"id" gorm:"primaryKey"`
	UserID       string `json:"user_id" gorm:"not null;index:idx_attempt_records_user_assessment;size:255"`
	AssessmentID uint   `json:"assessment_id" gorm:"not null;index:idx_attempt_records_user_assessment"`
	SessionID    string `json:"session_id" gorm:"not null;index;size:36"`

	Score          int  `json:"score"` // 0-100
	CorrectCount   int  `json:"correct_count"`
	TotalQuestions int  `json:"total_questions"`
	EarnedPoints   int  `json:"earned_points"`
	TotalPoints    int  `json:"total_points"`
	TimeSpent      int  `json:"time_spent"` // seconds
	Passed         bool `json:"passed"`
	RewardGranted  int  `json:"reward_granted"`

	Answers datatypes.JSON `json:"answers" gorm:"type:jsonb"`

	CompletedAt time.Time `json:"completed_at" gorm:"not null;index"`

	// Relations
	Assessment *Assessment `json:"assessment,omitempty" gorm:"foreignKey:AssessmentID"`
}

func (AttemptRecord) TableName() string {
	return "attempt_records"
}
