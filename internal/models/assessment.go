package models

import (
	"time"
)

// Assessment is authored content; the attempt service only reads it
type Assessment struct {
	ID               uint   `json:"id" gorm:"primaryKey"`
	Slug             string `json:"slug" gorm:"uniqueIndex;not null;size:120"`
	Name             string `json:"name" gorm:"not null;size:200"`
	PassScore        int    `json:"pass_score" gorm:"not null" validate:"min=0,max=100"`
	TotalQuestions   int    `json:"total_questions" gorm:"not null;default:0"` // questions sampled per attempt, <= 0 means the whole pool
	TimeLimitMinutes int    `json:"time_limit_minutes" gorm:"not null" validate:"min=1"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Questions []Question `json:"questions,omitempty" gorm:"foreignKey:AssessmentID"`
}

func (Assessment) TableName() string {
	return "assessments"
}

// TimeLimit returns the configured attempt duration
func (a *Assessment) TimeLimit() time.Duration {
	return time.Duration(a.TimeLimitMinutes) * time.Minute
}

// SampleSize returns how many questions one attempt should contain given a pool size
func (a *Assessment) SampleSize(poolSize int) int {
	if a.TotalQuestions <= 0 || a.TotalQuestions > poolSize {
		return poolSize
	}
	return a.TotalQuestions
}
