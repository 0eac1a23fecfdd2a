package models

import (
	"time"

	"gorm.io/datatypes"
)

type QuestionType string

const (
	SingleChoice   QuestionType = "SINGLE_CHOICE"
	MultipleChoice QuestionType = "MULTIPLE_CHOICE"
	TrueFalse      QuestionType = "TRUE_FALSE"
	CodeOutput     QuestionType = "CODE_OUTPUT"
	FillBlank      QuestionType = "FILL_BLANK"
)

// IsKnown reports whether the grader has a normalization rule for the type
func (t QuestionType) IsKnown() bool {
	switch t {
	case SingleChoice, MultipleChoice, TrueFalse, CodeOutput, FillBlank:
		return true
	}
	return false
}

// HasShuffledOptions reports whether option order is randomized per session
func (t QuestionType) HasShuffledOptions() bool {
	return t == SingleChoice || t == MultipleChoice
}

type Question struct {
	ID           uint         `json:"id" gorm:"primaryKey"`
	AssessmentID uint         `json:"assessment_id" gorm:"not null;index"`
	Type         QuestionType `json:"type" gorm:"not null;size:32"`
	Prompt       string       `json:"prompt" gorm:"type:text;not null"`
	Order        int          `json:"order" gorm:"default:0"`
	Points       int          `json:"points" gorm:"not null;default:1" validate:"min=0"`

	// Options keep their authored order; sessions store the presented permutation
	Options       datatypes.JSONSlice[string] `json:"options" gorm:"type:jsonb"`
	CorrectAnswer datatypes.JSON              `json:"correct_answer" gorm:"type:jsonb"` // string | []string | number

	Explanation *string   `json:"explanation" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Question) TableName() string {
	return "questions"
}
