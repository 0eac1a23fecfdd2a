package services

import (
	"log/slog"
	"math"

	"github.com/SAP-F-2025/attempt-service/internal/models"
)

// NotAnswered is reported as the user answer for questions left blank
const NotAnswered = "Not answered"

// GradeInput is the locked question set joined with the submitted answers
type GradeInput struct {
	Questions    []*models.Question // session order
	Answers      map[uint]models.AnswerValue
	OptionOrders map[uint][]int // presented option permutation per question
	PassScore    int
}

type GradeResult struct {
	Results        []QuestionResult
	CorrectCount   int
	TotalQuestions int
	EarnedPoints   int
	TotalPoints    int
	Score          int
	Passed         bool
}

// Grader auto-grades every question type the normalizer understands
type Grader struct {
	logger *slog.Logger
}

func NewGrader(logger *slog.Logger) *Grader {
	return &Grader{logger: logger}
}

// Grade walks the questions in session order. It is pure apart from logging.
func (g *Grader) Grade(in GradeInput) *GradeResult {
	result := &GradeResult{
		Results:        make([]QuestionResult, 0, len(in.Questions)),
		TotalQuestions: len(in.Questions),
	}

	for _, question := range in.Questions {
		answer, answered := in.Answers[question.ID]
		row := g.GradeQuestion(question, answer, answered, in.OptionOrders[question.ID])

		result.TotalPoints += row.PointsPossible
		result.EarnedPoints += row.PointsEarned
		if row.Correct {
			result.CorrectCount++
		}
		result.Results = append(result.Results, row)
	}

	result.Score = CalculateScore(result.EarnedPoints, result.TotalPoints)
	result.Passed = result.Score >= in.PassScore

	return result
}

// GradeQuestion grades one question. The submitted answer resolves indices against the
// presented option order, the authored answer against the authored order.
func (g *Grader) GradeQuestion(question *models.Question, answer models.AnswerValue, answered bool, presentedOrder []int) QuestionResult {
	points := max(question.Points, 0)
	row := QuestionResult{
		QuestionID:     question.ID,
		Type:           question.Type,
		Explanation:    question.Explanation,
		PointsPossible: points,
	}

	authored := []string(question.Options)
	correct := Normalize(question.Type, authored, g.authoredAnswer(question))
	row.CorrectAnswer = correct.Display()

	if !question.Type.IsKnown() {
		g.logger.Warn("Unknown question type graded as incorrect",
			"question_id", question.ID,
			"type", question.Type)
	}

	if !answered || answer.IsNone() {
		row.UserAnswer = NotAnswered
		return row
	}

	presented := authored
	if question.Type.HasShuffledOptions() {
		presented = applyOrder(authored, presentedOrder)
	}
	submitted := Normalize(question.Type, presented, answer)
	if submitted.Kind == NormalizedEmpty {
		row.UserAnswer = NotAnswered
		return row
	}

	row.UserAnswer = submitted.Display()
	row.Correct = submitted.Equal(correct)
	if row.Correct {
		row.PointsEarned = points
	}
	return row
}

func (g *Grader) authoredAnswer(question *models.Question) models.AnswerValue {
	value, err := models.ParseAnswerValue(question.CorrectAnswer)
	if err != nil {
		g.logger.Error("Failed to parse authored answer",
			"question_id", question.ID,
			"error", err)
		return models.AnswerValue{}
	}
	return value
}

// CalculateScore converts points into a 0-100 score; no points means a score of 0
func CalculateScore(earned, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(earned) / float64(total)))
}
