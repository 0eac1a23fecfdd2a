package services

import (
	"math"
	"slices"
	"strings"

	"github.com/SAP-F-2025/attempt-service/internal/models"
)

type NormalizedKind int

const (
	NormalizedEmpty  NormalizedKind = iota // nothing usable was given
	NormalizedText                         // a single canonical string
	NormalizedSet                          // strings sorted case-insensitively
	NormalizedOpaque                       // unknown question type, kept as submitted
)

// NormalizedAnswer is the canonical form two answers are compared in
type NormalizedAnswer struct {
	Kind  NormalizedKind
	Text  string
	Items []string
	raw   models.AnswerValue
}

// defaultTrueFalseOptions backs index answers for TRUE_FALSE questions authored without options
var defaultTrueFalseOptions = []string{"True", "False"}

// Normalize projects a raw answer onto its canonical form for the question type.
// options must be in the order the answer's indices refer to.
func Normalize(qType models.QuestionType, options []string, value models.AnswerValue) NormalizedAnswer {
	if !qType.IsKnown() {
		return NormalizedAnswer{Kind: NormalizedOpaque, raw: value}
	}
	if value.IsNone() {
		return NormalizedAnswer{Kind: NormalizedEmpty}
	}

	switch qType {
	case models.SingleChoice, models.TrueFalse:
		if qType == models.TrueFalse && len(options) == 0 {
			options = defaultTrueFalseOptions
		}
		return textAnswer(normalizeChoice(options, value))
	case models.MultipleChoice:
		return normalizeChoiceSet(options, value)
	default:
		return textAnswer(stringify(value))
	}
}

func textAnswer(s string) NormalizedAnswer {
	if s == "" {
		return NormalizedAnswer{Kind: NormalizedEmpty}
	}
	return NormalizedAnswer{Kind: NormalizedText, Text: s}
}

func normalizeChoice(options []string, value models.AnswerValue) string {
	if value.Kind() != models.AnswerList {
		return resolveOption(options, value)
	}

	items := value.Items()
	switch len(items) {
	case 0:
		return ""
	case 1:
		return resolveOption(options, items[0])
	default:
		// several picks on a single-answer question can never match one option
		resolved := make([]string, len(items))
		for i, item := range items {
			resolved[i] = resolveOption(options, item)
		}
		return strings.Join(resolved, ",")
	}
}

func normalizeChoiceSet(options []string, value models.AnswerValue) NormalizedAnswer {
	items := value.Items()
	if value.Kind() != models.AnswerList {
		items = []models.AnswerValue{value}
	}

	// every submitted element is kept so the length check sees repeats and blanks
	set := make([]string, len(items))
	blank := 0
	for i, item := range items {
		set[i] = resolveOption(options, item)
		if set[i] == "" {
			blank++
		}
	}
	if blank == len(set) {
		return NormalizedAnswer{Kind: NormalizedEmpty}
	}

	slices.SortStableFunc(set, func(a, b string) int {
		return strings.Compare(strings.ToLower(a), strings.ToLower(b))
	})
	return NormalizedAnswer{Kind: NormalizedSet, Items: set}
}

// resolveOption maps a JSON number that is a valid index onto the option text.
// Strings are never treated as indices.
func resolveOption(options []string, value models.AnswerValue) string {
	if value.Kind() == models.AnswerNumber {
		n := value.Number()
		if n == math.Trunc(n) && n >= 0 && n < float64(len(options)) {
			return strings.TrimSpace(options[int(n)])
		}
	}
	return strings.TrimSpace(value.String())
}

func stringify(value models.AnswerValue) string {
	if value.Kind() != models.AnswerList {
		return strings.TrimSpace(value.String())
	}
	parts := make([]string, len(value.Items()))
	for i, item := range value.Items() {
		parts[i] = strings.TrimSpace(item.String())
	}
	return strings.TrimSpace(strings.Join(parts, ","))
}

// Equal compares two canonical answers; empty and opaque answers never match
func (a NormalizedAnswer) Equal(b NormalizedAnswer) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case NormalizedText:
		return strings.EqualFold(a.Text, b.Text)
	case NormalizedSet:
		if len(a.Items) != len(b.Items) {
			return false
		}
		for i := range a.Items {
			if !strings.EqualFold(a.Items[i], b.Items[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Value turns the canonical form back into an answer value, so it can be normalized again
func (a NormalizedAnswer) Value() models.AnswerValue {
	switch a.Kind {
	case NormalizedText:
		return models.TextAnswer(a.Text)
	case NormalizedSet:
		items := make([]models.AnswerValue, len(a.Items))
		for i, item := range a.Items {
			items[i] = models.TextAnswer(item)
		}
		return models.ListAnswer(items...)
	case NormalizedOpaque:
		return a.raw
	default:
		return models.AnswerValue{}
	}
}

// Display is the JSON-friendly rendering used in result rows
func (a NormalizedAnswer) Display() interface{} {
	switch a.Kind {
	case NormalizedText:
		return a.Text
	case NormalizedSet:
		return a.Items
	case NormalizedOpaque:
		if a.raw.IsNone() {
			return nil
		}
		return a.raw
	default:
		return nil
	}
}
