package validator

import (
	"reflect"
	"regexp"
	"strconv"

	"github.com/go-playground/validator/v10"
)

const (
	maxSlugLength  = 120
	MaxAnswerCount = 500
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

func (v *Validator) registerAttemptRules() {
	// Assessment slugs as used in URLs
	v.validate.RegisterValidation("assessment_slug", func(fl validator.FieldLevel) bool {
		slug := fl.Field().String()
		return len(slug) <= maxSlugLength && slugPattern.MatchString(slug)
	})

	// Answer maps are keyed by positive integer question ids and bounded in size
	v.validate.RegisterValidation("answer_map", func(fl validator.FieldLevel) bool {
		field := fl.Field()
		if field.Kind() != reflect.Map {
			return false
		}
		if field.Len() > MaxAnswerCount {
			return false
		}
		for _, key := range field.MapKeys() {
			if key.Kind() != reflect.String {
				return false
			}
			id, err := strconv.ParseUint(key.String(), 10, 64)
			if err != nil || id == 0 {
				return false
			}
		}
		return true
	})
}
