package services

import (
	"errors"
	"fmt"

	"github.com/SAP-F-2025/attempt-service/internal/validator"
)

// Error categories; handlers map them onto HTTP status codes
var (
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
	ErrBadRequest = errors.New("bad request")
	ErrConflict   = errors.New("conflict")
)

// AttemptError is a user-facing failure with a fixed category
type AttemptError struct {
	Kind    error
	Message string
}

func (e *AttemptError) Error() string {
	return e.Message
}

func (e *AttemptError) Unwrap() error {
	return e.Kind
}

func newAttemptError(kind error, message string) *AttemptError {
	return &AttemptError{Kind: kind, Message: message}
}

var (
	// NotFound
	ErrAssessmentNotFound = newAttemptError(ErrNotFound, "assessment not found")
	ErrEmptyQuestionPool  = newAttemptError(ErrNotFound, "assessment has no questions")

	// Forbidden
	ErrNotEntitled = newAttemptError(ErrForbidden, "an active subscription is required to take assessments")

	// BadRequest
	ErrSessionNotFound           = newAttemptError(ErrBadRequest, "attempt session not found, restart the assessment")
	ErrSessionOwnerMismatch      = newAttemptError(ErrBadRequest, "attempt session does not belong to this user, restart the assessment")
	ErrSessionAssessmentMismatch = newAttemptError(ErrBadRequest, "attempt session belongs to another assessment, restart the assessment")
	ErrSessionExpired            = newAttemptError(ErrBadRequest, "attempt session has expired, restart the assessment")
	ErrLockedQuestionsInvalid    = newAttemptError(ErrBadRequest, "attempt session question set is invalid, restart the assessment")
	ErrAnswerOutsideLockedSet    = newAttemptError(ErrBadRequest, "answers reference questions outside this attempt")

	// Conflict
	ErrAttemptAlreadySubmitted = newAttemptError(ErrConflict, "this attempt has already been submitted")
)

// PermissionError is returned when the caller is not allowed to act for the claimed user
type PermissionError struct {
	UserID     string
	ResourceID interface{}
	Resource   string
	Action     string
	Reason     string
}

func NewPermissionError(userID string, resourceID interface{}, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("user %s cannot %s %s %v: %s", e.UserID, e.Action, e.Resource, e.ResourceID, e.Reason)
}

func (e *PermissionError) Unwrap() error {
	return ErrForbidden
}

// ValidationErrors is re-exported so handlers only depend on this package
type ValidationErrors = validator.ValidationErrors

// IsValidationError reports whether err came from request validation
func IsValidationError(err error) bool {
	var ve ValidationErrors
	return errors.As(err, &ve)
}
