package services

import (
	"errors"

	apperrors "github.com/n0psw/lms-quiz-engine/internal/errors"
)

var (
	ErrQuizNotFound     = errors.New("quiz not found for step")
	ErrQuizInvalid      = errors.New("quiz contains invalid questions")
	ErrValidationFailed = errors.New("validation failed")
)

// Use shared validation errors from errors package
type ValidationError = apperrors.ValidationError
type ValidationErrors = apperrors.ValidationErrors

// NewValidationError creates a new validation error using the shared type
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return apperrors.NewValidationError(field, message, value)
}
