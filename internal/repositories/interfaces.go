package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/n0psw/lms-quiz-engine/internal/models"
)

// AttemptRepository stores finished quiz attempts. Attempts are
// append-only: there is no update, a retry creates a new row.
type AttemptRepository interface {
	Create(ctx context.Context, attempt *models.QuizAttempt) error
	// GetByStep returns attempts for a step, most recent first.
	GetByStep(ctx context.Context, stepID string) ([]*models.QuizAttempt, error)
	// GetLatestByStep returns the most recent attempt for a step.
	GetLatestByStep(ctx context.Context, stepID string) (*models.QuizAttempt, error)
}

// QuizRepository stores quiz content payloads per lesson step.
type QuizRepository interface {
	Upsert(ctx context.Context, content *models.QuizContent) error
	GetByStep(ctx context.Context, stepID string) (*models.QuizContent, error)
}

// Repository aggregates all repositories.
type Repository interface {
	Attempt() AttemptRepository
	Quiz() QuizRepository
}

// IsNotFoundError checks whether an error is a record-not-found from
// the storage layer.
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
