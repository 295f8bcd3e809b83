// Package attempts implements the attempt persistence protocol: one
// immutable record per finished quiz run, with the most recent attempt
// restored on step reload.
package attempts

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/n0psw/lms-quiz-engine/internal/events"
	"github.com/n0psw/lms-quiz-engine/internal/models"
	"github.com/n0psw/lms-quiz-engine/internal/repositories"
	"github.com/n0psw/lms-quiz-engine/internal/scoring"
)

// SaveRequest carries the identifiers an attempt is recorded under.
type SaveRequest struct {
	StepID         string
	CourseID       string
	LessonID       string
	UserID         string
	ElapsedSeconds int
}

type Service struct {
	repo      repositories.AttemptRepository
	publisher events.EventPublisher
	logger    *slog.Logger

	now func() time.Time
}

func NewService(repo repositories.AttemptRepository, publisher events.EventPublisher, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// SaveAttempt grades the answer state, serializes it and persists a new
// attempt row. The score is computed here, at the moment of saving; the
// row is immutable afterwards.
func (s *Service) SaveAttempt(ctx context.Context, quiz *models.Quiz, req SaveRequest, st *models.AnswerState) (*models.QuizAttempt, error) {
	stats, err := scoring.Aggregate(quiz, st)
	if err != nil {
		return nil, fmt.Errorf("failed to grade attempt: %w", err)
	}

	encoded, err := EncodeAnswers(quiz, st)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize answers: %w", err)
	}

	attempt := &models.QuizAttempt{
		StepID:           req.StepID,
		CourseID:         req.CourseID,
		LessonID:         req.LessonID,
		UserID:           req.UserID,
		QuizTitle:        quiz.Title,
		TotalQuestions:   len(quiz.Questions),
		CorrectAnswers:   stats.CorrectUnits(),
		ScorePercentage:  stats.Score(),
		Answers:          encoded,
		TimeSpentSeconds: req.ElapsedSeconds,
		CompletedAt:      s.now(),
	}

	if err := s.repo.Create(ctx, attempt); err != nil {
		return nil, fmt.Errorf("failed to persist attempt: %w", err)
	}

	s.logger.Info("Quiz attempt saved",
		"step_id", req.StepID,
		"score", attempt.ScorePercentage,
		"correct", attempt.CorrectAnswers)

	s.publishCompleted(ctx, attempt, stats)

	return attempt, nil
}

// LoadLatestAttempt fetches the most recent attempt for a step and
// deserializes its answers against the current quiz. No attempt, or a
// corrupt stored one, both come back as (nil, nil, nil): the caller
// proceeds with fresh state either way.
func (s *Service) LoadLatestAttempt(ctx context.Context, stepID string, quiz *models.Quiz) (*models.QuizAttempt, *models.AnswerState, error) {
	attempt, err := s.repo.GetLatestByStep(ctx, stepID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("failed to load latest attempt: %w", err)
	}

	st, err := DecodeAnswers(quiz, attempt.Answers)
	if err != nil {
		// Corrupt record: never surfaced to the learner.
		s.logger.Error("Failed to decode stored attempt answers, treating as no prior attempt",
			"step_id", stepID,
			"attempt_id", attempt.ID,
			"error", err)
		return nil, nil, nil
	}

	return attempt, st, nil
}

// ListAttempts returns a step's attempts, most recent first.
func (s *Service) ListAttempts(ctx context.Context, stepID string) ([]*models.QuizAttempt, error) {
	return s.repo.GetByStep(ctx, stepID)
}

func (s *Service) publishCompleted(ctx context.Context, attempt *models.QuizAttempt, stats scoring.Statistics) {
	if s.publisher == nil {
		return
	}

	event := events.NewQuizEvent(events.EventAttemptCompleted, events.AttemptCompletedEvent{
		StepID:           attempt.StepID,
		CourseID:         attempt.CourseID,
		LessonID:         attempt.LessonID,
		UserID:           attempt.UserID,
		QuizTitle:        attempt.QuizTitle,
		TotalQuestions:   attempt.TotalQuestions,
		CorrectAnswers:   attempt.CorrectAnswers,
		ScorePercentage:  attempt.ScorePercentage,
		Passed:           stats.Passed(),
		TimeSpentSeconds: attempt.TimeSpentSeconds,
	})

	if err := s.publisher.PublishQuizEvent(ctx, event); err != nil {
		s.logger.Error("Failed to publish attempt completed event",
			"step_id", attempt.StepID,
			"error", err)
	}
}
