package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/n0psw/lms-quiz-engine/internal/cache"
	"github.com/n0psw/lms-quiz-engine/internal/events"
	"github.com/n0psw/lms-quiz-engine/internal/gaps"
	"github.com/n0psw/lms-quiz-engine/internal/models"
	"github.com/n0psw/lms-quiz-engine/internal/repositories"
	"github.com/n0psw/lms-quiz-engine/internal/validator"
)

const quizCacheTTL = 10 * time.Minute

// QuizService manages the quiz content stored on lesson steps.
type QuizService interface {
	GetQuiz(ctx context.Context, stepID string) (*models.Quiz, error)
	SaveQuiz(ctx context.Context, stepID, courseID, lessonID string, quiz *models.Quiz) (map[string]validator.ValidationResult, error)
	ValidateQuiz(quiz *models.Quiz) map[string]validator.ValidationResult
}

type quizService struct {
	repo      repositories.QuizRepository
	cache     cache.CacheService
	publisher events.EventPublisher
	validator *validator.QuestionValidator
	logger    *slog.Logger
}

func NewQuizService(repo repositories.QuizRepository, cacheService cache.CacheService, publisher events.EventPublisher, logger *slog.Logger) QuizService {
	return &quizService{
		repo:      repo,
		cache:     cacheService,
		publisher: publisher,
		validator: validator.NewQuestionValidator(),
		logger:    logger,
	}
}

func quizCacheKey(stepID string) string {
	return fmt.Sprintf("quiz:step:%s", stepID)
}

// GetQuiz loads a step's quiz, cache first.
func (s *quizService) GetQuiz(ctx context.Context, stepID string) (*models.Quiz, error) {
	if s.cache != nil {
		var cached models.Quiz
		err := s.cache.Get(ctx, quizCacheKey(stepID), &cached)
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn("Quiz cache read failed, falling back to database",
				"step_id", stepID,
				"error", err)
		}
	}

	content, err := s.repo.GetByStep(ctx, stepID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to load quiz for step %s: %w", stepID, err)
	}

	var quiz models.Quiz
	if err := json.Unmarshal(content.Content, &quiz); err != nil {
		return nil, fmt.Errorf("failed to decode quiz for step %s: %w", stepID, err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, quizCacheKey(stepID), &quiz, quizCacheTTL); err != nil {
			s.logger.Warn("Quiz cache write failed", "step_id", stepID, "error", err)
		}
	}

	return &quiz, nil
}

// SaveQuiz validates every question, refreshes the cached gap answers
// from the passage text and upserts the step's content. Invalid
// questions block the save; the per-question results are returned
// either way so an editor can render them.
func (s *quizService) SaveQuiz(ctx context.Context, stepID, courseID, lessonID string, quiz *models.Quiz) (map[string]validator.ValidationResult, error) {
	results := s.validator.ValidateQuiz(quiz)
	for _, r := range results {
		if !r.IsValid {
			return results, ErrQuizInvalid
		}
	}

	// The passage text is the source of truth for gap answers; the
	// cached list is recomputed on every save so exports and editors
	// never see a stale copy.
	for i := range quiz.Questions {
		q := &quiz.Questions[i]
		if q.IsGapped() {
			q.GapAnswers = gaps.ExtractAnswers(q.ContentText, q.GapSeparator())
		}
	}

	encoded, err := json.Marshal(quiz)
	if err != nil {
		return results, fmt.Errorf("failed to encode quiz: %w", err)
	}

	content := &models.QuizContent{
		StepID:   stepID,
		CourseID: courseID,
		LessonID: lessonID,
		Content:  encoded,
	}
	if err := s.repo.Upsert(ctx, content); err != nil {
		return results, fmt.Errorf("failed to save quiz for step %s: %w", stepID, err)
	}

	if s.cache != nil {
		if err := s.cache.Delete(ctx, quizCacheKey(stepID)); err != nil {
			s.logger.Warn("Quiz cache invalidation failed", "step_id", stepID, "error", err)
		}
	}

	s.publishUpdated(ctx, stepID, quiz)

	s.logger.Info("Quiz saved",
		"step_id", stepID,
		"questions", len(quiz.Questions))

	return results, nil
}

// ValidateQuiz runs editor validation without saving anything.
func (s *quizService) ValidateQuiz(quiz *models.Quiz) map[string]validator.ValidationResult {
	return s.validator.ValidateQuiz(quiz)
}

func (s *quizService) publishUpdated(ctx context.Context, stepID string, quiz *models.Quiz) {
	if s.publisher == nil {
		return
	}

	event := events.NewQuizEvent(events.EventQuizUpdated, events.QuizUpdatedEvent{
		StepID:        stepID,
		QuizTitle:     quiz.Title,
		QuestionCount: len(quiz.Questions),
	})
	if err := s.publisher.PublishQuizEvent(ctx, event); err != nil {
		s.logger.Error("Failed to publish quiz updated event",
			"step_id", stepID,
			"error", err)
	}
}
