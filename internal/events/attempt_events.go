package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventAttemptCompleted EventType = "quiz.attempt.completed"
	EventQuizUpdated      EventType = "quiz.content.updated"
)

const (
	eventSource  = "quiz-engine"
	eventVersion = "1.0"
)

// QuizEvent is the envelope every published event travels in.
type QuizEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Source    string    `json:"source"`
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// AttemptCompletedEvent is emitted once per terminal completion of a
// quiz run. Navigation gating downstream uses Passed, not the raw
// score.
type AttemptCompletedEvent struct {
	StepID           string  `json:"step_id"`
	CourseID         string  `json:"course_id,omitempty"`
	LessonID         string  `json:"lesson_id,omitempty"`
	UserID           string  `json:"user_id,omitempty"`
	QuizTitle        string  `json:"quiz_title"`
	TotalQuestions   int     `json:"total_questions"`
	CorrectAnswers   int     `json:"correct_answers"`
	ScorePercentage  float64 `json:"score_percentage"`
	Passed           bool    `json:"passed"`
	TimeSpentSeconds int     `json:"time_spent_seconds"`
}

// QuizUpdatedEvent is emitted when a step's quiz content changes.
type QuizUpdatedEvent struct {
	StepID        string `json:"step_id"`
	QuizTitle     string `json:"quiz_title"`
	QuestionCount int    `json:"question_count"`
}

// NewQuizEvent wraps payload data in the standard envelope.
func NewQuizEvent(eventType EventType, data any) *QuizEvent {
	return &QuizEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    eventSource,
		Version:   eventVersion,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}
