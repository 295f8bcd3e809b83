package models

import (
	"time"

	"gorm.io/datatypes"
)

// QuizAttempt is one finished run of a quiz by a learner. It is written
// exactly once when a run reaches the completed state and never updated;
// a retry produces a new row. Answers are stored as an ordered list of
// [question_id, value] pairs serialized to JSON (see attempts package).
type QuizAttempt struct {
	ID uint `json:"id" gorm:"primaryKey"`

	StepID   string `json:"step_id" gorm:"not null;size:64;index"`
	CourseID string `json:"course_id" gorm:"size:64"`
	LessonID string `json:"lesson_id" gorm:"size:64"`
	UserID   string `json:"user_id" gorm:"size:255;index"`

	QuizTitle       string  `json:"quiz_title" gorm:"size:200"`
	TotalQuestions  int     `json:"total_questions" gorm:"not null"`
	CorrectAnswers  int     `json:"correct_answers" gorm:"not null"`
	ScorePercentage float64 `json:"score_percentage" gorm:"not null"`

	Answers datatypes.JSON `json:"answers" gorm:"type:jsonb"`

	TimeSpentSeconds int       `json:"time_spent_seconds"`
	CompletedAt      time.Time `json:"completed_at" gorm:"index"`
	CreatedAt        time.Time `json:"created_at"`
}

func (QuizAttempt) TableName() string {
	return "quiz_attempts"
}

// QuizContent is the stored quiz payload for a lesson step, written by
// the course builder and consumed by the player.
type QuizContent struct {
	StepID   string `json:"step_id" gorm:"primaryKey;size:64"`
	CourseID string `json:"course_id" gorm:"size:64;index"`
	LessonID string `json:"lesson_id" gorm:"size:64;index"`

	Content datatypes.JSON `json:"content" gorm:"type:jsonb;not null"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (QuizContent) TableName() string {
	return "quiz_contents"
}
