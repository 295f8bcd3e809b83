package postgres

import (
	"gorm.io/gorm"

	"github.com/n0psw/lms-quiz-engine/internal/repositories"
)

type repository struct {
	attempt repositories.AttemptRepository
	quiz    repositories.QuizRepository
}

func NewRepository(db *gorm.DB) repositories.Repository {
	return &repository{
		attempt: NewAttemptPostgreSQL(db),
		quiz:    NewQuizPostgreSQL(db),
	}
}

func (r *repository) Attempt() repositories.AttemptRepository { return r.attempt }
func (r *repository) Quiz() repositories.QuizRepository       { return r.quiz }
