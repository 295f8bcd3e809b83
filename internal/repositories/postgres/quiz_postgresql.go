package postgres

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/n0psw/lms-quiz-engine/internal/models"
	"github.com/n0psw/lms-quiz-engine/internal/repositories"
)

type QuizPostgreSQL struct {
	db *gorm.DB
}

func NewQuizPostgreSQL(db *gorm.DB) repositories.QuizRepository {
	return &QuizPostgreSQL{db: db}
}

func (r *QuizPostgreSQL) Upsert(ctx context.Context, content *models.QuizContent) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "step_id"}},
			UpdateAll: true,
		}).
		Create(content).Error
}

func (r *QuizPostgreSQL) GetByStep(ctx context.Context, stepID string) (*models.QuizContent, error) {
	var content models.QuizContent
	if err := r.db.WithContext(ctx).
		Where("step_id = ?", stepID).
		First(&content).Error; err != nil {
		return nil, err
	}
	return &content, nil
}
