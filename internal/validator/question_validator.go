// Package validator checks quiz questions at edit time, before they
// ever reach grading.
package validator

import (
	"fmt"
	"strings"

	apperrors "github.com/n0psw/lms-quiz-engine/internal/errors"
	"github.com/n0psw/lms-quiz-engine/internal/gaps"
	"github.com/n0psw/lms-quiz-engine/internal/models"
)

// ValidationResult is what the editor renders next to a question.
// Warnings never make a question invalid.
type ValidationResult struct {
	IsValid  bool                      `json:"is_valid"`
	Errors   apperrors.ValidationErrors `json:"errors,omitempty"`
	Warnings []string                  `json:"warnings,omitempty"`
}

// QuestionValidator handles per-type question validation.
type QuestionValidator struct{}

func NewQuestionValidator() *QuestionValidator {
	return &QuestionValidator{}
}

// ValidateQuestion validates one question. A question that has not been
// started (empty prompt, empty options, no correct answer) is always
// valid so the editor stays quiet over blank drafts.
func (v *QuestionValidator) ValidateQuestion(q *models.Question) ValidationResult {
	if !q.HasStarted() {
		return ValidationResult{IsValid: true}
	}

	var result ValidationResult

	switch q.Type {
	case models.SingleChoice, models.MediaQuestion:
		v.validateChoiceOptions(q, &result)
		if q.CorrectIndex == nil {
			result.addError("correct_answer", "a correct option must be selected")
		} else if *q.CorrectIndex < 0 || *q.CorrectIndex >= len(q.Options) {
			result.addError("correct_answer", fmt.Sprintf("correct option index %d is out of range", *q.CorrectIndex))
		}
		if q.Type == models.MediaQuestion && strings.TrimSpace(q.MediaURL) == "" {
			result.addError("media_url", "a media reference is required")
		}

	case models.MultipleChoice:
		v.validateChoiceOptions(q, &result)
		if len(q.CorrectIndices) == 0 {
			result.addError("correct_answer", "at least one correct option must be selected")
		}
		for _, idx := range q.CorrectIndices {
			if idx < 0 || idx >= len(q.Options) {
				result.addError("correct_answer", fmt.Sprintf("correct option index %d is out of range", idx))
			}
		}

	case models.ShortAnswer:
		if strings.TrimSpace(q.CorrectText) == "" {
			result.addError("correct_answer", "a correct answer is required")
		}

	case models.FillBlank:
		v.validateGaps(q, &result)

	case models.TextCompletion:
		v.validateGaps(q, &result)
		if count := gaps.CountGaps(q.ContentText); count != len(q.GapAnswers) {
			result.addError("correct_answer", fmt.Sprintf("passage has %d gaps but %d cached answers", count, len(q.GapAnswers)))
		}

	case models.LongText:
		// An empty correct_answer means "intentionally ungraded"; only
		// answer presence is graded, so there is nothing to require.

	default:
		result.addError("type", fmt.Sprintf("unsupported question type %q", q.Type))
	}

	result.IsValid = len(result.Errors) == 0
	return result
}

// ValidateQuiz validates every question and returns results keyed by
// question id.
func (v *QuestionValidator) ValidateQuiz(quiz *models.Quiz) map[string]ValidationResult {
	results := make(map[string]ValidationResult, len(quiz.Questions))
	for i := range quiz.Questions {
		q := &quiz.Questions[i]
		results[q.ID] = v.ValidateQuestion(q)
	}
	return results
}

func (v *QuestionValidator) validateChoiceOptions(q *models.Question, result *ValidationResult) {
	if len(q.Options) != models.ChoiceOptionCount {
		result.addError("options", fmt.Sprintf("exactly %d options are required", models.ChoiceOptionCount))
	}

	anyFilled := false
	for _, opt := range q.Options {
		if strings.TrimSpace(opt.Text) != "" {
			anyFilled = true
			break
		}
	}
	if !anyFilled {
		return
	}
	for i, opt := range q.Options {
		if strings.TrimSpace(opt.Text) == "" {
			result.addError("options", fmt.Sprintf("option %d must not be empty", i+1))
		}
	}
}

func (v *QuestionValidator) validateGaps(q *models.Question, result *ValidationResult) {
	sep := q.GapSeparator()
	bodies := gaps.GapBodies(q.ContentText)
	if len(bodies) == 0 {
		result.addError("content_text", "passage must contain at least one [[...]] gap")
		return
	}

	for i, body := range bodies {
		parsed := gaps.ParseGap(body, sep)
		if parsed.CorrectOption == "" {
			result.addError("content_text", fmt.Sprintf("gap %d has no usable correct option", i+1))
		}
		if strings.Count(body, gaps.Marker) > 1 {
			// Resolution stays "last marker wins"; authors just get told.
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("gap %d has multiple %s markers; the last one is treated as correct", i+1, gaps.Marker))
		}
	}
}

func (r *ValidationResult) addError(field, message string) {
	r.Errors = append(r.Errors, *apperrors.NewValidationError(field, message, nil))
}
