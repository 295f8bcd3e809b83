// Package scoring grades submitted answers against quiz questions and
// aggregates gap-weighted statistics across a whole quiz.
package scoring

import (
	"errors"
	"fmt"
	"strings"

	"github.com/n0psw/lms-quiz-engine/internal/gaps"
	"github.com/n0psw/lms-quiz-engine/internal/models"
)

// PassThreshold is the minimum aggregate score (percent) to pass a
// quiz. Comparison uses the unrounded value; rounding is display only.
const PassThreshold = 50.0

var ErrUnsupportedQuestionType = errors.New("unsupported question type")

// Statistics aggregates graded units across a quiz. Gapped questions
// contribute one unit per gap, every other question contributes one
// unit total. A three-gap passage therefore weighs three times a choice
// question, which deliberately changes pass/fail outcomes versus
// per-question scoring.
type Statistics struct {
	TotalGaps        int `json:"total_gaps"`
	CorrectGaps      int `json:"correct_gaps"`
	RegularQuestions int `json:"regular_questions"`
	CorrectRegular   int `json:"correct_regular"`
}

// Score returns the aggregate percentage, unrounded.
func (s Statistics) Score() float64 {
	total := s.TotalGaps + s.RegularQuestions
	if total == 0 {
		return 0
	}
	return float64(s.CorrectGaps+s.CorrectRegular) / float64(total) * 100
}

// CorrectUnits returns the number of correctly answered graded units.
func (s Statistics) CorrectUnits() int {
	return s.CorrectGaps + s.CorrectRegular
}

// Passed reports whether the unrounded score meets the pass threshold.
// Exactly 50.0 passes.
func (s Statistics) Passed() bool {
	return s.Score() >= PassThreshold
}

// IsCorrect grades a single question against the learner's answers.
// Gapped questions recompute their correct answers from the current
// passage text; the cached answer list on the question is never
// trusted at grading time.
func IsCorrect(q *models.Question, st *models.AnswerState) (bool, error) {
	switch q.Type {
	case models.SingleChoice, models.MediaQuestion:
		sel, ok := st.Selections[q.ID]
		if !ok || sel.Index == nil || q.CorrectIndex == nil {
			return false, nil
		}
		return *sel.Index == *q.CorrectIndex, nil

	case models.MultipleChoice:
		sel, ok := st.Selections[q.ID]
		if !ok || len(sel.Indices) == 0 {
			return false, nil
		}
		return setEquals(sel.Indices, q.CorrectIndices), nil

	case models.ShortAnswer:
		sel, ok := st.Selections[q.ID]
		if !ok {
			return false, nil
		}
		return textMatches(sel.Text, q.CorrectText), nil

	case models.FillBlank, models.TextCompletion:
		want := gaps.ExtractAnswers(q.ContentText, q.GapSeparator())
		if len(want) == 0 {
			// A passage with no parseable gaps cannot be answered.
			return false, nil
		}
		got := st.Gaps[q.ID]
		if len(got) != len(want) {
			return false, nil
		}
		for i := range want {
			if !textMatches(got[i], want[i]) {
				return false, nil
			}
		}
		return true, nil

	case models.LongText:
		sel, ok := st.Selections[q.ID]
		if !ok {
			return false, nil
		}
		// Keyword and length hints are advisory only; presence of a
		// non-empty answer is the whole grading rule.
		return strings.TrimSpace(sel.Text) != "", nil

	default:
		return false, fmt.Errorf("%w: %q", ErrUnsupportedQuestionType, q.Type)
	}
}

// Aggregate walks every question once and tallies gap-weighted
// statistics for the quiz.
func Aggregate(quiz *models.Quiz, st *models.AnswerState) (Statistics, error) {
	var stats Statistics

	for i := range quiz.Questions {
		q := &quiz.Questions[i]

		if q.IsGapped() {
			want := gaps.ExtractAnswers(q.ContentText, q.GapSeparator())
			stats.TotalGaps += len(want)
			got := st.Gaps[q.ID]
			for j, answer := range want {
				if j < len(got) && textMatches(got[j], answer) {
					stats.CorrectGaps++
				}
			}
			continue
		}

		stats.RegularQuestions++
		correct, err := IsCorrect(q, st)
		if err != nil {
			return Statistics{}, err
		}
		if correct {
			stats.CorrectRegular++
		}
	}

	return stats, nil
}

// CanProceed reports whether a user may advance past the quiz step.
// Privileged roles bypass the gate; learners need a passing aggregate
// score.
func CanProceed(role models.UserRole, score float64) bool {
	if role.Privileged() {
		return true
	}
	return score >= PassThreshold
}

// textMatches compares two answers case-insensitively after trimming.
func textMatches(got, want string) bool {
	return strings.EqualFold(strings.TrimSpace(got), strings.TrimSpace(want))
}

// setEquals compares two index lists as sets: order-independent,
// duplicates collapse.
func setEquals(a, b []int) bool {
	as := make(map[int]struct{}, len(a))
	for _, v := range a {
		as[v] = struct{}{}
	}
	bs := make(map[int]struct{}, len(b))
	for _, v := range b {
		bs[v] = struct{}{}
	}
	if len(as) != len(bs) {
		return false
	}
	for v := range as {
		if _, ok := bs[v]; !ok {
			return false
		}
	}
	return true
}
