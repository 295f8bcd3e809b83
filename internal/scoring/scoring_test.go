package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/n0psw/lms-quiz-engine/internal/models"
)

func intPtr(i int) *int { return &i }

func choiceQuestion(id string, correct int) models.Question {
	return models.Question{
		ID:         id,
		Type:       models.SingleChoice,
		PromptText: "pick one",
		Options: []models.QuestionOption{
			{ID: "a", Text: "A", Letter: "A"},
			{ID: "b", Text: "B", Letter: "B"},
			{ID: "c", Text: "C", Letter: "C"},
			{ID: "d", Text: "D", Letter: "D"},
		},
		CorrectIndex: intPtr(correct),
		Points:       1,
	}
}

func TestIsCorrect_SingleChoice(t *testing.T) {
	q := choiceQuestion("q1", 2)
	st := models.NewAnswerState()

	correct, err := IsCorrect(&q, st)
	require.NoError(t, err)
	assert.False(t, correct, "unanswered question is incorrect")

	st.SetSelection("q1", models.IndexSelection(2))
	correct, err = IsCorrect(&q, st)
	require.NoError(t, err)
	assert.True(t, correct)

	st.SetSelection("q1", models.IndexSelection(1))
	correct, err = IsCorrect(&q, st)
	require.NoError(t, err)
	assert.False(t, correct)
}

func TestIsCorrect_MultipleChoice_OrderIndependent(t *testing.T) {
	q := models.Question{
		ID:             "q1",
		Type:           models.MultipleChoice,
		CorrectIndices: []int{1, 2},
	}
	st := models.NewAnswerState()
	st.SetSelection("q1", models.IndicesSelection([]int{2, 1}))

	correct, err := IsCorrect(&q, st)
	require.NoError(t, err)
	assert.True(t, correct, "selection [2,1] must match correct [1,2]")

	st.SetSelection("q1", models.IndicesSelection([]int{2}))
	correct, err = IsCorrect(&q, st)
	require.NoError(t, err)
	assert.False(t, correct)

	st.SetSelection("q1", models.IndicesSelection([]int{1, 2, 3}))
	correct, err = IsCorrect(&q, st)
	require.NoError(t, err)
	assert.False(t, correct)
}

func TestIsCorrect_ShortAnswer(t *testing.T) {
	q := models.Question{ID: "q1", Type: models.ShortAnswer, CorrectText: "Photosynthesis"}
	st := models.NewAnswerState()
	st.SetSelection("q1", models.TextSelection("  photosynthesis "))

	correct, err := IsCorrect(&q, st)
	require.NoError(t, err)
	assert.True(t, correct, "comparison is case-insensitive and trimmed")

	st.SetSelection("q1", models.TextSelection("photo"))
	correct, err = IsCorrect(&q, st)
	require.NoError(t, err)
	assert.False(t, correct)
}

func TestIsCorrect_FillBlank_RecomputesFromPassage(t *testing.T) {
	q := models.Question{
		ID:          "q1",
		Type:        models.FillBlank,
		ContentText: "Sky is [[blue*,red]] and grass is [[green]]",
		// Stale cache on purpose; grading must ignore it.
		GapAnswers: []string{"wrong", "stale"},
	}
	st := models.NewAnswerState()
	st.SetGapAnswers("q1", []string{"BLUE", "green"})

	correct, err := IsCorrect(&q, st)
	require.NoError(t, err)
	assert.True(t, correct)
}

func TestIsCorrect_FillBlank_LengthMismatchIsIncorrect(t *testing.T) {
	q := models.Question{
		ID:          "q1",
		Type:        models.FillBlank,
		ContentText: "[[a]] and [[b]]",
	}
	st := models.NewAnswerState()
	st.SetGapAnswers("q1", []string{"a"})

	correct, err := IsCorrect(&q, st)
	require.NoError(t, err)
	assert.False(t, correct)
}

func TestIsCorrect_FillBlank_EveryGapMustMatch(t *testing.T) {
	q := models.Question{
		ID:          "q1",
		Type:        models.FillBlank,
		ContentText: "[[a]] and [[b]]",
	}
	st := models.NewAnswerState()
	st.SetGapAnswers("q1", []string{"a", "wrong"})

	correct, err := IsCorrect(&q, st)
	require.NoError(t, err)
	assert.False(t, correct)
}

func TestIsCorrect_PassageWithoutGapsIsIncorrect(t *testing.T) {
	q := models.Question{ID: "q1", Type: models.FillBlank, ContentText: "no gaps"}
	st := models.NewAnswerState()
	st.SetGapAnswers("q1", nil)

	correct, err := IsCorrect(&q, st)
	require.NoError(t, err)
	assert.False(t, correct)
}

func TestIsCorrect_LongText(t *testing.T) {
	q := models.Question{ID: "q1", Type: models.LongText, Keywords: []string{"cells"}, MinLength: 100}
	st := models.NewAnswerState()

	st.SetSelection("q1", models.TextSelection("   "))
	correct, err := IsCorrect(&q, st)
	require.NoError(t, err)
	assert.False(t, correct, "whitespace-only answer is not an answer")

	// Hints are advisory; any non-empty answer grades correct.
	st.SetSelection("q1", models.TextSelection("short"))
	correct, err = IsCorrect(&q, st)
	require.NoError(t, err)
	assert.True(t, correct)
}

func TestIsCorrect_UnknownTypeIsAnError(t *testing.T) {
	q := models.Question{ID: "q1", Type: "matrix_sort"}
	_, err := IsCorrect(&q, models.NewAnswerState())
	assert.ErrorIs(t, err, ErrUnsupportedQuestionType)
}

func TestAggregate_GapWeighted(t *testing.T) {
	quiz := &models.Quiz{
		Title:       "Weighted",
		DisplayMode: models.DisplayOneByOne,
		Questions: []models.Question{
			choiceQuestion("q1", 0),
			{
				ID:          "q2",
				Type:        models.FillBlank,
				ContentText: "[[one*,1]] [[two]] [[three]]",
			},
		},
	}
	st := models.NewAnswerState()
	st.SetSelection("q1", models.IndexSelection(0))
	st.SetGapAnswers("q2", []string{"one", "two", "nope"})

	stats, err := Aggregate(quiz, st)
	require.NoError(t, err)

	// A 3-gap question counts as 3 graded units, not 1.
	assert.Equal(t, 3, stats.TotalGaps)
	assert.Equal(t, 2, stats.CorrectGaps)
	assert.Equal(t, 1, stats.RegularQuestions)
	assert.Equal(t, 1, stats.CorrectRegular)
	assert.InDelta(t, 75.0, stats.Score(), 1e-9)
	assert.True(t, stats.Passed())
}

func TestAggregate_TotalUnitsInvariant(t *testing.T) {
	quiz := &models.Quiz{
		Questions: []models.Question{
			{ID: "q1", Type: models.ShortAnswer, CorrectText: "x"},
			{ID: "q2", Type: models.FillBlank, ContentText: "[[a]] [[b]]"},
			{ID: "q3", Type: models.TextCompletion, ContentText: "[[c]]"},
			choiceQuestion("q4", 1),
		},
	}
	stats, err := Aggregate(quiz, models.NewAnswerState())
	require.NoError(t, err)

	// sum(len(extracted)) for gapped + count(non-gapped)
	assert.Equal(t, 3, stats.TotalGaps)
	assert.Equal(t, 2, stats.RegularQuestions)
}

func TestAggregate_UnknownTypePropagates(t *testing.T) {
	quiz := &models.Quiz{Questions: []models.Question{{ID: "q1", Type: "mystery"}}}
	_, err := Aggregate(quiz, models.NewAnswerState())
	assert.ErrorIs(t, err, ErrUnsupportedQuestionType)
}

func TestPassBoundary(t *testing.T) {
	half := Statistics{TotalGaps: 1, CorrectGaps: 1, RegularQuestions: 1}
	assert.InDelta(t, 50.0, half.Score(), 1e-9)
	assert.True(t, half.Passed(), "exactly 50.0 is a pass")

	// 49999/100000 correct: 49.999 must fail.
	almost := Statistics{RegularQuestions: 100000, CorrectRegular: 49999}
	assert.Less(t, almost.Score(), 50.0)
	assert.False(t, almost.Passed())
}

func TestScore_EmptyQuizIsZero(t *testing.T) {
	assert.Zero(t, Statistics{}.Score())
}

func TestCanProceed(t *testing.T) {
	assert.False(t, CanProceed(models.RoleStudent, 49.999))
	assert.True(t, CanProceed(models.RoleStudent, 50.0))
	assert.True(t, CanProceed(models.RoleTeacher, 0))
	assert.True(t, CanProceed(models.RoleAdmin, 12.5))
}
