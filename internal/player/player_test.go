package player

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/n0psw/lms-quiz-engine/internal/attempts"
	"github.com/n0psw/lms-quiz-engine/internal/models"
	"github.com/n0psw/lms-quiz-engine/internal/scoring"
)

// fakeStore records saves and serves a canned restore result.
type fakeStore struct {
	saved       []attempts.SaveRequest
	savedStates []*models.AnswerState
	saveErr     error

	restoreAttempt *models.QuizAttempt
	restoreState   *models.AnswerState
	restoreErr     error
}

func (f *fakeStore) SaveAttempt(ctx context.Context, quiz *models.Quiz, req attempts.SaveRequest, st *models.AnswerState) (*models.QuizAttempt, error) {
	if f.saveErr != nil {
		return nil, f.saveErr
	}
	f.saved = append(f.saved, req)
	f.savedStates = append(f.savedStates, st)
	return &models.QuizAttempt{StepID: req.StepID}, nil
}

func (f *fakeStore) LoadLatestAttempt(ctx context.Context, stepID string, quiz *models.Quiz) (*models.QuizAttempt, *models.AnswerState, error) {
	return f.restoreAttempt, f.restoreState, f.restoreErr
}

func intPtr(i int) *int { return &i }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

func twoQuestionQuiz(mode models.DisplayMode) *models.Quiz {
	return &models.Quiz{
		Title:       "Basics",
		DisplayMode: mode,
		Questions: []models.Question{
			{
				ID: "q1", Type: models.SingleChoice,
				Options: []models.QuestionOption{
					{ID: "a", Text: "1", Letter: "A"},
					{ID: "b", Text: "2", Letter: "B"},
					{ID: "c", Text: "3", Letter: "C"},
					{ID: "d", Text: "4", Letter: "D"},
				},
				CorrectIndex: intPtr(1),
			},
			{ID: "q2", Type: models.FillBlank, ContentText: "Water is [[wet*,dry]]"},
		},
	}
}

func studentSession() Session {
	return Session{StepID: "step-1", Role: models.RoleStudent}
}

func TestStart_DisplayModeSelectsBranch(t *testing.T) {
	t.Run("one_by_one lands in question", func(t *testing.T) {
		p := New(twoQuestionQuiz(models.DisplayOneByOne), studentSession(), &fakeStore{}, testLogger())
		require.NoError(t, p.Start())
		assert.Equal(t, StateQuestion, p.State())
	})

	t.Run("all_at_once lands in feed, never in question", func(t *testing.T) {
		p := New(twoQuestionQuiz(models.DisplayAllAtOnce), studentSession(), &fakeStore{}, testLogger())
		require.NoError(t, p.Start())
		assert.Equal(t, StateFeed, p.State())
	})
}

func TestOneByOneFlow_CompletesAndPersistsOnce(t *testing.T) {
	store := &fakeStore{}
	p := New(twoQuestionQuiz(models.DisplayOneByOne), studentSession(), store, testLogger())
	ctx := context.Background()

	require.NoError(t, p.Start())
	require.NoError(t, p.SubmitSelection("q1", models.IndexSelection(1)))
	require.NoError(t, p.CheckAnswer())
	assert.Equal(t, StateResult, p.State())

	require.NoError(t, p.NextQuestion(ctx))
	assert.Equal(t, StateQuestion, p.State())
	assert.Equal(t, "q2", p.CurrentQuestion().ID)

	require.NoError(t, p.SubmitGapAnswer("q2", 0, "wet"))
	require.NoError(t, p.CheckAnswer())
	require.NoError(t, p.NextQuestion(ctx))

	assert.Equal(t, StateCompleted, p.State())
	assert.InDelta(t, 100.0, p.Score(), 1e-9)
	assert.True(t, p.Passed())
	assert.Len(t, store.saved, 1, "exactly one attempt per completion")
}

func TestFinishQuiz_AllAtOnceOnly(t *testing.T) {
	ctx := context.Background()

	p := New(twoQuestionQuiz(models.DisplayOneByOne), studentSession(), &fakeStore{}, testLogger())
	require.NoError(t, p.Start())
	assert.ErrorIs(t, p.FinishQuiz(ctx), ErrWrongDisplayMode)

	store := &fakeStore{}
	p = New(twoQuestionQuiz(models.DisplayAllAtOnce), studentSession(), store, testLogger())
	require.NoError(t, p.Start())
	require.NoError(t, p.SubmitSelection("q1", models.IndexSelection(0)))
	require.NoError(t, p.FinishQuiz(ctx))

	// Completion is reached even on a failing score.
	assert.Equal(t, StateCompleted, p.State())
	assert.False(t, p.Passed())
	assert.Len(t, store.saved, 1)
}

func TestCheckAnswer_RejectedInFeedMode(t *testing.T) {
	p := New(twoQuestionQuiz(models.DisplayAllAtOnce), studentSession(), &fakeStore{}, testLogger())
	require.NoError(t, p.Start())
	assert.ErrorIs(t, p.CheckAnswer(), ErrWrongDisplayMode)
}

func TestSubmit_RejectedOutsideAnsweringStates(t *testing.T) {
	p := New(twoQuestionQuiz(models.DisplayOneByOne), studentSession(), &fakeStore{}, testLogger())

	err := p.SubmitSelection("q1", models.IndexSelection(0))
	assert.ErrorIs(t, err, ErrInvalidTransition, "cannot answer from the title screen")

	require.NoError(t, p.Start())
	assert.ErrorIs(t, p.SubmitSelection("zzz", models.IndexSelection(0)), ErrUnknownQuestion)
}

func TestResetQuiz_PreservesAnswersAndRescoresIdentically(t *testing.T) {
	store := &fakeStore{}
	p := New(twoQuestionQuiz(models.DisplayAllAtOnce), studentSession(), store, testLogger())
	ctx := context.Background()

	require.NoError(t, p.Start())
	require.NoError(t, p.SubmitSelection("q1", models.IndexSelection(1)))
	require.NoError(t, p.SubmitGapAnswer("q2", 0, "wet"))
	require.NoError(t, p.FinishQuiz(ctx))
	firstScore := p.Score()

	require.NoError(t, p.ResetQuiz())
	assert.Equal(t, StateFeed, p.State())

	// Answers survive the reset for inspection on retry.
	sel, ok := p.Answers().Selections["q1"]
	require.True(t, ok)
	assert.Equal(t, 1, *sel.Index)
	assert.Equal(t, []string{"wet"}, p.Answers().Gaps["q2"])

	// Unchanged answers re-score identically, and the retry persists a
	// second attempt rather than overwriting the first.
	require.NoError(t, p.FinishQuiz(ctx))
	assert.InDelta(t, firstScore, p.Score(), 1e-9)
	assert.Len(t, store.saved, 2)
}

func TestResetQuiz_OneByOneReturnsToTitle(t *testing.T) {
	store := &fakeStore{}
	p := New(twoQuestionQuiz(models.DisplayOneByOne), studentSession(), store, testLogger())
	ctx := context.Background()

	require.NoError(t, p.Start())
	require.NoError(t, p.CheckAnswer())
	require.NoError(t, p.NextQuestion(ctx))
	require.NoError(t, p.CheckAnswer())
	require.NoError(t, p.NextQuestion(ctx))
	require.Equal(t, StateCompleted, p.State())

	require.NoError(t, p.ResetQuiz())
	assert.Equal(t, StateTitle, p.State())
	require.NoError(t, p.Start())
	assert.Equal(t, StateQuestion, p.State())
}

func TestReviewQuiz_ReadOnlyFeed(t *testing.T) {
	p := New(twoQuestionQuiz(models.DisplayAllAtOnce), studentSession(), &fakeStore{}, testLogger())
	ctx := context.Background()

	require.NoError(t, p.Start())
	require.NoError(t, p.FinishQuiz(ctx))
	require.NoError(t, p.ReviewQuiz())

	assert.Equal(t, StateFeed, p.State())
	assert.True(t, p.IsReadOnly())
	assert.ErrorIs(t, p.SubmitSelection("q1", models.IndexSelection(0)), ErrReadOnly)
	assert.ErrorIs(t, p.FinishQuiz(ctx), ErrReadOnly)
}

func TestLoad_RestoredAttemptLandsInCompleted(t *testing.T) {
	restored := models.NewAnswerState()
	restored.SetSelection("q1", models.IndexSelection(1))
	restored.SetGapAnswers("q2", []string{"wet"})

	store := &fakeStore{
		restoreAttempt: &models.QuizAttempt{StepID: "step-1", ScorePercentage: 100},
		restoreState:   restored,
	}
	p := New(twoQuestionQuiz(models.DisplayOneByOne), studentSession(), store, testLogger())

	require.NoError(t, p.Load(context.Background()))
	assert.Equal(t, StateCompleted, p.State(), "finished learners see their result immediately")
	assert.True(t, p.Passed())
	assert.Equal(t, []string{"wet"}, p.Answers().Gaps["q2"])

	// Restoring does not create another attempt on its own.
	assert.Empty(t, store.saved)
}

func TestLoad_PassRecomputedFromStoredScore(t *testing.T) {
	store := &fakeStore{
		restoreAttempt: &models.QuizAttempt{StepID: "step-1", ScorePercentage: 49.999},
		restoreState:   models.NewAnswerState(),
	}
	p := New(twoQuestionQuiz(models.DisplayOneByOne), studentSession(), store, testLogger())

	require.NoError(t, p.Load(context.Background()))
	assert.False(t, p.Passed())
}

func TestLoad_NoPriorAttemptStaysOnTitle(t *testing.T) {
	p := New(twoQuestionQuiz(models.DisplayOneByOne), studentSession(), &fakeStore{}, testLogger())
	require.NoError(t, p.Load(context.Background()))
	assert.Equal(t, StateTitle, p.State())
}

func TestLoad_FetchErrorStartsFresh(t *testing.T) {
	store := &fakeStore{restoreErr: errors.New("network down")}
	p := New(twoQuestionQuiz(models.DisplayOneByOne), studentSession(), store, testLogger())

	require.NoError(t, p.Load(context.Background()))
	assert.Equal(t, StateTitle, p.State())
}

func TestLoad_AbandonedStepIgnoresStaleFetch(t *testing.T) {
	restored := models.NewAnswerState()
	restored.SetSelection("q1", models.IndexSelection(1))
	store := &fakeStore{
		restoreAttempt: &models.QuizAttempt{StepID: "step-1", ScorePercentage: 80},
		restoreState:   restored,
	}
	p := New(twoQuestionQuiz(models.DisplayOneByOne), studentSession(), store, testLogger())

	p.Abandon()
	require.NoError(t, p.Load(context.Background()))

	assert.Equal(t, StateTitle, p.State())
	assert.Empty(t, p.Answers().Selections)
}

func TestComplete_SaveFailureDoesNotBlockLearner(t *testing.T) {
	store := &fakeStore{saveErr: errors.New("persistence down")}
	p := New(twoQuestionQuiz(models.DisplayAllAtOnce), studentSession(), store, testLogger())
	ctx := context.Background()

	require.NoError(t, p.Start())
	require.NoError(t, p.SubmitSelection("q1", models.IndexSelection(1)))
	require.NoError(t, p.SubmitGapAnswer("q2", 0, "wet"))
	require.NoError(t, p.FinishQuiz(ctx))

	// The locally computed result still governs this session.
	assert.Equal(t, StateCompleted, p.State())
	assert.True(t, p.Passed())
	assert.True(t, p.CanProceed())
}

func TestCanProceed_RoleGate(t *testing.T) {
	quiz := twoQuestionQuiz(models.DisplayAllAtOnce)
	ctx := context.Background()

	student := New(quiz, Session{StepID: "s", Role: models.RoleStudent}, &fakeStore{}, testLogger())
	require.NoError(t, student.Start())
	require.NoError(t, student.FinishQuiz(ctx))
	assert.False(t, student.CanProceed(), "failing student stays on the step")

	teacher := New(quiz, Session{StepID: "s", Role: models.RoleTeacher}, &fakeStore{}, testLogger())
	require.NoError(t, teacher.Start())
	require.NoError(t, teacher.FinishQuiz(ctx))
	assert.True(t, teacher.CanProceed(), "privileged roles bypass the gate")
}

func TestStatistics_ExposedAfterCompletion(t *testing.T) {
	p := New(twoQuestionQuiz(models.DisplayAllAtOnce), studentSession(), &fakeStore{}, testLogger())
	ctx := context.Background()

	require.NoError(t, p.Start())
	require.NoError(t, p.SubmitSelection("q1", models.IndexSelection(1)))
	require.NoError(t, p.FinishQuiz(ctx))

	want := scoring.Statistics{TotalGaps: 1, CorrectGaps: 0, RegularQuestions: 1, CorrectRegular: 1}
	assert.Equal(t, want, p.Statistics())
	assert.InDelta(t, 50.0, p.Score(), 1e-9)
	assert.True(t, p.Passed(), "exactly 50.0 passes")
}
