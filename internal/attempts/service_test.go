package attempts

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/n0psw/lms-quiz-engine/internal/events"
	"github.com/n0psw/lms-quiz-engine/internal/models"
)

// MockAttemptRepository is a mock implementation of AttemptRepository
type MockAttemptRepository struct {
	mock.Mock
}

func (m *MockAttemptRepository) Create(ctx context.Context, attempt *models.QuizAttempt) error {
	args := m.Called(ctx, attempt)
	return args.Error(0)
}

func (m *MockAttemptRepository) GetByStep(ctx context.Context, stepID string) ([]*models.QuizAttempt, error) {
	args := m.Called(ctx, stepID)
	return args.Get(0).([]*models.QuizAttempt), args.Error(1)
}

func (m *MockAttemptRepository) GetLatestByStep(ctx context.Context, stepID string) (*models.QuizAttempt, error) {
	args := m.Called(ctx, stepID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.QuizAttempt), args.Error(1)
}

func intPtr(i int) *int { return &i }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

func testQuiz() *models.Quiz {
	return &models.Quiz{
		Title:       "Colors",
		DisplayMode: models.DisplayOneByOne,
		Questions: []models.Question{
			{
				ID: "q1", Type: models.SingleChoice,
				Options: []models.QuestionOption{
					{ID: "a", Text: "Red", Letter: "A"},
					{ID: "b", Text: "Blue", Letter: "B"},
					{ID: "c", Text: "Green", Letter: "C"},
					{ID: "d", Text: "Cyan", Letter: "D"},
				},
				CorrectIndex: intPtr(1),
			},
			{ID: "q2", Type: models.FillBlank, ContentText: "Sky is [[blue*,red]] and grass is [[green]]"},
			{ID: "q3", Type: models.ShortAnswer, CorrectText: "sun"},
			{ID: "q4", Type: models.MultipleChoice, CorrectIndices: []int{0, 2}},
		},
	}
}

func answeredState() *models.AnswerState {
	st := models.NewAnswerState()
	st.SetSelection("q1", models.IndexSelection(1))
	st.SetGapAnswers("q2", []string{"blue", "green"})
	st.SetSelection("q3", models.TextSelection("Sun"))
	st.SetSelection("q4", models.IndicesSelection([]int{2, 0}))
	return st
}

func TestEncodeDecodeAnswers_RoundTrip(t *testing.T) {
	quiz := testQuiz()
	st := answeredState()

	encoded, err := EncodeAnswers(quiz, st)
	require.NoError(t, err)

	decoded, err := DecodeAnswers(quiz, encoded)
	require.NoError(t, err)

	// Scalar map restored
	assert.Equal(t, 1, *decoded.Selections["q1"].Index)
	assert.Equal(t, "Sun", decoded.Selections["q3"].Text)
	assert.ElementsMatch(t, []int{0, 2}, decoded.Selections["q4"].Indices)

	// Gap map restored by position
	assert.Equal(t, []string{"blue", "green"}, decoded.Gaps["q2"])

	// Nothing leaked across the two maps
	_, inSelections := decoded.Selections["q2"]
	assert.False(t, inSelections)
	_, inGaps := decoded.Gaps["q1"]
	assert.False(t, inGaps)
}

func TestEncodeAnswers_OmitsUnanswered(t *testing.T) {
	quiz := testQuiz()
	st := models.NewAnswerState()
	st.SetSelection("q1", models.IndexSelection(0))

	encoded, err := EncodeAnswers(quiz, st)
	require.NoError(t, err)

	decoded, err := DecodeAnswers(quiz, encoded)
	require.NoError(t, err)
	assert.Len(t, decoded.Selections, 1)
	assert.Empty(t, decoded.Gaps)
}

func TestDecodeAnswers_SkipsRemovedQuestions(t *testing.T) {
	quiz := testQuiz()
	st := answeredState()
	encoded, err := EncodeAnswers(quiz, st)
	require.NoError(t, err)

	trimmed := &models.Quiz{Questions: quiz.Questions[:1]}
	decoded, err := DecodeAnswers(trimmed, encoded)
	require.NoError(t, err)
	assert.Len(t, decoded.Selections, 1)
	assert.Empty(t, decoded.Gaps)
}

func TestDecodeAnswers_CorruptData(t *testing.T) {
	quiz := testQuiz()
	_, err := DecodeAnswers(quiz, []byte(`{"not":"a pair list"}`))
	assert.Error(t, err)

	_, err = DecodeAnswers(quiz, []byte(`[["q1"]]`))
	assert.Error(t, err)
}

func TestSaveAttempt_ComputesScoreAtSaveTime(t *testing.T) {
	repo := new(MockAttemptRepository)
	publisher := events.NewMockEventPublisher(testLogger())
	service := NewService(repo, publisher, testLogger())

	var saved *models.QuizAttempt
	repo.On("Create", mock.Anything, mock.AnythingOfType("*models.QuizAttempt")).
		Run(func(args mock.Arguments) {
			saved = args.Get(1).(*models.QuizAttempt)
		}).
		Return(nil)

	quiz := testQuiz()
	st := answeredState()

	attempt, err := service.SaveAttempt(context.Background(), quiz, SaveRequest{
		StepID:         "step-1",
		CourseID:       "course-1",
		LessonID:       "lesson-1",
		ElapsedSeconds: 240,
	}, st)
	require.NoError(t, err)
	require.NotNil(t, saved)

	// 2 gaps + 3 regular questions = 5 graded units, all correct.
	assert.Equal(t, 4, attempt.TotalQuestions)
	assert.Equal(t, 5, attempt.CorrectAnswers)
	assert.InDelta(t, 100.0, attempt.ScorePercentage, 1e-9)
	assert.Equal(t, 240, attempt.TimeSpentSeconds)
	assert.Equal(t, "Colors", attempt.QuizTitle)

	// Completion event published once.
	published := publisher.GetPublishedEvents()
	require.Len(t, published, 1)
	assert.Equal(t, events.EventAttemptCompleted, published[0].Type)
	data, ok := published[0].Data.(events.AttemptCompletedEvent)
	require.True(t, ok)
	assert.True(t, data.Passed)
	assert.Equal(t, "step-1", data.StepID)

	repo.AssertExpectations(t)
}

func TestSaveThenLoadLatest_RestoresAnswerState(t *testing.T) {
	repo := new(MockAttemptRepository)
	service := NewService(repo, nil, testLogger())

	var saved *models.QuizAttempt
	repo.On("Create", mock.Anything, mock.AnythingOfType("*models.QuizAttempt")).
		Run(func(args mock.Arguments) {
			saved = args.Get(1).(*models.QuizAttempt)
		}).
		Return(nil)

	quiz := testQuiz()
	st := answeredState()

	_, err := service.SaveAttempt(context.Background(), quiz, SaveRequest{StepID: "step-1"}, st)
	require.NoError(t, err)

	repo.On("GetLatestByStep", mock.Anything, "step-1").Return(saved, nil)

	attempt, restored, err := service.LoadLatestAttempt(context.Background(), "step-1", quiz)
	require.NoError(t, err)
	require.NotNil(t, attempt)
	require.NotNil(t, restored)

	assert.Equal(t, st.Gaps, restored.Gaps)
	assert.Equal(t, len(st.Selections), len(restored.Selections))
	for id, sel := range st.Selections {
		got := restored.Selections[id]
		if sel.Index != nil {
			require.NotNil(t, got.Index)
			assert.Equal(t, *sel.Index, *got.Index)
		}
		if sel.Indices != nil {
			assert.ElementsMatch(t, sel.Indices, got.Indices)
		}
		assert.Equal(t, sel.Text, got.Text)
	}
}

func TestLoadLatestAttempt_NoAttempt(t *testing.T) {
	repo := new(MockAttemptRepository)
	service := NewService(repo, nil, testLogger())

	repo.On("GetLatestByStep", mock.Anything, "step-1").Return(nil, gorm.ErrRecordNotFound)

	attempt, st, err := service.LoadLatestAttempt(context.Background(), "step-1", testQuiz())
	require.NoError(t, err)
	assert.Nil(t, attempt)
	assert.Nil(t, st)
}

func TestLoadLatestAttempt_CorruptAnswersTreatedAsAbsent(t *testing.T) {
	repo := new(MockAttemptRepository)
	service := NewService(repo, nil, testLogger())

	corrupt := &models.QuizAttempt{
		ID:          7,
		StepID:      "step-1",
		Answers:     []byte(`{{{not json`),
		CompletedAt: time.Now(),
	}
	repo.On("GetLatestByStep", mock.Anything, "step-1").Return(corrupt, nil)

	attempt, st, err := service.LoadLatestAttempt(context.Background(), "step-1", testQuiz())
	require.NoError(t, err, "corrupt attempts never propagate to the learner")
	assert.Nil(t, attempt)
	assert.Nil(t, st)
}

func TestListAttempts_MostRecentFirstComesFromRepo(t *testing.T) {
	repo := new(MockAttemptRepository)
	service := NewService(repo, nil, testLogger())

	newer := &models.QuizAttempt{ID: 2, StepID: "step-1", CompletedAt: time.Now()}
	older := &models.QuizAttempt{ID: 1, StepID: "step-1", CompletedAt: time.Now().Add(-time.Hour)}
	repo.On("GetByStep", mock.Anything, "step-1").Return([]*models.QuizAttempt{newer, older}, nil)

	attempts, err := service.ListAttempts(context.Background(), "step-1")
	require.NoError(t, err)
	require.Len(t, attempts, 2)
	assert.Equal(t, uint(2), attempts[0].ID)
}
