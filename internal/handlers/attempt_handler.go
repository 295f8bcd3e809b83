package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/n0psw/lms-quiz-engine/internal/attempts"
	"github.com/n0psw/lms-quiz-engine/internal/models"
	"github.com/n0psw/lms-quiz-engine/internal/services"
	"github.com/n0psw/lms-quiz-engine/internal/utils"
)

// AttemptHandler exposes the attempt persistence protocol over HTTP.
type AttemptHandler struct {
	BaseHandler
	attempts  *attempts.Service
	quizzes   services.QuizService
	validator *utils.Validator
}

func NewAttemptHandler(attemptService *attempts.Service, quizService services.QuizService, validator *utils.Validator, logger utils.Logger) *AttemptHandler {
	return &AttemptHandler{
		BaseHandler: NewBaseHandler(logger),
		attempts:    attemptService,
		quizzes:     quizService,
		validator:   validator,
	}
}

// SaveAttemptRequest carries a finished run. Answer values are the bare
// wire scalars keyed by question id; gapped questions send a string
// list, everything else the selection scalar.
type SaveAttemptRequest struct {
	StepID           string                     `json:"step_id" validate:"required"`
	CourseID         string                     `json:"course_id"`
	LessonID         string                     `json:"lesson_id"`
	TimeSpentSeconds int                        `json:"time_spent_seconds" validate:"gte=0"`
	Answers          map[string]json.RawMessage `json:"answers"`
}

// SaveAttempt grades and persists a finished quiz run.
// POST /api/v1/attempts
func (h *AttemptHandler) SaveAttempt(c *gin.Context) {
	var req SaveAttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Validation failed", err, err)
		return
	}

	quiz, err := h.quizzes.GetQuiz(c.Request.Context(), req.StepID)
	if err != nil {
		if errors.Is(err, services.ErrQuizNotFound) {
			h.RespondWithError(c, http.StatusNotFound, "Quiz not found for step", err)
			return
		}
		h.RespondWithError(c, http.StatusInternalServerError, "Failed to load quiz", err)
		return
	}

	state, err := decodeAnswerValues(quiz, req.Answers)
	if err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid answer payload", err)
		return
	}

	attempt, err := h.attempts.SaveAttempt(c.Request.Context(), quiz, attempts.SaveRequest{
		StepID:         req.StepID,
		CourseID:       req.CourseID,
		LessonID:       req.LessonID,
		UserID:         CurrentUserID(c),
		ElapsedSeconds: req.TimeSpentSeconds,
	}, state)
	if err != nil {
		h.RespondWithError(c, http.StatusInternalServerError, "Failed to save attempt", err)
		return
	}

	h.RespondWithSuccess(c, http.StatusCreated, "Attempt saved", attempt,
		"step_id", req.StepID,
		"score", attempt.ScorePercentage)
}

// GetLatestAttempt returns the most recent attempt for a step, with its
// answers decoded against the current quiz. No prior attempt yields a
// null payload, not a 404: the front end renders the title screen.
// GET /api/v1/attempts/step/:step_id/latest
func (h *AttemptHandler) GetLatestAttempt(c *gin.Context) {
	stepID := c.Param("step_id")

	quiz, err := h.quizzes.GetQuiz(c.Request.Context(), stepID)
	if err != nil {
		if errors.Is(err, services.ErrQuizNotFound) {
			h.RespondWithError(c, http.StatusNotFound, "Quiz not found for step", err)
			return
		}
		h.RespondWithError(c, http.StatusInternalServerError, "Failed to load quiz", err)
		return
	}

	attempt, state, err := h.attempts.LoadLatestAttempt(c.Request.Context(), stepID, quiz)
	if err != nil {
		h.RespondWithError(c, http.StatusInternalServerError, "Failed to load attempt", err)
		return
	}
	if attempt == nil {
		h.RespondWithSuccess(c, http.StatusOK, "No prior attempt", nil, "step_id", stepID)
		return
	}

	h.RespondWithSuccess(c, http.StatusOK, "Latest attempt", gin.H{
		"attempt":     attempt,
		"selections":  state.Selections,
		"gap_answers": state.Gaps,
	}, "step_id", stepID)
}

// ListAttempts returns every attempt for a step, most recent first.
// GET /api/v1/attempts/step/:step_id
func (h *AttemptHandler) ListAttempts(c *gin.Context) {
	stepID := c.Param("step_id")

	list, err := h.attempts.ListAttempts(c.Request.Context(), stepID)
	if err != nil {
		h.RespondWithError(c, http.StatusInternalServerError, "Failed to list attempts", err)
		return
	}

	h.RespondWithSuccess(c, http.StatusOK, "Attempts", list,
		"step_id", stepID,
		"count", len(list))
}

func decodeAnswerValues(quiz *models.Quiz, values map[string]json.RawMessage) (*models.AnswerState, error) {
	state := models.NewAnswerState()
	for questionID, raw := range values {
		q := quiz.QuestionByID(questionID)
		if q == nil {
			// The editor may have removed the question mid-run.
			continue
		}

		if q.IsGapped() {
			var answers []string
			if err := json.Unmarshal(raw, &answers); err != nil {
				return nil, err
			}
			state.SetGapAnswers(questionID, answers)
			continue
		}

		sel, err := models.DecodeSelection(q.Type, raw)
		if err != nil {
			return nil, err
		}
		state.SetSelection(questionID, sel)
	}
	return state, nil
}
