package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/n0psw/lms-quiz-engine/internal/models"
	"github.com/n0psw/lms-quiz-engine/internal/services"
	"github.com/n0psw/lms-quiz-engine/internal/utils"
)

// QuizHandler exposes quiz content management over HTTP.
type QuizHandler struct {
	BaseHandler
	quizzes      services.QuizService
	importExport services.ImportExportService
	validator    *utils.Validator
}

func NewQuizHandler(quizService services.QuizService, importExport services.ImportExportService, validator *utils.Validator, logger utils.Logger) *QuizHandler {
	return &QuizHandler{
		BaseHandler:  NewBaseHandler(logger),
		quizzes:      quizService,
		importExport: importExport,
		validator:    validator,
	}
}

// SaveQuizRequest is the editor's save payload.
type SaveQuizRequest struct {
	CourseID string      `json:"course_id"`
	LessonID string      `json:"lesson_id"`
	Quiz     models.Quiz `json:"quiz" validate:"required"`
}

// GetQuiz returns the quiz stored on a lesson step.
// GET /api/v1/quizzes/:step_id
func (h *QuizHandler) GetQuiz(c *gin.Context) {
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

	h.RespondWithSuccess(c, http.StatusOK, "Quiz", quiz, "step_id", stepID)
}

// SaveQuiz validates and stores a step's quiz content.
// PUT /api/v1/quizzes/:step_id
func (h *QuizHandler) SaveQuiz(c *gin.Context) {
	stepID := c.Param("step_id")

	var req SaveQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Validation failed", err, err)
		return
	}

	results, err := h.quizzes.SaveQuiz(c.Request.Context(), stepID, req.CourseID, req.LessonID, &req.Quiz)
	if err != nil {
		if errors.Is(err, services.ErrQuizInvalid) {
			h.RespondWithError(c, http.StatusUnprocessableEntity, "Quiz contains invalid questions", err, results)
			return
		}
		h.RespondWithError(c, http.StatusInternalServerError, "Failed to save quiz", err)
		return
	}

	h.RespondWithSuccess(c, http.StatusOK, "Quiz saved", gin.H{
		"quiz":       req.Quiz,
		"validation": results,
	}, "step_id", stepID, "questions", len(req.Quiz.Questions))
}

// ValidateQuiz runs editor validation without persisting anything.
// POST /api/v1/quizzes/validate
func (h *QuizHandler) ValidateQuiz(c *gin.Context) {
	var quiz models.Quiz
	if err := c.ShouldBindJSON(&quiz); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	results := h.quizzes.ValidateQuiz(&quiz)
	h.RespondWithSuccess(c, http.StatusOK, "Validation results", results,
		"questions", len(quiz.Questions))
}

// ImportQuiz parses an uploaded spreadsheet into quiz questions. The
// result is returned to the editor for review, nothing is saved yet.
// POST /api/v1/quizzes/import
func (h *QuizHandler) ImportQuiz(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Missing file upload", err)
		return
	}
	defer file.Close()

	result, err := h.importExport.ImportQuizFromFile(c.Request.Context(), file, header.Filename)
	if err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Failed to import quiz", err)
		return
	}

	h.RespondWithSuccess(c, http.StatusOK, "Quiz imported", result,
		"filename", header.Filename,
		"success_count", result.SuccessCount,
		"error_count", result.ErrorCount)
}

// ExportQuiz downloads a step's quiz as a spreadsheet.
// GET /api/v1/quizzes/:step_id/export
func (h *QuizHandler) ExportQuiz(c *gin.Context) {
	stepID := c.Param("step_id")

	data, err := h.importExport.ExportQuizToExcel(c.Request.Context(), stepID)
	if err != nil {
		if errors.Is(err, services.ErrQuizNotFound) {
			h.RespondWithError(c, http.StatusNotFound, "Quiz not found for step", err)
			return
		}
		h.RespondWithError(c, http.StatusInternalServerError, "Failed to export quiz", err)
		return
	}

	h.LogInfo(c, "Quiz exported", "step_id", stepID, "bytes", len(data))
	serveXLSX(c, fmt.Sprintf("quiz-%s.xlsx", stepID), data)
}

// ExportAttempts downloads a step's attempt results as a spreadsheet.
// GET /api/v1/quizzes/:step_id/attempts/export
func (h *QuizHandler) ExportAttempts(c *gin.Context) {
	stepID := c.Param("step_id")

	data, err := h.importExport.ExportAttemptsToExcel(c.Request.Context(), stepID)
	if err != nil {
		h.RespondWithError(c, http.StatusInternalServerError, "Failed to export attempts", err)
		return
	}

	h.LogInfo(c, "Attempt results exported", "step_id", stepID, "bytes", len(data))
	serveXLSX(c, fmt.Sprintf("quiz-%s-results.xlsx", stepID), data)
}

func serveXLSX(c *gin.Context, filename string, data []byte) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}
