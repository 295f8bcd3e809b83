package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/n0psw/lms-quiz-engine/internal/attempts"
	"github.com/n0psw/lms-quiz-engine/internal/models"
	"github.com/n0psw/lms-quiz-engine/internal/services"
	"github.com/n0psw/lms-quiz-engine/internal/utils"
)

type HandlerManager struct {
	quizHandler    *QuizHandler
	attemptHandler *AttemptHandler
	auth           *AuthMiddleware
}

func NewHandlerManager(
	quizService services.QuizService,
	importExport services.ImportExportService,
	attemptService *attempts.Service,
	auth *AuthMiddleware,
	validator *utils.Validator,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		quizHandler:    NewQuizHandler(quizService, importExport, validator, logger),
		attemptHandler: NewAttemptHandler(attemptService, quizService, validator, logger),
		auth:           auth,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "quiz-engine",
		})
	})

	v1 := router.Group("/api/v1")
	v1.Use(hm.auth.Handler())
	{
		// Quiz content routes
		quizzes := v1.Group("/quizzes")
		{
			quizzes.GET("/:step_id", hm.quizHandler.GetQuiz)

			// Editing is restricted to course authors.
			editors := quizzes.Group("")
			editors.Use(RequireRoles(models.RoleTeacher, models.RoleAdmin))
			{
				editors.PUT("/:step_id", hm.quizHandler.SaveQuiz)
				editors.POST("/validate", hm.quizHandler.ValidateQuiz)
				editors.POST("/import", hm.quizHandler.ImportQuiz)
				editors.GET("/:step_id/export", hm.quizHandler.ExportQuiz)
				editors.GET("/:step_id/attempts/export", hm.quizHandler.ExportAttempts)
			}
		}

		// Attempt routes
		attemptRoutes := v1.Group("/attempts")
		{
			attemptRoutes.POST("", hm.attemptHandler.SaveAttempt)
			attemptRoutes.GET("/step/:step_id", hm.attemptHandler.ListAttempts)
			attemptRoutes.GET("/step/:step_id/latest", hm.attemptHandler.GetLatestAttempt)
		}
	}
}
