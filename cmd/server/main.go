package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/n0psw/lms-quiz-engine/internal/attempts"
	"github.com/n0psw/lms-quiz-engine/internal/cache"
	"github.com/n0psw/lms-quiz-engine/internal/config"
	"github.com/n0psw/lms-quiz-engine/internal/handlers"
	"github.com/n0psw/lms-quiz-engine/internal/models"
	"github.com/n0psw/lms-quiz-engine/internal/repositories/postgres"
	"github.com/n0psw/lms-quiz-engine/internal/services"
	"github.com/n0psw/lms-quiz-engine/internal/utils"
	"github.com/n0psw/lms-quiz-engine/pkg"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	var logger utils.Logger
	if cfg.Environment == "production" {
		logger = utils.NewDefaultLogger()
		gin.SetMode(gin.ReleaseMode)
	} else {
		logger = utils.NewDevelopmentLogger()
	}
	slogLogger := utils.ToSlogLogger(logger)

	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	if err := db.AutoMigrate(&models.QuizAttempt{}, &models.QuizContent{}); err != nil {
		logger.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	// The quiz cache is optional; without Redis every read goes to
	// Postgres.
	var cacheService cache.CacheService
	redisClient, err := pkg.NewRedisClient(cfg)
	if err != nil {
		logger.Warn("Redis unavailable, quiz caching disabled", "error", err)
	} else {
		defer redisClient.Close()
		cacheService = cache.NewRedisCache(redisClient, slogLogger)
	}

	publisher, err := cfg.Events.CreateEventPublisher(slogLogger)
	if err != nil {
		logger.Error("Failed to create event publisher", "error", err)
		os.Exit(1)
	}
	defer publisher.Close()

	repo := postgres.NewRepository(db)
	validator := utils.NewValidator()

	quizService := services.NewQuizService(repo.Quiz(), cacheService, publisher, slogLogger)
	importExport := services.NewImportExportService(quizService, repo.Attempt(), slogLogger)
	attemptService := attempts.NewService(repo.Attempt(), publisher, slogLogger)

	auth := handlers.NewAuthMiddleware(cfg.Casdoor, logger)
	handlerManager := handlers.NewHandlerManager(quizService, importExport, attemptService, auth, validator, logger)

	router := gin.New()
	router.Use(utils.LoggerMiddleware(logger), gin.Recovery())
	handlerManager.SetupRoutes(router)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("Quiz engine listening", "port", cfg.Port, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Forced shutdown", "error", err)
	}
}
