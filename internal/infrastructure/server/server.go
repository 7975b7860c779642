package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"github.com/eslsoft/srsd/internal/adapter/httpapi"
	"github.com/eslsoft/srsd/internal/adapter/repository"
	"github.com/eslsoft/srsd/internal/infrastructure/config"
	repo "github.com/eslsoft/srsd/internal/repository"
	"github.com/eslsoft/srsd/internal/scheduler"
	"github.com/eslsoft/srsd/internal/usecase"
)

// Server represents the application server
type Server struct {
	config     *config.Config
	httpServer *http.Server
	logger     *logrus.Logger
	study      usecase.StudyUsecase
	cards      repo.CardRepository
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, logger *logrus.Logger, pool *pgxpool.Pool) *Server {
	store := repository.NewStore(pool)
	cardRepo := repository.NewCardRepository(store)
	wordRepo := repository.NewWordRepository(store)
	userWordRepo := repository.NewUserWordRepository(store)
	settingsRepo := repository.NewSettingsRepository(store)
	logRepo := repository.NewReviewLogRepository(store)

	sched := scheduler.New(cfg.SchedulerParams())
	study := usecase.NewStudyUsecase(store, cardRepo, wordRepo, userWordRepo, settingsRepo, logRepo, sched, logger)

	if logger.GetLevel() < logrus.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(RequestLogger(logger), gin.Recovery())
	engine.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	httpapi.NewStudyHandler(study, logger).Register(engine.Group("/api/v1"))

	handler := cors.New(cors.Options{
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type", "X-User-ID", "X-Request-Id"},
	}).Handler(engine)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler: handler,
	}

	return &Server{
		config:     cfg,
		httpServer: httpServer,
		logger:     logger,
		study:      study,
		cards:      cardRepo,
	}
}

// Study exposes the wired usecase for sibling components such as the
// maintenance jobs.
func (s *Server) Study() usecase.StudyUsecase { return s.study }

// Cards exposes the card repository for the maintenance jobs.
func (s *Server) Cards() repo.CardRepository { return s.cards }

// StartHTTP starts the HTTP server
func (s *Server) StartHTTP() error {
	s.logger.Infof("HTTP server starting on %s", s.httpServer.Addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to serve HTTP: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Errorf("Failed to shutdown HTTP server: %v", err)
	}

	s.logger.Info("Server shutdown complete")
	return nil
}
