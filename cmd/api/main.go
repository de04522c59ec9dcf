package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/intake-api/internal/ai/inference"
	"github.com/jwalitptl/intake-api/internal/ai/retrieval"
	"github.com/jwalitptl/intake-api/internal/ai/translate"
	"github.com/jwalitptl/intake-api/internal/config"
	"github.com/jwalitptl/intake-api/internal/handler"
	authHandler "github.com/jwalitptl/intake-api/internal/handler/auth"
	interviewHandler "github.com/jwalitptl/intake-api/internal/handler/interview"
	reportHandler "github.com/jwalitptl/intake-api/internal/handler/report"
	reviewHandler "github.com/jwalitptl/intake-api/internal/handler/review"
	"github.com/jwalitptl/intake-api/internal/middleware"
	"github.com/jwalitptl/intake-api/internal/repository/postgres"
	"github.com/jwalitptl/intake-api/internal/router"
	authService "github.com/jwalitptl/intake-api/internal/service/auth"
	"github.com/jwalitptl/intake-api/internal/service/confidence"
	"github.com/jwalitptl/intake-api/internal/service/dialogue"
	"github.com/jwalitptl/intake-api/internal/service/gate"
	"github.com/jwalitptl/intake-api/internal/service/guardrail"
	"github.com/jwalitptl/intake-api/internal/service/interview"
	"github.com/jwalitptl/intake-api/internal/service/normalizer"
	reportService "github.com/jwalitptl/intake-api/internal/service/report"
	reviewService "github.com/jwalitptl/intake-api/internal/service/review"
	"github.com/jwalitptl/intake-api/internal/service/safety"
	"github.com/jwalitptl/intake-api/internal/service/tracker"
	"github.com/jwalitptl/intake-api/pkg/auth"
	"github.com/jwalitptl/intake-api/pkg/logger"
	messagingredis "github.com/jwalitptl/intake-api/pkg/messaging/redis"
	"github.com/jwalitptl/intake-api/pkg/metrics"
	"github.com/jwalitptl/intake-api/pkg/security"
	"github.com/jwalitptl/intake-api/pkg/worker"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(nil)
	appMetrics := metrics.NewMetrics("intake")

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	broker, err := messagingredis.NewRedisBroker(messagingredis.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, appLogger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer broker.Close()

	// Repositories
	baseRepo := postgres.NewBaseRepository(db)
	reportRepo := postgres.NewReportRepository(baseRepo)
	sessionRepo := postgres.NewSessionRepository(baseRepo)
	contextRepo := postgres.NewPatientContextRepository(baseRepo)
	reviewerRepo := postgres.NewReviewerRepository(baseRepo)
	outboxRepo := postgres.NewOutboxRepository(baseRepo)

	// External AI clients
	inferenceClient := inference.NewClient(cfg.Inference, appMetrics)
	retrievalClient := retrieval.NewClient(cfg.Retrieval)
	translateClient := translate.NewClient(cfg.Translation)

	// Interview pipeline
	normalizerSvc := normalizer.NewService(translateClient, appLogger)
	trackerSvc := tracker.NewService(tracker.Config{
		TargetPoolSize:           cfg.Interview.TargetPoolSize,
		MinPoolBeforeInference:   cfg.Interview.MinPoolBeforeInference,
		MinDiseasesForCompletion: cfg.Interview.MinDiseasesForCompletion,
	}, inferenceClient, appLogger)
	estimator := confidence.NewEstimator(confidence.Config{
		MinimumTurns: cfg.Interview.MinimumTurns,
	})
	completionGate := gate.NewGate(gate.Config{
		MinimumTurns:         cfg.Interview.MinimumTurns,
		MaximumTurns:         cfg.Interview.MaximumTurns,
		ConfidenceThreshold:  cfg.Interview.ConfidenceThreshold,
		SecondaryThreshold:   cfg.Interview.SecondaryThreshold,
		CompletionCandidates: cfg.Interview.CompletionCandidates,
	})
	dialoguePolicy := dialogue.NewPolicy(dialogue.Config{
		ConversationWindow:    cfg.Interview.ConversationWindow,
		KnowledgeExcerptChars: cfg.Interview.KnowledgeExcerptChars,
	}, inferenceClient, appLogger)
	guardrailFilter := guardrail.NewFilter(appLogger, appMetrics)

	interviewSvc := interview.NewService(
		cfg.Interview,
		normalizerSvc,
		retrievalClient,
		contextRepo,
		trackerSvc,
		estimator,
		completionGate,
		dialoguePolicy,
		guardrailFilter,
		broker.Client(),
		appLogger,
		appMetrics,
	)

	// Report generation, screening, and review
	screener := safety.NewScreener(inferenceClient, appLogger)
	reportSvc := reportService.NewService(
		inferenceClient, reportRepo, sessionRepo, outboxRepo, screener, appLogger, appMetrics)
	reviewSvc := reviewService.NewService(
		reportRepo, outboxRepo, inferenceClient, appLogger, appMetrics)

	// Reviewer auth
	jwtSvc := auth.NewJWTService(cfg.JWT.Secret, time.Duration(cfg.JWT.ExpiryHours)*time.Hour)
	hasher := security.NewBcryptHasher(0)
	authSvc := authService.NewService(reviewerRepo, hasher, jwtSvc)
	authMiddleware := middleware.NewAuthMiddleware(authSvc)

	// Handlers
	h := handler.NewHandler()
	authH := authHandler.NewHandler(authSvc)
	interviewH := interviewHandler.NewHandler(interviewSvc, sessionRepo)
	reportH := reportHandler.NewHandler(reportSvc, reportRepo, contextRepo)
	reviewH := reviewHandler.NewHandler(reviewSvc)

	r := router.NewRouter(authMiddleware, authH, interviewH, reportH, reviewH, h, router.RouterConfig{
		RequestTimeout: time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
		RateLimit:      middleware.RateLimiterConfig{Rate: rate.Limit(100), Burst: 200},
	})
	r.Setup()

	// Outbox processor drains report events into the broker.
	outboxProcessor := worker.NewOutboxProcessor(
		outboxRepo, broker, worker.DefaultOutboxProcessorConfig(), appLogger, appMetrics)
	processorCtx, stopProcessor := context.WithCancel(context.Background())
	defer stopProcessor()
	go outboxProcessor.Start(processorCtx)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r.Engine(),
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")
	stopProcessor()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}
