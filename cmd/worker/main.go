package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/intake-api/internal/config"
	"github.com/jwalitptl/intake-api/internal/email"
	"github.com/jwalitptl/intake-api/internal/model"
	"github.com/jwalitptl/intake-api/internal/repository/postgres"
	"github.com/jwalitptl/intake-api/pkg/logger"
	"github.com/jwalitptl/intake-api/pkg/messaging"
	messagingredis "github.com/jwalitptl/intake-api/pkg/messaging/redis"
	"github.com/jwalitptl/intake-api/pkg/metrics"
	"github.com/jwalitptl/intake-api/pkg/worker"
)

// workerEnv carries worker-only overrides that are deployment concerns, not
// application config.
type workerEnv struct {
	BatchSize     int           `envconfig:"OUTBOX_BATCH_SIZE" default:"100"`
	PollInterval  time.Duration `envconfig:"OUTBOX_POLL_INTERVAL" default:"5s"`
	RetryAttempts int           `envconfig:"OUTBOX_RETRY_ATTEMPTS" default:"3"`
	RetryDelay    time.Duration `envconfig:"OUTBOX_RETRY_DELAY" default:"5s"`
	HealthAddr    string        `envconfig:"WORKER_HEALTH_ADDR" default:":8081"`
	NotifyEmail   string        `envconfig:"REVIEWER_NOTIFY_EMAIL"`
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	var env workerEnv
	if err := envconfig.Process("intake", &env); err != nil {
		log.Fatal().Err(err).Msg("failed to load worker environment")
	}

	appLogger := logger.NewLogger(nil)
	appMetrics := metrics.NewMetrics("intake_worker")

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

	baseRepo := postgres.NewBaseRepository(db)
	outboxRepo := postgres.NewOutboxRepository(baseRepo)

	processor := worker.NewOutboxProcessor(outboxRepo, broker, worker.OutboxProcessorConfig{
		BatchSize:     env.BatchSize,
		PollInterval:  env.PollInterval,
		RetryAttempts: env.RetryAttempts,
		RetryDelay:    env.RetryDelay,
	}, appLogger, appMetrics)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	setupHealthCheck(env.HealthAddr, appLogger)

	if env.NotifyEmail != "" {
		emailSvc := email.NewService(cfg.Email)
		go notifyReviewers(ctx, broker, emailSvc, env.NotifyEmail, appLogger)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		appLogger.Info("Shutting down...")
		cancel()
	}()

	processor.Start(ctx)
}

// notifyReviewers mails the on-call reviewer inbox whenever a report reaches
// the generated channel.
func notifyReviewers(ctx context.Context, broker messaging.Broker, emailSvc email.Service, to string, appLogger *logger.Logger) {
	msgs, err := broker.Subscribe(ctx, messaging.ChannelReportGenerated)
	if err != nil {
		appLogger.Error(err, "failed to subscribe to report events")
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-msgs:
			if !ok {
				return
			}
			var payload model.ReportEventPayload
			if err := json.Unmarshal(raw, &payload); err != nil {
				appLogger.Error(err, "failed to decode report event")
				continue
			}
			if err := emailSvc.SendReportReady(ctx, to, &payload); err != nil {
				appLogger.Error(err, "failed to send reviewer notification",
					"report_id", payload.ReportID.String())
			}
		}
	}
}

func setupHealthCheck(addr string, appLogger *logger.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			appLogger.Fatal(err, "Health check server failed")
		}
	}()
}
