package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/aproko/clinic-api/internal/config"
	"github.com/aproko/clinic-api/internal/email"
	"github.com/aproko/clinic-api/internal/repository/postgres"
	notifyworker "github.com/aproko/clinic-api/internal/worker"
	"github.com/aproko/clinic-api/pkg/logger"
	redisbroker "github.com/aproko/clinic-api/pkg/messaging/redis"
	"github.com/aproko/clinic-api/pkg/metrics"
	"github.com/aproko/clinic-api/pkg/worker"
)

// The worker binary runs both halves of the notification pipeline: the
// outbox processor publishing committed events to the broker, and the
// notifier turning them into emails.
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	l := logger.NewLogger(nil)

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	broker, err := redisbroker.NewRedisBroker(redisbroker.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, &log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer broker.Close()

	outboxRepo := postgres.NewOutboxRepository(db)
	mailer := email.NewSMTPService(cfg.SMTP)

	processor := worker.NewOutboxProcessor(
		outboxRepo,
		broker,
		worker.OutboxProcessorConfig{
			BatchSize:    cfg.Outbox.BatchSize,
			PollInterval: cfg.Outbox.PollInterval,
		},
		l,
		metrics.NewMetrics("clinic", "worker"),
	)
	notifier := notifyworker.NewNotifier(broker, mailer, l)

	startHealthServer(l)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		l.Info("shutting down...")
		cancel()
	}()

	go func() {
		if err := notifier.Start(ctx); err != nil {
			l.Error(err, "notifier stopped")
		}
	}()

	processor.Start(ctx)
}

func startHealthServer(l *logger.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	go func() {
		if err := http.ListenAndServe(":8081", mux); err != nil {
			l.Error(err, "health check server failed")
			os.Exit(1)
		}
	}()
}
