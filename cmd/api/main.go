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

	"github.com/aproko/clinic-api/internal/config"
	"github.com/aproko/clinic-api/internal/email"
	adminHandler "github.com/aproko/clinic-api/internal/handler/admin"
	appointmentHandler "github.com/aproko/clinic-api/internal/handler/appointment"
	authHandler "github.com/aproko/clinic-api/internal/handler/auth"
	doctorHandler "github.com/aproko/clinic-api/internal/handler/doctor"
	healthHandler "github.com/aproko/clinic-api/internal/handler/health"
	patientHandler "github.com/aproko/clinic-api/internal/handler/patient"
	"github.com/aproko/clinic-api/internal/middleware"
	"github.com/aproko/clinic-api/internal/repository/postgres"
	"github.com/aproko/clinic-api/internal/router"
	appointmentService "github.com/aproko/clinic-api/internal/service/appointment"
	authService "github.com/aproko/clinic-api/internal/service/auth"
	doctorService "github.com/aproko/clinic-api/internal/service/doctor"
	patientService "github.com/aproko/clinic-api/internal/service/patient"
	"github.com/aproko/clinic-api/pkg/auth"
	"github.com/aproko/clinic-api/pkg/lock"
	redisbroker "github.com/aproko/clinic-api/pkg/messaging/redis"
	"github.com/aproko/clinic-api/pkg/metrics"
	"github.com/aproko/clinic-api/pkg/security"
	"github.com/aproko/clinic-api/pkg/validator"
)

const directoryCacheTTL = 30 * time.Second

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

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

	if err := validator.RegisterCustomValidations(); err != nil {
		log.Fatal().Err(err).Msg("failed to register validations")
	}

	// Repositories
	userRepo := postgres.NewUserRepository(db)
	patientRepo := postgres.NewPatientRepository(db)
	doctorRepo := postgres.NewDoctorRepository(db)
	scheduleRepo := postgres.NewScheduleRepository(db)
	appointmentRepo := postgres.NewAppointmentRepository(db)

	// Shared infrastructure
	jwtService := auth.NewJWTService(auth.Config{
		Secret:             cfg.JWT.Secret,
		RefreshSecret:      cfg.JWT.RefreshSecret,
		ExpiryHours:        cfg.JWT.ExpiryHours,
		RefreshExpiryHours: cfg.JWT.RefreshExpiryHours,
	})
	hasher := security.NewBcryptHasher(0)
	mailer := email.NewSMTPService(cfg.SMTP)
	slotLocker := lock.NewRedisSlotLocker(broker.Client(), cfg.Redis.LockTTL)
	appMetrics := metrics.NewMetrics("clinic", "api")

	// Services
	authSvc := authService.NewService(userRepo, patientRepo, doctorRepo, hasher, jwtService, log.Logger)
	patientSvc := patientService.NewService(patientRepo, log.Logger)
	doctorSvc := doctorService.NewService(doctorRepo, scheduleRepo, hasher, mailer, log.Logger)
	appointmentSvc := appointmentService.NewService(
		appointmentRepo, scheduleRepo, patientRepo, doctorRepo, slotLocker, appMetrics)

	// Router
	authMw := middleware.NewAuthMiddleware(jwtService)
	r := router.NewRouter(authMw, router.Handlers{
		Health:      healthHandler.NewHandler(db, broker.Client()),
		Auth:        authHandler.NewHandler(authSvc),
		Patient:     patientHandler.NewHandler(patientSvc),
		Doctor:      doctorHandler.NewHandler(doctorSvc, appointmentSvc),
		Appointment: appointmentHandler.NewHandler(appointmentSvc),
		Admin:       adminHandler.NewHandler(doctorSvc, patientSvc),
	}, router.Config{
		CORS:              middleware.DefaultCORSConfig(),
		RequestTimeout:    cfg.Server.RequestTimeout,
		RateLimitRPS:      cfg.RateLimit.RequestsPerSecond,
		RateLimitBurst:    cfg.RateLimit.Burst,
		DirectoryCacheTTL: directoryCacheTTL,
	})
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}
