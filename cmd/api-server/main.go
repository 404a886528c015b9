package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/sanfelipe/dental-clinic-backend/internal/api"
	"github.com/sanfelipe/dental-clinic-backend/internal/audit"
	"github.com/sanfelipe/dental-clinic-backend/internal/auth"
	"github.com/sanfelipe/dental-clinic-backend/internal/clinic"
	"github.com/sanfelipe/dental-clinic-backend/internal/config"
	"github.com/sanfelipe/dental-clinic-backend/internal/db"
	"github.com/sanfelipe/dental-clinic-backend/internal/notify"
	"github.com/sanfelipe/dental-clinic-backend/internal/redisclient"
	"github.com/sanfelipe/dental-clinic-backend/internal/whatsapp"
)

const version = "1.0.0"

func main() {
	log := zerolog.New(os.Stderr).With().Timestamp().Str("service", "api-server").Logger()
	log.Info().Msg("api-server starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load error")
	}

	log.Info().Str("env", cfg.Env).Str("http_port", cfg.HTTPPort).Msg("configuration loaded")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	log.Info().Msg("connected to Postgres")

	// Connect Redis
	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection error")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Error().Err(err).Msg("error closing redis")
		}
	}()
	log.Info().Msg("connected to Redis")

	var sender whatsapp.Sender
	if cfg.WhatsAppSimulation {
		sender = whatsapp.NewSimulatedSender(log)
		log.Info().Msg("whatsapp dispatch in simulation mode")
	} else {
		sender = whatsapp.NewTwilioSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioWhatsAppFrom)
	}

	clinicRepo := clinic.NewPgRepository(pgPool)
	notifRepo := notify.NewPgRepository(pgPool)
	locker := redisclient.NewRedisBookingLocker(rdb, cfg.BookingLockTTL)
	auditor := audit.NewRecorder(pgPool, log)
	tokens := auth.NewTokenStore(pgPool)
	svc := clinic.NewService(clinicRepo, locker, notifRepo, sender, auditor, log, cfg.ReminderSendHour)

	router := api.NewRouter(api.RouterConfig{
		Appointments:     svc,
		Notifications:    notifRepo,
		Patients:         clinicRepo,
		Sessions:         tokens,
		NotifyMaxRetries: cfg.NotifyMaxAttempts,
		PgPool:           pgPool,
		Redis:            rdb,
		Logger:           log,
		Env:              cfg.Env,
		Version:          version,
	})

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server error")
		}
	}()

	<-rootCtx.Done()
	log.Info().Msg("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
