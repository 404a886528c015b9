package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/sanfelipe/dental-clinic-backend/internal/config"
	"github.com/sanfelipe/dental-clinic-backend/internal/db"
	"github.com/sanfelipe/dental-clinic-backend/internal/notify"
	"github.com/sanfelipe/dental-clinic-backend/internal/whatsapp"
)

func main() {
	log := zerolog.New(os.Stderr).With().Timestamp().Str("service", "notify-worker").Logger()
	log.Info().Msg("notify-worker starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load error")
	}

	log.Info().
		Str("env", cfg.Env).
		Dur("interval", cfg.NotifyInterval).
		Bool("simulation", cfg.WhatsAppSimulation).
		Msg("running dispatch worker")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	log.Info().Msg("connected to Postgres")

	var sender whatsapp.Sender
	if cfg.WhatsAppSimulation {
		sender = whatsapp.NewSimulatedSender(log)
	} else {
		sender = whatsapp.NewTwilioSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioWhatsAppFrom)
	}

	worker := notify.NewWorker(notify.NewPgRepository(pgPool), sender, notify.WorkerConfig{
		Interval:    cfg.NotifyInterval,
		BatchSize:   cfg.NotifyBatchSize,
		MaxAttempts: cfg.NotifyMaxAttempts,
	}, log)

	worker.Run(rootCtx)
}
