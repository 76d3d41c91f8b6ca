package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/Joshsnailz/hospitalflow-sub003/internal/appointment"
	"github.com/Joshsnailz/hospitalflow-sub003/internal/audit"
	"github.com/Joshsnailz/hospitalflow-sub003/internal/config"
	"github.com/Joshsnailz/hospitalflow-sub003/internal/db"
	"github.com/Joshsnailz/hospitalflow-sub003/internal/logging"
)

// The no-show sweeper marks scheduled and confirmed appointments whose time
// passed the grace period as no_show. Only the appointment repository and an
// audit sink are needed; assignment and collaborators stay out of this
// binary.
func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config load error: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logging.New("no-show-worker", cfg.Env)
	log.Info().
		Str("env", cfg.Env).
		Dur("interval", cfg.WorkerInterval).
		Dur("grace", cfg.NoShowGrace).
		Msg("no-show worker starting up")

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

	var auditor audit.Publisher = audit.NopPublisher{}
	if cfg.RabbitMQURL != "" {
		rabbit, err := audit.NewRabbitPublisher(cfg.RabbitMQURL, log)
		if err != nil {
			log.Fatal().Err(err).Msg("rabbitmq connection error")
		}
		auditor = rabbit
	}
	defer auditor.Close()

	repo := appointment.NewPgRepository(pgPool)
	sweeper := appointment.NewSweeper(repo, auditor, log)

	runOnce(rootCtx, sweeper, cfg.NoShowGrace, log)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Info().Msg("shutdown signal received, stopping no-show worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, sweeper, cfg.NoShowGrace, log)
		}
	}
}

func runOnce(ctx context.Context, sweeper *appointment.Sweeper, grace time.Duration, log zerolog.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	swept, err := sweeper.SweepNoShows(runCtx, grace)
	if err != nil {
		log.Error().Err(err).Msg("no-show sweep error")
		return
	}
	log.Info().Int("swept", swept).Dur("took", time.Since(start)).Msg("no-show sweep complete")
}
