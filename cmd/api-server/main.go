package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Joshsnailz/hospitalflow-sub003/internal/api"
	"github.com/Joshsnailz/hospitalflow-sub003/internal/appointment"
	"github.com/Joshsnailz/hospitalflow-sub003/internal/assignment"
	"github.com/Joshsnailz/hospitalflow-sub003/internal/audit"
	"github.com/Joshsnailz/hospitalflow-sub003/internal/config"
	"github.com/Joshsnailz/hospitalflow-sub003/internal/db"
	"github.com/Joshsnailz/hospitalflow-sub003/internal/directory"
	"github.com/Joshsnailz/hospitalflow-sub003/internal/encounters"
	"github.com/Joshsnailz/hospitalflow-sub003/internal/logging"
	redisclient "github.com/Joshsnailz/hospitalflow-sub003/internal/redis"
	"github.com/Joshsnailz/hospitalflow-sub003/internal/request"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config load error: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logging.New("appointment-service", cfg.Env)
	log.Info().Str("env", cfg.Env).Str("http_port", cfg.HTTPPort).Msg("api-server starting up")

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
			log.Warn().Err(err).Msg("error closing redis")
		}
	}()
	log.Info().Msg("connected to Redis")

	// Audit publisher: RabbitMQ when configured, otherwise a no-op sink.
	var auditor audit.Publisher = audit.NopPublisher{}
	if cfg.RabbitMQURL != "" {
		rabbit, err := audit.NewRabbitPublisher(cfg.RabbitMQURL, log)
		if err != nil {
			log.Fatal().Err(err).Msg("rabbitmq connection error")
		}
		auditor = rabbit
		log.Info().Msg("connected to RabbitMQ")
	} else {
		log.Warn().Msg("RABBITMQ_URL not set, audit events are dropped")
	}
	defer auditor.Close()

	dir := directory.NewHTTPDirectory(cfg.DirectoryBaseURL, cfg.CollabTimeout, log)
	encounterClient := encounters.NewClient(cfg.EncountersBaseURL, cfg.CollabTimeout)
	locker := redisclient.NewRedisLocker(rdb, cfg.AssignLockTTL)

	apptRepo := appointment.NewPgRepository(pgPool)
	engine := assignment.NewEngine(apptRepo, dir, log,
		assignment.WithPoolLimit(cfg.CandidatePoolLimit))

	apptSvc := appointment.NewService(
		apptRepo, engine, dir, encounterClient, auditor, locker,
		appointment.Strategy(cfg.DefaultStrategy), log)

	reqRepo := request.NewPgRepository(pgPool)
	reqSvc := request.NewService(reqRepo, apptSvc, auditor, log)

	router := api.NewRouter(api.RouterConfig{
		Appointments: apptSvc,
		Requests:     reqSvc,
		PgPool:       pgPool,
		Redis:        rdb,
		Log:          log,
		Env:          cfg.Env,
		Version:      version,
	})

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server error")
			stop()
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
