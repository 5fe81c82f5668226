package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"

	"fightcancer/internal/config"
	"fightcancer/internal/db"
	httpSrv "fightcancer/internal/http"
	"fightcancer/internal/logging"
	"fightcancer/internal/migrations"
	"fightcancer/internal/model"
	"fightcancer/internal/scoring"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	logging.Init(cfg.LogLevel, cfg.LogFormat)

	// A missing pipeline degrades to the stand-in; a pipeline built for
	// another encoding is refused.
	scorer, err := scoring.Load(cfg.ModelPath, cfg.FeaturesPath)
	if errors.Is(err, model.ErrSchemaMismatch) {
		log.Fatal().Err(err).Msg("pipeline does not match the encoding contract")
	}

	var store db.Store
	switch cfg.SessionStore {
	case config.StoreMemory:
		store = db.NewMemStore()
	default:
		// Run embedded migrations (idempotent)
		if err := migrations.Run(cfg.DatabaseURL); err != nil {
			log.Fatal().Err(err).Msg("migrations")
		}
		store = db.NewPGStore(db.MustOpen(cfg.DatabaseURL))
	}

	var queue httpSrv.Enqueuer
	if cfg.TrainingEnabled() {
		asq := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
		defer asq.Close()
		queue = asq
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	srv := httpSrv.NewServer(cfg.ListenAddr, httpSrv.Deps{
		Store:    store,
		Scorer:   scorer,
		Queue:    queue,
		APIToken: cfg.APIToken,
		Registry: reg,
	})

	go func() {
		log.Info().Str("addr", srv.Addr).Bool("degraded", scorer.Degraded()).Msg("api listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdown); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
}
