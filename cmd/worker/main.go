package main

import (
	"context"

	"github.com/rs/zerolog/log"

	"fightcancer/internal/config"
	"fightcancer/internal/db"
	"fightcancer/internal/logging"
	"fightcancer/internal/migrations"
	"fightcancer/internal/storage"
	"fightcancer/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	logging.Init(cfg.LogLevel, cfg.LogFormat)
	if !cfg.TrainingEnabled() {
		log.Fatal().Msg("the worker needs REDIS_ADDR and SESSION_STORE=postgres")
	}
	if err := migrations.Run(cfg.DatabaseURL); err != nil {
		log.Fatal().Err(err).Msg("migrations")
	}

	w := &worker.Server{
		Store:       db.NewPGStore(db.MustOpen(cfg.DatabaseURL)),
		ArtifactDir: cfg.ArtifactDir,
	}
	if cfg.StorageEnabled() {
		s3c, err := storage.New(context.Background(), storage.Options{
			Endpoint:  cfg.MinioEndpoint,
			Bucket:    cfg.MinioBucket,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("storage")
		}
		w.S3 = s3c
	}
	ev := log.Info().Str("redis", cfg.RedisAddr)
	if w.S3 != nil {
		ev = ev.Str("bucket", w.S3.Bucket())
	}
	ev.Msg("worker starting")
	if err := worker.Run(cfg.RedisAddr, w); err != nil {
		log.Fatal().Err(err).Msg("worker")
	}
}
