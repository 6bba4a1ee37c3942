package main

import (
	"context"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/devpulse/ingest/internal/api"
	"github.com/devpulse/ingest/internal/config"
	"github.com/devpulse/ingest/internal/ingest"
	"github.com/devpulse/ingest/internal/store"
)

func main() {
	// A .env file is optional; real env vars win either way
	_ = godotenv.Load()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	db, err := store.New(cfg.Database.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	client, err := api.NewClient(cfg.GitHubToken, cfg.Retry, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create GitHub client")
	}

	ing := ingest.New(client, func(ctx context.Context) (ingest.Tx, error) {
		return db.Begin(ctx)
	}, log)

	start := time.Now()
	if err := ing.Run(context.Background(), cfg.Owner, cfg.Repos); err != nil {
		log.Fatal().Err(err).Msg("ingestion failed")
	}
	log.Info().Int("repos", len(cfg.Repos)).Dur("elapsed", time.Since(start)).Msg("ingestion complete")
}
