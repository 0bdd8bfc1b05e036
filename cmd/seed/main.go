// Command seed fills the local catalog from a JSON fixture. Existing movies
// are left alone, and every average rating is recomputed from reviews
// afterwards.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/Clark-Hu/movie-reviews/internal/catalog"
	"github.com/Clark-Hu/movie-reviews/internal/config"
	"github.com/Clark-Hu/movie-reviews/internal/logging"
	"github.com/Clark-Hu/movie-reviews/internal/repository"
	"github.com/Clark-Hu/movie-reviews/internal/review"
	"github.com/Clark-Hu/movie-reviews/internal/store"
)

func main() {
	data := flag.String("data", "testdata/seed-movies.json", "path to seed file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadDatabase()
	if err != nil {
		bootLogger := zerolog.New(os.Stderr)
		bootLogger.Fatal().Err(err).Msg("config error")
	}
	logger := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat}).
		With().Str("component", "seed").Logger()

	f, err := os.Open(*data)
	if err != nil {
		logger.Fatal().Err(err).Str("path", *data).Msg("open seed file")
	}
	movies, err := catalog.ReadSeed(f)
	_ = f.Close()
	if err != nil {
		logger.Fatal().Err(err).Str("path", *data).Msg("read seed file")
	}

	dbCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	st, err := store.New(dbCtx, cfg.DBURL, store.Options{
		MaxConns:    int32(cfg.DBMaxConns),
		ConnTimeout: time.Duration(cfg.DBConnTimeoutSecs) * time.Second,
		Logger:      logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer st.Close()
	if err := st.Migrate(dbCtx, cfg.MigrationsDir); err != nil {
		logger.Fatal().Err(err).Msg("apply migrations")
	}

	repo := repository.New(st)
	// Seeding never reaches the external catalog.
	resolver := catalog.NewResolver(repo.Movies, repo.Reviews, nil, logger)
	result, err := resolver.Seed(dbCtx, movies)
	if err != nil {
		logger.Fatal().Err(err).Msg("seed catalog")
	}

	recomputed, err := review.NewAggregator(repo.Reviews, repo.Movies, logger).ReconcileAll(dbCtx)
	if err != nil {
		logger.Fatal().Err(err).Msg("recompute ratings")
	}
	logger.Info().
		Int("created", result.Created).
		Int("skipped", result.Skipped).
		Int("ratings_recomputed", recomputed).
		Msg("seed complete")
}
