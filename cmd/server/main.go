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

	"github.com/Clark-Hu/movie-reviews/internal/account"
	"github.com/Clark-Hu/movie-reviews/internal/auth"
	"github.com/Clark-Hu/movie-reviews/internal/catalog"
	"github.com/Clark-Hu/movie-reviews/internal/config"
	httpserver "github.com/Clark-Hu/movie-reviews/internal/http"
	"github.com/Clark-Hu/movie-reviews/internal/logging"
	"github.com/Clark-Hu/movie-reviews/internal/repository"
	"github.com/Clark-Hu/movie-reviews/internal/review"
	"github.com/Clark-Hu/movie-reviews/internal/store"
	"github.com/Clark-Hu/movie-reviews/internal/tmdb"
	"github.com/Clark-Hu/movie-reviews/internal/watchlist"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		bootLogger := zerolog.New(os.Stderr)
		bootLogger.Fatal().Err(err).Msg("config error")
	}

	logger := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	storeOpts := store.Options{
		MaxConns:               int32(cfg.DBMaxConns),
		MinConns:               int32(cfg.DBMinConns),
		MaxConnIdleTime:        time.Duration(cfg.DBMaxIdleSecs) * time.Second,
		MaxConnLifetime:        time.Duration(cfg.DBMaxLifeSecs) * time.Second,
		ConnTimeout:            time.Duration(cfg.DBConnTimeoutSecs) * time.Second,
		StatementCacheCapacity: cfg.DBStatementCache,
		Logger:                 logger,
	}

	st, err := store.New(dbCtx, cfg.DBURL, storeOpts)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer st.Close()

	if err := st.Migrate(dbCtx, cfg.MigrationsDir); err != nil {
		logger.Fatal().Err(err).Str("dir", cfg.MigrationsDir).Msg("apply migrations")
	}

	httpClient, err := tmdb.NewHTTPClient(tmdb.Options{
		BaseURL:      cfg.TMDBBaseURL,
		APIKey:       cfg.TMDBAPIKey,
		ImageBaseURL: cfg.TMDBImageBaseURL,
		Timeout:      time.Duration(cfg.TMDBTimeoutSecs) * time.Second,
		Logger:       logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("init tmdb client")
	}
	gateway := tmdb.NewBreakerClient(httpClient, tmdb.BreakerSettings{}, logger)

	repo := repository.New(st)
	tokens := auth.NewTokenIssuer(cfg.JWTSecret, time.Duration(cfg.TokenTTLHours)*time.Hour)
	aggregator := review.NewAggregator(repo.Reviews, repo.Movies, logger)
	watch := watchlist.NewManager(repo.Watchlist, repo.Movies, repo.Users)

	server := httpserver.New(cfg, httpserver.Deps{
		Health:     st,
		Catalog:    catalog.NewResolver(repo.Movies, repo.Reviews, gateway, logger),
		Reviews:    review.NewController(repo.Reviews, repo.Movies, repo.Users, aggregator, logger),
		Aggregator: aggregator,
		Watchlist:  watch,
		Accounts:   account.NewService(repo.Users, watch, tokens, logger),
		Tokens:     tokens,
	}, logger)

	serverErrCh := make(chan error, 1)
	go func() {
		logger.Info().Str("port", cfg.Port).Msg("http server listening")
		if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			serverErrCh <- err
			return
		}
		serverErrCh <- nil
	}()

	select {
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("server error")
		}
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("graceful shutdown error")
	}
}
