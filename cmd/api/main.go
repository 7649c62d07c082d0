package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"imageserver/internal/auth"
	"imageserver/internal/http/handlers"
	"imageserver/internal/http/httpapi"
	"imageserver/internal/infra"
	"imageserver/internal/service"
	"imageserver/internal/storage"
	"imageserver/internal/transform"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	verifier, err := auth.NewVerifier(cfg.APIKeyHashes, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to parse api key hashes")
	}

	store, err := storage.NewStore(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to prepare stage directories")
	}
	cache, err := storage.NewCache(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to prepare cache directory")
	}

	svc := service.New(store, cache, transform.NewImagingBackend(), logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Reclamation of expired pending uploads runs for the process lifetime.
	sweeper := storage.NewSweeper(store, cfg, logger)
	go sweeper.Run(ctx)

	app := handlers.NewApp(svc, verifier, logger, cfg.MaxUploadBytes)
	router := httpapi.NewRouter(app, cfg, logger)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
