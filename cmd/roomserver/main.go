package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mossy-p/conference-rooms/config"
	"github.com/mossy-p/conference-rooms/internal/credentials"
	"github.com/mossy-p/conference-rooms/internal/handlers"
	"github.com/mossy-p/conference-rooms/internal/metrics"
	"github.com/mossy-p/conference-rooms/internal/rooms"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	level, _ := zerolog.ParseLevel(cfg.LogLevel)
	zerolog.SetGlobalLevel(level)
	if cfg.IsProduction() {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.DebugTokens {
		log.Warn().Msg("DEBUG_TOKENS is enabled: issued access tokens will be logged")
	}

	issuer := credentials.NewIssuer(cfg.LiveKit, cfg.DebugTokens)
	if err := issuer.Validate(); err != nil {
		log.Fatal().Err(err).Msg("LiveKit API credentials not configured; set LIVEKIT_API_KEY and LIVEKIT_API_SECRET")
	}
	log.Info().Str("key_id", issuer.KeyID()).Msg("LiveKit API key loaded")

	m := metrics.New()
	registry := rooms.NewRegistry(issuer)
	hub := handlers.NewHub()
	router := handlers.NewRouter(cfg, registry, issuer, hub, m)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("conference room server started")
		log.Info().Msgf("health check: http://localhost:%s/api/health", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server error")
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	log.Info().Msg("server exited")
}
