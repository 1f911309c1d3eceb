package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/phantomop26/TeachForward/config"
	"github.com/phantomop26/TeachForward/src/bridge"
	"github.com/phantomop26/TeachForward/src/hub"
	"github.com/phantomop26/TeachForward/src/identity"
	"github.com/phantomop26/TeachForward/src/router"
	"github.com/phantomop26/TeachForward/src/server"
	"github.com/phantomop26/TeachForward/src/store"
	"github.com/rs/zerolog"
)

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		With().Timestamp().Logger()

	cfg := config.FromEnv()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.NewPostgres(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("database unavailable")
	}
	defer st.Close()
	if err := st.Migrate(ctx); err != nil {
		logger.Fatal().Err(err).Msg("migration failed")
	}

	h := hub.New(logger)
	rt := router.New(h, st, logger)

	// Attempt Redis bridge connection (non-fatal if unavailable).
	rb := bridge.NewRedisBridge(cfg.Redis, h, logger)
	if err := rb.Start(); err != nil {
		logger.Warn().Err(err).Msg("redis bridge unavailable, running standalone")
	} else {
		h.SetBridge(rb)
		defer rb.Stop()
		logger.Info().Str("redis_addr", cfg.Redis.Addr).Msg("redis bridge connected")
	}

	var binder identity.Binder
	switch cfg.AuthMode {
	case "token":
		binder = identity.NewTokenBinder(cfg.JWTSecret)
	default:
		binder = identity.TrustedQuery{}
	}

	srv := server.New(cfg, h, rt, binder, logger)

	go func() {
		<-ctx.Done()
		logger.Info().Msg("shutting down")
		if err := srv.Shutdown(); err != nil {
			logger.Error().Err(err).Msg("shutdown error")
		}
	}()

	logger.Info().
		Str("addr", cfg.ListenAddr).
		Str("auth_mode", cfg.AuthMode).
		Msg("listening")
	if err := srv.Listen(); err != nil {
		logger.Fatal().Err(err).Msg("server error")
	}
}
