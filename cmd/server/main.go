package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/dkeye/tiger/internal/adapters/http"
	"github.com/dkeye/tiger/internal/app"
	"github.com/dkeye/tiger/internal/app/orch"
	"github.com/dkeye/tiger/internal/config"
	"github.com/dkeye/tiger/internal/storage/sqlite"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.Mode == "release" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	} else {
		log.Warn().Str("level", cfg.LogLevel).Msg("unknown log level, keeping info")
	}

	db, err := sqlite.New(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("failed to open database")
	}
	defer db.Close()

	index := app.NewMembershipIndex(db)
	if err := index.Load(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to load membership index")
	}

	reg := app.NewRegistry()
	o := &orch.Orchestrator{
		Registry:     reg,
		Rooms:        app.NewRoomManager(),
		Index:        index,
		Messages:     db,
		Users:        db,
		Relay:        app.NewSignalRelay(reg),
		Policy:       app.SimplePolicy{},
		Limiter:      app.NewRoomRateLimiter(cfg.RateLimit.Count, cfg.RateLimit.Interval),
		HistoryLimit: cfg.HistoryLimit,
	}

	r := router.SetupRouter(ctx, &router.Handlers{
		Cfg:    cfg,
		Orch:   o,
		Auth:   db,
		Health: db,
	})
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("Tiger server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
