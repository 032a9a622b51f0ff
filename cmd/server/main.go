package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/floorsync/floorsync/internal/bus"
	"github.com/floorsync/floorsync/internal/config"
	"github.com/floorsync/floorsync/internal/database"
	"github.com/floorsync/floorsync/internal/handler"
	"github.com/floorsync/floorsync/internal/middleware"
	"github.com/floorsync/floorsync/internal/queue"
	"github.com/floorsync/floorsync/internal/realtime"
	"github.com/floorsync/floorsync/internal/repository"
	"github.com/floorsync/floorsync/internal/router"
	"github.com/floorsync/floorsync/internal/service"
)

func main() {
	_ = godotenv.Load()

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	cfg := config.Load()
	if cfg.Env == "dev" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stdout}).Level(zerolog.DebugLevel)
	}

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		logger.Fatal().Err(err).Msg("database connection failed")
	}
	defer db.Close()
	store := repository.NewMySQLStore(db)

	// Redis carries the cross-process bus, shared sequence counters and
	// rate limiting.  Without it a single process still serves correctly
	// on the in-memory equivalents.
	rdb := config.NewRedisClient()
	var (
		eventBus bus.Bus
		seq      realtime.Sequencer
	)
	if rdb != nil {
		eventBus = bus.NewRedisBus(rdb, logger)
		seq = realtime.NewRedisSequencer(rdb, logger)
		logger.Info().Msg("redis connected, cross-process fan-out enabled")
	} else {
		eventBus = bus.NewMemoryBus()
		seq = realtime.NewLocalSequencer()
		logger.Warn().Msg("redis unavailable, falling back to in-process bus")
	}
	defer eventBus.Close()

	registry := realtime.NewRegistry(logger)
	dispatcher := realtime.NewDispatcher(eventBus, registry, seq, logger)

	heartbeatInterval := time.Duration(cfg.HeartbeatIntervalSec) * time.Second
	idleWindow := heartbeatInterval * time.Duration(cfg.EvictionMultiplier)
	monitor := realtime.NewMonitor(registry, dispatcher.Detach, heartbeatInterval, cfg.EvictionMultiplier, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go monitor.Start(ctx)

	if cfg.AMQPURL != "" {
		go queue.StartActivityConsumer(cfg.AMQPURL)
	}

	seating := service.NewSeatingService(store, logger)
	reconciler := service.NewReconciler(store)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())

	router.RegisterRoutes(e, router.Handlers{
		Sync:  handler.NewSyncHandler(reconciler),
		Guest: handler.NewGuestHandler(seating, dispatcher, cfg.AMQPURL),
		Table: handler.NewTableHandler(seating, dispatcher, cfg.AMQPURL, cfg.CanvasWidth, cfg.CanvasHeight),
		Live:  handler.NewLiveHandler(dispatcher, cfg.SendQueueSize, idleWindow, logger),
	}, middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("listening")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	registry.Drain()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown failed")
	}
}
