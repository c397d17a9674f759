package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/MicahParks/keyfunc"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/HankJediAssistant/hank-board/internal/api"
	"github.com/HankJediAssistant/hank-board/internal/config"
	"github.com/HankJediAssistant/hank-board/internal/domain"
	"github.com/HankJediAssistant/hank-board/internal/hub"
	"github.com/HankJediAssistant/hank-board/internal/storage"
	"github.com/HankJediAssistant/hank-board/internal/subscription"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("env file: %v", err)
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := log.New()
	if cfg.Debug {
		logger.SetLevel(log.DebugLevel)
	}
	if cfg.LogFormat == "json" {
		logger.SetFormatter(&log.JSONFormatter{})
	}

	roster, err := storage.LoadRoster(cfg.FamilyPath)
	if err != nil {
		logger.Fatalf("roster: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	h := hub.New(cfg.SubscriberBuffer)
	deps := api.Deps{
		Board:  storage.NewFileBoard(cfg.TodoPath),
		Jobs:   storage.NewJobStore(cfg.CronPath, logger),
		Roster: roster,
		Codec:  domain.NewCodec(roster),
		Hub:    h,
		Logger: logger,
	}

	if cfg.Storage.ConnectionString != "" {
		board, err := storage.NewTableBoard(cfg.Storage.ConnectionString, cfg.Storage.Table)
		if err != nil {
			logger.Fatalf("storage: %v", err)
		}
		if err := board.EnsureTable(ctx); err != nil {
			logger.Fatalf("storage: %v", err)
		}
		deps.Board = board
		logger.WithField("table", cfg.Storage.Table).Info("board stored in table storage")
	}

	if cfg.Redis.URL != "" {
		redisOpts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			logger.Fatalf("redis: %v", err)
		}
		rc := redis.NewClient(redisOpts)
		defer rc.Close()
		deps.Notifier = subscription.NewNotifier(rc, cfg.Redis.Channel, h)
		go subscription.SubscribeUpdates(ctx, logger, rc, cfg.Redis.Channel, func(ev hub.Event) {
			h.Broadcast(ev)
		})
		logger.WithField("channel", cfg.Redis.Channel).Info("relaying board events through redis")
	}

	switch {
	case cfg.Auth.JWKSURL != "":
		jwks, err := keyfunc.Get(cfg.Auth.JWKSURL, keyfunc.Options{})
		if err != nil {
			logger.Fatalf("jwks: %v", err)
		}
		defer jwks.EndBackground()
		deps.Auth = api.NewJWKSAuth(jwks, cfg.Auth.Audience, cfg.Auth.Issuer)
	case cfg.Auth.Secret != "":
		deps.Auth = api.NewSecretAuth(cfg.Auth.Secret, cfg.Auth.Audience, cfg.Auth.Issuer)
	}
	if !cfg.Auth.Enabled() {
		logger.Warn("write routes are unauthenticated")
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, echo.HeaderContentEncoding},
	}))

	api.Register(e, deps)
	if info, err := os.Stat(cfg.PublicDir); err == nil && info.IsDir() {
		e.Static("/", cfg.PublicDir)
	}

	go func() {
		logger.WithField("addr", cfg.ListenAddr()).WithField("todo", cfg.TodoPath).Info("board server listening")
		if err := e.Start(cfg.ListenAddr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	h.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("shutdown")
	}
}
