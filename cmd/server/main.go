package main

import (
	"context"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/0xYujan/Online-Code-IDE/internal/api"
	"github.com/0xYujan/Online-Code-IDE/internal/config"
	"github.com/0xYujan/Online-Code-IDE/internal/metrics"
	"github.com/0xYujan/Online-Code-IDE/internal/routers"
	"github.com/0xYujan/Online-Code-IDE/internal/session"
	"github.com/0xYujan/Online-Code-IDE/internal/store"
)

// Seams for tests.
var (
	listenAndServe = http.ListenAndServe
	exitFunc       = func(err error) { log.Fatal(err) }
)

func run(_ context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	var gateway store.Gateway
	switch {
	case cfg.RedisAddr != "":
		gateway = store.NewRedisGateway(cfg.RedisAddr)
		logger.Info("using redis persistence gateway", zap.String("addr", cfg.RedisAddr))
	case cfg.ProjectServiceURL != "":
		gateway = store.NewProjectClient(cfg.ProjectServiceURL)
		logger.Info("using project service gateway", zap.String("url", cfg.ProjectServiceURL))
	default:
		logger.Info("no persistence gateway configured, rooms start empty")
	}

	hub := session.NewHub(cfg.RoomGracePeriod, logger)
	coord := session.NewCoordinator(hub, gateway, logger)
	handlers := api.NewHandlers(logger, coord, gateway, []byte(cfg.JWTSecret))

	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		metrics.Middleware("sync"),
	)
	r.Mount("/", routers.New(handlers, cfg.AllowedOrigins))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("ok")) })
	r.Get("/readyz", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("ready")) })

	addr := ":" + cfg.Port
	logger.Info("sync service listening", zap.String("addr", addr))
	return listenAndServe(addr, r)
}

func main() {
	if err := run(context.Background()); err != nil {
		exitFunc(err)
	}
}
