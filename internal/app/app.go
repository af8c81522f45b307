// Package app wires the service together and owns its lifecycle.
package app

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/aresmaps/mars_relief/internal/coverage"
	"github.com/aresmaps/mars_relief/internal/demstore"
	v1 "github.com/aresmaps/mars_relief/internal/infrastructure/http/v1"
	"github.com/aresmaps/mars_relief/internal/infrastructure/http/v1/handler"
	"github.com/aresmaps/mars_relief/internal/loader"
	"github.com/aresmaps/mars_relief/internal/pool"
	"github.com/aresmaps/mars_relief/internal/render/backend"
	_ "github.com/aresmaps/mars_relief/internal/render/backend/gpu"
	_ "github.com/aresmaps/mars_relief/internal/render/backend/software"
	"github.com/aresmaps/mars_relief/internal/resultcache"
	"github.com/aresmaps/mars_relief/internal/scheduler"
	"github.com/aresmaps/mars_relief/pkg/config"
	"github.com/aresmaps/mars_relief/pkg/http_server"
	"github.com/aresmaps/mars_relief/pkg/logger"
	"github.com/aresmaps/mars_relief/pkg/telemetry"
)

const shutdownTimeout = 30 * time.Second

func Run(cfg *config.Config) {
	l := logger.NewZapLogger(cfg.Logger.Level)
	defer l.Sync()

	l.Info("app config", "cfg", cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ctx = logger.WithLogger(ctx, l)

	if cfg.Telemetry.Enabled {
		shutdownTracer, err := telemetry.InitTracer(telemetry.Config{
			ServiceName:    cfg.Telemetry.ServiceName,
			ServiceVersion: cfg.Telemetry.ServiceVersion,
			Environment:    cfg.Telemetry.Environment,
			OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		}, l)
		if err != nil {
			l.Fatal("failed to initialize tracing", "error", err)
		}
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTracer(flushCtx); err != nil {
				l.Error("tracer shutdown failed", "error", err)
			}
		}()
	}

	store, err := demstore.New(cfg.Store, l)
	if err != nil {
		l.Fatal("failed to initialize DEM store", "error", err)
	}
	defer store.Close()

	footprint, err := coverage.Load(cfg.Coverage.Path)
	if err != nil {
		l.Fatal("failed to load coverage footprint", "error", err)
	}

	tileLoader := loader.New(store, footprint, cfg.Loader.CacheSize, cfg.Loader.CacheTTL, l)

	renderBackend, err := backend.Get(cfg.Render.Backend, l)
	if err != nil {
		l.Fatal("failed to select render backend", "backend", cfg.Render.Backend, "error", err)
	}
	if err := renderBackend.Init(); err != nil {
		l.Fatal("failed to initialize render backend", "backend", renderBackend.Name(), "error", err)
	}
	defer renderBackend.Close()

	contextPool, err := pool.New(renderBackend, cfg.Render.PoolSize, cfg.Render.AcquireTimeout, l)
	if err != nil {
		l.Fatal("failed to initialize render context pool", "error", err)
	}

	cache := resultcache.New(cfg.Cache.Capacity, l)

	sched := scheduler.New(cfg.Scheduler, cfg.Render, tileLoader, contextPool, cache, l)

	validate := validator.New()
	h := handler.NewHandler(validate, sched, l)
	router := v1.NewRouter(h, l, cfg.Telemetry.ServiceName)

	httpServer := http_server.NewServer(cfg.HTTP.Server, router)

	go func() {
		l.Info("starting http server...", "address", httpServer.Addr)

		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Fatal("http server failed", "error", err)
		}
	}()

	<-ctx.Done()
	l.Info("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	l.Info("shutting down http server...", "address", httpServer.Addr)
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		l.Error("http server shutdown failed", "error", err)
	}

	if err := contextPool.Close(shutdownCtx); err != nil {
		l.Error("render context pool shutdown failed", "error", err)
	}

	l.Info("application shutdown completed")
}
