package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/mohammed-shakir/trends-weights/internal/app"
	"github.com/mohammed-shakir/trends-weights/internal/cache"
	"github.com/mohammed-shakir/trends-weights/internal/core/config"
	"github.com/mohammed-shakir/trends-weights/internal/core/observability"
	"github.com/mohammed-shakir/trends-weights/internal/core/router"
	"github.com/mohammed-shakir/trends-weights/internal/core/server"
	"github.com/mohammed-shakir/trends-weights/internal/logger"
	"github.com/mohammed-shakir/trends-weights/internal/metrics"
)

var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.FromEnv()

	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   cfg.LogConsole,
		SampleN:   cfg.LogSampleN,
		Service:   "trends-weights",
		Component: "server",
	}, os.Stdout)
	appLog := logger.NewSlog(&zl)

	appLog.Info("starting trends server",
		"addr", cfg.Addr,
		"version", Version,
		"trends_url", cfg.TrendsURL,
		"cache", cfg.CacheBackend,
		"backends", cache.Backends(),
		"ttl", cfg.CacheTTL.String())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps := server.Deps{}
	if cfg.Metrics.Enabled {
		p := metrics.Init(metrics.Config{
			Enabled: true,
			Addr:    cfg.Metrics.Addr,
			Path:    cfg.Metrics.Path,
			Build: metrics.BuildInfo{
				Version:   Version,
				Revision:  os.Getenv("BUILD_REVISION"),
				BuildDate: os.Getenv("BUILD_DATE"),
			},
		})
		observability.Init(p.Registerer(), true)
		p.Serve(ctx, appLog)
		deps.Metrics = p.Handler()
	} else {
		observability.Init(nil, true)
	}
	observability.ExposeBuildInfo(Version)

	eng, err := app.Build(cfg, appLog, nil)
	if err != nil {
		appLog.Error("engine setup failed", "err", err)
		return 1
	}
	defer func() {
		if err := eng.Close(); err != nil {
			appLog.Warn("engine close", "err", err)
		}
	}()

	deps.API = router.New(appLog, eng.Agg, eng.Taxonomy)
	deps.Ready = map[string]any{"cache": eng}

	if err := server.Run(ctx, cfg, appLog, deps); err != nil {
		appLog.Error("server exited with error", "err", err)
		return 1
	}
	appLog.Info("server stopped")
	return 0
}
