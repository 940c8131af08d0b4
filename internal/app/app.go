// Package app assembles the engine from configuration. Both binaries
// share it.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/mohammed-shakir/trends-weights/internal/aggregate/trendagg"
	"github.com/mohammed-shakir/trends-weights/internal/cache"
	_ "github.com/mohammed-shakir/trends-weights/internal/cache/memstore"
	_ "github.com/mohammed-shakir/trends-weights/internal/cache/redisstore"
	"github.com/mohammed-shakir/trends-weights/internal/core/config"
	"github.com/mohammed-shakir/trends-weights/internal/core/httpclient"
	"github.com/mohammed-shakir/trends-weights/internal/events"
	"github.com/mohammed-shakir/trends-weights/internal/fetcher"
	"github.com/mohammed-shakir/trends-weights/internal/source"
	"github.com/mohammed-shakir/trends-weights/internal/source/httpsource"
	"github.com/mohammed-shakir/trends-weights/internal/taxonomy"
)

type Engine struct {
	Agg       *trendagg.Aggregator
	Taxonomy  *taxonomy.Taxonomy
	Store     cache.Store
	Publisher events.Publisher
}

// Build wires source, fetcher, cache and publisher. src overrides the HTTP
// source when non-nil.
func Build(cfg config.Config, logger *slog.Logger, src source.Source) (*Engine, error) {
	tax, err := taxonomy.Load(cfg.KeywordsFile)
	if err != nil {
		return nil, fmt.Errorf("load taxonomy: %w", err)
	}

	loc, err := time.LoadLocation(cfg.TrendsTZ)
	if err != nil {
		logger.Warn("unknown TRENDS_TZ; using UTC", "tz", cfg.TrendsTZ, "err", err)
		loc = time.UTC
	}

	if src == nil {
		// the fetcher bounds each call; the client timeout only backs it up
		hc := httpclient.NewOutbound(cfg.FetchTimeout + 5*time.Second)
		src, err = httpsource.New(logger, hc, cfg.TrendsURL)
		if err != nil {
			return nil, err
		}
	}

	f := fetcher.New(src, logger,
		fetcher.WithDelay(cfg.FetchDelay),
		fetcher.WithTimeout(cfg.FetchTimeout),
		fetcher.WithGeo(cfg.TrendsGeo),
		fetcher.WithMaxQPS(cfg.SourceMaxQPS),
	)

	store, err := cache.New(cfg.CacheBackend, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("cache backend %q: %w", cfg.CacheBackend, err)
	}

	var pub events.Publisher = events.Nop{}
	if cfg.Events.Enabled {
		kp, err := events.NewKafkaPublisher(cfg.Events.BrokerList(), cfg.Events.Topic, cfg.Events.QueueSize, logger)
		if err != nil {
			logger.Warn("result events disabled", "err", err)
		} else {
			pub = kp
			logger.Info("result events enabled", "topic", cfg.Events.Topic)
		}
	}

	opts := []trendagg.Option{
		trendagg.WithLocation(loc),
		trendagg.WithPublisher(pub),
	}
	if cfg.CacheSingleflight {
		opts = append(opts, trendagg.WithSingleflight())
	}

	return &Engine{
		Agg:       trendagg.New(f, store, tax, logger, opts...),
		Taxonomy:  tax,
		Store:     store,
		Publisher: pub,
	}, nil
}

// Close flushes the publisher and releases the cache backend.
func (e *Engine) Close() error {
	var errs []error
	if err := e.Publisher.Close(); err != nil {
		errs = append(errs, err)
	}
	if c, ok := e.Store.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Ready is the readiness probe of the cache backend, when it has one.
func (e *Engine) Ready(ctx context.Context) error {
	if r, ok := e.Store.(interface{ Ready(context.Context) error }); ok {
		return r.Ready(ctx)
	}
	return nil
}
