package redisstore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mohammed-shakir/trends-weights/internal/cache"
	"github.com/mohammed-shakir/trends-weights/internal/cache/keys"
	"github.com/mohammed-shakir/trends-weights/internal/core/config"
)

func init() {
	cache.Register("redis", newFromConfig)
}

func newFromConfig(cfg config.Config, logger *slog.Logger) (cache.Store, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	cli, err := New(ctx, cfg.RedisAddr, optionsFromConfig(cfg)...)
	if err != nil {
		return nil, fmt.Errorf("redis client: %w", err)
	}
	logger.Info("redis cache connected", "addr", cfg.RedisAddr, "namespace", cfg.RedisNamespace)
	return NewStore(cli, cfg.RedisNamespace, cfg.CacheTTL, cfg.CacheOpTimeout), nil
}

// optionsFromConfig maps the REDIS_* pool and timeout settings onto client
// options. Non-positive values keep the client defaults.
func optionsFromConfig(cfg config.Config) []Option {
	var opts []Option
	if cfg.RedisPoolSize > 0 {
		opts = append(opts, WithPoolSize(cfg.RedisPoolSize))
	}
	if cfg.RedisDialTimeout > 0 {
		opts = append(opts, WithDialTimeout(cfg.RedisDialTimeout))
	}
	if cfg.RedisReadTimeout > 0 {
		opts = append(opts, WithReadTimeout(cfg.RedisReadTimeout))
	}
	if cfg.RedisWriteTimeout > 0 {
		opts = append(opts, WithWriteTimeout(cfg.RedisWriteTimeout))
	}
	return opts
}

// Store adapts Client to cache.Store; Redis key expiry enforces the TTL.
type Store struct {
	cli       *Client
	namespace string
	ttl       time.Duration
	timeout   time.Duration
}

var _ cache.Store = (*Store)(nil)

func NewStore(cli *Client, namespace string, ttl, opTimeout time.Duration) *Store {
	if ttl <= 0 {
		ttl = cache.DefaultTTL
	}
	return &Store{cli: cli, namespace: namespace, ttl: ttl, timeout: opTimeout}
}

// returns context with timeout if set
func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *Store) Get(ctx context.Context, fp keys.Fingerprint) ([]byte, bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	b, ok, err := s.cli.Get(ctx, fp.Key(s.namespace))
	if err != nil {
		return nil, false, fmt.Errorf("cache get: %w", err)
	}
	return b, ok, nil
}

func (s *Store) Put(ctx context.Context, fp keys.Fingerprint, payload []byte) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.cli.Set(ctx, fp.Key(s.namespace), payload, s.ttl); err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	return nil
}

// Ready reports whether Redis answers a ping.
func (s *Store) Ready(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.cli.Ping(ctx)
}

func (s *Store) Close() error { return s.cli.Close() }
