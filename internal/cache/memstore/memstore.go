// Package memstore is the in-process TTL cache backend.
package memstore

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/mohammed-shakir/trends-weights/internal/cache"
	"github.com/mohammed-shakir/trends-weights/internal/cache/keys"
	"github.com/mohammed-shakir/trends-weights/internal/core/config"
	"github.com/mohammed-shakir/trends-weights/internal/core/observability"
)

const numShards = 64

func init() {
	cache.Register("memory", func(cfg config.Config, _ *slog.Logger) (cache.Store, error) {
		return New(cfg.CacheTTL, WithMaxEntries(cfg.CacheMaxEntries)), nil
	})
}

type entry struct {
	payload   []byte
	createdAt time.Time
}

type shard struct {
	mu sync.RWMutex
	m  map[string]entry
	// bounded mode; m is nil when set
	l *lru.Cache[string, entry]
}

func (s *shard) get(k string) (entry, bool) {
	if s.l != nil {
		return s.l.Get(k)
	}
	e, ok := s.m[k]
	return e, ok
}

func (s *shard) add(k string, e entry) {
	if s.l != nil {
		s.l.Add(k, e)
		return
	}
	s.m[k] = e
}

type Store struct {
	ttl        time.Duration
	now        func() time.Time
	maxEntries int
	shards     [numShards]shard
}

var _ cache.Store = (*Store)(nil)

type Option func(*Store)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithMaxEntries bounds the store with per-shard LRU eviction. Each shard
// holds ceil(n/64) entries, so the effective bound is n rounded up to a
// multiple of 64 (at least 64). n <= 0 keeps every entry for the life of
// the process.
func WithMaxEntries(n int) Option {
	return func(s *Store) { s.maxEntries = n }
}

func New(ttl time.Duration, opts ...Option) *Store {
	if ttl <= 0 {
		ttl = cache.DefaultTTL
	}
	s := &Store{ttl: ttl, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	perShard := 0
	if s.maxEntries > 0 {
		perShard = shardCapacity(s.maxEntries)
	}
	for i := range s.shards {
		if perShard > 0 {
			l, _ := lru.New[string, entry](perShard)
			s.shards[i].l = l
			continue
		}
		s.shards[i].m = make(map[string]entry)
	}
	return s
}

func shardCapacity(n int) int {
	return (n + numShards - 1) / numShards
}

func (s *Store) TTL() time.Duration { return s.ttl }

// Get returns a copy of the payload stored for fp if it is younger than the TTL.
func (s *Store) Get(_ context.Context, fp keys.Fingerprint) ([]byte, bool, error) {
	start := time.Now()
	k := string(fp)
	sh := s.pick(k)

	sh.mu.RLock()
	e, ok := sh.get(k)
	sh.mu.RUnlock()
	observability.ObserveCacheOp("get", nil, time.Since(start).Seconds())

	if !ok || s.now().Sub(e.createdAt) >= s.ttl {
		return nil, false, nil
	}
	return append([]byte(nil), e.payload...), true, nil
}

func (s *Store) Put(_ context.Context, fp keys.Fingerprint, payload []byte) error {
	start := time.Now()
	k := string(fp)
	sh := s.pick(k)
	e := entry{payload: append([]byte(nil), payload...), createdAt: s.now()}

	sh.mu.Lock()
	sh.add(k, e)
	sh.mu.Unlock()
	observability.ObserveCacheOp("put", nil, time.Since(start).Seconds())
	return nil
}

// Len counts stored entries, stale ones included.
func (s *Store) Len() int {
	total := 0
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.RLock()
		if sh.l != nil {
			total += sh.l.Len()
		} else {
			total += len(sh.m)
		}
		sh.mu.RUnlock()
	}
	return total
}

func (s *Store) pick(k string) *shard {
	h := xxhash.Sum64String(k)
	return &s.shards[h&(numShards-1)]
}
