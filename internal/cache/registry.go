package cache

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/mohammed-shakir/trends-weights/internal/core/config"
)

type Factory func(cfg config.Config, logger *slog.Logger) (Store, error)

var (
	regMu sync.RWMutex
	reg   = map[string]Factory{}
)

// Register makes a backend available by name. Backends call it from init.
func Register(name string, f Factory) {
	regMu.Lock()
	defer regMu.Unlock()
	reg[name] = f
}

// Backends lists registered backend names.
func Backends() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	out := make([]string, 0, len(reg))
	for k := range reg {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// New builds the named backend, falling back to "memory" for unknown names.
func New(name string, cfg config.Config, logger *slog.Logger) (Store, error) {
	regMu.RLock()
	f, ok := reg[name]
	fallback, hasMem := reg["memory"]
	regMu.RUnlock()

	if ok {
		return f(cfg, logger)
	}
	if hasMem {
		logger.Warn("unknown cache backend; falling back to memory", "backend", name)
		return fallback(cfg, logger)
	}
	return nil, fmt.Errorf("no factory for cache backend %q and no memory backend registered", name)
}
