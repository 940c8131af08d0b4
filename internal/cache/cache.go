// Package cache defines the TTL store that backs every engine query.
package cache

import (
	"context"
	"time"

	"github.com/mohammed-shakir/trends-weights/internal/cache/keys"
)

// DefaultTTL applies when no TTL is configured.
const DefaultTTL = time.Hour

// Store maps a fingerprint to an opaque payload. Get never returns an
// entry older than the store's TTL; Put overwrites unconditionally.
type Store interface {
	Get(ctx context.Context, fp keys.Fingerprint) (payload []byte, ok bool, err error)
	Put(ctx context.Context, fp keys.Fingerprint, payload []byte) error
}
