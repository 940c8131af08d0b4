// Package source defines the contract of the quota-limited interest data provider.
package source

import (
	"context"
	"time"

	"github.com/mohammed-shakir/trends-weights/internal/core/model"
)

// MaxKeywords is the most keywords one query may carry.
const MaxKeywords = 5

type Query struct {
	Keywords   []string
	Category   int
	Timeframe  string
	Geo        string
	SearchType string
}

// Frame is the raw tabular answer to a Query. Partial, when present, flags
// samples the provider considers incomplete.
type Frame struct {
	Index   []time.Time
	Columns map[string][]float64
	Partial []bool
}

// Source answers interest-over-time queries. Any error means "no data".
type Source interface {
	Query(ctx context.Context, q Query) (Frame, error)
}

// RelatedSource is implemented by sources that also serve related queries.
type RelatedSource interface {
	Related(ctx context.Context, keyword, timeframe, geo string) (model.Related, error)
}

// Func adapts a function to Source.
type Func func(ctx context.Context, q Query) (Frame, error)

func (f Func) Query(ctx context.Context, q Query) (Frame, error) { return f(ctx, q) }
