// Package trendagg turns throttled interest fetches into cached category
// scores, keyword weights, time-of-day patterns and rankings.
package trendagg

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/mohammed-shakir/trends-weights/internal/aggregate"
	"github.com/mohammed-shakir/trends-weights/internal/cache"
	"github.com/mohammed-shakir/trends-weights/internal/cache/keys"
	"github.com/mohammed-shakir/trends-weights/internal/core/model"
	"github.com/mohammed-shakir/trends-weights/internal/core/observability"
	"github.com/mohammed-shakir/trends-weights/internal/events"
	mylog "github.com/mohammed-shakir/trends-weights/internal/logger"
	"github.com/mohammed-shakir/trends-weights/internal/taxonomy"
)

const (
	OpCategoryMeans   = "analyze_by_category"
	OpKeywordWeights  = "get_keyword_weights"
	OpDetailedWeights = "get_detailed_keyword_weights"
	OpHourly          = "get_hourly_analysis"
	OpWeekly          = "get_weekly_analysis"
	OpTopKeywords     = "get_top_keywords"
	OpRelated         = "get_related_queries"

	DefaultTimeframe = "today 3-m"
	weeklyTimeframe  = "today 3-m"
	relatedTimeframe = "today 3-m"

	// proxy weights never drop below 1; exact weights and category means below 0
	ProxyFloor = 1.0
	ExactFloor = 0.0
)

var (
	ErrNoKeywords      = aggregate.ErrNoKeywords
	ErrUnknownCategory = aggregate.ErrUnknownCategory
	ErrInvalidDays     = aggregate.ErrInvalidDays
	ErrInvalidN        = aggregate.ErrInvalidN
)

// Fetcher is the batch fetcher contract the aggregator depends on.
type Fetcher interface {
	Fetch(ctx context.Context, keywords []string, timeframe string) model.Series
	Related(ctx context.Context, keyword, timeframe string) model.Related
}

type Aggregator struct {
	fetch  Fetcher
	store  cache.Store
	tax    *taxonomy.Taxonomy
	logger *slog.Logger
	loc    *time.Location
	sf     *singleflight.Group
	pub    events.Publisher
}

var _ aggregate.Interface = (*Aggregator)(nil)

type Option func(*Aggregator)

// WithLocation sets the zone used to derive hour of day and weekday.
func WithLocation(loc *time.Location) Option {
	return func(a *Aggregator) {
		if loc != nil {
			a.loc = loc
		}
	}
}

// WithSingleflight collapses concurrent misses for one fingerprint into a
// single computation.
func WithSingleflight() Option {
	return func(a *Aggregator) { a.sf = &singleflight.Group{} }
}

func WithPublisher(p events.Publisher) Option {
	return func(a *Aggregator) {
		if p != nil {
			a.pub = p
		}
	}
}

func New(f Fetcher, store cache.Store, tax *taxonomy.Taxonomy, logger *slog.Logger, opts ...Option) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Aggregator{
		fetch:  f,
		store:  store,
		tax:    tax,
		logger: logger,
		loc:    time.UTC,
		pub:    events.Nop{},
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// cached serves op from the store when fresh and otherwise runs compute,
// stores its JSON encoding and returns it. Callers always get their own
// decoded copy; a canceled ctx result is never stored.
func cached[T any](ctx context.Context, a *Aggregator, op string, fp keys.Fingerprint, compute func(context.Context) T) (T, error) {
	ctx = mylog.WithOp(ctx, op)

	if b, ok, err := a.store.Get(ctx, fp); err != nil {
		a.logger.WarnContext(ctx, "cache get failed; treating as miss", "err", err, "fp", fp.Short())
	} else if ok {
		var v T
		err := json.Unmarshal(b, &v)
		if err == nil {
			observability.IncCacheHit(op)
			a.logger.DebugContext(mylog.WithCacheOutcome(ctx, "hit"), "cache hit", "fp", fp.Short())
			return v, nil
		}
		a.logger.WarnContext(ctx, "cache payload undecodable; recomputing", "err", err, "fp", fp.Short())
	}
	observability.IncCacheMiss(op)
	ctx = mylog.WithCacheOutcome(ctx, "miss")

	if a.sf == nil {
		start := time.Now()
		v := compute(ctx)
		if err := ctx.Err(); err != nil {
			var zero T
			return zero, fmt.Errorf("%s: %w", op, err)
		}
		a.fill(ctx, op, fp, v, time.Since(start))
		return v, nil
	}

	ch := a.sf.DoChan(string(fp), func() (any, error) {
		// the shared computation must not die with the first caller
		lctx := context.WithoutCancel(ctx)
		start := time.Now()
		v := compute(lctx)
		b := a.fill(lctx, op, fp, v, time.Since(start))
		if b == nil {
			return nil, fmt.Errorf("%s: result not encodable", op)
		}
		return b, nil
	})
	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		var zero T
		return zero, fmt.Errorf("%s: %w", op, ctx.Err())
	}
	if res.Err != nil {
		var zero T
		return zero, res.Err
	}
	var v T
	if err := json.Unmarshal(res.Val.([]byte), &v); err != nil {
		var zero T
		return zero, fmt.Errorf("%s: decode shared result: %w", op, err)
	}
	if res.Shared {
		a.logger.DebugContext(ctx, "joined in-flight computation", "fp", fp.Short())
	}
	return v, nil
}

// fill stores v under fp and publishes a result event. It returns the
// encoded payload, or nil when v could not be encoded.
func (a *Aggregator) fill(ctx context.Context, op string, fp keys.Fingerprint, v any, took time.Duration) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		a.logger.ErrorContext(ctx, "encode result failed", "err", err, "fp", fp.Short())
		return nil
	}
	if err := a.store.Put(ctx, fp, b); err != nil {
		a.logger.WarnContext(ctx, "cache put failed", "err", err, "fp", fp.Short())
	}
	a.pub.Publish(events.Event{
		Op:          op,
		Fingerprint: string(fp),
		DurationMS:  took.Milliseconds(),
		Entries:     entries(v),
		TS:          time.Now().UTC(),
	})
	a.logger.InfoContext(ctx, "cache fill", "fp", fp.Short(), "bytes", len(b), "dur", took.String())
	return b
}

func entries(v any) int {
	switch t := v.(type) {
	case map[string]float64:
		return len(t)
	case model.WeightMap:
		return len(t)
	case map[string]model.HourMeans:
		return len(t)
	case map[string]model.WeekdayMeans:
		return len(t)
	case []model.Ranked:
		return len(t)
	case model.Related:
		return len(t.Top) + len(t.Rising)
	default:
		return 0
	}
}

func normTimeframe(tf string) string {
	if tf == "" {
		return DefaultTimeframe
	}
	return tf
}
