// Package fetcher issues throttled, single-batch queries against the
// interest source and normalizes the answers into series.
package fetcher

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"golang.org/x/time/rate"

	"github.com/mohammed-shakir/trends-weights/internal/core/model"
	"github.com/mohammed-shakir/trends-weights/internal/core/observability"
	"github.com/mohammed-shakir/trends-weights/internal/source"
)

const (
	DefaultDelay   = 500 * time.Millisecond
	DefaultTimeout = 20 * time.Second
	DefaultGeo     = "KR"
)

type Fetcher struct {
	src     source.Source
	logger  *slog.Logger
	delay   time.Duration
	timeout time.Duration
	geo     string
	limiter *rate.Limiter
	sleep   func(ctx context.Context, d time.Duration) error
}

type Option func(*Fetcher)

// WithDelay sets the pause paid before every external call.
func WithDelay(d time.Duration) Option {
	return func(f *Fetcher) {
		if d >= 0 {
			f.delay = d
		}
	}
}

// WithTimeout bounds each external call.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

func WithGeo(geo string) Option {
	return func(f *Fetcher) {
		if geo != "" {
			f.geo = geo
		}
	}
}

// WithMaxQPS caps external calls across all callers of this fetcher.
// qps <= 0 disables the cap.
func WithMaxQPS(qps float64) Option {
	return func(f *Fetcher) {
		if qps > 0 {
			f.limiter = rate.NewLimiter(rate.Limit(qps), 1)
		}
	}
}

// WithSleep replaces the delay implementation, mainly for tests.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(f *Fetcher) {
		if fn != nil {
			f.sleep = fn
		}
	}
}

func New(src source.Source, logger *slog.Logger, opts ...Option) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	f := &Fetcher{
		src:     src,
		logger:  logger,
		delay:   DefaultDelay,
		timeout: DefaultTimeout,
		geo:     DefaultGeo,
		sleep:   sleepCtx,
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Fetch queries one batch. Only the first source.MaxKeywords keywords are
// sent. Any failure yields an empty series; Fetch never reports an error.
func (f *Fetcher) Fetch(ctx context.Context, keywords []string, timeframe string) model.Series {
	if len(keywords) > source.MaxKeywords {
		keywords = keywords[:source.MaxKeywords]
	}
	if len(keywords) == 0 {
		return model.EmptySeries()
	}
	if err := f.throttle(ctx); err != nil {
		f.logger.WarnContext(ctx, "fetch abandoned while throttling", "err", err, "keywords", len(keywords))
		observability.ObserveFetch("error", len(keywords))
		return model.EmptySeries()
	}

	callCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	start := time.Now()
	frame, err := f.src.Query(callCtx, source.Query{
		Keywords:   slices.Clone(keywords),
		Category:   0,
		Timeframe:  timeframe,
		Geo:        f.geo,
		SearchType: "",
	})
	if err != nil {
		f.logger.WarnContext(ctx, "trends fetch failed",
			"err", err,
			"keywords", keywords,
			"timeframe", timeframe,
			"dur", time.Since(start).String())
		observability.ObserveFetch("error", len(keywords))
		return model.EmptySeries()
	}

	s := normalize(frame, keywords)
	result := "ok"
	if s.Empty() {
		result = "empty"
	}
	observability.ObserveFetch(result, len(keywords))
	f.logger.DebugContext(ctx, "trends fetch done",
		"keywords", len(keywords),
		"columns", len(s.Columns),
		"samples", len(s.Index),
		"dur", time.Since(start).String())
	return s
}

// Related fetches related queries for keyword, paying the same delay as
// Fetch. Sources without related-query support yield an empty result.
func (f *Fetcher) Related(ctx context.Context, keyword, timeframe string) model.Related {
	rs, ok := f.src.(source.RelatedSource)
	if !ok || keyword == "" {
		return model.Related{}
	}
	if err := f.throttle(ctx); err != nil {
		return model.Related{}
	}
	callCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	rel, err := rs.Related(callCtx, keyword, timeframe, f.geo)
	if err != nil {
		f.logger.WarnContext(ctx, "related queries fetch failed", "err", err, "keyword", keyword)
		observability.ObserveFetch("error", 1)
		return model.Related{}
	}
	observability.ObserveFetch("ok", 1)
	return rel
}

func (f *Fetcher) throttle(ctx context.Context) error {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	return f.sleep(ctx, f.delay)
}

// normalize drops the partial flag column and any column that was not requested.
func normalize(frame source.Frame, requested []string) model.Series {
	if len(frame.Index) == 0 || len(frame.Columns) == 0 {
		return model.EmptySeries()
	}
	out := model.Series{
		Index:   slices.Clone(frame.Index),
		Columns: make(map[string][]float64, len(requested)),
	}
	for _, k := range requested {
		if k == model.PartialColumn {
			continue
		}
		vals, ok := frame.Columns[k]
		if !ok || len(vals) != len(frame.Index) {
			continue
		}
		out.Columns[k] = slices.Clone(vals)
	}
	if len(out.Columns) == 0 {
		return model.EmptySeries()
	}
	return out
}

// Batches splits keywords into consecutive groups of at most size.
func Batches(keywords []string, size int) [][]string {
	if size <= 0 {
		size = source.MaxKeywords
	}
	var out [][]string
	for i := 0; i < len(keywords); i += size {
		end := min(i+size, len(keywords))
		out = append(out, slices.Clone(keywords[i:end]))
	}
	return out
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
