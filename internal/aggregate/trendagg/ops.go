package trendagg

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mohammed-shakir/trends-weights/internal/cache/keys"
	"github.com/mohammed-shakir/trends-weights/internal/core/model"
	"github.com/mohammed-shakir/trends-weights/internal/fetcher"
	"github.com/mohammed-shakir/trends-weights/internal/source"
)

// CategoryMeans scores every category by the mean interest of its own
// name, 0 when the source returns nothing for it.
func (a *Aggregator) CategoryMeans(ctx context.Context, timeframe string) (map[string]float64, error) {
	tf := normTimeframe(timeframe)
	fp := keys.New(OpCategoryMeans, tf)
	return cached(ctx, a, OpCategoryMeans, fp, func(ctx context.Context) map[string]float64 {
		cats := a.tax.Categories()
		batches := make([][]string, 0, len(cats))
		for _, c := range cats {
			batches = append(batches, []string{c})
		}
		return a.fetchReduce(ctx, batches, tf, ExactFloor, 0)
	})
}

// KeywordWeights is the proxy mode: each keyword inherits its category's
// mean, floored at 1. One external call per category.
func (a *Aggregator) KeywordWeights(ctx context.Context, timeframe string) (model.WeightMap, error) {
	tf := normTimeframe(timeframe)
	fp := keys.New(OpKeywordWeights, tf)
	var inner error
	w, err := cached(ctx, a, OpKeywordWeights, fp, func(ctx context.Context) model.WeightMap {
		means, err := a.CategoryMeans(ctx, tf)
		if err != nil {
			inner = err
			means = nil
		}
		out := model.WeightMap{}
		for _, c := range a.tax.Categories() {
			score := max(means[c], ProxyFloor)
			kws, _ := a.tax.Keywords(c)
			for _, k := range kws {
				out[k] = score
			}
		}
		return out
	})
	if err != nil {
		return nil, err
	}
	if inner != nil {
		return nil, inner
	}
	return w, nil
}

// DetailedKeywordWeights is the exact mode: every keyword gets its own
// mean, fetched in batches of five, floored at 0. An empty category means
// all categories.
func (a *Aggregator) DetailedKeywordWeights(ctx context.Context, timeframe, category string) (model.WeightMap, error) {
	tf := normTimeframe(timeframe)
	category = strings.TrimSpace(category)

	cats := a.tax.Categories()
	if category != "" {
		if _, ok := a.tax.Keywords(category); !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, category)
		}
		cats = []string{category}
	}

	fp := keys.New(OpDetailedWeights, tf, category)
	m, err := cached(ctx, a, OpDetailedWeights, fp, func(ctx context.Context) map[string]float64 {
		var batches [][]string
		for _, c := range cats {
			kws, _ := a.tax.Keywords(c)
			batches = append(batches, fetcher.Batches(kws, source.MaxKeywords)...)
		}
		return a.fetchReduce(ctx, batches, tf, ExactFloor, 0)
	})
	if err != nil {
		return nil, err
	}
	return model.WeightMap(m), nil
}

// HourlyAnalysis averages interest per hour of day over the last days days.
// Only the first five keywords are analysed.
// An empty result means no data.
func (a *Aggregator) HourlyAnalysis(ctx context.Context, keywords []string, days int) (map[string]model.HourMeans, error) {
	kws := analysisKeywords(keywords)
	if len(kws) == 0 {
		return nil, ErrNoKeywords
	}
	if days < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidDays, days)
	}
	tf := fmt.Sprintf("now %d-d", days)
	fp := keys.New(OpHourly, kws, days)
	return cached(ctx, a, OpHourly, fp, func(ctx context.Context) map[string]model.HourMeans {
		out := map[string]model.HourMeans{}
		for k, g := range a.grouped(ctx, kws, tf, func(ts time.Time) int { return ts.Hour() }) {
			out[k] = model.HourMeans(g)
		}
		return out
	})
}

// WeeklyAnalysis averages interest per weekday (0=Monday) over three months.
func (a *Aggregator) WeeklyAnalysis(ctx context.Context, keywords []string) (map[string]model.WeekdayMeans, error) {
	kws := analysisKeywords(keywords)
	if len(kws) == 0 {
		return nil, ErrNoKeywords
	}
	fp := keys.New(OpWeekly, kws)
	return cached(ctx, a, OpWeekly, fp, func(ctx context.Context) map[string]model.WeekdayMeans {
		out := map[string]model.WeekdayMeans{}
		for k, g := range a.grouped(ctx, kws, weeklyTimeframe, mondayFirst) {
			out[k] = model.WeekdayMeans(g)
		}
		return out
	})
}

// TopKeywords ranks proxy-mode weights, highest first. Ties keep taxonomy order.
func (a *Aggregator) TopKeywords(ctx context.Context, n int, timeframe string) ([]model.Ranked, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidN, n)
	}
	tf := normTimeframe(timeframe)
	fp := keys.New(OpTopKeywords, n, tf)
	var inner error
	r, err := cached(ctx, a, OpTopKeywords, fp, func(ctx context.Context) []model.Ranked {
		w, err := a.KeywordWeights(ctx, tf)
		if err != nil {
			inner = err
			return []model.Ranked{}
		}
		return Rank(a.tax.All(), w, n)
	})
	if err != nil {
		return nil, err
	}
	if inner != nil {
		return nil, inner
	}
	return r, nil
}

// RelatedQueries returns the top and rising queries for keyword.
func (a *Aggregator) RelatedQueries(ctx context.Context, keyword string) (model.Related, error) {
	kw := strings.TrimSpace(keyword)
	if kw == "" {
		return model.Related{}, ErrNoKeywords
	}
	fp := keys.New(OpRelated, kw, relatedTimeframe)
	return cached(ctx, a, OpRelated, fp, func(ctx context.Context) model.Related {
		rel := a.fetch.Related(ctx, kw, relatedTimeframe)
		if rel.Top == nil {
			rel.Top = []model.RelatedQuery{}
		}
		if rel.Rising == nil {
			rel.Rising = []model.RelatedQuery{}
		}
		return rel
	})
}

// fetchReduce fetches each batch in turn and maps every batch keyword to
// max(mean, floor), or to missing when its column is absent or empty.
func (a *Aggregator) fetchReduce(ctx context.Context, batches [][]string, timeframe string, floor, missing float64) map[string]float64 {
	out := make(map[string]float64)
	for _, batch := range batches {
		s := a.fetch.Fetch(ctx, batch, timeframe)
		for _, k := range batch {
			if mean, ok := s.Mean(k); ok {
				out[k] = max(mean, floor)
				continue
			}
			out[k] = missing
		}
	}
	return out
}

// grouped fetches kws as one batch and buckets each present column.
func (a *Aggregator) grouped(ctx context.Context, kws []string, timeframe string, bucket func(time.Time) int) map[string]map[int]float64 {
	out := map[string]map[int]float64{}
	s := a.fetch.Fetch(ctx, kws, timeframe)
	if s.Empty() {
		return out
	}
	inLoc := func(ts time.Time) int { return bucket(ts.In(a.loc)) }
	for _, k := range kws {
		if !s.Has(k) {
			continue
		}
		out[k] = s.GroupMean(k, inLoc)
	}
	return out
}

// Rank orders keywords by weight, descending, keeping order for ties, and
// truncates to n. Keywords without a weight are skipped.
func Rank(order []string, w model.WeightMap, n int) []model.Ranked {
	out := make([]model.Ranked, 0, len(order))
	seen := make(map[string]struct{}, len(order))
	for _, k := range order {
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		score, ok := w[k]
		if !ok {
			continue
		}
		out = append(out, model.Ranked{Keyword: k, Score: score})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if n < len(out) {
		out = out[:n]
	}
	return out
}

func mondayFirst(ts time.Time) int {
	return (int(ts.Weekday()) + 6) % 7
}

// analysisKeywords is the single batch an hourly or weekly analysis sends:
// the first source.MaxKeywords cleaned keywords in caller order. The cache
// fingerprint is built from this slice so it names exactly what was fetched.
func analysisKeywords(in []string) []string {
	kws := cleanKeywords(in)
	if len(kws) > source.MaxKeywords {
		kws = kws[:source.MaxKeywords]
	}
	return kws
}

// cleanKeywords trims, drops blanks and duplicates, keeping first-seen order.
func cleanKeywords(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, k := range in {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
