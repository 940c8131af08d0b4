// Package aggregate defines the query surface of the interest engine.
package aggregate

import (
	"context"
	"errors"

	"github.com/mohammed-shakir/trends-weights/internal/core/model"
)

// Malformed input. These are the only errors an engine reports for
// reasons other than a canceled context.
var (
	ErrNoKeywords      = errors.New("at least one keyword is required")
	ErrUnknownCategory = errors.New("unknown category")
	ErrInvalidDays     = errors.New("days must be at least 1")
	ErrInvalidN        = errors.New("n must not be negative")
)

// Interface is what the HTTP and CLI layers consume. Every method takes
// primitive parameters and returns plain data.
type Interface interface {
	CategoryMeans(ctx context.Context, timeframe string) (map[string]float64, error)
	KeywordWeights(ctx context.Context, timeframe string) (model.WeightMap, error)
	DetailedKeywordWeights(ctx context.Context, timeframe, category string) (model.WeightMap, error)
	HourlyAnalysis(ctx context.Context, keywords []string, days int) (map[string]model.HourMeans, error)
	WeeklyAnalysis(ctx context.Context, keywords []string) (map[string]model.WeekdayMeans, error)
	TopKeywords(ctx context.Context, n int, timeframe string) ([]model.Ranked, error)
	RelatedQueries(ctx context.Context, keyword string) (model.Related, error)
}

// IsMalformed reports whether err is caused by bad caller input.
func IsMalformed(err error) bool {
	return errors.Is(err, ErrNoKeywords) ||
		errors.Is(err, ErrUnknownCategory) ||
		errors.Is(err, ErrInvalidDays) ||
		errors.Is(err, ErrInvalidN)
}
