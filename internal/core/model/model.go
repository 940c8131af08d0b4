// Package model defines core domain types shared across the service.
package model

import (
	"math"
	"time"
)

// PartialColumn is the flag column the source attaches to incomplete samples.
const PartialColumn = "isPartial"

// Series is a time-indexed table of samples, one column per keyword.
// Every column has len(Index) samples.
type Series struct {
	Index   []time.Time
	Columns map[string][]float64
}

func EmptySeries() Series {
	return Series{Columns: map[string][]float64{}}
}

func (s Series) Empty() bool {
	return len(s.Index) == 0 || len(s.Columns) == 0
}

func (s Series) Has(col string) bool {
	v, ok := s.Columns[col]
	return ok && len(v) > 0
}

// Mean returns the arithmetic mean of col; ok is false when the column is
// absent or has no samples. NaN samples are skipped.
func (s Series) Mean(col string) (mean float64, ok bool) {
	vals, found := s.Columns[col]
	if !found {
		return 0, false
	}
	sum, n := 0.0, 0
	for _, v := range vals {
		if math.IsNaN(v) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// GroupMean buckets each sample of col by bucket(timestamp) and averages
// per bucket. Buckets with no samples are absent.
func (s Series) GroupMean(col string, bucket func(time.Time) int) map[int]float64 {
	vals, ok := s.Columns[col]
	if !ok {
		return nil
	}
	sums := map[int]float64{}
	counts := map[int]int{}
	for i, ts := range s.Index {
		if i >= len(vals) || math.IsNaN(vals[i]) {
			continue
		}
		b := bucket(ts)
		sums[b] += vals[i]
		counts[b]++
	}
	out := make(map[int]float64, len(sums))
	for b, sum := range sums {
		out[b] = sum / float64(counts[b])
	}
	return out
}

// WeightMap maps a keyword to a non-negative weight.
type WeightMap map[string]float64

// Ranked is one entry of a top-N listing.
type Ranked struct {
	Keyword string  `json:"keyword"`
	Score   float64 `json:"score"`
}

// HourMeans maps hour of day (0..23) to mean interest.
type HourMeans map[int]float64

// WeekdayMeans maps day of week (0=Monday..6=Sunday) to mean interest.
type WeekdayMeans map[int]float64

type RelatedQuery struct {
	Query string `json:"query"`
	Value int    `json:"value"`
}

// Related holds the top and rising queries associated with a keyword.
type Related struct {
	Top    []RelatedQuery `json:"top"`
	Rising []RelatedQuery `json:"rising"`
}
