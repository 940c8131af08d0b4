package router

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mohammed-shakir/trends-weights/internal/aggregate"
	"github.com/mohammed-shakir/trends-weights/internal/core/model"
	"github.com/mohammed-shakir/trends-weights/internal/taxonomy"
)

type fakeEngine struct {
	lastTF   string
	lastCat  string
	lastKWs  []string
	lastDays int
	lastN    int
}

func (f *fakeEngine) CategoryMeans(_ context.Context, tf string) (map[string]float64, error) {
	f.lastTF = tf
	return map[string]float64{"A": 12.5}, nil
}

func (f *fakeEngine) KeywordWeights(_ context.Context, tf string) (model.WeightMap, error) {
	f.lastTF = tf
	return model.WeightMap{"a1": 12.5}, nil
}

func (f *fakeEngine) DetailedKeywordWeights(_ context.Context, tf, cat string) (model.WeightMap, error) {
	f.lastTF, f.lastCat = tf, cat
	if cat == "nope" {
		return nil, fmt.Errorf("%w: %q", aggregate.ErrUnknownCategory, cat)
	}
	return model.WeightMap{"a1": 3}, nil
}

func (f *fakeEngine) HourlyAnalysis(_ context.Context, kws []string, days int) (map[string]model.HourMeans, error) {
	f.lastKWs, f.lastDays = kws, days
	if len(kws) == 0 {
		return nil, aggregate.ErrNoKeywords
	}
	return map[string]model.HourMeans{kws[0]: {0: 15, 12: 30}}, nil
}

func (f *fakeEngine) WeeklyAnalysis(_ context.Context, kws []string) (map[string]model.WeekdayMeans, error) {
	f.lastKWs = kws
	return map[string]model.WeekdayMeans{}, nil
}

func (f *fakeEngine) TopKeywords(_ context.Context, n int, tf string) ([]model.Ranked, error) {
	f.lastN, f.lastTF = n, tf
	if n < 0 {
		return nil, aggregate.ErrInvalidN
	}
	return []model.Ranked{{Keyword: "a1", Score: 12.5}}, nil
}

func (f *fakeEngine) RelatedQueries(_ context.Context, kw string) (model.Related, error) {
	if kw == "" {
		return model.Related{}, aggregate.ErrNoKeywords
	}
	return model.Related{Top: []model.RelatedQuery{{Query: kw + " price", Value: 100}}, Rising: []model.RelatedQuery{}}, nil
}

func newTestAPI(t *testing.T) (*API, *fakeEngine) {
	t.Helper()
	tax, err := taxonomy.FromMap([]string{"A"}, map[string][]string{"A": {"a1"}})
	if err != nil {
		t.Fatal(err)
	}
	eng := &fakeEngine{}
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)), eng, tax), eng
}

func get(t *testing.T, h http.HandlerFunc, target string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rr := httptest.NewRecorder()
	h(rr, httptest.NewRequest(http.MethodGet, target, nil))
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("body is not JSON: %v (%q)", err, rr.Body.String())
	}
	return rr, body
}

func TestWeights_DefaultTimeframe(t *testing.T) {
	api, eng := newTestAPI(t)
	rr, body := get(t, api.Weights(), "/api/weights")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	if eng.lastTF != defaultTimeframe {
		t.Fatalf("timeframe=%q", eng.lastTF)
	}
	w, ok := body["weights"].(map[string]any)
	if !ok || w["a1"] != 12.5 {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestCategories_IncludesKeywordsAndMeans(t *testing.T) {
	api, eng := newTestAPI(t)
	_, body := get(t, api.Categories(), "/api/categories?timeframe=today+1-m")
	if eng.lastTF != "today 1-m" {
		t.Fatalf("timeframe=%q", eng.lastTF)
	}
	cats, ok := body["categories"].([]any)
	if !ok || len(cats) != 1 {
		t.Fatalf("unexpected categories: %v", body)
	}
	c := cats[0].(map[string]any)
	if c["name"] != "A" || c["mean"] != 12.5 {
		t.Fatalf("unexpected category: %v", c)
	}
}

func TestDetailedWeights_UnknownCategoryIs400(t *testing.T) {
	api, _ := newTestAPI(t)
	rr, body := get(t, api.DetailedWeights(), "/api/weights/detailed?category=nope")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status=%d want 400", rr.Code)
	}
	if body["error"] == "" {
		t.Fatalf("missing error message: %v", body)
	}
}

func TestHourly_ParsesKeywordsAndDays(t *testing.T) {
	api, eng := newTestAPI(t)
	rr, body := get(t, api.Hourly(), "/api/hourly?kw=a,b&kw=c&days=3")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	if len(eng.lastKWs) != 3 || eng.lastKWs[2] != "c" || eng.lastDays != 3 {
		t.Fatalf("kws=%v days=%d", eng.lastKWs, eng.lastDays)
	}
	h := body["hourly"].(map[string]any)["a"].(map[string]any)
	if h["0"] != 15.0 || h["12"] != 30.0 {
		t.Fatalf("unexpected hourly body: %v", h)
	}
}

func TestHourly_DefaultsAndErrors(t *testing.T) {
	api, eng := newTestAPI(t)
	get(t, api.Hourly(), "/api/hourly?kw=a")
	if eng.lastDays != defaultDays {
		t.Fatalf("days=%d", eng.lastDays)
	}
	if rr, _ := get(t, api.Hourly(), "/api/hourly?kw=a&days=x"); rr.Code != http.StatusBadRequest {
		t.Fatalf("non-numeric days: status=%d", rr.Code)
	}
	if rr, _ := get(t, api.Hourly(), "/api/hourly"); rr.Code != http.StatusBadRequest {
		t.Fatalf("no keywords: status=%d", rr.Code)
	}
}

func TestTop_DefaultN(t *testing.T) {
	api, eng := newTestAPI(t)
	rr, _ := get(t, api.Top(), "/api/top")
	if rr.Code != http.StatusOK || eng.lastN != defaultTopN {
		t.Fatalf("status=%d n=%d", rr.Code, eng.lastN)
	}
	if rr, _ := get(t, api.Top(), "/api/top?n=-1"); rr.Code != http.StatusBadRequest {
		t.Fatalf("negative n: status=%d", rr.Code)
	}
}

func TestRelated(t *testing.T) {
	api, _ := newTestAPI(t)
	rr, body := get(t, api.Related(), "/api/related?kw=k")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	if top := body["top"].([]any); len(top) != 1 {
		t.Fatalf("unexpected top: %v", body)
	}
	if rr, _ := get(t, api.Related(), "/api/related"); rr.Code != http.StatusBadRequest {
		t.Fatalf("missing kw: status=%d", rr.Code)
	}
}
