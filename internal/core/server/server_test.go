package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mohammed-shakir/trends-weights/internal/aggregate/trendagg"
	"github.com/mohammed-shakir/trends-weights/internal/cache/memstore"
	"github.com/mohammed-shakir/trends-weights/internal/core/router"
	"github.com/mohammed-shakir/trends-weights/internal/fetcher"
	"github.com/mohammed-shakir/trends-weights/internal/source"
	"github.com/mohammed-shakir/trends-weights/internal/taxonomy"
)

type downCache struct{}

func (downCache) Ready(context.Context) error { return errors.New("connection refused") }

func newTestServer(t *testing.T, ready map[string]any) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tax, err := taxonomy.FromMap([]string{"A"}, map[string][]string{"A": {"a1", "a2"}})
	if err != nil {
		t.Fatal(err)
	}
	src := source.Func(func(_ context.Context, q source.Query) (source.Frame, error) {
		idx := []time.Time{time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)}
		cols := map[string][]float64{}
		for _, k := range q.Keywords {
			cols[k] = []float64{42}
		}
		return source.Frame{Index: idx, Columns: cols}, nil
	})
	f := fetcher.New(src, logger, fetcher.WithDelay(0))
	agg := trendagg.New(f, memstore.New(time.Hour), tax, logger)

	srv := httptest.NewServer(NewHandler(logger, Deps{
		API:     router.New(logger, agg, tax),
		Metrics: http.NotFoundHandler(),
		Ready:   ready,
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRoutes_EndToEnd(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, err := http.Get(srv.URL + "/api/weights")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d", resp.StatusCode)
	}
	var body struct {
		Mode    string             `json:"mode"`
		Weights map[string]float64 `json:"weights"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Mode != "proxy" || body.Weights["a1"] != 42 || body.Weights["a2"] != 42 {
		t.Fatalf("unexpected body: %+v", body)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatalf("missing request id header")
	}
}

func TestHealthAndReadiness(t *testing.T) {
	srv := newTestServer(t, map[string]any{"cache": downCache{}})

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz status=%d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/readyz")
	if err != nil {
		t.Fatal(err)
	}
	b, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable || !strings.Contains(string(b), "cache") {
		t.Fatalf("readyz status=%d body=%s", resp.StatusCode, b)
	}
}

func TestUnknownRoute404(t *testing.T) {
	srv := newTestServer(t, nil)
	resp, err := http.Get(srv.URL + "/query")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status=%d want 404", resp.StatusCode)
	}
}
