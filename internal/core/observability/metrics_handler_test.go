package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func TestMetricsHandler_Smoke(t *testing.T) {
	reg := prometheus.NewRegistry()
	Init(reg, true)

	ExposeBuildInfo("test")
	ObserveHTTP("GET", "/api/weights", 200, 0.001)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	promhttp.HandlerFor(reg, promhttp.HandlerOpts{}).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d want 200", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "app_build_info") || !strings.Contains(body, "http_requests_total") {
		t.Fatalf("metrics payload did not contain expected metric names; got:\n%s", body)
	}
}

func TestInit_TwiceOnSameRegistryDoesNotPanic(t *testing.T) {
	reg := prometheus.NewRegistry()
	Init(reg, true)
	Init(reg, true)
}

func TestCacheAndFetchCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	Init(reg, true)

	IncCacheHit("get_keyword_weights")
	IncCacheMiss("get_keyword_weights")
	ObserveCacheOp("get", nil, 0.0001)
	ObserveCacheOp("put", errors.New("boom"), 0.0001)
	ObserveFetch("error", 5)

	rr := httptest.NewRecorder()
	promhttp.HandlerFor(reg, promhttp.HandlerOpts{}).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rr.Body.String()

	for _, want := range []string{
		`trends_cache_results_total{op="get_keyword_weights",outcome="hit"}`,
		`trends_cache_results_total{op="get_keyword_weights",outcome="miss"}`,
		`cache_op_total{op="put",result="error"}`,
		`trends_fetch_total{result="error"}`,
		`trends_fetch_keywords_bucket{le="5"}`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("missing %s in:\n%s", want, body)
		}
	}
}
