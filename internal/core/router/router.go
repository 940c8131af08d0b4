package router

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mohammed-shakir/trends-weights/internal/aggregate"
	"github.com/mohammed-shakir/trends-weights/internal/core/observability"
	"github.com/mohammed-shakir/trends-weights/internal/taxonomy"
)

const (
	defaultTimeframe = "today 3-m"
	defaultTopN      = 20
	defaultDays      = 7
)

// errBadParam marks query string values that do not parse.
type errBadParam struct {
	name string
	err  error
}

func (e *errBadParam) Error() string { return fmt.Sprintf("invalid %s: %v", e.name, e.err) }
func (e *errBadParam) Unwrap() error { return e.err }

type handlerFunc func(r *http.Request) (any, error)

// API serves the engine's query operations as JSON.
type API struct {
	logger *slog.Logger
	engine aggregate.Interface
	tax    *taxonomy.Taxonomy
}

func New(logger *slog.Logger, engine aggregate.Interface, tax *taxonomy.Taxonomy) *API {
	if logger == nil {
		logger = slog.Default()
	}
	return &API{logger: logger, engine: engine, tax: tax}
}

// Categories lists the configured taxonomy alongside each category's mean.
func (a *API) Categories() http.HandlerFunc {
	return a.handle("/api/categories", func(r *http.Request) (any, error) {
		tf := timeframe(r)
		means, err := a.engine.CategoryMeans(r.Context(), tf)
		if err != nil {
			return nil, err
		}
		type category struct {
			Name     string   `json:"name"`
			Mean     float64  `json:"mean"`
			Keywords []string `json:"keywords"`
		}
		out := make([]category, 0, len(a.tax.Categories()))
		for _, c := range a.tax.Categories() {
			kws, _ := a.tax.Keywords(c)
			out = append(out, category{Name: c, Mean: means[c], Keywords: kws})
		}
		return map[string]any{"timeframe": tf, "categories": out}, nil
	})
}

func (a *API) Weights() http.HandlerFunc {
	return a.handle("/api/weights", func(r *http.Request) (any, error) {
		tf := timeframe(r)
		w, err := a.engine.KeywordWeights(r.Context(), tf)
		if err != nil {
			return nil, err
		}
		return map[string]any{"timeframe": tf, "mode": "proxy", "weights": w}, nil
	})
}

func (a *API) DetailedWeights() http.HandlerFunc {
	return a.handle("/api/weights/detailed", func(r *http.Request) (any, error) {
		tf := timeframe(r)
		cat := strings.TrimSpace(r.URL.Query().Get("category"))
		w, err := a.engine.DetailedKeywordWeights(r.Context(), tf, cat)
		if err != nil {
			return nil, err
		}
		return map[string]any{"timeframe": tf, "mode": "exact", "category": cat, "weights": w}, nil
	})
}

func (a *API) Hourly() http.HandlerFunc {
	return a.handle("/api/hourly", func(r *http.Request) (any, error) {
		days, err := intParam(r, "days", defaultDays)
		if err != nil {
			return nil, err
		}
		kws := keywords(r)
		res, err := a.engine.HourlyAnalysis(r.Context(), kws, days)
		if err != nil {
			return nil, err
		}
		return map[string]any{"days": days, "hourly": res}, nil
	})
}

func (a *API) Weekly() http.HandlerFunc {
	return a.handle("/api/weekly", func(r *http.Request) (any, error) {
		res, err := a.engine.WeeklyAnalysis(r.Context(), keywords(r))
		if err != nil {
			return nil, err
		}
		return map[string]any{"weekly": res}, nil
	})
}

func (a *API) Top() http.HandlerFunc {
	return a.handle("/api/top", func(r *http.Request) (any, error) {
		n, err := intParam(r, "n", defaultTopN)
		if err != nil {
			return nil, err
		}
		tf := timeframe(r)
		top, err := a.engine.TopKeywords(r.Context(), n, tf)
		if err != nil {
			return nil, err
		}
		return map[string]any{"timeframe": tf, "top": top}, nil
	})
}

func (a *API) Related() http.HandlerFunc {
	return a.handle("/api/related", func(r *http.Request) (any, error) {
		kw := strings.TrimSpace(r.URL.Query().Get("kw"))
		rel, err := a.engine.RelatedQueries(r.Context(), kw)
		if err != nil {
			return nil, err
		}
		return map[string]any{"keyword": kw, "top": rel.Top, "rising": rel.Rising}, nil
	})
}

// handle runs fn and writes its result, mapping malformed input to 400.
func (a *API) handle(route string, fn handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}

		out, err := fn(r)
		if err != nil {
			code := statusFor(err)
			if code >= http.StatusInternalServerError {
				a.logger.ErrorContext(r.Context(), "request failed", "route", route, "err", err)
			}
			writeError(sw, code, err)
		} else {
			writeJSON(sw, http.StatusOK, out)
		}
		observability.ObserveHTTP(r.Method, route, sw.code, time.Since(start).Seconds())
	}
}

func statusFor(err error) int {
	var bp *errBadParam
	switch {
	case aggregate.IsMalformed(err), errors.As(err, &bp):
		return http.StatusBadRequest
	default:
		return http.StatusServiceUnavailable
	}
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func timeframe(r *http.Request) string {
	if tf := strings.TrimSpace(r.URL.Query().Get("timeframe")); tf != "" {
		return tf
	}
	return defaultTimeframe
}

// keywords accepts kw=a&kw=b as well as kw=a,b.
func keywords(r *http.Request) []string {
	var out []string
	for _, raw := range r.URL.Query()["kw"] {
		for p := range strings.SplitSeq(raw, ",") {
			if k := strings.TrimSpace(p); k != "" {
				out = append(out, k)
			}
		}
	}
	return out
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &errBadParam{name: name, err: err}
	}
	return n, nil
}
