// Package httpsource queries a trends proxy over HTTP.
package httpsource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mohammed-shakir/trends-weights/internal/core/model"
	"github.com/mohammed-shakir/trends-weights/internal/core/observability"
	"github.com/mohammed-shakir/trends-weights/internal/source"
)

type Client struct {
	logger *slog.Logger
	http   *http.Client
	base   *url.URL
}

var (
	_ source.Source        = (*Client)(nil)
	_ source.RelatedSource = (*Client)(nil)
)

func New(logger *slog.Logger, client *http.Client, baseURL string) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse trends url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("trends url %q must be absolute", baseURL)
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Client{logger: logger, http: client, base: u}, nil
}

type interestResponse struct {
	Timestamps []string             `json:"timestamps"`
	Columns    map[string][]float64 `json:"columns"`
	IsPartial  []bool               `json:"isPartial"`
}

func (c *Client) Query(ctx context.Context, q source.Query) (source.Frame, error) {
	params := url.Values{}
	for _, k := range q.Keywords {
		params.Add("kw", k)
	}
	params.Set("cat", strconv.Itoa(q.Category))
	params.Set("timeframe", q.Timeframe)
	params.Set("geo", q.Geo)
	params.Set("gprop", q.SearchType)

	var body interestResponse
	if err := c.getJSON(ctx, "/interest", params, "trends_interest", &body); err != nil {
		return source.Frame{}, err
	}
	return decodeFrame(body)
}

func decodeFrame(body interestResponse) (source.Frame, error) {
	f := source.Frame{
		Index:   make([]time.Time, 0, len(body.Timestamps)),
		Columns: make(map[string][]float64, len(body.Columns)),
	}
	for i, s := range body.Timestamps {
		ts, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return source.Frame{}, fmt.Errorf("timestamp #%d: %w", i, err)
		}
		f.Index = append(f.Index, ts)
	}
	for name, vals := range body.Columns {
		if len(vals) != len(f.Index) {
			return source.Frame{}, fmt.Errorf("column %q has %d samples, index has %d", name, len(vals), len(f.Index))
		}
		f.Columns[name] = vals
	}
	if len(body.IsPartial) > 0 {
		if len(body.IsPartial) != len(f.Index) {
			return source.Frame{}, fmt.Errorf("isPartial has %d samples, index has %d", len(body.IsPartial), len(f.Index))
		}
		f.Partial = body.IsPartial
	}
	return f, nil
}

func (c *Client) Related(ctx context.Context, keyword, timeframe, geo string) (model.Related, error) {
	params := url.Values{}
	params.Set("kw", keyword)
	params.Set("timeframe", timeframe)
	params.Set("geo", geo)

	var out model.Related
	if err := c.getJSON(ctx, "/related", params, "trends_related", &out); err != nil {
		return model.Related{}, err
	}
	return out, nil
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, upstream string, dst any) error {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	observability.ObserveUpstreamLatency(upstream, time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Warn("close response body", "err", cerr)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("upstream status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
