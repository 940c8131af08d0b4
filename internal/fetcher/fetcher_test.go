package fetcher

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/mohammed-shakir/trends-weights/internal/core/model"
	"github.com/mohammed-shakir/trends-weights/internal/source"
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

type recordedSleeps struct {
	mu     sync.Mutex
	sleeps []time.Duration
}

func (r *recordedSleeps) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.sleeps = append(r.sleeps, d)
	r.mu.Unlock()
	return ctx.Err()
}

type stubSource struct {
	mu      sync.Mutex
	queries []source.Query
	frame   source.Frame
	err     error
	dl      bool
}

func (s *stubSource) Query(ctx context.Context, q source.Query) (source.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, q)
	_, s.dl = ctx.Deadline()
	return s.frame, s.err
}

func frameOf(cols map[string][]float64) source.Frame {
	n := 0
	for _, v := range cols {
		n = len(v)
		break
	}
	idx := make([]time.Time, n)
	for i := range idx {
		idx[i] = time.Unix(int64(i)*3600, 0).UTC()
	}
	return source.Frame{Index: idx, Columns: cols}
}

func TestFetch_TruncatesToFiveAndPaysDelay(t *testing.T) {
	src := &stubSource{frame: frameOf(map[string][]float64{"k1": {1, 2}})}
	rec := &recordedSleeps{}
	f := New(src, discard(), WithDelay(500*time.Millisecond), WithSleep(rec.sleep), WithGeo("US"))

	kws := []string{"k1", "k2", "k3", "k4", "k5", "k6", "k7"}
	_ = f.Fetch(context.Background(), kws, "today 3-m")
	_ = f.Fetch(context.Background(), kws[:2], "today 3-m")

	if len(src.queries) != 2 {
		t.Fatalf("calls=%d want 2", len(src.queries))
	}
	q := src.queries[0]
	if len(q.Keywords) != 5 || q.Keywords[4] != "k5" {
		t.Fatalf("first call keywords=%v want first five", q.Keywords)
	}
	if q.Geo != "US" || q.Timeframe != "today 3-m" || q.Category != 0 || q.SearchType != "" {
		t.Fatalf("unexpected query %+v", q)
	}
	if len(rec.sleeps) != 2 || rec.sleeps[0] != 500*time.Millisecond {
		t.Fatalf("sleeps=%v want one 500ms delay per call", rec.sleeps)
	}
	if !src.dl {
		t.Fatal("external call must carry a deadline")
	}
}

func TestFetch_StripsPartialAndUnrequestedColumns(t *testing.T) {
	src := &stubSource{frame: frameOf(map[string][]float64{
		"a":                 {10, 20},
		"extra":             {1, 1},
		model.PartialColumn: {0, 1},
	})}
	f := New(src, discard(), WithSleep((&recordedSleeps{}).sleep))

	s := f.Fetch(context.Background(), []string{"a", "b", model.PartialColumn}, "today 3-m")
	if len(s.Columns) != 1 || !s.Has("a") {
		t.Fatalf("columns=%v want only a", s.Columns)
	}
	if len(s.Index) != 2 {
		t.Fatalf("index=%v", s.Index)
	}
}

func TestFetch_SourceErrorYieldsEmptySeries(t *testing.T) {
	src := &stubSource{err: errors.New("429 quota exceeded")}
	f := New(src, discard(), WithSleep((&recordedSleeps{}).sleep))

	s := f.Fetch(context.Background(), []string{"a"}, "today 3-m")
	if !s.Empty() || len(s.Columns) != 0 {
		t.Fatalf("expected empty series, got %+v", s)
	}
}

func TestFetch_CanceledDuringDelaySkipsCall(t *testing.T) {
	src := &stubSource{frame: frameOf(map[string][]float64{"a": {1}})}
	f := New(src, discard(), WithDelay(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := f.Fetch(ctx, []string{"a"}, "today 3-m")
	if !s.Empty() {
		t.Fatal("expected empty series when canceled")
	}
	if len(src.queries) != 0 {
		t.Fatalf("calls=%d want 0", len(src.queries))
	}
}

func TestFetch_NoKeywordsNoCall(t *testing.T) {
	src := &stubSource{}
	f := New(src, discard(), WithSleep((&recordedSleeps{}).sleep))
	if s := f.Fetch(context.Background(), nil, "today 3-m"); !s.Empty() {
		t.Fatal("expected empty")
	}
	if len(src.queries) != 0 {
		t.Fatal("no keywords must not reach the source")
	}
}

func TestFetch_ReturnsCopies(t *testing.T) {
	cols := map[string][]float64{"a": {1, 2}}
	src := &stubSource{frame: frameOf(cols)}
	f := New(src, discard(), WithSleep((&recordedSleeps{}).sleep))

	s := f.Fetch(context.Background(), []string{"a"}, "t")
	s.Columns["a"][0] = 99
	if cols["a"][0] != 1 {
		t.Fatal("fetched series aliases the source frame")
	}
}

func TestBatches_PartitionsInOrder(t *testing.T) {
	kws := make([]string, 12)
	for i := range kws {
		kws[i] = string(rune('a' + i))
	}
	got := Batches(kws, 5)
	if len(got) != 3 || len(got[0]) != 5 || len(got[1]) != 5 || len(got[2]) != 2 {
		t.Fatalf("batches=%v want sizes 5,5,2", got)
	}
	if got[2][0] != "k" || got[2][1] != "l" {
		t.Fatalf("last batch=%v", got[2])
	}
	if Batches(nil, 5) != nil {
		t.Fatal("no keywords, no batches")
	}
}

func TestWithMaxQPS_LimiterInstalled(t *testing.T) {
	f := New(&stubSource{}, discard(), WithMaxQPS(2))
	if f.limiter == nil {
		t.Fatal("expected limiter")
	}
	if New(&stubSource{}, discard(), WithMaxQPS(0)).limiter != nil {
		t.Fatal("qps 0 must disable the limiter")
	}
}

type relatedStub struct {
	stubSource
	rel model.Related
	err error
}

func (r *relatedStub) Related(_ context.Context, _, _, _ string) (model.Related, error) {
	return r.rel, r.err
}

func TestRelated(t *testing.T) {
	rec := &recordedSleeps{}
	rs := &relatedStub{rel: model.Related{Top: []model.RelatedQuery{{Query: "x", Value: 1}}}}
	f := New(rs, discard(), WithSleep(rec.sleep))

	if got := f.Related(context.Background(), "kw", "today 3-m"); len(got.Top) != 1 {
		t.Fatalf("related=%+v", got)
	}
	if len(rec.sleeps) != 1 {
		t.Fatalf("related must pay the delay; sleeps=%v", rec.sleeps)
	}

	rs.err = errors.New("boom")
	if got := f.Related(context.Background(), "kw", "today 3-m"); len(got.Top) != 0 {
		t.Fatalf("error must yield empty related, got %+v", got)
	}

	plain := New(&stubSource{}, discard(), WithSleep(rec.sleep))
	if got := plain.Related(context.Background(), "kw", "today 3-m"); len(got.Top) != 0 || len(got.Rising) != 0 {
		t.Fatal("source without related support must yield empty")
	}
}
