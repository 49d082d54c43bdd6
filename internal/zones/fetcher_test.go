package zones

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-explore/internal/filter"
	"github.com/joeblew999/plat-explore/internal/logger"
)

func params(kv ...any) filter.Params {
	var p filter.Params
	for i := 0; i+1 < len(kv); i += 2 {
		p.Set(kv[i].(string), kv[i+1].(float64))
	}
	return p
}

func TestRequestPathAndQuery(t *testing.T) {
	tests := []struct {
		name      string
		req       Request
		wantPath  string
		wantQuery string
	}{
		{
			name:      "noGrid",
			req:       Request{AreaID: "USA", Filter: "dist=10,50", Weights: params("ghi", 0.5)},
			wantPath:  "zones/USA",
			wantQuery: "dist=10,50&weights=" + url.QueryEscape(`{"ghi":0.5}`) + "&lcoe=" + url.QueryEscape(`{}`),
		},
		{
			name:      "gridEmptyFilter",
			req:       Request{GridSize: 25, AreaID: "USA", Lcoe: params("i", 0.07)},
			wantPath:  "zones/grid/25/USA",
			wantQuery: "weights=" + url.QueryEscape(`{}`) + "&lcoe=" + url.QueryEscape(`{"i":0.07}`),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.req.Path(); got != tt.wantPath {
				t.Errorf("Path = %q, want %q", got, tt.wantPath)
			}
			q, err := tt.req.Query()
			if err != nil {
				t.Fatalf("Query: %v", err)
			}
			if q != tt.wantQuery {
				t.Errorf("Query = %q, want %q", q, tt.wantQuery)
			}
		})
	}
}

func TestRequestKeyIgnoresOrder(t *testing.T) {
	a := Request{AreaID: "USA", Filter: "a=1&b=2", Weights: params("x", 1.0, "y", 2.0)}
	b := Request{AreaID: "USA", Filter: "b=2&a=1", Weights: params("y", 2.0, "x", 1.0)}
	if a.Key() != b.Key() {
		t.Fatalf("keys differ: %q vs %q", a.Key(), b.Key())
	}
	b.GridSize = 9
	if a.Key() == b.Key() {
		t.Fatal("grid size must be part of the key")
	}
}

func TestJoinQuery(t *testing.T) {
	if got := JoinQuery("", "&a=1&", "", "b=2"); got != "a=1&b=2" {
		t.Fatalf("JoinQuery = %q", got)
	}
	if got := JoinQuery("", "&"); got != "" {
		t.Fatalf("JoinQuery = %q, want empty", got)
	}
}

const fcBody = `{"type":"FeatureCollection","features":[{"type":"Feature","geometry":{"type":"Point","coordinates":[1,2]},"properties":{"score":0.8}}]}`

func TestHTTPFetcher(t *testing.T) {
	var gotPath, gotFilter string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotFilter = r.URL.Query().Get("dist")
		w.Header().Set("Content-Type", "application/geo+json")
		w.Write([]byte(fcBody))
	}))
	defer srv.Close()

	f := &HTTPFetcher{BaseURL: srv.URL + "/", Client: srv.Client(), Logger: logger.Discard()}
	fc, err := f.Fetch(context.Background(), Request{GridSize: 50, AreaID: "USA", Filter: "dist=10,50"})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if gotPath != "/zones/grid/50/USA" {
		t.Errorf("path = %q", gotPath)
	}
	if gotFilter != "10,50" {
		t.Errorf("dist = %q", gotFilter)
	}
	if len(fc.Features) != 1 || fc.Features[0].Properties.MustFloat64("score") != 0.8 {
		t.Fatalf("unexpected collection %+v", fc)
	}
}

func TestHTTPFetcherErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/zones/BAD" {
			w.Write([]byte("not json"))
			return
		}
		http.Error(w, "area not found", http.StatusNotFound)
	}))
	defer srv.Close()

	f := &HTTPFetcher{BaseURL: srv.URL, Logger: logger.Discard()}

	_, err := f.Fetch(context.Background(), Request{AreaID: "XXX"})
	var remote *RemoteError
	if !errors.As(err, &remote) || remote.StatusCode != http.StatusNotFound || remote.Body != "area not found" {
		t.Fatalf("expected RemoteError 404, got %v", err)
	}

	if _, err := f.Fetch(context.Background(), Request{AreaID: "BAD"}); err == nil {
		t.Fatal("expected decode error")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := f.Fetch(ctx, Request{AreaID: "USA"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestCachingFetcher(t *testing.T) {
	var calls atomic.Int32
	next := FetcherFunc(func(ctx context.Context, req Request) (*geojson.FeatureCollection, error) {
		calls.Add(1)
		if req.AreaID == "ERR" {
			return nil, errors.New("remote down")
		}
		return geojson.UnmarshalFeatureCollection([]byte(fcBody))
	})

	c, err := NewCachingFetcher(next, CacheConfig{Entries: 2, SizeMB: 1})
	if err != nil {
		t.Fatalf("NewCachingFetcher: %v", err)
	}
	defer c.Close()

	ctx := context.Background()
	a := Request{AreaID: "USA", Filter: "a=1&b=2"}
	permuted := Request{AreaID: "USA", Filter: "b=2&a=1"}

	first, err := c.Fetch(ctx, a)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	second, err := c.Fetch(ctx, permuted)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if first != second || calls.Load() != 1 {
		t.Fatalf("permuted request must hit the cache, calls = %d", calls.Load())
	}

	for i := 0; i < 2; i++ {
		if _, err := c.Fetch(ctx, Request{AreaID: "ERR"}); err == nil {
			t.Fatal("expected error")
		}
	}
	if calls.Load() != 3 {
		t.Fatalf("errors must not be cached, calls = %d", calls.Load())
	}

	c.front.Purge()
	fromBytes, err := c.Fetch(ctx, a)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if calls.Load() != 3 || len(fromBytes.Features) != 1 {
		t.Fatalf("expected byte tier hit, calls = %d", calls.Load())
	}

	c.Purge()
	if _, err := c.Fetch(ctx, a); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if calls.Load() != 4 {
		t.Fatalf("purge must drop entries, calls = %d", calls.Load())
	}
}
