package zones

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-explore/internal/logger"
	"github.com/joeblew999/plat-explore/internal/metrics"
)

// maxErrorBody bounds how much of a failed response is kept in the error.
const maxErrorBody = 4 << 10

// RemoteError is a non-2xx answer from the zone API.
type RemoteError struct {
	StatusCode int
	Body       string
}

func (e *RemoteError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("zone api returned %d", e.StatusCode)
	}
	return fmt.Sprintf("zone api returned %d: %s", e.StatusCode, e.Body)
}

// HTTPFetcher calls GET {BaseURL}/zones/... and decodes the GeoJSON
// FeatureCollection it returns.
type HTTPFetcher struct {
	BaseURL string
	// Client defaults to a client with a 30s timeout.
	Client *http.Client
	Logger *slog.Logger
}

// URL returns the full request URL.
func (f *HTTPFetcher) URL(req Request) (string, error) {
	q, err := req.Query()
	if err != nil {
		return "", err
	}
	return strings.TrimRight(f.BaseURL, "/") + "/" + req.Path() + "?" + q, nil
}

// Fetch performs the request. No retries are made.
func (f *HTTPFetcher) Fetch(ctx context.Context, req Request) (*geojson.FeatureCollection, error) {
	log := f.Logger
	if log == nil {
		log = logger.L()
	}
	u, err := f.URL(req)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("building zone request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/geo+json, application/json")

	client := f.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	t0 := time.Now()
	metrics.ZoneRequestsTotal.Inc()
	log.Debug("zones_req", "area", req.AreaID, "grid", req.GridSize, "url", u)
	resp, err := client.Do(httpReq)
	if err != nil {
		log.Error("zones_http_error", "area", req.AreaID, "err", err)
		metrics.ZoneFailTotal.Inc()
		return nil, fmt.Errorf("requesting zones: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		metrics.ZoneFailTotal.Inc()
		log.Warn("zones_remote_error", "area", req.AreaID, "status", resp.StatusCode)
		return nil, &RemoteError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.ZoneFailTotal.Inc()
		return nil, fmt.Errorf("reading zones: %w", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(body)
	if err != nil {
		log.Error("zones_decode_error", "area", req.AreaID, "err", err)
		metrics.ZoneFailTotal.Inc()
		return nil, fmt.Errorf("decoding zones: %w", err)
	}

	dur := time.Since(t0).Milliseconds()
	metrics.ZoneDurationMs.Observe(float64(dur))
	metrics.ZoneSuccessTotal.Inc()
	log.Debug("zones_resp", "area", req.AreaID, "features", len(fc.Features), "duration_ms", dur)
	return fc, nil
}
