package zones

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-explore/internal/filter"
)

// Request parameterizes one zone generation call.
type Request struct {
	// GridSize is the grid cell size in km; 0 requests zones without a grid.
	GridSize int
	AreaID   string
	Filter   string
	Weights  filter.Params
	Lcoe     filter.Params
}

// Key is the cache key of the request. Permuted filters, weights or LCOE
// factors share a key.
func (r Request) Key() string {
	return strconv.Itoa(r.GridSize) + "|" + r.AreaID + "|" + filter.Signature(r.Filter, r.Weights, r.Lcoe)
}

// Path returns "zones/{area}" or "zones/grid/{size}/{area}".
func (r Request) Path() string {
	area := url.PathEscape(r.AreaID)
	if r.GridSize > 0 {
		return "zones/grid/" + strconv.Itoa(r.GridSize) + "/" + area
	}
	return "zones/" + area
}

// Query returns "{filter}&weights={json}&lcoe={json}" without empty terms.
func (r Request) Query() (string, error) {
	weights, err := paramsJSON(r.Weights)
	if err != nil {
		return "", fmt.Errorf("encoding weights: %w", err)
	}
	lcoe, err := paramsJSON(r.Lcoe)
	if err != nil {
		return "", fmt.Errorf("encoding lcoe: %w", err)
	}
	return JoinQuery(r.Filter, "weights="+url.QueryEscape(weights), "lcoe="+url.QueryEscape(lcoe)), nil
}

func paramsJSON(p filter.Params) (string, error) {
	if p == nil {
		p = filter.Params{}
	}
	b, err := json.Marshal(p)
	return string(b), err
}

// JoinQuery joins query fragments with "&", dropping empty fragments and
// stray separators.
func JoinQuery(parts ...string) string {
	terms := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.Trim(p, "&"); p != "" {
			terms = append(terms, p)
		}
	}
	return strings.Join(terms, "&")
}

// Fetcher performs zone generation.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) (*geojson.FeatureCollection, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, req Request) (*geojson.FeatureCollection, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, req Request) (*geojson.FeatureCollection, error) {
	return f(ctx, req)
}
