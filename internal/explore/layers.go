package explore

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"

	"github.com/joeblew999/plat-explore/internal/area"
	"github.com/joeblew999/plat-explore/internal/zones"
)

// Rendering hints appended to the tile layer queries.
const (
	FilterColor  = "54,166,244,80"
	LcoeColormap = "cool"
)

// Layers holds the tile URL templates of the current compile. Empty
// strings mean no layer has been compiled yet.
type Layers struct {
	Filter string `json:"filter" doc:"Filtered area tile template with {z}/{x}/{y}"`
	Lcoe   string `json:"lcoe" doc:"LCOE tile template with {z}/{x}/{y}"`
}

// FilterLayerURL builds {base}/filter[/{countryId}]/{z}/{x}/{y}.png?{filter}&color=...
// Country areas get their own path segment.
func FilterLayerURL(base string, a *area.Area, filterFragment string) string {
	path := "/filter"
	if a != nil && a.IsCountry() {
		path += "/" + a.ID
	}
	return strings.TrimRight(base, "/") + path + "/{z}/{x}/{y}.png?" +
		zones.JoinQuery(filterFragment, "color="+FilterColor)
}

// LcoeLayerURL builds {base}/lcoe/{z}/{x}/{y}.png?{filter}&{lcoe}&colormap=cool.
func LcoeLayerURL(base, filterFragment, lcoeFragment string) string {
	return strings.TrimRight(base, "/") + "/lcoe/{z}/{x}/{y}.png?" +
		zones.JoinQuery(filterFragment, lcoeFragment, "colormap="+LcoeColormap)
}

// TileURL expands the {z}, {x} and {y} placeholders of a template.
func TileURL(template string, t maptile.Tile) string {
	return strings.NewReplacer(
		"{z}", strconv.FormatUint(uint64(t.Z), 10),
		"{x}", strconv.FormatUint(uint64(t.X), 10),
		"{y}", strconv.FormatUint(uint64(t.Y), 10),
	).Replace(template)
}

// ErrTooManyTiles is returned by TilesInBounds when the bounds cover more
// tiles than the caller allows.
var ErrTooManyTiles = errors.New("too many tiles")

// tileRange returns the inclusive tile index range of b at zoom z, clamped
// to the 2^z grid.
func tileRange(b orb.Bound, z maptile.Zoom) (minX, maxX, minY, maxY uint32) {
	minTile := maptile.At(b.Min, z)
	maxTile := maptile.At(b.Max, z)

	minX, maxX = minTile.X, maxTile.X
	if minX > maxX {
		minX, maxX = maxX, minX
	}
	minY, maxY = minTile.Y, maxTile.Y
	if minY > maxY {
		minY, maxY = maxY, minY
	}

	last := uint32(1)<<z - 1
	minX, maxX = min(minX, last), min(maxX, last)
	minY, maxY = min(minY, last), min(maxY, last)
	return minX, maxX, minY, maxY
}

// TilesInBounds returns every tile at zoom z touching b. A positive limit
// caps the result; bounds covering more tiles fail with ErrTooManyTiles
// before anything is allocated.
func TilesInBounds(b orb.Bound, z maptile.Zoom, limit int) ([]maptile.Tile, error) {
	minX, maxX, minY, maxY := tileRange(b, z)
	n := uint64(maxX-minX+1) * uint64(maxY-minY+1)
	if limit > 0 && n > uint64(limit) {
		return nil, fmt.Errorf("%w: %d at zoom %d, limit %d", ErrTooManyTiles, n, z, limit)
	}

	tiles := make([]maptile.Tile, 0, n)
	for x := minX; x <= maxX; x++ {
		for y := minY; y <= maxY; y++ {
			tiles = append(tiles, maptile.New(x, y, z))
		}
	}
	return tiles, nil
}
