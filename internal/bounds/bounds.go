// Package bounds resolves the effective map extent for an area and
// resource, and decides whether zones are computed on a grid.
package bounds

import (
	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-explore/internal/area"
	"github.com/joeblew999/plat-explore/internal/catalog"
)

// Result is the outcome of a resolution.
type Result struct {
	Bounds   orb.Bound
	GridMode bool
	// Resolved is false when no area was given; Bounds is then empty.
	Resolved bool
}

// Resolve computes the effective bounds. For the grid-eligible resource the
// area's raw bounds are merged with every EEZ polygon, so the result always
// contains the raw bounds. Any other resource yields the raw bounds.
func Resolve(a *area.Area, r catalog.Resource) Result {
	if a == nil {
		return Result{}
	}
	if r != catalog.OffshoreWind {
		return Result{Bounds: a.Bounds, Resolved: true}
	}
	return Result{Bounds: Merge(a.Bounds, a.EEZ), GridMode: true, Resolved: true}
}

// Merge returns the bounding box of base and all polygons. Empty polygons
// are ignored.
func Merge(base orb.Bound, polys []orb.Polygon) orb.Bound {
	b := base.ToPolygon().Bound()
	for _, p := range polys {
		if len(p) == 0 || len(p[0]) == 0 {
			continue
		}
		b = b.Union(p.Bound())
	}
	return b
}
