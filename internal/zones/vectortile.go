package zones

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/mvt"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/maptile"
	"github.com/paulmach/orb/simplify"
)

// LayerName is the vector tile layer holding zone features.
const LayerName = "zones"

// EncodeTile renders the features of fc touching t as a gzipped Mapbox
// vector tile. It returns nil when nothing falls in the tile. fc is not
// modified.
func EncodeTile(fc *geojson.FeatureCollection, t maptile.Tile) ([]byte, error) {
	if fc == nil {
		return nil, nil
	}
	tileBound := t.Bound()

	in := geojson.NewFeatureCollection()
	for _, f := range fc.Features {
		if f == nil || f.Geometry == nil || !f.Geometry.Bound().Intersects(tileBound) {
			continue
		}
		// Clip and ProjectToTile rewrite coordinates in place.
		clone := geojson.NewFeature(orb.Clone(f.Geometry))
		for k, v := range f.Properties {
			clone.Properties[k] = v
		}
		in.Append(clone)
	}
	if len(in.Features) == 0 {
		return nil, nil
	}

	layer := mvt.NewLayer(LayerName, in)
	if eps := simplifyEpsilon(t.Z); eps > 0 {
		layer.Simplify(simplify.DouglasPeucker(eps))
	}
	layer.Clip(tileBound)
	layer.ProjectToTile(t)
	layer.RemoveEmpty(0.5, 0.5)
	if len(layer.Features) == 0 {
		return nil, nil
	}

	data, err := mvt.MarshalGzipped(mvt.Layers{layer})
	if err != nil {
		return nil, fmt.Errorf("encoding zone tile %d/%d/%d: %w", t.Z, t.X, t.Y, err)
	}
	return data, nil
}

// simplifyEpsilon keeps grid cells (a few km wide) intact at every zoom.
func simplifyEpsilon(z maptile.Zoom) float64 {
	switch {
	case z >= 12:
		return 0
	case z >= 8:
		return 0.0001
	case z >= 5:
		return 0.001
	default:
		return 0.005
	}
}
