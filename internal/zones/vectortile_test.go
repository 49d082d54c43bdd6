package zones

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/mvt"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/maptile"
)

func cell(minX, minY, maxX, maxY float64) *geojson.Feature {
	f := geojson.NewFeature(orb.Bound{Min: orb.Point{minX, minY}, Max: orb.Point{maxX, maxY}}.ToPolygon())
	f.Properties["score"] = 0.7
	return f
}

func TestEncodeTile(t *testing.T) {
	fc := geojson.NewFeatureCollection()
	fc.Append(cell(10, 10, 12, 12))
	fc.Append(cell(-100, -40, -99, -39))
	original := fc.Features[0].Geometry.(orb.Polygon)[0][0]

	tile := maptile.At(orb.Point{11, 11}, 4)
	data, err := EncodeTile(fc, tile)
	if err != nil {
		t.Fatalf("EncodeTile: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected a tile")
	}

	layers, err := mvt.UnmarshalGzipped(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(layers) != 1 || layers[0].Name != LayerName || len(layers[0].Features) != 1 {
		t.Fatalf("unexpected layers %+v", layers)
	}
	if layers[0].Features[0].Properties["score"] != 0.7 {
		t.Errorf("properties lost: %v", layers[0].Features[0].Properties)
	}
	if got := fc.Features[0].Geometry.(orb.Polygon)[0][0]; got != original {
		t.Fatalf("source geometry mutated: %v -> %v", original, got)
	}
}

func TestEncodeTileEmpty(t *testing.T) {
	fc := geojson.NewFeatureCollection()
	fc.Append(cell(10, 10, 12, 12))
	data, err := EncodeTile(fc, maptile.At(orb.Point{-120, 40}, 6))
	if err != nil || data != nil {
		t.Fatalf("expected no tile, got %d bytes, err %v", len(data), err)
	}
	if data, _ := EncodeTile(nil, maptile.New(0, 0, 0)); data != nil {
		t.Fatal("nil collection must give no tile")
	}
}
