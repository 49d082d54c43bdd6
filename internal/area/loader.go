package area

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed areas.schema.json
var areasSchema string

// EEZKey is the feature property that links an EEZ polygon to a country.
const EEZKey = "ISO_TER1"

var catalogSchema = jsonschema.MustCompileString("areas.schema.json", areasSchema)

// entry is one record of the area catalog JSON.
type entry struct {
	ID     flexString `json:"id"`
	GID    string     `json:"gid"`
	Type   Type       `json:"type"`
	Name   string     `json:"name"`
	Bounds rawBounds  `json:"bounds"`
}

// flexString accepts both JSON strings and numbers.
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = flexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*s = flexString(n.String())
	return nil
}

// rawBounds accepts "minX,minY,maxX,maxY" or [minX, minY, maxX, maxY].
type rawBounds orb.Bound

func (b *rawBounds) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		parsed, err := ParseBounds(s)
		if err != nil {
			return err
		}
		*b = rawBounds(parsed)
		return nil
	}
	var v []float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if len(v) != 4 {
		return fmt.Errorf("bounds: want 4 values, got %d", len(v))
	}
	*b = rawBounds(NewBound(v[0], v[1], v[2], v[3]))
	return nil
}

// Load builds a catalog from the area catalog JSON and EEZ polygons grouped
// by country ID. Countries take their ID from "gid".
func Load(areasJSON []byte, eez map[string][]orb.Polygon) (*Catalog, error) {
	var doc any
	if err := json.Unmarshal(areasJSON, &doc); err != nil {
		return nil, fmt.Errorf("parsing area catalog: %w", err)
	}
	if err := catalogSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("validating area catalog: %w", err)
	}

	var entries []entry
	if err := json.Unmarshal(areasJSON, &entries); err != nil {
		return nil, fmt.Errorf("decoding area catalog: %w", err)
	}

	areas := make([]*Area, 0, len(entries))
	for i, e := range entries {
		a := &Area{
			ID:     string(e.ID),
			Type:   e.Type,
			Name:   e.Name,
			Bounds: orb.Bound(e.Bounds),
		}
		if a.IsCountry() {
			a.ID = e.GID
			a.EEZ = eez[a.ID]
		}
		if a.ID == "" {
			return nil, fmt.Errorf("area catalog entry %d (%s): missing id", i, e.Name)
		}
		areas = append(areas, a)
	}
	return NewCatalog(areas), nil
}

// ParseEEZ groups the polygons of an EEZ GeoJSON feature collection by
// their ISO_TER1 property, preserving feature order. Features without the
// property or with non-areal geometry are skipped.
func ParseEEZ(data []byte) (map[string][]orb.Polygon, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parsing eez geojson: %w", err)
	}

	out := make(map[string][]orb.Polygon)
	for _, f := range fc.Features {
		id, _ := f.Properties[EEZKey].(string)
		if id == "" {
			continue
		}
		switch g := f.Geometry.(type) {
		case orb.Polygon:
			out[id] = append(out[id], g)
		case orb.MultiPolygon:
			out[id] = append(out[id], g...)
		}
	}
	return out, nil
}

// LoadFiles reads the area catalog and, when eezPath is set, the EEZ
// GeoJSON. Paths ending in .gz are gunzipped.
func LoadFiles(areasPath, eezPath string) (*Catalog, error) {
	areasJSON, err := readFile(areasPath)
	if err != nil {
		return nil, fmt.Errorf("reading area catalog: %w", err)
	}

	var eez map[string][]orb.Polygon
	if eezPath != "" {
		data, err := readFile(eezPath)
		if err != nil {
			return nil, fmt.Errorf("reading eez data: %w", err)
		}
		if eez, err = ParseEEZ(data); err != nil {
			return nil, err
		}
	}
	return Load(areasJSON, eez)
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(path, ".gz") {
		return data, nil
	}
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}
