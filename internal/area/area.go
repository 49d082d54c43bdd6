// Package area models the selectable geographic areas (countries and
// regions) and loads them from the static area catalog merged with
// exclusive economic zone (EEZ) polygons.
package area

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

// Type distinguishes countries from sub-national regions.
type Type string

const (
	Country Type = "country"
	Region  Type = "region"
)

// Area is a selectable area. Areas are immutable once loaded.
type Area struct {
	ID     string
	Type   Type
	Name   string
	Bounds orb.Bound
	// EEZ holds the area's exclusive economic zone polygons in catalog
	// order. Only countries carry them.
	EEZ []orb.Polygon
}

// IsCountry reports whether the area is a country.
func (a *Area) IsCountry() bool {
	return a.Type == Country
}

// NewBound builds a normalized bound from two corners given in any order.
func NewBound(minX, minY, maxX, maxY float64) orb.Bound {
	if minX > maxX {
		minX, maxX = maxX, minX
	}
	if minY > maxY {
		minY, maxY = maxY, minY
	}
	return orb.Bound{Min: orb.Point{minX, minY}, Max: orb.Point{maxX, maxY}}
}

// ParseBounds parses a "minX,minY,maxX,maxY" string.
func ParseBounds(s string) (orb.Bound, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return orb.Bound{}, fmt.Errorf("bounds %q: want 4 values, got %d", s, len(parts))
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return orb.Bound{}, fmt.Errorf("bounds %q: %w", s, err)
		}
		v[i] = f
	}
	return NewBound(v[0], v[1], v[2], v[3]), nil
}

// BoundSlice returns b as [minX, minY, maxX, maxY].
func BoundSlice(b orb.Bound) []float64 {
	return []float64{b.Min.X(), b.Min.Y(), b.Max.X(), b.Max.Y()}
}

// Catalog is a read-only index of areas by ID.
type Catalog struct {
	areas []*Area
	byID  map[string]*Area
}

// NewCatalog indexes areas. Later duplicates of an ID are ignored.
func NewCatalog(areas []*Area) *Catalog {
	c := &Catalog{byID: make(map[string]*Area, len(areas))}
	for _, a := range areas {
		if _, dup := c.byID[a.ID]; dup {
			continue
		}
		c.byID[a.ID] = a
		c.areas = append(c.areas, a)
	}
	return c
}

// Get returns the area with the given ID.
func (c *Catalog) Get(id string) (*Area, bool) {
	if c == nil || id == "" {
		return nil, false
	}
	a, ok := c.byID[id]
	return a, ok
}

// List returns all areas in catalog order.
func (c *Catalog) List() []*Area {
	if c == nil {
		return nil
	}
	out := make([]*Area, len(c.areas))
	copy(out, c.areas)
	return out
}

// Len returns the number of areas.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.areas)
}
