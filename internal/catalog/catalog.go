// Package catalog holds the static explore panel data: the resource list,
// which filters apply to which resource, grid size options and the default
// weight and LCOE cost factors.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

//go:embed panel.yaml
var defaultPanel []byte

// Resource is an energy resource tag, e.g. "Solar".
type Resource string

// OffshoreWind is the only resource explored on a grid.
const OffshoreWind Resource = "Off-Shore Wind"

// FilterSpec describes a filter offered by the query form.
type FilterSpec struct {
	ID        string     `yaml:"id" json:"id" doc:"Filter identifier used in tile queries" example:"f_roads"`
	Name      string     `yaml:"name" json:"name" doc:"Display name"`
	Unit      string     `yaml:"unit,omitempty" json:"unit,omitempty" doc:"Display unit"`
	Type      string     `yaml:"type" json:"type" enum:"slider,bool" doc:"Input type"`
	Range     []float64  `yaml:"range,omitempty" json:"range,omitempty" doc:"Slider domain [min, max]"`
	Resources []Resource `yaml:"resources" json:"resources" doc:"Resources the filter applies to"`
}

// ParamSpec describes a weight or LCOE cost factor.
type ParamSpec struct {
	ID      string  `yaml:"id" json:"id" doc:"Parameter key" example:"capacity_factor"`
	Name    string  `yaml:"name" json:"name" doc:"Display name"`
	Unit    string  `yaml:"unit,omitempty" json:"unit,omitempty" doc:"Display unit"`
	Default float64 `yaml:"default" json:"default" doc:"Default value"`
}

// Panel is the explore panel catalog.
type Panel struct {
	Resources   []Resource   `yaml:"resources" json:"resources" doc:"Selectable resources"`
	GridOptions []int        `yaml:"grid_options" json:"gridOptions" doc:"Grid cell sizes in km, first is default"`
	Filters     []FilterSpec `yaml:"filters" json:"filters"`
	Weights     []ParamSpec  `yaml:"weights" json:"weights"`
	Lcoe        []ParamSpec  `yaml:"lcoe" json:"lcoe"`

	applies map[string]map[Resource]bool
}

// Default returns the embedded panel catalog.
func Default() *Panel {
	p, err := Parse(defaultPanel)
	if err != nil {
		panic(fmt.Sprintf("catalog: embedded panel is invalid: %v", err))
	}
	return p
}

// Load reads a panel catalog from a YAML file. An empty path yields the
// embedded default; a path that cannot be read is an error.
func Load(path string) (*Panel, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading panel catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes and indexes a YAML panel catalog.
func Parse(data []byte) (*Panel, error) {
	var p Panel
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing panel catalog: %w", err)
	}
	if len(p.Resources) == 0 {
		return nil, fmt.Errorf("panel catalog lists no resources")
	}
	if len(p.GridOptions) == 0 {
		return nil, fmt.Errorf("panel catalog lists no grid options")
	}
	p.index()
	return &p, nil
}

func (p *Panel) index() {
	p.applies = make(map[string]map[Resource]bool, len(p.Filters))
	for _, f := range p.Filters {
		set := make(map[Resource]bool, len(f.Resources))
		for _, r := range f.Resources {
			set[r] = true
		}
		p.applies[f.ID] = set
	}
}

// HasResource reports whether r is a selectable resource.
func (p *Panel) HasResource(r Resource) bool {
	return slices.Contains(p.Resources, r)
}

// Applies reports whether the filter is declared for the resource.
// Unknown filters apply to nothing.
func (p *Panel) Applies(filterID string, r Resource) bool {
	if p.applies == nil {
		for _, f := range p.Filters {
			if f.ID == filterID {
				return slices.Contains(f.Resources, r)
			}
		}
		return false
	}
	return p.applies[filterID][r]
}

// DefaultGridSize returns the first grid option.
func (p *Panel) DefaultGridSize() int {
	return p.GridOptions[0]
}

// ValidGridSize reports whether n is one of the grid options.
func (p *Panel) ValidGridSize(n int) bool {
	return slices.Contains(p.GridOptions, n)
}
