package explore

import (
	"github.com/joeblew999/plat-explore/internal/area"
	"github.com/joeblew999/plat-explore/internal/catalog"
	"github.com/joeblew999/plat-explore/internal/filter"
	"github.com/joeblew999/plat-explore/internal/zones"
)

// Selection is the explore state the user edits.
type Selection struct {
	AreaID       string              `json:"areaId"`
	Resource     catalog.Resource    `json:"resource"`
	Filters      []filter.Definition `json:"filters"`
	Weights      filter.Params       `json:"weights"`
	Lcoe         filter.Params       `json:"lcoe"`
	GridMode     bool                `json:"gridMode" doc:"Zones are computed on a grid (offshore wind on a resolved area)"`
	GridSize     int                 `json:"gridSize" doc:"Grid cell size in km"`
	MaxZoneScore filter.Range        `json:"maxZoneScore"`
}

func (s Selection) clone() Selection {
	s.Filters = cloneDefs(s.Filters)
	s.Weights = s.Weights.Clone()
	s.Lcoe = s.Lcoe.Clone()
	return s
}

func cloneDefs(defs []filter.Definition) []filter.Definition {
	if defs == nil {
		return nil
	}
	out := make([]filter.Definition, len(defs))
	copy(out, defs)
	return out
}

// AreaSummary describes the resolved area without its EEZ geometry.
type AreaSummary struct {
	ID     string    `json:"id"`
	Type   area.Type `json:"type" enum:"country,region"`
	Name   string    `json:"name"`
	Bounds []float64 `json:"bounds" doc:"Raw catalog bounds [minX, minY, maxX, maxY]"`
}

// Modals tells which selectors the client should show.
type Modals struct {
	SelectArea     bool `json:"selectArea"`
	SelectResource bool `json:"selectResource"`
}

// View is a read-only snapshot of the orchestrator.
type View struct {
	Session   string       `json:"session,omitempty"`
	Selection Selection    `json:"selection"`
	Area      *AreaSummary `json:"area,omitempty"`
	Resolved  bool         `json:"resolved" doc:"An area is selected and present in the catalog"`
	Bounds    []float64    `json:"bounds,omitempty" doc:"Effective bounds, merged with EEZ polygons in grid mode"`
	// Filter is the last compiled filter fragment.
	Filter   string           `json:"filter"`
	Layers   Layers           `json:"layers"`
	Zones    zones.FetchState `json:"zones"`
	Loading  bool             `json:"loading"`
	Modals   Modals           `json:"modals"`
	TourStep int              `json:"tourStep"`
	Query    string           `json:"query" doc:"URL query string of the selection"`
}

// Snapshot returns the current view.
func (o *Orchestrator) Snapshot() View {
	o.mu.Lock()
	defer o.mu.Unlock()

	st := o.machine.State()
	v := View{
		Session:   o.cfg.Session,
		Selection: o.sel.clone(),
		Resolved:  o.resolved.Resolved,
		Filter:    o.compiled,
		Layers:    o.layers,
		Zones:     st,
		Loading:   st.Loading(),
		Modals:    o.modals(),
		TourStep:  o.tourStep,
		Query:     o.query,
	}
	if o.area != nil {
		v.Area = &AreaSummary{
			ID:     o.area.ID,
			Type:   o.area.Type,
			Name:   o.area.Name,
			Bounds: area.BoundSlice(o.area.Bounds),
		}
	}
	if o.resolved.Resolved {
		v.Bounds = area.BoundSlice(o.resolved.Bounds)
	}
	return v
}

func (o *Orchestrator) modals() Modals {
	return Modals{SelectArea: o.areaModal, SelectResource: o.resModal}
}
