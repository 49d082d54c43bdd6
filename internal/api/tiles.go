package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/paulmach/orb/maptile"

	"github.com/joeblew999/plat-explore/internal/area"
	"github.com/joeblew999/plat-explore/internal/explore"
	"github.com/joeblew999/plat-explore/internal/zones"
)

// maxCoverageTiles caps the tile URLs returned for one request.
const maxCoverageTiles = 1024

type ZoneTileInput struct {
	SessionIDInput
	Z int `path:"z" minimum:"0" maximum:"22"`
	X int `path:"x" minimum:"0"`
	Y int `path:"y" minimum:"0"`
}

type ZoneTileOutput struct {
	Status          int
	ContentType     string `header:"Content-Type"`
	ContentEncoding string `header:"Content-Encoding"`
	Body            []byte
}

type CoverageInput struct {
	SessionIDInput
	Layer string `query:"layer" enum:"filter,lcoe" default:"filter"`
	Zoom  int    `query:"z" minimum:"0" maximum:"14" default:"5"`
}

type CoverageBody struct {
	Layer    string   `json:"layer"`
	Zoom     int      `json:"zoom"`
	Template string   `json:"template" doc:"Tile URL template"`
	URLs     []string `json:"urls" doc:"Expanded tile URLs covering the resolved bounds"`
}

// RegisterTiles registers the zone vector tile and tile coverage routes.
func (h *APIHandler) RegisterTiles(api huma.API) {
	huma.Get(api, "/api/v1/sessions/{id}/zones/{z}/{x}/{y}", h.GetZoneTile, huma.OperationTags("tiles"))
	huma.Get(api, "/api/v1/sessions/{id}/tiles", h.GetCoverage, huma.OperationTags("tiles"))
}

// GetZoneTile renders the session's fetched zones as a Mapbox vector tile.
func (h *APIHandler) GetZoneTile(ctx context.Context, input *ZoneTileInput) (*ZoneTileOutput, error) {
	sess, err := h.session(input.ID)
	if err != nil {
		return nil, err
	}
	z := maptile.Zoom(input.Z)
	if n := 1 << z; input.X >= n || input.Y >= n {
		return nil, huma.Error400BadRequest(fmt.Sprintf("tile %d/%d/%d out of range", input.Z, input.X, input.Y))
	}
	st := sess.Zones()
	if st.Data == nil {
		return nil, huma.Error404NotFound("no zones fetched")
	}
	data, err := zones.EncodeTile(st.Data, maptile.New(uint32(input.X), uint32(input.Y), z))
	if err != nil {
		return nil, huma.Error500InternalServerError("encoding tile", err)
	}
	if data == nil {
		return &ZoneTileOutput{Status: http.StatusNoContent}, nil
	}
	return &ZoneTileOutput{
		Status:          http.StatusOK,
		ContentType:     "application/vnd.mapbox-vector-tile",
		ContentEncoding: "gzip",
		Body:            data,
	}, nil
}

// GetCoverage expands the session's layer template for every tile touching
// the resolved bounds.
func (h *APIHandler) GetCoverage(ctx context.Context, input *CoverageInput) (*struct{ Body CoverageBody }, error) {
	sess, err := h.session(input.ID)
	if err != nil {
		return nil, err
	}
	v := sess.Snapshot()
	template := v.Layers.Filter
	if input.Layer == "lcoe" {
		template = v.Layers.Lcoe
	}
	if template == "" {
		return nil, huma.Error409Conflict("no layer compiled yet")
	}
	if !v.Resolved || len(v.Bounds) != 4 {
		return nil, huma.Error409Conflict("no area resolved")
	}

	b := area.NewBound(v.Bounds[0], v.Bounds[1], v.Bounds[2], v.Bounds[3])
	tiles, err := explore.TilesInBounds(b, maptile.Zoom(input.Zoom), maxCoverageTiles)
	if errors.Is(err, explore.ErrTooManyTiles) {
		return nil, huma.Error400BadRequest(err.Error() + ", lower the zoom")
	}
	if err != nil {
		return nil, huma.Error500InternalServerError("listing tiles", err)
	}
	urls := make([]string, len(tiles))
	for i, t := range tiles {
		urls[i] = explore.TileURL(template, t)
	}
	return &struct{ Body CoverageBody }{Body: CoverageBody{
		Layer:    input.Layer,
		Zoom:     input.Zoom,
		Template: template,
		URLs:     urls,
	}}, nil
}
