// Package api defines the Huma API routes and handlers.
package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-explore/internal/area"
	"github.com/joeblew999/plat-explore/internal/catalog"
	"github.com/joeblew999/plat-explore/internal/db"
	"github.com/joeblew999/plat-explore/internal/explore"
	"github.com/joeblew999/plat-explore/internal/service"
)

// Version is reported by the health and info endpoints.
const Version = "0.1.0"

// Services holds the dependencies of the API handlers. Runs may be nil.
type Services struct {
	Sessions *service.SessionService
	Panel    *catalog.Panel
	Areas    *area.Catalog
	Runs     *db.RunLog
}

type MessageBody struct {
	Message string `json:"message" doc:"Result message"`
}

type HealthBody struct {
	Status   string `json:"status" doc:"Health status" example:"ok"`
	Version  string `json:"version" doc:"API version" example:"0.1.0"`
	Sessions int    `json:"sessions" doc:"Open explore sessions"`
}

type AreasInput struct {
	Type string `query:"type" enum:"country,region" doc:"Only list areas of this type"`
}

// APIHandler holds the REST API handlers.
type APIHandler struct {
	svc *Services
}

func NewAPIHandler(svc *Services) *APIHandler {
	return &APIHandler{svc: svc}
}

// RegisterRoutes registers every API route.
func RegisterRoutes(api huma.API, svc *Services) {
	h := NewAPIHandler(svc)
	h.RegisterHealth(api)
	h.RegisterCatalog(api)
	h.RegisterSessions(api)
	h.RegisterEvents(api)
	h.RegisterTiles(api)
	h.RegisterRuns(api)
}

// RegisterHealth registers health check routes.
func (h *APIHandler) RegisterHealth(api huma.API) {
	huma.Get(api, "/health", h.GetHealth, huma.OperationTags("health"))
	huma.Get(api, "/api/v1/info", h.GetInfo, huma.OperationTags("health"))
}

// RegisterCatalog registers the static catalog routes.
func (h *APIHandler) RegisterCatalog(api huma.API) {
	huma.Get(api, "/api/v1/catalog", h.GetCatalog, huma.OperationTags("catalog"))
	huma.Get(api, "/api/v1/areas", h.GetAreas, huma.OperationTags("catalog"))
}

func (h *APIHandler) GetHealth(ctx context.Context, input *struct{}) (*struct{ Body HealthBody }, error) {
	n := 0
	if h.svc.Sessions != nil {
		n = len(h.svc.Sessions.List())
	}
	return &struct{ Body HealthBody }{Body: HealthBody{Status: "ok", Version: Version, Sessions: n}}, nil
}

func (h *APIHandler) GetCatalog(ctx context.Context, input *struct{}) (*struct{ Body *catalog.Panel }, error) {
	if h.svc.Panel == nil {
		return nil, huma.Error503ServiceUnavailable("panel catalog not loaded")
	}
	return &struct{ Body *catalog.Panel }{Body: h.svc.Panel}, nil
}

func (h *APIHandler) GetAreas(ctx context.Context, input *AreasInput) (*struct{ Body []explore.AreaSummary }, error) {
	out := []explore.AreaSummary{}
	for _, a := range h.svc.Areas.List() {
		if input.Type != "" && string(a.Type) != input.Type {
			continue
		}
		out = append(out, explore.AreaSummary{
			ID:     a.ID,
			Type:   a.Type,
			Name:   a.Name,
			Bounds: area.BoundSlice(a.Bounds),
		})
	}
	return &struct{ Body []explore.AreaSummary }{Body: out}, nil
}
