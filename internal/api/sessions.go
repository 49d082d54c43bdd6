package api

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-explore/internal/catalog"
	"github.com/joeblew999/plat-explore/internal/explore"
	"github.com/joeblew999/plat-explore/internal/filter"
	"github.com/joeblew999/plat-explore/internal/humastar"
	"github.com/joeblew999/plat-explore/internal/service"
)

// sessionActions are the operations a client can invoke on a session.
var sessionActions = []humastar.ActionDef{
	{Rel: "area", Pattern: "/api/v1/sessions/%s/area", Method: "PUT", Title: "Select area"},
	{Rel: "resource", Pattern: "/api/v1/sessions/%s/resource", Method: "PUT", Title: "Select resource"},
	{Rel: "grid", Pattern: "/api/v1/sessions/%s/grid", Method: "PUT", Title: "Set grid size"},
	{Rel: "score", Pattern: "/api/v1/sessions/%s/score", Method: "PUT", Title: "Set zone score range"},
	{Rel: "layers", Pattern: "/api/v1/sessions/%s/layers", Method: "POST", Title: "Apply filters"},
	{Rel: "events", Pattern: "/api/v1/sessions/%s/events", Method: "GET", Title: "Stream state"},
	{Rel: "delete", Pattern: "/api/v1/sessions/%s", Method: "DELETE", Title: "Close session"},
}

type SessionIDInput struct {
	ID string `path:"id" doc:"Session ID" format:"uuid"`
}

type CreateSessionBody struct {
	Visitor string `json:"visitor,omitempty" doc:"Visitor the tour step is stored for"`
	Query   string `json:"query,omitempty" doc:"Initial URL state" example:"?areaId=KEN&resourceId=Solar"`
}

// SessionBody is the session view plus its action links.
type SessionBody struct {
	explore.View
}

// Actions implements humastar.Actor.
func (b SessionBody) Actions() []humastar.Action {
	return humastar.ActionsFor(b.Session, sessionActions)
}

type SessionOutput struct {
	Body SessionBody
}

type ListSessionsInput struct {
	Offset int `query:"offset" minimum:"0" default:"0"`
	Limit  int `query:"limit" minimum:"1" maximum:"100" default:"20"`
}

type AreaBody struct {
	AreaID string `json:"areaId" doc:"Area ID, empty to clear" example:"KEN"`
}

type ResourceBody struct {
	Resource catalog.Resource `json:"resource" example:"Solar"`
}

type GridBody struct {
	GridSize int `json:"gridSize" doc:"Grid cell size in km" example:"25"`
}

type TourBody struct {
	Step int `json:"step" minimum:"0"`
}

type LocationBody struct {
	Query string `json:"query" doc:"URL query string to navigate to"`
}

type ModalsBody struct {
	SelectArea     *bool `json:"selectArea,omitempty"`
	SelectResource *bool `json:"selectResource,omitempty"`
}

type LayersBody struct {
	Filters []filter.Definition `json:"filters"`
	Weights filter.Params       `json:"weights,omitempty"`
	Lcoe    filter.Params       `json:"lcoe,omitempty"`
}

type ZonesBody struct {
	Filter  string        `json:"filter" doc:"Compiled filter fragment" example:"f_roads=0,50"`
	Weights filter.Params `json:"weights,omitempty"`
	Lcoe    filter.Params `json:"lcoe,omitempty"`
}

type GenerateBody struct {
	Generated bool `json:"generated" doc:"False when no area is resolved"`
	SessionBody
}

type HistoryBody struct {
	History []string `json:"history" doc:"Pushed URL states, oldest first"`
}

// RegisterSessions registers session routes.
func (h *APIHandler) RegisterSessions(api huma.API) {
	tags := huma.OperationTags("sessions")
	huma.Get(api, "/api/v1/sessions", h.ListSessions, tags)
	huma.Post(api, "/api/v1/sessions", h.CreateSession, tags)
	huma.Get(api, "/api/v1/sessions/{id}", h.GetSession, tags)
	huma.Delete(api, "/api/v1/sessions/{id}", h.DeleteSession, tags)
	huma.Get(api, "/api/v1/sessions/{id}/history", h.GetHistory, tags)

	ops := huma.OperationTags("selection")
	huma.Put(api, "/api/v1/sessions/{id}/area", h.PutArea, ops)
	huma.Put(api, "/api/v1/sessions/{id}/resource", h.PutResource, ops)
	huma.Put(api, "/api/v1/sessions/{id}/grid", h.PutGrid, ops)
	huma.Put(api, "/api/v1/sessions/{id}/score", h.PutScore, ops)
	huma.Put(api, "/api/v1/sessions/{id}/tour", h.PutTour, ops)
	huma.Put(api, "/api/v1/sessions/{id}/location", h.PutLocation, ops)
	huma.Put(api, "/api/v1/sessions/{id}/modals", h.PutModals, ops)
	huma.Post(api, "/api/v1/sessions/{id}/layers", h.PostLayers, ops)
	huma.Post(api, "/api/v1/sessions/{id}/zones", h.PostZones, ops)
}

func (h *APIHandler) session(id string) (*service.Session, error) {
	sess, ok := h.svc.Sessions.Get(id)
	if !ok {
		return nil, huma.Error404NotFound("session not found")
	}
	return sess, nil
}

func view(sess *service.Session) *SessionOutput {
	return &SessionOutput{Body: SessionBody{View: sess.Snapshot()}}
}

func (h *APIHandler) ListSessions(ctx context.Context, input *ListSessionsInput) (*struct {
	Body humastar.PageBody[service.SessionInfo]
}, error) {
	page := humastar.Page(h.svc.Sessions.List(), input.Offset, input.Limit)
	return &struct {
		Body humastar.PageBody[service.SessionInfo]
	}{Body: page}, nil
}

func (h *APIHandler) CreateSession(ctx context.Context, input *struct{ Body CreateSessionBody }) (*SessionOutput, error) {
	sess, err := h.svc.Sessions.Create(input.Body.Visitor, input.Body.Query)
	if err != nil {
		return nil, huma.Error500InternalServerError("creating session", err)
	}
	return view(sess), nil
}

func (h *APIHandler) GetSession(ctx context.Context, input *SessionIDInput) (*SessionOutput, error) {
	sess, err := h.session(input.ID)
	if err != nil {
		return nil, err
	}
	return view(sess), nil
}

func (h *APIHandler) DeleteSession(ctx context.Context, input *SessionIDInput) (*struct{ Body MessageBody }, error) {
	if err := h.svc.Sessions.Delete(input.ID); err != nil {
		return nil, huma.Error404NotFound(err.Error())
	}
	return &struct{ Body MessageBody }{Body: MessageBody{Message: "Session closed"}}, nil
}

func (h *APIHandler) GetHistory(ctx context.Context, input *SessionIDInput) (*struct{ Body HistoryBody }, error) {
	sess, err := h.session(input.ID)
	if err != nil {
		return nil, err
	}
	return &struct{ Body HistoryBody }{Body: HistoryBody{History: sess.History()}}, nil
}

func (h *APIHandler) PutArea(ctx context.Context, input *struct {
	SessionIDInput
	Body AreaBody
}) (*SessionOutput, error) {
	sess, err := h.session(input.ID)
	if err != nil {
		return nil, err
	}
	if id := input.Body.AreaID; id != "" {
		if _, ok := h.svc.Areas.Get(id); !ok {
			return nil, huma.Error404NotFound("area not found: " + id)
		}
	}
	sess.SetArea(input.Body.AreaID)
	return view(sess), nil
}

func (h *APIHandler) PutResource(ctx context.Context, input *struct {
	SessionIDInput
	Body ResourceBody
}) (*SessionOutput, error) {
	sess, err := h.session(input.ID)
	if err != nil {
		return nil, err
	}
	if err := sess.SetResource(input.Body.Resource); err != nil {
		return nil, selectionError(err)
	}
	return view(sess), nil
}

func (h *APIHandler) PutGrid(ctx context.Context, input *struct {
	SessionIDInput
	Body GridBody
}) (*SessionOutput, error) {
	sess, err := h.session(input.ID)
	if err != nil {
		return nil, err
	}
	if err := sess.SetGridSize(input.Body.GridSize); err != nil {
		return nil, selectionError(err)
	}
	return view(sess), nil
}

func (h *APIHandler) PutScore(ctx context.Context, input *struct {
	SessionIDInput
	Body filter.Range
}) (*SessionOutput, error) {
	sess, err := h.session(input.ID)
	if err != nil {
		return nil, err
	}
	sess.SetMaxZoneScore(input.Body)
	return view(sess), nil
}

func (h *APIHandler) PutTour(ctx context.Context, input *struct {
	SessionIDInput
	Body TourBody
}) (*SessionOutput, error) {
	sess, err := h.session(input.ID)
	if err != nil {
		return nil, err
	}
	if err := sess.SetTourStep(ctx, input.Body.Step); err != nil {
		return nil, selectionError(err)
	}
	return view(sess), nil
}

func (h *APIHandler) PutLocation(ctx context.Context, input *struct {
	SessionIDInput
	Body LocationBody
}) (*SessionOutput, error) {
	sess, err := h.session(input.ID)
	if err != nil {
		return nil, err
	}
	sess.Navigate(input.Body.Query)
	return view(sess), nil
}

func (h *APIHandler) PutModals(ctx context.Context, input *struct {
	SessionIDInput
	Body ModalsBody
}) (*SessionOutput, error) {
	sess, err := h.session(input.ID)
	if err != nil {
		return nil, err
	}
	if v := input.Body.SelectArea; v != nil {
		sess.SetAreaModal(*v)
	}
	if v := input.Body.SelectResource; v != nil {
		sess.SetResourceModal(*v)
	}
	return view(sess), nil
}

func (h *APIHandler) PostLayers(ctx context.Context, input *struct {
	SessionIDInput
	Body LayersBody
}) (*struct{ Body GenerateBody }, error) {
	sess, err := h.session(input.ID)
	if err != nil {
		return nil, err
	}
	ok := sess.UpdateFilteredLayer(input.Body.Filters, input.Body.Weights, input.Body.Lcoe)
	return &struct{ Body GenerateBody }{Body: GenerateBody{Generated: ok, SessionBody: SessionBody{View: sess.Snapshot()}}}, nil
}

func (h *APIHandler) PostZones(ctx context.Context, input *struct {
	SessionIDInput
	Body ZonesBody
}) (*struct{ Body GenerateBody }, error) {
	sess, err := h.session(input.ID)
	if err != nil {
		return nil, err
	}
	ok := sess.GenerateZones(input.Body.Filter, input.Body.Weights, input.Body.Lcoe)
	return &struct{ Body GenerateBody }{Body: GenerateBody{Generated: ok, SessionBody: SessionBody{View: sess.Snapshot()}}}, nil
}

// selectionError maps orchestrator errors to HTTP errors.
func selectionError(err error) error {
	switch {
	case errors.Is(err, explore.ErrUnknownResource),
		errors.Is(err, explore.ErrInvalidGridSize),
		errors.Is(err, explore.ErrInvalidTourStep):
		return huma.Error400BadRequest(err.Error())
	case errors.Is(err, explore.ErrClosed):
		return huma.Error410Gone(err.Error())
	default:
		return huma.Error500InternalServerError("updating session", err)
	}
}
