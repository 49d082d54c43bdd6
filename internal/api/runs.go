package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-explore/internal/db"
)

type RunsInput struct {
	Session string `query:"session" doc:"Only runs of this session"`
	Limit   int    `query:"limit" minimum:"1" maximum:"500" default:"50"`
}

type RunsOutput struct {
	Body struct {
		Runs []db.Run `json:"runs" doc:"Recorded zone runs, newest first"`
	}
}

// RegisterRuns registers the zone run log routes.
func (h *APIHandler) RegisterRuns(api huma.API) {
	huma.Get(api, "/api/v1/runs", h.ListRuns, huma.OperationTags("runs"))
}

// ListRuns returns recent zone runs from DuckDB.
func (h *APIHandler) ListRuns(ctx context.Context, input *RunsInput) (*RunsOutput, error) {
	if h.svc.Runs == nil {
		return nil, huma.Error503ServiceUnavailable("Run log not enabled")
	}
	runs, err := h.svc.Runs.Recent(ctx, input.Session, input.Limit)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to list runs", err)
	}
	out := &RunsOutput{}
	out.Body.Runs = runs
	if out.Body.Runs == nil {
		out.Body.Runs = []db.Run{}
	}
	return out, nil
}
