package api

import (
	"context"
)

type InfoBody struct {
	Name        string   `json:"name" doc:"Service name"`
	Version     string   `json:"version" doc:"Service version"`
	APIEndpoint string   `json:"apiEndpoint" doc:"Remote tile and zone service"`
	Areas       int      `json:"areas" doc:"Areas in the catalog"`
	RunLog      bool     `json:"runLog" doc:"Whether zone runs are recorded"`
	Features    []string `json:"features" doc:"Available features"`
}

func (h *APIHandler) GetInfo(ctx context.Context, input *struct{}) (*struct{ Body InfoBody }, error) {
	features := []string{"sessions", "sse", "zone-tiles", "tile-coverage"}
	if h.svc.Runs != nil {
		features = append(features, "duckdb")
	}
	endpoint := ""
	if h.svc.Sessions != nil {
		endpoint = h.svc.Sessions.APIEndpoint()
	}
	return &struct{ Body InfoBody }{Body: InfoBody{
		Name:        "plat-explore",
		Version:     Version,
		APIEndpoint: endpoint,
		Areas:       h.svc.Areas.Len(),
		RunLog:      h.svc.Runs != nil,
		Features:    features,
	}}, nil
}
