// Package server wires the explore services into an HTTP server.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"

	"github.com/joeblew999/plat-explore/internal/api"
	"github.com/joeblew999/plat-explore/internal/area"
	"github.com/joeblew999/plat-explore/internal/catalog"
	"github.com/joeblew999/plat-explore/internal/db"
	"github.com/joeblew999/plat-explore/internal/humastar"
	"github.com/joeblew999/plat-explore/internal/logger"
	"github.com/joeblew999/plat-explore/internal/metrics"
	"github.com/joeblew999/plat-explore/internal/service"
	"github.com/joeblew999/plat-explore/internal/tour"
	"github.com/joeblew999/plat-explore/internal/zones"
)

// Config holds the server configuration. DataDir holds the run log
// database. PanelPath overrides the embedded panel catalog when set.
type Config struct {
	Host        string
	Port        string
	DataDir     string
	APIEndpoint string
	PanelPath   string
	AreasPath   string
	EEZPath     string
	RedisAddr   string
	RedisPass   string
	RedisDB     int
	Cache       zones.CacheConfig
	RunLog      bool
}

// Server is the explore HTTP server.
type Server struct {
	config   Config
	mux      *http.ServeMux
	handler  http.Handler
	humaAPI  huma.API
	log      *slog.Logger
	sessions *service.SessionService
	cache    *zones.CachingFetcher
	runs     *db.RunLog
	redis    io.Closer
	cancel   context.CancelFunc
}

// New creates a new explore server.
func New(cfg Config) (*Server, error) {
	log := logger.L()

	panel := catalog.Default()
	if cfg.PanelPath != "" {
		p, err := catalog.Load(cfg.PanelPath)
		if err != nil {
			return nil, err
		}
		panel = p
	}

	var areas *area.Catalog
	if cfg.AreasPath != "" {
		a, err := area.LoadFiles(cfg.AreasPath, cfg.EEZPath)
		if err != nil {
			return nil, err
		}
		areas = a
	} else {
		areas = area.NewCatalog(nil)
	}

	fetcher, err := zones.NewCachingFetcher(&zones.HTTPFetcher{BaseURL: cfg.APIEndpoint, Logger: log}, cfg.Cache)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()

	humaConfig := huma.DefaultConfig("plat-explore API", api.Version)
	humaConfig.Info.Description = "Renewable energy explore sessions: area and resource selection, filter tile layers and zone generation."
	humaConfig.Servers = []*huma.Server{
		{URL: fmt.Sprintf("http://%s:%s", cfg.Host, cfg.Port), Description: "Local server"},
	}
	// Disable $schema property in responses (cleaner JSON)
	humaConfig.CreateHooks = []func(huma.Config) huma.Config{}
	links := humastar.NewLinks()
	humaConfig.Transformers = append(humaConfig.Transformers, links.Transformer())

	humaAPI := humago.New(mux, humaConfig)

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		config:  cfg,
		mux:     mux,
		humaAPI: humaAPI,
		log:     log,
		cache:   fetcher,
		cancel:  cancel,
	}

	var store tour.Store = tour.NewMemoryStore()
	if client := tour.OpenRedis(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB); client != nil {
		store = &tour.RedisStore{Client: client}
		s.redis = client
	}

	sessCfg := service.SessionConfig{
		APIEndpoint: cfg.APIEndpoint,
		Panel:       panel,
		Areas:       areas,
		Fetcher:     fetcher,
		Tour:        store,
		Logger:      log,
	}
	if cfg.RunLog {
		runs, err := db.Open(db.Config{DataDir: cfg.DataDir, DBName: "explore"})
		if err != nil {
			log.Warn("run_log_unavailable", "error", err)
		} else {
			s.runs = runs
			sessCfg.Runs = runs
		}
	}
	s.sessions = service.NewSessionService(ctx, sessCfg)

	api.RegisterRoutes(humaAPI, &api.Services{
		Sessions: s.sessions,
		Panel:    panel,
		Areas:    areas,
		Runs:     s.runs,
	})
	links.Build(humaAPI)
	s.routes(links)
	s.handler = logger.AccessMiddleware(log)(mux)
	return s, nil
}

// OpenAPI returns the OpenAPI document.
func (s *Server) OpenAPI() *huma.OpenAPI {
	return s.humaAPI.OpenAPI()
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Close closes every session and server resource.
func (s *Server) Close() error {
	s.sessions.Close()
	s.cancel()
	var errs []string
	if err := s.cache.Close(); err != nil {
		errs = append(errs, err.Error())
	}
	if s.runs != nil {
		if err := s.runs.Close(); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("closing server: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (s *Server) routes(links *humastar.Links) {
	s.mux.Handle("/metrics", metrics.Handler())
	s.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		for _, l := range links.For(humastar.EntryPath) {
			w.Header().Add("Link", l)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"service": "plat-explore",
			"status":  "running",
		})
	})
}
