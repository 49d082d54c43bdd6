// Package service holds the explore sessions served over HTTP and the event
// bus that fans their events out to streaming clients.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joeblew999/plat-explore/internal/area"
	"github.com/joeblew999/plat-explore/internal/catalog"
	"github.com/joeblew999/plat-explore/internal/explore"
	"github.com/joeblew999/plat-explore/internal/logger"
	"github.com/joeblew999/plat-explore/internal/metrics"
	"github.com/joeblew999/plat-explore/internal/tour"
	"github.com/joeblew999/plat-explore/internal/zones"
)

// ErrSessionNotFound is returned for unknown session IDs.
var ErrSessionNotFound = errors.New("session not found")

// historyLimit bounds the per-session history kept in memory.
const historyLimit = 50

// SessionConfig holds the collaborators shared by every session.
type SessionConfig struct {
	APIEndpoint string
	Panel       *catalog.Panel
	Areas       *area.Catalog
	Fetcher     zones.Fetcher
	Tour        tour.Store
	Runs        explore.RunRecorder
	Bus         *EventBus
	Logger      *slog.Logger
}

// Session is one explore orchestrator with its navigation history.
type Session struct {
	*explore.Orchestrator
	ID      string
	Visitor string
	Created time.Time

	mu      sync.Mutex
	history []string
}

// History returns the pushed queries, oldest first.
func (s *Session) History() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.history))
	copy(out, s.history)
	return out
}

func (s *Session) push(query string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, query)
	if len(s.history) > historyLimit {
		s.history = s.history[len(s.history)-historyLimit:]
	}
}

// SessionInfo summarizes a session for listings.
type SessionInfo struct {
	ID      string    `json:"id" doc:"Session ID"`
	Visitor string    `json:"visitor,omitempty" doc:"Visitor the tour step is stored for"`
	Created time.Time `json:"created"`
	Query   string    `json:"query" doc:"Current URL state"`
}

// SessionService manages explore sessions.
type SessionService struct {
	cfg SessionConfig
	log *slog.Logger
	ctx context.Context

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewSessionService creates a session service. ctx bounds background
// zone fetches of every session.
func NewSessionService(ctx context.Context, cfg SessionConfig) *SessionService {
	if cfg.Bus == nil {
		cfg.Bus = NewEventBus()
	}
	if cfg.Tour == nil {
		cfg.Tour = tour.NewMemoryStore()
	}
	log := cfg.Logger
	if log == nil {
		log = logger.L()
	}
	return &SessionService{
		cfg:      cfg,
		log:      log,
		ctx:      ctx,
		sessions: make(map[string]*Session),
	}
}

// Bus returns the event bus sessions publish to.
func (s *SessionService) Bus() *EventBus { return s.cfg.Bus }

// Create starts a session from an optional query string.
func (s *SessionService) Create(visitor, query string) (*Session, error) {
	sess := &Session{
		ID:      uuid.NewString(),
		Visitor: visitor,
		Created: time.Now().UTC(),
	}
	bus := s.cfg.Bus
	o, err := explore.New(s.ctx, explore.Config{
		Session:     sess.ID,
		APIEndpoint: s.cfg.APIEndpoint,
		Panel:       s.cfg.Panel,
		Areas:       s.cfg.Areas,
		Fetcher:     s.cfg.Fetcher,
		Tour:        s.cfg.Tour,
		TourKey:     tour.ScopedKey(visitor),
		History:     explore.HistoryFunc(sess.push),
		Listener: func(e explore.Event) {
			bus.Publish(Event{Session: sess.ID, Kind: string(e.Kind), Payload: e.Payload})
		},
		Runs:         s.cfg.Runs,
		InitialQuery: query,
		Logger:       s.log,
	})
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}
	sess.Orchestrator = o

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	metrics.SessionsActive.Inc()
	s.log.Debug("session_created", "session", sess.ID, "visitor", visitor)
	return sess, nil
}

// Get returns a session by ID.
func (s *SessionService) Get(id string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

// List returns all sessions, oldest first.
func (s *SessionService) List() []SessionInfo {
	s.mu.RLock()
	out := make([]SessionInfo, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, SessionInfo{ID: sess.ID, Visitor: sess.Visitor, Created: sess.Created, Query: sess.Query()})
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Created.Equal(out[j].Created) {
			return out[i].ID < out[j].ID
		}
		return out[i].Created.Before(out[j].Created)
	})
	return out
}

// Delete closes and removes a session.
func (s *SessionService) Delete(id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %q", ErrSessionNotFound, id)
	}
	sess.Close()
	metrics.SessionsActive.Dec()
	s.cfg.Bus.Publish(Event{Session: id, Kind: "closed"})
	return nil
}

// Close closes every session.
func (s *SessionService) Close() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*Session)
	s.mu.Unlock()
	for _, sess := range sessions {
		sess.Close()
		metrics.SessionsActive.Dec()
	}
}

// APIEndpoint returns the remote tile and zone service base URL.
func (s *SessionService) APIEndpoint() string { return s.cfg.APIEndpoint }
