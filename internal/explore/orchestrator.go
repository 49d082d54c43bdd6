// Package explore owns the explore selection (area, resource, filters,
// weights, LCOE factors, grid) and keeps the URL state, the resolved bounds,
// the tile layer URLs and the zone fetch in step with it.
package explore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-explore/internal/area"
	"github.com/joeblew999/plat-explore/internal/bounds"
	"github.com/joeblew999/plat-explore/internal/catalog"
	"github.com/joeblew999/plat-explore/internal/db"
	"github.com/joeblew999/plat-explore/internal/filter"
	"github.com/joeblew999/plat-explore/internal/logger"
	"github.com/joeblew999/plat-explore/internal/metrics"
	"github.com/joeblew999/plat-explore/internal/qsstate"
	"github.com/joeblew999/plat-explore/internal/tour"
	"github.com/joeblew999/plat-explore/internal/zones"
)

var (
	ErrUnknownResource = errors.New("unknown resource")
	ErrInvalidGridSize = errors.New("invalid grid size")
	ErrInvalidTourStep = errors.New("tour step must not be negative")
	ErrClosed          = errors.New("orchestrator closed")

	errNoCollection = errors.New("zone service returned no collection")
)

// Indicator is the loading indicator of the rendering collaborator.
type Indicator interface {
	Show()
	Hide()
}

// RunRecorder stores honored zone results.
type RunRecorder interface {
	Record(ctx context.Context, r db.Run) error
}

// Config wires an Orchestrator to its collaborators. Panel and Fetcher are
// required.
type Config struct {
	// Session tags events and run log entries.
	Session     string
	APIEndpoint string
	Panel       *catalog.Panel
	Areas       *area.Catalog
	Fetcher     zones.Fetcher
	// Tour defaults to an in-memory store; TourKey defaults to tour.Key.
	Tour    tour.Store
	TourKey string
	History History
	// Listener receives events synchronously while the orchestrator lock
	// is held. It must not block or call back into the orchestrator.
	Listener  func(Event)
	Indicator Indicator
	Runs      RunRecorder
	// InitialQuery is decoded at construction without pushing history.
	InitialQuery string
	Logger       *slog.Logger
}

// Orchestrator is safe for concurrent use. Operations and fetch
// completions are serialized, so an operation is fully applied before any
// completion that races with it.
type Orchestrator struct {
	cfg   Config
	log   *slog.Logger
	codec *qsstate.Codec

	mu        sync.Mutex
	sel       Selection
	area      *area.Area
	resolved  bounds.Result
	machine   *zones.Machine
	layers    Layers
	compiled  string
	areaModal bool
	resModal  bool
	tourStep  int
	query     string
	closed    bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates an orchestrator, reads the stored tour step and applies
// cfg.InitialQuery. ctx bounds the lifetime of background fetches.
func New(ctx context.Context, cfg Config) (*Orchestrator, error) {
	if cfg.Panel == nil {
		return nil, errors.New("explore: panel catalog is required")
	}
	if cfg.Fetcher == nil {
		return nil, errors.New("explore: zone fetcher is required")
	}
	if cfg.Tour == nil {
		cfg.Tour = tour.NewMemoryStore()
	}
	if cfg.TourKey == "" {
		cfg.TourKey = tour.Key
	}
	if cfg.History == nil {
		cfg.History = nopHistory{}
	}
	log := cfg.Logger
	if log == nil {
		log = logger.L()
	}
	if cfg.Session != "" {
		log = log.With("session", cfg.Session)
	}

	o := &Orchestrator{
		cfg:   cfg,
		log:   log,
		codec: NewCodec(),
		sel: Selection{
			Weights:      defaultParams(cfg.Panel.Weights),
			Lcoe:         defaultParams(cfg.Panel.Lcoe),
			GridSize:     cfg.Panel.DefaultGridSize(),
			MaxZoneScore: DefaultMaxZoneScore,
		},
	}
	o.machine = zones.NewMachine(o.onTransition)
	o.ctx, o.cancel = context.WithCancel(ctx)

	step, ok, err := cfg.Tour.Load(ctx, cfg.TourKey)
	switch {
	case err != nil:
		log.Warn("tour_load_error", "err", err)
	case ok:
		o.tourStep = step
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.setURLFields(o.codec.Decode(cfg.InitialQuery))
	o.query = o.codec.Encode(o.urlValues())
	o.resolve()
	o.areaModal = o.sel.AreaID == ""
	o.resModal = o.sel.Resource == ""
	return o, nil
}

func defaultParams(specs []catalog.ParamSpec) filter.Params {
	p := make(filter.Params, 0, len(specs))
	for _, s := range specs {
		p.Set(s.ID, s.Default)
	}
	return p
}

// SetArea selects an area. An ID missing from the catalog is kept but
// leaves the area unresolved. Selecting the current area is a no-op.
func (o *Orchestrator) SetArea(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed || id == o.sel.AreaID {
		return
	}
	o.sel.AreaID = id
	metrics.SelectionChangesTotal.WithLabelValues("area").Inc()
	o.selectionChanged(true)
}

// SetResource selects a resource. The empty tag clears the selection.
func (o *Orchestrator) SetResource(r catalog.Resource) error {
	if r != "" && !o.cfg.Panel.HasResource(r) {
		return fmt.Errorf("%w: %q", ErrUnknownResource, r)
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed || r == o.sel.Resource {
		return nil
	}
	o.sel.Resource = r
	metrics.SelectionChangesTotal.WithLabelValues("resource").Inc()
	o.selectionChanged(true)
	return nil
}

// SetGridSize picks one of the catalog grid options. In grid mode the
// current zones are invalidated since they were computed for another grid.
func (o *Orchestrator) SetGridSize(n int) error {
	if !o.cfg.Panel.ValidGridSize(n) {
		return fmt.Errorf("%w: %d", ErrInvalidGridSize, n)
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed || n == o.sel.GridSize {
		return nil
	}
	o.sel.GridSize = n
	metrics.SelectionChangesTotal.WithLabelValues("grid").Inc()
	if o.sel.GridMode {
		o.invalidate()
	}
	o.emit(EventSelection, o.sel.clone())
	return nil
}

// SetMaxZoneScore sets the zone score output range.
func (o *Orchestrator) SetMaxZoneScore(r filter.Range) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	r = r.Normalize()
	if r == o.sel.MaxZoneScore {
		return
	}
	o.sel.MaxZoneScore = r
	metrics.SelectionChangesTotal.WithLabelValues("score").Inc()
	o.pushHistory()
	o.emit(EventSelection, o.sel.clone())
}

// SetAreaModal overrides the area selector visibility until the next area
// or resource change.
func (o *Orchestrator) SetAreaModal(show bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.areaModal = show
	o.emit(EventModals, o.modals())
}

// SetResourceModal overrides the resource selector visibility until the
// next area or resource change.
func (o *Orchestrator) SetResourceModal(show bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.resModal = show
	o.emit(EventModals, o.modals())
}

// UpdateFilteredLayer compiles the query form, rebuilds both tile layer
// URLs and requests zones for the same compiled signature. It returns
// false, changing nothing, when no area is resolved.
func (o *Orchestrator) UpdateFilteredLayer(defs []filter.Definition, weights, lcoe filter.Params) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return false
	}
	if o.area == nil {
		o.log.Debug("layer_update_suppressed", "area", o.sel.AreaID)
		return false
	}

	fragment := filter.Compile(defs, o.sel.Resource, o.cfg.Panel)
	o.sel.Filters = cloneDefs(defs)
	o.sel.Weights = weights.Clone()
	o.sel.Lcoe = lcoe.Clone()
	o.compiled = fragment
	o.layers = Layers{
		Filter: FilterLayerURL(o.cfg.APIEndpoint, o.area, fragment),
		Lcoe:   LcoeLayerURL(o.cfg.APIEndpoint, fragment, filter.LcoeFragment(lcoe)),
	}
	o.emit(EventLayers, o.layers)
	o.generate(fragment, o.sel.Weights, o.sel.Lcoe)
	return true
}

// GenerateZones requests zones for an already compiled filter fragment.
// It returns false when no area is resolved.
func (o *Orchestrator) GenerateZones(fragment string, weights, lcoe filter.Params) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed || o.area == nil {
		return false
	}
	o.generate(fragment, weights.Clone(), lcoe.Clone())
	return true
}

// Navigate applies a query string from a navigation event. Unlike the
// setters it does not push a history entry.
func (o *Orchestrator) Navigate(query string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	o.applyValues(o.codec.Decode(query))
}

// SetTourStep writes the tour step to the tour store and, once stored,
// records it on the session.
func (o *Orchestrator) SetTourStep(ctx context.Context, step int) error {
	if step < 0 {
		return ErrInvalidTourStep
	}
	o.mu.Lock()
	closed := o.closed
	o.mu.Unlock()
	if closed {
		return ErrClosed
	}

	if err := o.cfg.Tour.Save(ctx, o.cfg.TourKey, step); err != nil {
		return fmt.Errorf("persisting tour step: %w", err)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return ErrClosed
	}
	o.tourStep = step
	o.emit(EventTour, step)
	return nil
}

// Query returns the encoded URL state.
func (o *Orchestrator) Query() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.query
}

// Zones returns the current fetch state.
func (o *Orchestrator) Zones() zones.FetchState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.machine.State()
}

// Close invalidates the fetch, cancels in-flight requests and waits for
// them. Their results are dropped.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.machine.Invalidate()
	o.closed = true
	o.mu.Unlock()

	o.cancel()
	o.wg.Wait()
}

// applyValues sets the URL-backed fields from decoded values. Unknown
// resources are ignored so the resource selector stays open.
func (o *Orchestrator) applyValues(v qsstate.Values) {
	prevArea, prevRes := o.sel.AreaID, o.sel.Resource
	o.setURLFields(v)
	if o.sel.AreaID != prevArea || o.sel.Resource != prevRes {
		o.selectionChanged(false)
		return
	}
	o.query = o.codec.Encode(o.urlValues())
	o.emit(EventSelection, o.sel.clone())
}

func (o *Orchestrator) setURLFields(v qsstate.Values) {
	areaID, _ := v[KeyArea].(string)
	res := catalog.Resource(stringValue(v[KeyResource]))
	if res != "" && !o.cfg.Panel.HasResource(res) {
		o.log.Debug("url_unknown_resource", "resource", res)
		res = ""
	}
	score, ok := v[KeyMaxZoneScore].(filter.Range)
	if !ok {
		score = DefaultMaxZoneScore
	}

	o.sel.AreaID = areaID
	o.sel.Resource = res
	o.sel.MaxZoneScore = score
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}

// selectionChanged runs after an area or resource change: URL, bounds,
// modals and fetch invalidation, in that order.
func (o *Orchestrator) selectionChanged(push bool) {
	if push {
		o.pushHistory()
	} else {
		o.query = o.codec.Encode(o.urlValues())
	}
	o.resolve()
	o.areaModal = o.sel.AreaID == ""
	o.resModal = o.sel.Resource == ""
	o.invalidate()
	o.emit(EventSelection, o.sel.clone())
	o.emit(EventModals, o.modals())
}

func (o *Orchestrator) resolve() {
	a, _ := o.cfg.Areas.Get(o.sel.AreaID)
	o.area = a
	o.resolved = bounds.Resolve(a, o.sel.Resource)
	o.sel.GridMode = o.resolved.GridMode
}

func (o *Orchestrator) urlValues() qsstate.Values {
	return qsstate.Values{
		KeyArea:         o.sel.AreaID,
		KeyResource:     string(o.sel.Resource),
		KeyMaxZoneScore: o.sel.MaxZoneScore,
	}
}

func (o *Orchestrator) pushHistory() {
	o.query = o.codec.Encode(o.urlValues())
	o.cfg.History.Push(o.query)
}

func (o *Orchestrator) invalidate() {
	metrics.ZoneInvalidationsTotal.Inc()
	o.machine.Invalidate()
}

// generate begins a fetch. Callers hold o.mu and have a resolved area.
func (o *Orchestrator) generate(fragment string, weights, lcoe filter.Params) {
	req := zones.Request{
		AreaID:  o.area.ID,
		Filter:  fragment,
		Weights: weights,
		Lcoe:    lcoe,
	}
	if o.sel.GridMode {
		req.GridSize = o.sel.GridSize
	}
	tok := o.machine.Begin()
	run := db.Run{
		Session:   o.cfg.Session,
		AreaID:    req.AreaID,
		Resource:  string(o.sel.Resource),
		GridSize:  req.GridSize,
		Signature: req.Key(),
	}
	o.log.Debug("zones_begin", "token", tok, "area", req.AreaID, "grid", req.GridSize)

	o.wg.Add(1)
	go o.fetch(tok, req, run)
}

func (o *Orchestrator) fetch(tok zones.Token, req zones.Request, run db.Run) {
	defer o.wg.Done()
	start := time.Now()
	fc, err := o.cfg.Fetcher.Fetch(o.ctx, req)
	if err == nil && fc == nil {
		err = errNoCollection
	}

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	honored := o.complete(tok, fc, err)
	o.mu.Unlock()

	if !honored {
		metrics.ZoneStaleTotal.Inc()
		o.log.Debug("zones_stale", "token", tok)
		return
	}
	if o.cfg.Runs == nil {
		return
	}
	run.DurationMs = time.Since(start).Milliseconds()
	run.At = time.Now().UTC()
	if err != nil {
		run.Status = string(zones.Failed)
		run.Error = err.Error()
	} else {
		run.Status = string(zones.Fetched)
		run.Features = len(fc.Features)
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(o.ctx), 5*time.Second)
	defer cancel()
	if err := o.cfg.Runs.Record(ctx, run); err != nil {
		o.log.Warn("run_record_error", "err", err)
	}
}

func (o *Orchestrator) complete(tok zones.Token, fc *geojson.FeatureCollection, err error) bool {
	if err != nil {
		return o.machine.Reject(tok, err)
	}
	return o.machine.Resolve(tok, fc)
}

func (o *Orchestrator) onTransition(prev, next zones.FetchState) {
	o.emit(EventZones, next)
	if prev.Loading() == next.Loading() {
		return
	}
	if ind := o.cfg.Indicator; ind != nil {
		if next.Loading() {
			ind.Show()
		} else {
			ind.Hide()
		}
	}
	o.emit(EventLoading, next.Loading())
}

func (o *Orchestrator) emit(kind EventKind, payload any) {
	if o.cfg.Listener != nil {
		o.cfg.Listener(Event{Kind: kind, Payload: payload})
	}
}
