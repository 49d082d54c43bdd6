package api

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-explore/internal/catalog"
	"github.com/joeblew999/plat-explore/internal/humastar"
	"github.com/joeblew999/plat-explore/internal/logger"
	"github.com/joeblew999/plat-explore/internal/service"
)

// signalKeys maps event kinds to the Datastar signal they patch.
var signalKeys = map[string]string{
	"selection": "selection",
	"zones":     "zones",
	"loading":   "loading",
	"layers":    "layers",
	"modals":    "modals",
	"tour":      "tourStep",
}

// RegisterEvents registers the session state stream.
func (h *APIHandler) RegisterEvents(api huma.API) {
	huma.Get(api, "/api/v1/sessions/{id}/events", h.Events,
		huma.OperationTags("stream"),
	)
	huma.Post(api, "/api/v1/sessions/{id}/signals", h.PostSignals,
		huma.OperationTags("stream"),
	)
}

type SignalsInput struct {
	SessionIDInput
	RawBody []byte
}

// PostSignals applies the selection signals a Datastar client posts
// (areaId, resourceId, gridSize, tourStep) and answers with the new view.
// Rejected values are reported through the error signal.
func (h *APIHandler) PostSignals(ctx context.Context, input *SignalsInput) (*huma.StreamResponse, error) {
	sess, err := h.session(input.ID)
	if err != nil {
		return nil, err
	}
	signals, err := (&humastar.SignalsInput{RawBody: input.RawBody}).Parse()
	if err != nil {
		return nil, err
	}
	applyErr := h.applySignals(ctx, sess, signals)

	return humastar.Stream(func(sse humastar.SSE) {
		if applyErr != nil {
			sse.Error(applyErr.Error())
		}
		sse.MarshalAndPatchSignals(sess.Snapshot())
	}), nil
}

func (h *APIHandler) applySignals(ctx context.Context, sess *service.Session, s humastar.Signals) error {
	var errs []error
	if s.Has("areaId") {
		id := s.String("areaId")
		if _, ok := h.svc.Areas.Get(id); id != "" && !ok {
			errs = append(errs, errors.New("area not found: "+id))
		} else {
			sess.SetArea(id)
		}
	}
	if s.Has("resourceId") {
		errs = append(errs, sess.SetResource(catalog.Resource(s.String("resourceId"))))
	}
	if s.Has("gridSize") {
		errs = append(errs, sess.SetGridSize(s.Int("gridSize")))
	}
	if s.Has("tourStep") {
		errs = append(errs, sess.SetTourStep(ctx, s.Int("tourStep")))
	}
	return errors.Join(errs...)
}

// Events streams the session view as Datastar signals: the whole view on
// connect, then one patch per orchestrator event.
func (h *APIHandler) Events(ctx context.Context, input *SessionIDInput) (*huma.StreamResponse, error) {
	sess, err := h.session(input.ID)
	if err != nil {
		return nil, err
	}
	bus := h.svc.Sessions.Bus()
	ch := bus.Subscribe(sess.ID)

	return humastar.Stream(func(sse humastar.SSE) {
		defer bus.Unsubscribe(ch)
		log := logger.L().With("session", sess.ID)

		if err := sse.MarshalAndPatchSignals(sess.Snapshot()); err != nil {
			log.Debug("sse_write_failed", "error", err)
			return
		}
		for {
			select {
			case <-sse.Done():
				return
			case ev, ok := <-ch:
				if !ok || ev.Kind == "closed" {
					return
				}
				if err := sse.Signals(eventSignals(ev, sess)); err != nil {
					log.Debug("sse_write_failed", "error", err)
					return
				}
			}
		}
	}), nil
}

func eventSignals(ev service.Event, sess *service.Session) map[string]any {
	key, ok := signalKeys[ev.Kind]
	if !ok {
		key = ev.Kind
	}
	signals := map[string]any{key: ev.Payload}
	if ev.Kind == "selection" {
		signals["query"] = sess.Query()
	}
	return signals
}
