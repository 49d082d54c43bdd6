// Package zones drives the zone generation lifecycle: a token-guarded
// fetch state machine plus the fetchers that talk to the remote zone API.
package zones

import (
	"encoding/json"

	"github.com/danielgtaylor/huma/v2"
	"github.com/paulmach/orb/geojson"
)

// Status is the fetch lifecycle state.
type Status string

const (
	Idle    Status = "idle"
	Pending Status = "pending"
	Fetched Status = "fetched"
	Failed  Status = "error"
)

// Token identifies one zone request. Only the live token may complete.
type Token uint64

// FetchState is the observable state of the zone fetch.
type FetchState struct {
	Status Status
	Data   *geojson.FeatureCollection
	Err    error
	Token  Token
}

// Fetched reports whether the last honored request succeeded.
func (s FetchState) Fetched() bool { return s.Status == Fetched }

// Loading reports whether a request is in flight.
func (s FetchState) Loading() bool { return s.Status == Pending }

type fetchStateJSON struct {
	Status  Status                     `json:"status"`
	Fetched bool                       `json:"fetched"`
	Data    *geojson.FeatureCollection `json:"data"`
	Error   string                     `json:"error,omitempty"`
	Token   Token                      `json:"token"`
}

// MarshalJSON renders {status, fetched, data, error, token}.
func (s FetchState) MarshalJSON() ([]byte, error) {
	out := fetchStateJSON{Status: s.Status, Fetched: s.Fetched(), Data: s.Data, Token: s.Token}
	if s.Status == "" {
		out.Status = Idle
	}
	if s.Err != nil {
		out.Error = s.Err.Error()
	}
	return json.Marshal(out)
}

// Schema describes the JSON form for Huma.
func (FetchState) Schema(r huma.Registry) *huma.Schema {
	return &huma.Schema{
		Type:     huma.TypeObject,
		Required: []string{"status", "fetched", "token"},
		Properties: map[string]*huma.Schema{
			"status":  {Type: huma.TypeString, Enum: []any{string(Idle), string(Pending), string(Fetched), string(Failed)}},
			"fetched": {Type: huma.TypeBoolean},
			"data":    {Type: huma.TypeObject, Nullable: true, Description: "GeoJSON FeatureCollection of zones"},
			"error":   {Type: huma.TypeString},
			"token":   {Type: huma.TypeInteger, Description: "Request token of the state"},
		},
	}
}

// same reports whether observers would see no change. Idle states differ
// only in token and stay silent; any other token change is a new request.
func (s FetchState) same(o FetchState) bool {
	if s.Status != o.Status || s.Data != o.Data {
		return false
	}
	return s.Status == Idle || s.Token == o.Token
}

// Observer receives every honored transition.
type Observer func(prev, next FetchState)

// Machine is the zone fetch state machine. It is not safe for concurrent
// use; the owner serializes calls.
type Machine struct {
	state   FetchState
	live    Token
	observe Observer
}

// NewMachine returns a machine in the idle state.
func NewMachine(observe Observer) *Machine {
	return &Machine{state: FetchState{Status: Idle}, observe: observe}
}

// State returns the current state.
func (m *Machine) State() FetchState { return m.state }

// Live returns the token a completion must carry to be honored.
func (m *Machine) Live() Token { return m.live }

// Invalidate retires the live token, drops any data and returns to idle.
// In-flight results become stale.
func (m *Machine) Invalidate() {
	m.live++
	m.set(FetchState{Status: Idle, Token: m.live})
}

// Begin allocates a new live token and enters pending. Data from the
// previous request stays visible until the new one completes.
func (m *Machine) Begin() Token {
	m.live++
	m.set(FetchState{Status: Pending, Data: m.state.Data, Token: m.live})
	return m.live
}

// Resolve completes request t with data. It returns false, changing
// nothing, when t is not the live pending request.
func (m *Machine) Resolve(t Token, data *geojson.FeatureCollection) bool {
	if !m.honors(t) {
		return false
	}
	m.set(FetchState{Status: Fetched, Data: data, Token: t})
	return true
}

// Reject fails request t with err, keeping the previous data. It returns
// false, changing nothing, when t is not the live pending request.
func (m *Machine) Reject(t Token, err error) bool {
	if !m.honors(t) {
		return false
	}
	m.set(FetchState{Status: Failed, Data: m.state.Data, Err: err, Token: t})
	return true
}

func (m *Machine) honors(t Token) bool {
	return t == m.live && m.state.Status == Pending
}

func (m *Machine) set(next FetchState) {
	prev := m.state
	m.state = next
	if m.observe != nil && !prev.same(next) {
		m.observe(prev, next)
	}
}
