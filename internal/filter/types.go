// Package filter compiles query form input (filters, weights and LCOE cost
// factors) into the query fragments sent to the tile and zone services.
package filter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

// Input types as they appear on the wire.
const (
	SliderType = "slider"
	BoolType   = "bool"
)

// Range is a closed numeric interval.
type Range struct {
	Min float64 `json:"min" doc:"Lower bound"`
	Max float64 `json:"max" doc:"Upper bound"`
}

// Normalize returns r with Min <= Max.
func (r Range) Normalize() Range {
	if r.Min > r.Max {
		r.Min, r.Max = r.Max, r.Min
	}
	return r
}

// Input is the value of a filter: either a Slider or a Toggle.
type Input interface {
	isInput()
}

// Slider selects a numeric range.
type Slider Range

// Toggle is a boolean switch.
type Toggle bool

func (Slider) isInput() {}
func (Toggle) isInput() {}

// Definition is one filter of the query form.
type Definition struct {
	ID     string
	Active bool
	Input  Input
}

type wireInput struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

type wireDefinition struct {
	ID     string    `json:"id"`
	Active bool      `json:"active"`
	Input  wireInput `json:"input"`
}

// MarshalJSON encodes the definition as {id, active, input:{type, value}}.
func (d Definition) MarshalJSON() ([]byte, error) {
	w := wireDefinition{ID: d.ID, Active: d.Active}
	var err error
	switch in := d.Input.(type) {
	case Slider:
		w.Input.Type = SliderType
		w.Input.Value, err = json.Marshal(Range(in))
	case Toggle:
		w.Input.Type = BoolType
		w.Input.Value, err = json.Marshal(bool(in))
	case nil:
		w.Input.Value = json.RawMessage("null")
	default:
		return nil, fmt.Errorf("filter %q: unsupported input %T", d.ID, in)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes {id, active, input:{type, value}}. The type tag is
// case-insensitive.
func (d *Definition) UnmarshalJSON(data []byte) error {
	var w wireDefinition
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	d.ID = w.ID
	d.Active = w.Active
	d.Input = nil

	switch strings.ToLower(w.Input.Type) {
	case SliderType:
		var r Range
		if err := json.Unmarshal(w.Input.Value, &r); err != nil {
			return fmt.Errorf("filter %q: slider value: %w", w.ID, err)
		}
		d.Input = Slider(r)
	case BoolType:
		var b bool
		if err := json.Unmarshal(w.Input.Value, &b); err != nil {
			return fmt.Errorf("filter %q: bool value: %w", w.ID, err)
		}
		d.Input = Toggle(b)
	default:
		return fmt.Errorf("filter %q: unknown input type %q", w.ID, w.Input.Type)
	}
	return nil
}

// Schema describes the wire form for Huma.
func (Definition) Schema(r huma.Registry) *huma.Schema {
	return &huma.Schema{
		Type:     huma.TypeObject,
		Required: []string{"id", "input"},
		Properties: map[string]*huma.Schema{
			"id":     {Type: huma.TypeString, Description: "Filter identifier"},
			"active": {Type: huma.TypeBoolean, Description: "Whether the filter is applied"},
			"input": {
				Type:     huma.TypeObject,
				Required: []string{"type", "value"},
				Properties: map[string]*huma.Schema{
					"type":  {Type: huma.TypeString, Enum: []any{SliderType, BoolType, "SLIDER", "BOOL"}},
					"value": {Description: "{min, max} for sliders, a boolean for toggles"},
				},
			},
		},
	}
}

// Param is one key/value entry of a weight or LCOE map.
type Param struct {
	Key   string
	Value float64
}

// Params is an insertion-ordered map of numeric parameters with unique keys.
// It encodes as a JSON object in entry order.
type Params []Param

// Set adds or replaces key, keeping the original position on replace.
func (p *Params) Set(key string, value float64) {
	for i := range *p {
		if (*p)[i].Key == key {
			(*p)[i].Value = value
			return
		}
	}
	*p = append(*p, Param{Key: key, Value: value})
}

// Get returns the value for key.
func (p Params) Get(key string) (float64, bool) {
	for _, e := range p {
		if e.Key == key {
			return e.Value, true
		}
	}
	return 0, false
}

// Clone returns a copy that shares nothing with p.
func (p Params) Clone() Params {
	if p == nil {
		return nil
	}
	out := make(Params, len(p))
	copy(out, p)
	return out
}

func (p Params) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range p {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(e.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.WriteString(FormatNumber(e.Value))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object keeping key order. Repeated keys keep
// their first position and last value.
func (p *Params) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*p = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("params: expected object, got %v", tok)
	}

	out := Params{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("params: expected key, got %v", keyTok)
		}
		var v float64
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("params: %q: %w", key, err)
		}
		out.Set(key, v)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*p = out
	return nil
}

// Schema describes Params as an object of numbers for Huma.
func (Params) Schema(r huma.Registry) *huma.Schema {
	return &huma.Schema{
		Type:                 huma.TypeObject,
		AdditionalProperties: &huma.Schema{Type: huma.TypeNumber},
	}
}
