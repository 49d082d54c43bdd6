package filter

import (
	"encoding/json"
	"reflect"
	"sort"
	"testing"

	"github.com/joeblew999/plat-explore/internal/catalog"
)

// table applies every listed filter to every resource in it.
type table map[string][]catalog.Resource

func (t table) Applies(id string, r catalog.Resource) bool {
	for _, res := range t[id] {
		if res == r {
			return true
		}
	}
	return false
}

var solarTable = table{
	"dist":   {"Solar"},
	"slope":  {"Solar"},
	"water":  {"Solar"},
	"depth":  {catalog.OffshoreWind},
	"roads":  {"Solar", "Wind"},
	"urban":  {"Solar"},
	"shores": {"Solar"},
}

func slider(id string, active bool, min, max float64) Definition {
	return Definition{ID: id, Active: active, Input: Slider{Min: min, Max: max}}
}

func toggle(id string, active, v bool) Definition {
	return Definition{ID: id, Active: active, Input: Toggle(v)}
}

func TestCompileSlider(t *testing.T) {
	got := Compile([]Definition{slider("dist", true, 10, 50)}, "Solar", solarTable)
	if got != "dist=10,50" {
		t.Fatalf("got %q, want %q", got, "dist=10,50")
	}
}

func TestCompileInactive(t *testing.T) {
	got := Compile([]Definition{slider("dist", false, 10, 50)}, "Solar", solarTable)
	if got != "" {
		t.Fatalf("got %q, want empty fragment", got)
	}
}

func TestCompile(t *testing.T) {
	tests := []struct {
		name     string
		defs     []Definition
		resource catalog.Resource
		want     string
	}{
		{"empty", nil, "Solar", ""},
		{"toggle", []Definition{toggle("water", true, false)}, "Solar", "water=false"},
		{"notApplicable", []Definition{slider("depth", true, 0, 100)}, "Solar", ""},
		{"unknownFilter", []Definition{slider("nope", true, 0, 1)}, "Solar", ""},
		{"mixed", []Definition{
			slider("dist", true, 10, 50),
			slider("depth", true, 0, 100),
			toggle("water", true, true),
			slider("slope", false, 0, 5),
			slider("roads", true, 0.5, 2.25),
		}, "Solar", "dist=10,50&water=true&roads=0.5,2.25"},
		{"nilInput", []Definition{{ID: "dist", Active: true}}, "Solar", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Compile(tt.defs, tt.resource, solarTable); got != tt.want {
				t.Fatalf("Compile = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCompileIdempotent(t *testing.T) {
	defs := []Definition{slider("dist", true, 1, 2), toggle("water", true, true), slider("roads", true, 3, 4)}
	a := Compile(defs, "Solar", solarTable)
	b := Compile(defs, "Solar", solarTable)
	if a != b {
		t.Fatalf("compile not idempotent: %q vs %q", a, b)
	}
}

func pairSet(fragment string) []string {
	var out []string
	for _, p := range Pairs(fragment) {
		out = append(out, p.Key+"="+p.Value)
	}
	sort.Strings(out)
	return out
}

func TestCompileOrderInvariance(t *testing.T) {
	defs := []Definition{
		slider("dist", true, 10, 50),
		toggle("water", true, true),
		slider("roads", true, 0, 5),
		slider("urban", true, 1, 9),
		toggle("shores", true, false),
	}
	base := Compile(defs, "Solar", solarTable)
	baseSet := pairSet(base)

	perms := [][]int{
		{4, 3, 2, 1, 0},
		{1, 0, 3, 2, 4},
		{2, 4, 0, 1, 3},
	}
	for _, perm := range perms {
		permuted := make([]Definition, len(defs))
		for i, j := range perm {
			permuted[i] = defs[j]
		}
		got := Compile(permuted, "Solar", solarTable)
		if !reflect.DeepEqual(pairSet(got), baseSet) {
			t.Errorf("permutation %v: pairs %v, want %v", perm, pairSet(got), baseSet)
		}
		if Canonical(got) != Canonical(base) {
			t.Errorf("permutation %v: canonical %q, want %q", perm, Canonical(got), Canonical(base))
		}
	}
}

func TestLcoeFragment(t *testing.T) {
	var p Params
	p.Set("cg", 2000)
	p.Set("i", 0.07)
	p.Set("n", 25)

	if got, want := LcoeFragment(p), "&cg=2000&i=0.07&n=25"; got != want {
		t.Fatalf("LcoeFragment = %q, want %q", got, want)
	}
	if got := LcoeFragment(nil); got != "" {
		t.Fatalf("LcoeFragment(nil) = %q, want empty", got)
	}
}

func TestPairs(t *testing.T) {
	got := Pairs("&a=1,2&&b=true&c")
	want := []Pair{{"a", "1,2"}, {"b", "true"}, {"c", ""}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Pairs = %v, want %v", got, want)
	}
}

func TestParamsSetKeepsKeysUnique(t *testing.T) {
	var p Params
	p.Set("a", 1)
	p.Set("b", 2)
	p.Set("a", 3)

	if len(p) != 2 {
		t.Fatalf("expected 2 entries, got %v", p)
	}
	if v, _ := p.Get("a"); v != 3 {
		t.Errorf("a = %v, want 3", v)
	}
	if p[0].Key != "a" {
		t.Errorf("replace moved key: %v", p)
	}
	if _, ok := p.Get("z"); ok {
		t.Error("unexpected key z")
	}
}

func TestParamsJSONKeepsOrder(t *testing.T) {
	var p Params
	if err := json.Unmarshal([]byte(`{"z": 1, "a": 0.5, "m": 2}`), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got := LcoeFragment(p); got != "&z=1&a=0.5&m=2" {
		t.Fatalf("order lost: %q", got)
	}

	out, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `{"z":1,"a":0.5,"m":2}` {
		t.Fatalf("marshal = %s", out)
	}

	if err := json.Unmarshal([]byte(`[1,2]`), &p); err == nil {
		t.Fatal("expected error for array")
	}
}

func TestDefinitionJSON(t *testing.T) {
	in := `[
		{"id": "dist", "active": true, "input": {"type": "SLIDER", "value": {"min": 10, "max": 50}}},
		{"id": "water", "active": false, "input": {"type": "bool", "value": true}}
	]`
	var defs []Definition
	if err := json.Unmarshal([]byte(in), &defs); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got, ok := defs[0].Input.(Slider); !ok || got.Min != 10 || got.Max != 50 {
		t.Fatalf("unexpected slider %#v", defs[0].Input)
	}
	if got, ok := defs[1].Input.(Toggle); !ok || !bool(got) {
		t.Fatalf("unexpected toggle %#v", defs[1].Input)
	}

	out, err := json.Marshal(defs[0])
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back Definition
	if err := json.Unmarshal(out, &back); err != nil {
		t.Fatalf("unmarshal back: %v", err)
	}
	if !reflect.DeepEqual(back, defs[0]) {
		t.Fatalf("got %#v, want %#v", back, defs[0])
	}

	bad := `{"id": "x", "active": true, "input": {"type": "dropdown", "value": 1}}`
	if err := json.Unmarshal([]byte(bad), &back); err == nil {
		t.Fatal("expected error for unknown input type")
	}
}

func TestCanonicalParams(t *testing.T) {
	var a, b Params
	a.Set("x", 1)
	a.Set("y", 2)
	b.Set("y", 2)
	b.Set("x", 1)
	if a.Canonical() != b.Canonical() {
		t.Fatalf("canonical differs: %q vs %q", a.Canonical(), b.Canonical())
	}
}

func TestRangeNormalize(t *testing.T) {
	if got := (Range{Min: 5, Max: 1}).Normalize(); got.Min != 1 || got.Max != 5 {
		t.Fatalf("Normalize = %+v", got)
	}
}

func TestSignature(t *testing.T) {
	var w1, w2 Params
	w1.Set("ghi", 0.5)
	w1.Set("roads", 0.2)
	w2.Set("roads", 0.2)
	w2.Set("ghi", 0.5)

	a := Signature("dist=10,50&water=true", w1, nil)
	b := Signature("water=true&dist=10,50", w2, Params{})
	if a != b {
		t.Fatalf("signatures differ: %q vs %q", a, b)
	}
	if c := Signature("dist=10,51&water=true", w1, nil); c == a {
		t.Fatal("different filters must not share a signature")
	}
}
