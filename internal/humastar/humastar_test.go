package humastar

import (
	"reflect"
	"strings"
	"testing"
)

func TestParseSignals(t *testing.T) {
	s, err := ParseSignals([]byte(`{"areaId":"KEN","gridSize":25,"score":0.5,"open":true}`))
	if err != nil {
		t.Fatalf("ParseSignals: %v", err)
	}
	if s.String("areaId") != "KEN" || s.Int("gridSize") != 25 || s.Float("score") != 0.5 || !s.Bool("open") {
		t.Fatalf("unexpected signals %v", s)
	}
	if s.Has("missing") || s.String("gridSize") != "" {
		t.Fatal("type mismatch or missing key must yield zero values")
	}

	in := &SignalsInput{RawBody: []byte("{")}
	if _, err := in.Parse(); err == nil {
		t.Fatal("expected error for malformed body")
	}
}

func TestActionsFor(t *testing.T) {
	got := ActionsFor("abc", []ActionDef{{Rel: "area", Pattern: "/s/%s/area", Method: "PUT", Title: "Select area"}})
	want := []Action{{Rel: "area", Href: "/s/abc/area", Method: "PUT", Title: "Select area"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ActionsFor = %+v", got)
	}
	if h := got[0].LinkHeader(); h != `</s/abc/area>; rel="area"; method="PUT"; title="Select area"` {
		t.Fatalf("LinkHeader = %s", h)
	}
}

func TestPage(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	p := Page(items, 2, 2)
	if !reflect.DeepEqual(p.Data, []int{3, 4}) || p.Total != 5 {
		t.Fatalf("Page = %+v", p)
	}
	links := strings.Join(p.PaginationLinks("/runs"), ",")
	for _, rel := range []string{`rel="first"`, `rel="prev"`, `rel="next"`, `offset=4&limit=2>; rel="last"`} {
		if !strings.Contains(links, rel) {
			t.Errorf("missing %s in %s", rel, links)
		}
	}
	if p := Page(items, 10, 2); len(p.Data) != 0 {
		t.Fatalf("out of range page = %+v", p)
	}
	if links := Page(items, 0, 0).PaginationLinks("/runs"); links != nil {
		t.Fatalf("zero limit links = %v", links)
	}
}

func TestNilLinks(t *testing.T) {
	var l *Links
	if got := l.For(EntryPath); got != nil {
		t.Fatalf("For on nil links = %v", got)
	}
}

func TestParseLinkHeader(t *testing.T) {
	rel, href := parseLinkHeader(`</api/v1/areas>; rel="areas"`)
	if rel != "areas" || href != "/api/v1/areas" {
		t.Fatalf("parseLinkHeader = %q %q", rel, href)
	}
	if rel, _ := parseLinkHeader("garbage"); rel != "" {
		t.Fatalf("rel = %q, want empty", rel)
	}
}
