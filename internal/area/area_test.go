package area

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/paulmach/orb"
)

func TestParseBounds(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    orb.Bound
		wantErr bool
	}{
		{"plain", "-125,24,-66,49", NewBound(-125, 24, -66, 49), false},
		{"spaces", " 1, 2 ,3,4", NewBound(1, 2, 3, 4), false},
		{"swapped", "10,20,0,5", NewBound(0, 5, 10, 20), false},
		{"short", "1,2,3", orb.Bound{}, true},
		{"nan", "a,2,3,4", orb.Bound{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseBounds(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseBounds(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && !got.Equal(tt.want) {
				t.Fatalf("ParseBounds(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNewBoundNormalizes(t *testing.T) {
	b := NewBound(5, 6, 1, 2)
	if b.Min.X() > b.Max.X() || b.Min.Y() > b.Max.Y() {
		t.Fatalf("bound not normalized: %v", b)
	}
}

func TestLoadFiles(t *testing.T) {
	c, err := LoadFiles(filepath.Join("testdata", "areas.json"), filepath.Join("testdata", "eez.geojson"))
	if err != nil {
		t.Fatalf("LoadFiles: %v", err)
	}
	if c.Len() != 3 {
		t.Fatalf("expected 3 areas, got %d", c.Len())
	}

	usa, ok := c.Get("USA")
	if !ok {
		t.Fatal("expected USA (from gid)")
	}
	if !usa.IsCountry() {
		t.Errorf("USA type = %q", usa.Type)
	}
	if len(usa.EEZ) != 2 {
		t.Errorf("expected 2 EEZ polygons for USA, got %d", len(usa.EEZ))
	}
	if !usa.Bounds.Equal(NewBound(-125, 24, -66, 49)) {
		t.Errorf("unexpected USA bounds %v", usa.Bounds)
	}

	ken, ok := c.Get("KEN")
	if !ok {
		t.Fatal("expected KEN")
	}
	if len(ken.EEZ) != 0 {
		t.Errorf("expected no EEZ for KEN, got %d", len(ken.EEZ))
	}
	if ken.Bounds.Min.Y() != -4.7 {
		t.Errorf("string bounds not parsed: %v", ken.Bounds)
	}

	region, ok := c.Get("101")
	if !ok {
		t.Fatal("expected numeric region id to be stringified")
	}
	if region.IsCountry() || region.EEZ != nil {
		t.Errorf("region should carry no EEZ: %+v", region)
	}
}

func TestLoadFilesGzip(t *testing.T) {
	raw, err := os.ReadFile(filepath.Join("testdata", "eez.geojson"))
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "eez.geojson.gz")
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}

	c, err := LoadFiles(filepath.Join("testdata", "areas.json"), path)
	if err != nil {
		t.Fatalf("LoadFiles: %v", err)
	}
	usa, _ := c.Get("USA")
	if usa == nil || len(usa.EEZ) != 2 {
		t.Fatalf("expected gzipped EEZ to load, got %+v", usa)
	}
}

func TestLoadRejectsInvalidCatalog(t *testing.T) {
	tests := map[string]string{
		"notArray":   `{"type":"country"}`,
		"badType":    `[{"type":"city","name":"X","bounds":[0,0,1,1]}]`,
		"noBounds":   `[{"type":"region","id":"r","name":"X"}]`,
		"shortArray": `[{"type":"region","id":"r","name":"X","bounds":[0,0,1]}]`,
		"missingGid": `[{"type":"country","name":"X","bounds":[0,0,1,1]}]`,
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Load([]byte(doc), nil); err == nil {
				t.Fatalf("expected error for %s", doc)
			}
		})
	}
}

func TestCatalogDuplicates(t *testing.T) {
	first := &Area{ID: "A", Name: "first"}
	c := NewCatalog([]*Area{first, {ID: "A", Name: "second"}})
	if c.Len() != 1 {
		t.Fatalf("expected duplicate to be dropped, got %d", c.Len())
	}
	if got, _ := c.Get("A"); got != first {
		t.Fatalf("expected first area to win, got %+v", got)
	}
	if _, ok := c.Get(""); ok {
		t.Fatal("empty id must not resolve")
	}
	var nilCatalog *Catalog
	if _, ok := nilCatalog.Get("A"); ok {
		t.Fatal("nil catalog must not resolve")
	}
}
