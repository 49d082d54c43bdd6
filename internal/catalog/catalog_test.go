package catalog

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	p := Default()

	if !p.HasResource(OffshoreWind) {
		t.Fatalf("expected %q in resources %v", OffshoreWind, p.Resources)
	}
	if p.DefaultGridSize() != p.GridOptions[0] {
		t.Errorf("default grid size %d, want first option %d", p.DefaultGridSize(), p.GridOptions[0])
	}
	if len(p.Weights) == 0 || len(p.Lcoe) == 0 {
		t.Errorf("expected weights and lcoe factors, got %d and %d", len(p.Weights), len(p.Lcoe))
	}
}

func TestApplies(t *testing.T) {
	p := Default()

	tests := []struct {
		filter   string
		resource Resource
		want     bool
	}{
		{"f_depth", OffshoreWind, true},
		{"f_depth", "Solar", false},
		{"f_ghi", "Solar", true},
		{"f_protected", "Wind", true},
		{"unknown", "Solar", false},
	}
	for _, tt := range tests {
		if got := p.Applies(tt.filter, tt.resource); got != tt.want {
			t.Errorf("Applies(%q, %q) = %v, want %v", tt.filter, tt.resource, got, tt.want)
		}
	}
}

func TestAppliesUnindexed(t *testing.T) {
	p := &Panel{Filters: []FilterSpec{{ID: "dist", Resources: []Resource{"Solar"}}}}
	if !p.Applies("dist", "Solar") {
		t.Error("expected dist to apply to Solar")
	}
	if p.Applies("dist", "Wind") {
		t.Error("expected dist not to apply to Wind")
	}
}

func TestValidGridSize(t *testing.T) {
	p := Default()
	if !p.ValidGridSize(25) {
		t.Error("expected 25 to be a grid option")
	}
	if p.ValidGridSize(7) {
		t.Error("expected 7 not to be a grid option")
	}
}

func TestLoad(t *testing.T) {
	t.Run("emptyPath", func(t *testing.T) {
		p, err := Load("")
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if len(p.Resources) != len(Default().Resources) {
			t.Fatalf("expected default panel, got %v", p.Resources)
		}
	})

	t.Run("missingFile", func(t *testing.T) {
		p, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		if !errors.Is(err, fs.ErrNotExist) {
			t.Fatalf("err = %v, want not-exist", err)
		}
		if p != nil {
			t.Fatal("a missing explicit catalog must not fall back to the default")
		}
	})

	t.Run("override", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "panel.yaml")
		content := `
resources: [Solar]
grid_options: [4]
filters:
  - {id: dist, name: Distance, type: slider, resources: [Solar]}
`
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
		p, err := Load(path)
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if p.DefaultGridSize() != 4 {
			t.Errorf("grid size %d, want 4", p.DefaultGridSize())
		}
		if !p.Applies("dist", "Solar") {
			t.Error("expected dist to apply to Solar")
		}
	})

	t.Run("noResources", func(t *testing.T) {
		if _, err := Parse([]byte("grid_options: [4]\n")); err == nil {
			t.Fatal("expected error for empty resource list")
		}
	})
}
