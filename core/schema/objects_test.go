package schema

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/artpar/vizprops/core/errs"
	"github.com/artpar/vizprops/core/model"
	"github.com/artpar/vizprops/core/registry"
)

const plotDefs = `
types:
  Plot:
    properties:
      title: Nullable(String)
      renderers: Seq(Instance(Glyph))
`

func sceneRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg, _ := loadGlyphs(t)
	types, err := NewLoader(reg, zerolog.Nop()).Build(mustParse(t, plotDefs))
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if err := reg.RegisterAll(types); err != nil {
		t.Fatalf("RegisterAll() error = %v", err)
	}
	return reg
}

const scene = `
roots: [plot]
objects:
  - id: plot
    type: Plot
    props:
      title: demo
      renderers: [{ ref: c1 }, { ref: c2 }]
  - id: c1
    type: Circle
    props:
      border_line_color: red
  - id: c2
    type: Circle
`

func TestLoadObjects(t *testing.T) {
	reg := sceneRegistry(t)

	set, err := LoadObjects([]byte(scene), reg)
	if err != nil {
		t.Fatalf("LoadObjects() error = %v", err)
	}
	if len(set.Objects) != 3 || len(set.Roots) != 1 || set.Roots[0].ID() != "plot" {
		t.Fatalf("LoadObjects() = %d objects, roots %v", len(set.Objects), set.Roots)
	}

	c1, ok := set.Get("c1")
	if !ok || c1.TypeName() != "Circle" {
		t.Fatalf("Get(c1) = %v, %v", c1, ok)
	}
	plot, _ := set.Get("plot")
	renderers := plot.MustGet("renderers").([]any)
	if len(renderers) != 2 || renderers[0] != c1 {
		t.Errorf("renderers = %v, want the c1 object first", renderers)
	}

	doc := model.Serialize(set.Roots...)
	if len(doc.Objects) != 3 {
		t.Fatalf("Serialize() found %d objects, want 3", len(doc.Objects))
	}
	attrs := doc.Objects[0].Attributes
	refs := attrs["renderers"].([]any)
	if refs[1].(map[string]any)["id"] != "c2" {
		t.Errorf("renderers wire form = %v", refs)
	}
	color := doc.Objects[1].Attributes["border_line_color"].(map[string]any)
	if color["value"] != "red" {
		t.Errorf("border_line_color wire form = %v", color)
	}
}

func TestLoadObjects_AllRootsByDefault(t *testing.T) {
	reg := sceneRegistry(t)
	src := strings.Replace(scene, "roots: [plot]\n", "", 1)

	set, err := LoadObjects([]byte(src), reg)
	if err != nil {
		t.Fatalf("LoadObjects() error = %v", err)
	}
	if len(set.Roots) != 3 {
		t.Errorf("Roots = %d, want every object", len(set.Roots))
	}
}

func TestLoadObjects_Errors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr error
		wantMsg string
	}{
		{
			name:    "unknown type",
			yaml:    "objects:\n  - { id: a, type: Square }\n",
			wantErr: errs.ErrNotFound,
			wantMsg: "Square",
		},
		{
			name:    "missing id",
			yaml:    "objects:\n  - { type: Plot }\n",
			wantErr: errs.ErrDefinition,
			wantMsg: "id is required",
		},
		{
			name:    "duplicate id",
			yaml:    "objects:\n  - { id: a, type: Plot }\n  - { id: a, type: Plot }\n",
			wantErr: errs.ErrConflict,
			wantMsg: "declared twice",
		},
		{
			name:    "dangling reference",
			yaml:    "objects:\n  - { id: a, type: Plot, props: { renderers: [{ ref: b }] } }\n",
			wantErr: errs.ErrNotFound,
			wantMsg: `unknown object "b"`,
		},
		{
			name:    "bad value",
			yaml:    "objects:\n  - { id: a, type: Circle, props: { visible: maybe } }\n",
			wantErr: errs.ErrTypeMismatch,
			wantMsg: `object "a"`,
		},
		{
			name:    "reference of the wrong type",
			yaml:    "objects:\n  - { id: p, type: Plot }\n  - { id: q, type: Plot, props: { renderers: [{ ref: p }] } }\n",
			wantErr: errs.ErrTypeMismatch,
			wantMsg: `object "q"`,
		},
		{
			name:    "unknown root",
			yaml:    "roots: [z]\nobjects:\n  - { id: a, type: Plot }\n",
			wantErr: errs.ErrNotFound,
			wantMsg: "root",
		},
		{
			name:    "unknown key",
			yaml:    "objects:\n  - { id: a, type: Plot, attrs: {} }\n",
			wantErr: errs.ErrDefinition,
			wantMsg: "parse yaml",
		},
		{
			name:    "bundle",
			yaml:    "objects:\n  - { id: a, type: LineProps }\n",
			wantErr: errs.ErrDefinition,
			wantMsg: "LineProps",
		},
	}

	reg := sceneRegistry(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadObjects([]byte(tt.yaml), reg)
			if err == nil {
				t.Fatal("LoadObjects() should fail")
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("LoadObjects() error = %v, want %v", err, tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("LoadObjects() error = %q, want it to contain %q", err, tt.wantMsg)
			}
		})
	}
}

func TestLoadObjectsFile(t *testing.T) {
	reg := sceneRegistry(t)
	path := filepath.Join(t.TempDir(), "scene.yaml")
	writeFile(t, path, scene)

	set, err := LoadObjectsFile(path, reg)
	if err != nil {
		t.Fatalf("LoadObjectsFile() error = %v", err)
	}
	if len(set.Objects) != 3 {
		t.Errorf("LoadObjectsFile() = %d objects", len(set.Objects))
	}

	if _, err := LoadObjectsFile(filepath.Join(t.TempDir(), "missing.yaml"), reg); err == nil {
		t.Error("LoadObjectsFile() should fail for a missing file")
	}
}
