package wave

import (
	"fmt"
	"testing"

	"wavemap/internal/gen/catalogs"
)

func allFaces(tag string) [6]catalogs.Face {
	var f [6]catalogs.Face
	for i := range f {
		f[i] = catalogs.Face{Tag: tag}
	}
	return f
}

// openDefs builds n prototypes that are mutually compatible in every
// direction, with weights 1..n.
func openDefs(n int) []catalogs.PrototypeDef {
	defs := make([]catalogs.PrototypeDef, 0, n)
	for i := 0; i < n; i++ {
		defs = append(defs, catalogs.PrototypeDef{
			ID:     fmt.Sprintf("p%d", i),
			Faces:  allFaces("open"),
			Weight: float64(i + 1),
		})
	}
	return defs
}

func testCatalogs(t *testing.T, defs []catalogs.PrototypeDef, def []string, byY map[int][]string) *catalogs.Catalogs {
	t.Helper()
	pc, err := catalogs.BuildPrototypes(defs)
	if err != nil {
		t.Fatalf("BuildPrototypes: %v", err)
	}
	cc, err := catalogs.BuildColumns(def, byY)
	if err != nil {
		t.Fatalf("BuildColumns: %v", err)
	}
	return &catalogs.Catalogs{Prototypes: pc, Columns: cc}
}

func testMap(t *testing.T, cfg Config, cats *catalogs.Catalogs) *Map {
	t.Helper()
	m, err := New(cfg, cats)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return m
}
