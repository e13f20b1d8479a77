package wavetest

import (
	"testing"

	"wavemap/internal/gen/catalogs"
	"wavemap/internal/gen/wave"
)

// Harness is a small black-box helper for driving a map via exported
// APIs. It intentionally avoids touching wave internals so tests can
// live outside the wave package.
type Harness struct {
	T    *testing.T
	Cats *catalogs.Catalogs
	M    *wave.Map

	// Built records everything drained from the build queue.
	Built map[wave.Coord]string
}

func NewHarness(t *testing.T, cfg wave.Config, defs []catalogs.PrototypeDef, def []string, byY map[int][]string) *Harness {
	t.Helper()

	pc, err := catalogs.BuildPrototypes(defs)
	if err != nil {
		t.Fatalf("BuildPrototypes: %v", err)
	}
	cc, err := catalogs.BuildColumns(def, byY)
	if err != nil {
		t.Fatalf("BuildColumns: %v", err)
	}
	cats := &catalogs.Catalogs{Prototypes: pc, Columns: cc}

	m, err := wave.New(cfg, cats)
	if err != nil {
		t.Fatalf("wave.New: %v", err)
	}
	return &Harness{T: t, Cats: cats, M: m, Built: map[wave.Coord]string{}}
}

func (h *Harness) Build(c wave.Coord, p *catalogs.Prototype) {
	if _, dup := h.Built[c]; dup {
		h.T.Fatalf("cell %v materialized twice", c)
	}
	h.Built[c] = p.ID
}

// DrainAll empties the build queue into Built.
func (h *Harness) DrainAll() int {
	return h.M.Builds().DrainAll(h)
}

// TerrainDefs mirrors the shipped demo catalog: an air prototype above a
// ground layer, a walkable platform, and a rock that refuses to sit next
// to platforms.
func TerrainDefs() []catalogs.PrototypeDef {
	face := func(tag string, walkable bool) catalogs.Face {
		return catalogs.Face{Tag: tag, Walkable: walkable}
	}
	sixOf := func(f catalogs.Face) [6]catalogs.Face {
		return [6]catalogs.Face{f, f, f, f, f, f}
	}
	groundFaces := func(walkable bool) [6]catalogs.Face {
		side := face("ground", walkable)
		return [6]catalogs.Face{
			side,
			face("air", walkable),
			side,
			side,
			face("earth", false),
			side,
		}
	}
	return []catalogs.PrototypeDef{
		{ID: "air", Faces: sixOf(face("air", false)), Weight: 3},
		{ID: "ground", Faces: groundFaces(false), Weight: 2},
		{ID: "platform", Faces: groundFaces(true), Weight: 1},
		{ID: "rock", Faces: groundFaces(false), Weight: 1, Exclusions: []catalogs.ExclusionDef{
			{Direction: 0, Other: "platform"},
			{Direction: 2, Other: "platform"},
			{Direction: 3, Other: "platform"},
			{Direction: 5, Other: "platform"},
		}},
	}
}

// TerrainColumns pairs with TerrainDefs: solid candidates on the ground
// layer, air everywhere above.
func TerrainColumns() (def []string, byY map[int][]string) {
	return []string{"air"}, map[int][]string{0: {"ground", "platform", "rock"}}
}
