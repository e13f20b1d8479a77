package wavetest

import (
	"fmt"
	"reflect"
	"testing"

	"wavemap/internal/gen/catalogs"
	"wavemap/internal/gen/wave"
)

func openFaces() [6]catalogs.Face {
	var f [6]catalogs.Face
	for i := range f {
		f[i] = catalogs.Face{Tag: "open"}
	}
	return f
}

func openDefs(n int) []catalogs.PrototypeDef {
	defs := make([]catalogs.PrototypeDef, 0, n)
	for i := 0; i < n; i++ {
		defs = append(defs, catalogs.PrototypeDef{
			ID:     fmt.Sprintf("p%d", i),
			Faces:  openFaces(),
			Weight: float64(i + 1),
		})
	}
	return defs
}

func TestCollapse_TerminatesOverRegion(t *testing.T) {
	h := NewHarness(t, wave.Config{Height: 4, Seed: 42},
		openDefs(3), []string{"p0", "p1", "p2"}, nil)

	h.M.CollapseBox(wave.Coord{X: 0, Y: 0, Z: 0}, wave.Coord{X: 3, Y: 3, Z: 3})

	if got := h.M.WorkSetSize(); got != 0 {
		t.Fatalf("work set not drained: %d slots remain", got)
	}
	if got := h.M.FailureCount(); got != 0 {
		t.Fatalf("mutually compatible catalog produced %d failures", got)
	}
	if got := h.M.CollapsedCount(); got != 64 {
		t.Fatalf("collapsed %d slots, want all 64 targets", got)
	}
	if got := h.DrainAll(); got != 64 {
		t.Fatalf("drained %d builds, want 64", got)
	}
	if len(h.Built) != 64 {
		t.Fatalf("build queue emitted %d distinct coordinates, want 64", len(h.Built))
	}
	for c, id := range h.Built {
		if id == "" {
			t.Fatalf("cell %v built without a prototype", c)
		}
	}
}

func TestCollapse_TerrainScene(t *testing.T) {
	def, byY := TerrainColumns()
	h := NewHarness(t, wave.Config{Height: 4, DefaultExtent: 2, EnableExclusions: true, Seed: 1337},
		TerrainDefs(), def, byY)

	h.M.CollapseDefaultArea()
	h.DrainAll()

	if got := h.M.FailureCount(); got != 0 {
		t.Fatalf("terrain catalog produced %d failures", got)
	}
	solid := map[string]bool{"ground": true, "platform": true, "rock": true}
	for c, id := range h.Built {
		if c.Y == 0 && !solid[id] {
			t.Fatalf("ground layer cell %v built as %q", c, id)
		}
		if c.Y > 0 && id != "air" {
			t.Fatalf("upper cell %v built as %q, want air", c, id)
		}
	}

	// Authored exclusions must hold in the output: rock never sits beside
	// a platform on any horizontal axis.
	horizontal := []wave.Direction{wave.DirPosX, wave.DirPosZ, wave.DirNegX, wave.DirNegZ}
	for c, id := range h.Built {
		if id != "rock" {
			continue
		}
		for _, d := range horizontal {
			if h.Built[c.Neighbor(d)] == "platform" {
				t.Fatalf("rock at %v adjacent to platform toward %d", c, d)
			}
		}
	}
}

func TestCollapse_ContradictionsQueuedNotFatal(t *testing.T) {
	// Ground and sky share no face tag, so every column of the region must
	// lose one of its two cells. The engine records those as failures and
	// keeps going.
	defs := []catalogs.PrototypeDef{
		{ID: "ground", Faces: tagFaces("g"), Weight: 1},
		{ID: "sky", Faces: tagFaces("s"), Weight: 1},
	}
	h := NewHarness(t, wave.Config{Height: 2, Seed: 9},
		defs, []string{"sky"}, map[int][]string{0: {"ground"}})

	h.M.CollapseBox(wave.Coord{X: 0, Y: 0, Z: 0}, wave.Coord{X: 1, Y: 1, Z: 1})

	if got := h.M.WorkSetSize(); got != 0 {
		t.Fatalf("work set not drained: %d slots remain", got)
	}
	collapsed, failed := h.M.CollapsedCount(), h.M.FailureCount()
	if collapsed+failed != 8 {
		t.Fatalf("collapsed %d + failed %d, want every target accounted for (8)", collapsed, failed)
	}
	if failed != 4 {
		t.Fatalf("failed %d slots, want one per column (4)", failed)
	}

	// Recovery cannot help here: the rebuilt profile is filtered against a
	// collapsed incompatible neighbor, so the sweep re-enqueues everything.
	h.M.Collapse(nil)
	if got := h.M.FailureCount(); got != 4 {
		t.Fatalf("failure queue changed to %d after hopeless recovery sweep", got)
	}
}

func tagFaces(tag string) [6]catalogs.Face {
	var f [6]catalogs.Face
	for i := range f {
		f[i] = catalogs.Face{Tag: tag}
	}
	return f
}

func TestCollapse_DeterministicUnderFixedSeed(t *testing.T) {
	def, byY := TerrainColumns()
	run := func() map[wave.Coord]string {
		h := NewHarness(t, wave.Config{Height: 4, EnableExclusions: true, Seed: 2024},
			TerrainDefs(), def, byY)
		h.M.CollapseBox(wave.Coord{X: -3, Y: 0, Z: -3}, wave.Coord{X: 3, Y: 3, Z: 3})
		h.DrainAll()
		return h.Built
	}

	first := run()
	second := run()
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("same seed produced different maps (%d vs %d cells)", len(first), len(second))
	}
}

func TestCollapse_ArcConsistencyAtQuiescence(t *testing.T) {
	def, byY := TerrainColumns()
	h := NewHarness(t, wave.Config{Height: 3, EnableExclusions: true, Seed: 5},
		TerrainDefs(), def, byY)

	h.M.CollapseBox(wave.Coord{X: 0, Y: 0, Z: 0}, wave.Coord{X: 2, Y: 2, Z: 2})

	compatible := func(a, b *catalogs.Prototype, d wave.Direction) bool {
		if a.Faces[d].Tag != b.Faces[d.Opposite()].Tag {
			return false
		}
		return !a.Excludes(int(d), b.ID) && !b.Excludes(int(d.Opposite()), a.ID)
	}

	// Every surviving candidate must have at least one supporter in each
	// materialized neighbor.
	h.M.EachSlot(func(s *wave.Slot) {
		if s.CandidateCount() == 0 {
			return
		}
		for d := wave.Direction(0); d < wave.NumDirections; d++ {
			n := h.M.GetSlot(s.Coord.Neighbor(d), false)
			if n == nil || n.CandidateCount() == 0 {
				continue
			}
			for _, p := range s.Candidates() {
				supported := false
				for _, q := range n.Candidates() {
					if compatible(p, q, d) {
						supported = true
						break
					}
				}
				if !supported {
					t.Fatalf("slot %v keeps %q with no support toward %d", s.Coord, p.ID, d)
				}
			}
		}
	})
}

func TestProgressSnapshots(t *testing.T) {
	h := NewHarness(t, wave.Config{Height: 2, Seed: 3},
		openDefs(2), []string{"p0", "p1"}, nil)

	var last wave.Progress
	count := 0
	h.M.SetProgress(func(p wave.Progress) {
		last = p
		count++
	})

	h.M.CollapseBox(wave.Coord{X: 0, Y: 0, Z: 0}, wave.Coord{X: 1, Y: 1, Z: 1})
	if count == 0 {
		t.Fatalf("progress observer never invoked")
	}
	if last.Remaining != 0 {
		t.Fatalf("final snapshot remaining = %d, want 0", last.Remaining)
	}
	if last.Collapsed != 8 {
		t.Fatalf("final snapshot collapsed = %d, want 8", last.Collapsed)
	}
	if last.PendingBuilds != h.M.Builds().Len() {
		t.Fatalf("snapshot pending builds %d disagrees with queue %d", last.PendingBuilds, h.M.Builds().Len())
	}
}

func TestWalkway_FiltersUnwalkable(t *testing.T) {
	def, byY := TerrainColumns()
	h := NewHarness(t, wave.Config{Height: 2, EnableExclusions: true, Seed: 11},
		TerrainDefs(), def, byY)

	c := wave.Coord{X: 0, Y: 0, Z: 0}
	if err := h.M.EnforceWalkway(c, wave.DirPosX); err != nil {
		t.Fatalf("EnforceWalkway: %v", err)
	}
	s := h.M.GetSlot(c, false)
	for _, p := range s.Candidates() {
		if !p.Faces[wave.DirPosX].Walkable {
			t.Fatalf("unwalkable candidate %q survived", p.ID)
		}
	}
	if s.CandidateCount() != 1 || s.Candidates()[0].ID != "platform" {
		t.Fatalf("want only platform left, got %d candidates", s.CandidateCount())
	}
}

func TestWalkway_PathBothEnds(t *testing.T) {
	def, byY := TerrainColumns()
	h := NewHarness(t, wave.Config{Height: 2, EnableExclusions: true, Seed: 11},
		TerrainDefs(), def, byY)

	start, dest := wave.Coord{X: 0, Y: 0, Z: 0}, wave.Coord{X: 1, Y: 0, Z: 0}
	if err := h.M.EnforceWalkwayPath(start, dest); err != nil {
		t.Fatalf("EnforceWalkwayPath: %v", err)
	}
	for _, c := range []wave.Coord{start, dest} {
		s := h.M.GetSlot(c, false)
		if s.CandidateCount() != 1 || s.Candidates()[0].ID != "platform" {
			t.Fatalf("cell %v not narrowed to platform", c)
		}
	}

	if err := h.M.EnforceWalkwayPath(start, wave.Coord{X: 2, Y: 0, Z: 0}); err == nil {
		t.Fatalf("non-adjacent path accepted")
	}
	if err := h.M.EnforceWalkway(wave.Coord{X: 0, Y: -1, Z: 0}, wave.DirPosX); err == nil {
		t.Fatalf("out-of-bounds walkway accepted")
	}
}
