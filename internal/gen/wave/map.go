package wave

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/zyedidia/generic/mapset"

	"wavemap/internal/gen/catalogs"
	"wavemap/internal/gen/mathx"
)

// Config is the immutable surface of one map instance. RangeLimit of zero
// disables the radius cap; Height always applies.
type Config struct {
	Height           int
	DefaultExtent    int
	RangeLimit       int
	RangeLimitCenter Coord
	EnableExclusions bool
	Seed             int64
}

// Map owns every slot, keyed by coordinate. Slots are materialized lazily
// on first in-bounds access and reference the map only for lookup and
// event reporting. Single-writer: one logical caller drives a map at a
// time, so there is no locking.
type Map struct {
	cfg  Config
	cats *catalogs.Catalogs
	rng  *rand.Rand

	slots   map[Coord]*Slot
	workSet mapset.Set[*Slot]

	failures []*Slot
	builds   BuildQueue

	pending     []Coord
	pendingSet  mapset.Set[Coord]
	propagating bool

	collapsedCount int

	trace    func(TraceEntry)
	progress func(Progress)
}

func New(cfg Config, cats *catalogs.Catalogs) (*Map, error) {
	if cats == nil || len(cats.Prototypes.Ordered) == 0 {
		return nil, fmt.Errorf("wave: empty prototype catalog")
	}
	if cfg.Height <= 0 {
		return nil, fmt.Errorf("wave: height must be positive, got %d", cfg.Height)
	}
	for y := 0; y < cfg.Height; y++ {
		ids := cats.Columns.ProfileAt(y)
		if len(ids) == 0 {
			return nil, fmt.Errorf("wave: no column profile for layer %d", y)
		}
		for _, id := range ids {
			if _, ok := cats.Prototypes.ByID[id]; !ok {
				return nil, fmt.Errorf("wave: column profile for layer %d references unknown prototype %q", y, id)
			}
		}
	}

	return &Map{
		cfg:        cfg,
		cats:       cats,
		rng:        rand.New(rand.NewSource(cfg.Seed)),
		slots:      map[Coord]*Slot{},
		workSet:    mapset.New[*Slot](),
		pendingSet: mapset.New[Coord](),
	}, nil
}

func (m *Map) Config() Config               { return m.cfg }
func (m *Map) Catalogs() *catalogs.Catalogs { return m.cats }

// SetTrace installs an optional solve-trace sink. Nil disables tracing.
func (m *Map) SetTrace(fn func(TraceEntry)) { m.trace = fn }

// SetProgress installs an optional read-only progress observer. It must
// not mutate the map.
func (m *Map) SetProgress(fn func(Progress)) { m.progress = fn }

// InBounds reports whether a coordinate lies inside the height band and
// the Euclidean range limit around the configured center.
func (m *Map) InBounds(c Coord) bool {
	if c.Y < 0 || c.Y >= m.cfg.Height {
		return false
	}
	if m.cfg.RangeLimit > 0 {
		r := int64(m.cfg.RangeLimit)
		ctr := m.cfg.RangeLimitCenter
		if mathx.Dist2(c.X, c.Y, c.Z, ctr.X, ctr.Y, ctr.Z) > r*r {
			return false
		}
	}
	return true
}

// GetSlot returns the slot at c, materializing it when create is true.
// Out-of-bounds coordinates always return nil and never allocate, which
// is what stops propagation cascades from walking off to infinity.
func (m *Map) GetSlot(c Coord, create bool) *Slot {
	if !m.InBounds(c) {
		return nil
	}
	if s, ok := m.slots[c]; ok {
		return s
	}
	if !create {
		return nil
	}
	s := &Slot{
		Coord:      c,
		m:          m,
		candidates: m.defaultCandidates(c.Y),
	}
	m.slots[c] = s
	return s
}

// Get is GetSlot with create defaulted to true.
func (m *Map) Get(x, y, z int) *Slot {
	return m.GetSlot(Coord{x, y, z}, true)
}

// SlotCount returns how many slots have been materialized.
func (m *Map) SlotCount() int { return len(m.slots) }

func (m *Map) CollapsedCount() int { return m.collapsedCount }

func (m *Map) WorkSetSize() int { return m.workSet.Size() }

func (m *Map) FailureCount() int { return len(m.failures) }

// FailureCoords returns the coordinates currently queued as contradicted,
// in sorted order.
func (m *Map) FailureCoords() []Coord {
	out := make([]Coord, 0, len(m.failures))
	for _, s := range m.failures {
		out = append(out, s.Coord)
	}
	sort.Slice(out, func(i, j int) bool { return lessCoord(out[i], out[j]) })
	return out
}

func (m *Map) Builds() *BuildQueue { return &m.builds }

// EachSlot visits every materialized slot. The callback must not create
// or destroy slots.
func (m *Map) EachSlot(fn func(*Slot)) {
	for _, s := range m.slots {
		fn(s)
	}
}

// defaultCandidates resolves the column profile for a layer into a fresh
// palette-ordered slice.
func (m *Map) defaultCandidates(y int) []*catalogs.Prototype {
	ids := m.cats.Columns.ProfileAt(y)
	out := make([]*catalogs.Prototype, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.cats.Prototypes.ByID[id])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// compatible implements the face rule: a sits at X, b at X plus the unit
// offset of d. The facing tags must match and, when exclusions are
// enabled, neither side may forbid the other.
func (m *Map) compatible(a, b *catalogs.Prototype, d Direction) bool {
	opp := d.Opposite()
	if a.Faces[d].Tag != b.Faces[opp].Tag {
		return false
	}
	if m.cfg.EnableExclusions {
		if a.Excludes(int(d), b.ID) || b.Excludes(int(opp), a.ID) {
			return false
		}
	}
	return true
}

func (m *Map) onCollapsed(s *Slot) {
	m.workSet.Remove(s)
	m.builds.push(s)
	m.collapsedCount++
	if m.trace != nil {
		m.trace(TraceEntry{
			Event:     "collapse",
			Coord:     s.Coord,
			Prototype: s.candidates[0].ID,
		})
	}
}

func (m *Map) onContradiction(s *Slot) {
	m.workSet.Remove(s)
	m.failures = append(m.failures, s)
	if m.trace != nil {
		m.trace(TraceEntry{Event: "contradiction", Coord: s.Coord})
	}
}

func (m *Map) notifyProgress() {
	if m.progress == nil {
		return
	}
	m.progress(Progress{
		Remaining:     m.workSet.Size(),
		Failures:      len(m.failures),
		Collapsed:     m.collapsedCount,
		PendingBuilds: m.builds.Len(),
	})
}

// TraceEntry is one solve event, written by the optional trace sink.
type TraceEntry struct {
	Event     string `json:"event"`
	Coord     Coord  `json:"coord"`
	Prototype string `json:"prototype,omitempty"`
}

// Progress is a read-only snapshot for external observers.
type Progress struct {
	Remaining     int `json:"remaining"`
	Failures      int `json:"failures"`
	Collapsed     int `json:"collapsed"`
	PendingBuilds int `json:"pending_builds"`
}
