package wave

import "wavemap/internal/gen/catalogs"

// Propagation runs over an explicit worklist of coordinates whose
// candidate sets shrank, instead of recursing slot-to-slot. Each step
// re-examines the six neighbors of one coordinate and removes neighbor
// candidates that no surviving candidate here can face. Removals enqueue
// further coordinates; the cascade terminates because candidate sets are
// finite and only ever shrink.

func (m *Map) enqueuePropagation(c Coord) {
	if m.pendingSet.Has(c) {
		return
	}
	m.pendingSet.Put(c)
	m.pending = append(m.pending, c)
}

// flush drains the propagation worklist. Re-entrant calls from removals
// triggered inside the drain are no-ops; the outermost call finishes the
// cascade. Contradictions found along the way only enqueue to the failure
// queue, recovery never runs from in here.
func (m *Map) flush() {
	if m.propagating {
		return
	}
	m.propagating = true
	defer func() { m.propagating = false }()

	for len(m.pending) > 0 {
		c := m.pending[0]
		m.pending = m.pending[1:]
		m.pendingSet.Remove(c)
		m.propagateStep(c)
	}
}

func (m *Map) propagateStep(c Coord) {
	s := m.slots[c]
	if s == nil || len(s.candidates) == 0 {
		return
	}
	for d := Direction(0); d < NumDirections; d++ {
		// create=true: cascades may reach slots nobody visited yet.
		// Bounds checks inside GetSlot keep the walk finite.
		n := m.GetSlot(c.Neighbor(d), true)
		if n == nil || n.collapsed {
			continue
		}
		var drop []*catalogs.Prototype
		for _, q := range n.candidates {
			if !s.supports(q, d) {
				drop = append(drop, q)
			}
		}
		if len(drop) > 0 {
			n.RemoveModules(drop)
		}
	}
}
