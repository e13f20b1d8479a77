package wave

import (
	"math"
	"sort"
)

// Collapse solves the given target region: every reachable target ends up
// either collapsed or in the failure queue. Targets that are out of
// bounds or already collapsed are skipped. After the work set drains, one
// recovery sweep runs over the failure queue; slots that cannot be
// recovered are re-enqueued for a later call rather than spun on forever.
func (m *Map) Collapse(targets []Coord) {
	for _, c := range targets {
		s := m.GetSlot(c, true)
		if s == nil || s.collapsed {
			continue
		}
		m.workSet.Put(s)
	}

	for m.workSet.Size() > 0 {
		pick := m.minEntropySlot()
		if pick == nil {
			break
		}
		if err := pick.CollapseRandom(); err != nil {
			m.workSet.Remove(pick)
			continue
		}
		m.notifyProgress()
	}

	m.recoverySweep()
	m.notifyProgress()
}

// minEntropySlot picks uniformly at random among all work-set slots tied
// at the minimum entropy. Entropy is evaluated fresh each call because
// propagation from the previous collapse may have reshaped any slot.
// Randomized tie-break avoids positional bias; the tie set is sorted by
// coordinate first so a fixed seed reproduces the same walk.
func (m *Map) minEntropySlot() *Slot {
	min := math.Inf(1)
	var ties []*Slot
	m.workSet.Each(func(s *Slot) {
		e := s.Entropy()
		switch {
		case e < min:
			min = e
			ties = ties[:0]
			ties = append(ties, s)
		case e == min:
			ties = append(ties, s)
		}
	})
	if len(ties) == 0 {
		return nil
	}
	sort.Slice(ties, func(i, j int) bool { return lessCoord(ties[i].Coord, ties[j].Coord) })
	return ties[m.rng.Intn(len(ties))]
}

// recoverySweep attempts local repair of every currently contradicted
// slot, once. Failures go back on the queue for a subsequent Collapse.
func (m *Map) recoverySweep() {
	n := len(m.failures)
	for i := 0; i < n; i++ {
		s := m.failures[0]
		m.failures = m.failures[1:]
		if s.TryRecover() {
			if m.trace != nil {
				m.trace(TraceEntry{Event: "recovered", Coord: s.Coord})
			}
			continue
		}
		m.failures = append(m.failures, s)
		if m.trace != nil {
			m.trace(TraceEntry{Event: "requeued", Coord: s.Coord})
		}
	}
}

// CollapseBox expands an inclusive axis-aligned box into explicit targets.
func (m *Map) CollapseBox(min, max Coord) {
	var targets []Coord
	for x := min.X; x <= max.X; x++ {
		for y := min.Y; y <= max.Y; y++ {
			for z := min.Z; z <= max.Z; z++ {
				targets = append(targets, Coord{x, y, z})
			}
		}
	}
	m.Collapse(targets)
}

// CollapseDefaultArea solves the configured default extent around the map
// origin, over the full height band.
func (m *Map) CollapseDefaultArea() {
	e := m.cfg.DefaultExtent
	m.CollapseBox(Coord{-e, 0, -e}, Coord{e, m.cfg.Height - 1, e})
}
