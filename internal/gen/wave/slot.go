package wave

import (
	"fmt"
	"math"

	"wavemap/internal/gen/catalogs"
)

// Slot is one cell of the map: the set of prototypes still possible there.
// Candidates only ever shrink during a solve; reaching zero is a
// contradiction and is reported to the owning map's failure queue.
// Once collapsed the set is a singleton and immutable.
type Slot struct {
	Coord Coord

	m          *Map
	candidates []*catalogs.Prototype // sorted by palette index
	collapsed  bool

	entropy      float64
	entropyValid bool
}

func (s *Slot) Collapsed() bool { return s.collapsed }

// Candidates returns the surviving prototypes in palette order. Callers
// must not mutate the returned slice.
func (s *Slot) Candidates() []*catalogs.Prototype { return s.candidates }

func (s *Slot) CandidateCount() int { return len(s.candidates) }

// Prototype returns the committed prototype, or nil before collapse.
func (s *Slot) Prototype() *catalogs.Prototype {
	if !s.collapsed || len(s.candidates) != 1 {
		return nil
	}
	return s.candidates[0]
}

// Entropy is the weighted Shannon entropy over the surviving weights:
// ln(W) - sum(w*ln w)/W with W = sum(w). Zero once one candidate remains.
// It is an ordering key only, recomputed lazily after removals.
func (s *Slot) Entropy() float64 {
	if s.entropyValid {
		return s.entropy
	}
	s.entropy = 0
	if !s.collapsed && len(s.candidates) > 1 {
		var total, acc float64
		for _, p := range s.candidates {
			total += p.Weight
			acc += p.Weight * math.Log(p.Weight)
		}
		s.entropy = math.Log(total) - acc/total
	}
	s.entropyValid = true
	return s.entropy
}

// CollapseRandom commits the slot to one surviving candidate, chosen with
// probability proportional to its weight, then propagates the change to
// all six neighbors.
func (s *Slot) CollapseRandom() error {
	if s.collapsed {
		return fmt.Errorf("slot %v already collapsed", s.Coord)
	}
	if len(s.candidates) == 0 {
		return fmt.Errorf("slot %v has no candidates", s.Coord)
	}

	var total float64
	for _, p := range s.candidates {
		total += p.Weight
	}
	r := s.m.rng.Float64() * total
	choice := s.candidates[len(s.candidates)-1]
	var cum float64
	for _, p := range s.candidates {
		cum += p.Weight
		if r <= cum {
			choice = p
			break
		}
	}

	s.commit(choice)
	s.m.flush()
	return nil
}

// commit finalizes the slot on p and schedules propagation. The owning
// map handles work-set removal and the single build enqueue.
func (s *Slot) commit(p *catalogs.Prototype) {
	s.candidates = []*catalogs.Prototype{p}
	s.collapsed = true
	s.entropyValid = false
	s.m.onCollapsed(s)
	s.m.enqueuePropagation(s.Coord)
}

// RemoveModules drops the given prototypes from the candidate set.
// Entries not present are ignored. A change schedules propagation; a set
// emptied by the change reports a contradiction instead. Collapsed slots
// are immutable and the call is a no-op.
func (s *Slot) RemoveModules(drop []*catalogs.Prototype) {
	if s.collapsed || len(drop) == 0 || len(s.candidates) == 0 {
		return
	}

	dropSet := make(map[uint16]struct{}, len(drop))
	for _, p := range drop {
		dropSet[p.Index] = struct{}{}
	}

	kept := s.candidates[:0]
	for _, p := range s.candidates {
		if _, gone := dropSet[p.Index]; !gone {
			kept = append(kept, p)
		}
	}
	if len(kept) == len(s.candidates) {
		return
	}
	s.candidates = kept
	s.entropyValid = false

	switch len(s.candidates) {
	case 0:
		s.m.onContradiction(s)
	case 1:
		// A single survivor is a collapse forced by propagation, not a
		// direct selection.
		s.commit(s.candidates[0])
	default:
		s.m.enqueuePropagation(s.Coord)
	}
	s.m.flush()
}

// supports reports whether any surviving candidate of s presents a
// compatible face toward q sitting in direction d.
func (s *Slot) supports(q *catalogs.Prototype, d Direction) bool {
	for _, p := range s.candidates {
		if s.m.compatible(p, q, d) {
			return true
		}
	}
	return false
}

// TryRecover rebuilds a contradicted slot's candidate set from its column
// profile, filtered once against the current state of each existing
// neighbor. It never undoes history elsewhere; it only re-derives this
// slot. Returns false when even the rebuilt set is empty.
func (s *Slot) TryRecover() bool {
	if s.collapsed {
		return true
	}
	fresh := s.m.defaultCandidates(s.Coord.Y)
	for d := Direction(0); d < NumDirections; d++ {
		n := s.m.GetSlot(s.Coord.Neighbor(d), false)
		if n == nil || len(n.candidates) == 0 {
			continue
		}
		kept := fresh[:0]
		for _, p := range fresh {
			if n.supports(p, d.Opposite()) {
				kept = append(kept, p)
			}
		}
		fresh = kept
		if len(fresh) == 0 {
			return false
		}
	}
	s.candidates = fresh
	s.entropyValid = false
	return true
}
