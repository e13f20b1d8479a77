package wave

import "wavemap/internal/gen/catalogs"

// Builder materializes one collapsed slot. Implementations live outside
// the engine (a persistence sink, a scene instantiator); failures there
// are not reported back.
type Builder interface {
	Build(c Coord, p *catalogs.Prototype)
}

// BuildQueue holds collapsed slots pending materialization, in collapse
// order. A slot is enqueued exactly once, when it collapses.
type BuildQueue struct {
	slots []*Slot
}

func (q *BuildQueue) push(s *Slot) {
	q.slots = append(q.slots, s)
}

func (q *BuildQueue) Len() int { return len(q.slots) }

// Drain pops up to max entries and hands each to b. It returns how many
// were built. Call it at a fixed cadence to bound per-tick latency;
// partially drained state is always valid.
func (q *BuildQueue) Drain(max int, b Builder) int {
	n := 0
	for n < max && len(q.slots) > 0 {
		s := q.slots[0]
		q.slots = q.slots[1:]
		b.Build(s.Coord, s.candidates[0])
		n++
	}
	return n
}

// DrainAll pops until empty, for synchronous batch generation.
func (q *BuildQueue) DrainAll(b Builder) int {
	total := 0
	for len(q.slots) > 0 {
		total += q.Drain(len(q.slots), b)
	}
	return total
}
