package wave

import (
	"fmt"

	"wavemap/internal/gen/catalogs"
)

// EnforceWalkway removes every candidate at c whose face in direction d
// is not walkable. It is a pre-collapse constraint injection layered on
// RemoveModules, so the usual propagation and contradiction handling
// apply.
func (m *Map) EnforceWalkway(c Coord, d Direction) error {
	s := m.GetSlot(c, true)
	if s == nil {
		return fmt.Errorf("walkway at %v: out of bounds", c)
	}
	var drop []*catalogs.Prototype
	for _, p := range s.candidates {
		if !p.Faces[d].Walkable {
			drop = append(drop, p)
		}
	}
	s.RemoveModules(drop)
	return nil
}

// EnforceWalkwayPath applies the walkable filter at both ends of a unit
// step: at start toward dest, and at dest back toward start.
func (m *Map) EnforceWalkwayPath(start, dest Coord) error {
	d, ok := DirectionBetween(start, dest)
	if !ok {
		return fmt.Errorf("walkway %v -> %v: not unit neighbors", start, dest)
	}
	if err := m.EnforceWalkway(start, d); err != nil {
		return err
	}
	return m.EnforceWalkway(dest, d.Opposite())
}
