package wave

import (
	"fmt"

	"wavemap/internal/gen/mathx"
)

// Coord is an integer grid position, used by value as the map key.
type Coord struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

func (c Coord) String() string {
	return fmt.Sprintf("(%d,%d,%d)", c.X, c.Y, c.Z)
}

// Direction indexes one of the six cardinal faces. Direction d and
// (d+3)%6 point at each other, so a face in direction d on one slot meets
// the Opposite face of its neighbor.
type Direction int

const (
	DirPosX Direction = iota
	DirPosY
	DirPosZ
	DirNegX
	DirNegY
	DirNegZ

	NumDirections = 6
)

var offsets = [NumDirections]Coord{
	{1, 0, 0},
	{0, 1, 0},
	{0, 0, 1},
	{-1, 0, 0},
	{0, -1, 0},
	{0, 0, -1},
}

func (d Direction) Opposite() Direction {
	return (d + 3) % NumDirections
}

func (d Direction) Offset() Coord {
	return offsets[d]
}

func (c Coord) Neighbor(d Direction) Coord {
	o := offsets[d]
	return Coord{c.X + o.X, c.Y + o.Y, c.Z + o.Z}
}

// DirectionBetween returns the direction from a to b when they are unit
// neighbors, and false otherwise.
func DirectionBetween(a, b Coord) (Direction, bool) {
	dx := b.X - a.X
	dy := b.Y - a.Y
	dz := b.Z - a.Z
	if mathx.AbsInt(dx)+mathx.AbsInt(dy)+mathx.AbsInt(dz) != 1 {
		return 0, false
	}
	for d, o := range offsets {
		if o.X == dx && o.Y == dy && o.Z == dz {
			return Direction(d), true
		}
	}
	return 0, false
}

func lessCoord(a, b Coord) bool {
	if a.X != b.X {
		return a.X < b.X
	}
	if a.Y != b.Y {
		return a.Y < b.Y
	}
	return a.Z < b.Z
}
