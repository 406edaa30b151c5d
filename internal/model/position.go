package model

// Position is a point in world space. Value type, passed by value.
type Position struct {
	X float64
	Y float64
	Z float64
}

// NewPosition creates a Position with the given coordinates.
func NewPosition(x, y, z float64) Position {
	return Position{X: x, Y: y, Z: z}
}

// DistanceSquared returns the squared distance to another point (no sqrt).
func (p Position) DistanceSquared(other Position) float64 {
	dx := p.X - other.X
	dy := p.Y - other.Y
	dz := p.Z - other.Z
	return dx*dx + dy*dy + dz*dz
}

// IsZero reports whether p is the world origin.
func (p Position) IsZero() bool {
	return p.X == 0 && p.Y == 0 && p.Z == 0
}
