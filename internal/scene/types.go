package scene

import "math"

// Disposition is a token's stance. Multiplying two dispositions yields the
// relative stance of the pair: positive is allied, negative hostile, zero neutral.
type Disposition int

const (
	DispositionHostile  Disposition = -1
	DispositionNeutral  Disposition = 0
	DispositionFriendly Disposition = 1
)

// Relative returns the sign of a*b.
func Relative(a, b Disposition) int {
	p := int(a) * int(b)
	switch {
	case p > 0:
		return 1
	case p < 0:
		return -1
	}
	return 0
}

// CollisionType is an occlusion category a wall may restrict
type CollisionType string

const (
	CollisionMove  CollisionType = "move"
	CollisionSight CollisionType = "sight"
	CollisionSound CollisionType = "sound"
	CollisionLight CollisionType = "light"
)

// Valid reports whether c is one of the known categories
func (c CollisionType) Valid() bool {
	switch c {
	case CollisionMove, CollisionSight, CollisionSound, CollisionLight:
		return true
	}
	return false
}

// GridType selects how occupied cells are derived
type GridType string

const (
	GridSquare   GridType = "square"
	GridGridless GridType = "gridless"
)

// Diagonals selects the square-grid measurement rule
type Diagonals string

const (
	// DiagonalsEquidistant counts a diagonal step as one cell
	DiagonalsEquidistant Diagonals = "equidistant"
	// DiagonalsExact measures straight-line distance
	DiagonalsExact Diagonals = "exact"
)

// Grid describes a scene's grid: Size is pixels per cell, Distance is grid
// units per cell.
type Grid struct {
	Type      GridType  `yaml:"type" json:"type"`
	Size      float64   `yaml:"size" json:"size"`
	Distance  float64   `yaml:"distance" json:"distance"`
	Diagonals Diagonals `yaml:"diagonals" json:"diagonals"`
}

// Gridless reports whether the grid has no cells
func (g Grid) Gridless() bool {
	return g.Type == GridGridless
}

// Point is a pixel position with an elevation in grid units
type Point struct {
	X         float64 `yaml:"x" json:"x"`
	Y         float64 `yaml:"y" json:"y"`
	Elevation float64 `yaml:"elevation" json:"elevation"`
}

// Offset addresses a grid cell
type Offset struct {
	Row int
	Col int
}

// Rect is an axis-aligned pixel rectangle
type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Contains reports whether p lies inside r, edges included
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width && y >= r.Y && y <= r.Y+r.Height
}

// Intersects reports whether two rectangles overlap, edges included
func (r Rect) Intersects(o Rect) bool {
	return r.X <= o.X+o.Width && o.X <= r.X+r.Width &&
		r.Y <= o.Y+o.Height && o.Y <= r.Y+r.Height
}

// CenterPoint returns the pixel center of a grid cell
func (g Grid) CenterPoint(o Offset) Point {
	return Point{
		X: (float64(o.Col) + 0.5) * g.Size,
		Y: (float64(o.Row) + 0.5) * g.Size,
	}
}

// OffsetAt returns the cell containing a pixel coordinate
func (g Grid) OffsetAt(x, y float64) Offset {
	return Offset{
		Row: int(math.Floor(y / g.Size)),
		Col: int(math.Floor(x / g.Size)),
	}
}
