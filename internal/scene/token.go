package scene

// MovementState tracks a token's queued movement
type MovementState string

const (
	MovementIdle    MovementState = "idle"
	MovementMoving  MovementState = "moving"
	MovementStopped MovementState = "stopped"
)

// Movement describes the token's in-flight movement. PendingDistance is the
// distance of segments still queued after the current one.
type Movement struct {
	State           MovementState `yaml:"state" json:"state"`
	PendingDistance float64       `yaml:"pendingDistance" json:"pendingDistance"`
	Destination     Point         `yaml:"destination" json:"destination"`
}

// Token is a positioned, sized entity on a scene. X and Y are the pixel
// coordinates of its top-left corner; Width and Height are in grid cells.
type Token struct {
	ID          string      `yaml:"id" json:"id"`
	UUID        string      `yaml:"-" json:"uuid"`
	SceneID     string      `yaml:"-" json:"sceneId"`
	Name        string      `yaml:"name" json:"name"`
	ActorUUID   string      `yaml:"actor" json:"actorUuid"`
	X           float64     `yaml:"x" json:"x"`
	Y           float64     `yaml:"y" json:"y"`
	Elevation   float64     `yaml:"elevation" json:"elevation"`
	Width       float64     `yaml:"width" json:"width"`
	Height      float64     `yaml:"height" json:"height"`
	Disposition Disposition `yaml:"disposition" json:"disposition"`
	Hidden      bool        `yaml:"hidden" json:"hidden"`
	Movement    Movement    `yaml:"movement" json:"movement"`
}

// Clone returns a copy safe to hand to another goroutine
func (t *Token) Clone() *Token {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

// Center returns the pixel center of the token's footprint
func (t *Token) Center(g Grid) Point {
	return Point{
		X:         t.X + t.Width*g.Size/2,
		Y:         t.Y + t.Height*g.Size/2,
		Elevation: t.Elevation,
	}
}

// Bounds returns the token's pixel footprint
func (t *Token) Bounds(g Grid) Rect {
	return Rect{X: t.X, Y: t.Y, Width: t.Width * g.Size, Height: t.Height * g.Size}
}

// OccupiedOffsets returns every grid cell covered by the token. Tokens smaller
// than a cell occupy the cell under their center.
func (t *Token) OccupiedOffsets(g Grid) []Offset {
	if g.Gridless() || t.Width < 1 || t.Height < 1 {
		c := t.Center(g)
		return []Offset{g.OffsetAt(c.X, c.Y)}
	}
	origin := g.OffsetAt(t.X+g.Size/2, t.Y+g.Size/2)
	cols, rows := int(t.Width), int(t.Height)
	offsets := make([]Offset, 0, cols*rows)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			offsets = append(offsets, Offset{Row: origin.Row + r, Col: origin.Col + c})
		}
	}
	return offsets
}

// ExternalRadius is the distance, in grid units, from the token's center to
// its edge. Used to adjust gridless measurement.
func (t *Token) ExternalRadius(g Grid) float64 {
	w := t.Width
	if t.Height > w {
		w = t.Height
	}
	return w * g.Distance / 2
}

// Moved reports whether the position differs from other's
func (t *Token) Moved(other *Token) bool {
	return t.X != other.X || t.Y != other.Y || t.Elevation != other.Elevation
}

// IsFinalMovementComplete reports whether no further movement is queued, or
// the movement was stopped mid-way.
func (t *Token) IsFinalMovementComplete() bool {
	if t.Movement.State == MovementStopped {
		return true
	}
	d := t.Movement.Destination
	return t.Movement.PendingDistance == 0 &&
		d.X == t.X && d.Y == t.Y && d.Elevation == t.Elevation
}
