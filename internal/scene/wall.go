package scene

// Wall is a segment restricting some collision categories
type Wall struct {
	ID       string          `yaml:"id" json:"id"`
	A        Point           `yaml:"a" json:"a"`
	B        Point           `yaml:"b" json:"b"`
	Restrict []CollisionType `yaml:"restrict" json:"restrict"`
}

// Blocks reports whether the wall restricts the given category
func (w Wall) Blocks(c CollisionType) bool {
	for _, r := range w.Restrict {
		if r == c {
			return true
		}
	}
	return false
}

// Intersects reports whether the segment a-b crosses the wall, touching included
func (w Wall) Intersects(a, b Point) bool {
	return segmentsIntersect(a, b, w.A, w.B)
}

func segmentsIntersect(p1, p2, q1, q2 Point) bool {
	o1 := orientation(p1, p2, q1)
	o2 := orientation(p1, p2, q2)
	o3 := orientation(q1, q2, p1)
	o4 := orientation(q1, q2, p2)

	if o1 != o2 && o3 != o4 {
		return true
	}

	if o1 == 0 && onSegment(p1, q1, p2) {
		return true
	}
	if o2 == 0 && onSegment(p1, q2, p2) {
		return true
	}
	if o3 == 0 && onSegment(q1, p1, q2) {
		return true
	}
	if o4 == 0 && onSegment(q1, p2, q2) {
		return true
	}
	return false
}

func orientation(a, b, c Point) int {
	val := (b.Y-a.Y)*(c.X-b.X) - (b.X-a.X)*(c.Y-b.Y)
	if val == 0 {
		return 0
	}
	if val > 0 {
		return 1
	}
	return -1
}

func onSegment(a, b, c Point) bool {
	return b.X >= min(a.X, c.X) && b.X <= max(a.X, c.X) &&
		b.Y >= min(a.Y, c.Y) && b.Y <= max(a.Y, c.Y)
}
