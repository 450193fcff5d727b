// Package geometry turns the host's measurement, occlusion and broad-phase
// primitives into the distance queries aura propagation needs.
package geometry

import (
	"math"

	"github.com/KirkDiggler/auras/internal/effects"
	"github.com/KirkDiggler/auras/internal/scene"
)

// Scene is the host's view of one scene's geometry
type Scene interface {
	Grid() scene.Grid
	// MeasurePath returns the path distance between two points in grid units
	MeasurePath(a, b scene.Point) float64
	// TestCollision reports whether any wall of the category blocks a-b
	TestCollision(a, b scene.Point, category scene.CollisionType) bool
	// QueryTokens returns the tokens whose bounds intersect rect
	QueryTokens(rect scene.Rect) []*scene.Token
}

// Distance returns the measured distance between a and b, or +Inf when any of
// the blocking categories occludes the segment.
func Distance(s Scene, a, b scene.Point, blocking []scene.CollisionType) float64 {
	for _, c := range blocking {
		if s.TestCollision(a, b, c) {
			return math.Inf(1)
		}
	}
	return s.MeasurePath(a, b)
}

// TokenDistance returns the minimum distance between any occupied cell of a
// and any occupied cell of b. On gridless scenes the tokens' external radii
// are subtracted from the center-to-center distance.
func TokenDistance(s Scene, a, b *scene.Token, blocking []scene.CollisionType) float64 {
	g := s.Grid()
	if g.Gridless() {
		d := Distance(s, a.Center(g), b.Center(g), blocking)
		if math.IsInf(d, 1) {
			return d
		}
		return math.Max(0, d-a.ExternalRadius(g)-b.ExternalRadius(g))
	}

	best := math.Inf(1)
	offsetsB := b.OccupiedOffsets(g)
	for _, oa := range a.OccupiedOffsets(g) {
		pa := g.CenterPoint(oa)
		pa.Elevation = a.Elevation
		for _, ob := range offsetsB {
			pb := g.CenterPoint(ob)
			pb.Elevation = b.Elevation
			if d := Distance(s, pa, pb, blocking); d < best {
				best = d
			}
		}
	}
	return best
}

// BroadPhase returns the square around source that contains every token that
// could be within radius. It over-approximates, never under-approximates.
func BroadPhase(g scene.Grid, source *scene.Token, radius float64) scene.Rect {
	half := g.Size * (radius/g.Distance + math.Max(source.Width, source.Height)/2)
	c := source.Center(g)
	return scene.Rect{X: c.X - half, Y: c.Y - half, Width: 2 * half, Height: 2 * half}
}

// CandidateNeighbors returns the tokens within radius of source that pass the
// disposition filter. The source token itself is never returned.
func CandidateNeighbors(s Scene, source *scene.Token, radius float64, disposition effects.Disposition, blocking []scene.CollisionType) []*scene.Token {
	out := []*scene.Token{}
	for _, t := range s.QueryTokens(BroadPhase(s.Grid(), source, radius)) {
		if t.ID == source.ID {
			continue
		}
		if !disposition.Matches(scene.Relative(source.Disposition, t.Disposition)) {
			continue
		}
		if TokenDistance(s, source, t, blocking) <= radius {
			out = append(out, t)
		}
	}
	return out
}
