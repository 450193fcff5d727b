package memory

import (
	"math"
	"sort"
	"sync"

	"github.com/KirkDiggler/auras/internal/scene"
)

// Scene is an in-memory scene implementing geometry.Scene
type Scene struct {
	mu     sync.RWMutex
	id     string
	grid   scene.Grid
	walls  []scene.Wall
	tokens map[string]*scene.Token
	index  *spatialIndex
}

// NewScene creates an empty scene. Zero grid fields fall back to a 100px,
// 5 unit square grid.
func NewScene(id string, grid scene.Grid, walls ...scene.Wall) *Scene {
	if grid.Type == "" {
		grid.Type = scene.GridSquare
	}
	if grid.Size <= 0 {
		grid.Size = 100
	}
	if grid.Distance <= 0 {
		grid.Distance = 5
	}
	if grid.Diagonals == "" {
		grid.Diagonals = scene.DiagonalsEquidistant
	}
	return &Scene{
		id:     id,
		grid:   grid,
		walls:  append([]scene.Wall(nil), walls...),
		tokens: make(map[string]*scene.Token),
		index:  newSpatialIndex(grid.Size),
	}
}

// ID returns the scene ID
func (s *Scene) ID() string {
	return s.id
}

// Grid returns the grid parameters
func (s *Scene) Grid() scene.Grid {
	return s.grid
}

// MeasurePath returns the grid-unit distance between a and b. Square grids
// using equidistant diagonals count a diagonal step as one cell, elevation
// included; exact diagonals and gridless scenes measure straight lines.
func (s *Scene) MeasurePath(a, b scene.Point) float64 {
	dx := math.Abs(b.X-a.X) / s.grid.Size * s.grid.Distance
	dy := math.Abs(b.Y-a.Y) / s.grid.Size * s.grid.Distance
	dz := math.Abs(b.Elevation - a.Elevation)
	if !s.grid.Gridless() && s.grid.Diagonals == scene.DiagonalsEquidistant {
		return math.Max(dx, math.Max(dy, dz))
	}
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// TestCollision reports whether any wall restricting category crosses a-b
func (s *Scene) TestCollision(a, b scene.Point, category scene.CollisionType) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, w := range s.walls {
		if w.Blocks(category) && w.Intersects(a, b) {
			return true
		}
	}
	return false
}

// QueryTokens returns copies of the tokens whose footprint overlaps rect,
// ordered by ID
func (s *Scene) QueryTokens(rect scene.Rect) []*scene.Token {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*scene.Token{}
	for _, id := range s.index.query(rect) {
		t := s.tokens[id]
		if t.Bounds(s.grid).Intersects(rect) {
			out = append(out, t.Clone())
		}
	}
	return out
}

// AddWall places a wall on the scene
func (s *Scene) AddWall(w scene.Wall) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.walls = append(s.walls, w)
}

// Token returns a copy of the token
func (s *Scene) Token(id string) (*scene.Token, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tokens[id]
	if !ok {
		return nil, false
	}
	return t.Clone(), true
}

// Tokens returns copies of every token, ordered by ID
func (s *Scene) Tokens() []*scene.Token {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*scene.Token, 0, len(s.tokens))
	for _, t := range s.tokens {
		out = append(out, t.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// put inserts or replaces a token and reindexes it, returning the previous
// version if there was one
func (s *Scene) put(t *scene.Token) *scene.Token {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := s.tokens[t.ID]
	t.SceneID = s.id
	t.UUID = "Scene." + s.id + ".Token." + t.ID
	s.tokens[t.ID] = t
	s.index.upsert(t.ID, t.Bounds(s.grid))
	return before
}

// update applies fn to a copy of the token and stores the result, returning
// the before and after copies
func (s *Scene) update(id string, fn func(t *scene.Token)) (before, after *scene.Token, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.tokens[id]
	if !ok {
		return nil, nil, false
	}
	next := current.Clone()
	fn(next)
	s.tokens[id] = next
	s.index.upsert(id, next.Bounds(s.grid))
	return current.Clone(), next.Clone(), true
}

// RemoveToken deletes a token from the scene
func (s *Scene) RemoveToken(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.tokens, id)
	s.index.remove(id)
}
