package memory_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KirkDiggler/auras/internal/host/memory"
	"github.com/KirkDiggler/auras/internal/scene"
)

func TestScene_MeasurePath(t *testing.T) {
	a := scene.Point{X: 50, Y: 50}
	b := scene.Point{X: 350, Y: 450, Elevation: 5}

	tests := []struct {
		name string
		grid scene.Grid
		want float64
	}{
		{
			name: "equidistant diagonals take the longest axis",
			grid: scene.Grid{Type: scene.GridSquare, Size: 100, Distance: 5, Diagonals: scene.DiagonalsEquidistant},
			want: 20,
		},
		{
			name: "exact diagonals measure straight lines",
			grid: scene.Grid{Type: scene.GridSquare, Size: 100, Distance: 5, Diagonals: scene.DiagonalsExact},
			want: math.Sqrt(15*15 + 20*20 + 5*5),
		},
		{
			name: "gridless measures straight lines",
			grid: scene.Grid{Type: scene.GridGridless, Size: 100, Distance: 5},
			want: math.Sqrt(15*15 + 20*20 + 5*5),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := memory.NewScene("s", tt.grid)
			assert.InDelta(t, tt.want, s.MeasurePath(a, b), 1e-9)
			assert.InDelta(t, tt.want, s.MeasurePath(b, a), 1e-9)
		})
	}
}

func TestScene_TestCollision(t *testing.T) {
	wall := scene.Wall{
		ID:       "w",
		A:        scene.Point{X: 150, Y: 0},
		B:        scene.Point{X: 150, Y: 300},
		Restrict: []scene.CollisionType{scene.CollisionMove},
	}
	s := memory.NewScene("s", scene.Grid{}, wall)

	across := [2]scene.Point{{X: 50, Y: 50}, {X: 250, Y: 50}}
	beside := [2]scene.Point{{X: 50, Y: 50}, {X: 50, Y: 250}}

	assert.True(t, s.TestCollision(across[0], across[1], scene.CollisionMove))
	assert.False(t, s.TestCollision(across[0], across[1], scene.CollisionSight))
	assert.False(t, s.TestCollision(beside[0], beside[1], scene.CollisionMove))
}

func TestScene_QueryTokens(t *testing.T) {
	w := memory.NewWorld(nil)
	s := memory.NewScene("s", scene.Grid{Size: 100, Distance: 5})
	w.AddScene(s)
	require.NoError(t, w.AddToken("s", &scene.Token{ID: "a", X: 0, Y: 0}))
	require.NoError(t, w.AddToken("s", &scene.Token{ID: "b", X: 500, Y: 0}))
	require.NoError(t, w.AddToken("s", &scene.Token{ID: "c", X: 2000, Y: 2000, Width: 2, Height: 2}))

	got := s.QueryTokens(scene.Rect{X: -50, Y: -50, Width: 600, Height: 200})
	var ids []string
	for _, tok := range got {
		ids = append(ids, tok.ID)
	}
	assert.Equal(t, []string{"a", "b"}, ids)

	got = s.QueryTokens(scene.Rect{X: 2150, Y: 2150, Width: 10, Height: 10})
	require.Len(t, got, 1)
	assert.Equal(t, "c", got[0].ID)
	assert.Equal(t, "Scene.s.Token.c", got[0].UUID)

	s.RemoveToken("c")
	assert.Empty(t, s.QueryTokens(scene.Rect{X: 2150, Y: 2150, Width: 10, Height: 10}))
}
