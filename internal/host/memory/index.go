package memory

import (
	"math"
	"sort"

	"github.com/KirkDiggler/auras/internal/scene"
)

type cellKey struct {
	X int
	Y int
}

// spatialIndex buckets token footprints into square cells so a rectangle
// query only visits the cells it overlaps
type spatialIndex struct {
	cellSize    float64
	invCellSize float64
	cells       map[cellKey][]string
	entries     map[string][]cellKey
}

func newSpatialIndex(cellSize float64) *spatialIndex {
	if cellSize <= 0 {
		cellSize = 100
	}
	return &spatialIndex{
		cellSize:    cellSize,
		invCellSize: 1.0 / cellSize,
		cells:       make(map[cellKey][]string),
		entries:     make(map[string][]cellKey),
	}
}

func (idx *spatialIndex) upsert(id string, bounds scene.Rect) {
	if cells, ok := idx.entries[id]; ok {
		idx.removeFromCells(id, cells)
	}
	cells := idx.cellsFor(bounds)
	idx.entries[id] = cells
	for _, c := range cells {
		idx.cells[c] = append(idx.cells[c], id)
	}
}

func (idx *spatialIndex) remove(id string) {
	cells, ok := idx.entries[id]
	if !ok {
		return
	}
	idx.removeFromCells(id, cells)
	delete(idx.entries, id)
}

func (idx *spatialIndex) removeFromCells(id string, cells []cellKey) {
	for _, c := range cells {
		bucket := idx.cells[c]
		for i := range bucket {
			if bucket[i] != id {
				continue
			}
			bucket[i] = bucket[len(bucket)-1]
			bucket = bucket[:len(bucket)-1]
			break
		}
		if len(bucket) == 0 {
			delete(idx.cells, c)
		} else {
			idx.cells[c] = bucket
		}
	}
}

// query returns the sorted IDs of every entry sharing a cell with rect. The
// caller still tests exact overlap.
func (idx *spatialIndex) query(rect scene.Rect) []string {
	seen := make(map[string]bool)
	for _, c := range idx.cellsFor(rect) {
		for _, id := range idx.cells[c] {
			seen[id] = true
		}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (idx *spatialIndex) cellsFor(r scene.Rect) []cellKey {
	minX := idx.coordToCell(r.X)
	minY := idx.coordToCell(r.Y)
	maxX := idx.coordToCell(r.X + math.Abs(r.Width))
	maxY := idx.coordToCell(r.Y + math.Abs(r.Height))
	cells := make([]cellKey, 0, (maxX-minX+1)*(maxY-minY+1))
	for row := minY; row <= maxY; row++ {
		for col := minX; col <= maxX; col++ {
			cells = append(cells, cellKey{X: col, Y: row})
		}
	}
	return cells
}

func (idx *spatialIndex) coordToCell(v float64) int {
	return int(math.Floor(v * idx.invCellSize))
}
