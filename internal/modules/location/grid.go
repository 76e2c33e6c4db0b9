// README: Hexagonal grid over H3 used by retrieval and demand tracking.
package location

import (
	"github.com/uber/h3-go/v4"

	"routematch/internal/types"
)

// Grid maps coordinates to H3 cells at a fixed resolution. Resolution 8 cells
// cover roughly 0.74 km².
type Grid struct {
	resolution int
}

func NewGrid(resolution int) Grid {
	return Grid{resolution: resolution}
}

func (g Grid) Resolution() int {
	return g.resolution
}

func (g Grid) Cell(p types.Point) h3.Cell {
	return h3.LatLngToCell(h3.NewLatLng(p.Lat, p.Lng), g.resolution)
}

// Rings returns the cells at grid distance 0..maxRing from center, one slice
// per distance. rings[0] is the center cell alone.
func (g Grid) Rings(center h3.Cell, maxRing int) [][]h3.Cell {
	if maxRing < 0 {
		maxRing = 0
	}
	return center.GridDiskDistances(maxRing)
}
