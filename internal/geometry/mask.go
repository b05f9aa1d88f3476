package geometry

import (
	"github.com/farmview/farmview-api/internal/raster"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Mask is a boolean grid over a raster, true where the pixel center falls
// inside the field polygon. Inside counts the true cells.
type Mask struct {
	Cells  [][]bool
	Inside int
}

// RasterizeMask tests every pixel center of the grid against the ring. It
// fails when no pixel center lands inside the polygon: either the field is
// outside the raster extent or smaller than a single pixel, and both mean
// there is nothing to assess.
func (p *FieldPolygon) RasterizeMask(grid raster.Grid) (*Mask, error) {
	cells := make([][]bool, grid.Height)
	inside := 0
	for y := 0; y < grid.Height; y++ {
		cells[y] = make([]bool, grid.Width)
		for x := 0; x < grid.Width; x++ {
			lon, lat := grid.CenterLonLat(x, y)
			if planar.RingContains(p.ring, orb.Point{lon, lat}) {
				cells[y][x] = true
				inside++
			}
		}
	}
	if inside == 0 {
		return nil, &Error{Reason: "polygon does not cover any pixel of the raster extent"}
	}
	return &Mask{Cells: cells, Inside: inside}, nil
}
