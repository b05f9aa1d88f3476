package raster

import (
	"fmt"
	"math"
)

// Grid describes the pixel layout of a raster in WGS84 lon/lat coordinates.
// Transform follows the GDAL geotransform convention:
//
//	lon = Transform[0] + Transform[1]*col + Transform[2]*row
//	lat = Transform[3] + Transform[4]*col + Transform[5]*row
type Grid struct {
	Width     int
	Height    int
	Transform [6]float64
}

func (g Grid) PixelSize() (float64, float64) {
	return g.Transform[1], g.Transform[5]
}

func (g Grid) Origin() (float64, float64) {
	return g.Transform[0], g.Transform[3]
}

// CenterLonLat returns the geographic coordinates of the center of pixel (x, y).
func (g Grid) CenterLonLat(x, y int) (float64, float64) {
	lon := g.Transform[0] + g.Transform[1]*(float64(x)+0.5) + g.Transform[2]*(float64(y)+0.5)
	lat := g.Transform[3] + g.Transform[4]*(float64(x)+0.5) + g.Transform[5]*(float64(y)+0.5)
	return lon, lat
}

// Extent returns the bounding box of the grid as (minLon, minLat, maxLon, maxLat).
func (g Grid) Extent() (float64, float64, float64, float64) {
	x0 := g.Transform[0]
	y0 := g.Transform[3]
	x1 := g.Transform[0] + g.Transform[1]*float64(g.Width) + g.Transform[2]*float64(g.Height)
	y1 := g.Transform[3] + g.Transform[4]*float64(g.Width) + g.Transform[5]*float64(g.Height)
	return math.Min(x0, x1), math.Min(y0, y1), math.Max(x0, x1), math.Max(y0, y1)
}

// Band is a 2-D grid of reflectance samples. Data is indexed [row][col].
type Band struct {
	Data      [][]float64
	NoData    float64
	HasNoData bool
}

func (b Band) isNoData(v float64) bool {
	return math.IsNaN(v) || (b.HasNoData && v == b.NoData)
}

// Scene is a two-band (red, near-infrared) image sharing one pixel grid.
type Scene struct {
	Grid Grid
	Red  Band
	NIR  Band
}

// NewScene builds a Scene and checks that both bands match the grid shape.
func NewScene(grid Grid, red, nir Band) (*Scene, error) {
	if grid.Width <= 0 || grid.Height <= 0 {
		return nil, fmt.Errorf("invalid grid shape %dx%d", grid.Width, grid.Height)
	}
	for name, band := range map[string]Band{"red": red, "nir": nir} {
		if len(band.Data) != grid.Height {
			return nil, fmt.Errorf("%s band has %d rows, grid expects %d", name, len(band.Data), grid.Height)
		}
		for y := range band.Data {
			if len(band.Data[y]) != grid.Width {
				return nil, fmt.Errorf("%s band row %d has %d columns, grid expects %d", name, y, len(band.Data[y]), grid.Width)
			}
		}
	}
	return &Scene{Grid: grid, Red: red, NIR: nir}, nil
}

// MeanValid computes the mean of all non-NaN cells. Returns NaN when every
// cell is invalid, never zero, so the caller can tell the two cases apart.
func MeanValid(values [][]float64) float64 {
	sum := 0.0
	count := 0
	for _, row := range values {
		for _, v := range row {
			if math.IsNaN(v) {
				continue
			}
			sum += v
			count++
		}
	}
	if count == 0 {
		return math.NaN()
	}
	return sum / float64(count)
}
