package raster

import (
	"fmt"
	"math"
)

// Pixels whose band sum is below this are treated as having no signal and are
// marked invalid instead of dividing by a near-zero denominator.
const denominatorEpsilon = 1e-10

// Slack for float rounding when checking the [-1, 1] NDVI range.
const rangeSlack = 1e-9

// InvalidDataError reports imagery that is unusable for analysis: NDVI outside
// [-1, 1] from a valid denominator (negative reflectance upstream) or bands
// that carry no valid samples at all.
type InvalidDataError struct {
	Reason string
}

func (e *InvalidDataError) Error() string {
	return "invalid raster data: " + e.Reason
}

// NDVI holds a normalized difference vegetation index raster. Invalid pixels
// are NaN and are excluded from every downstream aggregate.
type NDVI struct {
	Grid   Grid
	Values [][]float64
}

// ComputeNDVI derives (NIR - RED) / (NIR + RED) per pixel. Pixels where either
// band is nodata or the band sum is ~zero become NaN. Values outside [-1, 1]
// with a valid denominator are an upstream data defect and fail the whole
// scene rather than being clamped.
func ComputeNDVI(s *Scene) (*NDVI, error) {
	values := make([][]float64, s.Grid.Height)
	valid := 0
	for y := 0; y < s.Grid.Height; y++ {
		values[y] = make([]float64, s.Grid.Width)
		for x := 0; x < s.Grid.Width; x++ {
			nir := s.NIR.Data[y][x]
			red := s.Red.Data[y][x]
			if s.NIR.isNoData(nir) || s.Red.isNoData(red) {
				values[y][x] = math.NaN()
				continue
			}
			sum := nir + red
			if math.Abs(sum) < denominatorEpsilon {
				values[y][x] = math.NaN()
				continue
			}
			v := (nir - red) / sum
			if v > 1+rangeSlack || v < -1-rangeSlack {
				return nil, &InvalidDataError{
					Reason: fmt.Sprintf("ndvi %g at pixel (%d,%d) is outside [-1,1], reflectance input is corrupt", v, x, y),
				}
			}
			values[y][x] = v
			valid++
		}
	}
	if valid == 0 {
		return nil, &InvalidDataError{Reason: "no valid pixels, both bands are entirely nodata"}
	}
	return &NDVI{Grid: s.Grid, Values: values}, nil
}
