package geometry

import (
	"testing"

	"github.com/farmview/farmview-api/internal/raster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 4x4 grid covering lon [0, 1], lat [0, 1]. Pixel centers sit at
// 0.125, 0.375, 0.625 and 0.875 on both axes.
func testGrid() raster.Grid {
	return raster.Grid{
		Width:     4,
		Height:    4,
		Transform: [6]float64{0, 0.25, 0, 1, 0, -0.25},
	}
}

func TestRasterizeMaskQuadrant(t *testing.T) {
	polygon, err := NewFieldPolygon(square(0, 0, 0.5))
	require.NoError(t, err)

	mask, err := polygon.RasterizeMask(testGrid())
	require.NoError(t, err)

	// The lower-left quadrant holds the 2x2 block of centers below 0.5.
	assert.Equal(t, 4, mask.Inside)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			want := y >= 2 && x < 2
			assert.Equal(t, want, mask.Cells[y][x], "cell (%d,%d)", x, y)
		}
	}
}

func TestRasterizeMaskFullCoverage(t *testing.T) {
	polygon, err := NewFieldPolygon(square(-1, -1, 3))
	require.NoError(t, err)

	mask, err := polygon.RasterizeMask(testGrid())
	require.NoError(t, err)
	assert.Equal(t, 16, mask.Inside)
}

func TestRasterizeMaskNoOverlap(t *testing.T) {
	polygon, err := NewFieldPolygon(square(10, 10, 0.001))
	require.NoError(t, err)

	_, err = polygon.RasterizeMask(testGrid())

	var gerr *Error
	require.ErrorAs(t, err, &gerr)
	assert.Contains(t, gerr.Reason, "does not cover any pixel")
}

func TestRasterizeMaskSubPixelPolygon(t *testing.T) {
	// Smaller than a pixel and away from every center.
	polygon, err := NewFieldPolygon(square(0.2, 0.2, 0.01))
	require.NoError(t, err)

	_, err = polygon.RasterizeMask(testGrid())

	var gerr *Error
	require.ErrorAs(t, err, &gerr)
}
