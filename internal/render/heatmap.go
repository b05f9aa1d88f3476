package render

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/farmview/farmview-api/internal/damage"
	"github.com/fogleman/gg"
)

type rgb struct {
	R, G, B int
}

var severityColors = map[damage.Severity]rgb{
	damage.SeverityInvalid: {110, 110, 110},
	damage.SeverityNone:    {34, 139, 34},
	damage.SeverityDamaged: {255, 165, 0},
	damage.SeveritySevere:  {178, 34, 34},
}

// Upscale factor so small fields (a handful of raster pixels) are still
// readable in the output image.
const cellSize = 8

// WriteDamageHeatmap renders the per-pixel severity grid to a PNG. It consumes
// the grid exactly as the classifier produced it.
func WriteDamageHeatmap(grid [][]damage.Severity, path string) error {
	if len(grid) == 0 || len(grid[0]) == 0 {
		return fmt.Errorf("empty severity grid")
	}

	height := len(grid)
	width := len(grid[0])
	dc := gg.NewContext(width*cellSize, height*cellSize)

	for y, row := range grid {
		for x, severity := range row {
			c := severityColors[severity]
			dc.SetRGB255(c.R, c.G, c.B)
			dc.DrawRectangle(float64(x*cellSize), float64(y*cellSize), cellSize, cellSize)
			dc.Fill()
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := dc.SavePNG(path); err != nil {
		return fmt.Errorf("failed to save heatmap: %w", err)
	}
	return nil
}
