package render

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/farmview/farmview-api/internal/damage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteDamageHeatmap(t *testing.T) {
	grid := [][]damage.Severity{
		{damage.SeverityNone, damage.SeverityDamaged},
		{damage.SeveritySevere, damage.SeverityInvalid},
	}
	path := filepath.Join(t.TempDir(), "static", "heatmap.png")

	require.NoError(t, WriteDamageHeatmap(grid, path))

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	img, err := png.Decode(file)
	require.NoError(t, err)
	assert.Equal(t, 2*cellSize, img.Bounds().Dx())
	assert.Equal(t, 2*cellSize, img.Bounds().Dy())
}

func TestWriteDamageHeatmapEmptyGrid(t *testing.T) {
	err := WriteDamageHeatmap(nil, filepath.Join(t.TempDir(), "heatmap.png"))
	require.Error(t, err)
}
